package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

// maxCapturedBody bounds how much of a response body is kept for error logging
const maxCapturedBody = 4 << 10

// cappedBuffer keeps the first maxCapturedBody bytes written to it and drops the rest
type cappedBuffer struct {
	b []byte
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := maxCapturedBody - len(c.b); room > 0 {
		if len(p) > room {
			c.b = append(c.b, p[:room]...)
		} else {
			c.b = append(c.b, p...)
		}
	}
	return len(p), nil
}

// errorFields reads the code and message of an error response body
func errorFields(body []byte) []any {
	var payload struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) != nil || payload.Error == "" {
		return nil
	}
	return []any{"error_code", payload.Code, "error", payload.Error}
}

// Logger logs one line per request, at warn for 4xx and error for 5xx
func Logger(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			body := &cappedBuffer{}
			ww.Tee(body)

			reqID := chimiddleware.GetReqID(r.Context())
			if reqID != "" {
				r = r.WithContext(context.WithValue(r.Context(), logger.RequestIDKey, reqID))
			}

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
				}
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					if pattern := rctx.RoutePattern(); pattern != "" {
						attrs = append(attrs, "route", pattern)
					}
				}
				if reqID != "" {
					attrs = append(attrs, "request_id", reqID)
				}
				if club := r.Header.Get(HeaderClubID); club != "" {
					attrs = append(attrs, "club_id", club)
				}

				switch {
				case status >= http.StatusInternalServerError:
					log.Error("HTTP request", append(attrs, errorFields(body.b)...)...)
				case status >= http.StatusBadRequest:
					log.Warn("HTTP request", append(attrs, errorFields(body.b)...)...)
				default:
					log.Info("HTTP request", attrs...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
