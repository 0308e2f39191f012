package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

// Scope headers are set by the authenticating gateway in front of the API.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderClubID   = "X-Club-ID"
	HeaderActorID  = "X-Actor-ID"
)

type scopeKey struct{}

// Scope resolves the tenant, club and actor headers into a nav.Scope on the request context
func Scope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var scope nav.Scope
		for _, h := range []struct {
			name string
			dst  *uuid.UUID
		}{
			{HeaderTenantID, &scope.TenantID},
			{HeaderClubID, &scope.ClubID},
			{HeaderActorID, &scope.ActorID},
		} {
			raw := r.Header.Get(h.name)
			if raw == "" {
				rejectScope(w, "missing "+h.name+" header")
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				rejectScope(w, "invalid "+h.name+" header")
				return
			}
			*h.dst = id
		}

		ctx := context.WithValue(r.Context(), scopeKey{}, scope)
		ctx = context.WithValue(ctx, logger.ActorIDKey, scope.ActorID.String())
		ctx = context.WithValue(ctx, logger.ClubIDKey, scope.ClubID.String())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetScope returns the scope set by the Scope middleware
func GetScope(ctx context.Context) (nav.Scope, bool) {
	scope, ok := ctx.Value(scopeKey{}).(nav.Scope)
	return scope, ok
}

// WithScope stores a scope on the context
func WithScope(ctx context.Context, scope nav.Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

func rejectScope(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": "BAD_REQUEST", "error": message})
}
