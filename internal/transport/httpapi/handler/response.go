package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
	apperrors "github.com/Isaac25-lgtm/navcore-platform/internal/shared/errors"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code    string         `json:"code"`
	Error   string         `json:"error"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// respondAppError sends an AppError with its mapped status
func respondAppError(w http.ResponseWriter, appErr *apperrors.AppError) {
	resp := ErrorResponse{Code: appErr.Code, Error: appErr.Message}
	for k, v := range appErr.Details {
		if field, ok := v.(string); ok && k == "field" {
			resp.Field = field
			continue
		}
		if resp.Details == nil {
			resp.Details = make(map[string]any)
		}
		resp.Details[k] = v
	}
	respondJSON(w, resp, appErr.HTTPStatus())
}

// respondError maps a service error onto the transport error codes and writes it
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr := toAppError(err)
	if appErr.Code == apperrors.ErrCodeInternal {
		log.WithContext(r.Context()).WithError(err).Error("request failed", "path", r.URL.Path)
	}
	respondAppError(w, appErr)
}

// toAppError classifies nav errors: validation 400, not found 404, state and mismatch 409
func toAppError(err error) *apperrors.AppError {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}

	var (
		validation *nav.ValidationError
		mismatch   *nav.ReconciliationMismatchError
		state      *nav.StateError
		missing    *nav.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		appErr := apperrors.Validation(validation.Message)
		if validation.Field != "" {
			appErr.WithDetail("field", validation.Field)
		}
		return appErr
	case errors.As(err, &mismatch):
		reasons := mismatch.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		return apperrors.ReconciliationMismatch("period cannot close until it reconciles").
			WithDetail("stamp", mismatch.Stamp).
			WithDetail("mismatch", mismatch.Mismatch.StringFixed(2)).
			WithDetail("reasons", reasons)
	case errors.As(err, &state):
		return apperrors.State(state.Err.Error(), err).
			WithDetail("status", string(state.Status)).
			WithDetail("operation", state.Op)
	case errors.As(err, &missing):
		return apperrors.NotFound(missing.Resource)
	case errors.Is(err, nav.ErrNotFound):
		return apperrors.NotFound("resource")
	default:
		return apperrors.Internal("internal server error", err)
	}
}

// pathUUID parses a chi URL parameter as a UUID
func pathUUID(r *http.Request, name string) (uuid.UUID, *apperrors.AppError) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperrors.BadRequest(fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) *apperrors.AppError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	return nil
}
