package handler

import (
	"errors"
	"net/http"

	"telemed-backend/internal/delivery/http/middleware"
	"telemed-backend/internal/domain/entity"
	"telemed-backend/pkg/response"
)

// writeError maps the domain error taxonomy to a response. fallback is sent
// for anything unrecognised.
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, entity.ErrPermissionDenied):
		response.Forbidden(w, err.Error())
	case errors.Is(err, entity.ErrValidation), errors.Is(err, entity.ErrUnsupportedQuery):
		response.BadRequest(w, err.Error())
	case errors.Is(err, entity.ErrInvalidTransition):
		response.Conflict(w, err.Error())
	case errors.Is(err, entity.ErrStoreUnavailable):
		response.ServiceUnavailable(w)
	default:
		response.InternalServerError(w, fallback)
	}
}

// requireActor returns the authenticated actor, answering 401 when absent
func requireActor(w http.ResponseWriter, r *http.Request) (entity.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "User not authenticated")
		return entity.Actor{}, false
	}
	return actor, true
}
