// Package httperr maps domain errors to HTTP responses.
package httperr

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/pkg/utils"
)

func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrVerificationFailed),
		errors.Is(err, domain.ErrReplayDetected):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Respond writes err as {"error": ...}. Internal errors are logged and
// replaced with a generic message.
func Respond(w http.ResponseWriter, err error) {
	code := Status(err)
	switch code {
	case http.StatusInternalServerError:
		zap.L().Error("request failed", zap.Error(err))
		utils.RespondWithError(w, code, "Internal server error")
	case http.StatusUnauthorized:
		utils.RespondWithError(w, code, "Unauthorized")
	default:
		utils.RespondWithError(w, code, err.Error())
	}
}

func BadRequest(w http.ResponseWriter, message string) {
	utils.RespondWithError(w, http.StatusBadRequest, message)
}

// PathID returns the {id} URL parameter. Ids are UUIDs, so anything else is
// answered with 404 before it reaches the store.
func PathID(w http.ResponseWriter, r *http.Request, resource string) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, resource+" not found")
		return "", false
	}
	return id, true
}
