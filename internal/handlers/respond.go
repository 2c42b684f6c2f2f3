package handlers

import (
	"errors"
	"net/http"

	"github.com/leaselane/backend/internal/models"
	"github.com/leaselane/backend/internal/services"
	"github.com/leaselane/backend/internal/store"
)

// callerParty reads the authenticated party injected by the auth middleware.
func callerParty(r *http.Request) (models.Party, bool) {
	party, ok := r.Context().Value("party").(string)
	if !ok || party == "" {
		return "", false
	}
	return models.Party(party), true
}

// sendServiceError maps domain errors onto HTTP statuses.
func sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotAuthorized):
		services.SendErrorResponse(w, err.Error(), http.StatusForbidden, nil)
	case errors.Is(err, store.ErrStaleVersion), errors.Is(err, store.ErrAlreadyActive), errors.Is(err, services.ErrProposalExists):
		services.SendErrorResponse(w, err.Error(), http.StatusConflict, nil)
	case errors.Is(err, store.ErrNotFound):
		services.SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
	case errors.Is(err, services.ErrDuplicatePayment),
		errors.Is(err, services.ErrNonAdvancingDate),
		errors.Is(err, services.ErrInvalidContractFields):
		services.SendErrorResponse(w, err.Error(), http.StatusUnprocessableEntity, nil)
	default:
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}
