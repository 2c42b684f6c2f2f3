package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leaselane/backend/internal/models"
	"github.com/leaselane/backend/internal/services"
)

// PaymentHandler exposes the payment ledger operations over HTTP.
type PaymentHandler struct {
	payments  *services.PaymentLedgerService
	workflow  *services.RentalWorkflowService
	validator *services.ValidationHelper
}

func NewPaymentHandler(payments *services.PaymentLedgerService, workflow *services.RentalWorkflowService) *PaymentHandler {
	return &PaymentHandler{
		payments:  payments,
		workflow:  workflow,
		validator: services.NewValidationHelper(),
	}
}

type PayRentRequest struct {
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Version int64  `json:"version" validate:"gte=0"`
}

// GetRentDue computes rent and penalty owed for a candidate payment date.
// @Summary Get rent due
// @Description Compute rent and penalty a payment dated at the given day would owe; empty when no payment is due
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ledger ID"
// @Param date query string true "Payment date (YYYY-MM-DD)"
// @Param version query int false "Ledger version (defaults to current)"
// @Success 200 {object} object{due=services.PaymentDue}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /ledgers/{id}/rent-due [get]
func (h *PaymentHandler) GetRentDue(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerParty(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	date, err := services.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	ref, ok := h.resolveQueryRef(w, r)
	if !ok {
		return
	}

	due, err := h.payments.GetRentDue(caller, ref, date)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"ref": ref,
		"due": due, // null when no payment is due
	})
}

// PayRent records a payment and advances the ledger to a new version.
// @Summary Pay rent
// @Description Record a rent payment as the tenant; archives the current ledger version and creates its successor
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ledger ID"
// @Param request body PayRentRequest true "Payment date and held version"
// @Success 200 {object} object{success=bool,ref=models.Ref,due=services.PaymentDue}
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /ledgers/{id}/payments [post]
func (h *PaymentHandler) PayRent(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerParty(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req PayRentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	date, err := services.ParseDate(req.Date)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	contractID := chi.URLParam(r, "id")
	var ref models.Ref
	if req.Version > 0 {
		ref = models.Ref{ContractID: contractID, Version: req.Version}
	} else {
		ref, err = h.workflow.CurrentRef(contractID)
		if err != nil {
			sendServiceError(w, err)
			return
		}
	}

	newRef, due, err := h.payments.PayRent(caller, ref, date)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"ref":     newRef,
		"due":     due,
	})
}

func (h *PaymentHandler) resolveQueryRef(w http.ResponseWriter, r *http.Request) (models.Ref, bool) {
	contractID := chi.URLParam(r, "id")
	if v := r.URL.Query().Get("version"); v != "" {
		version, err := parseVersion(v)
		if err != nil {
			services.SendErrorResponse(w, "Invalid version", http.StatusBadRequest, nil)
			return models.Ref{}, false
		}
		return models.Ref{ContractID: contractID, Version: version}, true
	}

	ref, err := h.workflow.CurrentRef(contractID)
	if err != nil {
		sendServiceError(w, err)
		return models.Ref{}, false
	}
	return ref, true
}
