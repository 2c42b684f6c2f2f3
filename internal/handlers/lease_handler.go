package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leaselane/backend/internal/models"
	"github.com/leaselane/backend/internal/services"
)

// LeaseHandler exposes the proposal/agreement workflow over HTTP.
type LeaseHandler struct {
	workflow  *services.RentalWorkflowService
	validator *services.ValidationHelper
}

func NewLeaseHandler(workflow *services.RentalWorkflowService) *LeaseHandler {
	return &LeaseHandler{
		workflow:  workflow,
		validator: services.NewValidationHelper(),
	}
}

// TermsRequest mirrors models.RentalTerms with a wire-format date.
type TermsRequest struct {
	RentAmount         int64  `json:"rentAmount" validate:"required,gt=0"`
	Currency           string `json:"currency" validate:"required,oneof=USD EUR"`
	LeasePeriodMonths  int    `json:"leasePeriodMonths" validate:"required,gt=0"`
	StartDate          string `json:"startDate" validate:"required,datetime=2006-01-02"`
	LatePenaltyPercent int64  `json:"latePenaltyPercent" validate:"gte=0,lte=100"`
	BreakPenaltyMonths int    `json:"breakPenaltyMonths" validate:"gte=0"`
}

type InviteRequest struct {
	Tenant        string       `json:"tenant" validate:"required,min=1"`
	Terms         TermsRequest `json:"terms" validate:"required"`
	BankCode      string       `json:"bankCode" validate:"required,min=1"`
	AccountNumber string       `json:"accountNumber" validate:"required,min=1"`
}

type RefRequest struct {
	Version int64 `json:"version" validate:"gte=0"`
}

// Invite creates a lease proposal from the calling landlord.
// @Summary Propose a lease
// @Description Create a rental proposal from the authenticated landlord to a tenant
// @Tags proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body InviteRequest true "Proposal details"
// @Success 201 {object} object{success=bool,ref=models.Ref}
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /proposals [post]
func (h *LeaseHandler) Invite(w http.ResponseWriter, r *http.Request) {
	landlord, ok := callerParty(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req InviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	startDate, err := services.ParseDate(req.Terms.StartDate)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	terms := models.RentalTerms{
		RentAmount:         req.Terms.RentAmount,
		Currency:           models.Currency(req.Terms.Currency),
		LeasePeriodMonths:  req.Terms.LeasePeriodMonths,
		StartDate:          startDate,
		LatePenaltyPercent: req.Terms.LatePenaltyPercent,
		BreakPenaltyMonths: req.Terms.BreakPenaltyMonths,
	}

	ref, err := h.workflow.Invite(landlord, models.Party(req.Tenant), terms, req.BankCode, req.AccountNumber)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"ref":     ref,
	})
}

// Inspect returns the terms of a proposal or agreement.
// @Summary Inspect contract terms
// @Description Read the rental terms of a proposal or agreement as the tenant
// @Tags proposals
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contract ID"
// @Param version query int false "Contract version (defaults to current)"
// @Success 200 {object} object{terms=models.RentalTerms}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /proposals/{id} [get]
func (h *LeaseHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerParty(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	ref, ok := h.resolveRef(w, r)
	if !ok {
		return
	}

	terms, err := h.workflow.Inspect(caller, ref)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"ref":   ref,
		"terms": terms,
	})
}

// Accept accepts a proposal, producing an agreement and a payment ledger.
// @Summary Accept a proposal
// @Description Accept a rental proposal as the tenant
// @Tags proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Proposal ID"
// @Param request body RefRequest false "Proposal version held by the caller"
// @Success 200 {object} object{success=bool,agreementRef=models.Ref,ledgerRef=models.Ref}
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /proposals/{id}/accept [post]
func (h *LeaseHandler) Accept(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerParty(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	ref, ok := h.resolveBodyRef(w, r)
	if !ok {
		return
	}

	agreementRef, ledgerRef, err := h.workflow.Accept(caller, ref)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":      true,
		"agreementRef": agreementRef,
		"ledgerRef":    ledgerRef,
	})
}

// Reject rejects a proposal. Terminal.
// @Summary Reject a proposal
// @Description Reject a rental proposal as the tenant
// @Tags proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Proposal ID"
// @Param request body RefRequest false "Proposal version held by the caller"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /proposals/{id}/reject [post]
func (h *LeaseHandler) Reject(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerParty(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	ref, ok := h.resolveBodyRef(w, r)
	if !ok {
		return
	}

	if err := h.workflow.Reject(caller, ref); err != nil {
		sendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// Query lists the active contracts visible to the caller.
// @Summary List visible contracts
// @Description List active contract instances on which the caller is signatory or observer
// @Tags contracts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{contracts=[]services.ContractSummary,count=int}
// @Router /contracts [get]
func (h *LeaseHandler) Query(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerParty(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	contracts := h.workflow.Query(caller)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"contracts": contracts,
		"count":     len(contracts),
	})
}

// resolveRef builds a Ref from the {id} path segment and optional version
// query parameter, defaulting to the current version.
func (h *LeaseHandler) resolveRef(w http.ResponseWriter, r *http.Request) (models.Ref, bool) {
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

// resolveBodyRef reads an optional {version} JSON body for mutating calls.
func (h *LeaseHandler) resolveBodyRef(w http.ResponseWriter, r *http.Request) (models.Ref, bool) {
	contractID := chi.URLParam(r, "id")

	var req RefRequest
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1_048_576))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
			return models.Ref{}, false
		}
	}

	if req.Version > 0 {
		return models.Ref{ContractID: contractID, Version: req.Version}, true
	}

	ref, err := h.workflow.CurrentRef(contractID)
	if err != nil {
		sendServiceError(w, err)
		return models.Ref{}, false
	}
	return ref, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

func parseVersion(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
