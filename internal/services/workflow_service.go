package services

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/leaselane/backend/internal/audit"
	"github.com/leaselane/backend/internal/models"
	"github.com/leaselane/backend/internal/store"
)

// RentalWorkflowService governs the Proposal -> {Agreement, Rejected} state
// machine. Accept atomically archives the proposal and creates the agreement
// plus the initial payment ledger entry.
type RentalWorkflowService struct {
	store     *store.Store
	authority *ContractAuthority
	audit     *audit.AuditLogger
}

func NewRentalWorkflowService(st *store.Store) *RentalWorkflowService {
	return &RentalWorkflowService{
		store:     st,
		authority: NewContractAuthority(),
		audit:     audit.NewAuditLogger(),
	}
}

// Invite creates a Proposal from the calling landlord to tenant. At most one
// active proposal may exist per (landlord, tenant) pair.
func (s *RentalWorkflowService) Invite(landlord, tenant models.Party, terms models.RentalTerms, bankCode, accountNumber string) (models.Ref, error) {
	proposal := models.RentalProposal{
		Landlord:      landlord,
		Tenant:        tenant,
		Terms:         terms,
		BankCode:      bankCode,
		AccountNumber: accountNumber,
	}

	if err := s.authority.Authorize(landlord, OpInvite, proposal); err != nil {
		return models.Ref{}, err
	}
	if err := validateContractFields(landlord, tenant, bankCode, accountNumber); err != nil {
		return models.Ref{}, err
	}

	for _, inst := range s.store.Query(landlord) {
		if p, ok := inst.Contract.(models.RentalProposal); ok && p.Landlord == landlord && p.Tenant == tenant {
			return models.Ref{}, fmt.Errorf("%w: %s", ErrProposalExists, tenant)
		}
	}

	var ref models.Ref
	err := s.store.Transact(func(tx *store.Txn) error {
		var err error
		ref, err = tx.Create(uuid.NewString(), proposal)
		return err
	})
	if err != nil {
		s.audit.LogError(string(OpInvite), ref.ContractID, string(landlord), err)
		return models.Ref{}, err
	}

	log.Printf("[WORKFLOW] Proposal %s created by %s for %s", ref.ContractID, landlord, tenant)
	s.audit.LogOperation(string(OpInvite), ref.ContractID, string(landlord), map[string]string{
		"tenant": string(tenant),
	})
	return ref, nil
}

// Inspect returns the terms of a Proposal or Agreement. Read-only; callable
// any number of times by the tenant.
func (s *RentalWorkflowService) Inspect(caller models.Party, ref models.Ref) (models.RentalTerms, error) {
	inst, err := s.store.Get(ref)
	if err != nil {
		return models.RentalTerms{}, err
	}
	if err := s.authority.Authorize(caller, OpInspect, inst.Contract); err != nil {
		return models.RentalTerms{}, err
	}

	switch c := inst.Contract.(type) {
	case models.RentalProposal:
		return c.Terms, nil
	case models.RentalAgreement:
		return c.Terms, nil
	default:
		return models.RentalTerms{}, fmt.Errorf("%w: %s has no terms", ErrNotAuthorized, inst.Kind)
	}
}

// Accept consumes the proposal and creates the Agreement and the initial
// PaymentLedgerEntry in one transaction; there is no observable intermediate
// state.
func (s *RentalWorkflowService) Accept(caller models.Party, ref models.Ref) (models.Ref, models.Ref, error) {
	var agreementRef, ledgerRef models.Ref

	err := s.store.Transact(func(tx *store.Txn) error {
		inst, err := tx.Get(ref)
		if err != nil {
			return err
		}
		proposal, ok := inst.Contract.(models.RentalProposal)
		if !ok {
			return fmt.Errorf("%w: %s@%d is not a proposal", store.ErrNotFound, ref.ContractID, ref.Version)
		}
		if err := s.authority.Authorize(caller, OpAccept, proposal); err != nil {
			return err
		}
		if err := validateContractFields(proposal.Landlord, proposal.Tenant, proposal.BankCode, proposal.AccountNumber); err != nil {
			return err
		}
		if err := tx.Archive(ref); err != nil {
			return err
		}

		agreement := models.RentalAgreement{
			Landlord: proposal.Landlord,
			Tenant:   proposal.Tenant,
			Terms:    proposal.Terms,
		}
		agreementRef, err = tx.Create(uuid.NewString(), agreement)
		if err != nil {
			return err
		}

		entry := models.PaymentLedgerEntry{
			AgreementRef:    agreementRef,
			Landlord:        proposal.Landlord,
			Tenant:          proposal.Tenant,
			BankCode:        proposal.BankCode,
			AccountNumber:   proposal.AccountNumber,
			LastPaymentDate: SentinelLastPaymentDate(proposal.Terms),
		}
		ledgerRef, err = tx.Create(uuid.NewString(), entry)
		return err
	})
	if err != nil {
		s.audit.LogError(string(OpAccept), ref.ContractID, string(caller), err)
		return models.Ref{}, models.Ref{}, err
	}

	log.Printf("[WORKFLOW] Proposal %s accepted: agreement %s, ledger %s", ref.ContractID, agreementRef.ContractID, ledgerRef.ContractID)
	s.audit.LogOperation(string(OpAccept), ref.ContractID, string(caller), map[string]string{
		"agreement": agreementRef.ContractID,
		"ledger":    ledgerRef.ContractID,
	})
	return agreementRef, ledgerRef, nil
}

// Reject consumes the proposal. Terminal: no agreement or ledger is created
// and no further operation on the proposal succeeds.
func (s *RentalWorkflowService) Reject(caller models.Party, ref models.Ref) error {
	err := s.store.Transact(func(tx *store.Txn) error {
		inst, err := tx.Get(ref)
		if err != nil {
			return err
		}
		proposal, ok := inst.Contract.(models.RentalProposal)
		if !ok {
			return fmt.Errorf("%w: %s@%d is not a proposal", store.ErrNotFound, ref.ContractID, ref.Version)
		}
		if err := s.authority.Authorize(caller, OpReject, proposal); err != nil {
			return err
		}
		return tx.Archive(ref)
	})
	if err != nil {
		s.audit.LogError(string(OpReject), ref.ContractID, string(caller), err)
		return err
	}

	log.Printf("[WORKFLOW] Proposal %s rejected by %s", ref.ContractID, caller)
	s.audit.LogOperation(string(OpReject), ref.ContractID, string(caller), nil)
	return nil
}

// ContractSummary is one active instance as reported to its parties.
type ContractSummary struct {
	Ref      models.Ref      `json:"ref"`
	Kind     models.Kind     `json:"kind"`
	Contract models.Contract `json:"contract"`
}

// Query lists the active contracts visible to caller.
func (s *RentalWorkflowService) Query(caller models.Party) []ContractSummary {
	instances := s.store.Query(caller)
	out := make([]ContractSummary, 0, len(instances))
	for _, inst := range instances {
		out = append(out, ContractSummary{Ref: inst.Ref(), Kind: inst.Kind, Contract: inst.Contract})
	}
	return out
}

// CurrentRef resolves a logical contract id to its active version.
func (s *RentalWorkflowService) CurrentRef(contractID string) (models.Ref, error) {
	inst, err := s.store.Current(contractID)
	if err != nil {
		return models.Ref{}, err
	}
	return inst.Ref(), nil
}

func validateContractFields(landlord, tenant models.Party, bankCode, accountNumber string) error {
	if landlord == tenant {
		return fmt.Errorf("%w: landlord equals tenant", ErrInvalidContractFields)
	}
	if bankCode == "" {
		return fmt.Errorf("%w: bank code is empty", ErrInvalidContractFields)
	}
	if accountNumber == "" {
		return fmt.Errorf("%w: account number is empty", ErrInvalidContractFields)
	}
	return nil
}
