package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/leaselane/backend/internal/audit"
	"github.com/leaselane/backend/internal/models"
	"github.com/leaselane/backend/internal/store"
)

const paymentEventQueue = "rent_payment_events"

// PaymentEvent is pushed to the Redis queue after every committed payment.
type PaymentEvent struct {
	LedgerID      string `json:"ledgerId"`
	AgreementID   string `json:"agreementId"`
	Tenant        string `json:"tenant"`
	Landlord      string `json:"landlord"`
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
	PaymentDate   string `json:"paymentDate"`
	Rent          int64  `json:"rent"`
	Penalty       int64  `json:"penalty"`
	TotalPaid     int64  `json:"totalPaid"`
}

// PaymentLedgerService governs the versioned payment state of an agreement.
// Every successful PayRent archives the current ledger entry and creates its
// successor in one transaction.
type PaymentLedgerService struct {
	store     *store.Store
	workflow  *RentalWorkflowService
	authority *ContractAuthority
	audit     *audit.AuditLogger
	redis     *redis.Client
}

func NewPaymentLedgerService(st *store.Store, workflow *RentalWorkflowService, redisClient *redis.Client) *PaymentLedgerService {
	return &PaymentLedgerService{
		store:     st,
		workflow:  workflow,
		authority: NewContractAuthority(),
		audit:     audit.NewAuditLogger(),
		redis:     redisClient,
	}
}

// GetRentDue computes what a payment dated newDate would owe. Read-only.
// A date in the same month as the last payment, or not after it, is a
// defined empty outcome (nil due), not an error.
func (s *PaymentLedgerService) GetRentDue(caller models.Party, ref models.Ref, newDate time.Time) (*PaymentDue, error) {
	entry, err := s.fetchEntry(caller, ref, OpGetRentDue)
	if err != nil {
		return nil, err
	}

	terms, err := s.workflow.Inspect(caller, entry.AgreementRef)
	if err != nil {
		return nil, err
	}

	due, err := ComputeDue(newDate, entry.LastPaymentDate, terms)
	if errors.Is(err, ErrDuplicatePayment) || errors.Is(err, ErrNonAdvancingDate) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return due, nil
}

// PayRent records a payment dated newDate against the ledger version named
// by ref. The current entry is archived and replaced atomically; a stale ref
// fails with store.ErrStaleVersion and changes nothing.
func (s *PaymentLedgerService) PayRent(caller models.Party, ref models.Ref, newDate time.Time) (models.Ref, *PaymentDue, error) {
	entry, err := s.fetchEntry(caller, ref, OpPayRent)
	if err != nil {
		return models.Ref{}, nil, err
	}

	// Terms never change after Agreement creation, so reading them outside
	// the transaction is safe. The entry itself is re-read under the lock.
	terms, err := s.workflow.Inspect(caller, entry.AgreementRef)
	if err != nil {
		return models.Ref{}, nil, err
	}

	var newRef models.Ref
	var due *PaymentDue
	err = s.store.Transact(func(tx *store.Txn) error {
		inst, err := tx.Get(ref)
		if err != nil {
			return err
		}
		current, ok := inst.Contract.(models.PaymentLedgerEntry)
		if !ok {
			return fmt.Errorf("%w: %s@%d is not a payment ledger", store.ErrNotFound, ref.ContractID, ref.Version)
		}
		if err := s.authority.Authorize(caller, OpPayRent, current); err != nil {
			return err
		}

		due, err = ComputeDue(newDate, current.LastPaymentDate, terms)
		if err != nil {
			return err
		}

		if err := tx.Archive(ref); err != nil {
			return err
		}

		// Bank routing is copied forward verbatim: the landlord co-signs
		// every version, the tenant only supplies the date.
		next := current
		next.LastPaymentDate = dateOnly(newDate)
		next.RentThisPeriod = due.Rent
		next.PenaltyThisPeriod = due.Penalty
		next.TotalPaidToDate = current.TotalPaidToDate + due.Rent + due.Penalty

		newRef, err = tx.Create(ref.ContractID, next)
		return err
	})
	if err != nil {
		s.audit.LogError(string(OpPayRent), ref.ContractID, string(caller), err)
		return models.Ref{}, nil, err
	}

	newInst, err := s.store.Get(newRef)
	if err == nil {
		newEntry := newInst.Contract.(models.PaymentLedgerEntry)
		log.Printf("[PAYMENT] Ledger %s advanced to version %d: rent=%d penalty=%d total=%d",
			newRef.ContractID, newRef.Version, due.Rent, due.Penalty, newEntry.TotalPaidToDate)
		s.audit.LogPayment(newRef.ContractID, string(caller), due.Rent, due.Penalty, newEntry.TotalPaidToDate)
		s.publishPaymentEvent(PaymentEvent{
			LedgerID:      newRef.ContractID,
			AgreementID:   newEntry.AgreementRef.ContractID,
			Tenant:        string(newEntry.Tenant),
			Landlord:      string(newEntry.Landlord),
			BankCode:      newEntry.BankCode,
			AccountNumber: newEntry.AccountNumber,
			PaymentDate:   newEntry.LastPaymentDate.Format("2006-01-02"),
			Rent:          due.Rent,
			Penalty:       due.Penalty,
			TotalPaid:     newEntry.TotalPaidToDate,
		})
	}

	return newRef, due, nil
}

func (s *PaymentLedgerService) fetchEntry(caller models.Party, ref models.Ref, op Op) (models.PaymentLedgerEntry, error) {
	inst, err := s.store.Get(ref)
	if err != nil {
		return models.PaymentLedgerEntry{}, err
	}
	entry, ok := inst.Contract.(models.PaymentLedgerEntry)
	if !ok {
		return models.PaymentLedgerEntry{}, fmt.Errorf("%w: %s@%d is not a payment ledger", store.ErrNotFound, ref.ContractID, ref.Version)
	}
	if err := s.authority.Authorize(caller, op, entry); err != nil {
		return models.PaymentLedgerEntry{}, err
	}
	return entry, nil
}

// publishPaymentEvent queues the event for downstream consumers. The queue
// is best-effort: a missing Redis client or a push failure does not fail the
// committed payment.
func (s *PaymentLedgerService) publishPaymentEvent(event PaymentEvent) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[PAYMENT] Failed to marshal payment event: %v", err)
		return
	}
	if err := s.redis.RPush(context.Background(), paymentEventQueue, data).Err(); err != nil {
		log.Printf("[PAYMENT] Failed to queue payment event: %v", err)
	}
}
