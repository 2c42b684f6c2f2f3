package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/leaselane/backend/internal/models"
	"github.com/leaselane/backend/internal/store"
	"github.com/stretchr/testify/assert"
)

func newAcceptedLease(t *testing.T) (*PaymentLedgerService, *store.Store, models.Ref) {
	t.Helper()
	st := store.New()
	workflow := NewRentalWorkflowService(st)
	payments := NewPaymentLedgerService(st, workflow, nil)

	propRef, err := workflow.Invite(testLandlord, testTenant, standardTerms(), "BANK-001", "0123456789")
	assert.NoError(t, err)
	_, ledgerRef, err := workflow.Accept(testTenant, propRef)
	assert.NoError(t, err)
	return payments, st, ledgerRef
}

func ledgerEntry(t *testing.T, st *store.Store, ref models.Ref) models.PaymentLedgerEntry {
	t.Helper()
	inst, err := st.Get(ref)
	assert.NoError(t, err)
	return inst.Contract.(models.PaymentLedgerEntry)
}

func TestPaymentLedgerService_GetRentDue(t *testing.T) {
	payments, _, ledgerRef := newAcceptedLease(t)

	t.Run("first month due", func(t *testing.T) {
		due, err := payments.GetRentDue(testTenant, ledgerRef, date(2021, time.January, 4))
		assert.NoError(t, err)
		assert.Equal(t, int64(800), due.Rent)
		assert.Equal(t, int64(0), due.Penalty)
	})

	t.Run("read-only and repeatable", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			due, err := payments.GetRentDue(testTenant, ledgerRef, date(2021, time.January, 4))
			assert.NoError(t, err)
			assert.NotNil(t, due)
		}
	})

	t.Run("nothing due is an empty result, not an error", func(t *testing.T) {
		due, err := payments.GetRentDue(testTenant, ledgerRef, date(2020, time.December, 15))
		assert.NoError(t, err)
		assert.Nil(t, due)
	})

	t.Run("landlord denied", func(t *testing.T) {
		_, err := payments.GetRentDue(testLandlord, ledgerRef, date(2021, time.January, 4))
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})
}

func TestPaymentLedgerService_PayRent(t *testing.T) {
	payments, st, ledgerRef := newAcceptedLease(t)

	// Scenario: rent=800, late penalty 10%, lease starts 2021-01-01.
	t.Run("first payment within grace window", func(t *testing.T) {
		newRef, due, err := payments.PayRent(testTenant, ledgerRef, date(2021, time.January, 4))
		assert.NoError(t, err)
		assert.Equal(t, int64(800), due.Rent)
		assert.Equal(t, int64(0), due.Penalty)

		entry := ledgerEntry(t, st, newRef)
		assert.Equal(t, date(2021, time.January, 4), entry.LastPaymentDate)
		assert.Equal(t, int64(800), entry.TotalPaidToDate)
		assert.Equal(t, "BANK-001", entry.BankCode) // routing carried forward

		// The previous version is now stale.
		_, _, err = payments.PayRent(testTenant, ledgerRef, date(2021, time.February, 10))
		assert.ErrorIs(t, err, store.ErrStaleVersion)

		ledgerRef = newRef
	})

	t.Run("same month duplicate rejected without state change", func(t *testing.T) {
		_, _, err := payments.PayRent(testTenant, ledgerRef, date(2021, time.January, 20))
		assert.ErrorIs(t, err, ErrDuplicatePayment)

		entry := ledgerEntry(t, st, ledgerRef)
		assert.Equal(t, int64(800), entry.TotalPaidToDate)
	})

	t.Run("backdated payment rejected", func(t *testing.T) {
		_, _, err := payments.PayRent(testTenant, ledgerRef, date(2021, time.January, 3))
		assert.ErrorIs(t, err, ErrNonAdvancingDate)
	})

	t.Run("date far before lease start rejected by advance check", func(t *testing.T) {
		_, _, err := payments.PayRent(testTenant, ledgerRef, date(2019, time.February, 11))
		assert.ErrorIs(t, err, ErrNonAdvancingDate)
	})

	t.Run("three months late with penalty", func(t *testing.T) {
		newRef, due, err := payments.PayRent(testTenant, ledgerRef, date(2021, time.April, 7))
		assert.NoError(t, err)
		assert.Equal(t, int64(2400), due.Rent)
		assert.Equal(t, int64(240), due.Penalty)

		entry := ledgerEntry(t, st, newRef)
		assert.Equal(t, int64(800+2400+240), entry.TotalPaidToDate)
		assert.Equal(t, int64(2400), entry.RentThisPeriod)
		assert.Equal(t, int64(240), entry.PenaltyThisPeriod)
		ledgerRef = newRef
	})

	t.Run("totals conserve the sum of accepted payments", func(t *testing.T) {
		newRef, due, err := payments.PayRent(testTenant, ledgerRef, date(2021, time.May, 3))
		assert.NoError(t, err)
		assert.Equal(t, int64(800), due.Rent)
		assert.Equal(t, int64(0), due.Penalty) // day 3 within grace window

		entry := ledgerEntry(t, st, newRef)
		assert.Equal(t, int64(800+2640+800), entry.TotalPaidToDate)
	})
}

func TestPaymentLedgerService_PayRentAuthorization(t *testing.T) {
	payments, st, ledgerRef := newAcceptedLease(t)

	for _, party := range []models.Party{testLandlord, "stranger"} {
		_, _, err := payments.PayRent(party, ledgerRef, date(2021, time.January, 4))
		assert.ErrorIs(t, err, ErrNotAuthorized)
	}

	// No version was created by the denied attempts.
	entry := ledgerEntry(t, st, ledgerRef)
	assert.Equal(t, int64(0), entry.TotalPaidToDate)
}

func TestPaymentLedgerService_PublishPaymentEvent(t *testing.T) {
	client, mock := redismock.NewClientMock()

	st := store.New()
	workflow := NewRentalWorkflowService(st)
	payments := NewPaymentLedgerService(st, workflow, client)

	event := PaymentEvent{
		LedgerID:      "ledger-1",
		AgreementID:   "agreement-1",
		Tenant:        "tenant1",
		Landlord:      "landlord1",
		BankCode:      "BANK-001",
		AccountNumber: "0123456789",
		PaymentDate:   "2021-01-04",
		Rent:          800,
		Penalty:       0,
		TotalPaid:     800,
	}
	data, err := json.Marshal(event)
	assert.NoError(t, err)

	mock.ExpectRPush(paymentEventQueue, data).SetVal(1)

	payments.publishPaymentEvent(event)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentLedgerService_NilRedisIsTolerated(t *testing.T) {
	payments, _, ledgerRef := newAcceptedLease(t)

	// Payments succeed with no event queue configured.
	_, due, err := payments.PayRent(testTenant, ledgerRef, date(2021, time.January, 4))
	assert.NoError(t, err)
	assert.Equal(t, int64(800), due.Rent)
}
