package models

import "time"

// Party is an opaque ledger identity (landlord or tenant). The ledger
// authenticates parties; this type only compares them.
type Party string

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

type Kind string

const (
	KindProposal      Kind = "RentalProposal"
	KindAgreement     Kind = "RentalAgreement"
	KindPaymentLedger Kind = "PaymentLedger"
)

// Ref identifies one version of a logical contract. A Ref whose Version no
// longer equals the store's current pointer for the ContractID is stale.
type Ref struct {
	ContractID string `json:"contractId"`
	Version    int64  `json:"version"`
}

// Contract is the tagged union of entity kinds held by the contract store.
// Signatory and Observers determine which parties a contract is visible to;
// per-operation authority is decided by the ContractAuthority.
type Contract interface {
	Kind() Kind
	Signatory() Party
	Observers() []Party
}

// RentalTerms are the immutable lease terms. Amounts are in minor units
// (cents). Copied by value into every contract that embeds them.
type RentalTerms struct {
	RentAmount         int64     `json:"rentAmount" validate:"required,gt=0"`
	Currency           Currency  `json:"currency" validate:"required,oneof=USD EUR"`
	LeasePeriodMonths  int       `json:"leasePeriodMonths" validate:"required,gt=0"`
	StartDate          time.Time `json:"startDate" validate:"required"`
	LatePenaltyPercent int64     `json:"latePenaltyPercent" validate:"gte=0,lte=100"`
	BreakPenaltyMonths int       `json:"breakPenaltyMonths" validate:"gte=0"`
}

// RentalProposal is a lease offer from landlord to tenant. The landlord's
// payout routing travels with the proposal so the tenant can never supply it.
type RentalProposal struct {
	Landlord      Party       `json:"landlord"`
	Tenant        Party       `json:"tenant"`
	Terms         RentalTerms `json:"terms"`
	BankCode      string      `json:"bankCode"`
	AccountNumber string      `json:"accountNumber"`
}

func (p RentalProposal) Kind() Kind         { return KindProposal }
func (p RentalProposal) Signatory() Party   { return p.Landlord }
func (p RentalProposal) Observers() []Party { return []Party{p.Tenant} }

// RentalAgreement is the accepted lease. Immutable for its lifetime.
type RentalAgreement struct {
	Landlord Party       `json:"landlord"`
	Tenant   Party       `json:"tenant"`
	Terms    RentalTerms `json:"terms"`
}

func (a RentalAgreement) Kind() Kind         { return KindAgreement }
func (a RentalAgreement) Signatory() Party   { return a.Landlord }
func (a RentalAgreement) Observers() []Party { return []Party{a.Tenant} }

// PaymentLedgerEntry is the current version of an agreement's payment state.
// Every successful PayRent archives the entry and creates a successor with
// an advanced LastPaymentDate and incremented totals.
type PaymentLedgerEntry struct {
	AgreementRef      Ref       `json:"agreementRef"`
	Landlord          Party     `json:"landlord"`
	Tenant            Party     `json:"tenant"`
	BankCode          string    `json:"bankCode"`
	AccountNumber     string    `json:"accountNumber"`
	LastPaymentDate   time.Time `json:"lastPaymentDate"`
	RentThisPeriod    int64     `json:"rentThisPeriod"`
	PenaltyThisPeriod int64     `json:"penaltyThisPeriod"`
	TotalPaidToDate   int64     `json:"totalPaidToDate"`
}

func (e PaymentLedgerEntry) Kind() Kind         { return KindPaymentLedger }
func (e PaymentLedgerEntry) Signatory() Party   { return e.Landlord }
func (e PaymentLedgerEntry) Observers() []Party { return []Party{e.Tenant} }
