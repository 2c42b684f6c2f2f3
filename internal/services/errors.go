package services

import "errors"

var (
	// ErrNotAuthorized means the calling party is not the one the operation
	// is restricted to. Never retried; the call has no effect.
	ErrNotAuthorized = errors.New("party not authorized for operation")

	// ErrDuplicatePayment means a payment is already recorded for the same
	// calendar month as the requested date.
	ErrDuplicatePayment = errors.New("payment already recorded for this calendar month")

	// ErrNonAdvancingDate means the requested payment date is not strictly
	// after the last recorded payment date.
	ErrNonAdvancingDate = errors.New("payment date not after last payment date")

	// ErrInvalidContractFields covers landlord == tenant and empty bank
	// routing fields, caught at contract creation time.
	ErrInvalidContractFields = errors.New("invalid contract fields")

	// ErrProposalExists means the landlord already has an active proposal
	// out to the same tenant.
	ErrProposalExists = errors.New("active proposal already exists for tenant")
)
