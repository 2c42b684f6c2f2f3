package services

import (
	"fmt"

	"github.com/leaselane/backend/internal/models"
)

// Op names one contract operation for authorization purposes.
type Op string

const (
	OpInvite     Op = "Invite"
	OpInspect    Op = "Inspect"
	OpAccept     Op = "Accept"
	OpReject     Op = "Reject"
	OpGetRentDue Op = "GetRentDue"
	OpPayRent    Op = "PayRent"
)

// ContractAuthority decides whether a party may invoke an operation on a
// contract instance. The check is pure and runs before every operation; a
// denial is a local reject with no mutation.
type ContractAuthority struct{}

func NewContractAuthority() *ContractAuthority {
	return &ContractAuthority{}
}

func (a *ContractAuthority) Authorize(party models.Party, op Op, c models.Contract) error {
	permitted := false

	switch v := c.(type) {
	case models.RentalProposal:
		switch op {
		case OpInvite:
			permitted = party == v.Landlord
		case OpInspect, OpAccept, OpReject:
			permitted = party == v.Tenant
		}
	case models.RentalAgreement:
		if op == OpInspect {
			permitted = party == v.Tenant
		}
	case models.PaymentLedgerEntry:
		// The landlord remains signatory on every version (bank routing
		// cannot be altered unilaterally), but only the tenant initiates
		// payment operations.
		if op == OpGetRentDue || op == OpPayRent {
			permitted = party == v.Tenant
		}
	}

	if !permitted {
		return fmt.Errorf("%w: %s may not %s %s", ErrNotAuthorized, party, op, c.Kind())
	}
	return nil
}
