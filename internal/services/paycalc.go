package services

import (
	"time"

	"github.com/leaselane/backend/internal/models"
)

// graceDayOfMonth: payments made on or before this day of the month do not
// incur the current month's late penalty.
const graceDayOfMonth = 5

// PaymentDue is the amount owed for one PayRent, in minor units.
type PaymentDue struct {
	Rent    int64 `json:"rent"`
	Penalty int64 `json:"penalty"`
}

// ComputeDue derives rent and penalty owed between the last recorded payment
// date and newDate under terms. It is pure: identical inputs always yield
// identical output.
//
// Months elapsed is a calendar-field subtraction of (year, month) pairs and
// deliberately ignores day-of-month, so Jan 31 -> Feb 1 counts as one month.
// It also does not check newDate against terms.StartDate; only the ledger's
// sentinel lastPaymentDate guards payments before lease start.
func ComputeDue(newDate, oldDate time.Time, terms models.RentalTerms) (*PaymentDue, error) {
	nd := dateOnly(newDate)
	od := dateOnly(oldDate)

	daysPassed := int(nd.Sub(od).Hours() / 24)
	if daysPassed <= 0 {
		return nil, ErrNonAdvancingDate
	}

	// At most one payment per calendar month, regardless of day-of-month.
	if nd.Year() == od.Year() && nd.Month() == od.Month() {
		return nil, ErrDuplicatePayment
	}

	monthsElapsed := 12*(nd.Year()-od.Year()) + int(nd.Month()) - int(od.Month())
	rent := int64(monthsElapsed) * terms.RentAmount

	penaltyMonths := monthsElapsed
	if nd.Day() <= graceDayOfMonth {
		penaltyMonths--
	}
	penalty := int64(penaltyMonths) * terms.RentAmount * terms.LatePenaltyPercent / 100

	return &PaymentDue{Rent: rent, Penalty: penalty}, nil
}

// SentinelLastPaymentDate is the lastPaymentDate written into the initial
// ledger entry at Accept: one calendar month before lease start, so the
// first in-month payment owes exactly one month's rent.
func SentinelLastPaymentDate(terms models.RentalTerms) time.Time {
	return dateOnly(terms.StartDate).AddDate(0, -1, 0)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
