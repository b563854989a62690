/*
ledger.go - Balance arithmetic over a user's leave days

PURPOSE:
  Pure functions, no I/O. Everything that changes a balance goes through
  here: approval deductions (lifecycle.go) and scheduled credits
  (accrual.go).

KEY RULES:
  - Deduct subtracts without a floor. An approval may push a balance
    negative; that is the recorded system behavior, and Covers() exists
    for callers who want to check first.
  - CreditCapped never raises a balance above the cap (MaxBalance).
  - YearsOfService has two policies behind one switch. CompletedYears is
    canonical; CalendarYears is the documented alternative.

SEE ALSO:
  - accrual.go: applies CreditCapped across all users
  - lifecycle.go: applies Deduct on approval
*/
package leave

import "time"

// =============================================================================
// BALANCE TRANSITIONS
// =============================================================================

// Deduct subtracts amount days from balance. No floor: the result may be
// negative, matching the approval path which deducts unconditionally.
func Deduct(balance, amount int) int {
	return balance - amount
}

// Covers reports whether balance can absorb amount without going negative.
// The lifecycle does NOT call this before deducting; it is the opt-in
// predicate for callers that want stricter behavior.
func Covers(balance, amount int) bool {
	return balance >= amount
}

// CreditCapped adds amount days to balance, capped at cap.
func CreditCapped(balance, amount, cap int) int {
	if balance+amount > cap {
		return cap
	}
	return balance + amount
}

// =============================================================================
// YEARS OF SERVICE - Two candidate policies behind one switch
// =============================================================================

// ServiceYearPolicy selects how whole years of service are counted for the
// annual accrual bonus.
type ServiceYearPolicy int

const (
	// CompletedYears counts 0 in the hire year and year-difference minus
	// one afterwards. Canonical: it is the later of the two formulas in
	// the system's history.
	CompletedYears ServiceYearPolicy = iota

	// CalendarYears counts the plain year difference. Superseded
	// alternative, kept selectable pending product sign-off.
	CalendarYears
)

// YearsOfService returns the whole years between workingSince and today
// under the given policy. Never negative.
func YearsOfService(workingSince, today time.Time, policy ServiceYearPolicy) int {
	diff := today.Year() - workingSince.Year()
	if diff <= 0 {
		return 0
	}
	switch policy {
	case CalendarYears:
		return diff
	default:
		return diff - 1
	}
}

// =============================================================================
// ANNIVERSARY MATCHING
// =============================================================================

// IsAnniversary reports whether today is the month/day anniversary of
// anchor. A Feb-29 anchor matches Feb-28 in non-leap years and matches no
// other day.
func IsAnniversary(anchor, today time.Time) bool {
	if anchor.IsZero() {
		return false
	}
	if anchor.Month() == today.Month() && anchor.Day() == today.Day() {
		return true
	}
	return anchor.Month() == time.February && anchor.Day() == 29 &&
		!isLeapYear(today.Year()) &&
		today.Month() == time.February && today.Day() == 28
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
