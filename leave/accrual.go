/*
accrual.go - Scheduled balance replenishment

PURPOSE:
  Two batch jobs share the ledger's invariants with the live approval
  path:

  Annual (Jan 1): every user gets contractLeaveDays plus a service-year
  bonus, capped at MaxBalance. An older revision of this job credited the
  contract amount alone; that variant is superseded and must not come
  back.

  Anniversary (daily): users whose workingSince month/day is today get
  one day, capped. A Feb-29 hire anniversary lands on Feb-28 in non-leap
  years.

BATCH SEMANTICS:
  Read all users, compute, write back as one batch. Best effort: a save
  failure on one user is logged and does not block the rest, and there is
  no partial-failure recovery. Neither job is idempotent - re-running the
  annual job in the same year re-applies the credit - so the operator
  trigger is "at most once per year", not naturally safe.

SEE ALSO:
  - ledger.go: CreditCapped, YearsOfService, IsAnniversary
  - api/scheduler.go: the calendar trigger that owns these jobs
*/
package leave

import (
	"context"
	"log"
	"time"
)

// Accrual runs the scheduled balance credits across all users.
type Accrual struct {
	Users UserStore

	// ServicePolicy selects the service-year formula for the annual
	// bonus. Zero value is the canonical CompletedYears.
	ServicePolicy ServiceYearPolicy

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func NewAccrual(users UserStore) *Accrual {
	return &Accrual{Users: users, Now: time.Now}
}

// RunAnnual applies the yearly contract credit to every user:
// min(balance + contractDays + serviceBonus, MaxBalance).
func (a *Accrual) RunAnnual(ctx context.Context) error {
	today := a.Now()

	all, err := a.Users.ListUsers(ctx)
	if err != nil {
		return err
	}

	for _, u := range all {
		bonus := YearsOfService(u.WorkingSince, today, a.ServicePolicy)
		u.AvailableLeaveDays = CreditCapped(u.AvailableLeaveDays, u.ContractLeaveDays+bonus, MaxBalance)
	}

	if err := a.Users.SaveUsers(ctx, all); err != nil {
		log.Printf("[Accrual] annual run finished with errors: %v", err)
		return err
	}
	log.Printf("[Accrual] annual run credited %d users", len(all))
	return nil
}

// RunAnniversary credits one day to every user whose work anniversary is
// today.
func (a *Accrual) RunAnniversary(ctx context.Context) error {
	today := a.Now()

	all, err := a.Users.ListUsers(ctx)
	if err != nil {
		return err
	}

	var matched []*User
	for _, u := range all {
		if !IsAnniversary(u.WorkingSince, today) {
			continue
		}
		u.AvailableLeaveDays = CreditCapped(u.AvailableLeaveDays, 1, MaxBalance)
		matched = append(matched, u)
	}

	if len(matched) == 0 {
		return nil
	}

	if err := a.Users.SaveUsers(ctx, matched); err != nil {
		log.Printf("[Accrual] anniversary run finished with errors: %v", err)
		return err
	}
	log.Printf("[Accrual] anniversary run credited %d users", len(matched))
	return nil
}
