package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/amiltenov/DigiLeave/leave"
	"github.com/amiltenov/DigiLeave/store/memory"
)

func newAccrual(store *memory.Store, today time.Time) *leave.Accrual {
	a := leave.NewAccrual(store)
	a.Now = func() time.Time { return today }
	return a
}

// =============================================================================
// ANNUAL RUN - End-to-end scenario 4
// =============================================================================

func TestRunAnnual_CapsAtMaxBalance(t *testing.T) {
	// GIVEN: balance 55, contract 10, no service bonus
	// WHEN: the annual run fires
	// THEN: balance is 60, not 65

	store := memory.New()
	seedUser(t, store, &leave.User{
		ID: "u1", Email: "u1@x", Role: leave.RoleUser,
		AvailableLeaveDays: 55, ContractLeaveDays: 10,
		WorkingSince: date(2025, time.March, 1),
	})
	a := newAccrual(store, date(2026, time.January, 1))

	if err := a.RunAnnual(context.Background()); err != nil {
		t.Fatalf("annual run: %v", err)
	}
	if got := balanceOf(t, store, "u1"); got != leave.MaxBalance {
		t.Errorf("expected balance capped at %d, got %d", leave.MaxBalance, got)
	}
}

func TestRunAnnual_AddsServiceBonus(t *testing.T) {
	// Hired 2020, running on Jan 1 2026: five completed years, so the
	// credit is contract 20 plus bonus 5.

	store := memory.New()
	seedUser(t, store, &leave.User{
		ID: "u1", Email: "u1@x", Role: leave.RoleUser,
		AvailableLeaveDays: 10, ContractLeaveDays: 20,
		WorkingSince: date(2020, time.March, 1),
	})
	a := newAccrual(store, date(2026, time.January, 1))

	if err := a.RunAnnual(context.Background()); err != nil {
		t.Fatalf("annual run: %v", err)
	}
	if got := balanceOf(t, store, "u1"); got != 35 {
		t.Errorf("expected 10+20+5=35, got %d", got)
	}
}

func TestRunAnnual_FirstYearNoBonus(t *testing.T) {
	store := memory.New()
	seedUser(t, store, &leave.User{
		ID: "u1", Email: "u1@x", Role: leave.RoleUser,
		AvailableLeaveDays: 0, ContractLeaveDays: 20,
		WorkingSince: date(2025, time.September, 1),
	})
	a := newAccrual(store, date(2026, time.January, 1))

	if err := a.RunAnnual(context.Background()); err != nil {
		t.Fatalf("annual run: %v", err)
	}
	if got := balanceOf(t, store, "u1"); got != 20 {
		t.Errorf("expected contract amount only, got %d", got)
	}
}

func TestRunAnnual_CalendarYearsPolicy(t *testing.T) {
	// The alternative policy counts calendar-year difference without the
	// minus-one adjustment.

	store := memory.New()
	seedUser(t, store, &leave.User{
		ID: "u1", Email: "u1@x", Role: leave.RoleUser,
		AvailableLeaveDays: 0, ContractLeaveDays: 20,
		WorkingSince: date(2024, time.September, 1),
	})
	a := newAccrual(store, date(2026, time.January, 1))
	a.ServicePolicy = leave.CalendarYears

	if err := a.RunAnnual(context.Background()); err != nil {
		t.Fatalf("annual run: %v", err)
	}
	if got := balanceOf(t, store, "u1"); got != 22 {
		t.Errorf("expected 20+2=22 under CalendarYears, got %d", got)
	}
}

// staleListStore poisons one user's version token on the way out of
// ListUsers so the batch save conflicts on that record alone.
type staleListStore struct {
	*memory.Store
	staleID string
}

func (s *staleListStore) ListUsers(ctx context.Context) ([]*leave.User, error) {
	all, err := s.Store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range all {
		if u.ID == s.staleID {
			u.Version--
		}
	}
	return all, nil
}

func TestRunAnnual_ContinuesPastBadRecord(t *testing.T) {
	// GIVEN: three users, the middle one will fail its save
	// WHEN: the annual run fires
	// THEN: the other two are credited and the error is reported

	store := memory.New()
	for _, id := range []string{"u1", "u2", "u3"} {
		seedUser(t, store, &leave.User{
			ID: id, Email: id + "@x", Role: leave.RoleUser,
			AvailableLeaveDays: 5, ContractLeaveDays: 10,
			WorkingSince: date(2026, time.January, 1),
		})
	}
	a := leave.NewAccrual(&staleListStore{Store: store, staleID: "u2"})
	a.Now = func() time.Time { return date(2026, time.January, 1) }

	err := a.RunAnnual(context.Background())
	if err == nil {
		t.Fatal("expected the batch to report the failed record")
	}

	if got := balanceOf(t, store, "u1"); got != 15 {
		t.Errorf("u1 should be credited, got %d", got)
	}
	if got := balanceOf(t, store, "u3"); got != 15 {
		t.Errorf("u3 should be credited despite u2 failing, got %d", got)
	}
	if got := balanceOf(t, store, "u2"); got != 5 {
		t.Errorf("u2 save should have conflicted, got %d", got)
	}
}

// =============================================================================
// ANNIVERSARY RUN
// =============================================================================

func TestRunAnniversary_CreditsMatchesOnly(t *testing.T) {
	store := memory.New()
	seedUser(t, store, &leave.User{
		ID: "hit", Email: "hit@x", Role: leave.RoleUser,
		AvailableLeaveDays: 10, WorkingSince: date(2020, time.July, 14),
	})
	seedUser(t, store, &leave.User{
		ID: "miss", Email: "miss@x", Role: leave.RoleUser,
		AvailableLeaveDays: 10, WorkingSince: date(2020, time.July, 15),
	})
	a := newAccrual(store, date(2025, time.July, 14))

	if err := a.RunAnniversary(context.Background()); err != nil {
		t.Fatalf("anniversary run: %v", err)
	}
	if got := balanceOf(t, store, "hit"); got != 11 {
		t.Errorf("anniversary user should gain one day, got %d", got)
	}
	if got := balanceOf(t, store, "miss"); got != 10 {
		t.Errorf("non-anniversary user must be untouched, got %d", got)
	}
}

func TestRunAnniversary_CapsAtMaxBalance(t *testing.T) {
	store := memory.New()
	seedUser(t, store, &leave.User{
		ID: "u1", Email: "u1@x", Role: leave.RoleUser,
		AvailableLeaveDays: leave.MaxBalance, WorkingSince: date(2020, time.July, 14),
	})
	a := newAccrual(store, date(2025, time.July, 14))

	if err := a.RunAnniversary(context.Background()); err != nil {
		t.Fatalf("anniversary run: %v", err)
	}
	if got := balanceOf(t, store, "u1"); got != leave.MaxBalance {
		t.Errorf("balance must stay at the cap, got %d", got)
	}
}

func TestRunAnniversary_Feb29AnchorInNonLeapYear(t *testing.T) {
	store := memory.New()
	seedUser(t, store, &leave.User{
		ID: "u1", Email: "u1@x", Role: leave.RoleUser,
		AvailableLeaveDays: 10, WorkingSince: date(2020, time.February, 29),
	})

	// Feb 28 of a non-leap year credits the Feb 29 hire.
	a := newAccrual(store, date(2025, time.February, 28))
	if err := a.RunAnniversary(context.Background()); err != nil {
		t.Fatalf("anniversary run: %v", err)
	}
	if got := balanceOf(t, store, "u1"); got != 11 {
		t.Errorf("Feb 29 hire should be credited on Feb 28, got %d", got)
	}

	// Mar 1 does not.
	a = newAccrual(store, date(2025, time.March, 1))
	if err := a.RunAnniversary(context.Background()); err != nil {
		t.Fatalf("anniversary run: %v", err)
	}
	if got := balanceOf(t, store, "u1"); got != 11 {
		t.Errorf("Mar 1 must not credit again, got %d", got)
	}
}

func TestRunAnniversary_NoMatchesNoWrites(t *testing.T) {
	store := memory.New()
	seedUser(t, store, &leave.User{
		ID: "u1", Email: "u1@x", Role: leave.RoleUser,
		AvailableLeaveDays: 10, WorkingSince: date(2020, time.July, 15),
	})
	a := newAccrual(store, date(2025, time.July, 14))

	if err := a.RunAnniversary(context.Background()); err != nil {
		t.Fatalf("anniversary run: %v", err)
	}
	u, _ := store.GetUser(context.Background(), "u1")
	if u.Version != 1 {
		t.Errorf("no-match run must not write, version went to %d", u.Version)
	}
}
