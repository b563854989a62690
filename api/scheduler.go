/*
scheduler.go - Calendar-triggered accrual scheduler

PURPOSE:
  Owns the two scheduled balance credits as explicit background tasks:
  - Annual contract accrual: Jan 1, 00:45
  - Per-user anniversary accrual: daily, 03:00
  Both instants are civil times in a fixed timezone (Europe/Sofia by
  default). The scheduler runs concurrently with request-driven traffic;
  the shared balance invariants are kept by the user store's version
  checks, not by pausing either side.

DESIGN:
  - One goroutine, two timers armed at the next trigger instants
  - Timers re-armed after every run, so DST shifts are absorbed by
    recomputing the next civil occurrence
  - RunAnnualNow for operational recovery when the scheduled run was
    missed (process not running at the trigger instant). Re-running
    within the same year re-applies the credit; at most once per year.

USAGE:
  sched := NewAccrualScheduler(accrual, loc)
  sched.Start()
  // ... later
  sched.Stop()

SEE ALSO:
  - leave/accrual.go: the batch jobs themselves
  - handlers.go: TriggerAnnualAccrual (manual trigger endpoint)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/amiltenov/DigiLeave/leave"
)

const (
	annualHour      = 0
	annualMinute    = 45
	anniversaryHour = 3
)

// AccrualScheduler fires the accrual batches at their calendar instants.
type AccrualScheduler struct {
	Accrual  *leave.Accrual
	Location *time.Location
	Enabled  bool

	now     func() time.Time
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewAccrualScheduler creates a scheduler firing in the given timezone.
func NewAccrualScheduler(accrual *leave.Accrual, loc *time.Location) *AccrualScheduler {
	return &AccrualScheduler{
		Accrual:  accrual,
		Location: loc,
		Enabled:  true,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *AccrualScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if s.started {
		return
	}
	s.started = true
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started (timezone %s, annual %s, anniversary %s)",
		s.Location, s.NextAnnual().Format(time.RFC3339), s.NextAnniversary().Format(time.RFC3339))
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (s *AccrualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	close(s.stop)
	s.wg.Wait()
	s.started = false
	log.Println("[Scheduler] Stopped")
}

func (s *AccrualScheduler) run() {
	defer s.wg.Done()

	annual := time.NewTimer(time.Until(s.NextAnnual()))
	anniversary := time.NewTimer(time.Until(s.NextAnniversary()))
	defer annual.Stop()
	defer anniversary.Stop()

	for {
		select {
		case <-annual.C:
			log.Println("[Scheduler] Annual contract accrual triggered")
			if err := s.Accrual.RunAnnual(context.Background()); err != nil {
				log.Printf("[Scheduler] Annual accrual error: %v", err)
			}
			annual.Reset(time.Until(s.NextAnnual()))

		case <-anniversary.C:
			log.Println("[Scheduler] Anniversary accrual triggered")
			if err := s.Accrual.RunAnniversary(context.Background()); err != nil {
				log.Printf("[Scheduler] Anniversary accrual error: %v", err)
			}
			anniversary.Reset(time.Until(s.NextAnniversary()))

		case <-s.stop:
			return
		}
	}
}

// RunAnnualNow triggers the annual job immediately (operator recovery).
func (s *AccrualScheduler) RunAnnualNow(ctx context.Context) error {
	return s.Accrual.RunAnnual(ctx)
}

// NextAnnual returns the next Jan 1 00:45 in the scheduler's timezone.
func (s *AccrualScheduler) NextAnnual() time.Time {
	now := s.now().In(s.Location)
	next := time.Date(now.Year(), time.January, 1, annualHour, annualMinute, 0, 0, s.Location)
	if !next.After(now) {
		next = time.Date(now.Year()+1, time.January, 1, annualHour, annualMinute, 0, 0, s.Location)
	}
	return next
}

// NextAnniversary returns the next daily 03:00 in the scheduler's
// timezone.
func (s *AccrualScheduler) NextAnniversary() time.Time {
	now := s.now().In(s.Location)
	next := time.Date(now.Year(), now.Month(), now.Day(), anniversaryHour, 0, 0, 0, s.Location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
