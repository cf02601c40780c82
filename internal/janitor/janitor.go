// Package janitor implements C8: daily rollover of stale waiting/
// skipped tickets to no-show, run once after local midnight and once
// at startup, plus the 24-hour "Gone" freshness check used by lookups.
// The scheduling harness (named jobs, last-run bookkeeping, panic
// containment) is adapted from the corpus's cron-backed scheduler
// service, generalized to run over robfig/cron rather than driving a
// single hand-rolled timer.
package janitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/qoffice/dispatcher/internal/clock"
	"github.com/qoffice/dispatcher/internal/models"
	"github.com/qoffice/dispatcher/internal/store"
)

const goneAfter = 24 * time.Hour

// Janitor runs the daily rollover and exposes the freshness check.
type Janitor struct {
	tickets store.Tickets
	clock   *clock.Clock
	offices []models.Office
	logger  *log.Logger

	cron *cron.Cron

	mu          sync.Mutex
	lastRunAt   time.Time
	lastStatus  string
	lastErr     error
}

// New builds a Janitor for the given offices.
func New(tickets store.Tickets, c *clock.Clock, offices []models.Office, logger *log.Logger) *Janitor {
	if logger == nil {
		logger = log.Default()
	}
	return &Janitor{
		tickets: tickets,
		clock:   c,
		offices: offices,
		logger:  logger,
		cron:    cron.New(cron.WithLocation(c.Location())),
	}
}

// Start schedules the rollover job for 00:05 local time every day,
// runs it once immediately (startup pass), and starts the cron loop.
// Callers should call Stop on shutdown.
func (j *Janitor) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc("5 0 * * *", func() { j.runRollover(ctx) })
	if err != nil {
		return err
	}
	j.cron.Start()
	go j.runRollover(ctx)
	return nil
}

// Stop halts the cron loop, waiting for any in-flight run to finish.
func (j *Janitor) Stop() {
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		j.logger.Printf("janitor: timed out waiting for rollover to finish")
	}
}

func (j *Janitor) runRollover(ctx context.Context) {
	start := time.Now()
	status := "success"

	defer func() {
		if r := recover(); r != nil {
			j.logger.Printf("janitor: rollover panic: %v", r)
			status = "failed"
		}
		j.mu.Lock()
		j.lastRunAt = start
		j.lastStatus = status
		j.mu.Unlock()
	}()

	total := 0
	for _, office := range j.offices {
		n, err := j.Rollover(ctx, office)
		if err != nil {
			status = "failed"
			j.recordErr(err)
			j.logger.Printf("janitor: rollover failed for office %s: %v", office, err)
			continue
		}
		total += n
	}
	j.logger.Printf("janitor: rollover complete, %d ticket(s) marked no-show in %s", total, time.Since(start))
}

func (j *Janitor) recordErr(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastErr = err
}

// Rollover implements §4.8 for one office: waiting tickets whose
// queuedAt, and skipped tickets whose skippedAt (treating null as
// stale), predates today's start become no-show. No events are
// emitted. Returns the number of tickets changed.
func (j *Janitor) Rollover(ctx context.Context, office models.Office) (int, error) {
	todayStart := j.clock.TodayStart()

	waitingN, err := j.tickets.UpdateMany(ctx, store.TicketFilter{
		Office: office, Status: []models.TicketStatus{models.StatusWaiting},
	}, func(t *models.Ticket) error {
		if !t.QueuedAt.Before(todayStart) {
			return store.ErrSkip
		}
		t.Status = models.StatusNoShow
		return nil
	})
	if err != nil {
		return waitingN, err
	}

	skippedN, err := j.tickets.UpdateMany(ctx, store.TicketFilter{
		Office: office, Status: []models.TicketStatus{models.StatusSkipped},
	}, func(t *models.Ticket) error {
		if t.SkippedAt != nil && !t.SkippedAt.Before(todayStart) {
			return store.ErrSkip
		}
		t.Status = models.StatusNoShow
		return nil
	})
	if err != nil {
		return waitingN + skippedN, err
	}

	return waitingN + skippedN, nil
}

// CheckFresh returns false when t is older than the 24-hour lookup
// window (§4.8, §8 B3); the Lookup API returns Gone in that case.
func (j *Janitor) CheckFresh(t *models.Ticket) bool {
	return j.clock.Now().Sub(t.QueuedAt) <= goneAfter
}
