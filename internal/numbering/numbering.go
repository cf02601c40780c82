// Package numbering implements the per-office daily sequence (C3): a
// small interface generalized from the corpus's pluggable ticket-number
// generator family, specialized to wrap-at-99 and backed by whichever
// CounterStore the store driver provides.
package numbering

import (
	"context"
	"sync"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/clock"
	"github.com/qoffice/dispatcher/internal/models"
	"github.com/qoffice/dispatcher/internal/store"
)

const maxNumber = 99

// CounterStore returns the highest ticket number assigned to office
// during the given day, or 0 if none. Implementations are expected to
// source this from the Ticket Store Gateway's (office, queuedAt) index.
type CounterStore interface {
	MaxNumberToday(ctx context.Context, office models.Office) (int, error)
}

// StoreCounter adapts a Tickets gateway and a Clock into a CounterStore
// by scanning today's tickets for the given office.
type StoreCounter struct {
	tickets store.Tickets
	clock   *clock.Clock
}

func NewStoreCounter(tickets store.Tickets, c *clock.Clock) *StoreCounter {
	return &StoreCounter{tickets: tickets, clock: c}
}

func (sc *StoreCounter) MaxNumberToday(ctx context.Context, office models.Office) (int, error) {
	start := sc.clock.TodayStart()
	tickets, err := sc.tickets.Find(ctx, store.TicketFilter{Office: office, QueuedAtFrom: &start}, 0)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, t := range tickets {
		if t.Number > max {
			max = t.Number
		}
	}
	return max, nil
}

const maxRetries = 5

// Service assigns the next number for an office, serialized by a
// per-office mutex per §5 so the read-then-write is race-free even
// though the backing store itself is not transactional across the
// numbering read and the ticket create.
type Service struct {
	store CounterStore
	clock *clock.Clock

	mu    sync.Mutex
	locks map[models.Office]*sync.Mutex
}

func New(store CounterStore, c *clock.Clock) *Service {
	return &Service{store: store, clock: c, locks: make(map[models.Office]*sync.Mutex)}
}

func (s *Service) officeLock(office models.Office) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[office]
	if !ok {
		l = &sync.Mutex{}
		s.locks[office] = l
	}
	return l
}

// Next returns the next number for office: last+1, wrapping 99->1.
// Reads and the caller's subsequent create must happen while holding
// the same per-office lock; Next itself holds it only for its own
// read, so callers that need atomicity across read+create should use
// WithOfficeLock.
func (s *Service) Next(ctx context.Context, office models.Office) (int, error) {
	lock := s.officeLock(office)
	lock.Lock()
	defer lock.Unlock()
	return s.nextLocked(ctx, office)
}

func (s *Service) nextLocked(ctx context.Context, office models.Office) (int, error) {
	last, err := s.store.MaxNumberToday(ctx, office)
	if err != nil {
		return 0, apperr.Wrap(err)
	}
	if last <= 0 {
		return 1, nil
	}
	if last >= maxNumber {
		return 1, nil
	}
	return last + 1, nil
}

// WithOfficeLock runs fn while holding office's numbering lock, so a
// caller can assign a number and persist the ticket atomically with
// respect to other admits on the same office. fn receives a Next-like
// closure bound to the already-held lock.
func (s *Service) WithOfficeLock(ctx context.Context, office models.Office, fn func(next func() (int, error)) error) error {
	lock := s.officeLock(office)
	lock.Lock()
	defer lock.Unlock()

	attempt := 0
	next := func() (int, error) {
		attempt++
		if attempt > maxRetries {
			return 0, apperr.NewConflict("numbering: exceeded retry bound")
		}
		return s.nextLocked(ctx, office)
	}
	return fn(next)
}
