// Package windows implements the Window State Machine (C5): the
// per-window isOpen/isServing flags and their compare-and-swap
// transitions. Mutation commands themselves (next, transfer, ...) live
// in the dispatcher; this package owns only the flag toggles and the
// per-window lock used to serialize all window-scoped commands.
package windows

import (
	"context"
	"sort"
	"sync"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/models"
	"github.com/qoffice/dispatcher/internal/store"
)

// Service toggles window flags and hands out per-window locks.
type Service struct {
	windows store.Windows

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(windows store.Windows) *Service {
	return &Service{windows: windows, locks: make(map[string]*sync.Mutex)}
}

// Lock returns the mutex serializing all commands against windowID.
// Callers must always acquire multiple window locks in ascending
// windowID order (transfer) to avoid deadlock.
func (s *Service) Lock(windowID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[windowID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[windowID] = l
	}
	return l
}

// LockPair returns both windows' locks in ascending id order, already
// acquired; callers must defer unlock in the returned order.
func (s *Service) LockPair(a, b string) (first, second *sync.Mutex) {
	la, lb := s.Lock(a), s.Lock(b)
	if a <= b {
		la.Lock()
		lb.Lock()
		return la, lb
	}
	lb.Lock()
	la.Lock()
	return lb, la
}

func (s *Service) Get(ctx context.Context, id string) (*models.Window, error) {
	w, err := s.windows.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return w, nil
}

// SetFlags toggles isOpen/isServing flags via CAS; pass nil to leave
// a flag unchanged.
func (s *Service) SetFlags(ctx context.Context, id string, isOpen, isServing *bool) (*models.Window, error) {
	w, err := s.windows.CAS(ctx, id, func(w *models.Window) error {
		if isOpen != nil {
			w.IsOpen = *isOpen
		}
		if isServing != nil {
			w.IsServing = *isServing
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return w, nil
}

// Pause sets isServing=false. Returns the previous value for L2.
func (s *Service) Pause(ctx context.Context, id string) (previous bool, err error) {
	var prev bool
	_, err = s.windows.CAS(ctx, id, func(w *models.Window) error {
		prev = w.IsServing
		w.IsServing = false
		return nil
	})
	if err != nil {
		return false, apperr.Wrap(err)
	}
	return prev, nil
}

// Resume sets isServing=true.
func (s *Service) Resume(ctx context.Context, id string) error {
	_, err := s.windows.CAS(ctx, id, func(w *models.Window) error {
		w.IsServing = true
		return nil
	})
	if err != nil {
		return apperr.Wrap(err)
	}
	return nil
}

// List returns an office's windows sorted by name.
func (s *Service) List(ctx context.Context, office models.Office) ([]*models.Window, error) {
	all, err := s.windows.List(ctx, office)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}
