// Package memory is the default Ticket Store Gateway backend: a
// sync.RWMutex-guarded set of maps, adapted from the corpus's in-memory
// repository pattern and extended with optimistic compare-and-swap.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/models"
	"github.com/qoffice/dispatcher/internal/store"
)

const maxCASRetries = 5
const defaultFindLimit = 200

// Store is the in-memory Store implementation.
type Store struct {
	tickets  *ticketStore
	services *serviceStore
	windows  *windowStore
	forms    *formStore
	docreqs  *docRequestStore
}

// New builds an empty in-memory store.
func New() *Store {
	return &Store{
		tickets:  &ticketStore{byID: make(map[string]*models.Ticket)},
		services: &serviceStore{byID: make(map[string]*models.Service)},
		windows:  &windowStore{byID: make(map[string]*models.Window)},
		forms:    &formStore{byID: make(map[string]*models.CustomerForm)},
		docreqs:  &docRequestStore{byTxn: make(map[string]*models.DocumentRequest)},
	}
}

func (s *Store) Tickets() store.Tickets                     { return s.tickets }
func (s *Store) Services() store.Services                   { return s.services }
func (s *Store) Windows() store.Windows                     { return s.windows }
func (s *Store) Forms() store.Forms                         { return s.forms }
func (s *Store) DocumentRequests() store.DocumentRequests    { return s.docreqs }

// SeedServices and SeedWindows let callers (boot wiring, tests) load
// fixed reference data without going through CAS.
func (s *Store) SeedServices(svcs ...*models.Service) {
	s.services.mu.Lock()
	defer s.services.mu.Unlock()
	for _, sv := range svcs {
		s.services.byID[sv.ID] = sv
	}
}

func (s *Store) SeedWindows(wins ...*models.Window) {
	s.windows.mu.Lock()
	defer s.windows.mu.Unlock()
	for _, w := range wins {
		s.windows.byID[w.ID] = w
	}
}

// ---- tickets ----

type ticketStore struct {
	mu   sync.RWMutex
	byID map[string]*models.Ticket
}

func (t *ticketStore) Create(ctx context.Context, tk *models.Ticket) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tk.TransactionNo != "" {
		for _, existing := range t.byID {
			if existing.TransactionNo == tk.TransactionNo {
				return apperr.NewConflict("transactionNo already in use")
			}
		}
	}
	tk.Version = 1
	t.byID[tk.ID] = tk.Clone()
	return nil
}

func (t *ticketStore) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tk, ok := t.byID[id]
	if !ok {
		return nil, apperr.NewNotFound("ticket not found")
	}
	return tk.Clone(), nil
}

func matches(tk *models.Ticket, f store.TicketFilter) bool {
	if f.Office != "" && tk.Office != f.Office {
		return false
	}
	if f.WindowID != "" && tk.WindowID != f.WindowID {
		return false
	}
	if len(f.Status) > 0 {
		ok := false
		for _, st := range f.Status {
			if tk.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.ServiceIDs != nil && !f.ServiceIDs[tk.ServiceID] {
		return false
	}
	if f.Priority != nil && tk.Priority != *f.Priority {
		return false
	}
	if f.CurrentlyServing != nil && tk.CurrentlyServing != *f.CurrentlyServing {
		return false
	}
	if f.QueuedAtFrom != nil && tk.QueuedAt.Before(*f.QueuedAtFrom) {
		return false
	}
	if f.CompletedAtFrom != nil {
		if tk.CompletedAt == nil || tk.CompletedAt.Before(*f.CompletedAtFrom) {
			return false
		}
	}
	if f.TransactionNo != "" && tk.TransactionNo != f.TransactionNo {
		return false
	}
	return true
}

func (t *ticketStore) Find(ctx context.Context, filter store.TicketFilter, limit int) ([]*models.Ticket, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*models.Ticket
	for _, tk := range t.byID {
		if matches(tk, filter) {
			out = append(out, tk.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueuedAt.Before(out[j].QueuedAt) })
	if limit <= 0 {
		limit = defaultFindLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *ticketStore) CAS(ctx context.Context, id string, mutate func(*models.Ticket) error) (*models.Ticket, error) {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		t.mu.Lock()
		cur, ok := t.byID[id]
		if !ok {
			t.mu.Unlock()
			return nil, apperr.NewNotFound("ticket not found")
		}
		working := cur.Clone()
		startVersion := working.Version
		if err := mutate(working); err != nil {
			t.mu.Unlock()
			return nil, err
		}
		if t.byID[id].Version != startVersion {
			t.mu.Unlock()
			continue
		}
		working.Version = startVersion + 1
		t.byID[id] = working.Clone()
		t.mu.Unlock()
		return working, nil
	}
	return nil, apperr.NewConflict("ticket update conflict, retries exhausted")
}

func (t *ticketStore) UpdateMany(ctx context.Context, filter store.TicketFilter, mutate func(*models.Ticket) error) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, tk := range t.byID {
		if !matches(tk, filter) {
			continue
		}
		working := tk.Clone()
		if err := mutate(working); err != nil {
			if err == store.ErrSkip {
				continue
			}
			return n, err
		}
		working.Version++
		t.byID[id] = working
		n++
	}
	return n, nil
}

// ---- services ----

type serviceStore struct {
	mu   sync.RWMutex
	byID map[string]*models.Service
}

func (s *serviceStore) FindByID(ctx context.Context, id string) (*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.byID[id]
	if !ok {
		return nil, apperr.NewNotFound("service not found")
	}
	cp := *sv
	return &cp, nil
}

func (s *serviceStore) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Service, len(ids))
	for _, id := range ids {
		if sv, ok := s.byID[id]; ok {
			cp := *sv
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *serviceStore) FindByName(ctx context.Context, office models.Office, name string) (*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sv := range s.byID {
		if sv.Office == office && sv.Name == name {
			cp := *sv
			return &cp, nil
		}
	}
	return nil, apperr.NewNotFound("service not found")
}

func (s *serviceStore) List(ctx context.Context, office models.Office) ([]*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Service
	for _, sv := range s.byID {
		if sv.Office == office {
			cp := *sv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---- windows ----

type windowStore struct {
	mu   sync.RWMutex
	byID map[string]*models.Window
}

func cloneWindow(w *models.Window) *models.Window {
	cp := *w
	cp.ServiceIDs = make(map[string]bool, len(w.ServiceIDs))
	for k, v := range w.ServiceIDs {
		cp.ServiceIDs[k] = v
	}
	return &cp
}

func (s *windowStore) FindByID(ctx context.Context, id string) (*models.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.byID[id]
	if !ok {
		return nil, apperr.NewNotFound("window not found")
	}
	return cloneWindow(w), nil
}

func (s *windowStore) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Window, len(ids))
	for _, id := range ids {
		if w, ok := s.byID[id]; ok {
			out[id] = cloneWindow(w)
		}
	}
	return out, nil
}

func (s *windowStore) List(ctx context.Context, office models.Office) ([]*models.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Window
	for _, w := range s.byID {
		if w.Office == office {
			out = append(out, cloneWindow(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *windowStore) FindPriorityWindow(ctx context.Context, office models.Office) (*models.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.byID {
		if w.Office == office && w.IsPriority() {
			return cloneWindow(w), nil
		}
	}
	return nil, apperr.NewNotFound("priority window not found")
}

func (s *windowStore) CAS(ctx context.Context, id string, mutate func(*models.Window) error) (*models.Window, error) {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		s.mu.Lock()
		cur, ok := s.byID[id]
		if !ok {
			s.mu.Unlock()
			return nil, apperr.NewNotFound("window not found")
		}
		working := cloneWindow(cur)
		startVersion := working.Version
		if err := mutate(working); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		if s.byID[id].Version != startVersion {
			s.mu.Unlock()
			continue
		}
		working.Version = startVersion + 1
		s.byID[id] = cloneWindow(working)
		s.mu.Unlock()
		return working, nil
	}
	return nil, apperr.NewConflict("window update conflict, retries exhausted")
}

// ---- customer forms ----

type formStore struct {
	mu   sync.RWMutex
	byID map[string]*models.CustomerForm
}

func (f *formStore) Create(ctx context.Context, form *models.CustomerForm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[form.ID] = form
	return nil
}

func (f *formStore) FindByID(ctx context.Context, id string) (*models.CustomerForm, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	form, ok := f.byID[id]
	if !ok {
		return nil, apperr.NewNotFound("customer form not found")
	}
	cp := *form
	return &cp, nil
}

func (f *formStore) FindByIDs(ctx context.Context, ids []string) (map[string]*models.CustomerForm, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]*models.CustomerForm, len(ids))
	for _, id := range ids {
		if form, ok := f.byID[id]; ok {
			cp := *form
			out[id] = &cp
		}
	}
	return out, nil
}

// ---- document requests ----

type docRequestStore struct {
	mu    sync.RWMutex
	byTxn map[string]*models.DocumentRequest
}

func (d *docRequestStore) Create(ctx context.Context, r *models.DocumentRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byTxn[r.TransactionNo]; exists {
		return apperr.NewConflict("document request already exists")
	}
	d.byTxn[r.TransactionNo] = r
	return nil
}

func (d *docRequestStore) FindByTransactionNo(ctx context.Context, no string) (*models.DocumentRequest, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.byTxn[no]
	if !ok {
		return nil, apperr.NewNotFound("document request not found")
	}
	cp := *r
	return &cp, nil
}
