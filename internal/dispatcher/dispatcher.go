// Package dispatcher implements C6: ticket admission and the admin
// command set (next/recall/previous/skip/transfer/pause/resume/
// requeue/rating), preserving the invariants of §3 under concurrent
// callers via the per-window and per-office locks of §5.
package dispatcher

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/clock"
	"github.com/qoffice/dispatcher/internal/eventbus"
	"github.com/qoffice/dispatcher/internal/models"
	"github.com/qoffice/dispatcher/internal/numbering"
	"github.com/qoffice/dispatcher/internal/routing"
	"github.com/qoffice/dispatcher/internal/store"
	"github.com/qoffice/dispatcher/internal/windows"
)

// OfficePolicy resolves per-office configuration the dispatcher needs
// that is not itself domain state (§6.5).
type OfficePolicy interface {
	Enabled(office models.Office) bool
}

// Dispatcher coordinates C2-C5 and C7 to implement the admit and admin
// command operations of §4.6.
type Dispatcher struct {
	store    store.Store
	numbers  *numbering.Service
	router   *routing.Service
	windows  *windows.Service
	bus      *eventbus.Bus
	clock    *clock.Clock
	policy   OfficePolicy
	logger   *log.Logger
}

// New wires a Dispatcher from its collaborators.
func New(st store.Store, numbers *numbering.Service, router *routing.Service, win *windows.Service, bus *eventbus.Bus, c *clock.Clock, policy OfficePolicy, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{store: st, numbers: numbers, router: router, windows: win, bus: bus, clock: c, policy: policy, logger: logger}
}

// AdmitRequest is the input to Admit (§4.6.1).
type AdmitRequest struct {
	Office        models.Office
	ServiceName   string
	Role          models.Role
	Priority      bool
	StudentStatus models.StudentStatus
	Name          string
	Contact       string
	Email         string
	Address       string
	IDNumber      string
	TransactionNo string
	RequestItems  []string
}

// AdmitResult mirrors the admit HTTP response shape of §6.1.
type AdmitResult struct {
	TicketID      string
	Number        int
	Office        models.Office
	ServiceName   string
	TransactionNo string
	WindowName    string
	Priority      bool
}

var docClaimPattern = regexp.MustCompile(`^[A-Za-z]{2}\d{6}-\d{3}$`)

// Admit implements §4.6.1.
func (d *Dispatcher) Admit(ctx context.Context, req AdmitRequest) (*AdmitResult, error) {
	if !req.Office.Valid() {
		return nil, apperr.NewValidation("invalid office")
	}
	if d.policy != nil && !d.policy.Enabled(req.Office) {
		return nil, apperr.NewUnavailable("office disabled", nil)
	}
	if !req.Role.Valid() {
		return nil, apperr.NewValidation("invalid role")
	}

	svc, err := d.store.Services().FindByName(ctx, req.Office, req.ServiceName)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	if !svc.Active {
		return nil, apperr.NewValidation("service is not active")
	}

	switch req.ServiceName {
	case models.ServiceDocumentRequest:
		return d.admitDocumentRequest(ctx, req, svc)
	case models.ServiceDocumentClaim:
		return d.admitDocumentClaim(ctx, req, svc)
	case models.ServiceEnroll:
		return d.admitEnroll(ctx, req, svc)
	default:
		return d.admitRegular(ctx, req, svc)
	}
}

func (d *Dispatcher) admitDocumentRequest(ctx context.Context, req AdmitRequest, svc *models.Service) (*AdmitResult, error) {
	if req.Name == "" || req.Contact == "" || req.Email == "" {
		return nil, apperr.NewValidation("name, contact and email are required")
	}
	if len(req.RequestItems) == 0 {
		return nil, apperr.NewValidation("at least one request item is required")
	}
	txn := strings.ToUpper(uuid.NewString()[:8])
	dr := &models.DocumentRequest{
		TransactionNo: txn,
		Name:          req.Name,
		Contact:       req.Contact,
		Email:         req.Email,
		RequestItems:  req.RequestItems,
		Status:        models.DocRequestPending,
	}
	if err := d.store.DocumentRequests().Create(ctx, dr); err != nil {
		return nil, apperr.Wrap(err)
	}
	return &AdmitResult{Office: req.Office, ServiceName: req.ServiceName, TransactionNo: txn}, nil
}

func (d *Dispatcher) admitDocumentClaim(ctx context.Context, req AdmitRequest, svc *models.Service) (*AdmitResult, error) {
	if req.TransactionNo == "" {
		return nil, apperr.NewValidation("transactionNo is required")
	}
	txn := strings.ToUpper(req.TransactionNo)
	if !docClaimPattern.MatchString(txn) {
		return nil, apperr.NewValidation("transactionNo must match AA000000-000")
	}
	dr, err := d.store.DocumentRequests().FindByTransactionNo(ctx, txn)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	if dr.Status != models.DocRequestApproved {
		return nil, apperr.NewValidation("document request is not approved")
	}

	existing, err := d.store.Tickets().Find(ctx, store.TicketFilter{TransactionNo: txn}, 0)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	for _, t := range existing {
		switch t.Status {
		case models.StatusWaiting, models.StatusServing, models.StatusCompleted:
			return nil, apperr.NewConflict("transactionNo already has an active or completed ticket")
		}
	}

	form := &models.CustomerForm{ID: uuid.NewString(), Name: dr.Name, Contact: dr.Contact, Email: dr.Email}
	if err := d.store.Forms().Create(ctx, form); err != nil {
		return nil, apperr.Wrap(err)
	}

	return d.persistAdmit(ctx, req, svc, form.ID, txn)
}

func (d *Dispatcher) admitEnroll(ctx context.Context, req AdmitRequest, svc *models.Service) (*AdmitResult, error) {
	if !req.StudentStatus.Valid() {
		return nil, apperr.NewValidation("studentStatus is required for Enroll")
	}
	formID := ""
	if req.Name != "" || req.Contact != "" || req.Email != "" {
		form := &models.CustomerForm{ID: uuid.NewString(), Name: req.Name, Contact: req.Contact, Email: req.Email, Address: req.Address}
		if err := d.store.Forms().Create(ctx, form); err != nil {
			return nil, apperr.Wrap(err)
		}
		formID = form.ID
	}
	return d.persistAdmit(ctx, req, svc, formID, newTransactionNo())
}

func (d *Dispatcher) admitRegular(ctx context.Context, req AdmitRequest, svc *models.Service) (*AdmitResult, error) {
	if req.Name == "" || req.Contact == "" || req.Email == "" {
		return nil, apperr.NewValidation("name, contact and email are required")
	}
	idNumber := ""
	if req.Priority {
		idNumber = req.IDNumber
	}
	form := &models.CustomerForm{ID: uuid.NewString(), Name: req.Name, Contact: req.Contact, Email: req.Email, Address: req.Address, IDNumber: idNumber}
	if err := d.store.Forms().Create(ctx, form); err != nil {
		return nil, apperr.Wrap(err)
	}
	return d.persistAdmit(ctx, req, svc, form.ID, newTransactionNo())
}

func newTransactionNo() string {
	return strings.ToUpper(uuid.NewString()[:12])
}

// persistAdmit performs the number assignment, routing, and ticket
// creation shared by every admit path, then emits the admit events.
func (d *Dispatcher) persistAdmit(ctx context.Context, req AdmitRequest, svc *models.Service, formID, transactionNo string) (*AdmitResult, error) {
	win, err := d.router.Route(ctx, req.Office, svc.ID, req.Priority)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	var result *AdmitResult
	err = d.numbers.WithOfficeLock(ctx, req.Office, func(next func() (int, error)) error {
		number, err := next()
		if err != nil {
			return err
		}
		ticket := &models.Ticket{
			ID:             uuid.NewString(),
			Office:         req.Office,
			Number:         number,
			TransactionNo:  transactionNo,
			ServiceID:      svc.ID,
			WindowID:       win.ID,
			Role:           req.Role,
			StudentStatus:  req.StudentStatus,
			Priority:       req.Priority,
			CustomerFormID: formID,
			Status:         models.StatusWaiting,
			QueuedAt:       d.clock.Now(),
		}
		if createErr := d.store.Tickets().Create(ctx, ticket); createErr != nil {
			return createErr
		}
		result = &AdmitResult{
			TicketID:      ticket.ID,
			Number:        ticket.Number,
			Office:        ticket.Office,
			ServiceName:   svc.Name,
			TransactionNo: ticket.TransactionNo,
			WindowName:    win.Name,
			Priority:      ticket.Priority,
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	data := map[string]any{"ticketId": result.TicketID, "number": result.Number, "windowId": win.ID}
	d.bus.Publish(eventbus.AdminRoom(req.Office), eventbus.Event{Type: eventbus.TypeQueueAdded, Office: req.Office, WindowID: win.ID, Data: data})
	d.bus.Publish(eventbus.KioskRoom, eventbus.Event{Type: eventbus.TypeQueueAdded, Office: req.Office, WindowID: win.ID, Data: data})
	d.bus.Publish(eventbus.QueueRoom(result.TicketID), eventbus.Event{Type: eventbus.TypeQueueStatusUpdated, Office: req.Office, Data: data})

	return result, nil
}

func ptr[T any](v T) *T { return &v }

// Next implements §4.6.2.
func (d *Dispatcher) Next(ctx context.Context, windowID string, principal string) error {
	lock := d.windows.Lock(windowID)
	lock.Lock()
	defer lock.Unlock()

	win, err := d.windows.Get(ctx, windowID)
	if err != nil {
		return apperr.Wrap(err)
	}
	if !win.IsOpen || !win.IsServing {
		return apperr.NewConflict("window is not open and serving")
	}

	candidate, err := d.selectNextCandidate(ctx, win)
	if err != nil {
		return apperr.Wrap(err)
	}

	if err := d.closeCurrentlyServing(ctx, win, models.StatusCompleted); err != nil {
		return apperr.Wrap(err)
	}

	if candidate == nil {
		d.bus.Publish(eventbus.AdminRoom(win.Office), eventbus.Event{Type: eventbus.TypeNoMoreQueues, Office: win.Office, WindowID: win.ID, Data: map[string]any{}})
		return nil
	}

	now := d.clock.Now()
	updated, err := d.store.Tickets().CAS(ctx, candidate.ID, func(t *models.Ticket) error {
		t.Status = models.StatusServing
		t.CurrentlyServing = true
		t.CalledAt = &now
		t.ProcessedBy = principal
		return nil
	})
	if err != nil {
		return apperr.Wrap(err)
	}

	data := map[string]any{"ticketId": updated.ID, "number": updated.Number, "windowId": win.ID}
	d.bus.Publish(eventbus.AdminRoom(win.Office), eventbus.Event{Type: eventbus.TypeNextCalled, Office: win.Office, WindowID: win.ID, Data: data})
	d.bus.Publish(eventbus.KioskRoom, eventbus.Event{Type: eventbus.TypeNextCalled, Office: win.Office, WindowID: win.ID, Data: data})
	d.bus.Publish(eventbus.QueueRoom(updated.ID), eventbus.Event{Type: eventbus.TypeQueueStatusUpdated, Office: win.Office, Data: data})
	return nil
}

// selectNextCandidate implements the selection rule of §4.6.2 step 1,
// including the documented service-filter fallback (§9 Open Questions).
func (d *Dispatcher) selectNextCandidate(ctx context.Context, win *models.Window) (*models.Ticket, error) {
	priority := win.IsPriority()
	filter := store.TicketFilter{
		Office:     win.Office,
		WindowID:   win.ID,
		Status:     []models.TicketStatus{models.StatusWaiting},
		Priority:   &priority,
		ServiceIDs: win.ServiceIDs,
	}
	candidates, err := d.store.Tickets().Find(ctx, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}

	// Fallback: retry without the service filter. Preserved from the
	// source verbatim per §9; this admits tickets transferred in from
	// a window whose service set differs from this one's.
	fallbackFilter := store.TicketFilter{
		Office:   win.Office,
		WindowID: win.ID,
		Status:   []models.TicketStatus{models.StatusWaiting},
		Priority: &priority,
	}
	candidates, err = d.store.Tickets().Find(ctx, fallbackFilter, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}
	return nil, nil
}

func (d *Dispatcher) closeCurrentlyServing(ctx context.Context, win *models.Window, status models.TicketStatus) error {
	serving := true
	filter := store.TicketFilter{WindowID: win.ID, CurrentlyServing: &serving}
	current, err := d.store.Tickets().Find(ctx, filter, 1)
	if err != nil {
		return err
	}
	if len(current) == 0 {
		return nil
	}
	now := d.clock.Now()
	_, err = d.store.Tickets().CAS(ctx, current[0].ID, func(t *models.Ticket) error {
		t.Status = status
		t.CurrentlyServing = false
		if status == models.StatusCompleted {
			t.CompletedAt = &now
		}
		return nil
	})
	return err
}

// Recall implements §4.6.3: a pure observer (L1).
func (d *Dispatcher) Recall(ctx context.Context, windowID string) error {
	win, err := d.windows.Get(ctx, windowID)
	if err != nil {
		return apperr.Wrap(err)
	}
	serving := true
	current, err := d.store.Tickets().Find(ctx, store.TicketFilter{WindowID: win.ID, CurrentlyServing: &serving}, 1)
	if err != nil {
		return apperr.Wrap(err)
	}
	if len(current) == 0 {
		return apperr.NewNotFound("no ticket currently serving at this window")
	}
	data := map[string]any{"ticketId": current[0].ID, "number": current[0].Number, "windowId": win.ID}
	d.bus.Publish(eventbus.AdminRoom(win.Office), eventbus.Event{Type: eventbus.TypeQueueRecalled, Office: win.Office, WindowID: win.ID, Data: data})
	d.bus.Publish(eventbus.KioskRoom, eventbus.Event{Type: eventbus.TypeQueueRecalled, Office: win.Office, WindowID: win.ID, Data: data})
	return nil
}

// Previous implements §4.6.4.
func (d *Dispatcher) Previous(ctx context.Context, windowID string) error {
	lock := d.windows.Lock(windowID)
	lock.Lock()
	defer lock.Unlock()

	win, err := d.windows.Get(ctx, windowID)
	if err != nil {
		return apperr.Wrap(err)
	}

	todayStart := d.clock.TodayStart()
	prevCandidates, err := d.store.Tickets().Find(ctx, store.TicketFilter{
		WindowID: win.ID, Status: []models.TicketStatus{models.StatusCompleted}, CompletedAtFrom: &todayStart,
	}, 0)
	if err != nil {
		return apperr.Wrap(err)
	}
	if len(prevCandidates) == 0 {
		return apperr.NewNotFound("no completed ticket today at this window")
	}
	previous := prevCandidates[len(prevCandidates)-1]
	for _, t := range prevCandidates {
		if t.CompletedAt != nil && previous.CompletedAt != nil && t.CompletedAt.After(*previous.CompletedAt) {
			previous = t
		}
	}

	if err := d.revertCurrentlyServingToWaiting(ctx, win); err != nil {
		return apperr.Wrap(err)
	}

	updated, err := d.store.Tickets().CAS(ctx, previous.ID, func(t *models.Ticket) error {
		t.Status = models.StatusServing
		t.CurrentlyServing = true
		return nil
	})
	if err != nil {
		return apperr.Wrap(err)
	}

	data := map[string]any{"ticketId": updated.ID, "number": updated.Number, "windowId": win.ID}
	d.bus.Publish(eventbus.AdminRoom(win.Office), eventbus.Event{Type: eventbus.TypePreviousRecalled, Office: win.Office, WindowID: win.ID, Data: data})
	d.bus.Publish(eventbus.KioskRoom, eventbus.Event{Type: eventbus.TypePreviousRecalled, Office: win.Office, WindowID: win.ID, Data: data})
	return nil
}

func (d *Dispatcher) revertCurrentlyServingToWaiting(ctx context.Context, win *models.Window) error {
	serving := true
	current, err := d.store.Tickets().Find(ctx, store.TicketFilter{WindowID: win.ID, CurrentlyServing: &serving}, 1)
	if err != nil {
		return err
	}
	if len(current) == 0 {
		return nil
	}
	_, err = d.store.Tickets().CAS(ctx, current[0].ID, func(t *models.Ticket) error {
		t.Status = models.StatusWaiting
		t.CurrentlyServing = false
		t.CalledAt = nil
		return nil
	})
	return err
}

// Skip implements §4.6.5.
func (d *Dispatcher) Skip(ctx context.Context, windowID string, principal string) error {
	lock := d.windows.Lock(windowID)
	lock.Lock()
	defer lock.Unlock()

	win, err := d.windows.Get(ctx, windowID)
	if err != nil {
		return apperr.Wrap(err)
	}

	serving := true
	current, err := d.store.Tickets().Find(ctx, store.TicketFilter{WindowID: win.ID, CurrentlyServing: &serving}, 1)
	if err != nil {
		return apperr.Wrap(err)
	}
	var skipped *models.Ticket
	if len(current) > 0 {
		now := d.clock.Now()
		skipped, err = d.store.Tickets().CAS(ctx, current[0].ID, func(t *models.Ticket) error {
			t.Status = models.StatusSkipped
			t.CurrentlyServing = false
			t.SkippedAt = &now
			return nil
		})
		if err != nil {
			return apperr.Wrap(err)
		}
	}

	candidate, err := d.selectNextCandidate(ctx, win)
	if err != nil {
		return apperr.Wrap(err)
	}

	var nextTicket *models.Ticket
	if candidate != nil {
		now := d.clock.Now()
		nextTicket, err = d.store.Tickets().CAS(ctx, candidate.ID, func(t *models.Ticket) error {
			t.Status = models.StatusServing
			t.CurrentlyServing = true
			t.CalledAt = &now
			t.ProcessedBy = principal
			return nil
		})
		if err != nil {
			return apperr.Wrap(err)
		}
	}

	data := map[string]any{"windowId": win.ID}
	if skipped != nil {
		data["skipped"] = map[string]any{"ticketId": skipped.ID, "number": skipped.Number}
	}
	if nextTicket != nil {
		data["next"] = map[string]any{"ticketId": nextTicket.ID, "number": nextTicket.Number}
	}
	d.bus.Publish(eventbus.AdminRoom(win.Office), eventbus.Event{Type: eventbus.TypeQueueSkipped, Office: win.Office, WindowID: win.ID, Data: data})
	d.bus.Publish(eventbus.KioskRoom, eventbus.Event{Type: eventbus.TypeQueueSkipped, Office: win.Office, WindowID: win.ID, Data: data})
	if nextTicket == nil {
		d.bus.Publish(eventbus.AdminRoom(win.Office), eventbus.Event{Type: eventbus.TypeNoMoreQueues, Office: win.Office, WindowID: win.ID, Data: map[string]any{}})
	}
	return nil
}

// Transfer implements §4.6.6: two window locks acquired in ascending
// id order to avoid deadlock.
func (d *Dispatcher) Transfer(ctx context.Context, fromWindowID, toWindowID string) error {
	first, second := d.windows.LockPair(fromWindowID, toWindowID)
	first.Lock()
	defer first.Unlock()
	second.Lock()
	defer second.Unlock()

	from, err := d.windows.Get(ctx, fromWindowID)
	if err != nil {
		return apperr.Wrap(err)
	}
	to, err := d.windows.Get(ctx, toWindowID)
	if err != nil {
		return apperr.Wrap(err)
	}
	if from.Office != to.Office {
		return apperr.NewValidation("transfer requires both windows in the same office")
	}
	if !to.IsOpen {
		return apperr.NewConflict("destination window is not open")
	}

	serving := true
	current, err := d.store.Tickets().Find(ctx, store.TicketFilter{WindowID: from.ID, CurrentlyServing: &serving}, 1)
	if err != nil {
		return apperr.Wrap(err)
	}
	if len(current) == 0 {
		return apperr.NewConflict("source window has no currently-serving ticket")
	}

	newPriority := to.IsPriority()
	updated, err := d.store.Tickets().CAS(ctx, current[0].ID, func(t *models.Ticket) error {
		t.WindowID = to.ID
		t.Status = models.StatusWaiting
		t.CurrentlyServing = false
		t.CalledAt = nil
		t.Priority = newPriority
		return nil
	})
	if err != nil {
		return apperr.Wrap(err)
	}

	data := map[string]any{"ticketId": updated.ID, "number": updated.Number, "fromWindowId": from.ID, "toWindowId": to.ID}
	d.bus.Publish(eventbus.AdminRoom(from.Office), eventbus.Event{Type: eventbus.TypeQueueTransferred, Office: from.Office, Data: data})
	d.bus.Publish(eventbus.KioskRoom, eventbus.Event{Type: eventbus.TypeQueueTransferred, Office: from.Office, Data: data})
	return nil
}

// PauseResume implements §4.6.7. action must be "pause" or "resume".
func (d *Dispatcher) PauseResume(ctx context.Context, windowID, action string) error {
	lock := d.windows.Lock(windowID)
	lock.Lock()
	defer lock.Unlock()

	win, err := d.windows.Get(ctx, windowID)
	if err != nil {
		return apperr.Wrap(err)
	}

	switch action {
	case "pause":
		if _, err := d.windows.Pause(ctx, win.ID); err != nil {
			return apperr.Wrap(err)
		}
	case "resume":
		if err := d.windows.Resume(ctx, win.ID); err != nil {
			return apperr.Wrap(err)
		}
	default:
		return apperr.NewValidation(fmt.Sprintf("unknown action %q", action))
	}

	d.bus.Publish(eventbus.AdminRoom(win.Office), eventbus.Event{Type: eventbus.TypeServingStatusChanged, Office: win.Office, WindowID: win.ID, Data: map[string]any{"action": action}})
	return nil
}

// RequeueAll implements §4.6.8 (unfiltered variant).
func (d *Dispatcher) RequeueAll(ctx context.Context, windowID string) error {
	return d.requeue(ctx, windowID, nil)
}

// RequeueSelected implements §4.6.8 filtered by ticket number.
func (d *Dispatcher) RequeueSelected(ctx context.Context, windowID string, numbers []int) error {
	return d.requeue(ctx, windowID, numbers)
}

func (d *Dispatcher) requeue(ctx context.Context, windowID string, numbers []int) error {
	lock := d.windows.Lock(windowID)
	lock.Lock()
	defer lock.Unlock()

	win, err := d.windows.Get(ctx, windowID)
	if err != nil {
		return apperr.Wrap(err)
	}

	wanted := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		wanted[n] = true
	}

	// Tickets whose skippedAt predates today have already been rolled
	// over to no-show by the janitor (§4.8), so every ticket still in
	// status=skipped belongs to today.
	now := d.clock.Now()
	n, err := d.store.Tickets().UpdateMany(ctx, store.TicketFilter{
		Office: win.Office, Status: []models.TicketStatus{models.StatusSkipped}, ServiceIDs: win.ServiceIDs,
	}, func(t *models.Ticket) error {
		if len(wanted) > 0 && !wanted[t.Number] {
			return store.ErrSkip
		}
		t.Status = models.StatusWaiting
		t.QueuedAt = now
		t.SkippedAt = nil
		return nil
	})
	if err != nil {
		return apperr.Wrap(err)
	}

	eventType := eventbus.TypeQueueRequeuedAll
	if len(numbers) > 0 {
		eventType = eventbus.TypeQueueRequeuedSelected
	}
	d.bus.Publish(eventbus.AdminRoom(win.Office), eventbus.Event{Type: eventType, Office: win.Office, WindowID: win.ID, Data: map[string]any{"count": n}})
	d.bus.Publish(eventbus.KioskRoom, eventbus.Event{Type: eventType, Office: win.Office, WindowID: win.ID, Data: map[string]any{"count": n}})
	return nil
}

// SubmitRating implements §4.6.9.
func (d *Dispatcher) SubmitRating(ctx context.Context, ticketID string, rating int) error {
	if rating < 1 || rating > 5 {
		return apperr.NewValidation("rating must be between 1 and 5")
	}
	_, err := d.store.Tickets().CAS(ctx, ticketID, func(t *models.Ticket) error {
		t.Rating = ptr(rating)
		return nil
	})
	if err != nil {
		return apperr.Wrap(err)
	}
	return nil
}
