// Package lookup implements the read-only projections of C9: public
// queue snapshots, admin queue snapshots, and ticket-by-id lookups.
package lookup

import (
	"context"
	"sort"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/cache"
	"github.com/qoffice/dispatcher/internal/janitor"
	"github.com/qoffice/dispatcher/internal/models"
	"github.com/qoffice/dispatcher/internal/store"
)

const (
	publicWaitingCap = 5
	adminWaitingCap  = 20
)

// Service serves the read-only lookup projections.
type Service struct {
	store   store.Store
	janitor *janitor.Janitor
	cache   *cache.LookupCache
}

func New(st store.Store, j *janitor.Janitor, lc *cache.LookupCache) *Service {
	return &Service{store: st, janitor: j, cache: lc}
}

// WindowSnapshot is one window's public-facing state.
type WindowSnapshot struct {
	WindowID      string `json:"windowId"`
	WindowName    string `json:"windowName"`
	ServingNumber int    `json:"servingNumber"`
	NextNumber    int    `json:"nextNumber"`
}

// PublicSnapshot is the public queue view for an office (§4.9).
type PublicSnapshot struct {
	Office  models.Office      `json:"office"`
	Windows []WindowSnapshot   `json:"windows"`
	Waiting []TicketSummary    `json:"waiting"`
}

// TicketSummary is a display-ready ticket projection.
type TicketSummary struct {
	TicketID    string `json:"ticketId"`
	Number      int    `json:"number"`
	DisplayName string `json:"displayName"`
	WindowID    string `json:"windowId"`
	Status      models.TicketStatus `json:"status"`
}

func isPublic(svc *models.Service) bool {
	return svc == nil || !svc.SpecialRequest
}

// PublicQueueSnapshot implements the public snapshot projection.
func (s *Service) PublicQueueSnapshot(ctx context.Context, office models.Office) (*PublicSnapshot, error) {
	if s.cache != nil {
		var cached PublicSnapshot
		if s.cache.GetPublic(ctx, office, &cached) {
			return &cached, nil
		}
	}

	windows, err := s.store.Windows().List(ctx, office)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	out := &PublicSnapshot{Office: office}
	for _, w := range windows {
		if !w.IsOpen {
			continue
		}
		ws := WindowSnapshot{WindowID: w.ID, WindowName: w.Name}

		serving := true
		currentTickets, err := s.store.Tickets().Find(ctx, store.TicketFilter{WindowID: w.ID, CurrentlyServing: &serving}, 1)
		if err != nil {
			return nil, apperr.Wrap(err)
		}
		if len(currentTickets) > 0 {
			ws.ServingNumber = currentTickets[0].Number
		}

		priority := w.IsPriority()
		waiting, err := s.store.Tickets().Find(ctx, store.TicketFilter{
			Office: office, WindowID: w.ID, Status: []models.TicketStatus{models.StatusWaiting}, Priority: &priority,
		}, 1)
		if err != nil {
			return nil, apperr.Wrap(err)
		}
		if len(waiting) > 0 {
			ws.NextNumber = waiting[0].Number
		}
		out.Windows = append(out.Windows, ws)
	}

	waitingTickets, err := s.store.Tickets().Find(ctx, store.TicketFilter{
		Office: office, Status: []models.TicketStatus{models.StatusWaiting},
	}, 0)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	serviceIDs := make([]string, 0, len(waitingTickets))
	for _, t := range waitingTickets {
		serviceIDs = append(serviceIDs, t.ServiceID)
	}
	services, err := s.store.Services().FindByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	formIDs := make([]string, 0)
	for _, t := range waitingTickets {
		if t.CustomerFormID != "" {
			formIDs = append(formIDs, t.CustomerFormID)
		}
	}
	forms, err := s.store.Forms().FindByIDs(ctx, formIDs)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	for _, t := range waitingTickets {
		if !isPublic(services[t.ServiceID]) {
			continue
		}
		out.Waiting = append(out.Waiting, summarize(t, services[t.ServiceID], forms[t.CustomerFormID]))
		if len(out.Waiting) >= publicWaitingCap {
			break
		}
	}

	if s.cache != nil {
		s.cache.SetPublic(ctx, office, out)
	}
	return out, nil
}

func summarize(t *models.Ticket, svc *models.Service, form *models.CustomerForm) TicketSummary {
	svcName := ""
	if svc != nil {
		svcName = svc.Name
	}
	formName := ""
	if form != nil {
		formName = form.Name
	}
	return TicketSummary{
		TicketID:    t.ID,
		Number:      t.Number,
		DisplayName: models.DisplayName(t, svcName, formName),
		WindowID:    t.WindowID,
		Status:      t.Status,
	}
}

// AdminSnapshot is the admin queue view for an office (§4.9).
type AdminSnapshot struct {
	Office          models.Office   `json:"office"`
	Waiting         []TicketSummary `json:"waiting"`
	CurrentlyServing map[string]TicketSummary `json:"currentlyServing"`
	SkippedNumbers  []int           `json:"skippedNumbers"`
}

// AdminQueueSnapshot implements the admin snapshot projection.
func (s *Service) AdminQueueSnapshot(ctx context.Context, office models.Office) (*AdminSnapshot, error) {
	if s.cache != nil {
		var cached AdminSnapshot
		if s.cache.GetAdmin(ctx, office, &cached) {
			return &cached, nil
		}
	}

	waitingTickets, err := s.store.Tickets().Find(ctx, store.TicketFilter{
		Office: office, Status: []models.TicketStatus{models.StatusWaiting},
	}, adminWaitingCap)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	ids := make([]string, 0, len(waitingTickets))
	formIDs := make([]string, 0)
	for _, t := range waitingTickets {
		ids = append(ids, t.ServiceID)
		if t.CustomerFormID != "" {
			formIDs = append(formIDs, t.CustomerFormID)
		}
	}
	services, err := s.store.Services().FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	forms, err := s.store.Forms().FindByIDs(ctx, formIDs)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	out := &AdminSnapshot{Office: office, CurrentlyServing: make(map[string]TicketSummary)}
	for _, t := range waitingTickets {
		if !isPublic(services[t.ServiceID]) {
			continue
		}
		out.Waiting = append(out.Waiting, summarize(t, services[t.ServiceID], forms[t.CustomerFormID]))
	}

	serving := true
	currentTickets, err := s.store.Tickets().Find(ctx, store.TicketFilter{Office: office, CurrentlyServing: &serving}, 0)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	for _, t := range currentTickets {
		out.CurrentlyServing[t.WindowID] = summarize(t, services[t.ServiceID], nil)
	}

	skippedTickets, err := s.store.Tickets().Find(ctx, store.TicketFilter{
		Office: office, Status: []models.TicketStatus{models.StatusSkipped},
	}, 0)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	for _, t := range skippedTickets {
		out.SkippedNumbers = append(out.SkippedNumbers, t.Number)
	}
	sort.Ints(out.SkippedNumbers)

	if s.cache != nil {
		s.cache.SetAdmin(ctx, office, out)
	}
	return out, nil
}

// TicketProjection is the ticket-by-id lookup response (§4.9).
type TicketProjection struct {
	Ticket          *models.Ticket `json:"ticket"`
	ServiceName     string         `json:"serviceName"`
	WindowName      string         `json:"windowName"`
	Office          models.Office  `json:"office"`
	ServingNumber   int            `json:"servingNumber"`
	UpcomingNumbers []int          `json:"upcomingNumbers"`
}

// TicketByID implements the ticket-by-id projection, rejecting tickets
// older than 24 hours with Gone (§4.8, B3).
func (s *Service) TicketByID(ctx context.Context, ticketID string) (*TicketProjection, error) {
	t, err := s.store.Tickets().FindByID(ctx, ticketID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	if s.janitor != nil && !s.janitor.CheckFresh(t) {
		return nil, apperr.NewGone("ticket has expired")
	}

	svc, err := s.store.Services().FindByID(ctx, t.ServiceID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	win, err := s.store.Windows().FindByID(ctx, t.WindowID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	serving := true
	currentTickets, err := s.store.Tickets().Find(ctx, store.TicketFilter{WindowID: win.ID, CurrentlyServing: &serving}, 1)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	servingNumber := 0
	if len(currentTickets) > 0 {
		servingNumber = currentTickets[0].Number
	}

	priority := win.IsPriority()
	upcoming, err := s.store.Tickets().Find(ctx, store.TicketFilter{
		Office: win.Office, WindowID: win.ID, Status: []models.TicketStatus{models.StatusWaiting}, Priority: &priority,
	}, 2)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	var upcomingNumbers []int
	for _, u := range upcoming {
		upcomingNumbers = append(upcomingNumbers, u.Number)
	}

	return &TicketProjection{
		Ticket:          t,
		ServiceName:     svc.Name,
		WindowName:      win.Name,
		Office:          win.Office,
		ServingNumber:   servingNumber,
		UpcomingNumbers: upcomingNumbers,
	}, nil
}
