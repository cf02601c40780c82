// Package store defines the Ticket Store Gateway (C2): a typed,
// indexed, compare-and-swap document store abstraction. Two
// implementations exist — store/memory (default, in-process) and
// store/postgres (JSONB-backed, for durable deployments).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/qoffice/dispatcher/internal/models"
)

// ErrSkip is a sentinel a Tickets.UpdateMany mutate callback may return
// to exclude one matched document from the update without aborting the
// whole batch or counting it as changed.
var ErrSkip = errors.New("store: skip this document")

// TicketFilter narrows a ticket query. Zero-value fields are ignored.
type TicketFilter struct {
	Office           models.Office
	WindowID         string
	Status           []models.TicketStatus
	ServiceIDs       map[string]bool
	Priority         *bool
	CurrentlyServing *bool
	QueuedAtFrom     *time.Time
	CompletedAtFrom  *time.Time
	TransactionNo    string
}

// Tickets is the typed gateway over ticket documents.
type Tickets interface {
	// Create persists a new ticket and assigns it a store-level version.
	Create(ctx context.Context, t *models.Ticket) error

	// FindByID returns the ticket with id, or NotFound.
	FindByID(ctx context.Context, id string) (*models.Ticket, error)

	// Find returns tickets matching filter, ordered by queuedAt ascending,
	// capped at limit (0 = default implementation cap).
	Find(ctx context.Context, filter TicketFilter, limit int) ([]*models.Ticket, error)

	// CAS applies mutate to the current value of the ticket with id,
	// retrying on version conflict up to a small bound, and persists
	// the result. Returns Conflict if retries are exhausted, NotFound
	// if the ticket does not exist.
	CAS(ctx context.Context, id string, mutate func(*models.Ticket) error) (*models.Ticket, error)

	// UpdateMany applies mutate to every ticket matching filter and
	// persists the results; used by rollover and requeue. Returns the
	// number of tickets changed.
	UpdateMany(ctx context.Context, filter TicketFilter, mutate func(*models.Ticket) error) (int, error)
}

// Services/Windows/Forms/DocumentRequests are smaller gateways
// over their respective entities; batch loads accept id sets to avoid
// N+1 queries per §9.

type Services interface {
	FindByID(ctx context.Context, id string) (*models.Service, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Service, error)
	FindByName(ctx context.Context, office models.Office, name string) (*models.Service, error)
	List(ctx context.Context, office models.Office) ([]*models.Service, error)
}

type Windows interface {
	FindByID(ctx context.Context, id string) (*models.Window, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Window, error)
	List(ctx context.Context, office models.Office) ([]*models.Window, error)
	FindPriorityWindow(ctx context.Context, office models.Office) (*models.Window, error)
	// CAS applies mutate to the current value of the window with id.
	CAS(ctx context.Context, id string, mutate func(*models.Window) error) (*models.Window, error)
}

type Forms interface {
	Create(ctx context.Context, f *models.CustomerForm) error
	FindByID(ctx context.Context, id string) (*models.CustomerForm, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.CustomerForm, error)
}

type DocumentRequests interface {
	Create(ctx context.Context, r *models.DocumentRequest) error
	FindByTransactionNo(ctx context.Context, no string) (*models.DocumentRequest, error)
}

// Store bundles the gateways the dispatcher depends on.
type Store interface {
	Tickets() Tickets
	Services() Services
	Windows() Windows
	Forms() Forms
	DocumentRequests() DocumentRequests
}
