// Package postgres is the durable Ticket Store Gateway backend (C2):
// every entity is a JSONB payload plus the promoted columns §6.4 needs
// indexed, and ticket/window CAS is an UPDATE guarded by the version
// column, mirroring the update-with-version-guard pattern the corpus
// uses for its counter store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/models"
	"github.com/qoffice/dispatcher/internal/store"
)

const maxCASRetries = 5
const defaultFindLimit = 200

// Store is the sqlx-backed Store implementation.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn and verifies it is reachable.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, apperr.NewUnavailable("could not connect to postgres", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Tickets() store.Tickets                  { return &ticketStore{db: s.db} }
func (s *Store) Services() store.Services                { return &serviceStore{db: s.db} }
func (s *Store) Windows() store.Windows                  { return &windowStore{db: s.db} }
func (s *Store) Forms() store.Forms                       { return &formStore{db: s.db} }
func (s *Store) DocumentRequests() store.DocumentRequests { return &docRequestStore{db: s.db} }

// Schema is the DDL the deploying operator applies out of band; kept
// here as the single source of truth for the promoted-column layout
// the queries below assume.
const Schema = `
CREATE TABLE IF NOT EXISTS tickets (
	id             TEXT PRIMARY KEY,
	office         TEXT NOT NULL,
	status         TEXT NOT NULL,
	window_id      TEXT NOT NULL,
	number         INTEGER NOT NULL,
	transaction_no TEXT,
	queued_at      TIMESTAMPTZ NOT NULL,
	version        INTEGER NOT NULL,
	payload        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS tickets_office_status_idx ON tickets (office, status);
CREATE INDEX IF NOT EXISTS tickets_office_window_status_idx ON tickets (office, window_id, status);
CREATE INDEX IF NOT EXISTS tickets_window_serving_idx ON tickets (window_id, ((payload->>'currentlyServing')::boolean));
CREATE INDEX IF NOT EXISTS tickets_queued_at_idx ON tickets (queued_at);
CREATE UNIQUE INDEX IF NOT EXISTS tickets_transaction_no_uq ON tickets (transaction_no) WHERE transaction_no IS NOT NULL AND transaction_no != '';

CREATE TABLE IF NOT EXISTS services (
	id      TEXT PRIMARY KEY,
	office  TEXT NOT NULL,
	name    TEXT NOT NULL,
	payload JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS windows (
	id      TEXT PRIMARY KEY,
	office  TEXT NOT NULL,
	name    TEXT NOT NULL,
	version INTEGER NOT NULL,
	payload JSONB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS windows_office_name_uq ON windows (office, name);

CREATE TABLE IF NOT EXISTS customer_forms (
	id      TEXT PRIMARY KEY,
	payload JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS document_requests (
	transaction_no TEXT PRIMARY KEY,
	payload        JSONB NOT NULL
);
`

// ---- tickets ----

type ticketStore struct{ db *sqlx.DB }

func (t *ticketStore) Create(ctx context.Context, tk *models.Ticket) error {
	tk.Version = 1
	payload, err := json.Marshal(tk)
	if err != nil {
		return apperr.NewInternal("could not encode ticket", err)
	}
	_, err = t.db.ExecContext(ctx, `
		INSERT INTO tickets (id, office, status, window_id, number, transaction_no, queued_at, version, payload)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)`,
		tk.ID, string(tk.Office), string(tk.Status), tk.WindowID, tk.Number, tk.TransactionNo, tk.QueuedAt, tk.Version, payload,
	)
	if isUniqueViolation(err) {
		return apperr.NewConflict("transactionNo already in use")
	}
	if err != nil {
		return apperr.NewInternal("could not create ticket", err)
	}
	return nil
}

func (t *ticketStore) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	var payload []byte
	err := t.db.GetContext(ctx, &payload, `SELECT payload FROM tickets WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, apperr.NewNotFound("ticket not found")
	}
	if err != nil {
		return nil, apperr.NewInternal("could not read ticket", err)
	}
	return decodeTicket(payload)
}

func decodeTicket(payload []byte) (*models.Ticket, error) {
	var tk models.Ticket
	if err := json.Unmarshal(payload, &tk); err != nil {
		return nil, apperr.NewInternal("could not decode ticket", err)
	}
	return &tk, nil
}

// buildTicketWhere renders filter into a WHERE clause and its
// positional args, appended after startArg.
func buildTicketWhere(filter store.TicketFilter, startArg int) (string, []any) {
	clauses := []string{"1=1"}
	args := make([]any, 0, 8)
	next := startArg

	if filter.Office != "" {
		clauses = append(clauses, fmt.Sprintf("office = $%d", next))
		args = append(args, string(filter.Office))
		next++
	}
	if filter.WindowID != "" {
		clauses = append(clauses, fmt.Sprintf("window_id = $%d", next))
		args = append(args, filter.WindowID)
		next++
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			placeholders[i] = fmt.Sprintf("$%d", next)
			args = append(args, string(st))
			next++
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", joinComma(placeholders)))
	}
	if filter.Priority != nil {
		clauses = append(clauses, fmt.Sprintf("(payload->>'priority')::boolean = $%d", next))
		args = append(args, *filter.Priority)
		next++
	}
	if filter.CurrentlyServing != nil {
		clauses = append(clauses, fmt.Sprintf("(payload->>'currentlyServing')::boolean = $%d", next))
		args = append(args, *filter.CurrentlyServing)
		next++
	}
	if filter.QueuedAtFrom != nil {
		clauses = append(clauses, fmt.Sprintf("queued_at >= $%d", next))
		args = append(args, *filter.QueuedAtFrom)
		next++
	}
	if filter.CompletedAtFrom != nil {
		clauses = append(clauses, fmt.Sprintf("(payload->>'completedAt')::timestamptz >= $%d", next))
		args = append(args, *filter.CompletedAtFrom)
		next++
	}
	if filter.TransactionNo != "" {
		clauses = append(clauses, fmt.Sprintf("transaction_no = $%d", next))
		args = append(args, filter.TransactionNo)
		next++
	}
	if filter.ServiceIDs != nil {
		ids := make([]string, 0, len(filter.ServiceIDs))
		for id, ok := range filter.ServiceIDs {
			if ok {
				ids = append(ids, id)
			}
		}
		placeholders := make([]string, len(ids))
		for i, id := range ids {
			placeholders[i] = fmt.Sprintf("$%d", next)
			args = append(args, id)
			next++
		}
		if len(ids) > 0 {
			clauses = append(clauses, fmt.Sprintf("(payload->>'serviceId') IN (%s)", joinComma(placeholders)))
		} else {
			clauses = append(clauses, "1=0")
		}
	}
	return joinAnd(clauses), args
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

func joinAnd(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " AND "
		}
		out += p
	}
	return out
}

func (t *ticketStore) Find(ctx context.Context, filter store.TicketFilter, limit int) ([]*models.Ticket, error) {
	if limit <= 0 {
		limit = defaultFindLimit
	}
	where, args := buildTicketWhere(filter, 1)
	query := fmt.Sprintf("SELECT payload FROM tickets WHERE %s ORDER BY queued_at ASC LIMIT %d", where, limit)

	var payloads [][]byte
	if err := t.db.SelectContext(ctx, &payloads, query, args...); err != nil {
		return nil, apperr.NewInternal("could not query tickets", err)
	}
	out := make([]*models.Ticket, 0, len(payloads))
	for _, p := range payloads {
		tk, err := decodeTicket(p)
		if err != nil {
			return nil, err
		}
		out = append(out, tk)
	}
	return out, nil
}

// CAS implements the version-guarded UPDATE pattern of §11.1: retry a
// bounded number of times on a zero-rows-affected update, which means
// another writer advanced the version since the read.
func (t *ticketStore) CAS(ctx context.Context, id string, mutate func(*models.Ticket) error) (*models.Ticket, error) {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		current, err := t.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		startVersion := current.Version
		if err := mutate(current); err != nil {
			return nil, err
		}
		current.Version = startVersion + 1

		payload, err := json.Marshal(current)
		if err != nil {
			return nil, apperr.NewInternal("could not encode ticket", err)
		}
		res, err := t.db.ExecContext(ctx, `
			UPDATE tickets SET status=$1, window_id=$2, number=$3, transaction_no=NULLIF($4,''), version=$5, payload=$6
			WHERE id=$7 AND version=$8`,
			string(current.Status), current.WindowID, current.Number, current.TransactionNo, current.Version, payload, id, startVersion,
		)
		if err != nil {
			return nil, apperr.NewInternal("could not update ticket", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return current, nil
		}
	}
	return nil, apperr.NewConflict("ticket update conflict, retries exhausted")
}

func (t *ticketStore) UpdateMany(ctx context.Context, filter store.TicketFilter, mutate func(*models.Ticket) error) (int, error) {
	matches, err := t.Find(ctx, filter, 0)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, tk := range matches {
		_, err := t.CAS(ctx, tk.ID, func(working *models.Ticket) error {
			return mutate(working)
		})
		if err == store.ErrSkip {
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}
