package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/models"
)

// ---- services ----

type serviceStore struct{ db *sqlx.DB }

func (s *serviceStore) FindByID(ctx context.Context, id string) (*models.Service, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM services WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, apperr.NewNotFound("service not found")
	}
	if err != nil {
		return nil, apperr.NewInternal("could not read service", err)
	}
	return decodeService(payload)
}

func (s *serviceStore) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Service, error) {
	out := make(map[string]*models.Service, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var payloads [][]byte
	if err := s.db.SelectContext(ctx, &payloads, `SELECT payload FROM services WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, apperr.NewInternal("could not read services", err)
	}
	for _, p := range payloads {
		sv, err := decodeService(p)
		if err != nil {
			return nil, err
		}
		out[sv.ID] = sv
	}
	return out, nil
}

func (s *serviceStore) FindByName(ctx context.Context, office models.Office, name string) (*models.Service, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM services WHERE office = $1 AND name = $2`, string(office), name)
	if err == sql.ErrNoRows {
		return nil, apperr.NewNotFound("service not found")
	}
	if err != nil {
		return nil, apperr.NewInternal("could not read service", err)
	}
	return decodeService(payload)
}

func (s *serviceStore) List(ctx context.Context, office models.Office) ([]*models.Service, error) {
	var payloads [][]byte
	if err := s.db.SelectContext(ctx, &payloads, `SELECT payload FROM services WHERE office = $1 ORDER BY name ASC`, string(office)); err != nil {
		return nil, apperr.NewInternal("could not list services", err)
	}
	out := make([]*models.Service, 0, len(payloads))
	for _, p := range payloads {
		sv, err := decodeService(p)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, nil
}

func decodeService(payload []byte) (*models.Service, error) {
	var sv models.Service
	if err := json.Unmarshal(payload, &sv); err != nil {
		return nil, apperr.NewInternal("could not decode service", err)
	}
	return &sv, nil
}

// ---- windows ----

type windowStore struct{ db *sqlx.DB }

func (w *windowStore) FindByID(ctx context.Context, id string) (*models.Window, error) {
	var payload []byte
	err := w.db.GetContext(ctx, &payload, `SELECT payload FROM windows WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, apperr.NewNotFound("window not found")
	}
	if err != nil {
		return nil, apperr.NewInternal("could not read window", err)
	}
	return decodeWindow(payload)
}

func (w *windowStore) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Window, error) {
	out := make(map[string]*models.Window, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var payloads [][]byte
	if err := w.db.SelectContext(ctx, &payloads, `SELECT payload FROM windows WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, apperr.NewInternal("could not read windows", err)
	}
	for _, p := range payloads {
		win, err := decodeWindow(p)
		if err != nil {
			return nil, err
		}
		out[win.ID] = win
	}
	return out, nil
}

func (w *windowStore) List(ctx context.Context, office models.Office) ([]*models.Window, error) {
	var payloads [][]byte
	if err := w.db.SelectContext(ctx, &payloads, `SELECT payload FROM windows WHERE office = $1 ORDER BY name ASC`, string(office)); err != nil {
		return nil, apperr.NewInternal("could not list windows", err)
	}
	out := make([]*models.Window, 0, len(payloads))
	for _, p := range payloads {
		win, err := decodeWindow(p)
		if err != nil {
			return nil, err
		}
		out = append(out, win)
	}
	return out, nil
}

func (w *windowStore) FindPriorityWindow(ctx context.Context, office models.Office) (*models.Window, error) {
	var payload []byte
	err := w.db.GetContext(ctx, &payload, `SELECT payload FROM windows WHERE office = $1 AND name = $2`, string(office), models.PriorityWindowName)
	if err == sql.ErrNoRows {
		return nil, apperr.NewNotFound("priority window not found")
	}
	if err != nil {
		return nil, apperr.NewInternal("could not read priority window", err)
	}
	return decodeWindow(payload)
}

func (w *windowStore) CAS(ctx context.Context, id string, mutate func(*models.Window) error) (*models.Window, error) {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		current, err := w.FindByID(ctx, id)
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
			return nil, apperr.NewInternal("could not encode window", err)
		}
		res, err := w.db.ExecContext(ctx, `UPDATE windows SET version=$1, payload=$2 WHERE id=$3 AND version=$4`,
			current.Version, payload, id, startVersion)
		if err != nil {
			return nil, apperr.NewInternal("could not update window", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return current, nil
		}
	}
	return nil, apperr.NewConflict("window update conflict, retries exhausted")
}

func decodeWindow(payload []byte) (*models.Window, error) {
	var w models.Window
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, apperr.NewInternal("could not decode window", err)
	}
	return &w, nil
}

// ---- customer forms ----

type formStore struct{ db *sqlx.DB }

func (f *formStore) Create(ctx context.Context, form *models.CustomerForm) error {
	payload, err := json.Marshal(form)
	if err != nil {
		return apperr.NewInternal("could not encode customer form", err)
	}
	_, err = f.db.ExecContext(ctx, `INSERT INTO customer_forms (id, payload) VALUES ($1, $2)`, form.ID, payload)
	if err != nil {
		return apperr.NewInternal("could not create customer form", err)
	}
	return nil
}

func (f *formStore) FindByID(ctx context.Context, id string) (*models.CustomerForm, error) {
	var payload []byte
	err := f.db.GetContext(ctx, &payload, `SELECT payload FROM customer_forms WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, apperr.NewNotFound("customer form not found")
	}
	if err != nil {
		return nil, apperr.NewInternal("could not read customer form", err)
	}
	return decodeForm(payload)
}

func (f *formStore) FindByIDs(ctx context.Context, ids []string) (map[string]*models.CustomerForm, error) {
	out := make(map[string]*models.CustomerForm, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var payloads [][]byte
	if err := f.db.SelectContext(ctx, &payloads, `SELECT payload FROM customer_forms WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, apperr.NewInternal("could not read customer forms", err)
	}
	for _, p := range payloads {
		form, err := decodeForm(p)
		if err != nil {
			return nil, err
		}
		out[form.ID] = form
	}
	return out, nil
}

func decodeForm(payload []byte) (*models.CustomerForm, error) {
	var form models.CustomerForm
	if err := json.Unmarshal(payload, &form); err != nil {
		return nil, apperr.NewInternal("could not decode customer form", err)
	}
	return &form, nil
}

// ---- document requests ----

type docRequestStore struct{ db *sqlx.DB }

func (d *docRequestStore) Create(ctx context.Context, r *models.DocumentRequest) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return apperr.NewInternal("could not encode document request", err)
	}
	_, err = d.db.ExecContext(ctx, `INSERT INTO document_requests (transaction_no, payload) VALUES ($1, $2)`, r.TransactionNo, payload)
	if isUniqueViolation(err) {
		return apperr.NewConflict("document request already exists")
	}
	if err != nil {
		return apperr.NewInternal("could not create document request", err)
	}
	return nil
}

func (d *docRequestStore) FindByTransactionNo(ctx context.Context, no string) (*models.DocumentRequest, error) {
	var payload []byte
	err := d.db.GetContext(ctx, &payload, `SELECT payload FROM document_requests WHERE transaction_no = $1`, no)
	if err == sql.ErrNoRows {
		return nil, apperr.NewNotFound("document request not found")
	}
	if err != nil {
		return nil, apperr.NewInternal("could not read document request", err)
	}
	var r models.DocumentRequest
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, apperr.NewInternal("could not decode document request", err)
	}
	return &r, nil
}
