package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hrpass/internal/model"
)

// ESSRepo provides data access to ess_requests (employee self-service).
type ESSRepo struct {
	db *sql.DB
}

// NewESSRepo returns a new ESSRepo bound to the provided database.
func NewESSRepo(db *sql.DB) *ESSRepo { return &ESSRepo{db: db} }

const essColumns = `id, employee_id, request_type, status, payload, attachments, created_at, updated_at`

// Create inserts a new open request.
func (r *ESSRepo) Create(ctx context.Context, e *model.ESSRequest) error {
	if e.Status == "" {
		e.Status = "open"
	}
	payload, err := toJSON(e.Payload)
	if err != nil {
		return err
	}
	attachments, err := toJSON(nonNil(e.Attachments))
	if err != nil {
		return err
	}
	e.CreatedAt = dbTime(e.CreatedAt)
	e.UpdatedAt = e.CreatedAt
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO ess_requests (`+essColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EmployeeID, e.Type, e.Status, payload, attachments, e.CreatedAt, e.UpdatedAt)
	return err
}

// Get fetches a request by id.
func (r *ESSRepo) Get(ctx context.Context, id string) (model.ESSRequest, error) {
	e, err := scanESS(r.db.QueryRowContext(ctx, `SELECT `+essColumns+` FROM ess_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	return e, err
}

// ListByEmployee returns requests newest first.  An empty employeeID lists
// all requests.
func (r *ESSRepo) ListByEmployee(ctx context.Context, employeeID string) ([]model.ESSRequest, error) {
	q := `SELECT ` + essColumns + ` FROM ess_requests`
	var args []any
	if employeeID != "" {
		q += ` WHERE employee_id = ?`
		args = append(args, employeeID)
	}
	q += ` ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ESSRequest{}
	for rows.Next() {
		e, err := scanESS(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateStatus sets a request's status.
func (r *ESSRepo) UpdateStatus(ctx context.Context, id, status string, now time.Time) (model.ESSRequest, error) {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE ess_requests SET status = ?, updated_at = ? WHERE id = ?`, status, dbTime(now), id); err != nil {
		return model.ESSRequest{}, err
	}
	return r.Get(ctx, id)
}

func scanESS(rs rowScanner) (model.ESSRequest, error) {
	var (
		e                    model.ESSRequest
		payload, attachments sql.NullString
	)
	if err := rs.Scan(&e.ID, &e.EmployeeID, &e.Type, &e.Status, &payload, &attachments, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return model.ESSRequest{}, err
	}
	var err error
	if e.Payload, err = mapFromJSON(payload); err != nil {
		return model.ESSRequest{}, err
	}
	if e.Attachments, err = stringsFromJSON(attachments); err != nil {
		return model.ESSRequest{}, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}
