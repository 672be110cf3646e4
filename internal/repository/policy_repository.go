package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hrpass/internal/model"
)

// PolicyRepo provides data access to policies, their acknowledgements and
// the document templates library.
type PolicyRepo struct {
	db *sql.DB
}

// NewPolicyRepo returns a new PolicyRepo bound to the provided database.
func NewPolicyRepo(db *sql.DB) *PolicyRepo { return &PolicyRepo{db: db} }

const policyColumns = `id, title, version, category, status, owner, effective_date, file_url, summary, tags, created_at, updated_at`

// Create inserts a policy.
func (r *PolicyRepo) Create(ctx context.Context, p *model.Policy) error {
	tags, err := toJSON(nonNil(p.Tags))
	if err != nil {
		return err
	}
	p.CreatedAt = dbTime(p.CreatedAt)
	p.UpdatedAt = p.CreatedAt
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO policies (`+policyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Version, p.Category, p.Status, p.Owner, p.EffectiveDate, p.FileURL, p.Summary,
		tags, p.CreatedAt, p.UpdatedAt)
	return err
}

// Update overwrites a policy's mutable fields.
func (r *PolicyRepo) Update(ctx context.Context, p *model.Policy, now time.Time) error {
	tags, err := toJSON(nonNil(p.Tags))
	if err != nil {
		return err
	}
	p.UpdatedAt = dbTime(now)
	res, err := r.db.ExecContext(ctx,
		`UPDATE policies
		    SET title = ?, version = ?, category = ?, status = ?, owner = ?, effective_date = ?,
		        file_url = ?, summary = ?, tags = ?, updated_at = ?
		  WHERE id = ?`,
		p.Title, p.Version, p.Category, p.Status, p.Owner, p.EffectiveDate, p.FileURL, p.Summary,
		tags, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// Get fetches a policy by id.
func (r *PolicyRepo) Get(ctx context.Context, id string) (model.Policy, error) {
	p, err := scanPolicy(r.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM policies WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

// List returns policies ordered by title, optionally filtered by status.
func (r *PolicyRepo) List(ctx context.Context, status string) ([]model.Policy, error) {
	q := `SELECT ` + policyColumns + ` FROM policies`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY title, version`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Policy{}
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Ack records that an employee acknowledged the policy's current
// version.  Acknowledging the same version twice yields ErrConflict.
func (r *PolicyRepo) Ack(ctx context.Context, a *model.PolicyAck) error {
	p, err := r.Get(ctx, a.PolicyID)
	if err != nil {
		return err
	}
	a.Version = p.Version
	a.AckAt = dbTime(a.AckAt)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO policy_acks (id, policy_id, employee_id, version, ack_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.PolicyID, a.EmployeeID, a.Version, a.AckAt)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// ListAcks returns acknowledgements of a policy, oldest first.
func (r *PolicyRepo) ListAcks(ctx context.Context, policyID string) ([]model.PolicyAck, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, policy_id, employee_id, version, ack_at FROM policy_acks WHERE policy_id = ? ORDER BY ack_at, id`,
		policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PolicyAck{}
	for rows.Next() {
		var a model.PolicyAck
		if err := rows.Scan(&a.ID, &a.PolicyID, &a.EmployeeID, &a.Version, &a.AckAt); err != nil {
			return nil, err
		}
		a.AckAt = a.AckAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateTemplate inserts a document template.
func (r *PolicyRepo) CreateTemplate(ctx context.Context, t *model.TemplateDoc) error {
	t.UpdatedAt = dbTime(t.UpdatedAt)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO templates (id, title, category, file_url, description, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Category, t.FileURL, t.Description, t.UpdatedAt)
	return err
}

// ListTemplates returns templates, optionally filtered by category.
func (r *PolicyRepo) ListTemplates(ctx context.Context, category string) ([]model.TemplateDoc, error) {
	q := `SELECT id, title, category, file_url, description, updated_at FROM templates`
	var args []any
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, category)
	}
	q += ` ORDER BY title, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TemplateDoc{}
	for rows.Next() {
		var (
			t    model.TemplateDoc
			desc sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Category, &t.FileURL, &desc, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Description = desc.String
		t.UpdatedAt = t.UpdatedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanPolicy(rs rowScanner) (model.Policy, error) {
	var (
		p             model.Policy
		summary, tags sql.NullString
	)
	if err := rs.Scan(&p.ID, &p.Title, &p.Version, &p.Category, &p.Status, &p.Owner, &p.EffectiveDate,
		&p.FileURL, &summary, &tags, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Policy{}, err
	}
	var err error
	if p.Tags, err = stringsFromJSON(tags); err != nil {
		return model.Policy{}, err
	}
	p.Summary = summary.String
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
