package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hrpass/internal/model"
)

// PassRepo provides data access to the passes table.  Rows are never
// deleted; status transitions happen only through ConsumeTx and RevokeTx.
type PassRepo struct {
	db *sql.DB
}

// NewPassRepo returns a new PassRepo bound to the provided database.
func NewPassRepo(db *sql.DB) *PassRepo { return &PassRepo{db: db} }

// DB exposes the underlying handle so services can open transactions.
func (r *PassRepo) DB() *sql.DB { return r.db }

const passColumns = `id, subject, pass_type, scope, expires_at, max_uses, used_count, status, meta, created_at`

// InsertTx stores a freshly issued pass.  UsedCount and Status are taken
// from p; callers issue with zero uses and status active.
func (r *PassRepo) InsertTx(ctx context.Context, tx *sql.Tx, p *model.Pass) error {
	scope, err := toJSON(p.Scope)
	if err != nil {
		return err
	}
	var meta any
	if len(p.Meta) > 0 {
		if meta, err = toJSON(p.Meta); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO passes (`+passColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Subject, string(p.Type), scope, dbTime(p.ExpiresAt), p.MaxUses, p.UsedCount,
		string(p.Status), meta, dbTime(p.CreatedAt),
	)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// ConsumeTx spends one use of the pass.  The check and the increment are a
// single conditional UPDATE, so concurrent callers can never push
// used_count past max_uses.  The status column is assigned first because
// MySQL evaluates SET clauses left to right.
//
// When nothing is updated the row is re-read to report why: ErrNotFound,
// ErrPassRevoked, ErrPassExpired or ErrPassExhausted.  An active row whose
// expiry has passed is marked expired on the way out.
func (r *PassRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, id string, now time.Time) (model.Pass, error) {
	now = dbTime(now)
	res, err := tx.ExecContext(ctx,
		`UPDATE passes
		    SET status = CASE WHEN used_count + 1 >= max_uses THEN 'exhausted' ELSE status END,
		        used_count = used_count + 1
		  WHERE id = ? AND status = 'active' AND used_count < max_uses AND expires_at > ?`,
		id, now,
	)
	if err != nil {
		return model.Pass{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Pass{}, err
	}
	p, err := getPass(ctx, tx, id)
	if err != nil {
		return model.Pass{}, err
	}
	if n == 1 {
		return p, nil
	}
	return p, r.classifyTx(ctx, tx, p, now)
}

// classifyTx maps a pass that failed a conditional check to its sentinel.
func (r *PassRepo) classifyTx(ctx context.Context, tx *sql.Tx, p model.Pass, now time.Time) error {
	switch {
	case p.Status == model.PassRevoked:
		return ErrPassRevoked
	case p.Status == model.PassExpired:
		return ErrPassExpired
	case p.Status == model.PassExhausted || p.UsedCount >= p.MaxUses:
		return ErrPassExhausted
	case !p.ExpiresAt.After(now):
		if _, err := tx.ExecContext(ctx,
			`UPDATE passes SET status = 'expired' WHERE id = ? AND status = 'active'`, p.ID); err != nil {
			return err
		}
		return ErrPassExpired
	}
	// The row satisfied every condition on re-read; treat as lost race.
	return ErrConflict
}

// VerifyTx performs the consume checks without spending a use.
func (r *PassRepo) VerifyTx(ctx context.Context, tx *sql.Tx, id string, now time.Time) (model.Pass, error) {
	now = dbTime(now)
	p, err := getPass(ctx, tx, id)
	if err != nil {
		return model.Pass{}, err
	}
	if p.Status == model.PassActive && p.UsedCount < p.MaxUses && p.ExpiresAt.After(now) {
		return p, nil
	}
	return p, r.classifyTx(ctx, tx, p, now)
}

// RevokeTx marks the pass revoked.  Revoking an already revoked pass is a
// no-op; changed reports whether this call made the transition.
func (r *PassRepo) RevokeTx(ctx context.Context, tx *sql.Tx, id string) (changed bool, err error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE passes SET status = 'revoked' WHERE id = ? AND status <> 'revoked'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := getPass(ctx, tx, id); err != nil {
			return false, err
		}
	}
	return n == 1, nil
}

// Get fetches a pass by id.
func (r *PassRepo) Get(ctx context.Context, id string) (model.Pass, error) {
	return getPass(ctx, r.db, id)
}

// ListBySubject returns passes issued to subject, newest first.  An empty
// subject lists every pass.
func (r *PassRepo) ListBySubject(ctx context.Context, subject string, limit int) ([]model.Pass, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT ` + passColumns + ` FROM passes`
	var args []any
	if subject != "" {
		q += ` WHERE subject = ?`
		args = append(args, subject)
	}
	q += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Pass{}
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func getPass(ctx context.Context, q queryer, id string) (model.Pass, error) {
	p, err := scanPass(q.QueryRowContext(ctx, `SELECT `+passColumns+` FROM passes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Pass{}, ErrNotFound
	}
	return p, err
}

func scanPass(s rowScanner) (model.Pass, error) {
	var (
		p         model.Pass
		ptype     string
		status    string
		scope     sql.NullString
		meta      sql.NullString
		expiresAt time.Time
		createdAt time.Time
	)
	if err := s.Scan(&p.ID, &p.Subject, &ptype, &scope, &expiresAt, &p.MaxUses, &p.UsedCount, &status, &meta, &createdAt); err != nil {
		return model.Pass{}, err
	}
	p.Type = model.PassType(ptype)
	p.Status = model.PassStatus(status)
	p.ExpiresAt = expiresAt.UTC()
	p.CreatedAt = createdAt.UTC()
	var err error
	if p.Scope, err = stringsFromJSON(scope); err != nil {
		return model.Pass{}, err
	}
	if p.Meta, err = mapFromJSON(meta); err != nil {
		return model.Pass{}, err
	}
	return p, nil
}
