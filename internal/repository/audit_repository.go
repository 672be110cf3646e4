package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hrpass/internal/model"
)

// AuditRepo appends to the audit_logs table.  It has no update or delete
// methods; entries are permanent.
type AuditRepo struct {
	db  *sql.DB
	log *slog.Logger
}

// NewAuditRepo returns an AuditRepo.  Every appended entry is also echoed
// to log at info level when log is non-nil.
func NewAuditRepo(db *sql.DB, log *slog.Logger) *AuditRepo { return &AuditRepo{db: db, log: log} }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AppendTx writes e inside tx, so the entry commits or rolls back together
// with the transition it describes.  ID and CreatedAt are filled in when
// empty.
func (r *AuditRepo) AppendTx(ctx context.Context, tx *sql.Tx, e model.AuditLog) error {
	return r.append(ctx, tx, e)
}

// Append writes e outside any transaction.  Used for events that have no
// state change to attach to, such as failed logins.
func (r *AuditRepo) Append(ctx context.Context, e model.AuditLog) error {
	return r.append(ctx, r.db, e)
}

func (r *AuditRepo) append(ctx context.Context, x execer, e model.AuditLog) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var meta any
	if len(e.Metadata) > 0 {
		s, err := toJSON(e.Metadata)
		if err != nil {
			return err
		}
		meta = s
	}
	if _, err := x.ExecContext(ctx,
		`INSERT INTO audit_logs (id, actor, action, entity_type, entity_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Actor, e.Action, e.EntityType, e.EntityID, meta, dbTime(e.CreatedAt),
	); err != nil {
		return err
	}
	if r.log != nil {
		r.log.Info("audit",
			"actor", e.Actor, "action", e.Action,
			"entity_type", e.EntityType, "entity_id", e.EntityID)
	}
	return nil
}

// AuditFilter narrows List.  Empty fields match everything.
type AuditFilter struct {
	Actor      string
	EntityType string
	EntityID   string
	Limit      int
}

// List returns matching entries, newest first.
func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]model.AuditLog, error) {
	q := `SELECT id, actor, action, entity_type, entity_id, metadata, created_at FROM audit_logs WHERE 1=1`
	var args []any
	if f.Actor != "" {
		q += ` AND actor = ?`
		args = append(args, f.Actor)
	}
	if f.EntityType != "" {
		q += ` AND entity_type = ?`
		args = append(args, f.EntityType)
	}
	if f.EntityID != "" {
		q += ` AND entity_id = ?`
		args = append(args, f.EntityID)
	}
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 200
	}
	q += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, f.Limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AuditLog{}
	for rows.Next() {
		var (
			e    model.AuditLog
			meta sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.EntityType, &e.EntityID, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Metadata, err = mapFromJSON(meta); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
