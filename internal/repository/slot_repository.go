package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hrpass/internal/model"
)

// SlotRepo provides data access to the availability_slots table.
//
// Expiry is applied lazily: NormalizeTx is called at the start of every
// transaction that touches a slot so that elapsed holds and slots whose
// start time has passed are corrected before any decision is made.  State
// changes are conditional UPDATEs; a change that affects no rows means the
// slot was not in the expected source state.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the provided database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// DB exposes the underlying handle so services can open transactions.
func (r *SlotRepo) DB() *sql.DB { return r.db }

const slotColumns = `id, rr_id, interviewer_id, start_time, duration_minutes, mode, location, status, held_by, hold_expires_at, created_at`

// Create inserts a new open slot.
func (r *SlotRepo) Create(ctx context.Context, s *model.AvailabilitySlot) error {
	if s.Status == "" {
		s.Status = model.SlotOpen
	}
	if s.DurationMinutes <= 0 {
		s.DurationMinutes = 30
	}
	s.StartTime = dbTime(s.StartTime)
	s.CreatedAt = dbTime(s.CreatedAt)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO availability_slots (`+slotColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?)`,
		s.ID, s.RRID, s.InterviewerID, s.StartTime, s.DurationMinutes, s.Mode, s.Location,
		string(s.Status), s.CreatedAt,
	)
	return err
}

// normalizeSQL expires open/held slots whose start has passed, then frees
// holds whose window elapsed.  The order matters: a held slot in the past
// must end up expired, not open.
var normalizeSQL = [2]string{
	`UPDATE availability_slots
	    SET status = 'expired', held_by = NULL, hold_expires_at = NULL
	  WHERE status IN ('open', 'held') AND start_time <= ?`,
	`UPDATE availability_slots
	    SET status = 'open', held_by = NULL, hold_expires_at = NULL
	  WHERE status = 'held' AND hold_expires_at <= ?`,
}

// NormalizeTx applies lazy expiry to a single slot.
func (r *SlotRepo) NormalizeTx(ctx context.Context, tx *sql.Tx, id string, now time.Time) error {
	now = dbTime(now)
	for _, q := range normalizeSQL {
		if _, err := tx.ExecContext(ctx, q+` AND id = ?`, now, id); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeRRTx applies lazy expiry to every slot of a requisition.
func (r *SlotRepo) NormalizeRRTx(ctx context.Context, tx *sql.Tx, rrID string, now time.Time) error {
	now = dbTime(now)
	for _, q := range normalizeSQL {
		if _, err := tx.ExecContext(ctx, q+` AND rr_id = ?`, now, rrID); err != nil {
			return err
		}
	}
	return nil
}

// SweepTx applies lazy expiry to all slots and reports how many were
// expired and how many holds were released.
func (r *SlotRepo) SweepTx(ctx context.Context, tx *sql.Tx, now time.Time) (expired, released int64, err error) {
	now = dbTime(now)
	var counts [2]int64
	for i, q := range normalizeSQL {
		res, err := tx.ExecContext(ctx, q, now)
		if err != nil {
			return 0, 0, err
		}
		if counts[i], err = res.RowsAffected(); err != nil {
			return 0, 0, err
		}
	}
	return counts[0], counts[1], nil
}

// HoldTx moves an open slot to held for candidateID until holdUntil.  A
// candidate re-holding its own slot extends the window.
func (r *SlotRepo) HoldTx(ctx context.Context, tx *sql.Tx, id, candidateID string, now, holdUntil time.Time) (model.AvailabilitySlot, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE availability_slots
		    SET status = 'held', held_by = ?, hold_expires_at = ?
		  WHERE id = ? AND start_time > ?
		    AND (status = 'open' OR (status = 'held' AND held_by = ?))`,
		candidateID, dbTime(holdUntil), id, dbTime(now), candidateID,
	)
	if err != nil {
		return model.AvailabilitySlot{}, err
	}
	return r.afterTransition(ctx, tx, id, res)
}

// ReleaseTx returns a slot held by candidateID to open.
func (r *SlotRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id, candidateID string) (model.AvailabilitySlot, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE availability_slots
		    SET status = 'open', held_by = NULL, hold_expires_at = NULL
		  WHERE id = ? AND status = 'held' AND held_by = ?`,
		id, candidateID,
	)
	if err != nil {
		return model.AvailabilitySlot{}, err
	}
	return r.afterTransition(ctx, tx, id, res)
}

// BookTx marks the slot booked for candidateID.  The slot must be open, or
// held by the same candidate, and must start after now.  Of several
// concurrent callers only one can match the condition.
func (r *SlotRepo) BookTx(ctx context.Context, tx *sql.Tx, id, candidateID string, now time.Time) (model.AvailabilitySlot, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE availability_slots
		    SET status = 'booked', held_by = ?, hold_expires_at = NULL
		  WHERE id = ? AND start_time > ?
		    AND (status = 'open' OR (status = 'held' AND held_by = ?))`,
		candidateID, id, dbTime(now), candidateID,
	)
	if err != nil {
		return model.AvailabilitySlot{}, err
	}
	return r.afterTransition(ctx, tx, id, res)
}

// ReleaseBookedTx frees a booked slot after its interview was cancelled:
// back to open when it still lies in the future, expired otherwise.
func (r *SlotRepo) ReleaseBookedTx(ctx context.Context, tx *sql.Tx, id string, now time.Time) (model.AvailabilitySlot, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE availability_slots
		    SET status = CASE WHEN start_time > ? THEN 'open' ELSE 'expired' END,
		        held_by = NULL, hold_expires_at = NULL
		  WHERE id = ? AND status = 'booked'`,
		dbTime(now), id,
	)
	if err != nil {
		return model.AvailabilitySlot{}, err
	}
	return r.afterTransition(ctx, tx, id, res)
}

// afterTransition re-reads the slot after a conditional UPDATE.  No rows
// affected means ErrNotFound when the slot is missing, ErrSlotUnavailable
// otherwise.
func (r *SlotRepo) afterTransition(ctx context.Context, tx *sql.Tx, id string, res sql.Result) (model.AvailabilitySlot, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return model.AvailabilitySlot{}, err
	}
	s, err := getSlot(ctx, tx, id)
	if err != nil {
		return model.AvailabilitySlot{}, err
	}
	if n == 0 {
		return s, ErrSlotUnavailable
	}
	return s, nil
}

// GetTx fetches a slot inside tx.
func (r *SlotRepo) GetTx(ctx context.Context, tx *sql.Tx, id string) (model.AvailabilitySlot, error) {
	return getSlot(ctx, tx, id)
}

// ListByRRTx lists a requisition's slots ordered by start time.  An empty
// status lists every state.
func (r *SlotRepo) ListByRRTx(ctx context.Context, tx *sql.Tx, rrID string, status model.SlotStatus) ([]model.AvailabilitySlot, error) {
	q := `SELECT ` + slotColumns + ` FROM availability_slots WHERE rr_id = ?`
	args := []any{rrID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY start_time, id`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AvailabilitySlot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func getSlot(ctx context.Context, q queryer, id string) (model.AvailabilitySlot, error) {
	s, err := scanSlot(q.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM availability_slots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.AvailabilitySlot{}, ErrNotFound
	}
	return s, err
}

func scanSlot(rs rowScanner) (model.AvailabilitySlot, error) {
	var (
		s       model.AvailabilitySlot
		status  string
		heldBy  sql.NullString
		holdExp sql.NullTime
	)
	if err := rs.Scan(&s.ID, &s.RRID, &s.InterviewerID, &s.StartTime, &s.DurationMinutes, &s.Mode,
		&s.Location, &status, &heldBy, &holdExp, &s.CreatedAt); err != nil {
		return model.AvailabilitySlot{}, err
	}
	s.Status = model.SlotStatus(status)
	s.StartTime = s.StartTime.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	if heldBy.Valid {
		v := heldBy.String
		s.HeldBy = &v
	}
	s.HoldExpiresAt = timePtr(holdExp)
	return s, nil
}
