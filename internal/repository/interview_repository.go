package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hrpass/internal/model"
)

// InterviewRepo provides data access to the interviews table.
//
// active_slot_id holds the slot id while an interview is scheduled and is
// cleared on cancellation.  Its UNIQUE constraint is the database-level
// guarantee that a slot never has two live interviews.
type InterviewRepo struct {
	db *sql.DB
}

// NewInterviewRepo returns a new InterviewRepo bound to the provided database.
func NewInterviewRepo(db *sql.DB) *InterviewRepo { return &InterviewRepo{db: db} }

const interviewColumns = `id, candidate_id, rr_id, interviewer_id, availability_slot_id, slot_time,
	duration_minutes, mode, location, status, feedback, created_at, updated_at`

// InsertTx creates a scheduled interview bound to iv.SlotID.  A second
// scheduled interview for the same slot fails with ErrSlotUnavailable.
func (r *InterviewRepo) InsertTx(ctx context.Context, tx *sql.Tx, iv *model.Interview) error {
	var feedback any
	if len(iv.Feedback) > 0 {
		s, err := toJSON(iv.Feedback)
		if err != nil {
			return err
		}
		feedback = s
	}
	iv.SlotTime = dbTime(iv.SlotTime)
	iv.CreatedAt = dbTime(iv.CreatedAt)
	iv.UpdatedAt = iv.CreatedAt
	_, err := tx.ExecContext(ctx,
		`INSERT INTO interviews (id, candidate_id, rr_id, interviewer_id, availability_slot_id, active_slot_id,
		     slot_time, duration_minutes, mode, location, status, feedback, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.CandidateID, iv.RRID, iv.InterviewerID, iv.SlotID, iv.SlotID,
		iv.SlotTime, iv.DurationMinutes, iv.Mode, iv.Location, string(iv.Status), feedback,
		iv.CreatedAt, iv.UpdatedAt,
	)
	if isDuplicate(err) {
		return ErrSlotUnavailable
	}
	return err
}

// CancelTx moves a scheduled interview to cancelled and detaches it from
// its slot.  Interviews in any other state yield ErrConflict.
func (r *InterviewRepo) CancelTx(ctx context.Context, tx *sql.Tx, id string, now time.Time) (model.Interview, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE interviews SET status = 'cancelled', active_slot_id = NULL, updated_at = ?
		  WHERE id = ? AND status = 'scheduled'`,
		dbTime(now), id,
	)
	if err != nil {
		return model.Interview{}, err
	}
	return r.afterUpdate(ctx, tx, id, res)
}

// UpdateOutcomeTx records the result of a held interview.  Only scheduled,
// completed and no-show interviews accept an outcome; a cancelled
// interview yields ErrConflict.
func (r *InterviewRepo) UpdateOutcomeTx(ctx context.Context, tx *sql.Tx, id string, status model.InterviewStatus, feedback map[string]string, now time.Time) (model.Interview, error) {
	var fb any
	if len(feedback) > 0 {
		s, err := toJSON(feedback)
		if err != nil {
			return model.Interview{}, err
		}
		fb = s
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE interviews SET status = ?, feedback = ?, updated_at = ?
		  WHERE id = ? AND status IN ('scheduled', 'completed', 'no_show')`,
		string(status), fb, dbTime(now), id,
	)
	if err != nil {
		return model.Interview{}, err
	}
	return r.afterUpdate(ctx, tx, id, res)
}

func (r *InterviewRepo) afterUpdate(ctx context.Context, tx *sql.Tx, id string, res sql.Result) (model.Interview, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return model.Interview{}, err
	}
	iv, err := getInterview(ctx, tx, id)
	if err != nil {
		return model.Interview{}, err
	}
	if n == 0 {
		return iv, ErrConflict
	}
	return iv, nil
}

// Get fetches an interview by id.
func (r *InterviewRepo) Get(ctx context.Context, id string) (model.Interview, error) {
	return getInterview(ctx, r.db, id)
}

// CountBySlotTx counts interviews bound to a slot that are not cancelled.
func (r *InterviewRepo) CountBySlotTx(ctx context.Context, tx *sql.Tx, slotID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interviews WHERE availability_slot_id = ? AND status <> 'cancelled'`, slotID).Scan(&n)
	return n, err
}

// InterviewFilter narrows List.  Empty fields match everything.
type InterviewFilter struct {
	CandidateID string
	RRID        string
	Status      model.InterviewStatus
}

// List returns matching interviews ordered by slot time.
func (r *InterviewRepo) List(ctx context.Context, f InterviewFilter) ([]model.Interview, error) {
	q := `SELECT ` + interviewColumns + ` FROM interviews WHERE 1=1`
	var args []any
	if f.CandidateID != "" {
		q += ` AND candidate_id = ?`
		args = append(args, f.CandidateID)
	}
	if f.RRID != "" {
		q += ` AND rr_id = ?`
		args = append(args, f.RRID)
	}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	q += ` ORDER BY slot_time, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Interview{}
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func getInterview(ctx context.Context, q queryer, id string) (model.Interview, error) {
	iv, err := scanInterview(q.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Interview{}, ErrNotFound
	}
	return iv, err
}

func scanInterview(rs rowScanner) (model.Interview, error) {
	var (
		iv       model.Interview
		status   string
		feedback sql.NullString
	)
	if err := rs.Scan(&iv.ID, &iv.CandidateID, &iv.RRID, &iv.InterviewerID, &iv.SlotID, &iv.SlotTime,
		&iv.DurationMinutes, &iv.Mode, &iv.Location, &status, &feedback, &iv.CreatedAt, &iv.UpdatedAt); err != nil {
		return model.Interview{}, err
	}
	var err error
	if iv.Feedback, err = mapFromJSON(feedback); err != nil {
		return model.Interview{}, err
	}
	iv.Status = model.InterviewStatus(status)
	iv.SlotTime = iv.SlotTime.UTC()
	iv.CreatedAt = iv.CreatedAt.UTC()
	iv.UpdatedAt = iv.UpdatedAt.UTC()
	return iv, nil
}
