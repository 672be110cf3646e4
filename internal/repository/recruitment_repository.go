package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hrpass/internal/model"
)

// RecruitmentRepo encapsulates the queries for recruitment requests (RRs).
// Candidates, slots and interviews reference an RR, so an RR that still has
// dependents cannot be deleted.
type RecruitmentRepo struct {
	db *sql.DB
}

// NewRecruitmentRepo constructs a RecruitmentRepo with the provided DB handle.
func NewRecruitmentRepo(db *sql.DB) *RecruitmentRepo { return &RecruitmentRepo{db: db} }

const rrColumns = `id, title, department, location, level, salary_range, jd_url, status, hiring_manager_id, agency_ids, created_at, updated_at`

// Create inserts a new RR.  ID and timestamps must be set by the caller.
func (r *RecruitmentRepo) Create(ctx context.Context, rr *model.RecruitmentRequest) error {
	agencies, err := toJSON(nonNil(rr.AgencyIDs))
	if err != nil {
		return err
	}
	rr.CreatedAt = dbTime(rr.CreatedAt)
	rr.UpdatedAt = rr.CreatedAt
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO recruitment_requests (`+rrColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rr.ID, rr.Title, rr.Department, rr.Location, rr.Level, rr.SalaryRange, rr.JDURL, rr.Status,
		rr.HiringManagerID, agencies, rr.CreatedAt, rr.UpdatedAt,
	)
	return err
}

// Get fetches an RR by id.  It returns ErrNotFound if no row exists.
func (r *RecruitmentRepo) Get(ctx context.Context, id string) (model.RecruitmentRequest, error) {
	rr, err := scanRR(r.db.QueryRowContext(ctx, `SELECT `+rrColumns+` FROM recruitment_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rr, ErrNotFound
	}
	return rr, err
}

// List returns RRs, optionally filtered by status, newest first.
func (r *RecruitmentRepo) List(ctx context.Context, status string) ([]model.RecruitmentRequest, error) {
	q := `SELECT ` + rrColumns + ` FROM recruitment_requests`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RecruitmentRequest{}
	for rows.Next() {
		rr, err := scanRR(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// Update overwrites the mutable fields of an RR.  It returns ErrNotFound
// when no row matches.
func (r *RecruitmentRepo) Update(ctx context.Context, rr *model.RecruitmentRequest, now time.Time) error {
	agencies, err := toJSON(nonNil(rr.AgencyIDs))
	if err != nil {
		return err
	}
	rr.UpdatedAt = dbTime(now)
	res, err := r.db.ExecContext(ctx,
		`UPDATE recruitment_requests
		    SET title = ?, department = ?, location = ?, level = ?, salary_range = ?, jd_url = ?,
		        status = ?, hiring_manager_id = ?, agency_ids = ?, updated_at = ?
		  WHERE id = ?`,
		rr.Title, rr.Department, rr.Location, rr.Level, rr.SalaryRange, rr.JDURL,
		rr.Status, rr.HiringManagerID, agencies, rr.UpdatedAt, rr.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, rr.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an RR that has no candidates or slots.  ErrConflict is
// returned when dependents exist, ErrNotFound when the RR does not.
func (r *RecruitmentRepo) Delete(ctx context.Context, id string) error {
	var deps int
	if err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM candidates WHERE rr_id = ?) + (SELECT COUNT(*) FROM availability_slots WHERE rr_id = ?)`,
		id, id).Scan(&deps); err != nil {
		return err
	}
	if deps > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM recruitment_requests WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRR(rs rowScanner) (model.RecruitmentRequest, error) {
	var (
		rr       model.RecruitmentRequest
		agencies sql.NullString
	)
	if err := rs.Scan(&rr.ID, &rr.Title, &rr.Department, &rr.Location, &rr.Level, &rr.SalaryRange, &rr.JDURL,
		&rr.Status, &rr.HiringManagerID, &agencies, &rr.CreatedAt, &rr.UpdatedAt); err != nil {
		return model.RecruitmentRequest{}, err
	}
	var err error
	if rr.AgencyIDs, err = stringsFromJSON(agencies); err != nil {
		return model.RecruitmentRequest{}, err
	}
	rr.CreatedAt = rr.CreatedAt.UTC()
	rr.UpdatedAt = rr.UpdatedAt.UTC()
	return rr, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// CandidateRepo provides data access to the candidates table.
type CandidateRepo struct {
	db *sql.DB
}

// NewCandidateRepo returns a new CandidateRepo bound to the provided database.
func NewCandidateRepo(db *sql.DB) *CandidateRepo { return &CandidateRepo{db: db} }

const candidateColumns = `id, rr_id, name, email, phone, resume_url, source, current_stage, notes, created_at`

// Create inserts a candidate.  A missing RR is reported as ErrNotFound.
func (r *CandidateRepo) Create(ctx context.Context, c *model.Candidate) error {
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recruitment_requests WHERE id = ?`, c.RRID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	var notes any
	if len(c.Notes) > 0 {
		s, err := toJSON(c.Notes)
		if err != nil {
			return err
		}
		notes = s
	}
	c.CreatedAt = dbTime(c.CreatedAt)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO candidates (`+candidateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.RRID, c.Name, c.Email, c.Phone, c.ResumeURL, c.Source, c.CurrentStage, notes, c.CreatedAt,
	)
	return err
}

// Get fetches a candidate by id.
func (r *CandidateRepo) Get(ctx context.Context, id string) (model.Candidate, error) {
	c, err := scanCandidate(r.db.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// List returns candidates, optionally restricted to one RR.
func (r *CandidateRepo) List(ctx context.Context, rrID string) ([]model.Candidate, error) {
	q := `SELECT ` + candidateColumns + ` FROM candidates`
	var args []any
	if rrID != "" {
		q += ` WHERE rr_id = ?`
		args = append(args, rrID)
	}
	q += ` ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateStage moves a candidate to stage.
func (r *CandidateRepo) UpdateStage(ctx context.Context, id, stage string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE candidates SET current_stage = ? WHERE id = ?`, stage, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports zero rows when the value is unchanged.
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func scanCandidate(rs rowScanner) (model.Candidate, error) {
	var (
		c     model.Candidate
		notes sql.NullString
	)
	if err := rs.Scan(&c.ID, &c.RRID, &c.Name, &c.Email, &c.Phone, &c.ResumeURL, &c.Source,
		&c.CurrentStage, &notes, &c.CreatedAt); err != nil {
		return model.Candidate{}, err
	}
	var err error
	if c.Notes, err = mapFromJSON(notes); err != nil {
		return model.Candidate{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}
