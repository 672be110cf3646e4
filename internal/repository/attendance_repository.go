package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/iliyamo/hrpass/internal/model"
)

// Attendance failures that the handlers report as 400.
var (
	ErrAlreadyClockedIn  = errors.New("already clocked in for this date")
	ErrNotClockedIn      = errors.New("no clock-in for this date")
	ErrAlreadyClockedOut = errors.New("already clocked out for this date")
)

// AttendanceRepo provides data access to attendance_logs.  There is at
// most one row per employee and calendar day (UTC).
type AttendanceRepo struct {
	db *sql.DB
}

// NewAttendanceRepo returns a new AttendanceRepo bound to the provided database.
func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

const attendanceColumns = `id, employee_id, work_date, time_in, time_out, total_hours, work_mode, wfh_status,
	approver_id, approval_time, approval_notes, status, created_at`

// WorkDate returns the YYYY-MM-DD key for t in UTC.
func WorkDate(t time.Time) string { return t.UTC().Format("2006-01-02") }

// ClockIn opens the day's row for the employee.  Work-from-home rows start
// out pending approval.
func (r *AttendanceRepo) ClockIn(ctx context.Context, a *model.AttendanceLog) error {
	if a.WorkMode == "" {
		a.WorkMode = model.WorkModeOffice
	}
	a.WFHStatus = model.WFHNotApplicable
	if a.WorkMode == model.WorkModeWFH {
		a.WFHStatus = model.WFHPending
	}
	a.Status = "present"
	a.CreatedAt = dbTime(a.CreatedAt)
	if a.TimeIn == nil {
		t := a.CreatedAt
		a.TimeIn = &t
	}
	if a.WorkDate == "" {
		a.WorkDate = WorkDate(*a.TimeIn)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance_logs (id, employee_id, work_date, time_in, work_mode, wfh_status, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.EmployeeID, a.WorkDate, nullTime(a.TimeIn), a.WorkMode, a.WFHStatus, a.Status, a.CreatedAt,
	)
	if isDuplicate(err) {
		return ErrAlreadyClockedIn
	}
	return err
}

// ClockOut closes the employee's row for date, storing total hours rounded
// to two decimals.
func (r *AttendanceRepo) ClockOut(ctx context.Context, employeeID, date string, now time.Time, maxRetries int) (model.AttendanceLog, error) {
	err := InTx(ctx, r.db, maxRetries, func(tx *sql.Tx) error {
		a, err := scanAttendance(tx.QueryRowContext(ctx,
			`SELECT `+attendanceColumns+` FROM attendance_logs WHERE employee_id = ? AND work_date = ?`,
			employeeID, date))
		if errors.Is(err, sql.ErrNoRows) || (err == nil && a.TimeIn == nil) {
			return ErrNotClockedIn
		}
		if err != nil {
			return err
		}
		if a.TimeOut != nil {
			return ErrAlreadyClockedOut
		}
		clockOut := dbTime(now)
		hours := math.Round(clockOut.Sub(*a.TimeIn).Hours()*100) / 100
		if hours < 0 {
			hours = 0
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE attendance_logs SET time_out = ?, total_hours = ? WHERE id = ? AND time_out IS NULL`,
			clockOut, hours, a.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAlreadyClockedOut
		}
		return nil
	})
	if err != nil {
		return model.AttendanceLog{}, err
	}
	return r.GetByDate(ctx, employeeID, date)
}

// DecideWFH approves or rejects a pending work-from-home row.  Rows that
// are not pending yield ErrConflict.
func (r *AttendanceRepo) DecideWFH(ctx context.Context, id string, approve bool, approverID, notes string, now time.Time) (model.AttendanceLog, error) {
	status := model.WFHRejected
	if approve {
		status = model.WFHApproved
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE attendance_logs SET wfh_status = ?, approver_id = ?, approval_time = ?, approval_notes = ?
		  WHERE id = ? AND wfh_status = ?`,
		status, approverID, dbTime(now), notes, id, model.WFHPending)
	if err != nil {
		return model.AttendanceLog{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.AttendanceLog{}, err
	}
	a, err := r.Get(ctx, id)
	if err != nil {
		return model.AttendanceLog{}, err
	}
	if n == 0 {
		return a, ErrConflict
	}
	return a, nil
}

// Get fetches an attendance row by id.
func (r *AttendanceRepo) Get(ctx context.Context, id string) (model.AttendanceLog, error) {
	a, err := scanAttendance(r.db.QueryRowContext(ctx, `SELECT `+attendanceColumns+` FROM attendance_logs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

// GetByDate fetches the employee's row for date.
func (r *AttendanceRepo) GetByDate(ctx context.Context, employeeID, date string) (model.AttendanceLog, error) {
	a, err := scanAttendance(r.db.QueryRowContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance_logs WHERE employee_id = ? AND work_date = ?`, employeeID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

// ListByEmployee returns an employee's rows, most recent day first.  An
// empty employeeID lists every row.
func (r *AttendanceRepo) ListByEmployee(ctx context.Context, employeeID string) ([]model.AttendanceLog, error) {
	q := `SELECT ` + attendanceColumns + ` FROM attendance_logs`
	var args []any
	if employeeID != "" {
		q += ` WHERE employee_id = ?`
		args = append(args, employeeID)
	}
	q += ` ORDER BY work_date DESC, employee_id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AttendanceLog{}
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAttendance(rs rowScanner) (model.AttendanceLog, error) {
	var (
		a                         model.AttendanceLog
		timeIn, timeOut, approval sql.NullTime
	)
	if err := rs.Scan(&a.ID, &a.EmployeeID, &a.WorkDate, &timeIn, &timeOut, &a.TotalHours, &a.WorkMode,
		&a.WFHStatus, &a.ApproverID, &approval, &a.ApprovalNotes, &a.Status, &a.CreatedAt); err != nil {
		return model.AttendanceLog{}, err
	}
	a.TimeIn = timePtr(timeIn)
	a.TimeOut = timePtr(timeOut)
	a.ApprovalTime = timePtr(approval)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}
