package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hrpass/internal/middleware"
	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/repository"
)

// AttendanceHandler serves clock-in/out and work-from-home approval.
type AttendanceHandler struct {
	Attendance *repository.AttendanceRepo
	Audit      *repository.AuditRepo
	Retries    int
	Now        func() time.Time
}

func NewAttendanceHandler(a *repository.AttendanceRepo, audit *repository.AuditRepo, retries int) *AttendanceHandler {
	return &AttendanceHandler{Attendance: a, Audit: audit, Retries: retries, Now: time.Now}
}

// employeeFor returns the employee the caller may act for: admins name
// anyone, employees only themselves.
func employeeFor(c echo.Context, requested string) (string, bool) {
	if middleware.IsAdmin(c) {
		return requested, requested != ""
	}
	sub := middleware.Subject(c)
	return sub, requested == "" || requested == sub
}

type clockReq struct {
	EmployeeID string `json:"employee_id"`
	WorkMode   string `json:"work_mode"`
}

func (h *AttendanceHandler) ClockIn(c echo.Context) error {
	var req clockReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	emp, ok := employeeFor(c, req.EmployeeID)
	if !ok {
		return badRequest(c, "employee_id is required and must match the pass")
	}
	if req.WorkMode != "" && !model.ValidWorkMode(req.WorkMode) {
		return badRequest(c, "invalid work_mode")
	}
	now := h.Now().UTC().Truncate(time.Second)
	a := model.AttendanceLog{
		ID:         uuid.NewString(),
		EmployeeID: emp,
		WorkDate:   repository.WorkDate(now),
		TimeIn:     &now,
		WorkMode:   req.WorkMode,
		CreatedAt:  now,
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Attendance.ClockIn(ctx, &a); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *AttendanceHandler) ClockOut(c echo.Context) error {
	var req clockReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	emp, ok := employeeFor(c, req.EmployeeID)
	if !ok {
		return badRequest(c, "employee_id is required and must match the pass")
	}
	now := h.Now()
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	a, err := h.Attendance.ClockOut(ctx, emp, repository.WorkDate(now), now, h.Retries)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// List returns the attendance rows of ?employee_id=.
func (h *AttendanceHandler) List(c echo.Context) error {
	emp, ok := employeeFor(c, c.QueryParam("employee_id"))
	if !ok {
		return badRequest(c, "employee_id is required and must match the pass")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	out, err := h.Attendance.ListByEmployee(ctx, emp)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type wfhDecisionReq struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// DecideWFH approves or rejects a pending work-from-home day.  Admin only.
func (h *AttendanceHandler) DecideWFH(c echo.Context) error {
	var req wfhDecisionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	approver := middleware.Subject(c)
	a, err := h.Attendance.DecideWFH(ctx, c.Param("id"), req.Approve, approver, req.Notes, h.Now())
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Audit.Append(ctx, model.AuditLog{
		Actor: approver, Action: "attendance.wfh_decision", EntityType: "attendance", EntityID: a.ID,
		Metadata: map[string]string{"wfh_status": a.WFHStatus},
	}); err != nil {
		middleware.Logger(c).Error("audit wfh decision failed", "attendance_id", a.ID, "error", err)
	}
	return c.JSON(http.StatusOK, a)
}
