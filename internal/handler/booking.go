package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hrpass/internal/middleware"
	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/repository"
	"github.com/iliyamo/hrpass/internal/service"
)

// BookingHandler serves availability slots and interviews.
type BookingHandler struct {
	Booking *service.BookingService
	Notify  *service.NotificationService
}

func NewBookingHandler(b *service.BookingService, n *service.NotificationService) *BookingHandler {
	return &BookingHandler{Booking: b, Notify: n}
}

type slotReq struct {
	RRID            string    `json:"rr_id"`
	InterviewerID   string    `json:"interviewer_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Mode            string    `json:"mode"`
	Location        string    `json:"location"`
}

type slotActionReq struct {
	CandidateID string            `json:"candidate_id"`
	Mode        string            `json:"mode"`
	Location    string            `json:"location"`
	Feedback    map[string]string `json:"feedback"`
}

// bindAction reads a hold/release/book body and resolves the candidate the
// caller may act for.  Admins name any candidate; other passes act only
// for their own subject.
func bindAction(c echo.Context) (slotActionReq, string, error) {
	var req slotActionReq
	if err := c.Bind(&req); err != nil {
		return req, "", fmt.Errorf("%w: invalid body", service.ErrValidation)
	}
	cand := req.CandidateID
	if !middleware.IsAdmin(c) {
		sub := middleware.Subject(c)
		if cand != "" && cand != sub {
			return req, "", repository.ErrForbidden
		}
		cand = sub
	}
	if cand == "" {
		return req, "", fmt.Errorf("%w: candidate_id is required", service.ErrValidation)
	}
	return req, cand, nil
}

func (h *BookingHandler) CreateSlot(c echo.Context) error {
	var req slotReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.Booking.CreateSlot(ctx, middleware.Subject(c), model.AvailabilitySlot{
		RRID:            req.RRID,
		InterviewerID:   req.InterviewerID,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Mode:            req.Mode,
		Location:        req.Location,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// ListSlots lists ?rr_id= slots with lazy expiry applied, optionally
// filtered by ?status=.
func (h *BookingHandler) ListSlots(c echo.Context) error {
	rrID := c.QueryParam("rr_id")
	if rrID == "" {
		return badRequest(c, "rr_id is required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	out, err := h.Booking.ListSlots(ctx, rrID, model.SlotStatus(c.QueryParam("status")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *BookingHandler) GetSlot(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.Booking.GetSlot(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *BookingHandler) Hold(c echo.Context) error {
	_, cand, err := bindAction(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.Booking.Hold(ctx, middleware.Subject(c), c.Param("id"), cand)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *BookingHandler) Release(c echo.Context) error {
	_, cand, err := bindAction(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.Booking.Release(ctx, middleware.Subject(c), c.Param("id"), cand)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *BookingHandler) Book(c echo.Context) error {
	req, cand, err := bindAction(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	iv, err := h.Booking.Book(ctx, middleware.Subject(c), c.Param("id"), cand, service.InterviewFields{
		Mode: req.Mode, Location: req.Location, Feedback: req.Feedback,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, iv)
}

func (h *BookingHandler) ListInterviews(c echo.Context) error {
	f := repository.InterviewFilter{
		CandidateID: c.QueryParam("candidate_id"),
		RRID:        c.QueryParam("rr_id"),
		Status:      model.InterviewStatus(c.QueryParam("status")),
	}
	if !middleware.IsAdmin(c) {
		f.CandidateID = middleware.Subject(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	out, err := h.Booking.ListInterviews(ctx, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ownInterview loads the interview and checks the caller may see it.
func (h *BookingHandler) ownInterview(ctx context.Context, c echo.Context) (model.Interview, error) {
	iv, err := h.Booking.GetInterview(ctx, c.Param("id"))
	if err != nil {
		return iv, err
	}
	if !middleware.IsAdmin(c) && iv.CandidateID != middleware.Subject(c) {
		return iv, repository.ErrForbidden
	}
	return iv, nil
}

func (h *BookingHandler) GetInterview(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	iv, err := h.ownInterview(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, iv)
}

func (h *BookingHandler) Cancel(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	iv, err := h.Booking.Cancel(ctx, middleware.Subject(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, iv)
}

type outcomeReq struct {
	Status   model.InterviewStatus `json:"status"`
	Feedback map[string]string     `json:"feedback"`
}

func (h *BookingHandler) Outcome(c echo.Context) error {
	var req outcomeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	iv, err := h.Booking.UpdateOutcome(ctx, middleware.Subject(c), c.Param("id"), req.Status, req.Feedback)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, iv)
}

// Calendar serves the interview as an iCalendar file.
func (h *BookingHandler) Calendar(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if _, err := h.ownInterview(ctx, c); err != nil {
		return respondError(c, err)
	}
	ics, err := h.Notify.CalendarFor(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set("Content-Disposition", `attachment; filename="interview.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

// SendNotification emails and messages the candidate now.  Provider
// failures answer 502; the interview itself is unaffected.
func (h *BookingHandler) SendNotification(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()
	if err := h.Notify.NotifyInterview(ctx, middleware.Subject(c), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sent": true})
}
