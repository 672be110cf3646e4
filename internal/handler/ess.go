package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hrpass/internal/middleware"
	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/repository"
)

// ESSHandler serves employee self-service requests.
type ESSHandler struct {
	ESS *repository.ESSRepo
}

func NewESSHandler(r *repository.ESSRepo) *ESSHandler { return &ESSHandler{ESS: r} }

type essReq struct {
	EmployeeID  string            `json:"employee_id"`
	Type        string            `json:"type"`
	Payload     map[string]string `json:"payload"`
	Attachments []string          `json:"attachments"`
}

func (h *ESSHandler) Create(c echo.Context) error {
	var req essReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	emp, ok := employeeFor(c, req.EmployeeID)
	if !ok {
		return badRequest(c, "employee_id is required and must match the pass")
	}
	if strings.TrimSpace(req.Type) == "" {
		return badRequest(c, "type is required")
	}
	e := model.ESSRequest{
		ID:          uuid.NewString(),
		EmployeeID:  emp,
		Type:        strings.TrimSpace(req.Type),
		Payload:     req.Payload,
		Attachments: req.Attachments,
		CreatedAt:   time.Now(),
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.ESS.Create(ctx, &e); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// List returns requests of ?employee_id=; admins may omit it to list all.
func (h *ESSHandler) List(c echo.Context) error {
	emp := c.QueryParam("employee_id")
	if !middleware.IsAdmin(c) {
		if emp != "" && emp != middleware.Subject(c) {
			return forbidden(c)
		}
		emp = middleware.Subject(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	out, err := h.ESS.ListByEmployee(ctx, emp)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type essStatusReq struct {
	Status string `json:"status"`
}

// UpdateStatus moves a request along.  Admin only.
func (h *ESSHandler) UpdateStatus(c echo.Context) error {
	var req essStatusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if !model.ESSStatuses[req.Status] {
		return badRequest(c, "invalid status")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	e, err := h.ESS.UpdateStatus(ctx, c.Param("id"), req.Status, time.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}
