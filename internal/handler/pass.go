package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hrpass/internal/middleware"
	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/service"
)

// PassHandler exposes pass issuance and inspection.
type PassHandler struct {
	Passes *service.PassService
}

func NewPassHandler(p *service.PassService) *PassHandler { return &PassHandler{Passes: p} }

type issueReq struct {
	Subject  string            `json:"subject"`
	Type     model.PassType    `json:"type"`
	Scope    []string          `json:"scope"`
	TTLHours int               `json:"ttl_hours"`
	MaxUses  int               `json:"max_uses"`
	Meta     map[string]string `json:"meta"`
}

// Issue mints a pass.  Admin only.
func (h *PassHandler) Issue(c echo.Context) error {
	var req issueReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	issued, err := h.Passes.Issue(ctx, middleware.Subject(c), service.IssueRequest{
		Subject: req.Subject,
		Type:    req.Type,
		Scope:   req.Scope,
		TTL:     time.Duration(req.TTLHours) * time.Hour,
		MaxUses: req.MaxUses,
		Meta:    req.Meta,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, issued)
}

// List returns passes, optionally filtered by ?subject=.
func (h *PassHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	out, err := h.Passes.List(ctx, c.QueryParam("subject"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PassHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	p, err := h.Passes.Get(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Revoke revokes a pass; repeating the call is harmless.
func (h *PassHandler) Revoke(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	p, err := h.Passes.Revoke(ctx, middleware.Subject(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Introspect describes the caller's own pass.  It sits behind a
// verify-only guard, so asking does not spend a use.
func (h *PassHandler) Introspect(c echo.Context) error {
	claims, _ := middleware.Claims(c)
	p, _ := middleware.CurrentPass(c)
	return c.JSON(http.StatusOK, echo.Map{
		"claims":         claims,
		"status":         p.Status,
		"used_count":     p.UsedCount,
		"remaining_uses": p.RemainingUses(),
		"expires_at":     p.ExpiresAt,
	})
}
