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

// Cache groups of the listings served through the response cache.
const (
	PolicyCacheGroup   = "policies"
	TemplateCacheGroup = "templates"
)

// PolicyHandler serves policies, acknowledgements and templates.
type PolicyHandler struct {
	Policies *repository.PolicyRepo
	// Invalidate drops a cache group after a write; nil when caching is off.
	Invalidate func(ctx context.Context, group string) error
}

func NewPolicyHandler(p *repository.PolicyRepo, invalidate func(context.Context, string) error) *PolicyHandler {
	return &PolicyHandler{Policies: p, Invalidate: invalidate}
}

func (h *PolicyHandler) invalidate(ctx context.Context, c echo.Context, group string) {
	if h.Invalidate == nil {
		return
	}
	if err := h.Invalidate(ctx, group); err != nil {
		middleware.Logger(c).Warn("cache invalidation failed", "group", group, "error", err)
	}
}

type policyReq struct {
	Title         string   `json:"title"`
	Version       string   `json:"version"`
	Category      string   `json:"category"`
	Status        string   `json:"status"`
	Owner         string   `json:"owner"`
	EffectiveDate string   `json:"effective_date"`
	FileURL       string   `json:"file_url"`
	Summary       string   `json:"summary"`
	Tags          []string `json:"tags"`
}

func (r policyReq) validate() string {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Version) == "" {
		return "title and version are required"
	}
	if !model.PolicyStatuses[r.Status] {
		return "invalid status"
	}
	if r.EffectiveDate != "" {
		if _, err := time.Parse("2006-01-02", r.EffectiveDate); err != nil {
			return "effective_date must be YYYY-MM-DD"
		}
	}
	return ""
}

func (r policyReq) apply(p *model.Policy) {
	p.Title = strings.TrimSpace(r.Title)
	p.Version = strings.TrimSpace(r.Version)
	p.Category = r.Category
	p.Status = r.Status
	p.Owner = r.Owner
	p.EffectiveDate = r.EffectiveDate
	p.FileURL = r.FileURL
	p.Summary = r.Summary
	p.Tags = r.Tags
}

func (h *PolicyHandler) Create(c echo.Context) error {
	var req policyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Status == "" {
		req.Status = "draft"
	}
	if msg := req.validate(); msg != "" {
		return badRequest(c, msg)
	}
	p := model.Policy{ID: uuid.NewString(), CreatedAt: time.Now()}
	req.apply(&p)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Policies.Create(ctx, &p); err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx, c, PolicyCacheGroup)
	return c.JSON(http.StatusCreated, p)
}

func (h *PolicyHandler) Update(c echo.Context) error {
	var req policyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	p, err := h.Policies.Get(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if req.Status == "" {
		req.Status = p.Status
	}
	if msg := req.validate(); msg != "" {
		return badRequest(c, msg)
	}
	req.apply(&p)
	if err := h.Policies.Update(ctx, &p, time.Now()); err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx, c, PolicyCacheGroup)
	return c.JSON(http.StatusOK, p)
}

// List returns policies, optionally filtered by ?status=.
func (h *PolicyHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	out, err := h.Policies.List(ctx, c.QueryParam("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PolicyHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	p, err := h.Policies.Get(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Ack records the caller's acknowledgement of the current version.  A
// second ack of the same version answers 409.
func (h *PolicyHandler) Ack(c echo.Context) error {
	a := model.PolicyAck{
		ID:         uuid.NewString(),
		PolicyID:   c.Param("id"),
		EmployeeID: middleware.Subject(c),
		AckAt:      time.Now(),
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Policies.Ack(ctx, &a); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// ListAcks returns every acknowledgement of a policy.  Admin only.
func (h *PolicyHandler) ListAcks(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	out, err := h.Policies.ListAcks(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type templateReq struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	FileURL     string `json:"file_url"`
	Description string `json:"description"`
}

func (h *PolicyHandler) CreateTemplate(c echo.Context) error {
	var req templateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.FileURL) == "" {
		return badRequest(c, "title and file_url are required")
	}
	t := model.TemplateDoc{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Category:    req.Category,
		FileURL:     strings.TrimSpace(req.FileURL),
		Description: req.Description,
		UpdatedAt:   time.Now(),
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Policies.CreateTemplate(ctx, &t); err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx, c, TemplateCacheGroup)
	return c.JSON(http.StatusCreated, t)
}

// ListTemplates returns templates, optionally filtered by ?category=.
func (h *PolicyHandler) ListTemplates(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	out, err := h.Policies.ListTemplates(ctx, c.QueryParam("category"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
