package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/repository"
)

// RecruitmentHandler serves recruitment requests (RRs) and candidates.
type RecruitmentHandler struct {
	RRs        *repository.RecruitmentRepo
	Candidates *repository.CandidateRepo
}

func NewRecruitmentHandler(rrs *repository.RecruitmentRepo, cands *repository.CandidateRepo) *RecruitmentHandler {
	return &RecruitmentHandler{RRs: rrs, Candidates: cands}
}

type rrReq struct {
	Title           string   `json:"title"`
	Department      string   `json:"department"`
	Location        string   `json:"location"`
	Level           string   `json:"level"`
	SalaryRange     string   `json:"salary_range"`
	JDURL           string   `json:"jd_url"`
	Status          string   `json:"status"`
	HiringManagerID string   `json:"hiring_manager_id"`
	AgencyIDs       []string `json:"agency_ids"`
}

func (r rrReq) apply(rr *model.RecruitmentRequest) {
	rr.Title = strings.TrimSpace(r.Title)
	rr.Department = r.Department
	rr.Location = r.Location
	rr.Level = r.Level
	rr.SalaryRange = r.SalaryRange
	rr.JDURL = r.JDURL
	rr.Status = r.Status
	rr.HiringManagerID = r.HiringManagerID
	rr.AgencyIDs = r.AgencyIDs
}

func (h *RecruitmentHandler) CreateRR(c echo.Context) error {
	var req rrReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Status == "" {
		req.Status = "open"
	}
	if strings.TrimSpace(req.Title) == "" {
		return badRequest(c, "title is required")
	}
	if !model.RRStatuses[req.Status] {
		return badRequest(c, "invalid status")
	}
	rr := model.RecruitmentRequest{ID: uuid.NewString(), CreatedAt: time.Now()}
	req.apply(&rr)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.RRs.Create(ctx, &rr); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, rr)
}

// ListRR lists RRs, optionally filtered by ?status=.
func (h *RecruitmentHandler) ListRR(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	out, err := h.RRs.List(ctx, c.QueryParam("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RecruitmentHandler) GetRR(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	rr, err := h.RRs.Get(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rr)
}

func (h *RecruitmentHandler) UpdateRR(c echo.Context) error {
	var req rrReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	rr, err := h.RRs.Get(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if req.Status == "" {
		req.Status = rr.Status
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = rr.Title
	}
	if !model.RRStatuses[req.Status] {
		return badRequest(c, "invalid status")
	}
	req.apply(&rr)
	if err := h.RRs.Update(ctx, &rr, time.Now()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rr)
}

// DeleteRR removes an RR with no candidates or slots; 409 otherwise.
func (h *RecruitmentHandler) DeleteRR(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.RRs.Delete(ctx, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type candidateReq struct {
	RRID      string            `json:"rr_id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	ResumeURL string            `json:"resume_url"`
	Source    string            `json:"source"`
	Notes     map[string]string `json:"notes"`
}

func (h *RecruitmentHandler) CreateCandidate(c echo.Context) error {
	var req candidateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.RRID == "" || strings.TrimSpace(req.Name) == "" {
		return badRequest(c, "rr_id and name are required")
	}
	cand := model.Candidate{
		ID:           uuid.NewString(),
		RRID:         req.RRID,
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		ResumeURL:    req.ResumeURL,
		Source:       req.Source,
		CurrentStage: model.CandidateStages[0],
		Notes:        req.Notes,
		CreatedAt:    time.Now(),
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Candidates.Create(ctx, &cand); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, cand)
}

// ListCandidates lists candidates, optionally restricted by ?rr_id=.
func (h *RecruitmentHandler) ListCandidates(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	out, err := h.Candidates.List(ctx, c.QueryParam("rr_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RecruitmentHandler) GetCandidate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	cand, err := h.Candidates.Get(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cand)
}

type stageReq struct {
	Stage string `json:"stage"`
}

func (h *RecruitmentHandler) UpdateStage(c echo.Context) error {
	var req stageReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if !model.ValidStage(req.Stage) {
		return badRequest(c, "invalid stage")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Candidates.UpdateStage(ctx, c.Param("id"), req.Stage); err != nil {
		return respondError(c, err)
	}
	cand, err := h.Candidates.Get(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cand)
}
