package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hrpass/internal/database/sqlitetest"
	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/queue"
	"github.com/iliyamo/hrpass/internal/repository"
	"github.com/iliyamo/hrpass/internal/utils"
)

// clock is a settable time source shared by every service in a test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.InterviewEvent
}

func (p *recordingPublisher) PublishInterviewEvent(_ context.Context, ev queue.InterviewEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type env struct {
	db        *sql.DB
	clock     *clock
	audit     *repository.AuditRepo
	passRepo  *repository.PassRepo
	rrs       *repository.RecruitmentRepo
	cands     *repository.CandidateRepo
	passes    *PassService
	admin     *AdminAuth
	booking   *BookingService
	published *recordingPublisher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := sqlitetest.Open(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := &clock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}

	e := &env{
		db:        db,
		clock:     clk,
		audit:     repository.NewAuditRepo(db, nil),
		passRepo:  repository.NewPassRepo(db),
		rrs:       repository.NewRecruitmentRepo(db),
		cands:     repository.NewCandidateRepo(db),
		published: &recordingPublisher{},
	}
	e.passes = NewPassService(e.passRepo, e.audit, utils.NewPassCodec("test-secret", clk.Now),
		PassPolicy{}, 2, log, clk.Now)
	e.admin = NewAdminAuth(repository.NewAdminRepo(db), e.audit, e.passes,
		AdminPolicy{TOTPSkew: 1, BcryptCost: 4}, log, clk.Now)
	e.booking = NewBookingService(BookingDeps{
		DB: db, Slots: repository.NewSlotRepo(db), Interviews: repository.NewInterviewRepo(db),
		Candidates: e.cands, RRs: e.rrs, Audit: e.audit, Publisher: e.published,
		HoldWindow: 10 * time.Minute, Retries: 2, Log: log, Now: clk.Now,
	})
	return e
}

func (e *env) requisition(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, e.rrs.Create(context.Background(), &model.RecruitmentRequest{
		ID: id, Title: "Platform Engineer", Status: "open", CreatedAt: e.clock.Now(),
	}))
}

func (e *env) candidate(t *testing.T, id, rrID string) {
	t.Helper()
	require.NoError(t, e.cands.Create(context.Background(), &model.Candidate{
		ID: id, RRID: rrID, Name: "Candidate " + id, Email: id + "@example.com", Phone: "+15550001111",
		CurrentStage: "applied", CreatedAt: e.clock.Now(),
	}))
}

func (e *env) slot(t *testing.T, rrID string, startIn time.Duration) model.AvailabilitySlot {
	t.Helper()
	s, err := e.booking.CreateSlot(context.Background(), "admin@corp.test", model.AvailabilitySlot{
		RRID: rrID, InterviewerID: "int-1", StartTime: e.clock.Now().Add(startIn),
		DurationMinutes: 45, Mode: "video", Location: "https://meet.example.com/abc",
	})
	require.NoError(t, err)
	return s
}

func (e *env) auditActions(t *testing.T, entityType, entityID string) []string {
	t.Helper()
	logs, err := e.audit.List(context.Background(), repository.AuditFilter{EntityType: entityType, EntityID: entityID})
	require.NoError(t, err)
	var out []string
	for _, l := range logs {
		out = append(out, l.Action)
	}
	return out
}
