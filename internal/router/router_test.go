package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hrpass/internal/database/sqlitetest"
	"github.com/iliyamo/hrpass/internal/handler"
	"github.com/iliyamo/hrpass/internal/repository"
	"github.com/iliyamo/hrpass/internal/router"
	"github.com/iliyamo/hrpass/internal/service"
	"github.com/iliyamo/hrpass/internal/utils"
)

type server struct {
	e     *echo.Echo
	admin *service.AdminAuth
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := sqlitetest.Open(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	audit := repository.NewAuditRepo(db, nil)
	rrs := repository.NewRecruitmentRepo(db)
	cands := repository.NewCandidateRepo(db)
	passes := service.NewPassService(repository.NewPassRepo(db), audit, utils.NewPassCodec("router-secret", nil),
		service.PassPolicy{}, 2, log, nil)
	admin := service.NewAdminAuth(repository.NewAdminRepo(db), audit, passes,
		service.AdminPolicy{BcryptCost: 4, TOTPSkew: 1}, log, nil)
	booking := service.NewBookingService(service.BookingDeps{
		DB: db, Slots: repository.NewSlotRepo(db), Interviews: repository.NewInterviewRepo(db),
		Candidates: cands, RRs: rrs, Audit: audit, Retries: 2, Log: log,
	})

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Deps{
		Auth:        handler.NewAuthHandler(admin),
		Passes:      handler.NewPassHandler(passes),
		Booking:     handler.NewBookingHandler(booking, nil),
		Recruitment: handler.NewRecruitmentHandler(rrs, cands),
		Attendance:  handler.NewAttendanceHandler(repository.NewAttendanceRepo(db), audit, 2),
		ESS:         handler.NewESSHandler(repository.NewESSRepo(db)),
		Policy: handler.NewPolicyHandler(repository.NewPolicyRepo(db),
			func(context.Context, string) error { return nil }),
		Audit: handler.NewAuditHandler(audit),
		Guard: passes,
		Log:   log,
	})
	return &server{e: e, admin: admin}
}

func (s *server) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(bs)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func (s *server) login(t *testing.T) string {
	t.Helper()
	secret, _, err := s.admin.CreateAdmin(context.Background(), "root@corp.test", "correct horse")
	require.NoError(t, err)
	code, err := utils.TOTPCode(secret, time.Now())
	require.NoError(t, err)

	rec, body := s.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{
		"email": "root@corp.test", "password": "correct horse", "totp_code": code,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "bearer", body["token_type"])
	return body["token"].(string)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
}

func TestLogin_Rejections(t *testing.T) {
	s := newServer(t)
	_, _, err := s.admin.CreateAdmin(context.Background(), "root@corp.test", "correct horse")
	require.NoError(t, err)

	rec, body := s.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{
		"email": "root@corp.test", "password": "wrong password", "totp_code": "123456",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "bad_credentials", body["detail"])

	rec, _ = s.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{"email": "root@corp.test"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCandidateBookingFlow(t *testing.T) {
	s := newServer(t)
	adminTok := s.login(t)

	rec, _ := s.do(t, http.MethodGet, "/api/rr", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, rr := s.do(t, http.MethodPost, "/api/rr", adminTok, map[string]any{"title": "Data Engineer"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rrID := rr["id"].(string)

	rec, cand := s.do(t, http.MethodPost, "/api/candidates", adminTok, map[string]any{
		"rr_id": rrID, "name": "Dana", "email": "dana@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	candID := cand["id"].(string)

	rec, slot := s.do(t, http.MethodPost, "/api/availability", adminTok, map[string]any{
		"rr_id": rrID, "interviewer_id": "int-7", "start_time": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		"duration_minutes": 60, "mode": "video",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	slotID := slot["id"].(string)

	rec, issued := s.do(t, http.MethodPost, "/api/passes", adminTok, map[string]any{
		"subject": candID, "type": "INTERVIEW", "scope": []string{"interview"}, "max_uses": 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	candTok := issued["token"].(string)

	// Candidates may not book on behalf of someone else.
	rec, _ = s.do(t, http.MethodPost, "/api/availability/"+slotID+"/book", candTok, map[string]any{"candidate_id": "someone-else"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, iv := s.do(t, http.MethodPost, "/api/availability/"+slotID+"/book", candTok, map[string]any{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, candID, iv["candidate_id"])
	assert.Equal(t, "scheduled", iv["status"])

	// Introspection verifies without spending.
	rec, info := s.do(t, http.MethodGet, "/api/passes/introspect", candTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, info["used_count"])
	assert.EqualValues(t, 1, info["remaining_uses"])

	rec, _ = s.do(t, http.MethodGet, "/api/passes", candTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "interview scope cannot list passes")

	// Three uses are spent; the pass is now exhausted.
	rec, body := s.do(t, http.MethodGet, "/api/interviews", candTok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_or_expired_token", body["detail"])

	rec, _ = s.do(t, http.MethodPost, "/api/availability/"+slotID+"/book", adminTok, map[string]any{"candidate_id": candID})
	assert.Equal(t, http.StatusConflict, rec.Code, "slot already booked")

	rec, _ = s.do(t, http.MethodPost, "/api/interviews/"+iv["id"].(string)+"/cancel", adminTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, got := s.do(t, http.MethodGet, "/api/availability/"+slotID, adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "open", got["status"])
}

func TestRevokedPassRejected(t *testing.T) {
	s := newServer(t)
	adminTok := s.login(t)

	rec, issued := s.do(t, http.MethodPost, "/api/passes", adminTok, map[string]any{
		"subject": "emp-9", "type": "EMPLOYEE", "scope": []string{"employee"}, "max_uses": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tok := issued["token"].(string)
	passID := issued["pass"].(map[string]any)["id"].(string)

	rec, _ = s.do(t, http.MethodPost, "/api/attendance/clock-in", tok, map[string]any{"work_mode": "office"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = s.do(t, http.MethodPost, "/api/passes/"+passID+"/revoke", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/attendance", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
