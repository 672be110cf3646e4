package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/hrpass/internal/handler"
	"github.com/iliyamo/hrpass/internal/middleware"
)

// Deps bundles everything the /api routes need.
type Deps struct {
	Auth        *handler.AuthHandler
	Passes      *handler.PassHandler
	Booking     *handler.BookingHandler
	Recruitment *handler.RecruitmentHandler
	Attendance  *handler.AttendanceHandler
	ESS         *handler.ESSHandler
	Policy      *handler.PolicyHandler
	Audit       *handler.AuditHandler

	// Guard checks bearer passes; usually the PassService.
	Guard middleware.Authenticator
	// Limiter throttles login and pass issuance.
	Limiter echo.MiddlewareFunc
	// PolicyCache and TemplateCache front the GET listings.
	PolicyCache   echo.MiddlewareFunc
	TemplateCache echo.MiddlewareFunc
	Log           *slog.Logger
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.Health)
	e.GET("/api/health", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAPI registers every /api route.  Apart from health and admin
// login, each route runs PassGuard, which spends one use of the presented
// pass, followed by a scope check.  Introspection only verifies.
func RegisterAPI(e *echo.Echo, d Deps) {
	if d.Limiter == nil {
		d.Limiter = passthrough
	}
	if d.PolicyCache == nil {
		d.PolicyCache = passthrough
	}
	if d.TemplateCache == nil {
		d.TemplateCache = passthrough
	}
	if d.Log != nil {
		e.Use(middleware.WithLogger(d.Log))
	}
	guard := middleware.PassGuard(d.Guard, middleware.GuardOptions{Log: d.Log})
	verify := middleware.PassGuard(d.Guard, middleware.GuardOptions{VerifyOnly: true, Log: d.Log})
	admin := middleware.RequireScope(middleware.AdminScope)
	interview := middleware.RequireScope("interview")
	employee := middleware.RequireScope("employee")

	e.POST("/api/admin/login", d.Auth.Login, d.Limiter)

	api := e.Group("/api")
	api.GET("/passes/introspect", d.Passes.Introspect, verify)

	g := api.Group("", guard)

	g.GET("/admin/audit", d.Audit.List, admin)

	g.POST("/passes", d.Passes.Issue, admin, d.Limiter)
	g.GET("/passes", d.Passes.List, admin)
	g.GET("/passes/:id", d.Passes.Get, admin)
	g.POST("/passes/:id/revoke", d.Passes.Revoke, admin)

	g.POST("/rr", d.Recruitment.CreateRR, admin)
	g.GET("/rr", d.Recruitment.ListRR, admin)
	g.GET("/rr/:id", d.Recruitment.GetRR, admin)
	g.PUT("/rr/:id", d.Recruitment.UpdateRR, admin)
	g.DELETE("/rr/:id", d.Recruitment.DeleteRR, admin)

	g.POST("/candidates", d.Recruitment.CreateCandidate, admin)
	g.GET("/candidates", d.Recruitment.ListCandidates, admin)
	g.GET("/candidates/:id", d.Recruitment.GetCandidate, admin)
	g.PATCH("/candidates/:id/stage", d.Recruitment.UpdateStage, admin)

	g.POST("/availability", d.Booking.CreateSlot, admin)
	g.GET("/availability", d.Booking.ListSlots, interview)
	g.GET("/availability/:id", d.Booking.GetSlot, interview)
	g.POST("/availability/:id/hold", d.Booking.Hold, interview)
	g.POST("/availability/:id/release", d.Booking.Release, interview)
	g.POST("/availability/:id/book", d.Booking.Book, interview)

	g.GET("/interviews", d.Booking.ListInterviews, interview)
	g.GET("/interviews/:id", d.Booking.GetInterview, interview)
	g.GET("/interviews/:id/calendar.ics", d.Booking.Calendar, interview)
	g.POST("/interviews/:id/cancel", d.Booking.Cancel, admin)
	g.POST("/interviews/:id/outcome", d.Booking.Outcome, admin)
	g.POST("/interviews/:id/notify", d.Booking.SendNotification, admin)

	g.POST("/attendance/clock-in", d.Attendance.ClockIn, employee)
	g.POST("/attendance/clock-out", d.Attendance.ClockOut, employee)
	g.GET("/attendance", d.Attendance.List, employee)
	g.POST("/attendance/:id/wfh-decision", d.Attendance.DecideWFH, admin)

	g.POST("/ess", d.ESS.Create, employee)
	g.GET("/ess", d.ESS.List, employee)
	g.PATCH("/ess/:id/status", d.ESS.UpdateStatus, admin)

	g.GET("/policies", d.Policy.List, employee, d.PolicyCache)
	g.POST("/policies", d.Policy.Create, admin)
	g.GET("/policies/:id", d.Policy.Get, employee)
	g.PUT("/policies/:id", d.Policy.Update, admin)
	g.POST("/policies/:id/ack", d.Policy.Ack, employee)
	g.GET("/policies/:id/acks", d.Policy.ListAcks, admin)

	g.GET("/templates", d.Policy.ListTemplates, employee, d.TemplateCache)
	g.POST("/templates", d.Policy.CreateTemplate, admin)
}
