package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iliyamo/hrpass/internal/config"
	"github.com/iliyamo/hrpass/internal/database"
	"github.com/iliyamo/hrpass/internal/handler"
	"github.com/iliyamo/hrpass/internal/metrics"
	"github.com/iliyamo/hrpass/internal/middleware"
	"github.com/iliyamo/hrpass/internal/notify"
	"github.com/iliyamo/hrpass/internal/queue"
	"github.com/iliyamo/hrpass/internal/repository"
	"github.com/iliyamo/hrpass/internal/router"
	"github.com/iliyamo/hrpass/internal/service"
	"github.com/iliyamo/hrpass/internal/tracing"
	"github.com/iliyamo/hrpass/internal/utils"
)

func newLogger(env string) *slog.Logger {
	if env == "prod" || env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()
	log := newLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, "hrpass", cfg.Env)
	if err != nil {
		log.Error("tracing init failed", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		Migrate: true,
	})
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unreachable: response cache off, rate limiting in process")
	} else {
		defer rdb.Close()
	}

	// Repositories.
	passRepo := repository.NewPassRepo(db)
	auditRepo := repository.NewAuditRepo(db, log)
	adminRepo := repository.NewAdminRepo(db)
	slotRepo := repository.NewSlotRepo(db)
	interviewRepo := repository.NewInterviewRepo(db)
	rrRepo := repository.NewRecruitmentRepo(db)
	candRepo := repository.NewCandidateRepo(db)

	// Services.
	codec := utils.NewPassCodec(cfg.JWTSecret, nil)
	passes := service.NewPassService(passRepo, auditRepo, codec, service.PassPolicy{
		DefaultTTL: cfg.DefaultPassTTL, DefaultMaxUses: cfg.DefaultPassMaxUses,
	}, cfg.TxMaxRetries, log, nil)
	adminAuth := service.NewAdminAuth(adminRepo, auditRepo, passes, service.AdminPolicy{
		PassTTL: cfg.AdminPassTTL, PassMaxUses: cfg.AdminPassMaxUses, TOTPSkew: cfg.TOTPSkew, BcryptCost: cfg.BcryptCost,
	}, log, nil)

	var publisher service.Publisher = service.NopPublisher{}
	if cfg.RabbitURL != "" {
		publisher = service.NewEventPublisher(cfg.RabbitURL, log)
	}
	booking := service.NewBookingService(service.BookingDeps{
		DB: db, Slots: slotRepo, Interviews: interviewRepo, Candidates: candRepo, RRs: rrRepo,
		Audit: auditRepo, Publisher: publisher, HoldWindow: cfg.HoldWindow, Retries: cfg.TxMaxRetries, Log: log,
	})

	var messenger notify.Messenger
	if cfg.TwilioSID != "" {
		messenger = notify.NewTwilioMessenger(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioWhatsAppFrom)
	}
	notifier := service.NewNotificationService(notify.NewResendMailer(cfg.ResendAPIKey, cfg.ResendFrom), messenger, booking, log)

	if cfg.HoldSweepInterval > 0 {
		go booking.RunSweeper(ctx, cfg.HoldSweepInterval)
	}
	if cfg.RabbitURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitURL, notifier.HandleEvent, log)
		go func() { _ = consumer.Run(ctx) }()
	}

	// HTTP.
	cacheCfg := config.LoadCacheConfig()
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(metrics.EchoMiddleware())

	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Deps{
		Auth:        handler.NewAuthHandler(adminAuth),
		Passes:      handler.NewPassHandler(passes),
		Booking:     handler.NewBookingHandler(booking, notifier),
		Recruitment: handler.NewRecruitmentHandler(rrRepo, candRepo),
		Attendance:  handler.NewAttendanceHandler(repository.NewAttendanceRepo(db), auditRepo, cfg.TxMaxRetries),
		ESS:         handler.NewESSHandler(repository.NewESSRepo(db)),
		Policy: handler.NewPolicyHandler(repository.NewPolicyRepo(db), func(ctx context.Context, group string) error {
			return middleware.InvalidateCache(ctx, cacheCfg, rdb, group)
		}),
		Audit:         handler.NewAuditHandler(auditRepo),
		Guard:         passes,
		Limiter:       middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		PolicyCache:   middleware.NewRedisCache(cacheCfg, rdb, handler.PolicyCacheGroup),
		TemplateCache: middleware.NewRedisCache(cacheCfg, rdb, handler.TemplateCacheGroup),
		Log:           log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(e, "hrpass"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", "error", err)
	}
}
