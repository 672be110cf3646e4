package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/iliyamo/hrpass/internal/metrics"
	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/repository"
	"github.com/iliyamo/hrpass/internal/utils"
)

// AdminPolicy configures the pass minted on a successful admin login.
type AdminPolicy struct {
	PassTTL     time.Duration
	PassMaxUses int  // large ceiling: effectively unlimited within the TTL
	TOTPSkew    uint // accepted time steps either side of now
	BcryptCost  int
	Issuer      string // otpauth issuer shown in authenticator apps
}

// AdminAuth verifies admin password plus one-time code and issues ADMIN
// passes.
type AdminAuth struct {
	admins *repository.AdminRepo
	audit  *repository.AuditRepo
	passes *PassService
	policy AdminPolicy
	log    *slog.Logger
	now    func() time.Time

	// usedCodes remembers accepted email/code pairs for the length of the
	// acceptance window so a code works once.
	usedCodes *cache.Cache
	dummyHash string
}

// NewAdminAuth wires an AdminAuth.
func NewAdminAuth(admins *repository.AdminRepo, audit *repository.AuditRepo, passes *PassService,
	policy AdminPolicy, log *slog.Logger, now func() time.Time) *AdminAuth {
	if now == nil {
		now = time.Now
	}
	if policy.PassTTL <= 0 {
		policy.PassTTL = 8 * time.Hour
	}
	if policy.PassMaxUses <= 0 {
		policy.PassMaxUses = 1000
	}
	if policy.BcryptCost == 0 {
		policy.BcryptCost = 12
	}
	if policy.Issuer == "" {
		policy.Issuer = "hrpass"
	}
	window := time.Duration(2*policy.TOTPSkew+1) * utils.TOTPPeriod
	// Compared against when the email is unknown so both paths cost one bcrypt check.
	dummy, _ := utils.HashPassword("not-a-real-password", policy.BcryptCost)
	return &AdminAuth{
		admins:    admins,
		audit:     audit,
		passes:    passes,
		policy:    policy,
		log:       log,
		now:       now,
		usedCodes: cache.New(window, 2*window),
		dummyHash: dummy,
	}
}

// Login authenticates email/password/code and returns an ADMIN pass with
// scope ["admin"].  Unknown email and wrong password both yield
// ErrBadCredentials; a wrong or replayed code yields ErrBadTotp.  Every
// attempt is audited with the email as actor.  No pass exists after a
// failed attempt.
func (a *AdminAuth) Login(ctx context.Context, email, password, code string) (IssuedPass, error) {
	ctx, span := tracer.Start(ctx, "AdminAuth.Login")
	defer span.End()

	email = repository.NormalizeEmail(email)
	issued, outcome, err := a.login(ctx, email, password, strings.TrimSpace(code))

	metrics.ObserveLogin(outcome)
	entry := model.AuditLog{
		Actor: email, Action: "admin.login", EntityType: "admin", EntityID: email,
		Metadata: map[string]string{"outcome": outcome},
	}
	if err == nil {
		entry.Metadata["pass_id"] = issued.Pass.ID
	}
	if aerr := a.audit.Append(ctx, entry); aerr != nil {
		a.log.Error("audit admin login failed", "error", aerr)
	}
	if err != nil {
		a.log.Warn("admin login rejected", "email", email, "outcome", outcome)
		return IssuedPass{}, err
	}
	return issued, nil
}

func (a *AdminAuth) login(ctx context.Context, email, password, code string) (IssuedPass, string, error) {
	admin, err := a.admins.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.VerifyPassword(a.dummyHash, password)
		return IssuedPass{}, "bad_credentials", ErrBadCredentials
	}
	if err != nil {
		return IssuedPass{}, "error", err
	}
	if !utils.VerifyPassword(admin.PasswordHash, password) {
		return IssuedPass{}, "bad_credentials", ErrBadCredentials
	}

	now := a.now()
	if !utils.VerifyTOTP(code, admin.TOTPSecret, now, a.policy.TOTPSkew) {
		return IssuedPass{}, "bad_totp", ErrBadTotp
	}
	// Add fails when the key is already present: the code was used.
	if err := a.usedCodes.Add(admin.Email+"|"+code, struct{}{}, cache.DefaultExpiration); err != nil {
		return IssuedPass{}, "totp_replay", ErrBadTotp
	}

	issued, err := a.passes.Issue(ctx, admin.Email, IssueRequest{
		Subject: admin.Email,
		Type:    model.PassTypeAdmin,
		Scope:   []string{"admin"},
		TTL:     a.policy.PassTTL,
		MaxUses: a.policy.PassMaxUses,
	})
	if err != nil {
		a.usedCodes.Delete(admin.Email + "|" + code)
		return IssuedPass{}, "error", err
	}
	return issued, "success", nil
}

// CreateAdmin stores a new admin with a fresh TOTP secret and returns the
// secret and its otpauth:// enrollment URL.
func (a *AdminAuth) CreateAdmin(ctx context.Context, email, password string) (secret, url string, err error) {
	email = repository.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", "", fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if len(password) < 8 {
		return "", "", fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	hash, err := utils.HashPassword(password, a.policy.BcryptCost)
	if err != nil {
		return "", "", err
	}
	secret, url, err = utils.NewTOTPSecret(a.policy.Issuer, email)
	if err != nil {
		return "", "", err
	}
	if err := a.admins.Create(ctx, model.AdminUser{
		Email: email, PasswordHash: hash, TOTPSecret: secret, CreatedAt: a.now(),
	}); err != nil {
		return "", "", err
	}
	if err := a.audit.Append(ctx, model.AuditLog{
		Actor: "cli", Action: "admin.create", EntityType: "admin", EntityID: email,
	}); err != nil {
		a.log.Error("audit admin create failed", "error", err)
	}
	return secret, url, nil
}
