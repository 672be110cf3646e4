package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/iliyamo/hrpass/internal/metrics"
	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/repository"
	"github.com/iliyamo/hrpass/internal/utils"
)

var tracer = otel.Tracer("github.com/iliyamo/hrpass/internal/service")

// PassPolicy holds the issuance defaults applied when a request leaves TTL
// or MaxUses unset.
type PassPolicy struct {
	DefaultTTL     time.Duration
	DefaultMaxUses int
}

// IssueRequest describes a pass to mint.
type IssueRequest struct {
	Subject string
	Type    model.PassType
	Scope   []string
	TTL     time.Duration
	MaxUses int
	Meta    map[string]string
}

// IssuedPass is the stored record plus its signed bearer token.
type IssuedPass struct {
	Pass  model.Pass `json:"pass"`
	Token string     `json:"token"`
}

// PassService issues, consumes, verifies and revokes passes.
type PassService struct {
	passes  *repository.PassRepo
	audit   *repository.AuditRepo
	codec   *utils.PassCodec
	policy  PassPolicy
	retries int
	log     *slog.Logger
	now     func() time.Time
}

// NewPassService wires a PassService.  now defaults to time.Now.
func NewPassService(passes *repository.PassRepo, audit *repository.AuditRepo, codec *utils.PassCodec,
	policy PassPolicy, retries int, log *slog.Logger, now func() time.Time) *PassService {
	if now == nil {
		now = time.Now
	}
	if policy.DefaultTTL <= 0 {
		policy.DefaultTTL = 72 * time.Hour
	}
	if policy.DefaultMaxUses <= 0 {
		policy.DefaultMaxUses = 1
	}
	return &PassService{passes: passes, audit: audit, codec: codec, policy: policy, retries: retries, log: log, now: now}
}

// Codec returns the token codec used by the service.
func (s *PassService) Codec() *utils.PassCodec { return s.codec }

// Issue stores a new active pass with zero uses, writes the audit entry in
// the same transaction and returns the record with its token.  The pass id
// is the token's jti.
func (s *PassService) Issue(ctx context.Context, actor string, req IssueRequest) (IssuedPass, error) {
	ctx, span := tracer.Start(ctx, "PassService.Issue")
	defer span.End()

	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		return IssuedPass{}, fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if req.Type == "" {
		req.Type = model.PassTypeVisitor
	}
	if !req.Type.Valid() {
		return IssuedPass{}, fmt.Errorf("%w: unknown pass type %q", ErrValidation, req.Type)
	}
	if req.TTL < 0 || req.MaxUses < 0 {
		return IssuedPass{}, fmt.Errorf("%w: ttl and max_uses must be positive", ErrValidation)
	}
	if req.TTL == 0 {
		req.TTL = s.policy.DefaultTTL
	}
	if req.MaxUses == 0 {
		req.MaxUses = s.policy.DefaultMaxUses
	}
	if req.Scope == nil {
		req.Scope = []string{}
	}

	now := s.now().UTC().Truncate(time.Second)
	p := model.Pass{
		ID:        uuid.NewString(),
		Subject:   req.Subject,
		Type:      req.Type,
		Scope:     req.Scope,
		ExpiresAt: now.Add(req.TTL),
		MaxUses:   req.MaxUses,
		Status:    model.PassActive,
		Meta:      req.Meta,
		CreatedAt: now,
	}
	token, err := s.codec.Encode(utils.ClaimsForPass(p, now))
	if err != nil {
		return IssuedPass{}, err
	}

	err = repository.InTx(ctx, s.passes.DB(), s.retries, func(tx *sql.Tx) error {
		if err := s.passes.InsertTx(ctx, tx, &p); err != nil {
			return err
		}
		return s.audit.AppendTx(ctx, tx, model.AuditLog{
			Actor: actor, Action: "pass.issue", EntityType: "pass", EntityID: p.ID, CreatedAt: now,
			Metadata: map[string]string{
				"subject":  p.Subject,
				"type":     string(p.Type),
				"scope":    strings.Join(p.Scope, ","),
				"max_uses": strconv.Itoa(p.MaxUses),
				"expires":  p.ExpiresAt.Format(time.RFC3339),
			},
		})
	})
	if err != nil {
		metrics.ObservePass("issue", "error")
		return IssuedPass{}, err
	}
	metrics.ObservePass("issue", "ok")
	return IssuedPass{Pass: p, Token: token}, nil
}

// isPassState reports whether err is a pass-state outcome rather than an
// infrastructure failure.  Such outcomes still commit, so a lazily
// applied expiry is persisted.
func isPassState(err error) bool {
	return errors.Is(err, repository.ErrPassExhausted) ||
		errors.Is(err, repository.ErrPassRevoked) ||
		errors.Is(err, repository.ErrPassExpired) ||
		errors.Is(err, repository.ErrNotFound)
}

func passResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repository.ErrPassExhausted):
		return "exhausted"
	case errors.Is(err, repository.ErrPassRevoked):
		return "revoked"
	case errors.Is(err, repository.ErrPassExpired):
		return "expired"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// Consume spends one use of the pass.  Concurrent calls never succeed more
// than max_uses times in total; the rest fail with ErrPassExhausted.  A
// pass that is revoked, expired or missing fails with the matching
// repository sentinel.
func (s *PassService) Consume(ctx context.Context, passID string) (model.Pass, error) {
	ctx, span := tracer.Start(ctx, "PassService.Consume")
	defer span.End()

	now := s.now()
	var (
		out      model.Pass
		stateErr error
	)
	err := repository.InTx(ctx, s.passes.DB(), s.retries, func(tx *sql.Tx) error {
		stateErr = nil
		p, err := s.passes.ConsumeTx(ctx, tx, passID, now)
		if err != nil {
			if isPassState(err) {
				stateErr = err
				if errors.Is(err, repository.ErrPassExpired) && p.Status == model.PassActive {
					return s.audit.AppendTx(ctx, tx, model.AuditLog{
						Actor: "system", Action: "pass.expire", EntityType: "pass", EntityID: passID, CreatedAt: now,
					})
				}
				return nil
			}
			return err
		}
		out = p
		action := "pass.consume"
		if p.Status == model.PassExhausted {
			action = "pass.exhaust"
		}
		return s.audit.AppendTx(ctx, tx, model.AuditLog{
			Actor: p.Subject, Action: action, EntityType: "pass", EntityID: p.ID, CreatedAt: now,
			Metadata: map[string]string{"used_count": strconv.Itoa(p.UsedCount), "max_uses": strconv.Itoa(p.MaxUses)},
		})
	})
	if err == nil {
		err = stateErr
	}
	metrics.ObservePass("consume", passResult(err))
	if err != nil {
		return model.Pass{}, err
	}
	return out, nil
}

// Verify checks that the pass is usable without spending a use.
func (s *PassService) Verify(ctx context.Context, passID string) (model.Pass, error) {
	now := s.now()
	var (
		out      model.Pass
		stateErr error
	)
	err := repository.InTx(ctx, s.passes.DB(), s.retries, func(tx *sql.Tx) error {
		stateErr = nil
		p, err := s.passes.VerifyTx(ctx, tx, passID, now)
		if err != nil {
			if isPassState(err) {
				stateErr = err
				return nil
			}
			return err
		}
		out = p
		return nil
	})
	if err == nil {
		err = stateErr
	}
	metrics.ObservePass("verify", passResult(err))
	if err != nil {
		return model.Pass{}, err
	}
	return out, nil
}

// Revoke marks the pass revoked.  Revoking twice is not an error and
// writes a single audit entry.
func (s *PassService) Revoke(ctx context.Context, actor, passID string) (model.Pass, error) {
	now := s.now()
	err := repository.InTx(ctx, s.passes.DB(), s.retries, func(tx *sql.Tx) error {
		changed, err := s.passes.RevokeTx(ctx, tx, passID)
		if err != nil || !changed {
			return err
		}
		return s.audit.AppendTx(ctx, tx, model.AuditLog{
			Actor: actor, Action: "pass.revoke", EntityType: "pass", EntityID: passID, CreatedAt: now,
		})
	})
	metrics.ObservePass("revoke", passResult(err))
	if err != nil {
		return model.Pass{}, err
	}
	return s.passes.Get(ctx, passID)
}

// Get returns a pass by id.
func (s *PassService) Get(ctx context.Context, passID string) (model.Pass, error) {
	return s.passes.Get(ctx, passID)
}

// List returns passes issued to subject; an empty subject lists all.
func (s *PassService) List(ctx context.Context, subject string) ([]model.Pass, error) {
	return s.passes.ListBySubject(ctx, subject, 0)
}

// Authenticate decodes a bearer token and checks it against the store.
// With consume set one use is spent; otherwise the pass is only verified.
// The returned error is the precise reason, for logging; callers at the
// HTTP boundary must not echo it.
func (s *PassService) Authenticate(ctx context.Context, token string, consume bool) (utils.PassClaims, model.Pass, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return utils.PassClaims{}, model.Pass{}, err
	}
	var p model.Pass
	if consume {
		p, err = s.Consume(ctx, claims.TokenID)
	} else {
		p, err = s.Verify(ctx, claims.TokenID)
	}
	if err != nil {
		return utils.PassClaims{}, model.Pass{}, err
	}
	if p.Subject != claims.Subject {
		s.log.Warn("pass subject mismatch", "pass_id", p.ID)
		return utils.PassClaims{}, model.Pass{}, utils.ErrInvalidSignature
	}
	return claims, p, nil
}
