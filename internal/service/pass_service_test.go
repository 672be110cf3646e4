package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/repository"
	"github.com/iliyamo/hrpass/internal/utils"
)

func TestPassService_IssueDefaults(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	issued, err := e.passes.Issue(ctx, "admin@corp.test", IssueRequest{Subject: "  guest@example.com "})
	require.NoError(t, err)
	p := issued.Pass
	assert.Equal(t, "guest@example.com", p.Subject)
	assert.Equal(t, model.PassTypeVisitor, p.Type)
	assert.Equal(t, 1, p.MaxUses)
	assert.Equal(t, model.PassActive, p.Status)
	assert.True(t, p.ExpiresAt.Equal(e.clock.Now().Add(72*time.Hour)))

	claims, err := e.passes.Codec().Decode(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, p.ID, claims.TokenID)
	assert.Equal(t, p.Subject, claims.Subject)

	assert.Equal(t, []string{"pass.issue"}, e.auditActions(t, "pass", p.ID))

	_, err = e.passes.Issue(ctx, "admin", IssueRequest{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.passes.Issue(ctx, "admin", IssueRequest{Subject: "x", Type: "BOGUS"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.passes.Issue(ctx, "admin", IssueRequest{Subject: "x", MaxUses: -1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPassService_ConcurrentConsume(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	const uses, callers = 3, 12

	issued, err := e.passes.Issue(ctx, "admin", IssueRequest{Subject: "emp-1", Type: model.PassTypeEmployee, MaxUses: uses})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		exhausted int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.passes.Consume(ctx, issued.Pass.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrPassExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uses, ok)
	assert.Equal(t, callers-uses, exhausted)

	p, err := e.passes.Get(ctx, issued.Pass.ID)
	require.NoError(t, err)
	assert.Equal(t, uses, p.UsedCount)
	assert.Equal(t, model.PassExhausted, p.Status)
	assert.Equal(t, 0, p.RemainingUses())
}

func TestPassService_ExpiryAndRevoke(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	short, err := e.passes.Issue(ctx, "admin", IssueRequest{Subject: "v", TTL: time.Hour, MaxUses: 5})
	require.NoError(t, err)
	other, err := e.passes.Issue(ctx, "admin", IssueRequest{Subject: "v", TTL: 48 * time.Hour, MaxUses: 5})
	require.NoError(t, err)

	_, err = e.passes.Consume(ctx, short.Pass.ID)
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	_, err = e.passes.Consume(ctx, short.Pass.ID)
	assert.ErrorIs(t, err, repository.ErrPassExpired)
	p, err := e.passes.Get(ctx, short.Pass.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PassExpired, p.Status)
	assert.Equal(t, 1, p.UsedCount)
	assert.Contains(t, e.auditActions(t, "pass", short.Pass.ID), "pass.expire")

	revoked, err := e.passes.Revoke(ctx, "admin", other.Pass.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PassRevoked, revoked.Status)
	_, err = e.passes.Revoke(ctx, "admin", other.Pass.ID)
	require.NoError(t, err, "revoke is idempotent")

	actions := e.auditActions(t, "pass", other.Pass.ID)
	assert.ElementsMatch(t, []string{"pass.issue", "pass.revoke"}, actions)

	_, err = e.passes.Consume(ctx, other.Pass.ID)
	assert.ErrorIs(t, err, repository.ErrPassRevoked)
	_, err = e.passes.Verify(ctx, other.Pass.ID)
	assert.ErrorIs(t, err, repository.ErrPassRevoked)

	_, err = e.passes.Revoke(ctx, "admin", "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPassService_Authenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	issued, err := e.passes.Issue(ctx, "admin", IssueRequest{Subject: "cand-1", Type: model.PassTypeInterview,
		Scope: []string{"interview"}, MaxUses: 2})
	require.NoError(t, err)

	claims, p, err := e.passes.Authenticate(ctx, issued.Token, false)
	require.NoError(t, err)
	assert.True(t, claims.HasScope("interview"))
	assert.Equal(t, 0, p.UsedCount, "verify does not spend a use")

	_, p, err = e.passes.Authenticate(ctx, issued.Token, true)
	require.NoError(t, err)
	assert.Equal(t, 1, p.UsedCount)

	_, _, err = e.passes.Authenticate(ctx, issued.Token+"x", true)
	assert.ErrorIs(t, err, utils.ErrInvalidSignature)

	forged, err := utils.NewPassCodec("other-secret", e.clock.Now).Encode(utils.ClaimsForPass(issued.Pass, e.clock.Now()))
	require.NoError(t, err)
	_, _, err = e.passes.Authenticate(ctx, forged, true)
	assert.ErrorIs(t, err, utils.ErrInvalidSignature)

	// A correctly signed token whose subject differs from the stored row.
	tampered := issued.Pass
	tampered.Subject = "someone-else"
	tok, err := e.passes.Codec().Encode(utils.ClaimsForPass(tampered, e.clock.Now()))
	require.NoError(t, err)
	_, _, err = e.passes.Authenticate(ctx, tok, true)
	assert.ErrorIs(t, err, utils.ErrInvalidSignature)

	e.clock.Advance(73 * time.Hour)
	_, _, err = e.passes.Authenticate(ctx, issued.Token, true)
	assert.ErrorIs(t, err, utils.ErrTokenExpired)
}
