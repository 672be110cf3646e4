package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/repository"
	"github.com/iliyamo/hrpass/internal/utils"
)

func TestAdminAuth_Login(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	secret, url, err := e.admin.CreateAdmin(ctx, " Root@Corp.Test ", "correct horse")
	require.NoError(t, err)
	assert.Contains(t, url, "otpauth://")
	code, err := utils.TOTPCode(secret, e.clock.Now())
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	cases := []struct {
		name     string
		email    string
		password string
		code     string
		want     error
	}{
		{"unknown email", "nobody@corp.test", "correct horse", code, ErrBadCredentials},
		{"wrong password", "root@corp.test", "battery staple", code, ErrBadCredentials},
		{"wrong code", "root@corp.test", "correct horse", wrong, ErrBadTotp},
		{"empty code", "root@corp.test", "correct horse", "", ErrBadTotp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.admin.Login(ctx, tc.email, tc.password, tc.code)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	all, err := e.passes.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all, "failed logins mint nothing")

	issued, err := e.admin.Login(ctx, "ROOT@corp.test", "correct horse", code)
	require.NoError(t, err)
	assert.Equal(t, model.PassTypeAdmin, issued.Pass.Type)
	assert.Equal(t, []string{"admin"}, issued.Pass.Scope)
	assert.Equal(t, "root@corp.test", issued.Pass.Subject)
	assert.Equal(t, 1000, issued.Pass.MaxUses)
	assert.True(t, issued.Pass.ExpiresAt.Equal(e.clock.Now().Add(8*time.Hour)))

	_, err = e.admin.Login(ctx, "root@corp.test", "correct horse", code)
	assert.ErrorIs(t, err, ErrBadTotp, "a code is accepted once")

	all, err = e.passes.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	logins, err := e.audit.List(ctx, repository.AuditFilter{EntityType: "admin", EntityID: "root@corp.test"})
	require.NoError(t, err)
	outcomes := map[string]int{}
	for _, l := range logins {
		if l.Action == "admin.login" {
			outcomes[l.Metadata["outcome"]]++
		}
	}
	assert.Equal(t, map[string]int{"bad_credentials": 1, "bad_totp": 2, "success": 1, "totp_replay": 1}, outcomes)
}

func TestAdminAuth_CreateAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, _, err := e.admin.CreateAdmin(ctx, "not-an-email", "long enough")
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = e.admin.CreateAdmin(ctx, "a@corp.test", "short")
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = e.admin.CreateAdmin(ctx, "a@corp.test", "long enough")
	require.NoError(t, err)
	_, _, err = e.admin.CreateAdmin(ctx, "A@corp.test", "long enough")
	assert.ErrorIs(t, err, repository.ErrEmailExists)
}
