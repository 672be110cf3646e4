package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTP(t *testing.T) {
	secret, url, err := NewTOTPSecret("hrpass", "admin@corp.test")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Contains(t, url, "otpauth://totp/")

	now := time.Date(2026, 3, 1, 9, 0, 10, 0, time.UTC)
	code, err := TOTPCode(secret, now)
	require.NoError(t, err)

	assert.True(t, VerifyTOTP(code, secret, now, 1))
	assert.True(t, VerifyTOTP(code, secret, now.Add(TOTPPeriod), 1), "one step of skew")
	assert.False(t, VerifyTOTP(code, secret, now.Add(3*TOTPPeriod), 1))
	assert.False(t, VerifyTOTP(code, secret, now.Add(TOTPPeriod), 0))
	assert.False(t, VerifyTOTP("12345", secret, now, 1), "wrong length")
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "hunter2"))
	assert.False(t, VerifyPassword(h, "hunter3"))
}
