package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hrpass/internal/config"
)

func TestCacheKeyFrom_GroupPrefix(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "hrpass:cache", KeyStrategy: "route_query"}
	e := echo.New()
	ctx := func(target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/api/policies")
		return c
	}

	a := cacheKeyFrom(cfg, "policies", ctx("/api/policies?status=published"))
	b := cacheKeyFrom(cfg, "policies", ctx("/api/policies?status=draft"))
	assert.True(t, strings.HasPrefix(a, "hrpass:cache:policies:"))
	assert.NotEqual(t, a, b, "query string is part of the key")
	assert.Equal(t, a, cacheKeyFrom(cfg, "policies", ctx("/api/policies?status=published")))
}

func TestPayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[{"id":"p1"}]`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `[{"id":"p1"}]`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok, "header length past the end")
}

func TestRedisCache_NilClientPassesThrough(t *testing.T) {
	calls := 0
	e := echo.New()
	e.GET("/api/policies", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, []string{})
	}, NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil, "policies"))

	for range 2 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/policies", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, InvalidateCache(context.Background(), config.CacheConfig{}, nil, "policies"))
}
