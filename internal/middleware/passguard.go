package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/utils"
)

// Authenticator checks a bearer token against the pass store.
type Authenticator interface {
	Authenticate(ctx context.Context, token string, consume bool) (utils.PassClaims, model.Pass, error)
}

// errMissingToken marks an absent or malformed Authorization header.
var errMissingToken = errors.New("missing bearer token")

// GuardOptions tunes PassGuard.
type GuardOptions struct {
	// VerifyOnly checks the pass without spending a use.
	VerifyOnly bool
	Log        *slog.Logger
}

// PassGuard returns an Echo middleware that requires a valid pass token in
// the Authorization header.  By default each guarded request spends one
// use of the pass.  On success the claims are stored in the context under
// "claims", the subject under "user_id", the scope under "scope" and the
// stored record under "pass".
//
// Clients only ever see two answers: missing_token when the header is
// absent or malformed, and invalid_or_expired_token for everything else.
// The precise reason goes to the log.
func PassGuard(auth Authenticator, opts GuardOptions) echo.MiddlewareFunc {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request().Header.Get("Authorization"))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "missing_token"})
			}
			claims, p, err := auth.Authenticate(c.Request().Context(), raw, !opts.VerifyOnly)
			if err != nil {
				log.Warn("pass rejected", "path", c.Path(), "reason", err.Error())
				return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "invalid_or_expired_token"})
			}
			c.Set("claims", claims)
			c.Set("user_id", claims.Subject)
			c.Set("scope", claims.Scope)
			c.Set("pass", p)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an Authorization header value.  The
// scheme is matched case-insensitively.
func bearerToken(header string) (string, error) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errMissingToken
	}
	tok := strings.TrimSpace(header[len(prefix):])
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return "", errMissingToken
	}
	return tok, nil
}
