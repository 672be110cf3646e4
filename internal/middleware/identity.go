package middleware

// identity.go holds the accessors handlers use to read what PassGuard
// stored in the Echo context.

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/utils"
)

// Claims returns the pass claims of the current request.
func Claims(c echo.Context) (utils.PassClaims, bool) {
	pc, ok := c.Get("claims").(utils.PassClaims)
	return pc, ok
}

// CurrentPass returns the stored pass record of the current request.
func CurrentPass(c echo.Context) (model.Pass, bool) {
	p, ok := c.Get("pass").(model.Pass)
	return p, ok
}

// Subject returns the authenticated subject, or "anon" when the request
// carries no pass.
func Subject(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}

// IsAdmin reports whether the current pass carries the admin scope.
func IsAdmin(c echo.Context) bool {
	pc, ok := Claims(c)
	return ok && pc.HasScope(AdminScope)
}

// WithLogger stores log, tagged with the request id when one is set, in
// the Echo context for Logger.
func WithLogger(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := log
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				l = l.With("request_id", id)
			}
			c.Set("logger", l)
			return next(c)
		}
	}
}

// Logger returns the request logger installed by WithLogger, or
// slog.Default when none was installed.
func Logger(c echo.Context) *slog.Logger {
	if l, ok := c.Get("logger").(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
