package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminScope satisfies every RequireScope check.
const AdminScope = "admin"

// RequireScope returns a middleware that lets the request through only
// when the pass claims contain one of scopes, or the admin scope.  It
// must run after PassGuard; a request without claims is rejected with 403.
func RequireScope(scopes ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(scopes)+1)
	for _, s := range scopes {
		allowed[s] = true
	}
	allowed[AdminScope] = true
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := Claims(c)
			if ok {
				for _, s := range claims.Scope {
					if allowed[s] {
						return next(c)
					}
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		}
	}
}
