package handler // package handler holds the HTTP handlers of the API

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hrpass/internal/middleware"
	"github.com/iliyamo/hrpass/internal/notify"
	"github.com/iliyamo/hrpass/internal/repository"
	"github.com/iliyamo/hrpass/internal/service"
)

// respondError translates a service or repository error into an HTTP
// response.  Validation messages are echoed; everything else gets a fixed
// string so internals do not leak.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, repository.ErrAlreadyClockedIn),
		errors.Is(err, repository.ErrNotClockedIn),
		errors.Is(err, repository.ErrAlreadyClockedOut):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrBadCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "bad_credentials"})
	case errors.Is(err, service.ErrBadTotp):
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "bad_totp"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrSlotUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot_unavailable"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, notify.ErrProvider):
		middleware.Logger(c).Warn("notification provider failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "notification_failed"})
	}
	middleware.Logger(c).Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}
