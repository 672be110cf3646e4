package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hrpass/internal/service"
)

// AuthHandler serves admin login.
type AuthHandler struct {
	Auth *service.AdminAuth
}

func NewAuthHandler(a *service.AdminAuth) *AuthHandler { return &AuthHandler{Auth: a} }

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code"`
}

type loginResp struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	Scope     []string  `json:"scope"`
	MaxUses   int       `json:"max_uses"`
}

// Login exchanges email, password and one-time code for an admin pass.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.TOTPCode) == "" {
		return badRequest(c, "email, password and totp_code are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	issued, err := h.Auth.Login(ctx, req.Email, req.Password, req.TOTPCode)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loginResp{
		Token:     issued.Token,
		TokenType: "bearer",
		ExpiresAt: issued.Pass.ExpiresAt,
		Scope:     issued.Pass.Scope,
		MaxUses:   issued.Pass.MaxUses,
	})
}
