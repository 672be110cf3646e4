package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/hrpass/internal/model"
)

// AdminRepo mirrors the admin_users table.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create inserts an admin.  The password must already be hashed.
func (r *AdminRepo) Create(ctx context.Context, a model.AdminUser) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO admin_users (email, password_hash, totp_secret, created_at) VALUES (?,?,?,?)",
		NormalizeEmail(a.Email), a.PasswordHash, a.TOTPSecret, dbTime(a.CreatedAt))
	if isDuplicate(err) {
		return ErrEmailExists
	}
	return err
}

// GetByEmail fetches an admin by normalized email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (model.AdminUser, error) {
	var a model.AdminUser
	err := r.DB.QueryRowContext(ctx,
		"SELECT email,password_hash,totp_secret,created_at FROM admin_users WHERE email=? LIMIT 1",
		NormalizeEmail(email)).Scan(&a.Email, &a.PasswordHash, &a.TOTPSecret, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}
