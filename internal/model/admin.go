package model

import "time"

// AdminUser is a row of the `admin_users` table.  Admins authenticate
// with a bcrypt password plus a TOTP code derived from TOTPSecret.
//
// Fields:
//
//	Email        – primary key, stored lower-cased.
//	PasswordHash – bcrypt hash of the password.
//	TOTPSecret   – base32 shared secret for the one-time code.
//	CreatedAt    – creation timestamp.
type AdminUser struct {
	Email        string    // admin_users.email
	PasswordHash string    // admin_users.password_hash
	TOTPSecret   string    // admin_users.totp_secret
	CreatedAt    time.Time // admin_users.created_at
}

// AuditLog is an append-only record of who did what to which entity.
// Entries are written for every pass, slot and interview transition and
// for every admin login attempt.  Nothing ever updates or deletes them.
type AuditLog struct {
	ID         string            `json:"id"`
	Actor      string            `json:"actor"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
