// Package service implements the pass, admin authentication and interview
// booking workflows on top of the repositories.  Every state change runs
// in one transaction together with its audit entry.
package service

import "errors"

var (
	// ErrBadCredentials means the email is unknown or the password is wrong.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrBadTotp means the one-time code is wrong, stale or already used.
	ErrBadTotp = errors.New("bad one-time code")
	// ErrValidation wraps input problems; handlers answer 400.
	ErrValidation = errors.New("validation failed")
)
