package model

import "time"

// PassType classifies what a pass was issued for.
type PassType string

const (
	PassTypeVisitor   PassType = "VISITOR"
	PassTypeAdmin     PassType = "ADMIN"
	PassTypeInterview PassType = "INTERVIEW"
	PassTypeEmployee  PassType = "EMPLOYEE"
	PassTypeCandidate PassType = "CANDIDATE"
)

// Valid reports whether t is one of the known pass types.
func (t PassType) Valid() bool {
	switch t {
	case PassTypeVisitor, PassTypeAdmin, PassTypeInterview, PassTypeEmployee, PassTypeCandidate:
		return true
	}
	return false
}

// PassStatus is the lifecycle state of an issued pass.  Only active passes
// are ever accepted by the guard.
type PassStatus string

const (
	PassActive    PassStatus = "active"
	PassExhausted PassStatus = "exhausted"
	PassRevoked   PassStatus = "revoked"
	PassExpired   PassStatus = "expired"
)

// Pass is an issued credential record as stored in the `passes` table.
// The ID doubles as the jti of the signed token minted for it, so every
// token correlates to exactly one row.  Rows are never deleted; they are
// retained for audit.
//
// Fields:
//
//	ID        – primary key, equal to the token id.
//	Subject   – who the pass was issued to (email, candidate id, ...).
//	Type      – pass type (VISITOR, ADMIN, INTERVIEW, ...).
//	Scope     – permission strings granted by the pass.
//	ExpiresAt – UTC instant after which the pass is no longer accepted.
//	MaxUses   – maximum number of successful consumptions.
//	UsedCount – successful consumptions so far; never exceeds MaxUses.
//	Status    – active, exhausted, revoked or expired.
//	Meta      – free-form metadata supplied at issuance.
//	CreatedAt – issuance timestamp.
type Pass struct {
	ID        string            `json:"id"`         // passes.id
	Subject   string            `json:"subject"`    // passes.subject
	Type      PassType          `json:"type"`       // passes.pass_type
	Scope     []string          `json:"scope"`      // passes.scope (JSON array)
	ExpiresAt time.Time         `json:"expires_at"` // passes.expires_at
	MaxUses   int               `json:"max_uses"`   // passes.max_uses
	UsedCount int               `json:"used_count"` // passes.used_count
	Status    PassStatus        `json:"status"`     // passes.status
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"created_at"` // passes.created_at
}

// RemainingUses returns how many consumptions are left on the pass.
func (p Pass) RemainingUses() int {
	if p.UsedCount >= p.MaxUses {
		return 0
	}
	return p.MaxUses - p.UsedCount
}

// HasScope reports whether the pass grants scope s.
func (p Pass) HasScope(s string) bool {
	for _, v := range p.Scope {
		if v == s {
			return true
		}
	}
	return false
}
