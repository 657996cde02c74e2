package domain

import (
	"time"

	"github.com/google/uuid"
)

// LoginScope is the role category a login challenge is bound to. A code sent
// for one scope can never verify a login for another.
type LoginScope string

const (
	ScopeAdmin   LoginScope = "ADMIN"
	ScopeTeacher LoginScope = "TEACHER"
	ScopeStudent LoginScope = "STUDENT"
	ScopeParent  LoginScope = "PARENT"
)

func (s LoginScope) IsValid() bool {
	switch s {
	case ScopeAdmin, ScopeTeacher, ScopeStudent, ScopeParent:
		return true
	}
	return false
}

// Roles lists the account roles a scope may log in as. The ADMIN scope covers
// the whole back-office role set; the other scopes map one to one.
func (s LoginScope) Roles() []Role {
	switch s {
	case ScopeAdmin:
		return []Role{RoleSuperAdmin, RoleAdmin, RolePrincipal, RoleStaff}
	case ScopeTeacher:
		return []Role{RoleTeacher}
	case ScopeStudent:
		return []Role{RoleStudent}
	case ScopeParent:
		return []Role{RoleParent}
	}
	return nil
}

// OtpChallenge is a single code issuance-and-verification attempt. The raw
// code is never stored; code_hash holds a context-bound digest once delivery
// has completed.
type OtpChallenge struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	InstitutionID uuid.UUID  `db:"institution_id" json:"institution_id"`
	Phone         string     `db:"phone" json:"phone"`
	Scope         LoginScope `db:"scope" json:"scope"`
	UserID        *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	CodeHash      string     `db:"code_hash" json:"-"`
	Attempts      int        `db:"attempts" json:"attempts"`
	MaxAttempts   int        `db:"max_attempts" json:"max_attempts"`
	ExpiresAt     time.Time  `db:"expires_at" json:"expires_at"`
	ResendAfter   time.Time  `db:"resend_after" json:"resend_after"`
	ConsumedAt    *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
	ProviderRef   *string    `db:"provider_ref" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Active reports whether the challenge can still be verified: not yet
// consumed and not past its expiry.
func (c *OtpChallenge) Active(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}

// InCooldown reports whether a resend request must still wait.
func (c *OtpChallenge) InCooldown(now time.Time) bool {
	return now.Before(c.ResendAfter)
}

// Locked reports whether the attempt cap has been reached.
func (c *OtpChallenge) Locked() bool {
	return c.Attempts >= c.MaxAttempts
}
