package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountPending  AccountStatus = "pending"
	AccountRejected AccountStatus = "rejected"
	AccountDisabled AccountStatus = "disabled"
)

// UserAccount is a login account scoped to one institution. Accounts are
// provisioned independently of the teacher/student directories; TeacherID and
// StudentID are only set once the linkage is known.
type UserAccount struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	InstitutionID uuid.UUID     `db:"institution_id" json:"institution_id"`
	Email         string        `db:"email" json:"email"`
	Phone         string        `db:"phone" json:"phone"`
	FullName      *string       `db:"full_name" json:"full_name,omitempty"`
	Role          Role          `db:"role" json:"role"`
	Status        AccountStatus `db:"status" json:"status"`
	PasswordHash  []byte        `db:"password_hash" json:"-"`
	PasswordSalt  []byte        `db:"password_salt" json:"-"`
	TeacherID     *uuid.UUID    `db:"teacher_id" json:"teacher_id,omitempty"`
	StudentID     *uuid.UUID    `db:"student_id" json:"student_id,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}
