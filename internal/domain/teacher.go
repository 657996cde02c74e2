package domain

import (
	"time"

	"github.com/google/uuid"
)

// Teacher is a directory record, not a login account. UserID links the record
// to an account when the linkage is known; identity matching fills the gap
// when it is not.
type Teacher struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	InstitutionID uuid.UUID  `db:"institution_id" json:"institution_id"`
	FullName      string     `db:"full_name" json:"full_name"`
	Email         *string    `db:"email" json:"email,omitempty"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	UserID        *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// ClassSection is a class group with an optional assigned class teacher.
type ClassSection struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	InstitutionID  uuid.UUID  `db:"institution_id" json:"institution_id"`
	Name           string     `db:"name" json:"name"`
	ClassTeacherID *uuid.UUID `db:"class_teacher_id" json:"class_teacher_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
