package domain

import (
	"time"

	"github.com/google/uuid"
)

type Student struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	InstitutionID  uuid.UUID  `db:"institution_id" json:"institution_id"`
	ClassSectionID *uuid.UUID `db:"class_section_id" json:"class_section_id,omitempty"`
	FullName       string     `db:"full_name" json:"full_name"`
	Email          *string    `db:"email" json:"email,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	PhotoURL       *string    `db:"photo_url" json:"photo_url,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Guardian is a parent/guardian directory entry attached to a student.
type Guardian struct {
	ID        uuid.UUID `db:"id" json:"id"`
	StudentID uuid.UUID `db:"student_id" json:"student_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Relation  *string   `db:"relation" json:"relation,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
