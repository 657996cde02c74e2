package domain

import (
	"time"

	"github.com/google/uuid"
)

type InstitutionStatus string

const (
	InstitutionActive    InstitutionStatus = "active"
	InstitutionSuspended InstitutionStatus = "suspended"
)

// Institution is a tenant. Every row in the school tables carries its id.
type Institution struct {
	ID        uuid.UUID         `db:"id" json:"id"`
	Slug      string            `db:"slug" json:"slug"`
	Name      string            `db:"name" json:"name"`
	Status    InstitutionStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}
