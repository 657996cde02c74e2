package domain

import "github.com/google/uuid"

// VisibilityMode selects how a student query is restricted for a viewer.
type VisibilityMode int

const (
	// VisibilityNone matches no rows. The default, so a zero value never
	// widens access.
	VisibilityNone VisibilityMode = iota
	// VisibilityAll applies no restriction beyond the institution.
	VisibilityAll
	// VisibilityClasses restricts to students in the listed class sections.
	VisibilityClasses
	// VisibilitySelf restricts to records whose own email/phone matches the
	// viewer's identity.
	VisibilitySelf
	// VisibilityGuardian restricts to records with a guardian whose
	// email/phone matches the viewer's identity.
	VisibilityGuardian
)

// StudentVisibility is a declarative filter applied to every student query a
// viewer runs. It is data, not SQL; the student repository translates it to a
// WHERE clause.
type StudentVisibility struct {
	Mode        VisibilityMode
	ClassIDs    []uuid.UUID
	Email       string // normalized, lower case
	PhoneSuffix string // last digits of the normalized phone
}

func VisibilityAllStudents() StudentVisibility {
	return StudentVisibility{Mode: VisibilityAll}
}

func VisibilityNoStudents() StudentVisibility {
	return StudentVisibility{Mode: VisibilityNone}
}
