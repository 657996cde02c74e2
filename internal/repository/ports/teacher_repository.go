package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
)

type TeacherRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Teacher, error)
	// FindByIdentity falls back to matching the directory by email
	// (case-insensitive) or phone suffix when no account linkage exists.
	// Either match key may be empty; an empty key never matches.
	FindByIdentity(ctx context.Context, institutionID uuid.UUID, email, phoneSuffix string) (*domain.Teacher, error)
	// ListClassIDsByClassTeacher returns the class sections where the teacher
	// is the assigned class teacher.
	ListClassIDsByClassTeacher(ctx context.Context, teacherID uuid.UUID) ([]uuid.UUID, error)
}
