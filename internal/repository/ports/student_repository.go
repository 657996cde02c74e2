package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
)

// StudentRepository reads and writes student records. Every read takes the
// viewer's visibility filter; there is no unfiltered read path.
type StudentRepository interface {
	List(ctx context.Context, institutionID uuid.UUID, vis domain.StudentVisibility, limit, offset int) ([]domain.Student, error)
	Count(ctx context.Context, institutionID uuid.UUID, vis domain.StudentVisibility) (int64, error)
	FindByID(ctx context.Context, institutionID, id uuid.UUID, vis domain.StudentVisibility) (*domain.Student, error)
	Create(ctx context.Context, student *domain.Student) (*domain.Student, error)
	CreateGuardian(ctx context.Context, guardian *domain.Guardian) (*domain.Guardian, error)
	SetPhotoURL(ctx context.Context, institutionID, id uuid.UUID, photoURL string) error
}
