package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.UserAccount, error)
	FindByEmail(ctx context.Context, institutionID uuid.UUID, email string) (*domain.UserAccount, error)
	// FindByPhoneAndRoles matches a normalized phone against accounts holding
	// any of the given roles within the institution.
	FindByPhoneAndRoles(ctx context.Context, institutionID uuid.UUID, phone string, roles []domain.Role) (*domain.UserAccount, error)
}
