package ports

import (
	"context"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
)

type InstitutionRepository interface {
	FindBySlug(ctx context.Context, slug string) (*domain.Institution, error)
}
