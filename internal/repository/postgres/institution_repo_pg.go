package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
)

type InstitutionRepository struct {
	db *sqlx.DB
}

func NewInstitutionRepo(db *sqlx.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

func (r *InstitutionRepository) FindBySlug(ctx context.Context, slug string) (*domain.Institution, error) {
	const query = `
        SELECT id, slug, name, status, created_at, updated_at
        FROM institution
        WHERE slug = $1
    `
	var institution domain.Institution
	if err := r.db.GetContext(ctx, &institution, query, slug); err != nil {
		return nil, err
	}
	return &institution, nil
}
