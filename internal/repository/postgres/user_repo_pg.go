package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
)

const userColumns = `id, institution_id, email, phone, full_name, role, status, password_hash, password_salt, teacher_id, student_id, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.UserAccount, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM user_account
        WHERE id = $1
    `
	var user domain.UserAccount
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, institutionID uuid.UUID, email string) (*domain.UserAccount, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM user_account
        WHERE institution_id = $1 AND LOWER(email) = LOWER($2)
    `
	var user domain.UserAccount
	if err := r.db.GetContext(ctx, &user, query, institutionID, email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByPhoneAndRoles(ctx context.Context, institutionID uuid.UUID, phone string, roles []domain.Role) (*domain.UserAccount, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM user_account
        WHERE institution_id = $1 AND phone = $2 AND role = ANY($3)
        ORDER BY created_at ASC
        LIMIT 1
    `
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	var user domain.UserAccount
	if err := r.db.GetContext(ctx, &user, query, institutionID, phone, pq.Array(names)); err != nil {
		return nil, err
	}
	return &user, nil
}
