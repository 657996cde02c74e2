package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
)

const teacherColumns = `id, institution_id, full_name, email, phone, user_id, created_at, updated_at`

type TeacherRepository struct {
	db *sqlx.DB
}

func NewTeacherRepo(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

func (r *TeacherRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Teacher, error) {
	const query = `
        SELECT ` + teacherColumns + `
        FROM teacher
        WHERE user_id = $1
    `
	var teacher domain.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, userID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByIdentity matches the directory by email or phone suffix. The suffix
// comparison strips formatting on the stored side so country-code drift
// between account and directory records does not break the match.
func (r *TeacherRepository) FindByIdentity(ctx context.Context, institutionID uuid.UUID, email, phoneSuffix string) (*domain.Teacher, error) {
	if email == "" && phoneSuffix == "" {
		return nil, sql.ErrNoRows
	}
	const query = `
        SELECT ` + teacherColumns + `
        FROM teacher
        WHERE institution_id = $1
          AND (
                ($2 <> '' AND LOWER(email) = LOWER($2))
             OR ($3 <> '' AND RIGHT(regexp_replace(COALESCE(phone, ''), '\D', '', 'g'), 10) = $3)
          )
        ORDER BY created_at ASC
        LIMIT 1
    `
	var teacher domain.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, institutionID, email, phoneSuffix); err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (r *TeacherRepository) ListClassIDsByClassTeacher(ctx context.Context, teacherID uuid.UUID) ([]uuid.UUID, error) {
	const query = `
        SELECT id
        FROM class_section
        WHERE class_teacher_id = $1
        ORDER BY name ASC
    `
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, err
	}
	return ids, nil
}
