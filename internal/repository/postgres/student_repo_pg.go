package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
)

const studentColumns = `s.id, s.institution_id, s.class_section_id, s.full_name, s.email, s.phone, s.photo_url, s.created_at, s.updated_at`

type StudentRepository struct {
	db *sqlx.DB
}

func NewStudentRepo(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// visibilityClause renders a StudentVisibility into SQL appended to the WHERE
// of a student query. Arguments are appended to args; the clause references
// them by position.
func visibilityClause(vis domain.StudentVisibility, args *[]any) string {
	switch vis.Mode {
	case domain.VisibilityAll:
		return "TRUE"
	case domain.VisibilityClasses:
		if len(vis.ClassIDs) == 0 {
			return "FALSE"
		}
		ids := make([]string, len(vis.ClassIDs))
		for i, id := range vis.ClassIDs {
			ids[i] = id.String()
		}
		*args = append(*args, pq.Array(ids))
		return fmt.Sprintf("s.class_section_id = ANY($%d::uuid[])", len(*args))
	case domain.VisibilitySelf:
		return identityClause("s", vis, args)
	case domain.VisibilityGuardian:
		inner := identityClause("g", vis, args)
		return "EXISTS (SELECT 1 FROM guardian g WHERE g.student_id = s.id AND " + inner + ")"
	default:
		// Sentinel id that cannot exist; matches nothing.
		*args = append(*args, uuid.Nil)
		return fmt.Sprintf("s.id = $%d", len(*args))
	}
}

func identityClause(alias string, vis domain.StudentVisibility, args *[]any) string {
	if vis.Email == "" && vis.PhoneSuffix == "" {
		return "FALSE"
	}
	*args = append(*args, vis.Email, vis.PhoneSuffix)
	emailPos := len(*args) - 1
	suffixPos := len(*args)
	return fmt.Sprintf(
		"(($%d <> '' AND LOWER(%s.email) = $%d) OR ($%d <> '' AND RIGHT(regexp_replace(COALESCE(%s.phone, ''), '\\D', '', 'g'), 10) = $%d))",
		emailPos, alias, emailPos, suffixPos, alias, suffixPos,
	)
}

func (r *StudentRepository) List(ctx context.Context, institutionID uuid.UUID, vis domain.StudentVisibility, limit, offset int) ([]domain.Student, error) {
	args := []any{institutionID}
	clause := visibilityClause(vis, &args)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
        SELECT `+studentColumns+`
        FROM student s
        WHERE s.institution_id = $1 AND %s
        ORDER BY s.full_name ASC, s.id ASC
        LIMIT $%d OFFSET $%d
    `, clause, len(args)-1, len(args))

	students := []domain.Student{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, err
	}
	return students, nil
}

func (r *StudentRepository) Count(ctx context.Context, institutionID uuid.UUID, vis domain.StudentVisibility) (int64, error) {
	args := []any{institutionID}
	clause := visibilityClause(vis, &args)
	query := fmt.Sprintf(`
        SELECT COUNT(*)
        FROM student s
        WHERE s.institution_id = $1 AND %s
    `, clause)

	var count int64
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *StudentRepository) FindByID(ctx context.Context, institutionID, id uuid.UUID, vis domain.StudentVisibility) (*domain.Student, error) {
	args := []any{institutionID, id}
	clause := visibilityClause(vis, &args)
	query := fmt.Sprintf(`
        SELECT `+studentColumns+`
        FROM student s
        WHERE s.institution_id = $1 AND s.id = $2 AND %s
    `, clause)

	var student domain.Student
	if err := r.db.GetContext(ctx, &student, query, args...); err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) Create(ctx context.Context, student *domain.Student) (*domain.Student, error) {
	const query = `
        INSERT INTO student (institution_id, class_section_id, full_name, email, phone)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, institution_id, class_section_id, full_name, email, phone, photo_url, created_at, updated_at
    `
	row := r.db.QueryRowxContext(ctx, query,
		student.InstitutionID, student.ClassSectionID, student.FullName, student.Email, student.Phone,
	)
	var created domain.Student
	if err := row.StructScan(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *StudentRepository) CreateGuardian(ctx context.Context, guardian *domain.Guardian) (*domain.Guardian, error) {
	const query = `
        INSERT INTO guardian (student_id, full_name, relation, email, phone)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, student_id, full_name, relation, email, phone, created_at
    `
	row := r.db.QueryRowxContext(ctx, query,
		guardian.StudentID, guardian.FullName, guardian.Relation, guardian.Email, guardian.Phone,
	)
	var created domain.Guardian
	if err := row.StructScan(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *StudentRepository) SetPhotoURL(ctx context.Context, institutionID, id uuid.UUID, photoURL string) error {
	const query = `
        UPDATE student
        SET photo_url = $3,
            updated_at = NOW()
        WHERE institution_id = $1 AND id = $2
    `
	_, err := r.db.ExecContext(ctx, query, institutionID, id, photoURL)
	return err
}
