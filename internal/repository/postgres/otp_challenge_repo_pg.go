package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
)

const otpChallengeColumns = `id, institution_id, phone, scope, user_id, code_hash, attempts, max_attempts, expires_at, resend_after, consumed_at, provider_ref, created_at`

type OtpChallengeRepository struct {
	db *sqlx.DB
}

func NewOtpChallengeRepo(db *sqlx.DB) *OtpChallengeRepository {
	return &OtpChallengeRepository{db: db}
}

func (r *OtpChallengeRepository) Create(ctx context.Context, challenge *domain.OtpChallenge) (*domain.OtpChallenge, error) {
	const query = `
        INSERT INTO otp_challenge (id, institution_id, phone, scope, user_id, code_hash, attempts, max_attempts, expires_at, resend_after)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING ` + otpChallengeColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query,
		challenge.ID, challenge.InstitutionID, challenge.Phone, challenge.Scope,
		challenge.UserID, challenge.CodeHash, challenge.Attempts, challenge.MaxAttempts,
		challenge.ExpiresAt, challenge.ResendAfter,
	)
	var created domain.OtpChallenge
	if err := row.StructScan(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *OtpChallengeRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.OtpChallenge, error) {
	const query = `
        SELECT ` + otpChallengeColumns + `
        FROM otp_challenge
        WHERE id = $1
    `
	var challenge domain.OtpChallenge
	if err := r.db.GetContext(ctx, &challenge, query, id); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *OtpChallengeRepository) FindActive(ctx context.Context, institutionID uuid.UUID, phone string, scope domain.LoginScope, now time.Time) (*domain.OtpChallenge, error) {
	const query = `
        SELECT ` + otpChallengeColumns + `
        FROM otp_challenge
        WHERE institution_id = $1 AND phone = $2 AND scope = $3
          AND consumed_at IS NULL AND expires_at > $4
        ORDER BY created_at DESC
        LIMIT 1
    `
	var challenge domain.OtpChallenge
	if err := r.db.GetContext(ctx, &challenge, query, institutionID, phone, scope, now); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *OtpChallengeRepository) SetCodeHash(ctx context.Context, id uuid.UUID, codeHash string) error {
	const query = `
        UPDATE otp_challenge
        SET code_hash = $2
        WHERE id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id, codeHash)
	return err
}

func (r *OtpChallengeRepository) SetProviderRef(ctx context.Context, id uuid.UUID, ref string) error {
	const query = `
        UPDATE otp_challenge
        SET provider_ref = $2
        WHERE id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id, ref)
	return err
}

// IncrementAttempts bumps the counter in a single UPDATE so two concurrent
// wrong-code submissions can never under-count. The attempts < max_attempts
// guard keeps racing submissions from pushing the counter past the ceiling;
// once it is reached the ceiling is returned without another write.
func (r *OtpChallengeRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	const query = `
        UPDATE otp_challenge
        SET attempts = attempts + 1
        WHERE id = $1 AND consumed_at IS NULL AND attempts < max_attempts
        RETURNING attempts
    `
	var attempts int
	err := r.db.GetContext(ctx, &attempts, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		const ceiling = `SELECT max_attempts FROM otp_challenge WHERE id = $1`
		if err := r.db.GetContext(ctx, &attempts, ceiling, id); err != nil {
			return 0, err
		}
		return attempts, nil
	}
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

// Consume sets consumed_at once. The WHERE clause is the compare-and-set: a
// second caller sees zero rows affected and loses the race.
func (r *OtpChallengeRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	const query = `
        UPDATE otp_challenge
        SET consumed_at = $2
        WHERE id = $1 AND consumed_at IS NULL
    `
	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
