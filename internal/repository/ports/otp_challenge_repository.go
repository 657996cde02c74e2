package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
)

// OtpChallengeRepository persists login challenges. Attempt counting and
// consumption must be atomic at the store: concurrent verifications of the
// same challenge may never under-count attempts or double-consume.
type OtpChallengeRepository interface {
	Create(ctx context.Context, challenge *domain.OtpChallenge) (*domain.OtpChallenge, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.OtpChallenge, error)
	// FindActive returns the newest unconsumed, unexpired challenge for the
	// (institution, phone, scope) triple, or sql.ErrNoRows.
	FindActive(ctx context.Context, institutionID uuid.UUID, phone string, scope domain.LoginScope, now time.Time) (*domain.OtpChallenge, error)
	SetCodeHash(ctx context.Context, id uuid.UUID, codeHash string) error
	SetProviderRef(ctx context.Context, id uuid.UUID, ref string) error
	// IncrementAttempts adds one to the attempt counter in a single UPDATE
	// and returns the new value.
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// Consume marks the challenge used, compare-and-set on consumed_at.
	// Returns false when another verification won the race.
	Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}
