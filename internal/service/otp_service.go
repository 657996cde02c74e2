package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
	"github.com/sajidhasan/schooldesk-backend/internal/repository/ports"
	"github.com/sajidhasan/schooldesk-backend/internal/transport/sms"
	"github.com/sajidhasan/schooldesk-backend/internal/util"
)

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeUsed     = errors.New("challenge already used")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrChallengeLocked   = errors.New("challenge attempt limit reached")
	ErrCodeInvalid       = errors.New("invalid code")
	ErrDeliveryFailed    = errors.New("could not deliver verification code")
)

// placeholder stored until delivery succeeds and the real context-bound hash
// replaces it. It can never match any submitted code.
const pendingCodeHash = "pending"

type OtpServiceConfig struct {
	CodeTTL        time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
	CodeLength     int
	HashSecret     []byte
	// DevMode surfaces the plaintext code in send results. Must be false in
	// production.
	DevMode bool
}

// OtpService issues and verifies login challenges. It is stateless; the
// challenge row is the single source of truth, so any number of instances can
// run concurrently against the same store.
type OtpService struct {
	challenges     ports.OtpChallengeRepository
	sender         sms.CodeSender
	checker        sms.CodeChecker
	codeTTL        time.Duration
	resendCooldown time.Duration
	maxAttempts    int
	codeLength     int
	hashSecret     []byte
	devMode        bool
	now            func() time.Time
}

// NewOtpService wires the engine. checker may be nil; then verification always
// uses the stored hash. The sender/checker pair is fixed at construction, the
// engine never re-inspects provider configuration per call.
func NewOtpService(challenges ports.OtpChallengeRepository, sender sms.CodeSender, checker sms.CodeChecker, cfg OtpServiceConfig) *OtpService {
	ttl := cfg.CodeTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	cooldown := cfg.ResendCooldown
	if cooldown <= 0 {
		cooldown = 45 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	codeLength := cfg.CodeLength
	if codeLength <= 0 {
		codeLength = 6
	}

	return &OtpService{
		challenges:     challenges,
		sender:         sender,
		checker:        checker,
		codeTTL:        ttl,
		resendCooldown: cooldown,
		maxAttempts:    maxAttempts,
		codeLength:     codeLength,
		hashSecret:     cfg.HashSecret,
		devMode:        cfg.DevMode,
		now:            time.Now,
	}
}

type OtpSendResult struct {
	ChallengeID     uuid.UUID
	Sent            bool
	CooldownSeconds int
	// DevCode carries the plaintext code in dev mode only.
	DevCode string
}

type OtpVerifyResult struct {
	ChallengeID uuid.UUID
	UserID      *uuid.UUID
}

// Create issues a new challenge for (institution, phone, scope), or returns
// the existing one with Sent=false while its resend cooldown holds. phone must
// already be normalized.
func (s *OtpService) Create(ctx context.Context, institutionID uuid.UUID, phone string, scope domain.LoginScope, userID *uuid.UUID) (*OtpSendResult, error) {
	now := s.now()

	existing, err := s.challenges.FindActive(ctx, institutionID, phone, scope, now)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing != nil && existing.InCooldown(now) {
		remaining := int(existing.ResendAfter.Sub(now).Round(time.Second) / time.Second)
		if remaining < 1 {
			remaining = 1
		}
		return &OtpSendResult{
			ChallengeID:     existing.ID,
			Sent:            false,
			CooldownSeconds: remaining,
		}, nil
	}

	code, err := util.GenerateNumericOTP(s.codeLength)
	if err != nil {
		return nil, err
	}

	challenge := &domain.OtpChallenge{
		ID:            uuid.New(),
		InstitutionID: institutionID,
		Phone:         phone,
		Scope:         scope,
		UserID:        userID,
		CodeHash:      pendingCodeHash,
		Attempts:      0,
		MaxAttempts:   s.maxAttempts,
		ExpiresAt:     now.Add(s.codeTTL),
		ResendAfter:   now.Add(s.resendCooldown),
	}
	created, err := s.challenges.Create(ctx, challenge)
	if err != nil {
		return nil, err
	}

	// Delivery fails closed: a challenge whose code never went out keeps the
	// placeholder hash and can never verify.
	ref, err := s.sender.Send(ctx, phone, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if ref != "" {
		if err := s.challenges.SetProviderRef(ctx, created.ID, ref); err != nil {
			return nil, err
		}
	}

	hash := util.HashChallengeCode(s.hashSecret, created.ID.String(), institutionID.String(), phone, string(scope), code)
	if err := s.challenges.SetCodeHash(ctx, created.ID, hash); err != nil {
		return nil, err
	}

	result := &OtpSendResult{
		ChallengeID:     created.ID,
		Sent:            true,
		CooldownSeconds: int(s.resendCooldown / time.Second),
	}
	if s.devMode {
		result.DevCode = code
	}
	return result, nil
}

// Verify runs the ordered checks from the challenge state machine. Each
// failure is a distinct sentinel; infrastructure errors pass through as-is.
func (s *OtpService) Verify(ctx context.Context, challengeID, institutionID uuid.UUID, phone string, scope domain.LoginScope, code string) (*OtpVerifyResult, error) {
	now := s.now()

	challenge, err := s.challenges.FindByID(ctx, challengeID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	if challenge.InstitutionID != institutionID || challenge.Phone != phone || challenge.Scope != scope {
		return nil, ErrChallengeNotFound
	}
	if challenge.ConsumedAt != nil {
		return nil, ErrChallengeUsed
	}
	if !now.Before(challenge.ExpiresAt) {
		return nil, ErrChallengeExpired
	}
	if challenge.Locked() {
		return nil, ErrChallengeLocked
	}

	match, err := s.codeMatches(ctx, challenge, code)
	if err != nil {
		return nil, err
	}
	if !match {
		// The increment must land before we answer; silently losing it would
		// under-count a brute-force attempt.
		if _, err := s.challenges.IncrementAttempts(ctx, challengeID); err != nil && !isNotFound(err) {
			return nil, err
		}
		return nil, ErrCodeInvalid
	}

	consumed, err := s.challenges.Consume(ctx, challengeID, now)
	if err != nil {
		return nil, err
	}
	if !consumed {
		// A concurrent verification won the compare-and-set.
		return nil, ErrChallengeUsed
	}

	return &OtpVerifyResult{
		ChallengeID: challenge.ID,
		UserID:      challenge.UserID,
	}, nil
}

func (s *OtpService) codeMatches(ctx context.Context, challenge *domain.OtpChallenge, code string) (bool, error) {
	if challenge.ProviderRef != nil && s.checker != nil {
		ok, err := s.checker.Check(ctx, challenge.Phone, code)
		if err != nil {
			return false, fmt.Errorf("provider code check: %w", err)
		}
		return ok, nil
	}
	if challenge.CodeHash == pendingCodeHash {
		return false, nil
	}
	return util.VerifyChallengeCode(
		s.hashSecret,
		challenge.ID.String(), challenge.InstitutionID.String(),
		challenge.Phone, string(challenge.Scope),
		code, challenge.CodeHash,
	), nil
}
