package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/idtoken"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
	"github.com/sajidhasan/schooldesk-backend/internal/repository/ports"
	"github.com/sajidhasan/schooldesk-backend/internal/util"
)

var (
	ErrInstitutionNotFound   = errors.New("institution not found")
	ErrInstitutionSuspended  = errors.New("institution suspended")
	ErrInvalidPhone          = errors.New("invalid phone number")
	ErrInvalidScope          = errors.New("invalid login scope")
	ErrAccountPending        = errors.New("account pending approval")
	ErrAccountRejected       = errors.New("account rejected")
	ErrAccountDisabled       = errors.New("account disabled")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrGoogleTokenInvalid    = errors.New("invalid google token")
	ErrPasswordLoginDisabled = errors.New("password login not set up for this account")
)

// AuthService fronts the OTP engine with account resolution and turns a
// verified challenge into a signed session token.
type AuthService struct {
	institutions ports.InstitutionRepository
	users        ports.UserRepository
	otp          *OtpService
	jwt          *util.JWTManager
	googleAud    string
}

func NewAuthService(institutions ports.InstitutionRepository, users ports.UserRepository, otp *OtpService, jwt *util.JWTManager, googleAud string) *AuthService {
	return &AuthService{
		institutions: institutions,
		users:        users,
		otp:          otp,
		jwt:          jwt,
		googleAud:    googleAud,
	}
}

// AuthSendResult is the outcome of a send-code request. AccountMissing means
// no matching account exists; callers must answer with the same generic
// success they use for a real send, so the endpoint cannot be used to probe
// which phones are registered.
type AuthSendResult struct {
	AccountMissing bool
	Otp            *OtpSendResult
}

type AuthSession struct {
	Token       string
	ExpiresAt   time.Time
	ChallengeID uuid.UUID
	User        *domain.UserAccount
}

func (s *AuthService) SendLoginCode(ctx context.Context, slug string, scope domain.LoginScope, rawPhone string) (*AuthSendResult, error) {
	institution, phone, err := s.resolveRequest(ctx, slug, scope, rawPhone)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByPhoneAndRoles(ctx, institution.ID, phone, scope.Roles())
	if err != nil {
		if isNotFound(err) {
			return &AuthSendResult{AccountMissing: true}, nil
		}
		return nil, err
	}
	if err := accountStatusError(user.Status); err != nil {
		return nil, err
	}

	result, err := s.otp.Create(ctx, institution.ID, phone, scope, &user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthSendResult{Otp: result}, nil
}

func (s *AuthService) VerifyLoginCode(ctx context.Context, slug string, scope domain.LoginScope, rawPhone string, challengeID uuid.UUID, code string) (*AuthSession, error) {
	institution, phone, err := s.resolveRequest(ctx, slug, scope, rawPhone)
	if err != nil {
		return nil, err
	}

	verified, err := s.otp.Verify(ctx, challengeID, institution.ID, phone, scope, code)
	if err != nil {
		return nil, err
	}

	var user *domain.UserAccount
	if verified.UserID != nil {
		user, err = s.users.FindByID(ctx, *verified.UserID)
	} else {
		user, err = s.users.FindByPhoneAndRoles(ctx, institution.ID, phone, scope.Roles())
	}
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAuthenticationFailed
		}
		return nil, err
	}
	if err := accountStatusError(user.Status); err != nil {
		return nil, err
	}

	return s.mintSession(user, scope, verified.ChallengeID)
}

// LoginWithPassword authenticates back-office accounts that keep a password
// alongside phone OTP.
func (s *AuthService) LoginWithPassword(ctx context.Context, slug, email, password string) (*AuthSession, error) {
	institution, err := s.findInstitution(ctx, slug)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, institution.ID, util.NormalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Role.SeesAllStudents() && user.Role != domain.RoleTeacher {
		return nil, ErrInvalidCredentials
	}
	if len(user.PasswordHash) == 0 || len(user.PasswordSalt) == 0 {
		return nil, ErrPasswordLoginDisabled
	}
	if !util.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if err := accountStatusError(user.Status); err != nil {
		return nil, err
	}

	return s.mintSession(user, domain.ScopeAdmin, uuid.Nil)
}

// LoginWithGoogle accepts a Google ID token for staff accounts. No account is
// created here; unknown emails fail like any bad credential.
func (s *AuthService) LoginWithGoogle(ctx context.Context, slug, idTok string) (*AuthSession, error) {
	institution, err := s.findInstitution(ctx, slug)
	if err != nil {
		return nil, err
	}

	payload, err := idtoken.Validate(ctx, idTok, s.googleAud)
	if err != nil {
		return nil, ErrGoogleTokenInvalid
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, ErrGoogleTokenInvalid
	}

	user, err := s.users.FindByEmail(ctx, institution.ID, util.NormalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Role.SeesAllStudents() {
		return nil, ErrInvalidCredentials
	}
	if err := accountStatusError(user.Status); err != nil {
		return nil, err
	}

	return s.mintSession(user, domain.ScopeAdmin, uuid.Nil)
}

// Authenticate resolves a bearer token back to its account.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.UserAccount, error) {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAuthenticationFailed
		}
		return nil, err
	}
	if user.Status != domain.AccountActive {
		return nil, ErrAuthenticationFailed
	}
	return user, nil
}

func (s *AuthService) resolveRequest(ctx context.Context, slug string, scope domain.LoginScope, rawPhone string) (*domain.Institution, string, error) {
	if !scope.IsValid() {
		return nil, "", ErrInvalidScope
	}
	institution, err := s.findInstitution(ctx, slug)
	if err != nil {
		return nil, "", err
	}
	phone := util.NormalizePhone(rawPhone)
	if phone == "" {
		return nil, "", ErrInvalidPhone
	}
	return institution, phone, nil
}

func (s *AuthService) findInstitution(ctx context.Context, slug string) (*domain.Institution, error) {
	institution, err := s.institutions.FindBySlug(ctx, slug)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInstitutionNotFound
		}
		return nil, err
	}
	if institution.Status != domain.InstitutionActive {
		return nil, ErrInstitutionSuspended
	}
	return institution, nil
}

func (s *AuthService) mintSession(user *domain.UserAccount, scope domain.LoginScope, challengeID uuid.UUID) (*AuthSession, error) {
	token, expiresAt, err := s.jwt.Generate(user.ID, user.InstitutionID, string(user.Role), string(scope))
	if err != nil {
		return nil, err
	}
	return &AuthSession{
		Token:       token,
		ExpiresAt:   expiresAt,
		ChallengeID: challengeID,
		User:        user,
	}, nil
}

func accountStatusError(status domain.AccountStatus) error {
	switch status {
	case domain.AccountActive:
		return nil
	case domain.AccountPending:
		return ErrAccountPending
	case domain.AccountRejected:
		return ErrAccountRejected
	default:
		return ErrAccountDisabled
	}
}
