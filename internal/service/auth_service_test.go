package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
	"github.com/sajidhasan/schooldesk-backend/internal/util"
)

type fakeInstitutionRepo struct {
	bySlug map[string]*domain.Institution
	err    error
}

func (f *fakeInstitutionRepo) FindBySlug(ctx context.Context, slug string) (*domain.Institution, error) {
	if f.err != nil {
		return nil, f.err
	}
	if inst, ok := f.bySlug[slug]; ok {
		clone := *inst
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

type fakeUserRepo struct {
	byID map[uuid.UUID]*domain.UserAccount

	byEmail      map[string]*domain.UserAccount
	emailInputs  []string
	findEmailErr error

	phoneInputs []struct {
		institutionID uuid.UUID
		phone         string
		roles         []domain.Role
	}
	byPhone      map[string]*domain.UserAccount
	findPhoneErr error
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.UserAccount, error) {
	if user, ok := f.byID[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, institutionID uuid.UUID, email string) (*domain.UserAccount, error) {
	f.emailInputs = append(f.emailInputs, email)
	if f.findEmailErr != nil {
		return nil, f.findEmailErr
	}
	if user, ok := f.byEmail[email]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByPhoneAndRoles(ctx context.Context, institutionID uuid.UUID, phone string, roles []domain.Role) (*domain.UserAccount, error) {
	f.phoneInputs = append(f.phoneInputs, struct {
		institutionID uuid.UUID
		phone         string
		roles         []domain.Role
	}{institutionID: institutionID, phone: phone, roles: roles})
	if f.findPhoneErr != nil {
		return nil, f.findPhoneErr
	}
	if user, ok := f.byPhone[phone]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

type authFixture struct {
	institution *domain.Institution
	users       *fakeUserRepo
	challenges  *fakeChallengeRepo
	sender      *fakeSender
	jwt         *util.JWTManager
	svc         *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	institution := &domain.Institution{
		ID:     uuid.New(),
		Slug:   "greenfield",
		Name:   "Greenfield Academy",
		Status: domain.InstitutionActive,
	}
	institutions := &fakeInstitutionRepo{bySlug: map[string]*domain.Institution{"greenfield": institution}}
	users := &fakeUserRepo{
		byID:    make(map[uuid.UUID]*domain.UserAccount),
		byEmail: make(map[string]*domain.UserAccount),
		byPhone: make(map[string]*domain.UserAccount),
	}
	challenges := newFakeChallengeRepo()
	sender := &fakeSender{}

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	otp := newOtpServiceForTests(challenges, sender, nil, now)
	jwtManager := util.NewJWTManager("test-secret", time.Hour)

	return &authFixture{
		institution: institution,
		users:       users,
		challenges:  challenges,
		sender:      sender,
		jwt:         jwtManager,
		svc:         NewAuthService(institutions, users, otp, jwtManager, "google-audience"),
	}
}

func (fx *authFixture) addUser(role domain.Role, status domain.AccountStatus, phone, email string) *domain.UserAccount {
	user := &domain.UserAccount{
		ID:            uuid.New(),
		InstitutionID: fx.institution.ID,
		Email:         email,
		Phone:         phone,
		Role:          role,
		Status:        status,
	}
	fx.users.byID[user.ID] = user
	if phone != "" {
		fx.users.byPhone[phone] = user
	}
	if email != "" {
		fx.users.byEmail[email] = user
	}
	return user
}

func TestSendLoginCodeSuccess(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)
	user := fx.addUser(domain.RoleTeacher, domain.AccountActive, "+8801712345678", "rahim@school.edu")

	result, err := fx.svc.SendLoginCode(ctx, "greenfield", domain.ScopeTeacher, "01712345678")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.AccountMissing {
		t.Fatal("account exists, AccountMissing must be false")
	}
	if result.Otp == nil || !result.Otp.Sent {
		t.Fatalf("expected a delivered challenge, got %+v", result.Otp)
	}
	if len(fx.users.phoneInputs) != 1 || fx.users.phoneInputs[0].phone != "+8801712345678" {
		t.Fatalf("expected lookup with the normalized phone, got %+v", fx.users.phoneInputs)
	}
	stored := fx.challenges.byID[result.Otp.ChallengeID]
	if stored == nil || stored.UserID == nil || *stored.UserID != user.ID {
		t.Fatal("expected the challenge to be linked to the matched account")
	}
}

func TestSendLoginCodeUnknownPhone(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)

	result, err := fx.svc.SendLoginCode(ctx, "greenfield", domain.ScopeTeacher, "01712345678")
	if err != nil {
		t.Fatalf("an unknown phone must not surface an error, got %v", err)
	}
	if !result.AccountMissing {
		t.Fatal("expected AccountMissing")
	}
	if len(fx.sender.sent) != 0 {
		t.Fatal("no code may be delivered to an unknown phone")
	}
}

func TestSendLoginCodeScopeMismatch(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)
	fx.addUser(domain.RoleTeacher, domain.AccountActive, "+8801712345678", "")

	// The teacher's phone, but asking for a student login.
	fx.users.byPhone = map[string]*domain.UserAccount{}

	result, err := fx.svc.SendLoginCode(ctx, "greenfield", domain.ScopeStudent, "01712345678")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.AccountMissing {
		t.Fatal("a scope mismatch must look like a missing account")
	}
	if len(fx.users.phoneInputs) != 1 {
		t.Fatalf("expected one lookup, got %d", len(fx.users.phoneInputs))
	}
	roles := fx.users.phoneInputs[0].roles
	if len(roles) != 1 || roles[0] != domain.RoleStudent {
		t.Fatalf("expected a lookup restricted to the student role, got %v", roles)
	}
}

func TestSendLoginCodeValidation(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)

	if _, err := fx.svc.SendLoginCode(ctx, "greenfield", domain.LoginScope("GHOST"), "01712345678"); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
	if _, err := fx.svc.SendLoginCode(ctx, "greenfield", domain.ScopeTeacher, "nope"); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
	if _, err := fx.svc.SendLoginCode(ctx, "missing", domain.ScopeTeacher, "01712345678"); !errors.Is(err, ErrInstitutionNotFound) {
		t.Fatalf("expected ErrInstitutionNotFound, got %v", err)
	}

	fx.institution.Status = domain.InstitutionSuspended
	if _, err := fx.svc.SendLoginCode(ctx, "greenfield", domain.ScopeTeacher, "01712345678"); !errors.Is(err, ErrInstitutionSuspended) {
		t.Fatalf("expected ErrInstitutionSuspended, got %v", err)
	}
}

func TestSendLoginCodeAccountStatus(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		status domain.AccountStatus
		want   error
	}{
		{status: domain.AccountPending, want: ErrAccountPending},
		{status: domain.AccountRejected, want: ErrAccountRejected},
		{status: domain.AccountDisabled, want: ErrAccountDisabled},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			fx := newAuthFixture(t)
			fx.addUser(domain.RoleTeacher, tc.status, "+8801712345678", "")

			_, err := fx.svc.SendLoginCode(ctx, "greenfield", domain.ScopeTeacher, "01712345678")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(fx.sender.sent) != 0 {
				t.Fatal("no code may be delivered to an inactive account")
			}
		})
	}
}

func TestVerifyLoginCodeEndToEnd(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)
	user := fx.addUser(domain.RoleTeacher, domain.AccountActive, "+8801712345678", "rahim@school.edu")

	sent, err := fx.svc.SendLoginCode(ctx, "greenfield", domain.ScopeTeacher, "01712345678")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	challengeID := sent.Otp.ChallengeID

	for i := 0; i < 3; i++ {
		_, err = fx.svc.VerifyLoginCode(ctx, "greenfield", domain.ScopeTeacher, "01712345678", challengeID, "000000")
		if !errors.Is(err, ErrCodeInvalid) {
			t.Fatalf("wrong code %d: expected ErrCodeInvalid, got %v", i+1, err)
		}
	}
	if got := fx.challenges.byID[challengeID].Attempts; got != 3 {
		t.Fatalf("expected 3 recorded attempts, got %d", got)
	}

	session, err := fx.svc.VerifyLoginCode(ctx, "greenfield", domain.ScopeTeacher, "01712345678", challengeID, sent.Otp.DevCode)
	if err != nil {
		t.Fatalf("expected a session, got %v", err)
	}
	if session.User == nil || session.User.ID != user.ID {
		t.Fatalf("unexpected session user: %+v", session.User)
	}
	claims, err := fx.jwt.Parse(session.Token)
	if err != nil {
		t.Fatalf("session token does not parse: %v", err)
	}
	if claims.UserID != user.ID || claims.Scope != "TEACHER" || claims.Role != "TEACHER" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	_, err = fx.svc.VerifyLoginCode(ctx, "greenfield", domain.ScopeTeacher, "01712345678", challengeID, sent.Otp.DevCode)
	if !errors.Is(err, ErrChallengeUsed) {
		t.Fatalf("expected ErrChallengeUsed on replay, got %v", err)
	}
}

func TestVerifyLoginCodeInactiveAccount(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)
	user := fx.addUser(domain.RoleTeacher, domain.AccountActive, "+8801712345678", "")

	sent, err := fx.svc.SendLoginCode(ctx, "greenfield", domain.ScopeTeacher, "01712345678")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// The account is disabled between send and verify.
	fx.users.byID[user.ID].Status = domain.AccountDisabled

	_, err = fx.svc.VerifyLoginCode(ctx, "greenfield", domain.ScopeTeacher, "01712345678", sent.Otp.ChallengeID, sent.Otp.DevCode)
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestLoginWithPassword(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)

	hash, salt, err := util.DerivePassword("Sup3r-Secret!")
	if err != nil {
		t.Fatalf("derive password: %v", err)
	}
	user := fx.addUser(domain.RoleAdmin, domain.AccountActive, "", "admin@school.edu")
	user.PasswordHash = hash
	user.PasswordSalt = salt

	session, err := fx.svc.LoginWithPassword(ctx, "greenfield", " Admin@School.EDU ", "Sup3r-Secret!")
	if err != nil {
		t.Fatalf("expected a session, got %v", err)
	}
	if session.User.ID != user.ID {
		t.Fatalf("unexpected user: %+v", session.User)
	}
	if fx.users.emailInputs[0] != "admin@school.edu" {
		t.Fatalf("email should be normalized before lookup, got %q", fx.users.emailInputs[0])
	}

	if _, err := fx.svc.LoginWithPassword(ctx, "greenfield", "admin@school.edu", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := fx.svc.LoginWithPassword(ctx, "greenfield", "nobody@school.edu", "Sup3r-Secret!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestLoginWithPasswordNotSetUp(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)
	fx.addUser(domain.RoleAdmin, domain.AccountActive, "", "admin@school.edu")

	_, err := fx.svc.LoginWithPassword(ctx, "greenfield", "admin@school.edu", "whatever")
	if !errors.Is(err, ErrPasswordLoginDisabled) {
		t.Fatalf("expected ErrPasswordLoginDisabled, got %v", err)
	}
}

func TestLoginWithPasswordRejectsNonStaffRoles(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)

	hash, salt, err := util.DerivePassword("Sup3r-Secret!")
	if err != nil {
		t.Fatalf("derive password: %v", err)
	}
	user := fx.addUser(domain.RoleParent, domain.AccountActive, "", "parent@school.edu")
	user.PasswordHash = hash
	user.PasswordSalt = salt

	_, err = fx.svc.LoginWithPassword(ctx, "greenfield", "parent@school.edu", "Sup3r-Secret!")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("parents must use OTP login, got %v", err)
	}
}

func TestLoginWithGoogleBadToken(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)

	_, err := fx.svc.LoginWithGoogle(ctx, "greenfield", "not-a-real-token")
	if !errors.Is(err, ErrGoogleTokenInvalid) {
		t.Fatalf("expected ErrGoogleTokenInvalid, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)
	user := fx.addUser(domain.RoleStaff, domain.AccountActive, "+8801712345678", "staff@school.edu")

	token, _, err := fx.jwt.Generate(user.ID, user.InstitutionID, string(user.Role), "ADMIN")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	got, err := fx.svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := fx.svc.Authenticate(ctx, "garbage"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}

	fx.users.byID[user.ID].Status = domain.AccountDisabled
	if _, err := fx.svc.Authenticate(ctx, token); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for a disabled account, got %v", err)
	}
}
