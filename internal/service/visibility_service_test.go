package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
)

type fakeTeacherRepo struct {
	byUserID map[uuid.UUID]*domain.Teacher

	identityCalls []struct {
		institutionID uuid.UUID
		email         string
		phoneSuffix   string
	}
	identityResult *domain.Teacher
	identityErr    error

	classIDs    map[uuid.UUID][]uuid.UUID
	classIDsErr error
}

func (f *fakeTeacherRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Teacher, error) {
	if teacher, ok := f.byUserID[userID]; ok {
		clone := *teacher
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTeacherRepo) FindByIdentity(ctx context.Context, institutionID uuid.UUID, email, phoneSuffix string) (*domain.Teacher, error) {
	f.identityCalls = append(f.identityCalls, struct {
		institutionID uuid.UUID
		email         string
		phoneSuffix   string
	}{institutionID: institutionID, email: email, phoneSuffix: phoneSuffix})
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	if f.identityResult == nil {
		return nil, sql.ErrNoRows
	}
	clone := *f.identityResult
	return &clone, nil
}

func (f *fakeTeacherRepo) ListClassIDsByClassTeacher(ctx context.Context, teacherID uuid.UUID) ([]uuid.UUID, error) {
	if f.classIDsErr != nil {
		return nil, f.classIDsErr
	}
	return append([]uuid.UUID(nil), f.classIDs[teacherID]...), nil
}

type fakeStudentRepo struct {
	listCalls []domain.StudentVisibility
	listItems []domain.Student
	listErr   error

	countResult int64
	countErr    error

	findCalls []struct {
		institutionID uuid.UUID
		id            uuid.UUID
		vis           domain.StudentVisibility
	}
	findResult *domain.Student
	findErr    error

	created          []*domain.Student
	createErr        error
	createdGuardians []*domain.Guardian
	guardianErr      error

	photoCalls []struct {
		institutionID uuid.UUID
		id            uuid.UUID
		url           string
	}
	photoErr error
}

func (f *fakeStudentRepo) List(ctx context.Context, institutionID uuid.UUID, vis domain.StudentVisibility, limit, offset int) ([]domain.Student, error) {
	f.listCalls = append(f.listCalls, vis)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Student(nil), f.listItems...), nil
}

func (f *fakeStudentRepo) Count(ctx context.Context, institutionID uuid.UUID, vis domain.StudentVisibility) (int64, error) {
	return f.countResult, f.countErr
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, institutionID, id uuid.UUID, vis domain.StudentVisibility) (*domain.Student, error) {
	f.findCalls = append(f.findCalls, struct {
		institutionID uuid.UUID
		id            uuid.UUID
		vis           domain.StudentVisibility
	}{institutionID: institutionID, id: id, vis: vis})
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.findResult == nil {
		return nil, sql.ErrNoRows
	}
	clone := *f.findResult
	return &clone, nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, student *domain.Student) (*domain.Student, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	clone := *student
	if clone.ID == uuid.Nil {
		clone.ID = uuid.New()
	}
	f.created = append(f.created, &clone)
	out := clone
	return &out, nil
}

func (f *fakeStudentRepo) CreateGuardian(ctx context.Context, guardian *domain.Guardian) (*domain.Guardian, error) {
	if f.guardianErr != nil {
		return nil, f.guardianErr
	}
	clone := *guardian
	if clone.ID == uuid.Nil {
		clone.ID = uuid.New()
	}
	f.createdGuardians = append(f.createdGuardians, &clone)
	out := clone
	return &out, nil
}

func (f *fakeStudentRepo) SetPhotoURL(ctx context.Context, institutionID, id uuid.UUID, photoURL string) error {
	f.photoCalls = append(f.photoCalls, struct {
		institutionID uuid.UUID
		id            uuid.UUID
		url           string
	}{institutionID: institutionID, id: id, url: photoURL})
	return f.photoErr
}

func viewerAccount(role domain.Role) *domain.UserAccount {
	return &domain.UserAccount{
		ID:            uuid.New(),
		InstitutionID: uuid.New(),
		Email:         "viewer@school.edu",
		Phone:         "+8801712345678",
		Role:          role,
		Status:        domain.AccountActive,
	}
}

func TestBuildStudentVisibilityPrivilegedAndStaff(t *testing.T) {
	ctx := context.Background()
	svc := NewVisibilityService(&fakeTeacherRepo{}, &fakeStudentRepo{})

	for _, role := range []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RolePrincipal, domain.RoleStaff} {
		vis, err := svc.BuildStudentVisibility(ctx, viewerAccount(role))
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", role, err)
		}
		if vis.Mode != domain.VisibilityAll {
			t.Fatalf("%s: expected unrestricted visibility, got mode %d", role, vis.Mode)
		}
	}
}

func TestBuildStudentVisibilityTeacherWithLinkedAccount(t *testing.T) {
	ctx := context.Background()
	viewer := viewerAccount(domain.RoleTeacher)
	teacherID := uuid.New()
	classA, classB := uuid.New(), uuid.New()

	teachers := &fakeTeacherRepo{
		byUserID: map[uuid.UUID]*domain.Teacher{
			viewer.ID: {ID: teacherID, InstitutionID: viewer.InstitutionID},
		},
		classIDs: map[uuid.UUID][]uuid.UUID{teacherID: {classA, classB}},
	}
	svc := NewVisibilityService(teachers, &fakeStudentRepo{})

	vis, err := svc.BuildStudentVisibility(ctx, viewer)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vis.Mode != domain.VisibilityClasses || len(vis.ClassIDs) != 2 {
		t.Fatalf("expected class-scoped visibility over 2 classes, got %+v", vis)
	}
	if len(teachers.identityCalls) != 0 {
		t.Fatal("identity fallback must not run when the account link resolves")
	}
}

func TestBuildStudentVisibilityTeacherIdentityFallback(t *testing.T) {
	ctx := context.Background()
	viewer := viewerAccount(domain.RoleTeacher)
	teacherID := uuid.New()
	classID := uuid.New()

	teachers := &fakeTeacherRepo{
		identityResult: &domain.Teacher{ID: teacherID, InstitutionID: viewer.InstitutionID},
		classIDs:       map[uuid.UUID][]uuid.UUID{teacherID: {classID}},
	}
	svc := NewVisibilityService(teachers, &fakeStudentRepo{})

	vis, err := svc.BuildStudentVisibility(ctx, viewer)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vis.Mode != domain.VisibilityClasses || len(vis.ClassIDs) != 1 || vis.ClassIDs[0] != classID {
		t.Fatalf("expected the fallback teacher's class, got %+v", vis)
	}
	if len(teachers.identityCalls) != 1 {
		t.Fatalf("expected one identity lookup, got %d", len(teachers.identityCalls))
	}
	call := teachers.identityCalls[0]
	if call.email != "viewer@school.edu" || call.phoneSuffix != "1712345678" {
		t.Fatalf("identity lookup used wrong keys: %+v", call)
	}
}

func TestBuildStudentVisibilityTeacherWithoutClasses(t *testing.T) {
	ctx := context.Background()
	viewer := viewerAccount(domain.RoleTeacher)
	teacherID := uuid.New()

	teachers := &fakeTeacherRepo{
		byUserID: map[uuid.UUID]*domain.Teacher{
			viewer.ID: {ID: teacherID, InstitutionID: viewer.InstitutionID},
		},
	}
	svc := NewVisibilityService(teachers, &fakeStudentRepo{})

	vis, err := svc.BuildStudentVisibility(ctx, viewer)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vis.Mode != domain.VisibilityNone {
		t.Fatalf("a teacher with no class sections must see nothing, got %+v", vis)
	}
}

func TestBuildStudentVisibilityUnknownTeacherRecord(t *testing.T) {
	ctx := context.Background()
	viewer := viewerAccount(domain.RoleTeacher)
	svc := NewVisibilityService(&fakeTeacherRepo{}, &fakeStudentRepo{})

	vis, err := svc.BuildStudentVisibility(ctx, viewer)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vis.Mode != domain.VisibilityNone {
		t.Fatalf("an unknown teacher must see nothing, got %+v", vis)
	}
}

func TestBuildStudentVisibilityStudentAndParent(t *testing.T) {
	ctx := context.Background()
	svc := NewVisibilityService(&fakeTeacherRepo{}, &fakeStudentRepo{})

	student := viewerAccount(domain.RoleStudent)
	vis, err := svc.BuildStudentVisibility(ctx, student)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vis.Mode != domain.VisibilitySelf || vis.Email != "viewer@school.edu" || vis.PhoneSuffix != "1712345678" {
		t.Fatalf("unexpected student visibility: %+v", vis)
	}

	parent := viewerAccount(domain.RoleParent)
	vis, err = svc.BuildStudentVisibility(ctx, parent)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vis.Mode != domain.VisibilityGuardian {
		t.Fatalf("unexpected parent visibility: %+v", vis)
	}
}

func TestBuildStudentVisibilityIdentitylessAccount(t *testing.T) {
	ctx := context.Background()
	svc := NewVisibilityService(&fakeTeacherRepo{}, &fakeStudentRepo{})

	viewer := viewerAccount(domain.RoleStudent)
	viewer.Email = ""
	viewer.Phone = ""

	vis, err := svc.BuildStudentVisibility(ctx, viewer)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vis.Mode != domain.VisibilityNone {
		t.Fatalf("an account with no identity keys must see nothing, got %+v", vis)
	}
}

func TestBuildStudentVisibilityUnknownRole(t *testing.T) {
	ctx := context.Background()
	svc := NewVisibilityService(&fakeTeacherRepo{}, &fakeStudentRepo{})

	vis, err := svc.BuildStudentVisibility(ctx, viewerAccount(domain.Role("AUDITOR")))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vis.Mode != domain.VisibilityNone {
		t.Fatalf("unknown roles must see nothing, got %+v", vis)
	}
}

func TestCanAccessStudent(t *testing.T) {
	ctx := context.Background()
	studentID := uuid.New()

	students := &fakeStudentRepo{findResult: &domain.Student{ID: studentID}}
	svc := NewVisibilityService(&fakeTeacherRepo{}, students)

	ok, err := svc.CanAccessStudent(ctx, viewerAccount(domain.RoleAdmin), studentID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ok {
		t.Fatal("expected access for an admin")
	}

	students.findErr = sql.ErrNoRows
	ok, err = svc.CanAccessStudent(ctx, viewerAccount(domain.RoleAdmin), studentID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok {
		t.Fatal("expected no access when the filtered lookup misses")
	}
}

func TestCanAccessStudentNoneModeSkipsQuery(t *testing.T) {
	ctx := context.Background()
	students := &fakeStudentRepo{}
	svc := NewVisibilityService(&fakeTeacherRepo{}, students)

	viewer := viewerAccount(domain.RoleStudent)
	viewer.Email = ""
	viewer.Phone = ""

	ok, err := svc.CanAccessStudent(ctx, viewer, uuid.New())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok {
		t.Fatal("expected no access")
	}
	if len(students.findCalls) != 0 {
		t.Fatal("a no-visibility viewer must not hit the store")
	}
}

func TestCanAccessStudentPropagatesInfraError(t *testing.T) {
	ctx := context.Background()
	infraErr := errors.New("connection reset")
	students := &fakeStudentRepo{findErr: infraErr}
	svc := NewVisibilityService(&fakeTeacherRepo{}, students)

	_, err := svc.CanAccessStudent(ctx, viewerAccount(domain.RoleAdmin), uuid.New())
	if !errors.Is(err, infraErr) {
		t.Fatalf("expected the infrastructure error to pass through, got %v", err)
	}
}
