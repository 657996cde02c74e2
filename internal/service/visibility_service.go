package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
	"github.com/sajidhasan/schooldesk-backend/internal/repository/ports"
	"github.com/sajidhasan/schooldesk-backend/internal/util"
)

// VisibilityService computes which student records a viewer may read. The
// output is a declarative filter the student repository applies to every
// query, never a materialized id list.
type VisibilityService struct {
	teachers ports.TeacherRepository
	students ports.StudentRepository
}

func NewVisibilityService(teachers ports.TeacherRepository, students ports.StudentRepository) *VisibilityService {
	return &VisibilityService{teachers: teachers, students: students}
}

// BuildStudentVisibility resolves the policy for a viewer:
//
//   - privileged/staff roles: unrestricted
//   - teachers: students of the classes where they are class teacher
//   - students: records matching their own email or phone
//   - parents: records with a guardian matching their email or phone
//   - anything else: nothing
//
// Accounts are often provisioned before the matching directory record, so
// teacher resolution tries the account link first and falls back to identity
// matching (case-insensitive email, phone suffix).
func (s *VisibilityService) BuildStudentVisibility(ctx context.Context, viewer *domain.UserAccount) (domain.StudentVisibility, error) {
	if viewer == nil {
		return domain.VisibilityNoStudents(), nil
	}

	switch {
	case viewer.Role.SeesAllStudents():
		return domain.VisibilityAllStudents(), nil
	case viewer.Role == domain.RoleTeacher:
		return s.teacherVisibility(ctx, viewer)
	case viewer.Role == domain.RoleStudent:
		return s.identityVisibility(viewer, domain.VisibilitySelf), nil
	case viewer.Role == domain.RoleParent:
		return s.identityVisibility(viewer, domain.VisibilityGuardian), nil
	default:
		return domain.VisibilityNoStudents(), nil
	}
}

// CanAccessStudent applies the viewer's filter plus an id equality check.
func (s *VisibilityService) CanAccessStudent(ctx context.Context, viewer *domain.UserAccount, studentID uuid.UUID) (bool, error) {
	vis, err := s.BuildStudentVisibility(ctx, viewer)
	if err != nil {
		return false, err
	}
	if vis.Mode == domain.VisibilityNone {
		return false, nil
	}
	if _, err := s.students.FindByID(ctx, viewer.InstitutionID, studentID, vis); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *VisibilityService) teacherVisibility(ctx context.Context, viewer *domain.UserAccount) (domain.StudentVisibility, error) {
	teacher, err := s.teachers.FindByUserID(ctx, viewer.ID)
	if err != nil {
		if !isNotFound(err) {
			return domain.VisibilityNoStudents(), err
		}
		teacher, err = s.teachers.FindByIdentity(
			ctx, viewer.InstitutionID,
			util.NormalizeEmail(viewer.Email),
			util.PhoneSuffix(viewer.Phone),
		)
		if err != nil {
			if isNotFound(err) {
				return domain.VisibilityNoStudents(), nil
			}
			return domain.VisibilityNoStudents(), err
		}
	}

	classIDs, err := s.teachers.ListClassIDsByClassTeacher(ctx, teacher.ID)
	if err != nil {
		return domain.VisibilityNoStudents(), err
	}
	if len(classIDs) == 0 {
		return domain.VisibilityNoStudents(), nil
	}
	return domain.StudentVisibility{Mode: domain.VisibilityClasses, ClassIDs: classIDs}, nil
}

func (s *VisibilityService) identityVisibility(viewer *domain.UserAccount, mode domain.VisibilityMode) domain.StudentVisibility {
	email := util.NormalizeEmail(viewer.Email)
	suffix := util.PhoneSuffix(viewer.Phone)
	if email == "" && suffix == "" {
		return domain.VisibilityNoStudents()
	}
	return domain.StudentVisibility{Mode: mode, Email: email, PhoneSuffix: suffix}
}
