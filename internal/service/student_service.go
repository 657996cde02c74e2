package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
	"github.com/sajidhasan/schooldesk-backend/internal/media"
	"github.com/sajidhasan/schooldesk-backend/internal/repository/ports"
)

var (
	ErrStudentNotFound  = errors.New("student not found")
	ErrPhotoUnsupported = errors.New("unsupported photo content type")
	ErrPhotoTooLarge    = errors.New("photo exceeds maximum size")
)

type StudentServiceConfig struct {
	PhotoBucket   string
	PhotoMaxBytes int64
}

type StudentService struct {
	students      ports.StudentRepository
	visibility    *VisibilityService
	storage       ports.ObjectStorage
	photos        media.PhotoProcessor
	photoBucket   string
	photoMaxBytes int64
}

type StudentListResult struct {
	Items  []domain.Student
	Total  int64
	Limit  int
	Offset int
}

// NewStudentService wires the roster reads and photo writes. photos may be
// nil; uploads are then stored as received.
func NewStudentService(students ports.StudentRepository, visibility *VisibilityService, storage ports.ObjectStorage, photos media.PhotoProcessor, cfg StudentServiceConfig) *StudentService {
	maxBytes := cfg.PhotoMaxBytes
	if maxBytes <= 0 {
		maxBytes = 2 * 1024 * 1024
	}
	return &StudentService{
		students:      students,
		visibility:    visibility,
		storage:       storage,
		photos:        photos,
		photoBucket:   cfg.PhotoBucket,
		photoMaxBytes: maxBytes,
	}
}

// List returns the students the viewer may see, never the full roster.
func (s *StudentService) List(ctx context.Context, viewer *domain.UserAccount, limit, offset int) (*StudentListResult, error) {
	vis, err := s.visibility.BuildStudentVisibility(ctx, viewer)
	if err != nil {
		return nil, err
	}
	limit, offset = normalizeStudentPagination(limit, offset)

	items, err := s.students.List(ctx, viewer.InstitutionID, vis, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.students.Count(ctx, viewer.InstitutionID, vis)
	if err != nil {
		return nil, err
	}
	return &StudentListResult{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *StudentService) Get(ctx context.Context, viewer *domain.UserAccount, studentID uuid.UUID) (*domain.Student, error) {
	vis, err := s.visibility.BuildStudentVisibility(ctx, viewer)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, viewer.InstitutionID, studentID, vis)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

var photoContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// SetPhoto stores a student photo and records its URL. Only viewers who pass
// the visibility check for the student may replace its photo.
func (s *StudentService) SetPhoto(ctx context.Context, viewer *domain.UserAccount, studentID uuid.UUID, contentType string, reader io.Reader, size int64) (string, error) {
	ext, ok := photoContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrPhotoUnsupported
	}
	if size <= 0 || size > s.photoMaxBytes {
		return "", ErrPhotoTooLarge
	}

	student, err := s.Get(ctx, viewer, studentID)
	if err != nil {
		return "", err
	}

	if s.photos != nil {
		processed, err := s.photos.Process(ctx, media.Photo{Reader: reader, Size: size, ContentType: contentType})
		if err != nil {
			return "", fmt.Errorf("process photo: %w", err)
		}
		contentType = processed.ContentType
		reader = bytes.NewReader(processed.Bytes)
		size = int64(len(processed.Bytes))
	}

	objectName := path.Join("students", student.InstitutionID.String(), fmt.Sprintf("%s%s", student.ID, ext))
	url, err := s.storage.Upload(ctx, s.photoBucket, objectName, contentType, reader, size)
	if err != nil {
		return "", err
	}
	if err := s.students.SetPhotoURL(ctx, student.InstitutionID, student.ID, url); err != nil {
		return "", err
	}
	return url, nil
}

func normalizeStudentPagination(limit, offset int) (int, int) {
	const (
		defaultLimit = 20
		maxLimit     = 100
	)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
