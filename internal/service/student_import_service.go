package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/google/uuid"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
	"github.com/sajidhasan/schooldesk-backend/internal/repository/ports"
	"github.com/sajidhasan/schooldesk-backend/internal/util"
)

var (
	ErrImportEmptyFile        = errors.New("import file is empty")
	ErrImportTooLarge         = errors.New("import file exceeds maximum size")
	ErrImportMalformed        = errors.New("import file is not valid yaml")
	ErrImportRowLimitExceeded = errors.New("import exceeds maximum allowed rows")
)

type StudentImportServiceConfig struct {
	Bucket       string
	MaxRows      int
	MaxFileBytes int64
}

type StudentImportService struct {
	students     ports.StudentRepository
	storage      ports.ObjectStorage
	bucket       string
	maxRows      int
	maxFileBytes int64
	now          func() time.Time
}

func NewStudentImportService(students ports.StudentRepository, storage ports.ObjectStorage, cfg StudentImportServiceConfig) *StudentImportService {
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = 500
	}
	maxFile := cfg.MaxFileBytes
	if maxFile <= 0 {
		maxFile = 1 * 1024 * 1024
	}
	return &StudentImportService{
		students:     students,
		storage:      storage,
		bucket:       cfg.Bucket,
		maxRows:      maxRows,
		maxFileBytes: maxFile,
		now:          time.Now,
	}
}

type importGuardian struct {
	FullName string `json:"full_name"`
	Relation string `json:"relation"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type importStudent struct {
	FullName       string           `json:"full_name"`
	ClassSectionID string           `json:"class_section_id"`
	Email          string           `json:"email"`
	Phone          string           `json:"phone"`
	Guardians      []importGuardian `json:"guardians"`
}

type importFile struct {
	Students []importStudent `json:"students"`
}

type StudentImportRow struct {
	Index     int        `json:"index"`
	FullName  string     `json:"full_name"`
	StudentID *uuid.UUID `json:"student_id,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type StudentImportResult struct {
	Total    int                `json:"total"`
	Created  int                `json:"created"`
	Failed   int                `json:"failed"`
	DryRun   bool               `json:"dry_run"`
	Rows     []StudentImportRow `json:"rows"`
	FileName string             `json:"file_name,omitempty"`
}

// Import parses a YAML roster and creates student and guardian rows. With
// dryRun only validation runs; nothing is written and the raw file is not
// retained.
func (s *StudentImportService) Import(ctx context.Context, institutionID uuid.UUID, filename string, contents []byte, dryRun bool) (*StudentImportResult, error) {
	if len(bytes.TrimSpace(contents)) == 0 {
		return nil, ErrImportEmptyFile
	}
	if s.maxFileBytes > 0 && int64(len(contents)) > s.maxFileBytes {
		return nil, ErrImportTooLarge
	}

	var file importFile
	if err := yaml.Unmarshal(contents, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportMalformed, err)
	}
	if len(file.Students) == 0 {
		return nil, ErrImportEmptyFile
	}
	if s.maxRows > 0 && len(file.Students) > s.maxRows {
		return nil, ErrImportRowLimitExceeded
	}

	if !dryRun && s.storage != nil && s.bucket != "" {
		objectName := fmt.Sprintf("imports/%s/%d-%s", institutionID, s.now().Unix(), sanitizeFileName(filename))
		if _, err := s.storage.Upload(ctx, s.bucket, objectName, "application/yaml", bytes.NewReader(contents), int64(len(contents))); err != nil {
			return nil, err
		}
	}

	result := &StudentImportResult{
		Total:    len(file.Students),
		DryRun:   dryRun,
		FileName: filename,
	}

	for i, row := range file.Students {
		entry := StudentImportRow{Index: i + 1, FullName: strings.TrimSpace(row.FullName)}

		student, guardians, err := buildImportRow(institutionID, row)
		if err != nil {
			entry.Error = err.Error()
			result.Failed++
			result.Rows = append(result.Rows, entry)
			continue
		}

		if dryRun {
			result.Created++
			result.Rows = append(result.Rows, entry)
			continue
		}

		created, err := s.students.Create(ctx, student)
		if err != nil {
			if isUniqueViolation(err) {
				entry.Error = "duplicate student"
			} else {
				entry.Error = "could not create student"
			}
			result.Failed++
			result.Rows = append(result.Rows, entry)
			continue
		}
		for _, guardian := range guardians {
			guardian.StudentID = created.ID
			if _, err := s.students.CreateGuardian(ctx, guardian); err != nil {
				entry.Error = "student created, guardian failed"
				break
			}
		}
		entry.StudentID = &created.ID
		result.Created++
		result.Rows = append(result.Rows, entry)
	}

	return result, nil
}

func buildImportRow(institutionID uuid.UUID, row importStudent) (*domain.Student, []*domain.Guardian, error) {
	name := strings.TrimSpace(row.FullName)
	if name == "" {
		return nil, nil, errors.New("full_name is required")
	}

	student := &domain.Student{
		InstitutionID: institutionID,
		FullName:      name,
	}
	if row.ClassSectionID != "" {
		classID, err := uuid.Parse(strings.TrimSpace(row.ClassSectionID))
		if err != nil {
			return nil, nil, errors.New("class_section_id must be a valid UUID")
		}
		student.ClassSectionID = &classID
	}
	if email := util.NormalizeEmail(row.Email); email != "" {
		student.Email = &email
	}
	if row.Phone != "" {
		phone := util.NormalizePhone(row.Phone)
		if phone == "" {
			return nil, nil, errors.New("phone is not a valid number")
		}
		student.Phone = &phone
	}

	guardians := make([]*domain.Guardian, 0, len(row.Guardians))
	for _, g := range row.Guardians {
		gName := strings.TrimSpace(g.FullName)
		if gName == "" {
			return nil, nil, errors.New("guardian full_name is required")
		}
		guardian := &domain.Guardian{FullName: gName}
		if relation := strings.TrimSpace(g.Relation); relation != "" {
			guardian.Relation = &relation
		}
		if email := util.NormalizeEmail(g.Email); email != "" {
			guardian.Email = &email
		}
		if g.Phone != "" {
			phone := util.NormalizePhone(g.Phone)
			if phone == "" {
				return nil, nil, errors.New("guardian phone is not a valid number")
			}
			guardian.Phone = &phone
		}
		guardians = append(guardians, guardian)
	}
	return student, guardians, nil
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "roster.yaml"
	}
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return name
}
