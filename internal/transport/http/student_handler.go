package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
	"github.com/sajidhasan/schooldesk-backend/internal/service"
	"github.com/sajidhasan/schooldesk-backend/internal/util"
)

type StudentHandler struct {
	auth     *service.AuthService
	students *service.StudentService
	imports  *service.StudentImportService
}

func RegisterStudents(e *echo.Echo, auth *service.AuthService, students *service.StudentService, imports *service.StudentImportService) {
	handler := &StudentHandler{
		auth:     auth,
		students: students,
		imports:  imports,
	}

	group := e.Group("/api/v1/students", RequireAuth(auth))
	group.GET("", handler.list)
	group.GET("/:id", handler.get)
	group.PUT("/:id/photo", handler.uploadPhoto)
	group.POST("/import", handler.importRoster, RequireAdmin())
}

func (h *StudentHandler) list(c echo.Context) error {
	viewer, ok := CurrentUser(c)
	if !ok || viewer == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	result, err := h.students.List(c.Request().Context(), viewer, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("could not list students"))
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"students": studentResponses(result.Items),
		"meta": util.Envelope{
			"total":  result.Total,
			"limit":  result.Limit,
			"offset": result.Offset,
		},
	})
}

func (h *StudentHandler) get(c echo.Context) error {
	viewer, ok := CurrentUser(c)
	if !ok || viewer == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	studentID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	student, err := h.students.Get(c.Request().Context(), viewer, studentID)
	if err != nil {
		// Out-of-scope records answer not-found, not forbidden, so the id
		// space cannot be probed.
		if errors.Is(err, service.ErrStudentNotFound) {
			return c.JSON(http.StatusNotFound, util.Error("student not found"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("could not load student"))
	}
	return c.JSON(http.StatusOK, util.Data("student", studentResponse(*student)))
}

func (h *StudentHandler) uploadPhoto(c echo.Context) error {
	viewer, ok := CurrentUser(c)
	if !ok || viewer == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	studentID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("id must be a valid UUID"))
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("photo file is required"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("could not read photo"))
	}
	defer file.Close()

	url, err := h.students.SetPhoto(c.Request().Context(), viewer, studentID,
		fileHeader.Header.Get("Content-Type"), file, fileHeader.Size)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStudentNotFound):
			return c.JSON(http.StatusNotFound, util.Error("student not found"))
		case errors.Is(err, service.ErrPhotoUnsupported):
			return c.JSON(http.StatusBadRequest, util.Error("photo must be jpeg, png or webp"))
		case errors.Is(err, service.ErrPhotoTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, util.Error("photo is too large"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not store photo"))
		}
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"student_id": studentID,
		"photo_url":  url,
	})
}

func (h *StudentHandler) importRoster(c echo.Context) error {
	viewer, ok := CurrentUser(c)
	if !ok || viewer == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("roster file is required"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("could not read roster file"))
	}
	defer file.Close()

	contents, err := io.ReadAll(file)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("could not read roster file"))
	}

	dryRun := strings.EqualFold(c.QueryParam("dry_run"), "true")

	result, err := h.imports.Import(c.Request().Context(), viewer.InstitutionID, fileHeader.Filename, contents, dryRun)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImportEmptyFile),
			errors.Is(err, service.ErrImportMalformed),
			errors.Is(err, service.ErrImportTooLarge),
			errors.Is(err, service.ErrImportRowLimitExceeded):
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("import failed"))
		}
	}
	return c.JSON(http.StatusOK, util.Data("import", result))
}

type StudentResponse struct {
	ID             uuid.UUID  `json:"id"`
	ClassSectionID *uuid.UUID `json:"class_section_id,omitempty"`
	FullName       string     `json:"full_name"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	PhotoURL       *string    `json:"photo_url,omitempty"`
	CreatedAt      string     `json:"created_at"`
}

func studentResponse(student domain.Student) StudentResponse {
	return StudentResponse{
		ID:             student.ID,
		ClassSectionID: student.ClassSectionID,
		FullName:       student.FullName,
		Email:          student.Email,
		Phone:          student.Phone,
		PhotoURL:       student.PhotoURL,
		CreatedAt:      student.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func studentResponses(students []domain.Student) []StudentResponse {
	out := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		out = append(out, studentResponse(student))
	}
	return out
}
