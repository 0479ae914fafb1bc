package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-api/internal/dto"
	"github.com/noah-isme/sims-api/internal/models"
	"github.com/noah-isme/sims-api/internal/service"
	appErrors "github.com/noah-isme/sims-api/pkg/errors"
	"github.com/noah-isme/sims-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context) ([]models.Student, error)
	Search(ctx context.Context, term string) ([]models.Student, error)
	Get(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, req service.StudentRequest) (*models.Student, error)
	Update(ctx context.Context, id string, req service.StudentRequest) (*models.Student, error)
	Schedules(ctx context.Context, id string) ([]models.ClassSchedule, error)
}

type enrollmentService interface {
	Enroll(ctx context.Context, studentID, scheduleID string) (*models.EnrollmentLink, error)
	Unenroll(ctx context.Context, studentID, scheduleID string) (*models.EnrollmentLink, error)
	DeleteStudent(ctx context.Context, studentID string) (bool, error)
	DeleteSchedule(ctx context.Context, scheduleID string) error
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students   studentService
	enrollment enrollmentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, enrollment enrollmentService) *StudentHandler {
	return &StudentHandler{students: students, enrollment: enrollment}
}

// List godoc
// @Summary List or search students
// @Tags Students
// @Produce json
// @Param search query string false "Case-insensitive match on first name, last name or email"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var (
		students []models.Student
		err      error
	)
	if term := strings.TrimSpace(c.Query("search")); term != "" {
		students, err = h.students.Search(c.Request.Context(), term)
	} else {
		students, err = h.students.List(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"count": len(students)})
}

// Get godoc
// @Summary Get student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// Create godoc
// @Summary Create student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.StudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.StudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// Delete godoc
// @Summary Delete student and drop it from every schedule
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	deleted, err := h.enrollment.DeleteStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.JSON(c, http.StatusNotFound, dto.DeleteResponse{Deleted: false}, map[string]interface{}{"message": "student not found"})
		return
	}
	response.JSON(c, http.StatusOK, dto.DeleteResponse{Deleted: true})
}

// Schedules godoc
// @Summary List schedules the student is enrolled in
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/schedules [get]
func (h *StudentHandler) Schedules(c *gin.Context) {
	schedules, err := h.students.Schedules(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, map[string]interface{}{"count": len(schedules)})
}

// Enroll godoc
// @Summary Enroll student in schedule
// @Tags Enrollment
// @Produce json
// @Param id path string true "Student ID"
// @Param scheduleId path string true "Schedule ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/schedules/{scheduleId} [post]
func (h *StudentHandler) Enroll(c *gin.Context) {
	link, err := h.enrollment.Enroll(c.Request.Context(), c.Param("id"), c.Param("scheduleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Unenroll godoc
// @Summary Remove student from schedule
// @Tags Enrollment
// @Produce json
// @Param id path string true "Student ID"
// @Param scheduleId path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/schedules/{scheduleId} [delete]
func (h *StudentHandler) Unenroll(c *gin.Context) {
	link, err := h.enrollment.Unenroll(c.Request.Context(), c.Param("id"), c.Param("scheduleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link)
}
