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

type scheduleService interface {
	List(ctx context.Context) ([]models.ClassSchedule, error)
	Search(ctx context.Context, term string) ([]models.ClassSchedule, error)
	Get(ctx context.Context, id string) (*models.ClassSchedule, error)
	Create(ctx context.Context, req service.ScheduleRequest) (*models.ClassSchedule, error)
	Update(ctx context.Context, id string, req service.ScheduleRequest) (*models.ClassSchedule, error)
	Students(ctx context.Context, id string) ([]models.Student, error)
	AvailableStudents(ctx context.Context, id string) ([]models.Student, error)
}

// ScheduleHandler exposes class schedule endpoints.
type ScheduleHandler struct {
	schedules  scheduleService
	enrollment enrollmentService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules scheduleService, enrollment enrollmentService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, enrollment: enrollment}
}

// List godoc
// @Summary List or search class schedules
// @Tags Schedules
// @Produce json
// @Param search query string false "Case-insensitive match on class name or instructor"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var (
		schedules []models.ClassSchedule
		err       error
	)
	if term := strings.TrimSpace(c.Query("search")); term != "" {
		schedules, err = h.schedules.Search(c.Request.Context(), term)
	} else {
		schedules, err = h.schedules.List(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, map[string]interface{}{"count": len(schedules)})
}

// Get godoc
// @Summary Get class schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}

// Create godoc
// @Summary Create class schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.ScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.schedules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Update godoc
// @Summary Update class schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.ScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.schedules.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}

// Delete godoc
// @Summary Delete class schedule and drop it from every student
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.enrollment.DeleteSchedule(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DeleteResponse{Deleted: true})
}

// Students godoc
// @Summary List students enrolled in the schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/students [get]
func (h *ScheduleHandler) Students(c *gin.Context) {
	students, err := h.schedules.Students(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"count": len(students)})
}

// AvailableStudents godoc
// @Summary List students that can still be enrolled
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/available-students [get]
func (h *ScheduleHandler) AvailableStudents(c *gin.Context) {
	students, err := h.schedules.AvailableStudents(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"count": len(students)})
}

// Enroll godoc
// @Summary Enroll a student in the schedule
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.EnrollRequest true "Student to enroll"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/students [post]
func (h *ScheduleHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if strings.TrimSpace(req.StudentID) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
		return
	}
	link, err := h.enrollment.Enroll(c.Request.Context(), strings.TrimSpace(req.StudentID), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}
