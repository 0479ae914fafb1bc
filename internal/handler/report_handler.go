package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-api/internal/service"
	"github.com/noah-isme/sims-api/pkg/response"
)

type reportService interface {
	StudentReport(ctx context.Context, format service.ReportFormat) (*service.ReportFile, error)
	ScheduleReport(ctx context.Context, format service.ReportFormat) (*service.ReportFile, error)
}

// ReportHandler streams student and schedule reports.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Students godoc
// @Summary Download the student enrollment report
// @Tags Reports
// @Produce application/pdf
// @Produce text/csv
// @Param format query string false "pdf (default), csv or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /students/report [get]
func (h *ReportHandler) Students(c *gin.Context) {
	h.serve(c, h.reports.StudentReport)
}

// Schedules godoc
// @Summary Download the class schedule report
// @Tags Reports
// @Produce application/pdf
// @Produce text/csv
// @Param format query string false "pdf (default), csv or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /schedules/report [get]
func (h *ReportHandler) Schedules(c *gin.Context) {
	h.serve(c, h.reports.ScheduleReport)
}

func (h *ReportHandler) serve(c *gin.Context, build func(context.Context, service.ReportFormat) (*service.ReportFile, error)) {
	format, err := service.ParseReportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := build(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Payload)
}
