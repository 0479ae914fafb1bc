package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sims-api/internal/models"
	appErrors "github.com/noah-isme/sims-api/pkg/errors"
	"github.com/noah-isme/sims-api/pkg/export"
)

// ReportFormat enumerates downloadable report encodings.
type ReportFormat string

const (
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatXLSX ReportFormat = "xlsx"
)

const (
	studentReportTitle  = "Student Enrollment Report"
	scheduleReportTitle = "Class Schedule Report"
)

var (
	studentReportHeaders  = []string{"ID", "First Name", "Last Name", "Email", "Phone", "Grade Level", "Address", "Guardian", "Enrollment Date", "Schedules"}
	scheduleReportHeaders = []string{"ID", "Class Name", "Instructor", "Time", "Room", "Duration", "Max Capacity", "Enrolled"}
)

// ParseReportFormat defaults to PDF and rejects unknown values.
func ParseReportFormat(raw string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ReportFormatPDF:
		return ReportFormatPDF, nil
	case ReportFormatCSV:
		return ReportFormatCSV, nil
	case ReportFormatXLSX:
		return ReportFormatXLSX, nil
	}
	return "", appErrors.Clone(appErrors.ErrUnsupported, fmt.Sprintf("unsupported report format %q", raw))
}

// ReportFile is a rendered report ready to stream.
type ReportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type studentLister interface {
	FindAll(ctx context.Context) ([]models.Student, error)
}

type scheduleLister interface {
	FindAll(ctx context.Context) ([]models.ClassSchedule, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

// ReportService renders student and schedule listings.
type ReportService struct {
	students  studentLister
	schedules scheduleLister
	csv       csvRenderer
	pdf       pdfRenderer
	xlsx      xlsxRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService constructs the report service with the default renderers.
func NewReportService(students studentLister, schedules scheduleLister, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		students:  students,
		schedules: schedules,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		xlsx:      export.NewXLSXExporter(),
		logger:    logger,
		now:       time.Now,
	}
}

// StudentReport renders every student.
func (s *ReportService) StudentReport(ctx context.Context, format ReportFormat) (*ReportFile, error) {
	students, err := s.students.FindAll(ctx)
	if err != nil {
		return nil, internalError(err, "failed to load students for report")
	}
	return s.render(StudentDataset(students), format, "students", studentReportTitle)
}

// ScheduleReport renders every class schedule.
func (s *ReportService) ScheduleReport(ctx context.Context, format ReportFormat) (*ReportFile, error) {
	schedules, err := s.schedules.FindAll(ctx)
	if err != nil {
		return nil, internalError(err, "failed to load schedules for report")
	}
	return s.render(ScheduleDataset(schedules), format, "schedules", scheduleReportTitle)
}

func (s *ReportService) render(data export.Dataset, format ReportFormat, name, title string) (*ReportFile, error) {
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case ReportFormatCSV:
		payload, err = s.csv.Render(data)
		contentType = "text/csv"
	case ReportFormatXLSX:
		payload, err = s.xlsx.Render(data, name)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ReportFormatPDF, "":
		format = ReportFormatPDF
		payload, err = s.pdf.Render(data, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupported, fmt.Sprintf("unsupported report format %q", format))
	}
	if err != nil {
		return nil, internalError(err, "failed to render report")
	}

	filename := fmt.Sprintf("%s_report_%s.%s", name, s.now().UTC().Format("20060102_150405"), format)
	s.logger.Info("report generated", zap.String("report", name), zap.String("format", string(format)), zap.Int("rows", len(data.Rows)))
	return &ReportFile{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

// StudentDataset flattens students into report rows.
func StudentDataset(students []models.Student) export.Dataset {
	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		rows = append(rows, map[string]string{
			"ID":              st.ID,
			"First Name":      st.FirstName,
			"Last Name":       st.LastName,
			"Email":           st.Email,
			"Phone":           st.Phone,
			"Grade Level":     st.GradeLevel,
			"Address":         st.Address,
			"Guardian":        st.GuardianName,
			"Enrollment Date": st.EnrollmentDate,
			"Schedules":       strconv.Itoa(len(st.ScheduleIDs)),
		})
	}
	return export.Dataset{Headers: studentReportHeaders, Rows: rows}
}

// ScheduleDataset flattens schedules into report rows.
func ScheduleDataset(schedules []models.ClassSchedule) export.Dataset {
	rows := make([]map[string]string, 0, len(schedules))
	for _, cs := range schedules {
		rows = append(rows, map[string]string{
			"ID":           cs.ID,
			"Class Name":   cs.ClassName,
			"Instructor":   cs.Instructor,
			"Time":         cs.Time,
			"Room":         cs.Room,
			"Duration":     cs.Duration,
			"Max Capacity": cs.MaxCapacity,
			"Enrolled":     strconv.Itoa(len(cs.StudentIDs)),
		})
	}
	return export.Dataset{Headers: scheduleReportHeaders, Rows: rows}
}
