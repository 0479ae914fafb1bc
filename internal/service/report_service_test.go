package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/sims-api/internal/models"
	appErrors "github.com/noah-isme/sims-api/pkg/errors"
)

type failingStudentLister struct{}

func (failingStudentLister) FindAll(context.Context) ([]models.Student, error) {
	return nil, errors.New("store down")
}

func reportFixture() *ReportService {
	students := newMemStudentRepo(
		models.Student{ID: "s1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.com", ScheduleIDs: []string{"c1", "c2"}},
		models.Student{ID: "s2", FirstName: "Grace", Email: "grace@x.com"},
	)
	schedules := newMemScheduleRepo(models.ClassSchedule{ID: "c1", ClassName: "Math", Instructor: "Dr. Smith", MaxCapacity: "20", StudentIDs: []string{"s1"}})
	return NewReportService(students, schedules, nil)
}

func TestParseReportFormat(t *testing.T) {
	format, err := ParseReportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ReportFormatPDF, format)

	format, err = ParseReportFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, ReportFormatXLSX, format)

	_, err = ParseReportFormat("docx")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnsupported))
}

func TestStudentReportCSV(t *testing.T) {
	file, err := reportFixture().StudentReport(context.Background(), ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Contains(t, file.Filename, "students_report_")

	records, err := csv.NewReader(bytes.NewReader(file.Payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, studentReportHeaders, records[0])
	assert.Equal(t, "Ada", records[1][1])
	assert.Equal(t, "2", records[1][9])
	// Missing values render as empty cells, never "null".
	assert.Equal(t, "", records[2][2])
	assert.NotContains(t, string(file.Payload), "null")
}

func TestScheduleReportXLSX(t *testing.T) {
	file, err := reportFixture().ScheduleReport(context.Background(), ReportFormatXLSX)
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(file.Payload))
	require.NoError(t, err)
	defer book.Close() //nolint:errcheck

	rows, err := book.GetRows("schedules")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Class Name", rows[0][1])
	assert.Equal(t, "Math", rows[1][1])
	assert.Equal(t, "1", rows[1][7])
}

func TestStudentReportPDF(t *testing.T) {
	file, err := reportFixture().StudentReport(context.Background(), ReportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Payload, []byte("%PDF")))
}

func TestStudentReportStoreFailure(t *testing.T) {
	svc := NewReportService(failingStudentLister{}, newMemScheduleRepo(), nil)
	_, err := svc.StudentReport(context.Background(), ReportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
