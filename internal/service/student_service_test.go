package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-api/internal/models"
	appErrors "github.com/noah-isme/sims-api/pkg/errors"
)

func validStudentRequest(email string) StudentRequest {
	return StudentRequest{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        email,
		Phone:        "+15551234567",
		GradeLevel:   "10",
		Address:      "12 Analytical Way",
		GuardianName: "Anne Byron",
	}
}

func newTestStudentService(students *memStudentRepo, schedules *memScheduleRepo) *StudentService {
	svc := NewStudentService(students, schedules, nil, nil, NewValidator(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestStudentServiceCreateDefaultsEnrollmentDate(t *testing.T) {
	students := newMemStudentRepo()
	svc := newTestStudentService(students, newMemScheduleRepo())

	student, err := svc.Create(context.Background(), validStudentRequest("ada@example.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, "2024-09-02", student.EnrollmentDate)
	assert.Equal(t, []string{}, student.ScheduleIDs)

	stored, ok := students.raw(student.ID)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", stored.Email)
}

func TestStudentServiceCreateKeepsGivenEnrollmentDate(t *testing.T) {
	svc := newTestStudentService(newMemStudentRepo(), newMemScheduleRepo())
	req := validStudentRequest("ada@example.com")
	req.EnrollmentDate = "2023-01-15"

	student, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-15", student.EnrollmentDate)
}

func TestStudentServiceCreateDuplicateEmail(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: "s1", Email: "taken@example.com"})
	svc := newTestStudentService(students, newMemScheduleRepo())

	_, err := svc.Create(context.Background(), validStudentRequest("taken@example.com"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateEmail))

	all, _ := students.FindAll(context.Background())
	assert.Len(t, all, 1)
}

func TestStudentServiceCreateMapsStoreDuplicate(t *testing.T) {
	students := newMemStudentRepo()
	svc := newTestStudentService(students, newMemScheduleRepo())
	// The unique index fires even when the pre-check missed a concurrent insert.
	students.items["racer"] = models.Student{ID: "racer", Email: "race@example.com"}

	_, err := svc.Create(context.Background(), validStudentRequest("race@example.com"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateEmail))
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc := newTestStudentService(newMemStudentRepo(), newMemScheduleRepo())
	req := validStudentRequest("not-an-email")
	req.Phone = "abc"
	req.EnrollmentDate = "02/09/2024"

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "email must be a valid email address")
	assert.Contains(t, appErr.Message, "phone must be a valid phone number")
	assert.Contains(t, appErr.Message, "enrollment_date")
}

func TestStudentServiceUpdateOwnEmailAllowed(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: "s1", Email: "me@example.com", EnrollmentDate: "2022-01-01", ScheduleIDs: []string{"c1"}})
	svc := newTestStudentService(students, newMemScheduleRepo())

	req := validStudentRequest("me@example.com")
	req.FirstName = "Renamed"
	updated, err := svc.Update(context.Background(), "s1", req)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FirstName)
	assert.Equal(t, "2022-01-01", updated.EnrollmentDate)
	assert.Equal(t, []string{"c1"}, updated.ScheduleIDs)
}

func TestStudentServiceUpdateEmailOwnedByOther(t *testing.T) {
	students := newMemStudentRepo(
		models.Student{ID: "s1", Email: "one@example.com"},
		models.Student{ID: "s2", Email: "two@example.com"},
	)
	svc := newTestStudentService(students, newMemScheduleRepo())

	_, err := svc.Update(context.Background(), "s2", validStudentRequest("one@example.com"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateEmail))

	stored, _ := students.raw("s2")
	assert.Equal(t, "two@example.com", stored.Email)
}

func TestStudentServiceUpdateMissing(t *testing.T) {
	svc := newTestStudentService(newMemStudentRepo(), newMemScheduleRepo())
	_, err := svc.Update(context.Background(), "ghost", validStudentRequest("x@example.com"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceSearch(t *testing.T) {
	students := newMemStudentRepo(
		models.Student{ID: "s1", FirstName: "Alice", LastName: "Smith", Email: "alice@x.com"},
		models.Student{ID: "s2", FirstName: "Bob", LastName: "Jones", Email: "bob@x.com"},
		models.Student{ID: "s3", FirstName: "Carol", LastName: "Smithers", Email: "carol@y.com"},
	)
	svc := newTestStudentService(students, newMemScheduleRepo())
	ctx := context.Background()

	blank, err := svc.Search(ctx, "  ")
	require.NoError(t, err)
	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, all, blank)
	assert.Equal(t, "s1", blank[0].ID)

	hits, err := svc.Search(ctx, "SMITH")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "s1", hits[0].ID)
	assert.Equal(t, "s3", hits[1].ID)

	none, err := svc.Search(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	svc := newTestStudentService(newMemStudentRepo(), newMemScheduleRepo())
	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceSchedulesSkipsDangling(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: "s1", Email: "a@x.com", ScheduleIDs: []string{"c1", "gone", "c2"}})
	schedules := newMemScheduleRepo(
		models.ClassSchedule{ID: "c1", ClassName: "Math", StudentIDs: []string{"s1"}},
		models.ClassSchedule{ID: "c2", ClassName: "Art", StudentIDs: []string{"s1"}},
	)
	svc := newTestStudentService(students, schedules)

	list, err := svc.Schedules(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ID)
	assert.Equal(t, "c2", list[1].ID)
}
