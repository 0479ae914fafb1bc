package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/noah-isme/sims-api/internal/models"
	"github.com/noah-isme/sims-api/internal/repository"
	appErrors "github.com/noah-isme/sims-api/pkg/errors"
)

func validScheduleRequest() ScheduleRequest {
	return ScheduleRequest{
		ClassName:   "Algebra I",
		Instructor:  "Dr. Smith",
		Time:        "09:00-10:30",
		Room:        "B12",
		Duration:    "1.5 hours",
		MaxCapacity: "30",
	}
}

func TestScheduleServiceCreateAndUpdateKeepsRoster(t *testing.T) {
	schedules := newMemScheduleRepo()
	svc := NewScheduleService(schedules, newMemStudentRepo(), nil, nil, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validScheduleRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{}, created.StudentIDs)

	stored, _ := schedules.raw(created.ID)
	stored.StudentIDs = []string{"s1"}
	schedules.items[created.ID] = stored

	req := validScheduleRequest()
	req.Room = "C7"
	updated, err := svc.Update(ctx, created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "C7", updated.Room)
	assert.Equal(t, []string{"s1"}, updated.StudentIDs)
}

func TestScheduleServiceValidation(t *testing.T) {
	svc := NewScheduleService(newMemScheduleRepo(), newMemStudentRepo(), nil, nil, nil, nil)
	req := validScheduleRequest()
	req.Time = "9am"
	req.MaxCapacity = "0"

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "time must look like HH:MM-HH:MM")
	assert.Contains(t, appErr.Message, "max_capacity must be a positive whole number")
}

func TestScheduleServiceUpdateMissing(t *testing.T) {
	svc := NewScheduleService(newMemScheduleRepo(), newMemStudentRepo(), nil, nil, nil, nil)
	_, err := svc.Update(context.Background(), "nope", validScheduleRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestScheduleServiceSearchMatchesInstructor(t *testing.T) {
	schedules := newMemScheduleRepo(
		models.ClassSchedule{ID: "c1", ClassName: "Math", Instructor: "Dr. Smith"},
		models.ClassSchedule{ID: "c2", ClassName: "Art", Instructor: "Ms. Frida"},
	)
	svc := NewScheduleService(schedules, newMemStudentRepo(), nil, nil, nil, nil)

	hits, err := svc.Search(context.Background(), "smith")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ID)

	all, err := svc.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestScheduleServiceStudentsAndAvailable(t *testing.T) {
	students := newMemStudentRepo(
		models.Student{ID: "s1", Email: "1@x.com", ScheduleIDs: []string{"c1"}},
		models.Student{ID: "s2", Email: "2@x.com"},
		models.Student{ID: "s3", Email: "3@x.com"},
	)
	schedules := newMemScheduleRepo(models.ClassSchedule{ID: "c1", StudentIDs: []string{"s1", "ghost"}})
	svc := NewScheduleService(schedules, students, nil, nil, nil, nil)
	ctx := context.Background()

	enrolled, err := svc.Students(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, "s1", enrolled[0].ID)

	available, err := svc.AvailableStudents(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, "s2", available[0].ID)
	assert.Equal(t, "s3", available[1].ID)

	_, err = svc.AvailableStudents(ctx, "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

// racingScheduleRepo runs during once, right after the first schedule read.
type racingScheduleRepo struct {
	*repository.ClassScheduleRepository
	once   sync.Once
	during func()
}

func (r *racingScheduleRepo) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	schedule, err := r.ClassScheduleRepository.FindByID(ctx, id)
	r.once.Do(r.during)
	return schedule, err
}

func TestScheduleServiceUpdateKeepsConcurrentEnrollment(t *testing.T) {
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "sims.db"), 0o600, &bbolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	studentDocs, err := repository.NewBoltCollection[models.Student](db, repository.StudentsCollection)
	require.NoError(t, err)
	scheduleDocs, err := repository.NewBoltCollection[models.ClassSchedule](db, repository.SchedulesCollection)
	require.NoError(t, err)
	students := repository.NewStudentRepository(studentDocs, nil)
	schedules := repository.NewClassScheduleRepository(scheduleDocs, nil)
	tx := repository.NewBoltTransactor(db)
	ctx := context.Background()

	student := &models.Student{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	require.NoError(t, students.Save(ctx, student))
	schedule := &models.ClassSchedule{ClassName: "Algebra I"}
	require.NoError(t, schedules.Save(ctx, schedule))

	enrollment := NewEnrollmentService(students, schedules, tx, nil, nil, nil)
	enrolled := make(chan error, 1)
	racing := &racingScheduleRepo{ClassScheduleRepository: schedules}
	racing.during = func() {
		go func() {
			_, err := enrollment.Enroll(context.Background(), student.ID, schedule.ID)
			enrolled <- err
		}()
		// give the enrollment a chance to land before the roster is saved
		select {
		case err := <-enrolled:
			enrolled <- err
		case <-time.After(50 * time.Millisecond):
		}
	}

	svc := NewScheduleService(racing, students, tx, nil, nil, nil)
	req := validScheduleRequest()
	req.Room = "C7"
	_, err = svc.Update(ctx, schedule.ID, req)
	require.NoError(t, err)
	require.NoError(t, <-enrolled)

	gotStudent, err := students.FindByID(ctx, student.ID)
	require.NoError(t, err)
	gotSchedule, err := schedules.FindByID(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{schedule.ID}, gotStudent.ScheduleIDs)
	assert.Equal(t, []string{student.ID}, gotSchedule.StudentIDs)
	assert.Equal(t, "C7", gotSchedule.Room)
}
