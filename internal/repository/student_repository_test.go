package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sims-api/internal/models"
)

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (o *recordingObserver) ObserveStoreOperation(collection, operation string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, collection+"."+operation)
}

func TestStudentRepositorySaveAssignsIDAndTimestamps(t *testing.T) {
	ctx := context.Background()
	observer := &recordingObserver{}
	repo := NewStudentRepository(newBoltStudents(t, newTestBolt(t)), observer)
	fixed := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	student := &models.Student{FirstName: "Ada", Email: "ada@example.com"}
	require.NoError(t, repo.Save(ctx, student))
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, fixed, student.CreatedAt)
	assert.Equal(t, []string{}, student.ScheduleIDs)

	loaded, err := repo.FindByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", loaded.FirstName)
	assert.NotNil(t, loaded.ScheduleIDs)
	assert.Contains(t, observer.ops, "students.save")
	assert.Contains(t, observer.ops, "students.find_by_id")
}

func TestStudentRepositoryFindByEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository(newBoltStudents(t, newTestBolt(t)), nil)

	require.NoError(t, repo.Save(ctx, &models.Student{ID: "s1", Email: "one@example.com"}))

	found, err := repo.FindByEmail(ctx, "one@example.com")
	require.NoError(t, err)
	assert.Equal(t, "s1", found.ID)

	_, err = repo.FindByEmail(ctx, "two@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStudentRepositorySearchBlankListsAll(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository(newBoltStudents(t, newTestBolt(t)), nil)

	require.NoError(t, repo.Save(ctx, &models.Student{ID: "s1", FirstName: "Alice", Email: "a@x.com"}))
	require.NoError(t, repo.Save(ctx, &models.Student{ID: "s2", FirstName: "Bob", Email: "b@x.com"}))

	all, err := repo.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	hits, err := repo.Search(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "s1", hits[0].ID)
}

func TestStudentRepositoryEmptyListIsNotNil(t *testing.T) {
	repo := NewStudentRepository(newBoltStudents(t, newTestBolt(t)), nil)
	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestClassScheduleRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	coll, err := NewBoltCollection[models.ClassSchedule](newTestBolt(t), SchedulesCollection)
	require.NoError(t, err)
	repo := NewClassScheduleRepository(coll, nil)

	schedule := &models.ClassSchedule{ClassName: "Algebra", Instructor: "Dr. Smith"}
	require.NoError(t, repo.Save(ctx, schedule))

	exists, err := repo.ExistsByID(ctx, schedule.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	hits, err := repo.Search(ctx, "smith")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, []string{}, hits[0].StudentIDs)

	require.NoError(t, repo.DeleteByID(ctx, schedule.ID))
	_, err = repo.FindByID(ctx, schedule.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
