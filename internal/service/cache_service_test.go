package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sims-api/internal/models"
	appErrors "github.com/noah-isme/sims-api/pkg/errors"
)

type memCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{entries: map[string][]byte{}}
}

func (r *memCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = raw
	return nil
}

func (r *memCacheRepo) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	n := 0
	for key := range r.entries {
		if strings.HasPrefix(key, prefix) {
			delete(r.entries, key)
			n++
		}
	}
	return n, nil
}

func (r *memCacheRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	var nilCache *CacheService
	hit, err := nilCache.Get(context.Background(), "k", &[]string{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, nilCache.InvalidateAll(context.Background()))
	assert.Equal(t, "sims:students:list", nilCache.Key("students", "list"))

	svc := NewCacheService(newMemCacheRepo(), nil, 0, "", nil, false)
	assert.False(t, svc.Enabled())
}

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemCacheRepo(), metrics, time.Minute, "test", nil, true)
	ctx := context.Background()

	var dest []string
	hit, err := svc.Get(ctx, "test:k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "test:k", []string{"a"}, 0))
	hit, err = svc.Get(ctx, "test:k", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a"}, dest)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestStudentListServedFromCacheUntilMutation(t *testing.T) {
	ctx := context.Background()
	cacheRepo := newMemCacheRepo()
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, "sims", nil, true)
	students := newMemStudentRepo(models.Student{ID: "s1", Email: "1@x.com"})
	schedules := newMemScheduleRepo(models.ClassSchedule{ID: "c1"})
	studentSvc := NewStudentService(students, schedules, nil, cacheSvc, nil, nil)
	enrollment := NewEnrollmentService(students, schedules, nil, cacheSvc, nil, nil)

	first, err := studentSvc.List(ctx)
	require.NoError(t, err)
	second, err := studentSvc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, students.findAlls)
	assert.Equal(t, 1, cacheRepo.size())

	_, err = enrollment.Enroll(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, cacheRepo.size())

	third, err := studentSvc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, students.findAlls)
	assert.Equal(t, []string{"c1"}, third[0].ScheduleIDs)
}

func TestCacheServiceMixedCasePrefixInvalidates(t *testing.T) {
	ctx := context.Background()
	cacheRepo := newMemCacheRepo()
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, " SIMS ", nil, true)
	key := cacheSvc.Key("Students", "list")
	assert.Equal(t, "sims:students:list", key)

	require.NoError(t, cacheSvc.Set(ctx, key, []string{"s1"}, 0))
	require.Equal(t, 1, cacheRepo.size())
	require.NoError(t, cacheSvc.InvalidateAll(ctx))
	assert.Equal(t, 0, cacheRepo.size())
}
