package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sims-api/internal/models"
)

// ClassScheduleRepository manages persistence for class schedules.
type ClassScheduleRepository struct {
	docs     Collection[models.ClassSchedule]
	observer OperationObserver
	now      func() time.Time
}

// NewClassScheduleRepository constructs a ClassScheduleRepository.
func NewClassScheduleRepository(docs Collection[models.ClassSchedule], observer OperationObserver) *ClassScheduleRepository {
	return &ClassScheduleRepository{docs: docs, observer: observerOrNop(observer), now: time.Now}
}

func (r *ClassScheduleRepository) observe(op string, start time.Time) {
	r.observer.ObserveStoreOperation(SchedulesCollection.Name, op, time.Since(start))
}

// Save inserts or replaces the schedule, assigning an id when it has none.
func (r *ClassScheduleRepository) Save(ctx context.Context, schedule *models.ClassSchedule) error {
	defer r.observe("save", time.Now())

	now := r.now().UTC()
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	schedule.Normalize()

	if err := r.docs.Put(ctx, schedule.ID, *schedule); err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

// FindByID fetches a schedule; ErrNotFound when absent.
func (r *ClassScheduleRepository) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	defer r.observe("find_by_id", time.Now())

	schedule, err := r.docs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	schedule.Normalize()
	return &schedule, nil
}

// FindAll returns every schedule in insertion order.
func (r *ClassScheduleRepository) FindAll(ctx context.Context) ([]models.ClassSchedule, error) {
	defer r.observe("find_all", time.Now())

	schedules, err := r.docs.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return normalizeSchedules(schedules), nil
}

// ExistsByID reports whether the schedule is stored.
func (r *ClassScheduleRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	defer r.observe("exists", time.Now())

	exists, err := r.docs.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check schedule: %w", err)
	}
	return exists, nil
}

// DeleteByID removes the schedule; a missing id is ignored.
func (r *ClassScheduleRepository) DeleteByID(ctx context.Context, id string) error {
	defer r.observe("delete", time.Now())

	if err := r.docs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

// Search matches term against class name and instructor. A blank term lists all.
func (r *ClassScheduleRepository) Search(ctx context.Context, term string) ([]models.ClassSchedule, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return r.FindAll(ctx)
	}
	defer r.observe("search", time.Now())

	schedules, err := r.docs.Match(ctx, term, models.ScheduleSearchFields...)
	if err != nil {
		return nil, fmt.Errorf("search schedules: %w", err)
	}
	return normalizeSchedules(schedules), nil
}

func normalizeSchedules(schedules []models.ClassSchedule) []models.ClassSchedule {
	if schedules == nil {
		return []models.ClassSchedule{}
	}
	for i := range schedules {
		schedules[i].Normalize()
	}
	return schedules
}
