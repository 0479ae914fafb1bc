package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-api/internal/models"
	"github.com/noah-isme/sims-api/internal/repository"
)

type scheduleRepository interface {
	Save(ctx context.Context, schedule *models.ClassSchedule) error
	FindByID(ctx context.Context, id string) (*models.ClassSchedule, error)
	FindAll(ctx context.Context) ([]models.ClassSchedule, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	DeleteByID(ctx context.Context, id string) error
	Search(ctx context.Context, term string) ([]models.ClassSchedule, error)
}

// ScheduleRequest holds the editable class schedule fields.
type ScheduleRequest struct {
	ClassName   string `json:"class_name" validate:"required"`
	Instructor  string `json:"instructor" validate:"required"`
	Time        string `json:"time" validate:"required,timerange"`
	Room        string `json:"room" validate:"required"`
	Duration    string `json:"duration" validate:"required"`
	MaxCapacity string `json:"max_capacity" validate:"required,positiveint"`
}

func (r *ScheduleRequest) trim() {
	r.ClassName = strings.TrimSpace(r.ClassName)
	r.Instructor = strings.TrimSpace(r.Instructor)
	r.Time = strings.TrimSpace(r.Time)
	r.Room = strings.TrimSpace(r.Room)
	r.Duration = strings.TrimSpace(r.Duration)
	r.MaxCapacity = strings.TrimSpace(r.MaxCapacity)
}

// ScheduleService handles class schedule use-cases.
type ScheduleService struct {
	schedules scheduleRepository
	students  studentRepository
	tx        repository.Transactor
	cache     resultCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(schedules scheduleRepository, students studentRepository, tx repository.Transactor, cache resultCache, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		schedules: schedules,
		students:  students,
		tx:        transactorOrNoop(tx),
		cache:     cacheOrDisabled(cache),
		validator: ensureValidator(validate),
		logger:    logger,
	}
}

// List returns every schedule in store order.
func (s *ScheduleService) List(ctx context.Context) ([]models.ClassSchedule, error) {
	schedules, err := cachedList(ctx, s.cache, s.cache.Key("schedules", "list"), func() ([]models.ClassSchedule, error) {
		return s.schedules.FindAll(ctx)
	})
	if err != nil {
		return nil, internalError(err, "failed to list schedules")
	}
	return schedules, nil
}

// Search matches term against class name and instructor. A blank term behaves like List.
func (s *ScheduleService) Search(ctx context.Context, term string) ([]models.ClassSchedule, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.List(ctx)
	}
	schedules, err := cachedList(ctx, s.cache, s.cache.Key("schedules", "search", term), func() ([]models.ClassSchedule, error) {
		return s.schedules.Search(ctx, term)
	})
	if err != nil {
		return nil, internalError(err, "failed to search schedules")
	}
	return schedules, nil
}

// Get returns a single schedule.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ClassSchedule, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "schedule")
	}
	return schedule, nil
}

// Create registers a schedule with an empty roster.
func (s *ScheduleService) Create(ctx context.Context, req ScheduleRequest) (*models.ClassSchedule, error) {
	req.trim()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "schedule")
	}
	schedule := &models.ClassSchedule{
		ClassName:   req.ClassName,
		Instructor:  req.Instructor,
		Time:        req.Time,
		Room:        req.Room,
		Duration:    req.Duration,
		MaxCapacity: req.MaxCapacity,
		StudentIDs:  []string{},
	}
	if err := s.schedules.Save(ctx, schedule); err != nil {
		return nil, internalError(err, "failed to create schedule")
	}
	s.invalidate(ctx)
	s.logger.Info("schedule created", zap.String("schedule_id", schedule.ID))
	return schedule, nil
}

// Update replaces the descriptive fields of a schedule and keeps its roster.
// The read and the write share one unit of work.
func (s *ScheduleService) Update(ctx context.Context, id string, req ScheduleRequest) (*models.ClassSchedule, error) {
	req.trim()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "schedule")
	}

	var updated *models.ClassSchedule
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		schedule, err := s.schedules.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "schedule")
		}
		schedule.ClassName = req.ClassName
		schedule.Instructor = req.Instructor
		schedule.Time = req.Time
		schedule.Room = req.Room
		schedule.Duration = req.Duration
		schedule.MaxCapacity = req.MaxCapacity
		if err := s.schedules.Save(ctx, schedule); err != nil {
			return internalError(err, "failed to update schedule")
		}
		updated = schedule
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info("schedule updated", zap.String("schedule_id", updated.ID))
	return updated, nil
}

// Students lists the enrolled students in roster order, skipping dangling references.
func (s *ScheduleService) Students(ctx context.Context, id string) ([]models.Student, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "schedule")
	}
	students := make([]models.Student, 0, len(schedule.StudentIDs))
	for _, studentID := range schedule.StudentIDs {
		student, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Debug("dangling student reference", zap.String("schedule_id", id), zap.String("student_id", studentID))
				continue
			}
			return nil, internalError(err, "failed to load student")
		}
		students = append(students, *student)
	}
	return students, nil
}

// AvailableStudents lists students not linked to the schedule from either side.
func (s *ScheduleService) AvailableStudents(ctx context.Context, id string) ([]models.Student, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "schedule")
	}
	all, err := s.students.FindAll(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list students")
	}
	available := make([]models.Student, 0, len(all))
	for _, student := range all {
		if student.HasSchedule(schedule.ID) || schedule.HasStudent(student.ID) {
			continue
		}
		available = append(available, student)
	}
	return available, nil
}

func (s *ScheduleService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}
