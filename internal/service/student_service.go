package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-api/internal/models"
	"github.com/noah-isme/sims-api/internal/repository"
	appErrors "github.com/noah-isme/sims-api/pkg/errors"
)

const enrollmentDateLayout = "2006-01-02"

type studentRepository interface {
	Save(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindAll(ctx context.Context) ([]models.Student, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	DeleteByID(ctx context.Context, id string) error
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	Search(ctx context.Context, term string) ([]models.Student, error)
}

// StudentRequest holds the editable student profile. Link lists are never accepted from clients.
type StudentRequest struct {
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required,phone"`
	GradeLevel     string `json:"grade_level" validate:"required"`
	Address        string `json:"address" validate:"required"`
	GuardianName   string `json:"guardian_name" validate:"required"`
	EnrollmentDate string `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02"`
}

func (r *StudentRequest) trim() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.GradeLevel = strings.TrimSpace(r.GradeLevel)
	r.Address = strings.TrimSpace(r.Address)
	r.GuardianName = strings.TrimSpace(r.GuardianName)
	r.EnrollmentDate = strings.TrimSpace(r.EnrollmentDate)
}

// StudentService handles student use-cases.
type StudentService struct {
	students  studentRepository
	schedules scheduleRepository
	tx        repository.Transactor
	cache     resultCache
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(students studentRepository, schedules scheduleRepository, tx repository.Transactor, cache resultCache, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		students:  students,
		schedules: schedules,
		tx:        transactorOrNoop(tx),
		cache:     cacheOrDisabled(cache),
		validator: ensureValidator(validate),
		logger:    logger,
		now:       time.Now,
	}
}

// List returns every student in store order.
func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	students, err := cachedList(ctx, s.cache, s.cache.Key("students", "list"), func() ([]models.Student, error) {
		return s.students.FindAll(ctx)
	})
	if err != nil {
		return nil, internalError(err, "failed to list students")
	}
	return students, nil
}

// Search matches term against first name, last name and email. A blank term behaves like List.
func (s *StudentService) Search(ctx context.Context, term string) ([]models.Student, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.List(ctx)
	}
	students, err := cachedList(ctx, s.cache, s.cache.Key("students", "search", term), func() ([]models.Student, error) {
		return s.students.Search(ctx, term)
	})
	if err != nil {
		return nil, internalError(err, "failed to search students")
	}
	return students, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	return student, nil
}

// Create registers a new student with no enrollments.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	req.trim()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "student")
	}

	student := &models.Student{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		GradeLevel:     req.GradeLevel,
		Address:        req.Address,
		GuardianName:   req.GuardianName,
		EnrollmentDate: req.EnrollmentDate,
		ScheduleIDs:    []string{},
	}
	if student.EnrollmentDate == "" {
		student.EnrollmentDate = s.now().Format(enrollmentDateLayout)
	}

	err := s.tx.Run(ctx, func(ctx context.Context) error {
		if err := s.ensureEmailAvailable(ctx, student.Email, ""); err != nil {
			return err
		}
		return s.save(ctx, student, "failed to create student")
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info("student created", zap.String("student_id", student.ID))
	return student, nil
}

// Update replaces the profile fields of an existing student. The stored
// schedule list is kept as is.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	req.trim()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "student")
	}

	var updated *models.Student
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		existing, err := s.students.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "student")
		}
		if err := s.ensureEmailAvailable(ctx, req.Email, existing.ID); err != nil {
			return err
		}

		existing.FirstName = req.FirstName
		existing.LastName = req.LastName
		existing.Email = req.Email
		existing.Phone = req.Phone
		existing.GradeLevel = req.GradeLevel
		existing.Address = req.Address
		existing.GuardianName = req.GuardianName
		if req.EnrollmentDate != "" {
			existing.EnrollmentDate = req.EnrollmentDate
		}
		if err := s.save(ctx, existing, "failed to update student"); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info("student updated", zap.String("student_id", updated.ID))
	return updated, nil
}

// Schedules lists the schedules the student is enrolled in, in enrollment order.
// References to schedules that no longer exist are skipped.
func (s *StudentService) Schedules(ctx context.Context, id string) ([]models.ClassSchedule, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	schedules := make([]models.ClassSchedule, 0, len(student.ScheduleIDs))
	for _, scheduleID := range student.ScheduleIDs {
		schedule, err := s.schedules.FindByID(ctx, scheduleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Debug("dangling schedule reference", zap.String("student_id", id), zap.String("schedule_id", scheduleID))
				continue
			}
			return nil, internalError(err, "failed to load schedule")
		}
		schedules = append(schedules, *schedule)
	}
	return schedules, nil
}

// ensureEmailAvailable fails with DUPLICATE_EMAIL when a student other than ownerID holds email.
func (s *StudentService) ensureEmailAvailable(ctx context.Context, email, ownerID string) error {
	holder, err := s.students.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return internalError(err, "failed to check email")
	}
	if holder.ID != ownerID {
		return appErrors.Clone(appErrors.ErrDuplicateEmail, "email "+email+" is already registered")
	}
	return nil
}

func (s *StudentService) save(ctx context.Context, student *models.Student, message string) error {
	if err := s.students.Save(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return appErrors.Wrap(err, appErrors.ErrDuplicateEmail.Code, appErrors.ErrDuplicateEmail.Status, "email "+student.Email+" is already registered")
		}
		return internalError(err, message)
	}
	return nil
}

func (s *StudentService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}
