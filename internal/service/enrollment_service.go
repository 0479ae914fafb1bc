package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sims-api/internal/models"
	"github.com/noah-isme/sims-api/internal/repository"
	appErrors "github.com/noah-isme/sims-api/pkg/errors"
)

const (
	opEnroll         = "enroll"
	opUnenroll       = "unenroll"
	opDeleteStudent  = "delete_student"
	opDeleteSchedule = "delete_schedule"
)

// EnrollmentService owns every mutation of the student/schedule link. Both
// sides are always written student first, schedule second, so an interrupted
// pair leaves the student side ahead; ReconcileService repairs from there.
type EnrollmentService struct {
	students  studentRepository
	schedules scheduleRepository
	tx        repository.Transactor
	cache     resultCache
	metrics   enrollmentMetrics
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(students studentRepository, schedules scheduleRepository, tx repository.Transactor, cache resultCache, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &EnrollmentService{
		students:  students,
		schedules: schedules,
		tx:        transactorOrNoop(tx),
		cache:     cacheOrDisabled(cache),
		logger:    logger,
	}
	if metrics != nil {
		svc.metrics = metrics
	}
	return svc
}

// Enroll links the student and the schedule on both sides.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, scheduleID string) (*models.EnrollmentLink, error) {
	var link *models.EnrollmentLink
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		student, schedule, err := s.loadPair(ctx, studentID, scheduleID)
		if err != nil {
			return err
		}
		if student.HasSchedule(scheduleID) {
			return appErrors.Clone(appErrors.ErrAlreadyEnrolled, "student "+studentID+" is already enrolled in schedule "+scheduleID)
		}

		student.ScheduleIDs, _ = models.AppendID(student.ScheduleIDs, scheduleID)
		schedule.StudentIDs, _ = models.AppendID(schedule.StudentIDs, studentID)
		if err := s.savePair(ctx, student, schedule); err != nil {
			return err
		}
		link = &models.EnrollmentLink{Student: *student, Schedule: *schedule}
		return nil
	})
	s.finish(ctx, opEnroll, err, zap.String("student_id", studentID), zap.String("schedule_id", scheduleID))
	if err != nil {
		return nil, err
	}
	return link, nil
}

// Unenroll removes the link from both sides. A link present on only one side
// is still removed; NOT_ENROLLED is returned only when neither side has it.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, scheduleID string) (*models.EnrollmentLink, error) {
	var link *models.EnrollmentLink
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		student, schedule, err := s.loadPair(ctx, studentID, scheduleID)
		if err != nil {
			return err
		}
		if !student.HasSchedule(scheduleID) && !schedule.HasStudent(studentID) {
			return appErrors.Clone(appErrors.ErrNotEnrolled, "student "+studentID+" is not enrolled in schedule "+scheduleID)
		}

		student.ScheduleIDs, _ = models.RemoveID(student.ScheduleIDs, scheduleID)
		schedule.StudentIDs, _ = models.RemoveID(schedule.StudentIDs, studentID)
		if err := s.savePair(ctx, student, schedule); err != nil {
			return err
		}
		link = &models.EnrollmentLink{Student: *student, Schedule: *schedule}
		return nil
	})
	s.finish(ctx, opUnenroll, err, zap.String("student_id", studentID), zap.String("schedule_id", scheduleID))
	if err != nil {
		return nil, err
	}
	return link, nil
}

// DeleteStudent removes the student from every schedule it lists and then
// deletes it. It reports false without error when the student does not exist.
// Listed schedules that no longer exist are skipped.
//
// The student's own list is cleared before any roster is touched. An
// interrupted delete leaves the student side ahead and repair completes it.
func (s *EnrollmentService) DeleteStudent(ctx context.Context, studentID string) (bool, error) {
	deleted := false
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		student, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return internalError(err, "failed to load student")
		}

		scheduleIDs := student.ScheduleIDs
		if len(scheduleIDs) > 0 {
			student.ScheduleIDs = []string{}
			if err := s.students.Save(ctx, student); err != nil {
				return internalError(err, "failed to detach student schedules")
			}
		}

		for _, scheduleID := range scheduleIDs {
			schedule, err := s.schedules.FindByID(ctx, scheduleID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					s.logger.Debug("cascade skipped missing schedule", zap.String("student_id", studentID), zap.String("schedule_id", scheduleID))
					continue
				}
				return internalError(err, "failed to load schedule")
			}
			schedule.StudentIDs, _ = models.RemoveID(schedule.StudentIDs, studentID)
			if err := s.schedules.Save(ctx, schedule); err != nil {
				return internalError(err, "failed to update schedule roster")
			}
		}

		if err := s.students.DeleteByID(ctx, studentID); err != nil {
			return internalError(err, "failed to delete student")
		}
		deleted = true
		return nil
	})
	if err == nil && !deleted {
		s.record(opDeleteStudent, ResultNotFound)
		s.logger.Warn("delete_student: student not found", zap.String("student_id", studentID))
		return false, nil
	}
	s.finish(ctx, opDeleteStudent, err, zap.String("student_id", studentID))
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteSchedule removes the schedule from every enrolled student and then
// deletes it. A missing schedule is NOT_FOUND, unlike DeleteStudent.
func (s *EnrollmentService) DeleteSchedule(ctx context.Context, scheduleID string) error {
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		schedule, err := s.schedules.FindByID(ctx, scheduleID)
		if err != nil {
			return lookupError(err, "schedule")
		}

		for _, studentID := range schedule.StudentIDs {
			student, err := s.students.FindByID(ctx, studentID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					s.logger.Debug("cascade skipped missing student", zap.String("schedule_id", scheduleID), zap.String("student_id", studentID))
					continue
				}
				return internalError(err, "failed to load student")
			}
			student.ScheduleIDs, _ = models.RemoveID(student.ScheduleIDs, scheduleID)
			if err := s.students.Save(ctx, student); err != nil {
				return internalError(err, "failed to update student schedules")
			}
		}

		if err := s.schedules.DeleteByID(ctx, scheduleID); err != nil {
			return internalError(err, "failed to delete schedule")
		}
		return nil
	})
	s.finish(ctx, opDeleteSchedule, err, zap.String("schedule_id", scheduleID))
	return err
}

func (s *EnrollmentService) loadPair(ctx context.Context, studentID, scheduleID string) (*models.Student, *models.ClassSchedule, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, nil, lookupError(err, "student")
	}
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, nil, lookupError(err, "schedule")
	}
	return student, schedule, nil
}

func (s *EnrollmentService) savePair(ctx context.Context, student *models.Student, schedule *models.ClassSchedule) error {
	if err := s.students.Save(ctx, student); err != nil {
		return internalError(err, "failed to save student")
	}
	if err := s.schedules.Save(ctx, schedule); err != nil {
		s.logger.Error("schedule save failed after student save; link is one-sided until reconciled",
			zap.String("student_id", student.ID), zap.String("schedule_id", schedule.ID), zap.Error(err))
		return internalError(err, "failed to save schedule")
	}
	return nil
}

func (s *EnrollmentService) record(operation, result string) {
	if s.metrics != nil {
		s.metrics.RecordEnrollmentOperation(operation, result)
	}
}

// finish records the outcome, logs it and drops cached lists after a change.
func (s *EnrollmentService) finish(ctx context.Context, operation string, err error, fields ...zap.Field) {
	result := operationResult(err)
	s.record(operation, result)
	switch result {
	case ResultSuccess:
		s.logger.Info(operation, fields...)
		if cacheErr := s.cache.InvalidateAll(ctx); cacheErr != nil {
			s.logger.Warn("cache invalidation failed", zap.Error(cacheErr))
		}
	case ResultError:
		s.logger.Error(operation+" failed", append(fields, zap.Error(err))...)
	}
}
