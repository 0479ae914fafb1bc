package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-api/internal/models"
	"github.com/noah-isme/sims-api/internal/repository"
	"github.com/noah-isme/sims-api/pkg/jobs"
)

// JobTypeReconcile identifies reconciliation jobs on the background queue.
const JobTypeReconcile = "reconcile_links"

// ReconcilePayload is carried by reconciliation jobs.
type ReconcilePayload struct {
	Repair bool
}

// ReconcileService audits the enrollment links across both collections and
// optionally repairs them. The student side is authoritative.
type ReconcileService struct {
	students  studentRepository
	schedules scheduleRepository
	tx        repository.Transactor
	cache     resultCache
	gauge     violationGauge
	logger    *zap.Logger
	now       func() time.Time
}

// NewReconcileService constructs the reconciliation service.
func NewReconcileService(students studentRepository, schedules scheduleRepository, tx repository.Transactor, cache resultCache, metrics *MetricsService, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ReconcileService{
		students:  students,
		schedules: schedules,
		tx:        transactorOrNoop(tx),
		cache:     cacheOrDisabled(cache),
		logger:    logger,
		now:       time.Now,
	}
	if metrics != nil {
		svc.gauge = metrics
	}
	return svc
}

// Check reports violations without writing anything.
func (s *ReconcileService) Check(ctx context.Context) (*models.ConsistencyReport, error) {
	return s.run(ctx, false)
}

// Repair reports violations and rewrites every record needed to restore the invariant.
func (s *ReconcileService) Repair(ctx context.Context) (*models.ConsistencyReport, error) {
	return s.run(ctx, true)
}

// HandleJob adapts the service to jobs.Handler.
func (s *ReconcileService) HandleJob(ctx context.Context, job jobs.Job) error {
	repair := false
	if payload, ok := job.Payload.(ReconcilePayload); ok {
		repair = payload.Repair
	}
	report, err := s.run(ctx, repair)
	if err != nil {
		return err
	}
	s.logger.Info("reconciliation finished",
		zap.String("job_id", job.ID),
		zap.Int("violations", len(report.Violations)),
		zap.Bool("repaired", report.Repaired),
		zap.Int("students_updated", report.StudentsUpdated),
		zap.Int("schedules_updated", report.SchedulesUpdated),
	)
	return nil
}

// Job builds a reconciliation job for the periodic scheduler.
func (s *ReconcileService) Job(repair bool) jobs.JobFactory {
	return func(tick time.Time) jobs.Job {
		return jobs.Job{
			ID:       uuid.NewString(),
			Type:     JobTypeReconcile,
			Payload:  ReconcilePayload{Repair: repair},
			Enqueued: tick.UTC(),
		}
	}
}

func (s *ReconcileService) run(ctx context.Context, repair bool) (*models.ConsistencyReport, error) {
	var report *models.ConsistencyReport
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		students, err := s.students.FindAll(ctx)
		if err != nil {
			return internalError(err, "failed to list students")
		}
		schedules, err := s.schedules.FindAll(ctx)
		if err != nil {
			return internalError(err, "failed to list schedules")
		}

		report = &models.ConsistencyReport{
			CheckedAt:        s.now().UTC(),
			StudentsScanned:  len(students),
			SchedulesScanned: len(schedules),
			Violations:       findViolations(students, schedules),
		}
		if !repair || report.Consistent() {
			return nil
		}
		return s.repair(ctx, students, schedules, report)
	})
	if err != nil {
		return nil, err
	}

	outstanding := len(report.Violations)
	if report.Repaired {
		outstanding = 0
		if cacheErr := s.cache.InvalidateAll(ctx); cacheErr != nil {
			s.logger.Warn("cache invalidation failed", zap.Error(cacheErr))
		}
	}
	if s.gauge != nil {
		s.gauge.SetLinkViolations(outstanding)
	}
	if len(report.Violations) > 0 {
		s.logger.Warn("enrollment link violations found", zap.Int("count", len(report.Violations)), zap.Bool("repaired", report.Repaired))
	}
	return report, nil
}

func findViolations(students []models.Student, schedules []models.ClassSchedule) []models.LinkViolation {
	studentByID := make(map[string]models.Student, len(students))
	for _, student := range students {
		studentByID[student.ID] = student
	}
	scheduleByID := make(map[string]models.ClassSchedule, len(schedules))
	for _, schedule := range schedules {
		scheduleByID[schedule.ID] = schedule
	}

	violations := make([]models.LinkViolation, 0)
	for _, student := range students {
		seen := make(map[string]struct{}, len(student.ScheduleIDs))
		for _, scheduleID := range student.ScheduleIDs {
			v := models.LinkViolation{StudentID: student.ID, ScheduleID: scheduleID}
			if _, dup := seen[scheduleID]; dup {
				v.Kind = models.ViolationDuplicateOnStudent
				violations = append(violations, v)
				continue
			}
			seen[scheduleID] = struct{}{}
			schedule, ok := scheduleByID[scheduleID]
			switch {
			case !ok:
				v.Kind = models.ViolationDanglingSchedule
			case !schedule.HasStudent(student.ID):
				v.Kind = models.ViolationMissingScheduleBackRef
			default:
				continue
			}
			violations = append(violations, v)
		}
	}

	for _, schedule := range schedules {
		seen := make(map[string]struct{}, len(schedule.StudentIDs))
		for _, studentID := range schedule.StudentIDs {
			v := models.LinkViolation{StudentID: studentID, ScheduleID: schedule.ID}
			if _, dup := seen[studentID]; dup {
				v.Kind = models.ViolationDuplicateOnSchedule
				violations = append(violations, v)
				continue
			}
			seen[studentID] = struct{}{}
			student, ok := studentByID[studentID]
			switch {
			case !ok:
				v.Kind = models.ViolationDanglingStudent
			case !student.HasSchedule(schedule.ID):
				v.Kind = models.ViolationMissingStudentBackRef
			default:
				continue
			}
			violations = append(violations, v)
		}
	}
	return violations
}

// repair cleans student lists (dedupe, drop dangling) and then rewrites each
// roster to exactly the students that list the schedule. Existing roster order
// is kept; newly added students follow in student order.
func (s *ReconcileService) repair(ctx context.Context, students []models.Student, schedules []models.ClassSchedule, report *models.ConsistencyReport) error {
	scheduleExists := make(map[string]bool, len(schedules))
	for _, schedule := range schedules {
		scheduleExists[schedule.ID] = true
	}

	wanted := make(map[string][]string, len(schedules))
	for i := range students {
		student := &students[i]
		cleaned := make([]string, 0, len(student.ScheduleIDs))
		for _, scheduleID := range models.DedupeIDs(student.ScheduleIDs) {
			if scheduleExists[scheduleID] {
				cleaned = append(cleaned, scheduleID)
				wanted[scheduleID] = append(wanted[scheduleID], student.ID)
			}
		}
		if !sameIDs(cleaned, student.ScheduleIDs) {
			student.ScheduleIDs = cleaned
			if err := s.students.Save(ctx, student); err != nil {
				return internalError(err, fmt.Sprintf("failed to repair student %s", student.ID))
			}
			report.StudentsUpdated++
		}
	}

	for i := range schedules {
		schedule := &schedules[i]
		roster := mergeRoster(schedule.StudentIDs, wanted[schedule.ID])
		if !sameIDs(roster, schedule.StudentIDs) {
			schedule.StudentIDs = roster
			if err := s.schedules.Save(ctx, schedule); err != nil {
				return internalError(err, fmt.Sprintf("failed to repair schedule %s", schedule.ID))
			}
			report.SchedulesUpdated++
		}
	}

	report.Repaired = true
	return nil
}

func mergeRoster(current, wanted []string) []string {
	want := make(map[string]bool, len(wanted))
	for _, id := range wanted {
		want[id] = true
	}
	roster := make([]string, 0, len(wanted))
	placed := make(map[string]bool, len(wanted))
	for _, id := range current {
		if want[id] && !placed[id] {
			roster = append(roster, id)
			placed[id] = true
		}
	}
	for _, id := range wanted {
		if !placed[id] {
			roster = append(roster, id)
			placed[id] = true
		}
	}
	return roster
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
