package models

import "time"

// LinkViolationKind classifies a broken enrollment link.
type LinkViolationKind string

const (
	// ViolationMissingScheduleBackRef: student lists a schedule that does not list the student.
	ViolationMissingScheduleBackRef LinkViolationKind = "SCHEDULE_MISSING_STUDENT"
	// ViolationMissingStudentBackRef: schedule lists a student that does not list the schedule.
	ViolationMissingStudentBackRef LinkViolationKind = "STUDENT_MISSING_SCHEDULE"
	ViolationDanglingSchedule      LinkViolationKind = "DANGLING_SCHEDULE_REFERENCE"
	ViolationDanglingStudent       LinkViolationKind = "DANGLING_STUDENT_REFERENCE"
	ViolationDuplicateOnStudent    LinkViolationKind = "DUPLICATE_SCHEDULE_REFERENCE"
	ViolationDuplicateOnSchedule   LinkViolationKind = "DUPLICATE_STUDENT_REFERENCE"
)

// LinkViolation describes one pair whose references disagree.
type LinkViolation struct {
	Kind       LinkViolationKind `json:"kind"`
	StudentID  string            `json:"student_id"`
	ScheduleID string            `json:"schedule_id"`
}

// ConsistencyReport is the outcome of a reconciliation pass.
type ConsistencyReport struct {
	CheckedAt        time.Time       `json:"checked_at"`
	StudentsScanned  int             `json:"students_scanned"`
	SchedulesScanned int             `json:"schedules_scanned"`
	Violations       []LinkViolation `json:"violations"`
	Repaired         bool            `json:"repaired"`
	StudentsUpdated  int             `json:"students_updated"`
	SchedulesUpdated int             `json:"schedules_updated"`
}

// Consistent reports whether no violations were found.
func (r ConsistencyReport) Consistent() bool {
	return len(r.Violations) == 0
}
