package models

import "time"

// Student represents a learner record. ScheduleIDs mirrors ClassSchedule.StudentIDs
// and is only ever changed through enrollment operations.
type Student struct {
	ID             string    `json:"id" bson:"_id"`
	FirstName      string    `json:"first_name" bson:"first_name"`
	LastName       string    `json:"last_name" bson:"last_name"`
	Email          string    `json:"email" bson:"email"`
	Phone          string    `json:"phone" bson:"phone"`
	GradeLevel     string    `json:"grade_level" bson:"grade_level"`
	Address        string    `json:"address" bson:"address"`
	GuardianName   string    `json:"guardian_name" bson:"guardian_name"`
	EnrollmentDate string    `json:"enrollment_date" bson:"enrollment_date"`
	ScheduleIDs    []string  `json:"schedule_ids" bson:"schedule_ids"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// Document fields used by store queries.
const (
	StudentFieldFirstName = "first_name"
	StudentFieldLastName  = "last_name"
	StudentFieldEmail     = "email"
)

// StudentSearchFields lists the fields matched by student search.
var StudentSearchFields = []string{StudentFieldFirstName, StudentFieldLastName, StudentFieldEmail}

// FullName joins first and last name.
func (s Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// HasSchedule reports whether the student lists the schedule.
func (s Student) HasSchedule(scheduleID string) bool {
	return containsID(s.ScheduleIDs, scheduleID)
}

// Normalize replaces a nil link list with an empty one so it serialises as [].
func (s *Student) Normalize() {
	if s.ScheduleIDs == nil {
		s.ScheduleIDs = []string{}
	}
}
