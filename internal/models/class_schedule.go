package models

import "time"

// ClassSchedule represents a class session students can enroll in. StudentIDs
// mirrors Student.ScheduleIDs.
type ClassSchedule struct {
	ID          string    `json:"id" bson:"_id"`
	ClassName   string    `json:"class_name" bson:"class_name"`
	Instructor  string    `json:"instructor" bson:"instructor"`
	Time        string    `json:"time" bson:"time"`
	Room        string    `json:"room" bson:"room"`
	Duration    string    `json:"duration" bson:"duration"`
	MaxCapacity string    `json:"max_capacity" bson:"max_capacity"`
	StudentIDs  []string  `json:"student_ids" bson:"student_ids"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

const (
	ScheduleFieldClassName  = "class_name"
	ScheduleFieldInstructor = "instructor"
)

// ScheduleSearchFields lists the fields matched by schedule search.
var ScheduleSearchFields = []string{ScheduleFieldClassName, ScheduleFieldInstructor}

// HasStudent reports whether the schedule lists the student.
func (c ClassSchedule) HasStudent(studentID string) bool {
	return containsID(c.StudentIDs, studentID)
}

// Normalize replaces a nil link list with an empty one so it serialises as [].
func (c *ClassSchedule) Normalize() {
	if c.StudentIDs == nil {
		c.StudentIDs = []string{}
	}
}
