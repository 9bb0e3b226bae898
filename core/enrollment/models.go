package enrollment

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type Enrollment struct {
	ID          int64     `json:"id" db:"id"`
	StudentID   int64     `json:"student_id" db:"student_id"`
	CourseID    int64     `json:"course_id" db:"course_id"`
	EnrolledAt  time.Time `json:"enrolled_at" db:"enrolled_at"`   // UTC
	CompletedAt null.Time `json:"completed_at" db:"completed_at"` // UTC
}

// IsFinished reports whether the course has been completed, either naturally or through an explicit finish.
func (e Enrollment) IsFinished() bool { return e.CompletedAt.Valid }

// ReportRow is an enrolled student with the stored course progress.
type ReportRow struct {
	StudentID            int64     `json:"student_id" db:"student_id"`
	StudentName          string    `json:"student_name" db:"student_name"`
	StudentEmail         string    `json:"student_email" db:"student_email"`
	EnrolledAt           time.Time `json:"enrolled_at" db:"enrolled_at"`
	CompletedAt          null.Time `json:"completed_at" db:"completed_at"`
	CompletionPercentage int       `json:"completion_percentage" db:"completion_percentage"`
	CompletedSections    int       `json:"completed_sections" db:"completed_sections"`
	CompletionStatus     string    `json:"completion_status" db:"completion_status"`
	LastAccessedAt       null.Time `json:"last_accessed_at" db:"last_accessed_at"`
}

// ReportOrderings maps the accepted report ordering fields to their columns.
var ReportOrderings = map[string]string{
	"enrolled_at":           "e.enrolled_at",
	"completed_at":          "e.completed_at",
	"completion_percentage": "completion_percentage",
	"name":                  "u.name",
}
