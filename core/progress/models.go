package progress

import (
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/manabi/core"
)

const ActionCompleteCourse = "complete_course"

type (
	VideoProgress struct {
		StudentID            int64     `db:"student_id"`
		ChapterID            int64     `db:"chapter_id"`
		Completed            bool      `db:"completed"`
		CompletionPercentage float64   `db:"completion_percentage"`
		WatchTimeSeconds     int       `db:"watch_time_seconds"`
		TotalDuration        int       `db:"total_duration"`
		UpdatedAt            time.Time `db:"updated_at"`
	}

	TextProgress struct {
		StudentID   int64     `db:"student_id"`
		ChapterID   int64     `db:"chapter_id"`
		Completed   bool      `db:"completed"`
		CompletedAt null.Time `db:"completed_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	SectionProgress struct {
		StudentID   int64     `db:"student_id"`
		SectionID   int64     `db:"section_id"`
		Completed   bool      `db:"completed"`
		CompletedAt null.Time `db:"completed_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	CourseProgress struct {
		StudentID            int64     `db:"student_id"`
		CourseID             int64     `db:"course_id"`
		CompletionPercentage int       `db:"completion_percentage"`
		CompletedSections    int       `db:"completed_sections"`
		CompletionStatus     Status    `db:"completion_status"`
		LastAccessedAt       time.Time `db:"last_accessed_at"`
		CompletedAt          null.Time `db:"completed_at"`
	}
)

// Update is the body of a progress ping: either a chapter update or an explicit course completion.
type Update struct {
	Action string `json:"action"`
	ChapterUpdate
}

func (u Update) IsCompleteCourse() bool { return u.Action == ActionCompleteCourse }

// Validate only checks the action; each operation validates its own fields.
func (u *Update) Validate() error {
	u.Action = core.CleanString(u.Action, true /* lower */)
	if u.Action != "" && !u.IsCompleteCourse() {
		return core.NewValidationError(
			errors.Errorf("unknown action %q", u.Action),
			core.FieldError{Field: "action", Error: "unknown action"},
		)
	}
	return nil
}

type ChapterUpdate struct {
	ChapterID            int64   `json:"chapter_id"`
	SectionID            int64   `json:"section_id" validate:"min=0"`
	CourseID             int64   `json:"course_id" validate:"required,min=1"`
	ContentType          string  `json:"content_type"`
	Completed            bool    `json:"completed"`
	CompletionPercentage float64 `json:"completion_percentage" validate:"min=0,max=100"`
	WatchTime            int     `json:"watch_time" validate:"min=0"`
	TotalDuration        int     `json:"total_duration" validate:"min=0"`
}

type chapterFields struct {
	ChapterID   int64  `json:"chapter_id" validate:"required,min=1"`
	ContentType string `json:"content_type" validate:"required,oneof=video text"`
}

func (cu *ChapterUpdate) Validate() error {
	cu.ContentType = core.CleanString(cu.ContentType, true /* lower */)
	if err := core.Validate.Struct(cu); err != nil {
		return err
	}
	return core.Validate.Struct(chapterFields{ChapterID: cu.ChapterID, ContentType: cu.ContentType})
}

type (
	SectionSummary struct {
		CompletedChapters int  `json:"completed_chapters"`
		TotalChapters     int  `json:"total_chapters"`
		SectionCompleted  bool `json:"section_completed"`
	}

	CourseSummary struct {
		CompletedItems int `json:"completed_items"`
		TotalItems     int `json:"total_items"`
		Percentage     int `json:"percentage"`
	}

	// Response is returned by progress pings.
	Response struct {
		Success         bool            `json:"success"`
		SectionProgress *SectionSummary `json:"section_progress,omitempty"`
		CourseProgress  CourseSummary   `json:"course_progress"`
	}
)

// Response builds the ping response. The section summary is included when a section id is given.
func (r Result) Response(sectionID ...int64) Response {
	resp := Response{Success: true, CourseProgress: newCourseSummary(r)}
	if len(sectionID) > 0 {
		if sr, ok := r.Section(sectionID[0]); ok {
			resp.SectionProgress = newSectionSummary(sr)
		}
	}
	return resp
}

func newSectionSummary(sr SectionResult) *SectionSummary {
	return &SectionSummary{
		CompletedChapters: sr.CompletedChapters,
		TotalChapters:     sr.TotalChapters,
		SectionCompleted:  sr.Completed(),
	}
}

func newCourseSummary(res Result) CourseSummary {
	return CourseSummary{
		CompletedItems: res.CompletedItems,
		TotalItems:     res.TotalItems,
		Percentage:     res.Percentage,
	}
}

type (
	SectionOverview struct {
		SectionID int64 `json:"section_id"`
		SectionSummary
		HasQuiz       bool   `json:"has_quiz"`
		QuizAttempted bool   `json:"quiz_attempted"`
		Percentage    int    `json:"percentage"`
		Status        Status `json:"status"`
	}

	// Summary is a student's recomputed progress in a course.
	Summary struct {
		CourseID          int64             `json:"course_id"`
		CompletedItems    int               `json:"completed_items"`
		TotalItems        int               `json:"total_items"`
		Percentage        int               `json:"percentage"`
		Status            Status            `json:"status"`
		CompletedSections int               `json:"completed_sections"`
		TotalSections     int               `json:"total_sections"`
		Finished          bool              `json:"finished"`
		Sections          []SectionOverview `json:"sections"`
	}
)

func newSummary(courseID int64, res Result) Summary {
	s := Summary{
		CourseID:          courseID,
		CompletedItems:    res.CompletedItems,
		TotalItems:        res.TotalItems,
		Percentage:        res.Percentage,
		Status:            res.Status,
		CompletedSections: res.CompletedSections(),
		TotalSections:     len(res.Sections),
		Finished:          res.Finished,
		Sections:          make([]SectionOverview, 0, len(res.Sections)),
	}
	for _, sr := range res.Sections {
		s.Sections = append(s.Sections, SectionOverview{
			SectionID:      sr.SectionID,
			SectionSummary: *newSectionSummary(sr),
			HasQuiz:        sr.HasQuiz,
			QuizAttempted:  sr.QuizAttempted,
			Percentage:     sr.Percentage,
			Status:         sr.Status,
		})
	}
	return s
}
