package course

import (
	"fmt"
	"time"

	"github.com/trezcool/manabi/core"
)

type Course struct {
	ID          int64     `json:"id" db:"id"`
	TeacherID   int64     `json:"teacher_id" db:"teacher_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	PriceCents  int64     `json:"price_cents" db:"price_cents"`
	IsPublished bool      `json:"is_published" db:"is_published"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (c Course) IsFree() bool { return c.PriceCents == 0 }

type Section struct {
	ID         int64  `json:"id" db:"id"`
	CourseID   int64  `json:"course_id" db:"course_id"`
	Title      string `json:"title" db:"title"`
	OrderIndex int    `json:"order_index" db:"order_index"`
}

type Chapter struct {
	ID              int64  `json:"id" db:"id"`
	SectionID       int64  `json:"section_id" db:"section_id"`
	CourseID        int64  `json:"course_id" db:"course_id"` // joined from sections
	Title           string `json:"title" db:"title"`
	ContentType     string `json:"content_type" db:"content_type"`
	VideoURL        string `json:"video_url,omitempty" db:"video_url"`
	Body            string `json:"body,omitempty" db:"body"`
	DurationSeconds int    `json:"duration_seconds" db:"duration_seconds"`
	OrderIndex      int    `json:"order_index" db:"order_index"`
}

// Kind returns the item kind of the chapter. Stored content types are constrained to video|text.
func (ch Chapter) Kind() ItemKind {
	kind, err := ParseContentType(ch.ContentType)
	if err != nil {
		panic(fmt.Sprintf("chapter %d: %v", ch.ID, err))
	}
	return kind
}

type Quiz struct {
	ID           int64  `json:"id" db:"id"`
	SectionID    int64  `json:"section_id" db:"section_id"`
	CourseID     int64  `json:"course_id" db:"course_id"` // joined from sections
	Title        string `json:"title" db:"title"`
	PassingScore int    `json:"passing_score" db:"passing_score"`
}

type Question struct {
	ID            int64    `json:"id"`
	QuizID        int64    `json:"quiz_id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"-"`
	OrderIndex    int      `json:"order_index"`
}

type (
	QuizDetail struct {
		Quiz
		Questions []Question `json:"questions"`
	}

	SectionDetail struct {
		Section
		Chapters []Chapter   `json:"chapters"`
		Quiz     *QuizDetail `json:"quiz,omitempty"`
	}

	// Structure is a course with its ordered sections, chapters and quizzes.
	Structure struct {
		Course
		Sections []SectionDetail `json:"sections"`
	}
)

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents" validate:"min=0"`
	IsPublished bool   `json:"is_published"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return core.Validate.Struct(nc)
}

type NewSection struct {
	Title      string `json:"title" validate:"notblank,max=200"`
	OrderIndex int    `json:"order_index" validate:"min=0"`
}

func (ns *NewSection) Validate() error {
	ns.Title = core.CleanString(ns.Title)
	return core.Validate.Struct(ns)
}

type NewChapter struct {
	Title           string `json:"title" validate:"notblank,max=200"`
	ContentType     string `json:"content_type" validate:"required,oneof=video text"`
	VideoURL        string `json:"video_url" validate:"required_if=ContentType video,omitempty,url"`
	Body            string `json:"body"`
	DurationSeconds int    `json:"duration_seconds" validate:"min=0"`
	OrderIndex      int    `json:"order_index" validate:"min=0"`
}

func (nc *NewChapter) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.ContentType = core.CleanString(nc.ContentType, true /* lower */)
	nc.VideoURL = core.CleanString(nc.VideoURL)
	return core.Validate.Struct(nc)
}

type (
	NewQuestion struct {
		Question      string   `json:"question" validate:"notblank"`
		Options       []string `json:"options" validate:"min=2,dive,notblank"`
		CorrectOption int      `json:"correct_option" validate:"min=0"`
	}

	NewQuiz struct {
		Title        string        `json:"title" validate:"notblank,max=200"`
		PassingScore int           `json:"passing_score" validate:"min=0,max=100"`
		Questions    []NewQuestion `json:"questions" validate:"required,min=1,dive"`
	}
)

func (nq *NewQuiz) Validate() error {
	nq.Title = core.CleanString(nq.Title)
	for i := range nq.Questions {
		nq.Questions[i].Question = core.CleanString(nq.Questions[i].Question)
	}
	if err := core.Validate.Struct(nq); err != nil {
		return err
	}

	var flds []core.FieldError
	for i, q := range nq.Questions {
		if q.CorrectOption >= len(q.Options) {
			flds = append(flds, core.FieldError{
				Field: fmt.Sprintf("questions[%d].correct_option", i),
				Error: "must reference one of the options",
			})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(fmt.Errorf("invalid quiz questions"), flds...)
	}
	return nil
}
