package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
)

const (
	courseColumns  = "id, teacher_id, title, description, price_cents, is_published, created_at, updated_at"
	sectionColumns = "id, course_id, title, order_index"
	chapterSelect  = `
		SELECT c.id, c.section_id, s.course_id, c.title, c.content_type, c.video_url, c.body,
			c.duration_seconds, c.order_index
		FROM chapters c
		JOIN sections s ON s.id = c.section_id`
	quizSelect = `
		SELECT q.id, q.section_id, s.course_id, q.title, q.passing_score
		FROM quizzes q
		JOIN sections s ON s.id = q.section_id`
)

type courseRepository struct{}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository() *courseRepository {
	return &courseRepository{}
}

func (repo courseRepository) GetCourse(ctx context.Context, exec core.DBExecutor, id int64) (course.Course, error) {
	var c course.Course
	q := exec.Rebind("SELECT " + courseColumns + " FROM courses WHERE id = ?")
	if err := exec.GetContext(ctx, &c, q, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, err
	}
	return c, nil
}

func (repo courseRepository) GetSection(ctx context.Context, exec core.DBExecutor, id int64) (course.Section, error) {
	var s course.Section
	q := exec.Rebind("SELECT " + sectionColumns + " FROM sections WHERE id = ?")
	if err := exec.GetContext(ctx, &s, q, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Section{}, course.ErrSectionNotFound
		}
		return course.Section{}, err
	}
	return s, nil
}

func (repo courseRepository) GetChapter(ctx context.Context, exec core.DBExecutor, id int64) (course.Chapter, error) {
	var ch course.Chapter
	if err := exec.GetContext(ctx, &ch, exec.Rebind(chapterSelect+" WHERE c.id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return course.Chapter{}, course.ErrChapterNotFound
		}
		return course.Chapter{}, err
	}
	return ch, nil
}

func (repo courseRepository) GetQuiz(ctx context.Context, exec core.DBExecutor, id int64) (course.Quiz, error) {
	var qz course.Quiz
	if err := exec.GetContext(ctx, &qz, exec.Rebind(quizSelect+" WHERE q.id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return course.Quiz{}, course.ErrQuizNotFound
		}
		return course.Quiz{}, err
	}
	return qz, nil
}

func (repo courseRepository) ListSections(ctx context.Context, exec core.DBExecutor, courseID int64) ([]course.Section, error) {
	sections := make([]course.Section, 0)
	q := exec.Rebind("SELECT " + sectionColumns + " FROM sections WHERE course_id = ? ORDER BY order_index, id")
	err := exec.SelectContext(ctx, &sections, q, courseID)
	return sections, err
}

func (repo courseRepository) ListChapters(ctx context.Context, exec core.DBExecutor, courseID int64) ([]course.Chapter, error) {
	chapters := make([]course.Chapter, 0)
	q := exec.Rebind(chapterSelect + " WHERE s.course_id = ? ORDER BY s.order_index, s.id, c.order_index, c.id")
	err := exec.SelectContext(ctx, &chapters, q, courseID)
	return chapters, err
}

func (repo courseRepository) ListQuizzes(ctx context.Context, exec core.DBExecutor, courseID int64) ([]course.Quiz, error) {
	quizzes := make([]course.Quiz, 0)
	q := exec.Rebind(quizSelect + " WHERE s.course_id = ? ORDER BY s.order_index, s.id")
	err := exec.SelectContext(ctx, &quizzes, q, courseID)
	return quizzes, err
}

type questionRow struct {
	ID            int64  `db:"id"`
	QuizID        int64  `db:"quiz_id"`
	Question      string `db:"question"`
	Options       string `db:"options"` // JSON array
	CorrectOption int    `db:"correct_option"`
	OrderIndex    int    `db:"order_index"`
}

func (repo courseRepository) ListQuestions(ctx context.Context, exec core.DBExecutor, quizID int64) ([]course.Question, error) {
	var rows []questionRow
	q := exec.Rebind(`
		SELECT id, quiz_id, question, options, correct_option, order_index
		FROM quiz_questions
		WHERE quiz_id = ?
		ORDER BY order_index, id`)
	if err := exec.SelectContext(ctx, &rows, q, quizID); err != nil {
		return nil, err
	}

	questions := make([]course.Question, 0, len(rows))
	for _, row := range rows {
		var opts []string
		if err := json.Unmarshal([]byte(row.Options), &opts); err != nil {
			return nil, errors.Wrapf(err, "decoding options of question %d", row.ID)
		}
		questions = append(questions, course.Question{
			ID:            row.ID,
			QuizID:        row.QuizID,
			Question:      row.Question,
			Options:       opts,
			CorrectOption: row.CorrectOption,
			OrderIndex:    row.OrderIndex,
		})
	}
	return questions, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, exec core.DBExecutor, c course.Course) (course.Course, error) {
	q := exec.Rebind(`
		INSERT INTO courses (teacher_id, title, description, price_cents, is_published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := exec.GetContext(ctx, &c.ID, q, c.TeacherID, c.Title, c.Description, c.PriceCents, c.IsPublished, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) CreateSection(ctx context.Context, exec core.DBExecutor, s course.Section) (course.Section, error) {
	q := exec.Rebind("INSERT INTO sections (course_id, title, order_index) VALUES (?, ?, ?) RETURNING id")
	if err := exec.GetContext(ctx, &s.ID, q, s.CourseID, s.Title, s.OrderIndex); err != nil {
		return course.Section{}, errors.Wrap(err, "inserting section")
	}
	return s, nil
}

func (repo courseRepository) CreateChapter(ctx context.Context, exec core.DBExecutor, ch course.Chapter) (course.Chapter, error) {
	q := exec.Rebind(`
		INSERT INTO chapters (section_id, title, content_type, video_url, body, duration_seconds, order_index)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := exec.GetContext(
		ctx, &ch.ID, q,
		ch.SectionID, ch.Title, ch.ContentType, ch.VideoURL, ch.Body, ch.DurationSeconds, ch.OrderIndex,
	)
	if err != nil {
		return course.Chapter{}, errors.Wrap(err, "inserting chapter")
	}
	return ch, nil
}

func (repo courseRepository) UpsertQuiz(ctx context.Context, exec core.DBExecutor, qz course.Quiz) (course.Quiz, error) {
	q := exec.Rebind(`
		INSERT INTO quizzes (section_id, title, passing_score)
		VALUES (?, ?, ?)
		ON CONFLICT (section_id) DO UPDATE SET
			title = excluded.title,
			passing_score = excluded.passing_score
		RETURNING id`)
	if err := exec.GetContext(ctx, &qz.ID, q, qz.SectionID, qz.Title, qz.PassingScore); err != nil {
		return course.Quiz{}, errors.Wrap(err, "upserting quiz")
	}
	return qz, nil
}

func (repo courseRepository) ReplaceQuestions(ctx context.Context, exec core.DBExecutor, quizID int64, questions []course.Question) error {
	if _, err := exec.ExecContext(ctx, exec.Rebind("DELETE FROM quiz_questions WHERE quiz_id = ?"), quizID); err != nil {
		return errors.Wrap(err, "deleting questions")
	}

	q := exec.Rebind(`
		INSERT INTO quiz_questions (quiz_id, question, options, correct_option, order_index)
		VALUES (?, ?, ?, ?, ?)`)
	for _, qq := range questions {
		opts, err := json.Marshal(qq.Options)
		if err != nil {
			return errors.Wrap(err, "encoding options")
		}
		if _, err = exec.ExecContext(ctx, q, quizID, qq.Question, string(opts), qq.CorrectOption, qq.OrderIndex); err != nil {
			return errors.Wrap(err, "inserting question")
		}
	}
	return nil
}
