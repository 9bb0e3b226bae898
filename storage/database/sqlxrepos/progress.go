package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
	"github.com/trezcool/manabi/core/progress"
)

const (
	upsertVideoProgress = `
		INSERT INTO video_progress (student_id, chapter_id, completed, completion_percentage, watch_time_seconds, total_duration, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (student_id, chapter_id) DO UPDATE SET
			completed = video_progress.completed OR excluded.completed,
			completion_percentage = CASE
				WHEN excluded.completion_percentage > video_progress.completion_percentage THEN excluded.completion_percentage
				ELSE video_progress.completion_percentage
			END,
			watch_time_seconds = CASE
				WHEN excluded.watch_time_seconds > video_progress.watch_time_seconds THEN excluded.watch_time_seconds
				ELSE video_progress.watch_time_seconds
			END,
			total_duration = CASE
				WHEN excluded.total_duration > 0 THEN excluded.total_duration
				ELSE video_progress.total_duration
			END,
			updated_at = CASE
				WHEN (excluded.completed AND NOT video_progress.completed)
					OR excluded.completion_percentage > video_progress.completion_percentage
					OR excluded.watch_time_seconds > video_progress.watch_time_seconds
					OR (excluded.total_duration > 0 AND excluded.total_duration <> video_progress.total_duration)
				THEN excluded.updated_at
				ELSE video_progress.updated_at
			END`

	upsertTextProgress = `
		INSERT INTO text_progress (student_id, chapter_id, completed, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (student_id, chapter_id) DO UPDATE SET
			completed = text_progress.completed OR excluded.completed,
			completed_at = COALESCE(text_progress.completed_at, excluded.completed_at),
			updated_at = CASE
				WHEN excluded.completed AND NOT text_progress.completed THEN excluded.updated_at
				ELSE text_progress.updated_at
			END`

	upsertSectionProgress = `
		INSERT INTO progress (student_id, section_id, completed, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (student_id, section_id) DO UPDATE SET
			completed = excluded.completed,
			completed_at = CASE
				WHEN excluded.completed THEN COALESCE(progress.completed_at, excluded.completed_at)
				ELSE NULL
			END,
			updated_at = CASE
				WHEN excluded.completed <> progress.completed THEN excluded.updated_at
				ELSE progress.updated_at
			END`

	upsertCourseProgress = `
		INSERT INTO course_progress (student_id, course_id, completion_percentage, completed_sections, completion_status, last_accessed_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (student_id, course_id) DO UPDATE SET
			completion_percentage = excluded.completion_percentage,
			completed_sections = excluded.completed_sections,
			completion_status = excluded.completion_status,
			last_accessed_at = excluded.last_accessed_at,
			completed_at = CASE
				WHEN excluded.completion_status = 'completed' THEN COALESCE(course_progress.completed_at, excluded.completed_at)
				ELSE NULL
			END`
)

type progressRepository struct {
	courses course.Repository
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(courses course.Repository) *progressRepository {
	return &progressRepository{courses: courses}
}

func (repo progressRepository) selectIDs(ctx context.Context, exec core.DBExecutor, q string, args ...interface{}) ([]int64, error) {
	ids := make([]int64, 0)
	err := exec.SelectContext(ctx, &ids, exec.Rebind(q), args...)
	return ids, err
}

func (repo progressRepository) CompletedVideos(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) ([]int64, error) {
	return repo.selectIDs(ctx, exec, `
		SELECT vp.chapter_id
		FROM video_progress vp
		JOIN chapters c ON c.id = vp.chapter_id
		JOIN sections s ON s.id = c.section_id
		WHERE vp.student_id = ? AND s.course_id = ? AND vp.completed`,
		studentID, courseID,
	)
}

func (repo progressRepository) CompletedTexts(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) ([]int64, error) {
	return repo.selectIDs(ctx, exec, `
		SELECT tp.chapter_id
		FROM text_progress tp
		JOIN chapters c ON c.id = tp.chapter_id
		JOIN sections s ON s.id = c.section_id
		WHERE tp.student_id = ? AND s.course_id = ? AND tp.completed`,
		studentID, courseID,
	)
}

func (repo progressRepository) AttemptedQuizzes(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) ([]int64, error) {
	return repo.selectIDs(ctx, exec, `
		SELECT DISTINCT qa.quiz_id
		FROM quiz_attempts qa
		JOIN quizzes q ON q.id = qa.quiz_id
		JOIN sections s ON s.id = q.section_id
		WHERE qa.student_id = ? AND s.course_id = ?`,
		studentID, courseID,
	)
}

func (repo progressRepository) GetVideoProgress(ctx context.Context, exec core.DBExecutor, studentID, chapterID int64) (progress.VideoProgress, error) {
	var vp progress.VideoProgress
	q := exec.Rebind(`
		SELECT student_id, chapter_id, completed, completion_percentage, watch_time_seconds, total_duration, updated_at
		FROM video_progress
		WHERE student_id = ? AND chapter_id = ?`)
	if err := exec.GetContext(ctx, &vp, q, studentID, chapterID); err != nil {
		if err == sql.ErrNoRows {
			return progress.VideoProgress{}, progress.ErrNotFound
		}
		return progress.VideoProgress{}, err
	}
	return vp, nil
}

func (repo progressRepository) GetTextProgress(ctx context.Context, exec core.DBExecutor, studentID, chapterID int64) (progress.TextProgress, error) {
	var tp progress.TextProgress
	q := exec.Rebind(`
		SELECT student_id, chapter_id, completed, completed_at, updated_at
		FROM text_progress
		WHERE student_id = ? AND chapter_id = ?`)
	if err := exec.GetContext(ctx, &tp, q, studentID, chapterID); err != nil {
		if err == sql.ErrNoRows {
			return progress.TextProgress{}, progress.ErrNotFound
		}
		return progress.TextProgress{}, err
	}
	return tp, nil
}

func (repo progressRepository) GetCourseProgress(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) (progress.CourseProgress, error) {
	var cp progress.CourseProgress
	q := exec.Rebind(`
		SELECT student_id, course_id, completion_percentage, completed_sections, completion_status, last_accessed_at, completed_at
		FROM course_progress
		WHERE student_id = ? AND course_id = ?`)
	if err := exec.GetContext(ctx, &cp, q, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return progress.CourseProgress{}, progress.ErrNotFound
		}
		return progress.CourseProgress{}, err
	}
	return cp, nil
}

func (repo progressRepository) ListSectionProgress(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) ([]progress.SectionProgress, error) {
	sps := make([]progress.SectionProgress, 0)
	q := exec.Rebind(`
		SELECT p.student_id, p.section_id, p.completed, p.completed_at, p.updated_at
		FROM progress p
		JOIN sections s ON s.id = p.section_id
		WHERE p.student_id = ? AND s.course_id = ?
		ORDER BY s.order_index, s.id`)
	err := exec.SelectContext(ctx, &sps, q, studentID, courseID)
	return sps, err
}

func (repo progressRepository) UpsertVideoProgress(ctx context.Context, exec core.DBExecutor, vp progress.VideoProgress) error {
	_, err := exec.ExecContext(
		ctx, exec.Rebind(upsertVideoProgress),
		vp.StudentID, vp.ChapterID, vp.Completed, vp.CompletionPercentage, vp.WatchTimeSeconds, vp.TotalDuration, vp.UpdatedAt,
	)
	return errors.Wrap(err, "upserting video progress")
}

func (repo progressRepository) UpsertTextProgress(ctx context.Context, exec core.DBExecutor, tp progress.TextProgress) error {
	_, err := exec.ExecContext(
		ctx, exec.Rebind(upsertTextProgress),
		tp.StudentID, tp.ChapterID, tp.Completed, tp.CompletedAt, tp.UpdatedAt,
	)
	return errors.Wrap(err, "upserting text progress")
}

func (repo progressRepository) CompleteChapters(ctx context.Context, exec core.DBExecutor, studentID, courseID int64, at time.Time) error {
	chapters, err := repo.courses.ListChapters(ctx, exec, courseID)
	if err != nil {
		return errors.Wrap(err, "listing chapters")
	}

	for _, ch := range chapters {
		switch ch.Kind() {
		case course.KindVideo:
			err = repo.UpsertVideoProgress(ctx, exec, progress.VideoProgress{
				StudentID:            studentID,
				ChapterID:            ch.ID,
				Completed:            true,
				CompletionPercentage: 100,
				TotalDuration:        ch.DurationSeconds,
				UpdatedAt:            at,
			})
		case course.KindText:
			tp := progress.TextProgress{
				StudentID: studentID,
				ChapterID: ch.ID,
				Completed: true,
				UpdatedAt: at,
			}
			tp.CompletedAt.SetValid(at)
			err = repo.UpsertTextProgress(ctx, exec, tp)
		default:
			err = errors.Errorf("unexpected chapter kind %v", ch.Kind())
		}
		if err != nil {
			return errors.Wrapf(err, "completing chapter %d", ch.ID)
		}
	}
	return nil
}

func (repo progressRepository) UpsertSectionProgress(ctx context.Context, exec core.DBExecutor, sp progress.SectionProgress) error {
	_, err := exec.ExecContext(
		ctx, exec.Rebind(upsertSectionProgress),
		sp.StudentID, sp.SectionID, sp.Completed, sp.CompletedAt, sp.UpdatedAt,
	)
	return errors.Wrap(err, "upserting section progress")
}

func (repo progressRepository) UpsertCourseProgress(ctx context.Context, exec core.DBExecutor, cp progress.CourseProgress) error {
	_, err := exec.ExecContext(
		ctx, exec.Rebind(upsertCourseProgress),
		cp.StudentID, cp.CourseID, cp.CompletionPercentage, cp.CompletedSections, string(cp.CompletionStatus),
		cp.LastAccessedAt, cp.CompletedAt,
	)
	return errors.Wrap(err, "upserting course progress")
}
