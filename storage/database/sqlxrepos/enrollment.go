package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/enrollment"
)

type enrollmentRepository struct{}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository() *enrollmentRepository {
	return &enrollmentRepository{}
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	q := exec.Rebind(`
		SELECT id, student_id, course_id, enrolled_at, completed_at
		FROM enrollments
		WHERE student_id = ? AND course_id = ?`)
	if err := exec.GetContext(ctx, &e, q, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return enrollment.Enrollment{}, enrollment.ErrNotEnrolled
		}
		return enrollment.Enrollment{}, err
	}
	return e, nil
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, exec core.DBExecutor, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	q := exec.Rebind(`
		INSERT INTO enrollments (student_id, course_id, enrolled_at, completed_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`)
	if err := exec.GetContext(ctx, &e.ID, q, e.StudentID, e.CourseID, e.EnrolledAt, e.CompletedAt); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo enrollmentRepository) MarkCompleted(ctx context.Context, exec core.DBExecutor, studentID, courseID int64, at time.Time) (bool, error) {
	q := exec.Rebind(`
		UPDATE enrollments SET completed_at = ?
		WHERE student_id = ? AND course_id = ? AND completed_at IS NULL`)
	res, err := exec.ExecContext(ctx, q, at, studentID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "completing enrollment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "completing enrollment")
	}
	return n > 0, nil
}

func (repo enrollmentRepository) ListStudentIDs(ctx context.Context, exec core.DBExecutor, courseID int64) ([]int64, error) {
	ids := make([]int64, 0)
	q := exec.Rebind("SELECT student_id FROM enrollments WHERE course_id = ? ORDER BY enrolled_at, id")
	err := exec.SelectContext(ctx, &ids, q, courseID)
	return ids, err
}

// Report orderings must be whitelisted columns.
func (repo enrollmentRepository) Report(ctx context.Context, exec core.DBExecutor, courseID int64, orderings ...core.DBOrdering) ([]enrollment.ReportRow, error) {
	orderBy := make([]string, 0, len(orderings)+1)
	for _, ord := range orderings {
		orderBy = append(orderBy, ord.String())
	}
	orderBy = append(orderBy, "e.id ASC")

	rows := make([]enrollment.ReportRow, 0)
	q := exec.Rebind(`
		SELECT
			e.student_id,
			u.name AS student_name,
			u.email AS student_email,
			e.enrolled_at,
			e.completed_at,
			COALESCE(cp.completion_percentage, 0) AS completion_percentage,
			COALESCE(cp.completed_sections, 0) AS completed_sections,
			COALESCE(cp.completion_status, 'not_started') AS completion_status,
			cp.last_accessed_at
		FROM enrollments e
		JOIN users u ON u.id = e.student_id
		LEFT JOIN course_progress cp ON cp.student_id = e.student_id AND cp.course_id = e.course_id
		WHERE e.course_id = ?
		ORDER BY ` + strings.Join(orderBy, ", "))
	err := exec.SelectContext(ctx, &rows, q, courseID)
	return rows, err
}
