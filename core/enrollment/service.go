package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
)

var (
	// errors
	ErrNotEnrolled     = errors.New("you are not enrolled in this course")
	ErrPaymentRequired = errors.New("payment required: this course is not free")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		GetEnrollment(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) (Enrollment, error)
		CreateEnrollment(ctx context.Context, exec core.DBExecutor, e Enrollment) (Enrollment, error)
		// MarkCompleted sets completed_at unless already set and reports whether it did.
		MarkCompleted(ctx context.Context, exec core.DBExecutor, studentID, courseID int64, at time.Time) (bool, error)
		ListStudentIDs(ctx context.Context, exec core.DBExecutor, courseID int64) ([]int64, error)
		Report(ctx context.Context, exec core.DBExecutor, courseID int64, orderings ...core.DBOrdering) ([]ReportRow, error)
	}

	// Ledger records the payment side of a free enrollment.
	Ledger interface {
		RecordFreeEnrollment(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) error
	}

	Service struct {
		db      core.DB
		repo    Repository
		courses *course.Service
		ledger  Ledger
	}
)

func NewService(db core.DB, repo Repository, courses *course.Service, ledger Ledger) *Service {
	return &Service{db: db, repo: repo, courses: courses, ledger: ledger}
}

// Get returns the enrollment, or ErrNotEnrolled.
func (svc *Service) Get(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, exec, studentID, courseID)
}

// Require returns the enrollment, or a core.ValidationError if the student is not enrolled.
func (svc *Service) Require(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) (Enrollment, error) {
	e, err := svc.repo.GetEnrollment(ctx, exec, studentID, courseID)
	if err != nil {
		if errors.Cause(err) == ErrNotEnrolled {
			return Enrollment{}, core.NewValidationError(ErrNotEnrolled)
		}
		return Enrollment{}, errors.Wrapf(err, "getting enrollment of student %d in course %d", studentID, courseID)
	}
	return e, nil
}

func (svc *Service) MarkCompleted(ctx context.Context, exec core.DBExecutor, studentID, courseID int64, at time.Time) (bool, error) {
	return svc.repo.MarkCompleted(ctx, exec, studentID, courseID, at)
}

func (svc *Service) StudentIDs(ctx context.Context, courseID int64) ([]int64, error) {
	return svc.repo.ListStudentIDs(ctx, svc.db, courseID)
}

// Enroll enrolls the student in the course. Enrolling an already enrolled student is a no-op.
func (svc *Service) Enroll(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) (bool, error) {
	_, err := svc.repo.GetEnrollment(ctx, exec, studentID, courseID)
	if err == nil {
		return false, nil
	}
	if errors.Cause(err) != ErrNotEnrolled {
		return false, errors.Wrapf(err, "getting enrollment of student %d in course %d", studentID, courseID)
	}

	_, err = svc.repo.CreateEnrollment(ctx, exec, Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: nowFunc(),
	})
	if err != nil {
		return false, errors.Wrapf(err, "enrolling student %d in course %d", studentID, courseID)
	}
	return true, nil
}

// EnrollFree enrolls the student in a free published course and records the FREE payment.
func (svc *Service) EnrollFree(ctx context.Context, ident core.Identity, courseID int64) (Enrollment, bool, error) {
	if err := ident.RequireStudent(); err != nil {
		return Enrollment{}, false, err
	}

	var enr Enrollment
	var created bool
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		c, err := svc.courses.Get(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if !c.IsPublished {
			return core.NewNotFoundError(course.ErrNotFound.Error())
		}
		if !c.IsFree() {
			return core.NewValidationError(ErrPaymentRequired)
		}

		if created, err = svc.Enroll(ctx, tx, ident.UserID, courseID); err != nil {
			return err
		}
		if created {
			if err = svc.ledger.RecordFreeEnrollment(ctx, tx, ident.UserID, courseID); err != nil {
				return errors.Wrapf(err, "recording free enrollment of student %d in course %d", ident.UserID, courseID)
			}
		}

		enr, err = svc.repo.GetEnrollment(ctx, tx, ident.UserID, courseID)
		return errors.Wrap(err, "getting enrollment")
	})
	return enr, created, err
}

// Report lists the students enrolled in the course with their stored progress.
func (svc *Service) Report(ctx context.Context, ident core.Identity, courseID int64, orderings ...core.DBOrdering) ([]ReportRow, error) {
	if !(ident.IsTeacher() || ident.IsAdmin()) {
		return nil, core.NewAuthError("unauthorized: teacher or admin access required")
	}
	c, err := svc.courses.Get(ctx, svc.db, courseID)
	if err != nil {
		return nil, err
	}
	if !ident.CanManageCourse(c.TeacherID) {
		return nil, core.NewPermissionError("permission denied: you do not manage this course")
	}

	valid := make([]core.DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		col, ok := ReportOrderings[ord.Field]
		if !ok {
			return nil, core.NewValidationError(
				errors.Errorf("invalid ordering field %q", ord.Field),
				core.FieldError{Field: "ordering", Error: "invalid field: " + ord.Field},
			)
		}
		valid = append(valid, core.DBOrdering{Field: col, Ascending: ord.Ascending})
	}

	rows, err := svc.repo.Report(ctx, svc.db, courseID, valid...)
	return rows, errors.Wrapf(err, "reporting enrollments of course %d", courseID)
}
