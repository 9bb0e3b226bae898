package progress

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
	"github.com/trezcool/manabi/core/enrollment"
	"github.com/trezcool/manabi/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("progress not found")
	errChapterNotInCourse = "forbidden: chapter does not belong to this course"

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		// CompletedVideos returns the ids of the course video chapters the student has completed.
		CompletedVideos(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) ([]int64, error)
		// CompletedTexts returns the ids of the course text chapters the student has completed.
		CompletedTexts(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) ([]int64, error)
		// AttemptedQuizzes returns the ids of the course quizzes the student has attempted at least once.
		AttemptedQuizzes(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) ([]int64, error)

		GetVideoProgress(ctx context.Context, exec core.DBExecutor, studentID, chapterID int64) (VideoProgress, error)
		GetTextProgress(ctx context.Context, exec core.DBExecutor, studentID, chapterID int64) (TextProgress, error)
		GetCourseProgress(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) (CourseProgress, error)
		ListSectionProgress(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) ([]SectionProgress, error)

		// UpsertVideoProgress never un-completes a chapter nor lowers its watch time or percentage.
		UpsertVideoProgress(ctx context.Context, exec core.DBExecutor, vp VideoProgress) error
		// UpsertTextProgress never un-completes a chapter.
		UpsertTextProgress(ctx context.Context, exec core.DBExecutor, tp TextProgress) error
		// CompleteChapters marks every chapter of the course completed for the student.
		CompleteChapters(ctx context.Context, exec core.DBExecutor, studentID, courseID int64, at time.Time) error
		UpsertSectionProgress(ctx context.Context, exec core.DBExecutor, sp SectionProgress) error
		UpsertCourseProgress(ctx context.Context, exec core.DBExecutor, cp CourseProgress) error
	}

	Service struct {
		db          core.DB
		repo        Repository
		courses     *course.Service
		enrollments *enrollment.Service
		users       *user.Service
		mailer      core.EmailService
		logger      core.Logger
	}
)

func NewService(
	db core.DB,
	repo Repository,
	courses *course.Service,
	enrollments *enrollment.Service,
	users *user.Service,
	mailer core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		courses:     courses,
		enrollments: enrollments,
		users:       users,
		mailer:      mailer,
		logger:      logger,
	}
}

// UpdateChapter records a progress ping for one chapter and reconciles the section and course aggregates.
// All writes happen in one transaction; the completion email is sent after commit.
func (svc *Service) UpdateChapter(ctx context.Context, ident core.Identity, upd ChapterUpdate) (Response, error) {
	if err := ident.RequireStudent(); err != nil {
		return Response{}, err
	}
	if err := upd.Validate(); err != nil {
		return Response{}, err
	}

	var res Result
	var sectionID int64
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.enrollments.Require(ctx, tx, ident.UserID, upd.CourseID); err != nil {
			return err
		}

		ch, err := svc.chapter(ctx, tx, upd)
		if err != nil {
			return err
		}
		sectionID = ch.SectionID

		now := nowFunc()
		switch ch.Kind() {
		case course.KindVideo:
			err = svc.repo.UpsertVideoProgress(ctx, tx, VideoProgress{
				StudentID:            ident.UserID,
				ChapterID:            ch.ID,
				Completed:            upd.Completed || upd.CompletionPercentage >= 100,
				CompletionPercentage: upd.CompletionPercentage,
				WatchTimeSeconds:     upd.WatchTime,
				TotalDuration:        upd.TotalDuration,
				UpdatedAt:            now,
			})
		case course.KindText:
			tp := TextProgress{
				StudentID: ident.UserID,
				ChapterID: ch.ID,
				Completed: upd.Completed,
				UpdatedAt: now,
			}
			if upd.Completed {
				tp.CompletedAt.SetValid(now)
			}
			err = svc.repo.UpsertTextProgress(ctx, tx, tp)
		default:
			err = errors.Errorf("unexpected chapter kind %v", ch.Kind())
		}
		if err != nil {
			return errors.Wrapf(err, "saving progress of student %d on chapter %d", ident.UserID, ch.ID)
		}

		res, err = svc.Reconcile(ctx, tx, ident.UserID, upd.CourseID)
		return err
	})
	if err != nil {
		return Response{}, err
	}

	svc.NotifyCompletion(ctx, ident.UserID, upd.CourseID, res)
	return res.Response(sectionID), nil
}

// chapter loads the pinged chapter and checks it against the request.
func (svc *Service) chapter(ctx context.Context, exec core.DBExecutor, upd ChapterUpdate) (course.Chapter, error) {
	ch, err := svc.courses.GetChapter(ctx, exec, upd.ChapterID)
	if err != nil {
		if errors.Cause(err) == course.ErrChapterNotFound {
			return course.Chapter{}, core.NewValidationError(
				course.ErrChapterNotFound,
				core.FieldError{Field: "chapter_id", Error: course.ErrChapterNotFound.Error()},
			)
		}
		return course.Chapter{}, errors.Wrapf(err, "getting chapter %d", upd.ChapterID)
	}

	if ch.CourseID != upd.CourseID {
		return course.Chapter{}, core.NewPermissionError(errChapterNotInCourse)
	}
	if upd.SectionID != 0 && ch.SectionID != upd.SectionID {
		return course.Chapter{}, core.NewValidationError(
			errors.New("chapter does not belong to this section"),
			core.FieldError{Field: "section_id", Error: "does not match the chapter's section"},
		)
	}
	if ch.ContentType != upd.ContentType {
		return course.Chapter{}, core.NewValidationError(
			errors.Errorf("chapter %d is a %s chapter", ch.ID, ch.ContentType),
			core.FieldError{Field: "content_type", Error: "does not match the chapter's content type"},
		)
	}
	return ch, nil
}

// CompleteCourse explicitly finishes the course: every chapter is marked completed and the course is
// locked at 100% so later recomputation cannot regress it.
func (svc *Service) CompleteCourse(ctx context.Context, ident core.Identity, courseID int64) (Response, error) {
	if err := ident.RequireStudent(); err != nil {
		return Response{}, err
	}
	if courseID <= 0 {
		return Response{}, core.NewValidationError(
			errors.New("course_id is required"),
			core.FieldError{Field: "course_id", Error: "this field is required"},
		)
	}

	var res Result
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.enrollments.Require(ctx, tx, ident.UserID, courseID); err != nil {
			return err
		}

		now := nowFunc()
		if err := svc.repo.CompleteChapters(ctx, tx, ident.UserID, courseID, now); err != nil {
			return errors.Wrapf(err, "completing chapters of course %d for student %d", courseID, ident.UserID)
		}
		if _, err := svc.enrollments.MarkCompleted(ctx, tx, ident.UserID, courseID, now); err != nil {
			return errors.Wrapf(err, "finishing enrollment of student %d in course %d", ident.UserID, courseID)
		}

		var err error
		res, err = svc.Reconcile(ctx, tx, ident.UserID, courseID)
		return err
	})
	if err != nil {
		return Response{}, err
	}

	svc.NotifyCompletion(ctx, ident.UserID, courseID, res)
	return res.Response(), nil
}

// compute recomputes the student's progress from the authoritative per-item rows, without writing.
func (svc *Service) compute(ctx context.Context, exec core.DBExecutor, studentID, courseID int64, finished bool) (Result, error) {
	sectionIDs, err := svc.courses.Sections(ctx, exec, courseID)
	if err != nil {
		return Result{}, err
	}
	items, err := svc.courses.Items(ctx, exec, courseID)
	if err != nil {
		return Result{}, err
	}

	videos, err := svc.repo.CompletedVideos(ctx, exec, studentID, courseID)
	if err != nil {
		return Result{}, errors.Wrap(err, "looking up completed videos")
	}
	texts, err := svc.repo.CompletedTexts(ctx, exec, studentID, courseID)
	if err != nil {
		return Result{}, errors.Wrap(err, "looking up completed texts")
	}
	quizzes, err := svc.repo.AttemptedQuizzes(ctx, exec, studentID, courseID)
	if err != nil {
		return Result{}, errors.Wrap(err, "looking up attempted quizzes")
	}

	return Aggregate(sectionIDs, items, NewCompletion(videos, texts, quizzes), finished), nil
}

// Reconcile recomputes the student's section and course aggregates from the per-item rows and stores them.
// It must run inside the caller's transaction.
func (svc *Service) Reconcile(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) (Result, error) {
	enr, err := svc.enrollments.Require(ctx, exec, studentID, courseID)
	if err != nil {
		return Result{}, err
	}

	res, err := svc.compute(ctx, exec, studentID, courseID, enr.IsFinished())
	if err != nil {
		return Result{}, errors.Wrapf(err, "computing progress of student %d in course %d", studentID, courseID)
	}

	prev, err := svc.repo.GetCourseProgress(ctx, exec, studentID, courseID)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return Result{}, errors.Wrapf(err, "getting course progress of student %d in course %d", studentID, courseID)
	}

	now := nowFunc()
	for _, sr := range res.Sections {
		sp := SectionProgress{
			StudentID: studentID,
			SectionID: sr.SectionID,
			Completed: sr.Completed(),
			UpdatedAt: now,
		}
		if sp.Completed {
			sp.CompletedAt.SetValid(now)
		}
		if err = svc.repo.UpsertSectionProgress(ctx, exec, sp); err != nil {
			return Result{}, errors.Wrapf(err, "saving progress of student %d in section %d", studentID, sr.SectionID)
		}
	}

	cp := CourseProgress{
		StudentID:            studentID,
		CourseID:             courseID,
		CompletionPercentage: res.Percentage,
		CompletedSections:    res.CompletedSections(),
		CompletionStatus:     res.Status,
		LastAccessedAt:       now,
	}
	if res.Status == StatusCompleted {
		cp.CompletedAt.SetValid(now)
	}
	if err = svc.repo.UpsertCourseProgress(ctx, exec, cp); err != nil {
		return Result{}, errors.Wrapf(err, "saving progress of student %d in course %d", studentID, courseID)
	}

	if res.Status == StatusCompleted && !enr.IsFinished() {
		if _, err = svc.enrollments.MarkCompleted(ctx, exec, studentID, courseID, now); err != nil {
			return Result{}, errors.Wrapf(err, "finishing enrollment of student %d in course %d", studentID, courseID)
		}
		res.Finished = true
	}

	res.NewlyCompleted = res.Status == StatusCompleted && prev.CompletionStatus != StatusCompleted
	return res, nil
}

// Summary returns the student's progress in the course, recomputed without writing anything.
func (svc *Service) Summary(ctx context.Context, ident core.Identity, courseID int64) (Summary, error) {
	if err := ident.RequireStudent(); err != nil {
		return Summary{}, err
	}
	if _, err := svc.courses.Get(ctx, svc.db, courseID); err != nil {
		return Summary{}, err
	}
	enr, err := svc.enrollments.Require(ctx, svc.db, ident.UserID, courseID)
	if err != nil {
		return Summary{}, err
	}

	res, err := svc.compute(ctx, svc.db, ident.UserID, courseID, enr.IsFinished())
	if err != nil {
		return Summary{}, errors.Wrapf(err, "computing progress of student %d in course %d", ident.UserID, courseID)
	}
	return newSummary(courseID, res), nil
}

type completionEmailData struct {
	StudentName string
	CourseTitle string
	CourseID    int64
}

// NotifyCompletion emails the student when a reconciliation completed the course.
// It must be called after commit; failures are logged, never returned.
func (svc *Service) NotifyCompletion(ctx context.Context, studentID, courseID int64, res Result) {
	if !res.NewlyCompleted {
		return
	}
	extras := map[string]interface{}{"student_id": studentID, "course_id": courseID}

	usr, err := svc.users.GetByID(ctx, studentID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("progress.NotifyCompletion: %v", err), err, extras)
		return
	}
	c, err := svc.courses.Get(ctx, svc.db, courseID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("progress.NotifyCompletion: %v", err), err, extras)
		return
	}

	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("You completed %s!", c.Title),
		TemplateName: "course_completed",
		TemplateData: completionEmailData{
			StudentName: usr.Name,
			CourseTitle: c.Title,
			CourseID:    c.ID,
		},
	})
}
