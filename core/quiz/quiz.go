package quiz

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
	"github.com/trezcool/manabi/core/enrollment"
	"github.com/trezcool/manabi/core/progress"
)

var nowFunc = func() time.Time { return time.Now().UTC() } // mockable

type Attempt struct {
	ID          int64     `json:"id" db:"id"`
	QuizID      int64     `json:"quiz_id" db:"quiz_id"`
	StudentID   int64     `json:"student_id" db:"student_id"`
	Score       int       `json:"score" db:"score"`
	Passed      bool      `json:"passed" db:"passed"`
	AttemptedAt time.Time `json:"attempted_at" db:"attempted_at"` // UTC
}

// Submission holds the chosen option index of every question, in question order.
type Submission struct {
	Answers []int `json:"answers" validate:"required,min=1,dive,min=0"`
}

func (s *Submission) Validate() error { return core.Validate.Struct(s) }

// SubmitResult is the graded attempt with the reconciled course progress.
type SubmitResult struct {
	Success         bool                     `json:"success"`
	Attempt         Attempt                  `json:"attempt"`
	Correct         int                      `json:"correct"`
	Total           int                      `json:"total"`
	SectionProgress *progress.SectionSummary `json:"section_progress,omitempty"`
	CourseProgress  progress.CourseSummary   `json:"course_progress"`
}

type (
	Repository interface {
		CreateAttempt(ctx context.Context, exec core.DBExecutor, a Attempt) (Attempt, error)
		ListAttempts(ctx context.Context, exec core.DBExecutor, quizID, studentID int64) ([]Attempt, error)
	}

	Service struct {
		db          core.DB
		repo        Repository
		courses     *course.Service
		enrollments *enrollment.Service
		progress    *progress.Service
	}
)

func NewService(
	db core.DB,
	repo Repository,
	courses *course.Service,
	enrollments *enrollment.Service,
	progressSvc *progress.Service,
) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		courses:     courses,
		enrollments: enrollments,
		progress:    progressSvc,
	}
}

// Grade counts the correct answers and scores them against the passing score.
func Grade(questions []course.Question, answers []int, passingScore int) (correct, score int, passed bool) {
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectOption {
			correct++
		}
	}
	score = progress.Percentage(correct, len(questions))
	return correct, score, score >= passingScore
}

// Submit grades the student's answers, records the attempt and reconciles the course progress in one transaction.
// Any attempt completes the quiz item, whatever the score.
func (svc *Service) Submit(ctx context.Context, ident core.Identity, quizID int64, sub Submission) (SubmitResult, error) {
	if err := ident.RequireStudent(); err != nil {
		return SubmitResult{}, err
	}
	if err := sub.Validate(); err != nil {
		return SubmitResult{}, err
	}

	var result SubmitResult
	var quiz course.Quiz
	var res progress.Result
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		quiz, err = svc.courses.GetQuiz(ctx, tx, quizID)
		if err != nil {
			if errors.Cause(err) == course.ErrQuizNotFound {
				return core.NewNotFoundError(course.ErrQuizNotFound.Error())
			}
			return errors.Wrapf(err, "getting quiz %d", quizID)
		}
		if _, err = svc.enrollments.Require(ctx, tx, ident.UserID, quiz.CourseID); err != nil {
			return err
		}

		questions, err := svc.courses.ListQuestions(ctx, tx, quizID)
		if err != nil {
			return errors.Wrapf(err, "listing questions of quiz %d", quizID)
		}
		if len(sub.Answers) != len(questions) {
			return core.NewValidationError(
				errors.Errorf("expected %d answers, got %d", len(questions), len(sub.Answers)),
				core.FieldError{Field: "answers", Error: "one answer per question is required"},
			)
		}

		correct, score, passed := Grade(questions, sub.Answers, quiz.PassingScore)
		attempt, err := svc.repo.CreateAttempt(ctx, tx, Attempt{
			QuizID:      quizID,
			StudentID:   ident.UserID,
			Score:       score,
			Passed:      passed,
			AttemptedAt: nowFunc(),
		})
		if err != nil {
			return errors.Wrapf(err, "recording attempt of student %d on quiz %d", ident.UserID, quizID)
		}

		res, err = svc.progress.Reconcile(ctx, tx, ident.UserID, quiz.CourseID)
		if err != nil {
			return err
		}

		resp := res.Response(quiz.SectionID)
		result = SubmitResult{
			Success:         true,
			Attempt:         attempt,
			Correct:         correct,
			Total:           len(questions),
			SectionProgress: resp.SectionProgress,
			CourseProgress:  resp.CourseProgress,
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	svc.progress.NotifyCompletion(ctx, ident.UserID, quiz.CourseID, res)
	return result, nil
}

// Attempts lists the student's attempts on the quiz, latest first.
func (svc *Service) Attempts(ctx context.Context, ident core.Identity, quizID int64) ([]Attempt, error) {
	if err := ident.RequireStudent(); err != nil {
		return nil, err
	}
	attempts, err := svc.repo.ListAttempts(ctx, svc.db, quizID, ident.UserID)
	return attempts, errors.Wrapf(err, "listing attempts of student %d on quiz %d", ident.UserID, quizID)
}
