package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/quiz"
)

type quizRepository struct{}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository() *quizRepository {
	return &quizRepository{}
}

func (repo quizRepository) CreateAttempt(ctx context.Context, exec core.DBExecutor, a quiz.Attempt) (quiz.Attempt, error) {
	q := exec.Rebind(`
		INSERT INTO quiz_attempts (quiz_id, student_id, score, passed, attempted_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)
	if err := exec.GetContext(ctx, &a.ID, q, a.QuizID, a.StudentID, a.Score, a.Passed, a.AttemptedAt); err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "inserting quiz attempt")
	}
	return a, nil
}

func (repo quizRepository) ListAttempts(ctx context.Context, exec core.DBExecutor, quizID, studentID int64) ([]quiz.Attempt, error) {
	attempts := make([]quiz.Attempt, 0)
	q := exec.Rebind(`
		SELECT id, quiz_id, student_id, score, passed, attempted_at
		FROM quiz_attempts
		WHERE quiz_id = ? AND student_id = ?
		ORDER BY attempted_at DESC, id DESC`)
	err := exec.SelectContext(ctx, &attempts, q, quizID, studentID)
	return attempts, err
}
