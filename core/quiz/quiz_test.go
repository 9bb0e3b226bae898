package quiz_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
	"github.com/trezcool/manabi/core/quiz"
	testutil "github.com/trezcool/manabi/tests"
)

func TestGrade(t *testing.T) {
	questions := []course.Question{{CorrectOption: 0}, {CorrectOption: 2}, {CorrectOption: 1}}

	tests := []struct {
		name        string
		answers     []int
		passing     int
		wantCorrect int
		wantScore   int
		wantPassed  bool
	}{
		{name: "all wrong", answers: []int{1, 1, 0}, passing: 60, wantCorrect: 0, wantScore: 0},
		{name: "one right", answers: []int{0, 1, 0}, passing: 60, wantCorrect: 1, wantScore: 33},
		{name: "two right", answers: []int{0, 2, 0}, passing: 60, wantCorrect: 2, wantScore: 67, wantPassed: true},
		{name: "all right", answers: []int{0, 2, 1}, passing: 100, wantCorrect: 3, wantScore: 100, wantPassed: true},
		{name: "zero passing score", answers: []int{1, 1, 0}, passing: 0, wantPassed: true},
		{name: "short answers", answers: []int{0}, passing: 50, wantCorrect: 1, wantScore: 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, score, passed := quiz.Grade(questions, tt.answers, tt.passing)
			if correct != tt.wantCorrect || score != tt.wantScore || passed != tt.wantPassed {
				t.Errorf("Grade() = (%d, %d, %v), want (%d, %d, %v)",
					correct, score, passed, tt.wantCorrect, tt.wantScore, tt.wantPassed)
			}
		})
	}
}

func TestService_Submit(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env, "Sensei", "sensei@test.jp", core.RoleTeacher)
	student := testutil.CreateUser(t, env, "Hana", "hana@test.jp", core.RoleStudent)
	outsider := testutil.CreateUser(t, env, "Ken", "ken@test.jp", core.RoleStudent)
	c := testutil.CreateCourse(t, env, teacher.ID, "Nihongo 1", 0, true)
	sec := testutil.CreateSection(t, env, c.ID, "Hiragana", 0)
	testutil.CreateChapter(t, env, sec.ID, course.ContentText, 0)
	qz := testutil.CreateQuiz(t, env, sec.ID, 50, 2)
	testutil.Enroll(t, env, student.ID, c.ID)

	tests := []struct {
		name    string
		ident   core.Identity
		quizID  int64
		answers []int
		wantErr interface{}
	}{
		{name: "teacher", ident: teacher.Identity(), quizID: qz.ID, answers: []int{0, 0}, wantErr: &core.AuthError{}},
		{name: "no answers", ident: student.Identity(), quizID: qz.ID, wantErr: validator.ValidationErrors{}},
		{name: "negative answer", ident: student.Identity(), quizID: qz.ID, answers: []int{0, -1}, wantErr: validator.ValidationErrors{}},
		{name: "unknown quiz", ident: student.Identity(), quizID: 9999, answers: []int{0, 0}, wantErr: &core.NotFoundError{}},
		{name: "not enrolled", ident: outsider.Identity(), quizID: qz.ID, answers: []int{0, 0}, wantErr: &core.ValidationError{}},
		{name: "answer count mismatch", ident: student.Identity(), quizID: qz.ID, answers: []int{0}, wantErr: &core.ValidationError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Quizzes.Submit(ctx, tt.ident, tt.quizID, quiz.Submission{Answers: tt.answers})
			require.Error(t, err)
			assert.IsType(t, tt.wantErr, errors.Cause(err))
		})
	}

	res, err := env.Quizzes.Submit(ctx, student.Identity(), qz.ID, quiz.Submission{Answers: []int{0, 1}})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 50, res.Attempt.Score)
	assert.True(t, res.Attempt.Passed)
	assert.Equal(t, 50, res.CourseProgress.Percentage)
	require.NotNil(t, res.SectionProgress)
	assert.Equal(t, 0, res.SectionProgress.CompletedChapters)

	// retakes are recorded but count once
	res, err = env.Quizzes.Submit(ctx, student.Identity(), qz.ID, quiz.Submission{Answers: []int{1, 1}})
	require.NoError(t, err)
	assert.False(t, res.Attempt.Passed)
	assert.Equal(t, 50, res.CourseProgress.Percentage)

	attempts, err := env.Quizzes.Attempts(ctx, student.Identity(), qz.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)

	_, err = env.Quizzes.Attempts(ctx, teacher.Identity(), qz.ID)
	assert.IsType(t, &core.AuthError{}, errors.Cause(err))
}
