package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/enrollment"
	"github.com/trezcool/manabi/core/payment"
	testutil "github.com/trezcool/manabi/tests"
)

func Test_enrollmentRepository(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	repo := env.EnrollmentRepo

	teacher := testutil.CreateUser(t, env, "Sato", "sato@manabi.test", core.RoleTeacher)
	student := testutil.CreateUser(t, env, "Aiko", "aiko@manabi.test", core.RoleStudent)
	c := testutil.CreateCourse(t, env, teacher.ID, "Business Japanese", 0, true)

	_, err := repo.GetEnrollment(ctx, env.DB, student.ID, c.ID)
	assert.Equal(t, enrollment.ErrNotEnrolled, err)

	testutil.Enroll(t, env, student.ID, c.ID)
	_, err = repo.CreateEnrollment(ctx, env.DB, enrollment.Enrollment{StudentID: student.ID, CourseID: c.ID, EnrolledAt: time.Now().UTC()})
	assert.Error(t, err, "the unique index rejects a second enrollment")

	at := time.Now().UTC().Truncate(time.Second)
	marked, err := repo.MarkCompleted(ctx, env.DB, student.ID, c.ID, at)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = repo.MarkCompleted(ctx, env.DB, student.ID, c.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, marked, "completed_at is only set once")

	enr, err := repo.GetEnrollment(ctx, env.DB, student.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, enr.IsFinished())
	assert.True(t, at.Equal(enr.CompletedAt.Time))

	ids, err := repo.ListStudentIDs(ctx, env.DB, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{student.ID}, ids)
}

func Test_paymentRepository(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	repo := env.PaymentRepo

	teacher := testutil.CreateUser(t, env, "Sato", "sato@manabi.test", core.RoleTeacher)
	student := testutil.CreateUser(t, env, "Aiko", "aiko@manabi.test", core.RoleStudent)
	c := testutil.CreateCourse(t, env, teacher.ID, "Business Japanese", 4999, true)

	_, err := repo.FindPayment(ctx, env.DB, student.ID, c.ID, 4999, payment.TypePaid)
	assert.Equal(t, payment.ErrNotFound, err)

	p := payment.Payment{
		UserID:      student.ID,
		CourseID:    c.ID,
		AmountCents: 4999,
		Currency:    payment.DefaultCurrency,
		PaymentType: payment.TypePaid,
		Reference:   "ref-1",
		CreatedAt:   time.Now().UTC(),
	}
	created, err := repo.CreatePayment(ctx, env.DB, p)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	found, err := repo.FindPayment(ctx, env.DB, student.ID, c.ID, 4999, payment.TypePaid)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "ref-1", found.Reference)

	_, err = repo.CreatePayment(ctx, env.DB, p)
	assert.Error(t, err, "the unique index rejects a duplicate payment")
}
