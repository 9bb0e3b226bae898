package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/payment"
)

type paymentRepository struct{}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository() *paymentRepository {
	return &paymentRepository{}
}

func (repo paymentRepository) FindPayment(
	ctx context.Context,
	exec core.DBExecutor,
	userID, courseID, amountCents int64,
	paymentType string,
) (payment.Payment, error) {
	var p payment.Payment
	q := exec.Rebind(`
		SELECT id, user_id, course_id, amount_cents, currency, payment_type, reference, created_at
		FROM payments
		WHERE user_id = ? AND course_id = ? AND amount_cents = ? AND payment_type = ?`)
	if err := exec.GetContext(ctx, &p, q, userID, courseID, amountCents, paymentType); err != nil {
		if err == sql.ErrNoRows {
			return payment.Payment{}, payment.ErrNotFound
		}
		return payment.Payment{}, err
	}
	return p, nil
}

func (repo paymentRepository) CreatePayment(ctx context.Context, exec core.DBExecutor, p payment.Payment) (payment.Payment, error) {
	q := exec.Rebind(`
		INSERT INTO payments (user_id, course_id, amount_cents, currency, payment_type, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := exec.GetContext(ctx, &p.ID, q, p.UserID, p.CourseID, p.AmountCents, p.Currency, p.PaymentType, p.Reference, p.CreatedAt)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}
