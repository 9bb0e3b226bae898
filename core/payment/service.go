package payment

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
	"github.com/trezcool/manabi/core/enrollment"
)

var (
	// errors
	ErrNotFound        = errors.New("payment not found")
	ErrCourseIsFree    = errors.New("this course is free: enroll directly")
	ErrAlreadyEnrolled = errors.New("you are already enrolled in this course")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		FindPayment(ctx context.Context, exec core.DBExecutor, userID, courseID, amountCents int64, paymentType string) (Payment, error)
		CreatePayment(ctx context.Context, exec core.DBExecutor, p Payment) (Payment, error)
	}

	// Gateway opens hosted checkout sessions.
	Gateway interface {
		CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	}

	Service struct {
		db          core.DB
		repo        Repository
		courses     *course.Service
		enrollments *enrollment.Service
		gateway     Gateway
		conf        *core.Config
	}
)

func NewService(
	db core.DB,
	repo Repository,
	courses *course.Service,
	enrollments *enrollment.Service,
	gateway Gateway,
	conf *core.Config,
) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		courses:     courses,
		enrollments: enrollments,
		gateway:     gateway,
		conf:        conf,
	}
}

// StartCheckout opens a gateway checkout session for a paid course the student is not enrolled in yet.
func (svc *Service) StartCheckout(ctx context.Context, ident core.Identity, courseID int64) (CheckoutSession, error) {
	if err := ident.RequireStudent(); err != nil {
		return CheckoutSession{}, err
	}

	c, err := svc.courses.Get(ctx, svc.db, courseID)
	if err != nil {
		return CheckoutSession{}, err
	}
	if !c.IsPublished {
		return CheckoutSession{}, core.NewNotFoundError(course.ErrNotFound.Error())
	}
	if c.IsFree() {
		return CheckoutSession{}, core.NewValidationError(ErrCourseIsFree)
	}

	if _, err = svc.enrollments.Get(ctx, svc.db, ident.UserID, courseID); err == nil {
		return CheckoutSession{}, core.NewValidationError(ErrAlreadyEnrolled)
	} else if errors.Cause(err) != enrollment.ErrNotEnrolled {
		return CheckoutSession{}, errors.Wrapf(err, "getting enrollment of student %d in course %d", ident.UserID, courseID)
	}

	ref := uuid.NewString()
	sess, err := svc.gateway.CreateCheckoutSession(ctx, CheckoutRequest{
		Reference:   ref,
		Description: c.Description,
		ItemName:    c.Title,
		AmountCents: c.PriceCents,
		Currency:    DefaultCurrency,
		SuccessURL:  svc.conf.PayMongo.SuccessURL,
		CancelURL:   svc.conf.PayMongo.CancelURL,
		Metadata: map[string]string{
			"user_id":   strconv.FormatInt(ident.UserID, 10),
			"course_id": strconv.FormatInt(courseID, 10),
		},
	})
	if err != nil {
		return CheckoutSession{}, errors.Wrapf(err, "creating checkout session of student %d for course %d", ident.UserID, courseID)
	}
	sess.Reference = ref
	return sess, nil
}

// RecordPaid records a successful payment and enrolls the student, in one transaction.
// Payments are deduplicated on (user, course, amount, PAID): a repeated delivery is a no-op.
func (svc *Service) RecordPaid(ctx context.Context, pc PaidCheckout) (bool, error) {
	if err := pc.Validate(); err != nil {
		return false, err
	}

	var recorded bool
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.courses.Get(ctx, tx, pc.CourseID); err != nil {
			return err
		}

		_, err := svc.repo.FindPayment(ctx, tx, pc.UserID, pc.CourseID, pc.AmountCents, TypePaid)
		switch {
		case err == nil: // already recorded
		case errors.Cause(err) == ErrNotFound:
			_, err = svc.repo.CreatePayment(ctx, tx, Payment{
				UserID:      pc.UserID,
				CourseID:    pc.CourseID,
				AmountCents: pc.AmountCents,
				Currency:    pc.Currency,
				PaymentType: TypePaid,
				Reference:   pc.Reference,
				CreatedAt:   nowFunc(),
			})
			if err != nil {
				return errors.Wrapf(err, "recording payment of user %d for course %d", pc.UserID, pc.CourseID)
			}
			recorded = true
		default:
			return errors.Wrapf(err, "finding payment of user %d for course %d", pc.UserID, pc.CourseID)
		}

		_, err = svc.enrollments.Enroll(ctx, tx, pc.UserID, pc.CourseID)
		return err
	})
	if err != nil {
		return false, err
	}
	return recorded, nil
}

// Ledger records FREE payments for free enrollments.
type Ledger struct {
	repo Repository
}

var _ enrollment.Ledger = (*Ledger)(nil)

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

func (l *Ledger) RecordFreeEnrollment(ctx context.Context, exec core.DBExecutor, studentID, courseID int64) error {
	_, err := l.repo.FindPayment(ctx, exec, studentID, courseID, 0, TypeFree)
	if err == nil {
		return nil
	}
	if errors.Cause(err) != ErrNotFound {
		return err
	}
	_, err = l.repo.CreatePayment(ctx, exec, Payment{
		UserID:      studentID,
		CourseID:    courseID,
		Currency:    DefaultCurrency,
		PaymentType: TypeFree,
		CreatedAt:   nowFunc(),
	})
	return err
}
