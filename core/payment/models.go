package payment

import (
	"time"

	"github.com/trezcool/manabi/core"
)

// payment types
const (
	TypePaid = "PAID"
	TypeFree = "FREE"
)

const DefaultCurrency = "PHP"

type Payment struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	CourseID    int64     `json:"course_id" db:"course_id"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	Currency    string    `json:"currency" db:"currency"`
	PaymentType string    `json:"payment_type" db:"payment_type"`
	Reference   string    `json:"reference" db:"reference"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// PaidCheckout is a successful gateway payment for a course.
type PaidCheckout struct {
	UserID      int64  `validate:"required,min=1"`
	CourseID    int64  `validate:"required,min=1"`
	AmountCents int64  `validate:"required,min=1"`
	Currency    string `validate:"omitempty,len=3"`
	Reference   string
}

func (pc *PaidCheckout) Validate() error {
	pc.Currency = core.CleanString(pc.Currency)
	if pc.Currency == "" {
		pc.Currency = DefaultCurrency
	}
	return core.Validate.Struct(pc)
}

// CheckoutRequest is what the gateway needs to open a hosted checkout page.
type CheckoutRequest struct {
	Reference   string
	Description string
	ItemName    string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

type CheckoutSession struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
	Reference   string `json:"reference"`
}
