package paymongo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core/payment"
)

const (
	SignatureHeader = "Paymongo-Signature"

	EventCheckoutPaid = "checkout_session.payment.paid"

	signatureTolerance = 5 * time.Minute
)

var (
	ErrInvalidSignature = errors.New("paymongo: invalid webhook signature")
	ErrExpiredSignature = errors.New("paymongo: webhook signature timestamp out of tolerance")
)

// VerifySignature checks a `t=<unix>,te=<hex>,li=<hex>` signature header: the HMAC-SHA256 of "<t>.<body>"
// keyed with the webhook secret must match the live (li) signature for live events, the test (te) one otherwise.
func VerifySignature(header string, body []byte, secret string, livemode bool, now time.Time) error {
	var ts, te, li string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "te":
			te = kv[1]
		case "li":
			li = kv[1]
		}
	}
	sig := te
	if livemode {
		sig = li
	}
	if ts == "" || sig == "" {
		return ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if d := now.Sub(time.Unix(unix, 0)); d > signatureTolerance || d < -signatureTolerance {
		return ErrExpiredSignature
	}

	if !hmac.Equal([]byte(sig), []byte(Sign(ts, body, secret))) {
		return ErrInvalidSignature
	}
	return nil
}

// EventLivemode reads the livemode flag of an event body, false when it cannot be decoded.
// The flag picks the signature to check, so it is read before the body is trusted.
func EventLivemode(body []byte) bool {
	var payload struct {
		Data struct {
			Attributes struct {
				Livemode bool `json:"livemode"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	return payload.Data.Attributes.Livemode
}

// Sign returns the hex HMAC-SHA256 of "<ts>.<body>".
func Sign(ts string, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type (
	paymentResource struct {
		ID         string `json:"id"`
		Attributes struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Status   string `json:"status"`
		} `json:"attributes"`
	}

	checkoutResource struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			ReferenceNumber string            `json:"reference_number"`
			Metadata        map[string]string `json:"metadata"`
			LineItems       []lineItem        `json:"line_items"`
			Payments        []paymentResource `json:"payments"`
		} `json:"attributes"`
	}

	eventPayload struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Type     string           `json:"type"`
				Livemode bool             `json:"livemode"`
				Data     checkoutResource `json:"data"`
			} `json:"attributes"`
		} `json:"data"`
	}
)

// Event is a parsed webhook event. Paid is set for paid checkout sessions.
type Event struct {
	ID       string
	Type     string
	Livemode bool
	Paid     *payment.PaidCheckout
}

// ParseEvent decodes a webhook body. Paid checkout sessions must carry user_id and course_id metadata.
func ParseEvent(body []byte) (Event, error) {
	var payload eventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Event{}, errors.Wrap(err, "paymongo: decoding event")
	}

	evt := Event{
		ID:       payload.Data.ID,
		Type:     payload.Data.Attributes.Type,
		Livemode: payload.Data.Attributes.Livemode,
	}
	if evt.Type != EventCheckoutPaid {
		return evt, nil
	}

	sess := payload.Data.Attributes.Data
	userID, err := strconv.ParseInt(sess.Attributes.Metadata["user_id"], 10, 64)
	if err != nil {
		return Event{}, errors.Wrap(err, "paymongo: invalid user_id metadata")
	}
	courseID, err := strconv.ParseInt(sess.Attributes.Metadata["course_id"], 10, 64)
	if err != nil {
		return Event{}, errors.Wrap(err, "paymongo: invalid course_id metadata")
	}

	var amount int64
	var currency string
	for _, p := range sess.Attributes.Payments {
		if p.Attributes.Status == "paid" {
			amount += p.Attributes.Amount
			currency = p.Attributes.Currency
		}
	}
	if amount == 0 {
		for _, li := range sess.Attributes.LineItems {
			amount += li.Amount * int64(li.Quantity)
			currency = li.Currency
		}
	}

	ref := sess.Attributes.ReferenceNumber
	if ref == "" {
		ref = sess.ID
	}
	evt.Paid = &payment.PaidCheckout{
		UserID:      userID,
		CourseID:    courseID,
		AmountCents: amount,
		Currency:    currency,
		Reference:   ref,
	}
	return evt, nil
}
