package paymongo

import (
	"strconv"
	"testing"
	"time"
)

const paidEventJSON = `{
  "data": {
    "id": "evt_123",
    "type": "event",
    "attributes": {
      "type": "checkout_session.payment.paid",
      "livemode": false,
      "data": {
        "id": "cs_123",
        "type": "checkout_session",
        "attributes": {
          "reference_number": "ref-abc",
          "metadata": {"user_id": "7", "course_id": "3"},
          "line_items": [{"amount": 4999, "currency": "PHP", "name": "Business Japanese", "quantity": 1}],
          "payments": [
            {"id": "pay_1", "attributes": {"amount": 4999, "currency": "PHP", "status": "paid"}},
            {"id": "pay_2", "attributes": {"amount": 4999, "currency": "PHP", "status": "failed"}}
          ]
        }
      }
    }
  }
}`

func TestVerifySignature(t *testing.T) {
	secret := "whsk_test"
	body := []byte(`{"data":{}}`)
	now := time.Unix(1700000000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := Sign(ts, body, secret)
	oldTs := strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10)

	tests := []struct {
		name     string
		header   string
		body     []byte
		livemode bool
		wantErr  error
	}{
		{name: "empty header", header: "", body: body, wantErr: ErrInvalidSignature},
		{name: "no signature", header: "t=" + ts, body: body, wantErr: ErrInvalidSignature},
		{name: "bad timestamp", header: "t=lol,te=" + sig, body: body, wantErr: ErrInvalidSignature},
		{name: "expired", header: "t=" + oldTs + ",te=" + Sign(oldTs, body, secret), body: body, wantErr: ErrExpiredSignature},
		{name: "tampered body", header: "t=" + ts + ",te=" + sig, body: []byte(`{"data":{"x":1}}`), wantErr: ErrInvalidSignature},
		{name: "wrong secret", header: "t=" + ts + ",te=" + Sign(ts, body, "other"), body: body, wantErr: ErrInvalidSignature},
		{name: "test signature", header: "t=" + ts + ",te=" + sig + ",li=", body: body},
		{name: "live signature", header: "t=" + ts + ", te=, li=" + sig, body: body, livemode: true},
		{name: "test signature on a live event", header: "t=" + ts + ",te=" + sig + ",li=", body: body, livemode: true, wantErr: ErrInvalidSignature},
		{name: "live signature on a test event", header: "t=" + ts + ",te=,li=" + sig, body: body, wantErr: ErrInvalidSignature},
		{name: "live event signed in both modes", header: "t=" + ts + ",te=" + Sign(ts, body, "other") + ",li=" + sig, body: body, livemode: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifySignature(tt.header, tt.body, secret, tt.livemode, now); err != tt.wantErr {
				t.Errorf("VerifySignature() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEventLivemode(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{body: paidEventJSON, want: false},
		{body: `{"data":{"attributes":{"livemode":true}}}`, want: true},
		{body: `{"data":{}}`, want: false},
		{body: `not json`, want: false},
	}
	for _, tt := range tests {
		if got := EventLivemode([]byte(tt.body)); got != tt.want {
			t.Errorf("EventLivemode(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestParseEvent(t *testing.T) {
	evt, err := ParseEvent([]byte(paidEventJSON))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if evt.ID != "evt_123" || evt.Type != EventCheckoutPaid || evt.Livemode {
		t.Errorf("ParseEvent() = %+v", evt)
	}
	if evt.Paid == nil {
		t.Fatal("ParseEvent().Paid = nil")
	}
	if evt.Paid.UserID != 7 || evt.Paid.CourseID != 3 {
		t.Errorf("Paid ids = (%d, %d), want (7, 3)", evt.Paid.UserID, evt.Paid.CourseID)
	}
	if evt.Paid.AmountCents != 4999 || evt.Paid.Currency != "PHP" {
		t.Errorf("Paid amount = %d %s, want 4999 PHP", evt.Paid.AmountCents, evt.Paid.Currency)
	}
	if evt.Paid.Reference != "ref-abc" {
		t.Errorf("Paid.Reference = %q, want ref-abc", evt.Paid.Reference)
	}
}

func TestParseEvent_others(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  bool
		wantPaid bool
	}{
		{name: "not json", body: "lol", wantErr: true},
		{name: "other event", body: `{"data":{"id":"evt_1","attributes":{"type":"payment.failed"}}}`},
		{
			name:    "missing metadata",
			body:    `{"data":{"id":"evt_1","attributes":{"type":"checkout_session.payment.paid","data":{"id":"cs_1","attributes":{}}}}}`,
			wantErr: true,
		},
		{
			name: "line items fallback",
			body: `{"data":{"id":"evt_1","attributes":{"type":"checkout_session.payment.paid","data":{"id":"cs_1","attributes":{
				"metadata":{"user_id":"1","course_id":"2"},"line_items":[{"amount":1500,"currency":"PHP","quantity":2}]}}}}}`,
			wantPaid: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := ParseEvent([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (evt.Paid != nil) != tt.wantPaid {
				t.Errorf("ParseEvent().Paid = %+v, wantPaid %v", evt.Paid, tt.wantPaid)
			}
			if tt.wantPaid {
				if evt.Paid.AmountCents != 3000 {
					t.Errorf("Paid.AmountCents = %d, want 3000", evt.Paid.AmountCents)
				}
				if evt.Paid.Reference != "cs_1" {
					t.Errorf("Paid.Reference = %q, want cs_1", evt.Paid.Reference)
				}
			}
		})
	}
}
