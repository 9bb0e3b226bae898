// Package paymongo talks to the PayMongo API: hosted checkout sessions and their webhooks.
package paymongo

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/payment"
)

const checkoutSessionsPath = "/v1/checkout_sessions"

var paymentMethodTypes = []string{"card", "gcash", "paymaya", "grab_pay"}

type Client struct {
	http *resty.Client
}

var _ payment.Gateway = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	http := resty.New().
		SetBaseURL(conf.PayMongo.BaseURL).
		SetBasicAuth(conf.PayMongo.SecretKey, "").
		SetHeader("Accept", "application/json").
		SetTimeout(15 * time.Second)
	return &Client{http: http}
}

type (
	lineItem struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	}

	checkoutAttributes struct {
		LineItems          []lineItem        `json:"line_items"`
		PaymentMethodTypes []string          `json:"payment_method_types"`
		SuccessURL         string            `json:"success_url"`
		CancelURL          string            `json:"cancel_url"`
		ReferenceNumber    string            `json:"reference_number"`
		Description        string            `json:"description,omitempty"`
		Metadata           map[string]string `json:"metadata,omitempty"`
		ShowLineItems      bool              `json:"show_line_items"`
	}

	checkoutRequest struct {
		Data struct {
			Attributes checkoutAttributes `json:"attributes"`
		} `json:"data"`
	}

	checkoutResponse struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				CheckoutURL string `json:"checkout_url"`
			} `json:"attributes"`
		} `json:"data"`
	}

	errorResponse struct {
		Errors []struct {
			Code   string `json:"code"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
)

func (er errorResponse) String() string {
	details := make([]string, 0, len(er.Errors))
	for _, e := range er.Errors {
		details = append(details, e.Code+": "+e.Detail)
	}
	return strings.Join(details, "; ")
}

// CreateCheckoutSession opens a hosted checkout page for a single line item.
func (c *Client) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error) {
	var body checkoutRequest
	body.Data.Attributes = checkoutAttributes{
		LineItems: []lineItem{{
			Amount:   req.AmountCents,
			Currency: req.Currency,
			Name:     req.ItemName,
			Quantity: 1,
		}},
		PaymentMethodTypes: paymentMethodTypes,
		SuccessURL:         req.SuccessURL,
		CancelURL:          req.CancelURL,
		ReferenceNumber:    req.Reference,
		Description:        req.Description,
		Metadata:           req.Metadata,
		ShowLineItems:      true,
	}

	var out checkoutResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(checkoutSessionsPath)
	if err != nil {
		return payment.CheckoutSession{}, errors.Wrap(err, "paymongo: creating checkout session")
	}
	if resp.IsError() {
		return payment.CheckoutSession{}, errors.Errorf("paymongo: creating checkout session: %s: %s", resp.Status(), apiErr)
	}

	return payment.CheckoutSession{
		ID:          out.Data.ID,
		CheckoutURL: out.Data.Attributes.CheckoutURL,
		Reference:   req.Reference,
	}, nil
}
