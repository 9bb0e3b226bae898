package echoapi

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/payment"
	"github.com/trezcool/manabi/services/paymongo"
)

const maxWebhookBodySize = 1 << 20

var nowFunc = time.Now

type (
	paymentApi struct {
		svc  *payment.Service
		conf *core.Config
	}

	WebhookResponse struct {
		Success  bool `json:"success"`
		Ignored  bool `json:"ignored,omitempty"`
		Recorded bool `json:"recorded"`
	}
)

func registerPaymentAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *payment.Service, conf *core.Config) {
	api := paymentApi{svc: svc, conf: conf}

	g.POST("/courses/:id/checkout", api.checkout, auth, roleMiddleware(core.RoleStudent))
	g.POST("/payments/paymongo/webhook", api.webhook)
}

func (api *paymentApi) checkout(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	sess, err := api.svc.StartCheckout(ctx.Request().Context(), contextIdentity(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sess)
}

// webhook records paid checkout sessions. Other event types are acknowledged and ignored.
func (api *paymentApi) webhook(ctx echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookBodySize))
	if err != nil {
		return errors.Wrap(err, "reading webhook body")
	}

	header := ctx.Request().Header.Get(paymongo.SignatureHeader)
	livemode := paymongo.EventLivemode(body)
	if err = paymongo.VerifySignature(header, body, api.conf.PayMongo.WebhookSecret, livemode, nowFunc()); err != nil {
		return core.NewAuthError(err.Error())
	}

	evt, err := paymongo.ParseEvent(body)
	if err != nil {
		return core.NewValidationError(err)
	}
	if evt.Paid == nil {
		return ctx.JSON(http.StatusOK, WebhookResponse{Success: true, Ignored: true})
	}

	setLogExtras(ctx, map[string]interface{}{
		"event_id":  evt.ID,
		"user_id":   evt.Paid.UserID,
		"course_id": evt.Paid.CourseID,
		"reference": evt.Paid.Reference,
	})

	recorded, err := api.svc.RecordPaid(ctx.Request().Context(), *evt.Paid)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, WebhookResponse{Success: true, Recorded: recorded})
}
