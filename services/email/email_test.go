package emailsvc

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/mail"
	"testing"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/manabi/core"
	logsvc "github.com/trezcool/manabi/services/logger"
)

func newTestDeps() (*core.Config, core.Logger) {
	conf := &core.Config{
		Env:             "TEST",
		TestMode:        true,
		AppName:         "Manabi",
		FrontendBaseURL: "https://manabi.test",
		SendgridAPIKey:  "SG.test",
	}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	core.ParseEmailTemplates(conf, logger)
	return conf, logger
}

func completionMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Sato Yui", Address: "yui@test.jp"}},
		Bcc:          []mail.Address{{Address: "audit@test.jp"}},
		Subject:      "You completed Hiragana!",
		TemplateName: "course_completed",
		TemplateData: map[string]interface{}{
			"StudentName": "Sato Yui",
			"CourseTitle": "Hiragana",
			"CourseID":    3,
		},
	}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf, logger := newTestDeps()
	svc := NewConsoleServiceMock(conf, logger)
	ResetSentMessages()
	t.Cleanup(ResetSentMessages)

	svc.SendMessages(
		completionMessage(),
		&core.EmailMessage{Subject: "no recipients", BodyStr: "hello"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@test.jp"}}, TemplateName: "missing"},
	)

	sent := GetSentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Contains(t, msg.TextContent, "Hi Sato Yui,")
	assert.Contains(t, msg.TextContent, `You have completed "Hiragana"`)
	assert.Contains(t, msg.TextContent, "https://manabi.test/courses/3")
	assert.Contains(t, msg.HTMLContent, "<strong>Hiragana</strong>")
}

func TestSendgridService_sendMessage(t *testing.T) {
	conf, logger := newTestDeps()
	svc := NewSendgridService(conf, logger).(*sendgridService)

	var gotReq rest.Request
	orig := sendgridAPIFunc
	t.Cleanup(func() { sendgridAPIFunc = orig })

	t.Run("success", func(t *testing.T) {
		sendgridAPIFunc = func(req rest.Request) (*rest.Response, error) {
			gotReq = req
			return &rest.Response{StatusCode: http.StatusAccepted}, nil
		}

		require.NoError(t, svc.sendMessage(completionMessage()))
		assert.Equal(t, rest.Method(http.MethodPost), gotReq.Method)
		assert.Equal(t, "https://api.sendgrid.com/v3/mail/send", gotReq.BaseURL)
		assert.Equal(t, "Bearer SG.test", gotReq.Headers["Authorization"])

		var body struct {
			From struct {
				Email string `json:"email"`
			} `json:"from"`
			Personalizations []struct {
				Subject string `json:"subject"`
				To      []struct {
					Email string `json:"email"`
				} `json:"to"`
				Bcc []struct {
					Email string `json:"email"`
				} `json:"bcc"`
			} `json:"personalizations"`
			Content []struct {
				Type string `json:"type"`
			} `json:"content"`
		}
		require.NoError(t, json.Unmarshal(gotReq.Body, &body))
		assert.Equal(t, "noreply@localhost", body.From.Email)
		require.Len(t, body.Personalizations, 1)
		p := body.Personalizations[0]
		assert.Equal(t, "[Manabi] You completed Hiragana!", p.Subject)
		require.Len(t, p.To, 1)
		assert.Equal(t, "yui@test.jp", p.To[0].Email)
		require.Len(t, p.Bcc, 1)
		assert.Equal(t, "audit@test.jp", p.Bcc[0].Email)
		require.Len(t, body.Content, 2)
		assert.Equal(t, "text/plain", body.Content[0].Type)
		assert.Equal(t, "text/html", body.Content[1].Type)
	})

	t.Run("rejected", func(t *testing.T) {
		sendgridAPIFunc = func(rest.Request) (*rest.Response, error) {
			return &rest.Response{StatusCode: http.StatusUnauthorized, Body: `{"errors":[]}`}, nil
		}
		err := svc.sendMessage(completionMessage())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sendgrid responded 401")
	})

	t.Run("transport error", func(t *testing.T) {
		sendgridAPIFunc = func(rest.Request) (*rest.Response, error) {
			return nil, errors.New("connection refused")
		}
		err := svc.sendMessage(completionMessage())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sending email: connection refused")
	})

	t.Run("nothing to send", func(t *testing.T) {
		called := false
		sendgridAPIFunc = func(rest.Request) (*rest.Response, error) {
			called = true
			return &rest.Response{StatusCode: http.StatusAccepted}, nil
		}
		require.NoError(t, svc.sendMessage(&core.EmailMessage{Subject: "empty"}))
		assert.False(t, called)
	})
}
