package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
)

const msgInvalidRequest = "invalid request"

// errorResponse is the error envelope of every API error.
type errorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		resp := errorResponse{Success: false}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if isJWTMissing(origErr) {
				code = http.StatusUnauthorized
				resp.Message = fmt.Sprint(origErr.Message)
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			resp.Message = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			resp.Message = msgInvalidRequest
			resp.Errors = core.TranslateValidationErrors(origErr, core.Translator)
		case *core.ValidationError:
			code = http.StatusBadRequest
			resp.Message = origErr.Error()
			if resp.Message == "" {
				resp.Message = msgInvalidRequest
			}
			if origErr.Fields != nil {
				resp.Errors = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					resp.Errors[fErr.Field] = fErr.Error
				}
			}
		case *core.AuthError:
			code = http.StatusUnauthorized
			resp.Message = origErr.Error()
		case *core.PermissionError:
			code = http.StatusForbidden
			resp.Message = origErr.Error()
		case *core.NotFoundError:
			code = http.StatusNotFound
			resp.Message = origErr.Error()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			resp.Message = msg
			if ctx.Echo().Debug {
				resp.Message = err.Error()
			}

			args := []interface{}{errors.Wrap(err, msg), contextIdentity(ctx)}
			if extras := contextLogExtras(ctx); extras != nil {
				args = append(args, extras)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// isJWTMissing reports whether the JWT middleware found no bearer token (it may carry the extractor error).
func isJWTMissing(herr *echo.HTTPError) bool {
	return herr == middleware.ErrJWTMissing ||
		(herr.Code == middleware.ErrJWTMissing.Code && herr.Message == middleware.ErrJWTMissing.Message)
}
