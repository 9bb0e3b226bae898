package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/manabi/core"
)

// roleMiddleware rejects identities without one of the roles.
func roleMiddleware(roles ...core.Role) echo.MiddlewareFunc {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	msg := "unauthorized: " + strings.Join(names, " or ") + " access required"

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ident := contextIdentity(ctx)
			for _, r := range roles {
				if ident.Role == r && !ident.IsZero() {
					return next(ctx)
				}
			}
			return core.NewAuthError(msg)
		}
	}
}

// setLogExtras attaches identifiers to the request; they are logged with any server error.
func setLogExtras(ctx echo.Context, extras map[string]interface{}) {
	ctx.Set(contextLogExtrasKey, extras)
}

func contextLogExtras(ctx echo.Context) map[string]interface{} {
	extras, _ := ctx.Get(contextLogExtrasKey).(map[string]interface{})
	return extras
}
