package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/quiz"
)

type quizApi struct {
	svc *quiz.Service
}

func registerQuizAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *quiz.Service) {
	api := quizApi{svc: svc}

	qg := g.Group("/quizzes/:id", auth, roleMiddleware(core.RoleStudent))
	qg.POST("/attempts", api.submit)
	qg.GET("/attempts", api.attempts)
}

func (api *quizApi) submit(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data quiz.Submission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to quiz.Submission")
	}

	ident := contextIdentity(ctx)
	setLogExtras(ctx, map[string]interface{}{"student_id": ident.UserID, "quiz_id": id})

	res, err := api.svc.Submit(ctx.Request().Context(), ident, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *quizApi) attempts(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	attempts, err := api.svc.Attempts(ctx.Request().Context(), contextIdentity(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, attempts)
}
