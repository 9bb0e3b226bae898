package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/progress"
)

type progressApi struct {
	svc *progress.Service
}

func registerProgressAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *progress.Service) {
	api := progressApi{svc: svc}

	g.POST("/progress", api.update, auth, roleMiddleware(core.RoleStudent))
	g.GET("/courses/:id/progress", api.summary, auth, roleMiddleware(core.RoleStudent))
}

// update records a chapter ping, or finishes the course when action is "complete_course".
func (api *progressApi) update(ctx echo.Context) error {
	var data progress.Update
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to progress.Update")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ident := contextIdentity(ctx)
	setLogExtras(ctx, map[string]interface{}{
		"student_id": ident.UserID,
		"course_id":  data.CourseID,
		"chapter_id": data.ChapterID,
		"action":     data.Action,
	})

	var (
		resp progress.Response
		err  error
	)
	if data.IsCompleteCourse() {
		if data.CourseID <= 0 {
			return core.NewValidationError(
				errors.New("course_id is required"),
				core.FieldError{Field: "course_id", Error: "this field is required"},
			)
		}
		resp, err = api.svc.CompleteCourse(ctx.Request().Context(), ident, data.CourseID)
	} else {
		resp, err = api.svc.UpdateChapter(ctx.Request().Context(), ident, data.ChapterUpdate)
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *progressApi) summary(ctx echo.Context) error {
	courseID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	sum, err := api.svc.Summary(ctx.Request().Context(), contextIdentity(ctx), courseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sum)
}
