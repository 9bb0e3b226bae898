package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
	"github.com/trezcool/manabi/core/enrollment"
)

type courseApi struct {
	svc         *course.Service
	enrollments *enrollment.Service
}

func registerCourseAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *course.Service, enrollments *enrollment.Service) {
	api := courseApi{svc: svc, enrollments: enrollments}
	staff := roleMiddleware(core.RoleTeacher, core.RoleAdmin)

	cg := g.Group("/courses", auth)
	cg.POST("", api.create, staff)
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/sections", api.addSection, staff)
	cg.POST("/:id/enroll", api.enroll, roleMiddleware(core.RoleStudent))
	cg.GET("/:id/report", api.report, staff)

	sg := g.Group("/sections/:id", auth, staff)
	sg.POST("/chapters", api.addChapter)
	sg.PUT("/quiz", api.setQuiz)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	c, err := api.svc.CreateCourse(ctx.Request().Context(), contextIdentity(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	st, err := api.svc.Structure(ctx.Request().Context(), contextIdentity(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *courseApi) addSection(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data course.NewSection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	sec, err := api.svc.AddSection(ctx.Request().Context(), contextIdentity(ctx), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sec)
}

func (api *courseApi) addChapter(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data course.NewChapter
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChapter")
	}
	ch, err := api.svc.AddChapter(ctx.Request().Context(), contextIdentity(ctx), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ch)
}

func (api *courseApi) setQuiz(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data course.NewQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	qd, err := api.svc.SetQuiz(ctx.Request().Context(), contextIdentity(ctx), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, qd)
}

// enroll enrolls the student in a free course: 201 on a new enrollment, 200 if already enrolled.
func (api *courseApi) enroll(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	enr, created, err := api.enrollments.EnrollFree(ctx.Request().Context(), contextIdentity(ctx), id)
	if err != nil {
		return err
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, enr)
}

func (api *courseApi) report(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var ord Ordering
	ord.Bind(ctx)

	rows, err := api.enrollments.Report(ctx.Request().Context(), contextIdentity(ctx), id, ord.Orderings...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}
