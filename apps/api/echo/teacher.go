package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core/teacher"
)

type teacherApi struct {
	svc      *teacher.Service
	validate *validator.Validate
}

func registerTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := teacherApi{svc: deps.TeacherSvc, validate: deps.Validate}

	tg := g.Group("/teachers", jwt)
	tg.GET("", api.query)
	tg.POST("", api.create, adminMiddleware())

	dg := tg.Group("/:id", objectMiddleware(api.svc.GetByID, teacher.ErrNotFound))
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

func (api *teacherApi) query(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	teachers, err := api.svc.Query(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *teacherApi) create(ctx echo.Context) error {
	var data teacher.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"teacher": t})
}

func (api *teacherApi) retrieve(ctx echo.Context) error {
	t, err := getContextObject[teacher.Teacher](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teacherApi) update(ctx echo.Context) error {
	t, err := getContextObject[teacher.Teacher](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data teacher.UpdateTeacher
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}
	nt, err := data.Validate(t, api.validate)
	if err != nil {
		return err
	}

	if t, err = api.svc.Update(ctx.Request().Context(), t.ID, nt); err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"teacher": t})
}

func (api *teacherApi) destroy(ctx echo.Context) error {
	t, err := getContextObject[teacher.Teacher](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	if err = api.svc.Delete(ctx.Request().Context(), t.ID); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}
