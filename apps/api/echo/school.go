package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core/school"
)

type schoolApi struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{svc: deps.SchoolSvc, validate: deps.Validate}

	sg := g.Group("/schools", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())

	dg := sg.Group("/:id", objectMiddleware(api.svc.GetByID, school.ErrNotFound))
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

func (api *schoolApi) query(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	schools, err := api.svc.Query(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sch, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"school": sch})
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	sch, err := getContextObject[school.School](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) update(ctx echo.Context) error {
	sch, err := getContextObject[school.School](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data school.UpdateSchool
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchool")
	}
	ns, err := data.Validate(sch, api.validate)
	if err != nil {
		return err
	}

	if sch, err = api.svc.Update(ctx.Request().Context(), sch.ID, ns); err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"school": sch})
}

func (api *schoolApi) destroy(ctx echo.Context) error {
	sch, err := getContextObject[school.School](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	if err = api.svc.Delete(ctx.Request().Context(), sch.ID); err != nil {
		return errors.Wrap(err, "deleting school")
	}
	return ctx.NoContent(http.StatusNoContent)
}
