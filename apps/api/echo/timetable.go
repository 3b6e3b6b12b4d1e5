package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core/timetable"
)

type timetableApi struct {
	svc      *timetable.Service
	validate *validator.Validate
}

func registerTimetableAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := timetableApi{svc: deps.TimetableSvc, validate: deps.Validate}

	tg := g.Group("/timetable", jwt)
	tg.GET("/slots", api.slots)
	tg.GET("/week", api.week)
	tg.GET("/day", api.day)
}

func (api *timetableApi) bindFilter(ctx echo.Context) (timetable.Filter, error) {
	var f timetable.Filter
	if err := ctx.Bind(&f); err != nil {
		return f, errors.Wrap(err, "binding to timetable.Filter")
	}
	f.Clean()
	if err := api.validate.Struct(f); err != nil {
		return f, err
	}
	return f, nil
}

func (api *timetableApi) slots(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"slots": api.svc.Slots()})
}

func (api *timetableApi) week(ctx echo.Context) error {
	f, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	week, err := api.svc.Week(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "building week timetable")
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *timetableApi) day(ctx echo.Context) error {
	f, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	day, err := api.svc.Day(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "building day timetable")
	}
	return ctx.JSON(http.StatusOK, day)
}
