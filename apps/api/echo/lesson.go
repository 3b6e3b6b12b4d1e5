package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/lesson"
	"github.com/scheduleme/backend/core/report"
)

var calendarOrdering = []core.DBOrdering{{Field: "date", Ascending: true}, {Field: "startTime", Ascending: true}}

type lessonApi struct {
	svc        *lesson.Service
	reportSvc  *report.Service
	conf       *core.Config
	validate   *validator.Validate
	translator ut.Translator
}

func registerLessonAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := lessonApi{
		svc:        deps.LessonSvc,
		reportSvc:  deps.ReportSvc,
		conf:       deps.Conf,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	lg := g.Group("/lessons", jwt)
	lg.GET("", api.query)
	lg.POST("", api.create, adminMiddleware())
	lg.POST("/copy-week", api.copyWeek, adminMiddleware())
	lg.POST("/import", api.importXLSX, adminMiddleware())
	lg.GET("/export.ics", api.exportICS)

	dg := lg.Group("/:id", objectMiddleware(api.svc.GetByID, lesson.ErrNotFound))
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

func (api *lessonApi) query(ctx echo.Context) error {
	filter := new(lesson.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to lesson.QueryFilter")
	}
	filter.Clean()
	if err := api.validate.Struct(filter); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	lessons, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) create(ctx echo.Context) error {
	var data lesson.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"lesson": l})
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	l, err := getContextObject[lesson.Lesson](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) update(ctx echo.Context) error {
	l, err := getContextObject[lesson.Lesson](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data lesson.UpdateLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	nl, err := data.Validate(l, api.validate)
	if err != nil {
		return err
	}

	if l, err = api.svc.Update(ctx.Request().Context(), l.ID, nl); err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"lesson": l})
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	l, err := getContextObject[lesson.Lesson](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	if err = api.svc.Delete(ctx.Request().Context(), l.ID); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lessonApi) copyWeek(ctx echo.Context) error {
	var data lesson.CopyWeekRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CopyWeekRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	res, err := api.svc.CopyWeek(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "copying week")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *lessonApi) importXLSX(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldValidationError("file", "an xlsx file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	rows, err := lesson.ParseXLSX(f)
	if err != nil {
		return errors.Wrap(err, "parsing xlsx")
	}
	describe := func(err error) (map[string]string, bool) {
		return fieldErrors(err, api.translator)
	}
	res, err := api.svc.Import(ctx.Request().Context(), rows, api.validate, describe)
	if err != nil {
		return errors.Wrap(err, "importing lessons")
	}
	return ctx.JSON(http.StatusOK, res)
}

// exportICS serves the lessons matching the report filter as an iCalendar file.
func (api *lessonApi) exportICS(ctx echo.Context) error {
	filter := new(report.Filter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to report.Filter")
	}
	if err := api.validate.Struct(filter); err != nil {
		return err
	}

	rep, err := api.reportSvc.TeacherHours(ctx.Request().Context(), *filter, calendarOrdering)
	if err != nil {
		return errors.Wrap(err, "querying calendar lessons")
	}

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, report.ICSContentType)
	resp.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", "lessons.ics"))
	resp.WriteHeader(http.StatusOK)
	return report.WriteICS(resp, api.conf.AppName+" lessons", rep.Rows, api.reportSvc.NowFunc())
}
