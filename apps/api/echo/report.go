package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core/report"
)

type reportApi struct {
	svc      *report.Service
	validate *validator.Validate
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := reportApi{svc: deps.ReportSvc, validate: deps.Validate}

	g.GET("/dashboard", api.dashboard, jwt)

	rg := g.Group("/reports", jwt, adminMiddleware())
	rg.GET("/teacher-hours", api.teacherHours)
	rg.GET("/teacher-hours.csv", api.teacherHoursCSV)
	rg.GET("/teacher-hours.xlsx", api.teacherHoursXLSX)
	rg.POST("/teacher-hours/email", api.emailTeacherHours)
}

func (api *reportApi) build(ctx echo.Context) (report.TeacherHours, error) {
	filter := new(report.Filter)
	if err := ctx.Bind(filter); err != nil {
		return report.TeacherHours{}, errors.Wrap(err, "binding to report.Filter")
	}
	if err := api.validate.Struct(filter); err != nil {
		return report.TeacherHours{}, err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	rep, err := api.svc.TeacherHours(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return rep, errors.Wrap(err, "building teacher hours report")
	}
	return rep, nil
}

func (api *reportApi) teacherHours(ctx echo.Context) error {
	rep, err := api.build(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) attachment(ctx echo.Context, contentType, ext string) *echo.Response {
	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, contentType)
	resp.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", api.svc.Filename(ext)))
	resp.WriteHeader(http.StatusOK)
	return resp
}

func (api *reportApi) teacherHoursCSV(ctx echo.Context) error {
	rep, err := api.build(ctx)
	if err != nil {
		return err
	}
	return report.WriteCSV(api.attachment(ctx, report.CSVContentType, "csv"), rep.Rows)
}

func (api *reportApi) teacherHoursXLSX(ctx echo.Context) error {
	rep, err := api.build(ctx)
	if err != nil {
		return err
	}
	return report.WriteXLSX(api.attachment(ctx, report.XLSXContentType, "xlsx"), rep)
}

func (api *reportApi) emailTeacherHours(ctx echo.Context) error {
	var data report.EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	data.Ordering = ordering.Orderings

	if err := api.svc.EmailTeacherHours(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "emailing teacher hours report")
	}
	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: true})
}

func (api *reportApi) dashboard(ctx echo.Context) error {
	dash, err := api.svc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
