package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/backup"
)

type backupApi struct {
	svc *backup.Service
}

func registerBackupAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := backupApi{svc: deps.BackupSvc}

	bg := g.Group("/backup", jwt, adminMiddleware())
	bg.GET("", api.export)
	bg.POST("", api.restore)
}

func (api *backupApi) export(ctx echo.Context) error {
	snap, err := api.svc.Export(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "exporting backup")
	}
	filename := "scheduleme_backup_" + snap.ExportedAt.Format("20060102T150405") + ".json"
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+filename)
	return ctx.JSON(http.StatusOK, snap)
}

func (api *backupApi) restore(ctx echo.Context) error {
	var snap backup.Snapshot
	if err := ctx.Bind(&snap); err != nil {
		return core.NewFieldValidationError("version", "invalid backup file")
	}
	summary, err := api.svc.Import(ctx.Request().Context(), snap)
	if err != nil {
		return errors.Wrap(err, "importing backup")
	}
	return ctx.JSON(http.StatusOK, summary)
}
