package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/notification"
)

type notificationApi struct {
	svc *notification.Service
}

func registerNotificationAPI(g *echo.Group, svc *notification.Service) {
	api := notificationApi{svc: svc}

	ng := g.Group("/notifications")
	ng.GET("/settings", api.retrieveSettings)
	ng.PUT("/settings", api.updateSettings)
	ng.POST("/fee-reminders", api.sendFeeReminders)
}

func (api *notificationApi) retrieveSettings(ctx echo.Context) error {
	settings, err := api.svc.GetSettings(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting notification settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *notificationApi) updateSettings(ctx echo.Context) error {
	var data notification.UpdateSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSettings")
	}
	settings, err := api.svc.UpdateSettings(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *notificationApi) sendFeeReminders(ctx echo.Context) error {
	report, err := api.svc.SendFeeReminders(ctx.Request().Context())
	if err != nil {
		if errors.Cause(err) == notification.ErrRemindersDisabled {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return errors.Wrap(err, "sending fee reminders")
	}
	return ctx.JSON(http.StatusOK, report)
}
