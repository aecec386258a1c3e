package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/staff"
)

var errStaffNotFoundInCtx = errors.New("staff object not found in echo.Context")

type staffApi struct {
	svc *staff.Service
}

func registerStaffAPI(g *echo.Group, svc *staff.Service) {
	api := staffApi{svc: svc}

	sg := g.Group("/staff")
	sg.POST("", api.create)
	sg.GET("", api.query)
	sg.DELETE("", api.destroyMultiple)
	sg.GET("/roles", api.queryRoles)

	// detail endpoints
	dg := sg.Group("/:id", objectMiddleware(func(ctx echo.Context, id string) (staff.Staff, error) {
		return svc.GetByID(ctx.Request().Context(), id)
	}))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

type DestroyMultipleRequest struct {
	IDs []string `query:"id"`
}

// Handlers

func (api *staffApi) create(ctx echo.Context) error {
	var data staff.NewStaff
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStaff")
	}
	member, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, member)
}

func (api *staffApi) query(ctx echo.Context) error {
	var filter staff.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []staff.Staff{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	members, err := api.svc.Filter(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying staff")
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *staffApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, staff.Roles)
}

func (api *staffApi) retrieve(ctx echo.Context) error {
	member, ok := contextObject[staff.Staff](ctx)
	if !ok {
		return errors.Wrap(errStaffNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, member)
}

func (api *staffApi) update(ctx echo.Context) error {
	member, ok := contextObject[staff.Staff](ctx)
	if !ok {
		return errors.Wrap(errStaffNotFoundInCtx, "retrieving object from context")
	}
	var data staff.UpdateStaff
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStaff")
	}
	member, err := api.svc.Update(ctx.Request().Context(), member.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, member)
}

func (api *staffApi) destroy(ctx echo.Context) error {
	member, ok := contextObject[staff.Staff](ctx)
	if !ok {
		return errors.Wrap(errStaffNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), member.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *staffApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
