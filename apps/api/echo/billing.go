package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/billing"
)

type billingApi struct {
	svc *billing.Service
}

func registerBillingAPI(g *echo.Group, svc *billing.Service) {
	api := billingApi{svc: svc}

	bg := g.Group("/bills")
	bg.POST("", api.createBill)
	bg.GET("", api.queryBills)
	bg.GET("/:id", api.retrieveBill)
	bg.DELETE("/:id", api.destroyBill)
	bg.GET("/:id/payments", api.queryPayments)
	bg.POST("/:id/payments", api.recordPayment)

	g.GET("/payments/:receipt", api.retrievePayment)
	g.GET("/students/:id/balance", api.studentTotals)

	fg := g.Group("/other-fees")
	fg.POST("", api.createOtherFee)
	fg.GET("", api.queryOtherFees)
	fg.GET("/:id", api.retrieveOtherFee)
	fg.PUT("/:id", api.updateOtherFee)
	fg.DELETE("/:id", api.destroyOtherFee)
}

type PaymentResponse struct {
	Payment billing.Payment `json:"payment"`
	Bill    billing.Bill    `json:"bill"`
}

// Bills

func (api *billingApi) createBill(ctx echo.Context) error {
	var data billing.NewBill
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBill")
	}
	bill, err := api.svc.CreateBill(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, bill)
}

func (api *billingApi) queryBills(ctx echo.Context) error {
	var filter billing.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []billing.Bill{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	bills, err := api.svc.FilterBills(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying bills")
	}
	return ctx.JSON(http.StatusOK, bills)
}

func (api *billingApi) retrieveBill(ctx echo.Context) error {
	bill, err := api.svc.GetBill(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, bill)
}

func (api *billingApi) destroyBill(ctx echo.Context) error {
	if err := api.svc.DeleteBill(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Payments

func (api *billingApi) recordPayment(ctx echo.Context) error {
	var data billing.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	pmt, bill, err := api.svc.RecordPayment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, PaymentResponse{Payment: pmt, Bill: bill})
}

func (api *billingApi) queryPayments(ctx echo.Context) error {
	if _, err := api.svc.GetBill(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	payments, err := api.svc.PaymentsByBill(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *billingApi) retrievePayment(ctx echo.Context) error {
	pmt, err := api.svc.GetPaymentByReceipt(ctx.Request().Context(), ctx.Param("receipt"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *billingApi) studentTotals(ctx echo.Context) error {
	totals, err := api.svc.StudentTotals(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing student balance")
	}
	return ctx.JSON(http.StatusOK, totals)
}

// Other fees

func (api *billingApi) createOtherFee(ctx echo.Context) error {
	var data billing.NewOtherFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOtherFee")
	}
	fee, err := api.svc.CreateOtherFee(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, fee)
}

func (api *billingApi) queryOtherFees(ctx echo.Context) error {
	fees, err := api.svc.OtherFees(ctx.Request().Context(), ctx.QueryParam("student_id"))
	if err != nil {
		return errors.Wrap(err, "querying fees")
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *billingApi) retrieveOtherFee(ctx echo.Context) error {
	fee, err := api.svc.GetOtherFee(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, fee)
}

func (api *billingApi) updateOtherFee(ctx echo.Context) error {
	var data billing.UpdateOtherFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateOtherFee")
	}
	fee, err := api.svc.UpdateOtherFee(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, fee)
}

func (api *billingApi) destroyOtherFee(ctx echo.Context) error {
	if err := api.svc.DeleteOtherFee(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
