package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/academic"
)

type academicApi struct {
	svc *academic.Service
}

func registerAcademicAPI(g *echo.Group, svc *academic.Service) {
	api := academicApi{svc: svc}

	rg := g.Group("/results")
	rg.POST("", api.recordResult)
	rg.GET("", api.queryResults)
	rg.GET("/positions", api.classPositions)
	rg.DELETE("/:id", api.destroyResult)

	mg := g.Group("/remarks")
	mg.PUT("", api.saveRemark)
	mg.GET("", api.retrieveRemark)

	pg := g.Group("/promotions")
	pg.POST("", api.promote)
	pg.GET("", api.queryPromotions)
}

type RemarkQuery struct {
	StudentID    string `query:"student_id"`
	Term         string `query:"term"`
	AcademicYear string `query:"academic_year"`
}

// Results

func (api *academicApi) recordResult(ctx echo.Context) error {
	var data academic.NewResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResult")
	}
	res, err := api.svc.RecordResult(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *academicApi) queryResults(ctx echo.Context) error {
	var filter academic.ResultFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []academic.Result{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	results, err := api.svc.FilterResults(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *academicApi) classPositions(ctx echo.Context) error {
	var filter academic.ResultFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to ResultFilter")
	}
	positions, err := api.svc.ClassPositions(ctx.Request().Context(), filter.ClassID, filter.Term, filter.AcademicYear)
	if err != nil {
		return errors.Wrap(err, "ranking class")
	}
	return ctx.JSON(http.StatusOK, positions)
}

func (api *academicApi) destroyResult(ctx echo.Context) error {
	if err := api.svc.DeleteResult(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Remarks

func (api *academicApi) saveRemark(ctx echo.Context) error {
	var data academic.SaveRemark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveRemark")
	}
	rmk, err := api.svc.SaveRemark(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rmk)
}

func (api *academicApi) retrieveRemark(ctx echo.Context) error {
	var query RemarkQuery
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to RemarkQuery")
	}
	rmk, err := api.svc.GetRemark(ctx.Request().Context(), query.StudentID, query.Term, query.AcademicYear)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rmk)
}

// Promotions

func (api *academicApi) promote(ctx echo.Context) error {
	var data academic.NewPromotion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPromotion")
	}
	promotions, err := api.svc.Promote(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, promotions)
}

func (api *academicApi) queryPromotions(ctx echo.Context) error {
	var (
		promotions []academic.Promotion
		err        error
	)
	if studentID := ctx.QueryParam("student_id"); studentID != "" {
		promotions, err = api.svc.PromotionsByStudent(ctx.Request().Context(), studentID)
	} else {
		promotions, err = api.svc.Promotions(ctx.Request().Context(), ctx.QueryParam("academic_year"))
	}
	if err != nil {
		return errors.Wrap(err, "querying promotions")
	}
	return ctx.JSON(http.StatusOK, promotions)
}
