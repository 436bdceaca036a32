package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"market-advisor/internal/dto"
)

func (h *HttpAPIHandler) SetupAnalysis(base *echo.Group) {
	v1 := base.Group("/v1")
	{
		v1.POST("/analysis", h.runAnalysis)
		v1.GET("/analysis/:asset/history", h.analysisHistory)
		v1.GET("/assets", h.listAssets)
	}
}

func (h *HttpAPIHandler) runAnalysis(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.AnalyzeRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	result, err := h.service.BatchService.AnalyzeMany(ctx, req.Assets, req.TimeframeDays, req.RiskTolerance)
	if err != nil {
		if errors.Is(err, dto.ErrEmptyAssetSet) {
			return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to run analysis", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("analysis completed", result))
}

func (h *HttpAPIHandler) analysisHistory(c echo.Context) error {
	ctx := c.Request().Context()

	asset := c.Param("asset")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	records, err := h.service.BatchService.RecentAnalyses(ctx, asset, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to fetch analysis history", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("analysis history", records))
}

func (h *HttpAPIHandler) listAssets(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("available assets", dto.AvailableAssets()))
}
