package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"market-advisor/internal/dto"
	"market-advisor/internal/model"
	"market-advisor/pkg/utils"
)

func (h *HttpAPIHandler) SetupSchedules(base *echo.Group) {
	v1 := base.Group("/v1/schedules")
	{
		v1.POST("", h.createSchedule)
		v1.GET("", h.listSchedules)
		v1.GET("/:id", h.getSchedule)
		v1.PUT("/:id", h.updateSchedule)
		v1.DELETE("/:id", h.deleteSchedule)
		v1.POST("/:id/run", h.runScheduleNow)
	}

	base.GET("/v1/scheduler/status", h.schedulerStatus)
}

func (h *HttpAPIHandler) createSchedule(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.CreateScheduleRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	schedule, err := h.service.ScheduleService.Create(ctx, req)
	if err != nil {
		return h.scheduleError(c, err, "failed to create schedule")
	}

	return c.JSON(http.StatusCreated, dto.NewBaseResponse(http.StatusCreated, "schedule created", schedule))
}

func (h *HttpAPIHandler) listSchedules(c echo.Context) error {
	ctx := c.Request().Context()

	param := &model.GetScheduleParam{}
	if enabled := c.QueryParam("enabled"); enabled != "" {
		value, err := strconv.ParseBool(enabled)
		if err != nil {
			return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid enabled filter"))
		}
		param.Enabled = &value
	}
	if runs, err := strconv.Atoi(c.QueryParam("with_runs")); err == nil && runs > 0 {
		param.WithRuns = utils.ToPointer(runs)
	}

	schedules, err := h.service.ScheduleService.List(ctx, param)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to list schedules", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("schedules", schedules))
}

func (h *HttpAPIHandler) getSchedule(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := scheduleID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid schedule id"))
	}

	schedules, err := h.service.ScheduleService.List(ctx, &model.GetScheduleParam{
		IDs:      []uint{id},
		WithRuns: utils.ToPointer(10),
	})
	if err != nil {
		return h.scheduleError(c, err, "failed to fetch schedule")
	}
	if len(schedules) == 0 {
		return c.JSON(http.StatusNotFound, dto.NewBaseResponse(http.StatusNotFound, dto.ErrScheduleNotFound.Error(), nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("schedule", schedules[0]))
}

func (h *HttpAPIHandler) updateSchedule(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := scheduleID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid schedule id"))
	}

	req := new(dto.UpdateScheduleRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	schedule, err := h.service.ScheduleService.Update(ctx, id, req)
	if err != nil {
		return h.scheduleError(c, err, "failed to update schedule")
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("schedule updated", schedule))
}

func (h *HttpAPIHandler) deleteSchedule(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := scheduleID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid schedule id"))
	}

	if err := h.service.ScheduleService.Delete(ctx, id); err != nil {
		return h.scheduleError(c, err, "failed to delete schedule")
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("schedule deleted", nil))
}

func (h *HttpAPIHandler) runScheduleNow(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := scheduleID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid schedule id"))
	}

	run, err := h.service.Scheduler.RunScheduleNow(ctx, id)
	if err != nil {
		return h.scheduleError(c, err, "failed to run schedule")
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("schedule run completed", run))
}

func (h *HttpAPIHandler) schedulerStatus(c echo.Context) error {
	ctx := c.Request().Context()

	status, err := h.service.Scheduler.Status(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to fetch scheduler status", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("scheduler status", status))
}

func (h *HttpAPIHandler) scheduleError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, dto.ErrScheduleNotFound):
		return c.JSON(http.StatusNotFound, dto.NewBaseResponse(http.StatusNotFound, err.Error(), nil))
	case errors.Is(err, dto.ErrInvalidScheduleDefinition), errors.Is(err, dto.ErrEmptyAssetSet):
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, fallback, nil))
	}
}

func scheduleID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
