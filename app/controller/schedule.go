package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-subscriptions/app/factory"
	"github.com/vibast-solutions/ms-go-subscriptions/app/mapper"
	"github.com/vibast-solutions/ms-go-subscriptions/app/pricing"
	"github.com/vibast-solutions/ms-go-subscriptions/app/service"
	"github.com/vibast-solutions/ms-go-subscriptions/app/types"
)

type ScheduleController struct {
	scheduleService *service.ScheduleService
	logger          logrus.FieldLogger
}

func NewScheduleController(scheduleService *service.ScheduleService) *ScheduleController {
	return &ScheduleController{
		scheduleService: scheduleService,
		logger:          factory.NewModuleLogger("schedules-controller"),
	}
}

func (c *ScheduleController) CreateSchedule(ctx echo.Context) error {
	req, err := types.NewCreateScheduleRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.scheduleService.CreateSchedule(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, pricing.ErrInvalidSchedule):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrScheduleExists):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			c.logger.WithError(err).Error("Create schedule failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.ScheduleResponse{Schedule: mapper.ScheduleToProto(item)})
}

func (c *ScheduleController) GetSchedule(ctx echo.Context) error {
	req, err := types.NewGetScheduleRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.scheduleService.GetSchedule(ctx.Request().Context(), req.GetId())
	if err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "schedule not found")
		}
		c.logger.WithError(err).Error("Get schedule failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ScheduleResponse{Schedule: mapper.ScheduleToProto(item)})
}

func (c *ScheduleController) ListSchedules(ctx echo.Context) error {
	req, err := types.NewListSchedulesRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.scheduleService.ListSchedules(ctx.Request().Context(), req)
	if err != nil {
		c.logger.WithError(err).Error("List schedules failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListSchedulesResponse{Schedules: mapper.SchedulesToProto(items)})
}

func (c *ScheduleController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
