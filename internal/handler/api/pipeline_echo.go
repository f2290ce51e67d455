package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	models "StockPulse/internal/domain/models"
	"StockPulse/internal/scheduler"
	"StockPulse/internal/usecase"
	xhttp "StockPulse/pkg/http"
	xlogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"
)

// domainError translates pipeline failures into HTTP statuses before the
// generic 500 fallback.
func domainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrNoActiveModel):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no active model for region").WithError(err))
	case errors.Is(err, usecase.ErrRetrainInProgress):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("retrain already in progress").WithError(err))
	case errors.Is(err, models.ErrInsufficientTrainingData):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("not enough training data").WithError(err))
	}
	return xhttp.AppErrorResponse(c, err)
}

// PipelineEchoHandler exposes the prediction pipeline over HTTP.
type PipelineEchoHandler struct {
	logger    *xlogger.Logger
	pipeline  *usecase.Pipeline
	lifecycle *usecase.Lifecycle
}

func NewPipelineEchoHandler(logger *xlogger.Logger, pipeline *usecase.Pipeline, lifecycle *usecase.Lifecycle) *PipelineEchoHandler {
	return &PipelineEchoHandler{logger: logger, pipeline: pipeline, lifecycle: lifecycle}
}

func (h *PipelineEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/predictions", h.Predictions)
	g.GET("/performance", h.Performance)
	g.GET("/report", h.Report)
	g.GET("/triggers", h.Triggers)
	g.POST("/retrain", h.Retrain)
}

type statusEntry struct {
	usecase.RegionStatus
	Session scheduler.MarketSession `json:"session"`
}

func (h *PipelineEchoHandler) Status(c echo.Context) error {
	regions, err := h.pipeline.Status(c.Request().Context())
	if err != nil {
		h.logger.Error("status usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	now := time.Now()
	out := make([]statusEntry, 0, len(regions))
	for _, rs := range regions {
		out = append(out, statusEntry{
			RegionStatus: rs,
			Session:      scheduler.Session(rs.Region, now),
		})
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *PipelineEchoHandler) Predictions(c echo.Context) error {
	req := &models.PredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	region, err := models.ParseRegion(req.Region)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	rows, err := h.pipeline.Predictions(c.Request().Context(), req.Date, region)
	if err != nil {
		h.logger.Error("predictions usecase error", xlogger.Error(err))
		return domainError(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *PipelineEchoHandler) Performance(c echo.Context) error {
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	region, err := models.ParseRegion(req.Region)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	rows, err := h.pipeline.Performance(c.Request().Context(), region, req.Days)
	if err != nil {
		h.logger.Error("performance usecase error", xlogger.Error(err))
		return domainError(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *PipelineEchoHandler) Report(c echo.Context) error {
	report, err := h.pipeline.WeeklyReport(c.Request().Context())
	if err != nil {
		h.logger.Error("report usecase error", xlogger.Error(err))
		return domainError(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *PipelineEchoHandler) Triggers(c echo.Context) error {
	req := &models.TriggersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date := time.Now()
	if req.Date != "" {
		parsed, ok := util.ParseDate(req.Date)
		if !ok {
			return xhttp.BadRequestResponse(c, "invalid date")
		}
		date = parsed
	}
	return xhttp.SuccessResponse(c, scheduler.TriggerTimes(date))
}

func (h *PipelineEchoHandler) Retrain(c echo.Context) error {
	req := &models.RetrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	region, err := models.ParseRegion(req.Region)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	if err := h.lifecycle.Retrain(c.Request().Context(), region, models.NormalStrategy(region)); err != nil {
		h.logger.Error("retrain usecase error",
			xlogger.String("region", region.String()),
			xlogger.Error(err),
		)
		return domainError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"region": region.String(), "result": "ok"})
}
