package ai

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/metrics"
	"github.com/hms/hms/pkg/apperror"
)

type Handler struct {
	svc *Service
	m   *metrics.Metrics
}

// NewHandler wires the AI HTTP handlers. m may be nil.
func NewHandler(svc *Service, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, m: m}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/ai/optimize-queue", h.OptimizeQueue)
	api.POST("/ai/predict-no-show", h.PredictNoShow)
	api.POST("/ai/predict-wait-time", h.PredictWaitTime)
	api.POST("/ai/classify-priority", h.ClassifyPriority)
	api.POST("/ai/batch-predict", h.BatchPredict)
	api.GET("/ai/health", h.Health)
}

func (h *Handler) OptimizeQueue(c echo.Context) error {
	var input OptimizeInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	start := time.Now()
	result, err := h.svc.OptimizeQueue(c.Request().Context(), input)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	if h.m != nil {
		h.m.OptimizerRuns.Inc()
		h.m.OptimizerChanges.Add(float64(result.ChangesMade))
		h.m.OptimizerDuration.Observe(time.Since(start).Seconds())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) PredictNoShow(c echo.Context) error {
	var req NoShowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	prediction, err := h.svc.PredictNoShow(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, prediction)
}

func (h *Handler) PredictWaitTime(c echo.Context) error {
	var req WaitTimeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	estimate, err := h.svc.EstimateWaitTime(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, estimate)
}

func (h *Handler) ClassifyPriority(c echo.Context) error {
	var req ClassifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	classification, err := h.svc.ClassifyPriority(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, classification)
}

func (h *Handler) BatchPredict(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.BatchPredict(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.HealthCheck())
}
