package queue

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/metrics"
	"github.com/hms/hms/pkg/apperror"
)

type Handler struct {
	svc *Service
	m   *metrics.Metrics
}

// NewHandler wires the queue HTTP handlers. m may be nil.
func NewHandler(svc *Service, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, m: m}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/queue", h.Create)
	api.GET("/queue", h.List)
	api.GET("/queue/my-position", h.MyPosition)
	api.GET("/queue/:id", h.Get)
	api.PATCH("/queue/:id", h.Update)
}

func (h *Handler) Create(c echo.Context) error {
	var input CreateInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.svc.Admit(c.Request().Context(), input)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	if h.m != nil {
		h.m.Admissions.WithLabelValues(entry.Department).Inc()
		h.m.EventsBroadcast.Inc()
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context(), c.QueryParam("department"), Status(c.QueryParam("status")))
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	if items == nil {
		items = []*Entry{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) MyPosition(c echo.Context) error {
	patientID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "caller is not a patient")
	}
	result, err := h.svc.Position(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	entry, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var input UpdateInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entry, called, err := h.svc.Update(c.Request().Context(), id, input)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	if h.m != nil {
		h.m.QueueUpdates.WithLabelValues(entry.Department).Inc()
		h.m.EventsBroadcast.Inc()
		if called {
			h.m.PatientsCalled.WithLabelValues(entry.Department).Inc()
			h.m.EventsBroadcast.Inc()
		}
	}
	return c.JSON(http.StatusOK, entry)
}
