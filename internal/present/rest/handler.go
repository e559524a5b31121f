package rest

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/totegamma/gamecatalog/internal/domain"
	"github.com/totegamma/gamecatalog/internal/present/rest/presenter"
	"github.com/totegamma/gamecatalog/internal/service"
	"github.com/totegamma/gamecatalog/internal/usecase"
)

type Handler struct {
	store     usecase.Store
	resources []*ResourceHandler
	signal    *service.SignalService
}

// NewHandler wires one resource handler per usecase. signal may be nil, in
// which case /realtime answers 503.
func NewHandler(
	store usecase.Store,
	resources []*usecase.ResourceUsecase,
	signal *service.SignalService,
) *Handler {
	h := &Handler{
		store:  store,
		signal: signal,
	}
	for _, uc := range resources {
		h.resources = append(h.resources, NewResourceHandler(uc))
	}
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", Wrap(h.handleHealthz))
	e.GET("/realtime", Wrap(h.handleRealtime))
	for _, r := range h.resources {
		r.Register(e)
	}
}

func (h *Handler) handleHealthz(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.store.Ping(ctx); err != nil {
		slog.WarnContext(
			ctx, "health check failed",
			slog.String("error", err.Error()),
			slog.String("module", "rest"),
		)
		return &domain.Error{
			Status:     domain.StatusError,
			StatusCode: http.StatusServiceUnavailable,
			Code:       "STORE_UNAVAILABLE",
			Message:    "The data store is unreachable",
		}
	}
	return presenter.OK(c, nil)
}
