package rest

import (
	"io"

	"github.com/labstack/echo/v4"

	"github.com/totegamma/gamecatalog/internal/domain"
	"github.com/totegamma/gamecatalog/internal/present/rest/presenter"
	"github.com/totegamma/gamecatalog/internal/usecase"
)

// ResourceHandler serves the CRUD routes of one entity type.
type ResourceHandler struct {
	uc *usecase.ResourceUsecase
}

func NewResourceHandler(uc *usecase.ResourceUsecase) *ResourceHandler {
	return &ResourceHandler{uc: uc}
}

func (h *ResourceHandler) Register(e *echo.Echo) {
	g := e.Group("/" + h.uc.Entity().Name)
	g.GET("", Wrap(h.handleList))
	g.GET("/:id", Wrap(h.handleGet))
	g.POST("", Wrap(h.handleCreate))
	g.PUT("/:id", Wrap(h.handleUpdate))
	g.PATCH("/:id", Wrap(h.handleUpdate))
	g.DELETE("/:id", Wrap(h.handleDelete))
}

func (h *ResourceHandler) handleList(c echo.Context) error {
	ctx := c.Request().Context()
	entity := h.uc.Entity()

	projection := domain.ParseProjection(c.QueryParams(), entity.FieldNames(), entity.SensitiveFieldNames())
	records, err := h.uc.List(ctx, projection)
	if err != nil {
		return err
	}
	return presenter.OK(c, entity.RenderAll(records))
}

func (h *ResourceHandler) handleGet(c echo.Context) error {
	ctx := c.Request().Context()

	record, err := h.uc.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return presenter.Cached(c, h.uc.Entity().Render(record))
}

func (h *ResourceHandler) handleCreate(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}

	record, err := h.uc.Create(ctx, body)
	if err != nil {
		return err
	}
	return presenter.Created(c, h.uc.Link(record.ID), h.uc.Entity().Render(record))
}

func (h *ResourceHandler) handleUpdate(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}

	record, err := h.uc.Update(ctx, c.Param("id"), body)
	if err != nil {
		return err
	}
	return presenter.OK(c, h.uc.Entity().Render(record))
}

func (h *ResourceHandler) handleDelete(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.uc.Delete(ctx, c.Param("id")); err != nil {
		return err
	}
	return presenter.NoContent(c)
}
