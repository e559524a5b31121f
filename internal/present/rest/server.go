package rest

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/totegamma/gamecatalog/internal/present/rest/middleware"
)

// BodyLimit caps request bodies.
const BodyLimit = "1M"

// NewEcho builds the router with the error handler and the middleware chain
// shared by every route.
func NewEcho(serviceName string, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(otelecho.Middleware(serviceName))
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.BodyLimit(BodyLimit))

	return e
}
