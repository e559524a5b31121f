package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/gamecatalog/internal/domain"
)

type errorResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

// Wrap forwards any error returned or panicked by fn to the error handler.
func Wrap(fn echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}
				err = errors.Wrap(perr, "panic")
			}
			if err == nil {
				return
			}

			span := trace.SpanFromContext(c.Request().Context())
			span.RecordError(err)
			if _, typed := domain.AsError(err); !typed {
				span.SetStatus(codes.Error, err.Error())
			}

			c.Error(err)
			err = nil
		}()
		return fn(c)
	}
}

// ErrorHandler renders errors as {status, code, message}. It is installed as
// echo's HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := resolve(err, c)
	if body.Location != "" {
		c.Response().Header().Set(echo.HeaderLocation, body.Location)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		slog.ErrorContext(
			c.Request().Context(), "failed to write error response",
			slog.String("error", werr.Error()),
			slog.String("module", "rest"),
		)
	}
}

func resolve(err error, c echo.Context) (int, errorResponse) {
	if e, ok := domain.AsError(err); ok {
		return e.StatusCode, errorResponse{
			Status:   e.Status,
			Code:     e.Code,
			Message:  e.Message,
			Location: e.Location,
		}
	}

	if errors.Is(err, domain.ErrNotFound) {
		return http.StatusNotFound, errorResponse{
			Status:  domain.StatusNotFound,
			Code:    domain.CodeNotFound,
			Message: "The document was not found",
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch {
		case he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed:
			return http.StatusNotFound, errorResponse{
				Status:  domain.StatusNotFound,
				Code:    domain.CodeRouteNotFound,
				Message: fmt.Sprintf("Can't find %s on the server", c.Request().RequestURI),
			}
		case he.Code < http.StatusInternalServerError:
			return he.Code, errorResponse{
				Status:  domain.StatusFailed,
				Code:    domain.CodeBadRequest,
				Message: fmt.Sprint(he.Message),
			}
		}
	}

	slog.ErrorContext(
		c.Request().Context(), "unhandled error",
		slog.String("error", fmt.Sprintf("%+v", err)),
		slog.String("method", c.Request().Method),
		slog.String("uri", c.Request().RequestURI),
		slog.String("module", "rest"),
	)
	return http.StatusInternalServerError, errorResponse{
		Status:  domain.StatusError,
		Code:    domain.CodeInternal,
		Message: "Something went wrong",
	}
}
