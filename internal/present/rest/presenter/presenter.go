package presenter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/zeebo/xxh3"

	"github.com/totegamma/gamecatalog/internal/domain"
)

type response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, response{Status: domain.StatusSuccess, Data: payload})
}

// Cached is OK with an ETag. A matching If-None-Match yields 304.
func Cached(c echo.Context, payload any) error {
	body, err := json.Marshal(response{Status: domain.StatusSuccess, Data: payload})
	if err != nil {
		return err
	}

	etag := ETag(body)
	c.Response().Header().Set("ETag", etag)
	if matches(c.Request().Header.Get("If-None-Match"), etag) {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSONBlob(http.StatusOK, body)
}

func Created(c echo.Context, location string, payload any) error {
	if location != "" {
		c.Response().Header().Set(echo.HeaderLocation, location)
	}
	return c.JSON(http.StatusCreated, response{Status: domain.StatusSuccess, Data: payload})
}

func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// ETag is a strong validator over the response body.
func ETag(body []byte) string {
	return `"` + strconv.FormatUint(xxh3.Hash(body), 16) + `"`
}

func matches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
