package presenter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCached(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, Cached(e.NewContext(req, rec), map[string]string{"name": "Avengers"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","data":{"name":"Avengers"}}`, rec.Body.String())
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", `"other", W/`+etag)
	rec = httptest.NewRecorder()
	require.NoError(t, Cached(e.NewContext(req, rec), map[string]string{"name": "Avengers"}))
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	require.NoError(t, Cached(e.NewContext(req, rec), map[string]string{"name": "X-men"}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreated(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, Created(e.NewContext(req, rec), "http://localhost/teams/1", map[string]string{"_id": "1"}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "http://localhost/teams/1", rec.Header().Get("Location"))
}

func TestETagIsStable(t *testing.T) {
	assert.Equal(t, ETag([]byte("a")), ETag([]byte("a")))
	assert.NotEqual(t, ETag([]byte("a")), ETag([]byte("b")))
}
