package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/totegamma/gamecatalog/internal/domain"
	"github.com/totegamma/gamecatalog/internal/infrastructure/cache"
	"github.com/totegamma/gamecatalog/internal/infrastructure/database"
	"github.com/totegamma/gamecatalog/internal/infrastructure/repository"
	"github.com/totegamma/gamecatalog/internal/schema"
	"github.com/totegamma/gamecatalog/internal/usecase"
)

const testBaseURL = "http://catalog.test"

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type errorBody struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Location string `json:"location"`
}

func setupServer(t *testing.T, opts usecase.ResourceOptions) *echo.Echo {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	store := repository.NewGormStore(db, 0)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	opts.BaseURL = testBaseURL
	opts.HashCost = bcrypt.MinCost

	var resources []*usecase.ResourceUsecase
	for _, entity := range schema.Catalog() {
		resources = append(resources, usecase.NewResourceUsecase(entity, store.Collection(entity.Name), opts))
	}

	e := NewEcho("catalog-test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	NewHandler(store, resources, nil).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	assert.Equal(t, domain.StatusSuccess, env.Status)
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func createTeam(t *testing.T, e *echo.Echo, body string) map[string]any {
	t.Helper()
	rec := do(e, http.MethodPost, "/teams", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var team map[string]any
	decodeData(t, rec, &team)
	return team
}

func TestCreateThenGet(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})

	rec := do(e, http.MethodPost, "/teams", `{"name":"  avengers ","description":"Earth's mightiest"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"success","data":{"_id":"`+extractID(t, rec)+`","name":"Avengers","description":"Earth's mightiest"}}`, rec.Body.String())

	id := extractID(t, rec)
	assert.True(t, domain.IsObjectID(id))
	assert.Equal(t, testBaseURL+"/teams/"+id, rec.Header().Get(echo.HeaderLocation))

	rec = do(e, http.MethodGet, "/teams/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	// _id is rendered first
	assert.True(t, strings.HasPrefix(rec.Body.String(), `{"status":"success","data":{"_id":"`+id+`","name":"Avengers"`), rec.Body.String())

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	rec = do(e, http.MethodGet, "/teams/"+id, "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func extractID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var data map[string]any
	decodeData(t, rec, &data)
	id, _ := data["_id"].(string)
	return id
}

func TestGetByNameFragment(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})
	first := createTeam(t, e, `{"name":"red team"}`)
	createTeam(t, e, `{"name":"dark red team"}`)

	rec := do(e, http.MethodGet, "/teams/RED", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	decodeData(t, rec, &got)
	assert.Equal(t, first["_id"], got["_id"])

	rec = do(e, http.MethodGet, "/teams/blue", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, errorBody{Status: "not found", Code: domain.CodeNotFound, Message: "The document was not found"}, body)

	rec = do(e, http.MethodGet, "/teams/"+domain.NewID(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetByBlankFragment(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})
	createTeam(t, e, `{"name":"avengers"}`)

	rec := do(e, http.MethodGet, "/teams/%20", "")
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	spaced := createTeam(t, e, `{"name":"red team"}`)
	rec = do(e, http.MethodGet, "/teams/%20", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got map[string]any
	decodeData(t, rec, &got)
	assert.Equal(t, spaced["_id"], got["_id"])
}

func TestCreateDuplicateName(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})
	first := createTeam(t, e, `{"name":"Avengers"}`)

	rec := do(e, http.MethodPost, "/teams", `{"name":"AVENGERS"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	link := testBaseURL + "/teams/" + first["_id"].(string)
	body := decodeError(t, rec)
	assert.Equal(t, domain.StatusRedirect, body.Status)
	assert.Equal(t, domain.CodeConflict, body.Code)
	assert.Equal(t, link, body.Location)
	assert.Equal(t, "Resource already exist in the data base, follow the next link to find the data: "+link, body.Message)
	assert.Equal(t, link, rec.Header().Get(echo.HeaderLocation))

	rec = do(e, http.MethodGet, "/teams", "")
	var all []map[string]any
	decodeData(t, rec, &all)
	assert.Len(t, all, 1)
}

func TestCreateValidation(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})

	cases := []struct {
		name    string
		target  string
		body    string
		message string
	}{
		{"missing name", "/teams", `{"description":"x"}`, "name is required"},
		{"malformed json", "/teams", `{"name":`, "payload must be a JSON object"},
		{"unknown field", "/videogames", `{"name":"Zelda","studio":"Nintendo"}`, `"studio" is not an allowed field`},
		{"enum", "/videogames", `{"name":"Zelda","genre":"cooking"}`, "genre must be one of [action adventure rpg strategy shooter sports puzzle simulation racing fighting platformer horror]"},
		{"email", "/users", `{"name":"link","email":"nope","password":"triforce!"}`, "email must be a valid email address"},
		{"multibyte password", "/users", `{"name":"link","email":"link@hyrule.org","password":"` + strings.Repeat("é", 40) + `"}`, "password must be at most 72 bytes"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, tc.target, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, domain.StatusFailed, body.Status)
			assert.Equal(t, domain.CodeValidation, body.Code)
			assert.Equal(t, tc.message, body.Message)
		})
	}
}

func TestListProjection(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})
	createTeam(t, e, `{"name":"avengers","description":"heroes","games":["a"]}`)
	createTeam(t, e, `{"name":"x-men","description":"mutants"}`)

	var all []map[string]any
	decodeData(t, do(e, http.MethodGet, "/teams", ""), &all)
	require.Len(t, all, 2)
	assert.Equal(t, map[string]any{"name": "Avengers", "description": "heroes", "games": []any{"a"}}, all[0])
	assert.Equal(t, "X-men", all[1]["name"])

	var names []map[string]any
	decodeData(t, do(e, http.MethodGet, "/teams?name=1&bogus=1", ""), &names)
	assert.Equal(t, []map[string]any{{"name": "Avengers"}, {"name": "X-men"}}, names)

	var withID []map[string]any
	decodeData(t, do(e, http.MethodGet, "/teams?name=1&_id=1", ""), &withID)
	assert.Contains(t, withID[0], "_id")
	assert.Len(t, withID[0], 2)

	var excluded []map[string]any
	decodeData(t, do(e, http.MethodGet, "/teams?description=0", ""), &excluded)
	assert.Equal(t, map[string]any{"name": "Avengers", "games": []any{"a"}}, excluded[0])

	rec := do(e, http.MethodGet, "/roles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","data":[]}`, rec.Body.String())
}

func TestPasswordIsNeverRendered(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})

	rec := do(e, http.MethodPost, "/users", `{"name":"link","email":"Link@Hyrule.org","password":"triforce!","active":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "triforce")

	var user map[string]any
	decodeData(t, rec, &user)
	assert.Equal(t, "link@hyrule.org", user["email"])

	for _, target := range []string{"/users", "/users?password=1", "/users?password=1&name=1", "/users/" + user["_id"].(string)} {
		rec = do(e, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "password", target)
	}
}

func TestUpdate(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})
	avengers := createTeam(t, e, `{"name":"avengers"}`)
	xmen := createTeam(t, e, `{"name":"x-men"}`)
	id := avengers["_id"].(string)

	rec := do(e, http.MethodPatch, "/teams/"+id, `{"description":"heroes"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated map[string]any
	decodeData(t, rec, &updated)
	assert.Equal(t, map[string]any{"_id": id, "name": "Avengers", "description": "heroes"}, updated)

	rec = do(e, http.MethodPut, "/teams/"+id, `{"name":"new avengers"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &updated)
	assert.Equal(t, "New avengers", updated["name"])
	assert.Equal(t, "heroes", updated["description"])

	rec = do(e, http.MethodPatch, "/teams/"+id, `{"name":"X-MEN"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, testBaseURL+"/teams/"+xmen["_id"].(string), decodeError(t, rec).Location)

	rec = do(e, http.MethodPatch, "/teams/"+id, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "at least one field must be provided", decodeError(t, rec).Message)
}

func TestUpdateMissingAndMalformed(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})

	rec := do(e, http.MethodPatch, "/teams/123", `{"description":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, domain.CodeMalformedID, body.Code)
	assert.Equal(t, domain.StatusFailed, body.Status)

	rec = do(e, http.MethodPatch, "/teams/"+domain.NewID(), `{"description":"x"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decodeError(t, rec).Message)
}

func TestUpdateMalformedCompat(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{MalformedIDStatus: http.StatusInternalServerError})

	rec := do(e, http.MethodPatch, "/teams/123", `{"description":"x"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, domain.CodeMalformedID, decodeError(t, rec).Code)
}

func TestDeleteTwice(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})
	team := createTeam(t, e, `{"name":"avengers"}`)
	id := team["_id"].(string)

	rec := do(e, http.MethodDelete, "/teams/"+id, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(e, http.MethodDelete, "/teams/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Cannot delete the requested document", decodeError(t, rec).Message)

	rec = do(e, http.MethodDelete, "/teams/not-an-id", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/teams/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCacheIsInvalidatedOnUpdate(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{Cache: cache.NewLocal(time.Minute)})
	team := createTeam(t, e, `{"name":"avengers"}`)
	id := team["_id"].(string)

	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/teams/"+id, "").Code)
	require.Equal(t, http.StatusOK, do(e, http.MethodPatch, "/teams/"+id, `{"description":"fresh"}`).Code)

	var got map[string]any
	decodeData(t, do(e, http.MethodGet, "/teams/"+id, ""), &got)
	assert.Equal(t, "fresh", got["description"])
}

func TestUnmatchedRoutes(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})

	cases := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/games"},
		{http.MethodGet, "/teams/a/b?x=1"},
		{http.MethodDelete, "/teams"},
		{http.MethodPost, "/teams/abc"},
	}
	for _, tc := range cases {
		rec := do(e, tc.method, tc.target, "")
		require.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.target)
		assert.Equal(t, errorBody{
			Status:  domain.StatusNotFound,
			Code:    domain.CodeRouteNotFound,
			Message: fmt.Sprintf("Can't find %s on the server", tc.target),
		}, decodeError(t, rec))
	}

	rec := do(e, http.MethodHead, "/games", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestUnexpectedErrorsAreHidden(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})
	e.GET("/boom", Wrap(func(c echo.Context) error {
		panic("database exploded")
	}))
	e.GET("/fail", Wrap(func(c echo.Context) error {
		return fmt.Errorf("secret connection string")
	}))

	for _, target := range []string{"/boom", "/fail"} {
		rec := do(e, http.MethodGet, target, "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, errorBody{
			Status:  domain.StatusError,
			Code:    domain.CodeInternal,
			Message: "Something went wrong",
		}, decodeError(t, rec))
	}
}

func TestBodyLimit(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})

	big := `{"name":"` + strings.Repeat("a", 2<<20) + `"}`
	rec := do(e, http.MethodPost, "/teams", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, domain.StatusFailed, decodeError(t, rec).Status)
}

func TestHealthz(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})

	rec := do(e, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/realtime", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS(t *testing.T) {
	e := setupServer(t, usecase.ResourceOptions{})

	rec := do(e, http.MethodGet, "/teams", "", "Origin", "https://example.com")
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
