package todos

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/appkit/appkit/internal/origin"
	"github.com/appkit/appkit/internal/pipeline"
	"github.com/appkit/appkit/internal/routing"
)

func TestTodosRoutesCRUD(t *testing.T) {
	app := newTodosApp(t)

	resp := doRequest(t, app, http.MethodPost, "/todos", `{"title":"  buy milk "}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created Todo
	decode(t, resp, &created)
	require.Equal(t, "buy milk", created.Title)
	require.NotEmpty(t, created.ID)

	resp = doRequest(t, app, http.MethodGet, "/todos", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list []Todo
	decode(t, resp, &list)
	require.Len(t, list, 1)

	resp = doRequest(t, app, http.MethodPatch, "/todos/"+created.ID, `{"completed":true}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var patched Todo
	decode(t, resp, &patched)
	require.True(t, patched.Completed)
	require.Equal(t, "buy milk", patched.Title)

	resp = doRequest(t, app, http.MethodPut, "/todos/"+created.ID, `{"title":"buy bread"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var replaced Todo
	decode(t, resp, &replaced)
	require.Equal(t, "buy bread", replaced.Title)
	require.False(t, replaced.Completed)

	resp = doRequest(t, app, http.MethodGet, "/todos/"+created.ID, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTodosRoutesRejectBadInput(t *testing.T) {
	app := newTodosApp(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		ctype  string
		status int
	}{
		{name: "missing title", method: http.MethodPost, path: "/todos", body: `{}`, ctype: fiber.MIMEApplicationJSON, status: fiber.StatusBadRequest},
		{name: "array body", method: http.MethodPost, path: "/todos", body: `[1]`, ctype: fiber.MIMEApplicationJSON, status: fiber.StatusBadRequest},
		{name: "form body", method: http.MethodPost, path: "/todos", body: `title=x`, ctype: fiber.MIMEApplicationForm, status: fiber.StatusUnsupportedMediaType},
		{name: "empty body", method: http.MethodPost, path: "/todos", body: ``, ctype: fiber.MIMEApplicationJSON, status: fiber.StatusUnsupportedMediaType},
		{name: "unknown id", method: http.MethodPatch, path: "/todos/missing", body: `{"completed":true}`, ctype: fiber.MIMEApplicationJSON, status: fiber.StatusNotFound},
		{name: "empty patch title", method: http.MethodPatch, path: "/todos/missing", body: `{"title":" "}`, ctype: fiber.MIMEApplicationJSON, status: fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.ctype)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}

	resp := doRequest(t, app, http.MethodGet, "/todos/missing", "")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDocumentDescribesTodosAPI(t *testing.T) {
	doc := Document("1.2.3")
	require.Equal(t, "Simple Todos API", doc.Info.Title)
	require.Equal(t, "1.2.3", doc.Info.Version)
}

func newTodosApp(t *testing.T) *fiber.App {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store, err := OpenStore(MemoryPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	app := fiber.New()
	list, err := origin.Merge(nil)
	require.NoError(t, err)
	_, err = pipeline.Install(app, pipeline.Options{Policy: origin.NewPolicy(list), Logger: logger})
	require.NoError(t, err)
	require.NoError(t, routing.NewTable(app).RegisterAll(Routes(store)))
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
