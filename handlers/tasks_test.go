package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexto/mailer"
	"nexto/metrics"
	"nexto/models"
	"nexto/store"
	"nexto/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// downRemote is a configured remote store whose backend never answers.
type downRemote struct {
	calls int
}

func (d *downRemote) Configured() bool { return true }

func (d *downRemote) fail(op string) error {
	d.calls++
	return fmt.Errorf("%w: %s: connection refused", models.ErrBackendUnavailable, op)
}

func (d *downRemote) List(context.Context) ([]models.Task, error) { return nil, d.fail("list") }
func (d *downRemote) Get(context.Context, string) (models.Task, error) {
	return models.Task{}, d.fail("get")
}
func (d *downRemote) Insert(context.Context, models.TaskInput) (models.Task, error) {
	return models.Task{}, d.fail("insert")
}
func (d *downRemote) Update(context.Context, string, models.TaskPatch) (models.Task, error) {
	return models.Task{}, d.fail("update")
}
func (d *downRemote) Remove(context.Context, string) error { return d.fail("remove") }

type testServer struct {
	router  *gin.Engine
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, remote store.RemoteStore) *testServer {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	primary, err := utils.OpenLocalStore(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { primary.Close() })

	m := metrics.New()
	router := NewRouter(Deps{
		Store:     store.NewFallback(primary, remote, log, m),
		Mailer:    mailer.NewLogMailer(log),
		Metrics:   m,
		Log:       log,
		ClientURL: "http://localhost:3000",
		PublicURL: "http://localhost:3000",
	})
	return &testServer{router: router, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCreateThenGet(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name     string
		body     map[string]any
		priority models.Priority
		due      string
	}{
		{name: "defaults", body: map[string]any{"title": "Buy milk"}, priority: models.PriorityMedium},
		{name: "high with due date", body: map[string]any{"title": "Pay rent", "priority": "high", "dueDate": "2026-11-01"}, priority: models.PriorityHigh, due: "2026-11-01"},
		{name: "low", body: map[string]any{"title": "Read", "priority": "low", "description": "a novel"}, priority: models.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(t, http.MethodPost, "/tasks", tt.body)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			created := decode[models.Task](t, w)

			assert.NotEmpty(t, created.ID)
			assert.Equal(t, tt.body["title"], created.Title)
			assert.False(t, created.Completed)
			assert.Equal(t, tt.priority, created.Priority)
			assert.Equal(t, created.CreatedAt, created.UpdatedAt)
			if tt.due != "" {
				require.NotNil(t, created.DueDate)
				assert.Equal(t, tt.due, created.DueDate.String())
			}

			w = srv.do(t, http.MethodGet, "/tasks/"+created.ID, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, created, decode[models.Task](t, w))
		})
	}
}

func TestCreate_RejectsEmptyTitle(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, body := range []any{
		map[string]any{"title": ""},
		map[string]any{"title": "   "},
		map[string]any{"description": "no title"},
		map[string]any{"title": "x", "priority": "urgent"},
		map[string]any{"title": "x", "dueDate": "tomorrow"},
		"{not json",
	} {
		w := srv.do(t, http.MethodPost, "/tasks", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %v", body)
		assert.Contains(t, decode[map[string]any](t, w), "error")
	}

	w := srv.do(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Task](t, w))
}

func TestUpdate_CompletedRefreshesUpdatedAt(t *testing.T) {
	srv := newTestServer(t, nil)

	created := decode[models.Task](t, srv.do(t, http.MethodPost, "/tasks", map[string]any{"title": "Walk dog"}))

	w := srv.do(t, http.MethodPut, "/tasks/"+created.ID, map[string]any{
		"completed": true,
		"id":        "hijack",
		"createdAt": "2000-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Task](t, w)
	assert.True(t, updated.Completed)

	got := decode[models.Task](t, srv.do(t, http.MethodGet, "/tasks/"+created.ID, nil))
	assert.True(t, got.Completed)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(created.UpdatedAt))
}

func TestUpdate_PartialFields(t *testing.T) {
	srv := newTestServer(t, nil)

	created := decode[models.Task](t, srv.do(t, http.MethodPost, "/tasks", map[string]any{
		"title": "Plan trip", "description": "Lisbon", "dueDate": "2026-12-20",
	}))

	w := srv.do(t, http.MethodPut, "/tasks/"+created.ID, `{"priority":"HIGH","dueDate":null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Task](t, w)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, "Plan trip", updated.Title)
	assert.Equal(t, "Lisbon", updated.Description)

	w = srv.do(t, http.MethodPut, "/tasks/"+created.ID, map[string]any{"title": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPut, "/tasks/"+created.ID, map[string]any{"priority": "someday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMissingTask(t *testing.T) {
	srv := newTestServer(t, nil)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/tasks/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodPut, "/tasks/nope", map[string]any{"completed": true}).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodDelete, "/tasks/nope", nil).Code)
}

func TestDeleteThenGet(t *testing.T) {
	srv := newTestServer(t, nil)

	created := decode[models.Task](t, srv.do(t, http.MethodPost, "/tasks", map[string]any{"title": "Temporary"}))

	w := srv.do(t, http.MethodDelete, "/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/tasks/"+created.ID, nil).Code)
}

func TestGetIsIdempotent(t *testing.T) {
	srv := newTestServer(t, nil)

	created := decode[models.Task](t, srv.do(t, http.MethodPost, "/tasks", map[string]any{"title": "Stable"}))

	first := srv.do(t, http.MethodGet, "/tasks/"+created.ID, nil).Body.String()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, srv.do(t, http.MethodGet, "/tasks/"+created.ID, nil).Body.String())
	}
}

func TestFallbackToPrimary(t *testing.T) {
	remote := &downRemote{}
	srv := newTestServer(t, remote)

	w := srv.do(t, http.MethodPost, "/tasks", map[string]any{"title": "Survives outage"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Task](t, w)

	w = srv.do(t, http.MethodGet, "/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, decode[models.Task](t, w))

	assert.Equal(t, 2, remote.calls)
	assert.Equal(t, float64(1), srv.metrics.FallbackCount("insert"))
	assert.Equal(t, float64(1), srv.metrics.FallbackCount("get"))

	health := decode[map[string]any](t, srv.do(t, http.MethodGet, "/health", nil))
	assert.Equal(t, "remote", health["store"])
}

func TestEndToEndScenario(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(t, http.MethodPost, "/tasks", map[string]any{"title": "Buy milk", "priority": "high"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.Task](t, w)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Completed)

	list := decode[[]models.Task](t, srv.do(t, http.MethodGet, "/tasks", nil))
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])

	w = srv.do(t, http.MethodPut, "/tasks/"+created.ID, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.Task](t, w).Completed)

	assert.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, "/tasks/"+created.ID, nil).Code)

	w = srv.do(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListNewestFirst(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, title := range []string{"one", "two", "three"} {
		require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/tasks", map[string]any{"title": title}).Code)
		time.Sleep(time.Millisecond)
	}

	list := decode[[]models.Task](t, srv.do(t, http.MethodGet, "/tasks", nil))
	require.Len(t, list, 3)
	assert.Equal(t, []string{"three", "two", "one"}, []string{list[0].Title, list[1].Title, list[2].Title})
}

func TestAPIPrefixAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "prefixed"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.Task](t, w)

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/tasks/"+created.ID, nil).Code)

	w = srv.do(t, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/nowhere", decode[map[string]any](t, w)["path"])
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	health := decode[map[string]any](t, srv.do(t, http.MethodGet, "/health", nil))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "primary", health["store"])

	w := srv.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nexto_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
