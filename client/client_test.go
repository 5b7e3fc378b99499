package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexto/handlers"
	"nexto/mailer"
	"nexto/models"
	"nexto/store"
	"nexto/utils"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	primary, err := utils.OpenLocalStore(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { primary.Close() })

	router := handlers.NewRouter(handlers.Deps{
		Store:  store.NewFallback(primary, nil, log, nil),
		Mailer: mailer.NewLogMailer(log),
		Log:    log,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// flaky wraps a handler and answers 500 to requests matching fail.
type flaky struct {
	next http.Handler
	fail atomic.Value
}

func newFlaky(next http.Handler) *flaky {
	f := &flaky{next: next}
	f.fail.Store(func(*http.Request) bool { return false })
	return f
}

func (f *flaky) failWhen(fn func(*http.Request) bool) {
	f.fail.Store(fn)
}

func (f *flaky) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.fail.Load().(func(*http.Request) bool)(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}
	f.next.ServeHTTP(w, r)
}

func TestClient_CRUD(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, srv.Client())
	ctx := context.Background()

	require.NoError(t, c.LoadAll(ctx))
	assert.Empty(t, c.Tasks())
	assert.False(t, c.Loading())

	high := models.PriorityHigh
	task, err := c.Add(ctx, models.TaskInput{Title: "Buy milk", Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	require.Len(t, c.Tasks(), 1)

	toggled, err := c.ToggleComplete(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	cached, ok := c.Find(task.ID)
	require.True(t, ok)
	assert.True(t, cached.Completed)

	title := "Buy oat milk"
	updated, err := c.Update(ctx, task.ID, models.TaskPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.True(t, updated.Completed)

	require.NoError(t, c.Remove(ctx, task.ID))
	assert.Empty(t, c.Tasks())

	require.NoError(t, c.LoadAll(ctx))
	assert.Empty(t, c.Tasks())
	assert.NoError(t, c.Err())
}

func TestClient_AddFailureKeepsCache(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, srv.Client())
	ctx := context.Background()

	_, err := c.Add(ctx, models.TaskInput{Title: "first"})
	require.NoError(t, err)

	_, err = c.Add(ctx, models.TaskInput{Title: "  "})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, err, c.Err())
	assert.Len(t, c.Tasks(), 1)

	c.ClearError()
	assert.NoError(t, c.Err())
}

func TestClient_UpdateAndRemoveMissing(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, srv.Client())
	ctx := context.Background()

	done := true
	_, err := c.Update(ctx, "missing", models.TaskPatch{Completed: &done})
	assert.True(t, IsNotFound(err))

	assert.True(t, IsNotFound(c.Remove(ctx, "missing")))
	assert.True(t, IsNotFound(func() error { _, err := c.ToggleComplete(ctx, "missing"); return err }()))
}

func TestClient_ToggleUncachedLeavesLoading(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, srv.Client())

	// Another request is in flight.
	c.begin()
	_, err := c.ToggleComplete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, c.Loading())

	var apiErr *APIError
	require.ErrorAs(t, c.Err(), &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	c.finish(nil, nil)
	assert.False(t, c.Loading())
}

func TestClient_LoadAllFailureKeepsLastGood(t *testing.T) {
	srv := newServer(t)
	proxy := newFlaky(srv.Config.Handler)
	front := httptest.NewServer(proxy)
	defer front.Close()

	c := New(front.URL, front.Client())
	ctx := context.Background()

	_, err := c.Add(ctx, models.TaskInput{Title: "keep"})
	require.NoError(t, err)
	require.NoError(t, c.LoadAll(ctx))
	require.Len(t, c.Tasks(), 1)

	proxy.failWhen(func(*http.Request) bool { return true })
	err = c.LoadAll(ctx)
	require.Error(t, err)
	assert.Len(t, c.Tasks(), 1)
	assert.False(t, c.Loading())
}

func TestClient_ClearCompletedStopsOnFailure(t *testing.T) {
	srv := newServer(t)
	proxy := newFlaky(srv.Config.Handler)
	front := httptest.NewServer(proxy)
	defer front.Close()

	c := New(front.URL, front.Client())
	ctx := context.Background()

	done := true
	var completed []string
	for _, title := range []string{"a", "b", "c"} {
		task, err := c.Add(ctx, models.TaskInput{Title: title, Completed: &done})
		require.NoError(t, err)
		completed = append(completed, task.ID)
	}
	_, err := c.Add(ctx, models.TaskInput{Title: "still open"})
	require.NoError(t, err)

	// The second delete fails.
	var deletes atomic.Int32
	proxy.failWhen(func(r *http.Request) bool {
		if r.Method != http.MethodDelete {
			return false
		}
		return deletes.Add(1) == 2
	})

	removed, err := c.ClearCompleted(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, removed)

	remaining := c.Tasks()
	assert.Len(t, remaining, 3)
	for _, task := range remaining {
		assert.NotEqual(t, completed[0], task.ID)
	}

	proxy.failWhen(func(*http.Request) bool { return false })
	removed, err = c.ClearCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	require.Len(t, c.Tasks(), 1)
	assert.Equal(t, "still open", c.Tasks()[0].Title)
}

func TestClient_ForgotPassword(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, srv.Client())

	msg, err := c.ForgotPassword(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.True(t, strings.Contains(msg, "Password reset"))

	_, err = c.ForgotPassword(context.Background(), "not-an-email")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestPatchBody(t *testing.T) {
	due := models.Date{Year: 2026, Month: 11, Day: 2}
	body := patchBody(models.TaskPatch{DueDate: &due})
	assert.Equal(t, map[string]any{"dueDate": "2026-11-02"}, body)

	body = patchBody(models.TaskPatch{ClearDueDate: true, DueDate: &due})
	assert.Equal(t, map[string]any{"dueDate": nil}, body)
}
