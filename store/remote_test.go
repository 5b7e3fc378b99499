package store

import (
	"context"
	"errors"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexto/config"
	"nexto/models"
)

func TestRowMapping(t *testing.T) {
	due := models.Date{Year: 2026, Month: time.October, Day: 31}
	created := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	task := models.Task{
		ID:          "abc",
		Title:       "Carve pumpkin",
		Description: "big one",
		Completed:   true,
		Priority:    models.PriorityHigh,
		DueDate:     &due,
		CreatedAt:   created,
		UpdatedAt:   created.Add(time.Hour),
	}

	row := rowFromTask(task)
	assert.Equal(t, "high", row.Priority)
	assert.True(t, row.DueDate.Valid)
	assert.Equal(t, "2026-10-31", row.DueDate.Time.Format(models.DateLayout))
	assert.Equal(t, pgtype.Text{String: "big one", Valid: true}, row.Description)

	assert.Equal(t, task, row.task())
}

func TestRowMapping_NullColumns(t *testing.T) {
	row := taskRow{ID: "x", Title: "t", Priority: "bogus"}
	task := row.task()

	assert.Empty(t, task.Description)
	assert.Nil(t, task.DueDate)
	assert.Equal(t, models.PriorityMedium, task.Priority)

	back := rowFromTask(models.Task{ID: "y", Title: "t", Priority: models.PriorityLow})
	assert.False(t, back.Description.Valid)
	assert.False(t, back.DueDate.Valid)
}

func TestRemote_NotConfigured(t *testing.T) {
	remote, err := NewRemote(context.Background(), config.RemoteConfig{}, discardLogger())
	require.NoError(t, err)
	assert.False(t, remote.Configured())

	_, err = remote.List(context.Background())
	assert.ErrorIs(t, err, models.ErrBackendUnavailable)
	assert.NoError(t, remote.EnsureSchema(context.Background()))
}

func TestRemote_UnreachableIsBackendUnavailable(t *testing.T) {
	remote, err := NewRemote(context.Background(), config.RemoteConfig{
		URL:      "postgres://nexto@127.0.0.1:1/nexto?sslmode=disable&connect_timeout=1",
		Password: "secret",
		Timeout:  2 * time.Second,
	}, discardLogger())
	require.NoError(t, err)
	defer remote.Close()

	_, err = remote.Insert(context.Background(), models.TaskInput{Title: "never stored"})
	assert.ErrorIs(t, err, models.ErrBackendUnavailable)

	_, err = remote.Insert(context.Background(), models.TaskInput{Title: ""})
	assert.ErrorIs(t, err, models.ErrValidation)
}

// testRemote connects to TEST_DATABASE_URL or skips.
func testRemote(t *testing.T) *Remote {
	t.Helper()

	raw := os.Getenv("TEST_DATABASE_URL")
	if raw == "" {
		t.Skip("Skipping test: TEST_DATABASE_URL not set")
	}
	u, err := url.Parse(raw)
	require.NoError(t, err)
	password, _ := u.User.Password()

	ctx := context.Background()
	remote, err := NewRemote(ctx, config.RemoteConfig{URL: raw, Password: password, Timeout: 5 * time.Second}, discardLogger())
	require.NoError(t, err)
	if err := remote.EnsureSchema(ctx); err != nil {
		remote.Close()
		t.Skipf("Skipping test: database not available: %v", err)
	}
	t.Cleanup(remote.Close)
	return remote
}

func TestRemote_CRUD(t *testing.T) {
	remote := testRemote(t)
	ctx := context.Background()

	high := models.PriorityHigh
	due := models.Date{Year: 2026, Month: time.December, Day: 1}
	created, err := remote.Insert(ctx, models.TaskInput{Title: "integration", Priority: &high, DueDate: &due})
	require.NoError(t, err)
	t.Cleanup(func() { _ = remote.Remove(context.Background(), created.ID) })

	got, err := remote.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	done := true
	updated, err := remote.Update(ctx, created.ID, models.TaskPatch{Completed: &done, ClearDueDate: true})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Nil(t, updated.DueDate)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	require.NoError(t, remote.Remove(ctx, created.ID))
	_, err = remote.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.ErrorIs(t, remote.Remove(ctx, created.ID), models.ErrNotFound)
}
