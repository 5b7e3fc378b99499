package store

import (
	"context"
	"errors"
	"log/slog"

	"nexto/metrics"
	"nexto/models"
)

// Fallback routes each operation to the remote store when it is configured
// and retries it once against the primary store when the remote reports
// models.ErrBackendUnavailable. Writes that land on the primary store this
// way are never replayed against the remote, so a task the remote does not
// know is also looked up in the primary store before it is reported missing.
type Fallback struct {
	primary Store
	remote  RemoteStore
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewFallback(primary Store, remote RemoteStore, log *slog.Logger, m *metrics.Metrics) *Fallback {
	return &Fallback{primary: primary, remote: remote, log: log, metrics: m}
}

func (f *Fallback) remoteActive() bool {
	return f.remote != nil && f.remote.Configured()
}

// Active names the store tried first.
func (f *Fallback) Active() string {
	if f.remoteActive() {
		return "remote"
	}
	return "primary"
}

func (f *Fallback) fellBack(op string, err error) bool {
	if !errors.Is(err, models.ErrBackendUnavailable) {
		return false
	}
	f.log.Warn("remote store failed, serving from primary store", "operation", op, "error", err)
	f.metrics.Fallback(op)
	return true
}

// missing reports whether the remote does not hold the task, in which case
// the primary store is asked instead.
func (f *Fallback) missing(op, id string, err error) bool {
	if !errors.Is(err, models.ErrNotFound) {
		return false
	}
	f.log.Debug("task not in remote store, checking primary store", "operation", op, "id", id)
	return true
}

func (f *Fallback) List(ctx context.Context) ([]models.Task, error) {
	if f.remoteActive() {
		tasks, err := f.remote.List(ctx)
		if !f.fellBack("list", err) {
			return tasks, err
		}
	}
	return f.primary.List(ctx)
}

func (f *Fallback) Get(ctx context.Context, id string) (models.Task, error) {
	if f.remoteActive() {
		task, err := f.remote.Get(ctx, id)
		if !f.fellBack("get", err) && !f.missing("get", id, err) {
			return task, err
		}
	}
	return f.primary.Get(ctx, id)
}

func (f *Fallback) Insert(ctx context.Context, in models.TaskInput) (models.Task, error) {
	if f.remoteActive() {
		task, err := f.remote.Insert(ctx, in)
		if !f.fellBack("insert", err) {
			return task, err
		}
	}
	return f.primary.Insert(ctx, in)
}

func (f *Fallback) Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	if f.remoteActive() {
		task, err := f.remote.Update(ctx, id, patch)
		if !f.fellBack("update", err) && !f.missing("update", id, err) {
			return task, err
		}
	}
	return f.primary.Update(ctx, id, patch)
}

func (f *Fallback) Remove(ctx context.Context, id string) error {
	if f.remoteActive() {
		err := f.remote.Remove(ctx, id)
		if !f.fellBack("remove", err) && !f.missing("remove", id, err) {
			return err
		}
	}
	return f.primary.Remove(ctx, id)
}
