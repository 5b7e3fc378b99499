package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"nexto/config"
	"nexto/models"
)

const remoteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT,
	completed BOOLEAN NOT NULL DEFAULT FALSE,
	priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
	due_date DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at DESC);
`

const remoteColumns = `id, title, description, completed, priority, due_date, created_at, updated_at`

// pgxConn is the part of *pgxpool.Pool the remote store uses.
type pgxConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Remote stores tasks in a hosted Postgres table. Every driver or network
// failure comes back wrapped in models.ErrBackendUnavailable.
type Remote struct {
	conn       pgxConn
	pool       *pgxpool.Pool
	configured bool
	timeout    time.Duration
	log        *slog.Logger
	now        func() time.Time
}

// NewRemote prepares a connection pool for cfg. The pool connects lazily,
// so an unreachable backend is reported by the first operation, not here.
func NewRemote(ctx context.Context, cfg config.RemoteConfig, log *slog.Logger) (*Remote, error) {
	if !cfg.Configured() {
		return &Remote{log: log, now: time.Now}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	poolCfg.ConnConfig.Password = cfg.Password

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create remote pool: %w", err)
	}

	return &Remote{
		conn:       pool,
		pool:       pool,
		configured: true,
		timeout:    cfg.Timeout,
		log:        log,
		now:        time.Now,
	}, nil
}

func (r *Remote) Configured() bool {
	return r != nil && r.configured
}

func (r *Remote) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// EnsureSchema creates the tasks table when it does not exist yet.
func (r *Remote) EnsureSchema(ctx context.Context) error {
	if !r.Configured() {
		return nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.conn.Exec(ctx, remoteSchema); err != nil {
		return r.fail("ensure schema", err)
	}
	return nil
}

func (r *Remote) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Remote) fail(op string, err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", models.ErrBackendUnavailable, op, err)
}

func (r *Remote) ready(op string) error {
	if !r.Configured() {
		return fmt.Errorf("%w: %s: remote store not configured", models.ErrBackendUnavailable, op)
	}
	return nil
}

// taskRow mirrors the snake_case columns of the remote table.
type taskRow struct {
	ID          string
	Title       string
	Description pgtype.Text
	Completed   bool
	Priority    string
	DueDate     pgtype.Date
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (row *taskRow) fields() []any {
	return []any{&row.ID, &row.Title, &row.Description, &row.Completed, &row.Priority, &row.DueDate, &row.CreatedAt, &row.UpdatedAt}
}

func rowFromTask(t models.Task) taskRow {
	row := taskRow{
		ID:          t.ID,
		Title:       t.Title,
		Description: pgtype.Text{String: t.Description, Valid: t.Description != ""},
		Completed:   t.Completed,
		Priority:    string(t.Priority),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		row.DueDate = pgtype.Date{Time: t.DueDate.In(time.UTC), Valid: true}
	}
	return row
}

func (row taskRow) task() models.Task {
	t := models.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description.String,
		Completed:   row.Completed,
		Priority:    models.Priority(row.Priority),
		CreatedAt:   models.Stamp(row.CreatedAt),
		UpdatedAt:   models.Stamp(row.UpdatedAt),
	}
	if !t.Priority.Valid() {
		t.Priority = models.PriorityMedium
	}
	if row.DueDate.Valid && row.DueDate.InfinityModifier == pgtype.Finite {
		d := models.DateOf(row.DueDate.Time)
		t.DueDate = &d
	}
	return t
}

func (r *Remote) List(ctx context.Context) ([]models.Task, error) {
	if err := r.ready("list"); err != nil {
		return nil, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+remoteColumns+` FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, r.fail("list", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var row taskRow
		if err := rows.Scan(row.fields()...); err != nil {
			return nil, r.fail("list", err)
		}
		tasks = append(tasks, row.task())
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("list", err)
	}
	return tasks, nil
}

func (r *Remote) Get(ctx context.Context, id string) (models.Task, error) {
	if err := r.ready("get"); err != nil {
		return models.Task{}, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	task, err := getRemote(ctx, r.conn, id, false)
	if err != nil {
		return models.Task{}, r.fail("get", err)
	}
	return task, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getRemote(ctx context.Context, q rowQuerier, id string, forUpdate bool) (models.Task, error) {
	query := `SELECT ` + remoteColumns + ` FROM tasks WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var row taskRow
	if err := q.QueryRow(ctx, query, id).Scan(row.fields()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Task{}, models.ErrNotFound
		}
		return models.Task{}, err
	}
	return row.task(), nil
}

func (r *Remote) Insert(ctx context.Context, in models.TaskInput) (models.Task, error) {
	if err := r.ready("insert"); err != nil {
		return models.Task{}, err
	}
	task, err := models.NewTask(in, r.now())
	if err != nil {
		return models.Task{}, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := rowFromTask(task)
	_, err = r.conn.Exec(ctx,
		`INSERT INTO tasks (`+remoteColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.ID, row.Title, row.Description, row.Completed, row.Priority, row.DueDate, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return models.Task{}, r.fail("insert", err)
	}
	return task, nil
}

func (r *Remote) Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	if err := r.ready("update"); err != nil {
		return models.Task{}, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return models.Task{}, r.fail("update", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := getRemote(ctx, tx, id, true)
	if err != nil {
		return models.Task{}, r.fail("update", err)
	}

	updated, err := models.ApplyUpdate(current, patch, r.now())
	if err != nil {
		return models.Task{}, err
	}

	row := rowFromTask(updated)
	_, err = tx.Exec(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, completed = $4, priority = $5, due_date = $6, updated_at = $7
		WHERE id = $1`,
		row.ID, row.Title, row.Description, row.Completed, row.Priority, row.DueDate, row.UpdatedAt)
	if err != nil {
		return models.Task{}, r.fail("update", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Task{}, r.fail("update", err)
	}
	return updated, nil
}

func (r *Remote) Remove(ctx context.Context, id string) error {
	if err := r.ready("remove"); err != nil {
		return err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return r.fail("remove", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
