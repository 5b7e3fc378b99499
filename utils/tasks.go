package utils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nexto/models"
)

const taskColumns = `id, title, description, completed, priority, due_date, created_at, updated_at`

// LocalStore is the primary task store, backed by a sqlite database owned
// by the process.
type LocalStore struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func NewLocalStore(db *sql.DB, log *slog.Logger) *LocalStore {
	return &LocalStore{db: db, log: log, now: time.Now}
}

// OpenLocalStore opens the database at path and wraps it in a LocalStore.
func OpenLocalStore(path string, log *slog.Logger) (*LocalStore, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	return NewLocalStore(db, log), nil
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		task     models.Task
		priority string
		due      sql.NullString
	)
	err := row.Scan(&task.ID, &task.Title, &task.Description, &task.Completed, &priority, &due, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	task.Priority = models.Priority(priority)
	task.CreatedAt = models.Stamp(task.CreatedAt)
	task.UpdatedAt = models.Stamp(task.UpdatedAt)
	if due.Valid && due.String != "" {
		d, err := models.ParseDate(due.String)
		if err != nil {
			return models.Task{}, fmt.Errorf("task %s: %w", task.ID, err)
		}
		task.DueDate = &d
	}
	return task, nil
}

func dueValue(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// List returns all tasks, newest first.
func (s *LocalStore) List(ctx context.Context) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC, rowid DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			s.log.Warn("skipping unreadable task row", "error", err)
			continue
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Get returns the task with the given id.
func (s *LocalStore) Get(ctx context.Context, id string) (models.Task, error) {
	return s.get(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *LocalStore) get(ctx context.Context, q queryRower, id string) (models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	task, err := scanTask(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, models.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// Insert builds a task from in and stores it.
func (s *LocalStore) Insert(ctx context.Context, in models.TaskInput) (models.Task, error) {
	task, err := models.NewTask(in, s.now())
	if err != nil {
		return models.Task{}, err
	}

	query := `
	INSERT INTO tasks (` + taskColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query, task.ID, task.Title, task.Description, task.Completed,
		string(task.Priority), dueValue(task.DueDate), task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

// Update applies patch to the task with the given id.
func (s *LocalStore) Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Task{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	current, err := s.get(ctx, tx, id)
	if err != nil {
		return models.Task{}, err
	}

	updated, err := models.ApplyUpdate(current, patch, s.now())
	if err != nil {
		return models.Task{}, err
	}

	query := `
	UPDATE tasks
	SET title = ?, description = ?, completed = ?, priority = ?, due_date = ?, updated_at = ?
	WHERE id = ?
	`
	_, err = tx.ExecContext(ctx, query, updated.Title, updated.Description, updated.Completed,
		string(updated.Priority), dueValue(updated.DueDate), updated.UpdatedAt, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return models.Task{}, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

// Remove deletes the task with the given id.
func (s *LocalStore) Remove(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Count returns the number of stored tasks.
func (s *LocalStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// SeedWelcome inserts the welcome task into an empty store. It reports
// whether anything was inserted.
func (s *LocalStore) SeedWelcome(ctx context.Context) (bool, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count tasks: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	today := models.DateOf(s.now())
	task, err := s.Insert(ctx, models.TaskInput{
		Title:       "Welcome to NexTo!",
		Description: "This is your first task. You can edit, complete, or delete it.",
		DueDate:     &today,
	})
	if err != nil {
		return false, err
	}
	s.log.Info("seeded welcome task", "id", task.ID)
	return true, nil
}
