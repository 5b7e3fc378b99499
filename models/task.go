package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority accepts low, medium or high in any case.
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	}
	return "", &ValidationError{Field: "priority", Message: "priority must be one of low, medium, high"}
}

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Rank orders priorities high > medium > low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type Task struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Completed   bool      `json:"completed" yaml:"completed"`
	Priority    Priority  `json:"priority" yaml:"priority"`
	DueDate     *Date     `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// TaskInput carries the fields accepted when a task is created.
type TaskInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *Date     `json:"dueDate,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title        *string
	Description  *string
	Completed    *bool
	Priority     *Priority
	DueDate      *Date
	ClearDueDate bool
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.DueDate == nil && !p.ClearDueDate
}

// Stamp normalises a clock reading to the precision both stores keep.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// NewTask builds a task with a fresh id, defaults applied and
// createdAt == updatedAt == now.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Task{}, &ValidationError{Field: "title", Message: "title is required"}
	}

	priority := PriorityMedium
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return Task{}, &ValidationError{Field: "priority", Message: "priority must be one of low, medium, high"}
		}
		priority = *in.Priority
	}

	ts := Stamp(now)
	task := Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: in.Description,
		Priority:    priority,
		DueDate:     in.DueDate,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if in.Completed != nil {
		task.Completed = *in.Completed
	}
	return task, nil
}

// ApplyUpdate merges patch into task. ID and CreatedAt never change and
// UpdatedAt always moves forward.
func ApplyUpdate(task Task, patch TaskPatch, now time.Time) (Task, error) {
	out := task

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return Task{}, &ValidationError{Field: "title", Message: "title cannot be empty"}
		}
		out.Title = title
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return Task{}, &ValidationError{Field: "priority", Message: "priority must be one of low, medium, high"}
		}
		out.Priority = *patch.Priority
	}
	if patch.Description != nil {
		out.Description = *patch.Description
	}
	if patch.Completed != nil {
		out.Completed = *patch.Completed
	}
	switch {
	case patch.ClearDueDate:
		out.DueDate = nil
	case patch.DueDate != nil:
		d := *patch.DueDate
		out.DueDate = &d
	}

	ts := Stamp(now)
	if !ts.After(task.UpdatedAt) {
		ts = task.UpdatedAt.Add(time.Microsecond)
	}
	out.ID = task.ID
	out.CreatedAt = task.CreatedAt
	out.UpdatedAt = ts
	return out, nil
}
