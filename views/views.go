// Package views derives what the task screens show from a cached task
// list. Nothing here holds state; every function takes the list and returns
// a new slice or value.
package views

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"nexto/models"
)

type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusActive:
		return StatusActive, nil
	case StatusCompleted:
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown filter %q, want all, active or completed", s)
}

type SortKey string

const (
	SortCreated      SortKey = "created"
	SortDueDate      SortKey = "dueDate"
	SortPriority     SortKey = "priority"
	SortAlphabetical SortKey = "alphabetical"
)

func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "created":
		return SortCreated, nil
	case "duedate", "due":
		return SortDueDate, nil
	case "priority":
		return SortPriority, nil
	case "alphabetical", "title":
		return SortAlphabetical, nil
	}
	return "", fmt.Errorf("unknown sort %q, want created, dueDate, priority or alphabetical", s)
}

// Filter keeps the tasks matching status.
func Filter(tasks []models.Task, status Status) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		switch status {
		case StatusActive:
			if t.Completed {
				continue
			}
		case StatusCompleted:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// Search keeps tasks whose title or description contains q, ignoring case.
func Search(tasks []models.Task, q string) []models.Task {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if q == "" ||
			strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out
}

// Sort returns a sorted copy of tasks. Ties keep their input order.
func Sort(tasks []models.Task, key SortKey) []models.Task {
	out := make([]models.Task, len(tasks))
	copy(out, tasks)

	var less func(a, b models.Task) bool
	switch key {
	case SortDueDate:
		less = func(a, b models.Task) bool {
			switch {
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			}
			return a.DueDate.Before(*b.DueDate)
		}
	case SortPriority:
		less = func(a, b models.Task) bool {
			return a.Priority.Rank() > b.Priority.Rank()
		}
	case SortAlphabetical:
		less = func(a, b models.Task) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	default:
		less = func(a, b models.Task) bool {
			return a.CreatedAt.After(b.CreatedAt)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

type Query struct {
	Status Status
	Search string
	Sort   SortKey
}

// Apply runs search, filter and sort in that order.
func Apply(tasks []models.Task, q Query) []models.Task {
	return Sort(Filter(Search(tasks, q.Search), q.Status), q.Sort)
}

type Stats struct {
	Total              int     `json:"total" yaml:"total"`
	Completed          int     `json:"completed" yaml:"completed"`
	Active             int     `json:"active" yaml:"active"`
	Overdue            int     `json:"overdue" yaml:"overdue"`
	DueToday           int     `json:"dueToday" yaml:"dueToday"`
	HighPriorityActive int     `json:"highPriorityActive" yaml:"highPriorityActive"`
	CompletionRate     float64 `json:"completionRate" yaml:"completionRate"`
}

// IsOverdue reports whether t is open and was due before today.
func IsOverdue(t models.Task, now time.Time) bool {
	if t.Completed || t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(models.DateOf(now))
}

// Compute aggregates the counts shown on the dashboard. Dates are judged
// in now's location.
func Compute(tasks []models.Task, now time.Time) Stats {
	today := models.DateOf(now)
	var s Stats
	for _, t := range tasks {
		s.Total++
		if t.Completed {
			s.Completed++
			continue
		}
		s.Active++
		if t.Priority == models.PriorityHigh {
			s.HighPriorityActive++
		}
		if IsOverdue(t, now) {
			s.Overdue++
		}
		if t.DueDate != nil && *t.DueDate == today {
			s.DueToday++
		}
	}
	if s.Total > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.Total) * 100
	}
	return s
}
