// Package insights turns a task list into short canned observations, task
// suggestions and achievement progress. All of it is rule based.
package insights

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"nexto/models"
	"nexto/views"
)

type Kind string

const (
	KindProductivity Kind = "productivity"
	KindScheduling   Kind = "scheduling"
	KindFocus        Kind = "focus"
	KindCompletion   Kind = "completion"
)

// MaxInsights bounds the result of Generate.
const MaxInsights = 4

type Insight struct {
	Type        Kind   `json:"type" yaml:"type"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Action      string `json:"action,omitempty" yaml:"action,omitempty"`
}

// Generate inspects tasks as of now.
func Generate(tasks []models.Task, now time.Time) []Insight {
	if len(tasks) == 0 {
		return []Insight{{
			Type:        KindProductivity,
			Title:       "Ready to Start!",
			Description: "Create your first task to begin your productivity journey.",
			Action:      "Add a task",
		}}
	}

	s := views.Compute(tasks, now)
	out := []Insight{}

	switch {
	case s.CompletionRate > 80:
		out = append(out, Insight{
			Type:        KindProductivity,
			Title:       "Excellent Progress!",
			Description: fmt.Sprintf("You've completed %.0f%% of your tasks. Keep up the momentum!", s.CompletionRate),
			Action:      "Review completed tasks",
		})
	case s.CompletionRate < 30:
		out = append(out, Insight{
			Type:        KindFocus,
			Title:       "Focus Opportunity",
			Description: "Consider breaking large tasks into smaller, manageable chunks.",
			Action:      "Break down tasks",
		})
	}

	if s.HighPriorityActive > 3 {
		out = append(out, Insight{
			Type:        KindScheduling,
			Title:       "Priority Balance",
			Description: fmt.Sprintf("You have %d high-priority tasks. Consider spreading them across multiple days.", s.HighPriorityActive),
			Action:      "Reschedule tasks",
		})
	}

	if s.Overdue > 0 {
		verb := "task is"
		if s.Overdue > 1 {
			verb = "tasks are"
		}
		out = append(out, Insight{
			Type:        KindCompletion,
			Title:       "Overdue Tasks",
			Description: fmt.Sprintf("%d %s overdue. Consider updating deadlines or priorities.", s.Overdue, verb),
			Action:      "Review overdue tasks",
		})
	}

	if len(out) > MaxInsights {
		out = out[:MaxInsights]
	}
	return out
}

type Analysis struct {
	Priority      models.Priority `json:"priority" yaml:"priority"`
	Category      string          `json:"category" yaml:"category"`
	EstimatedTime string          `json:"estimatedTime" yaml:"estimatedTime"`
	Suggestions   []string        `json:"suggestions" yaml:"suggestions"`
	// DueHint is "today" for high priority work and empty otherwise.
	DueHint string `json:"dueHint,omitempty" yaml:"dueHint,omitempty"`
}

type category struct {
	name     string
	estimate string
	keywords []string
}

// First match wins.
var categories = []category{
	{"Meetings", "60 minutes", []string{"meeting", "call", "interview"}},
	{"Communication", "15 minutes", []string{"email", "message", "reply"}},
	{"Development", "2 hours", []string{"code", "develop", "programming"}},
	{"Design", "90 minutes", []string{"design", "ui", "ux"}},
	{"Research", "45 minutes", []string{"research", "study", "learn"}},
}

var suggestions = map[string][]string{
	"Meetings": {
		"Schedule for morning when energy is highest",
		"Prepare agenda beforehand",
		"Set clear time limits",
	},
	"Development": {
		"Break into smaller subtasks",
		"Use pomodoro technique",
		"Test thoroughly before completing",
	},
	"high": {
		"Consider doing this first today",
		"Block calendar time for focus",
		"Minimize distractions",
	},
	"default": {
		"Consider batching with similar tasks",
		"Schedule during low-energy periods",
		"Set a realistic deadline",
	},
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Analyze guesses priority, category and effort from the wording of a task.
func Analyze(title, description string) Analysis {
	input := strings.ToLower(title + " " + description)

	a := Analysis{
		Priority:      models.PriorityMedium,
		Category:      "General",
		EstimatedTime: "30 minutes",
	}
	switch {
	case containsAny(input, "urgent", "asap", "important"):
		a.Priority = models.PriorityHigh
	case containsAny(input, "later", "someday", "maybe"):
		a.Priority = models.PriorityLow
	}

	for _, c := range categories {
		if containsAny(input, c.keywords...) {
			a.Category, a.EstimatedTime = c.name, c.estimate
			break
		}
	}

	key := "default"
	switch {
	case suggestions[a.Category] != nil:
		key = a.Category
	case a.Priority == models.PriorityHigh:
		key = "high"
	}
	a.Suggestions = append([]string(nil), suggestions[key]...)

	if a.Priority == models.PriorityHigh {
		a.DueHint = "today"
	}
	return a
}

var (
	enhanceWords = regexp.MustCompile(`(?i)\b(today|tomorrow|next week|urgent|asap|critical|when you have time|eventually|someday)\b`)
	spaces       = regexp.MustCompile(`\s+`)
)

// Enhance reads a free-text quick-add line such as "call mum tomorrow asap"
// and returns the task it describes. Due dates are resolved against now.
func Enhance(text string, now time.Time) models.TaskInput {
	input := strings.ToLower(text)
	today := models.DateOf(now)

	var in models.TaskInput
	switch {
	case strings.Contains(input, "today"):
		in.DueDate = &today
	case strings.Contains(input, "tomorrow"):
		d := today.AddDays(1)
		in.DueDate = &d
	case strings.Contains(input, "next week"):
		d := today.AddDays(7)
		in.DueDate = &d
	}

	p := models.PriorityMedium
	switch {
	case containsAny(input, "urgent", "asap", "critical"):
		p = models.PriorityHigh
	case containsAny(input, "when you have time", "eventually", "someday"):
		p = models.PriorityLow
	}
	in.Priority = &p

	title := strings.TrimSpace(spaces.ReplaceAllString(enhanceWords.ReplaceAllString(text, ""), " "))
	in.Title = capitalize(title)
	return in
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
