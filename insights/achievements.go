package insights

import (
	"time"

	"nexto/models"
)

type Rarity string

const (
	Bronze   Rarity = "bronze"
	Silver   Rarity = "silver"
	Gold     Rarity = "gold"
	Platinum Rarity = "platinum"
)

type Category string

const (
	CategoryCompletion   Category = "completion"
	CategoryStreak       Category = "streak"
	CategoryProductivity Category = "productivity"
)

type Achievement struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Requirement int      `json:"requirement" yaml:"requirement"`
	Progress    int      `json:"progress" yaml:"progress"`
	Unlocked    bool     `json:"unlocked" yaml:"unlocked"`
	Rarity      Rarity   `json:"rarity" yaml:"rarity"`
	Category    Category `json:"category" yaml:"category"`
}

// Progress is what the achievement table is evaluated against.
type Progress struct {
	TotalCompleted int
	TotalTasks     int
	TodayCompleted int
	Streak         int
	CompletionRate int
}

// Measure derives Progress from tasks. A completed task counts for the day
// of its updatedAt in now's location.
func Measure(tasks []models.Task, now time.Time) Progress {
	today := models.DateOf(now)
	days := make(map[models.Date]bool)

	p := Progress{TotalTasks: len(tasks)}
	for _, t := range tasks {
		if !t.Completed {
			continue
		}
		p.TotalCompleted++
		day := models.DateOf(t.UpdatedAt.In(now.Location()))
		days[day] = true
		if day == today {
			p.TodayCompleted++
		}
	}
	if p.TotalTasks > 0 {
		p.CompletionRate = p.TotalCompleted * 100 / p.TotalTasks
	}
	p.Streak = streak(days, today)
	return p
}

// streak counts consecutive completion days ending today. A streak that
// ended yesterday is still current until today is over.
func streak(days map[models.Date]bool, today models.Date) int {
	d := today
	if !days[d] {
		d = d.AddDays(-1)
	}
	n := 0
	for days[d] {
		n++
		d = d.AddDays(-1)
	}
	return n
}

type rule struct {
	id, title, description string
	requirement            int
	rarity                 Rarity
	category               Category
	value                  func(Progress) int
	unlocked               func(Progress) bool
}

func completed(p Progress) int { return p.TotalCompleted }
func streakDays(p Progress) int { return p.Streak }
func today(p Progress) int      { return p.TodayCompleted }

var rules = []rule{
	{id: "first_task", title: "Getting Started", description: "Complete your first task", requirement: 1, rarity: Bronze, category: CategoryCompletion, value: completed},
	{id: "task_warrior", title: "Task Warrior", description: "Complete 10 tasks", requirement: 10, rarity: Silver, category: CategoryCompletion, value: completed},
	{id: "task_master", title: "Task Master", description: "Complete 50 tasks", requirement: 50, rarity: Gold, category: CategoryCompletion, value: completed},
	{id: "task_legend", title: "Task Legend", description: "Complete 100 tasks", requirement: 100, rarity: Platinum, category: CategoryCompletion, value: completed},

	{id: "consistent", title: "Consistent", description: "Complete tasks for 3 days in a row", requirement: 3, rarity: Bronze, category: CategoryStreak, value: streakDays},
	{id: "dedicated", title: "Dedicated", description: "Complete tasks for 7 days in a row", requirement: 7, rarity: Silver, category: CategoryStreak, value: streakDays},
	{id: "unstoppable", title: "Unstoppable", description: "Complete tasks for 30 days in a row", requirement: 30, rarity: Gold, category: CategoryStreak, value: streakDays},

	{id: "productive_day", title: "Productive Day", description: "Complete 5 tasks in one day", requirement: 5, rarity: Bronze, category: CategoryProductivity, value: today},
	{
		id: "perfectionist", title: "Perfectionist", description: "Achieve 100% completion rate",
		requirement: 100, rarity: Platinum, category: CategoryProductivity,
		value:    func(p Progress) int { return p.CompletionRate },
		unlocked: func(p Progress) bool { return p.CompletionRate == 100 && p.TotalTasks >= 5 },
	},
}

// Achievements evaluates every achievement against tasks.
func Achievements(tasks []models.Task, now time.Time) []Achievement {
	p := Measure(tasks, now)
	out := make([]Achievement, 0, len(rules))
	for _, r := range rules {
		v := r.value(p)
		unlocked := v >= r.requirement
		if r.unlocked != nil {
			unlocked = r.unlocked(p)
		}
		out = append(out, Achievement{
			ID:          r.id,
			Title:       r.title,
			Description: r.description,
			Requirement: r.requirement,
			Progress:    min(v, r.requirement),
			Unlocked:    unlocked,
			Rarity:      r.rarity,
			Category:    r.category,
		})
	}
	return out
}

// Unlocked counts the unlocked entries of as.
func Unlocked(as []Achievement) int {
	n := 0
	for _, a := range as {
		if a.Unlocked {
			n++
		}
	}
	return n
}
