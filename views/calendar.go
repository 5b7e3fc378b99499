package views

import (
	"sort"
	"time"

	"nexto/models"
)

// ByDate buckets tasks by due date. Tasks without one are left out.
func ByDate(tasks []models.Task) map[models.Date][]models.Task {
	out := make(map[models.Date][]models.Task)
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		out[*t.DueDate] = append(out[*t.DueDate], t)
	}
	return out
}

// WeekStart is the Sunday on or before d.
func WeekStart(d models.Date) models.Date {
	return d.AddDays(-int(d.Weekday()))
}

// Between keeps the tasks due in [from, to], ordered by due date.
func Between(tasks []models.Task, from, to models.Date) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if t.DueDate == nil || t.DueDate.Before(from) || t.DueDate.After(to) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(*out[j].DueDate) })
	return out
}

func Day(tasks []models.Task, d models.Date) []models.Task {
	return Between(tasks, d, d)
}

func Week(tasks []models.Task, d models.Date) []models.Task {
	start := WeekStart(d)
	return Between(tasks, start, start.AddDays(6))
}

func Month(tasks []models.Task, year int, month time.Month) []models.Task {
	first := models.Date{Year: year, Month: month, Day: 1}
	last := models.DateOf(first.In(time.UTC).AddDate(0, 1, -1))
	return Between(tasks, first, last)
}

type CalendarDay struct {
	Date    models.Date
	InMonth bool
	Tasks   []models.Task
}

type CalendarWeek [7]CalendarDay

// MonthGrid lays out the month as whole Sunday-to-Saturday weeks, padding
// with days of the neighbouring months.
func MonthGrid(year int, month time.Month, tasks []models.Task) []CalendarWeek {
	first := models.Date{Year: year, Month: month, Day: 1}
	last := models.DateOf(first.In(time.UTC).AddDate(0, 1, -1))
	start := WeekStart(first)
	end := last.AddDays(6 - int(last.Weekday()))

	buckets := ByDate(tasks)
	var weeks []CalendarWeek
	for d := start; !d.After(end); d = d.AddDays(7) {
		var w CalendarWeek
		for i := range w {
			day := d.AddDays(i)
			w[i] = CalendarDay{
				Date:    day,
				InMonth: day.Month == month && day.Year == year,
				Tasks:   buckets[day],
			}
		}
		weeks = append(weeks, w)
	}
	return weeks
}
