package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"nexto/models"
	"nexto/views"
)

type outputFormat string

const (
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"
)

func parseOutput(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(s)); f {
	case outputTable, outputJSON, outputYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output %q, want table, json or yaml", s)
}

// encode writes v as json or yaml. ok is false for the table format, which
// every command renders itself.
func encode(w io.Writer, format outputFormat, v any) (ok bool, err error) {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// dueLabel renders a due date relative to now.
func dueLabel(t models.Task, now time.Time) string {
	if t.DueDate == nil {
		return "-"
	}
	today := models.DateOf(now)
	switch {
	case *t.DueDate == today:
		return t.DueDate.String() + " (today)"
	case views.IsOverdue(t, now):
		return t.DueDate.String() + " (overdue)"
	case t.Completed:
		return t.DueDate.String()
	}
	return t.DueDate.String() + " (" + humanize.RelTime(t.DueDate.In(now.Location()), today.In(now.Location()), "ago", "from now") + ")"
}

func writeTaskTable(w io.Writer, tasks []models.Task, now time.Time) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tPRIORITY\tTITLE\tDUE\tCREATED")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, checkbox(t.Completed), t.Priority, t.Title, dueLabel(t, now), humanize.RelTime(t.CreatedAt, now, "ago", "from now"))
	}
	return tw.Flush()
}

func writeTask(w io.Writer, t models.Task, now time.Time) error {
	_, err := fmt.Fprintf(w, "%s %s  %s  [%s]  due %s\n", checkbox(t.Completed), t.ID, t.Title, t.Priority, dueLabel(t, now))
	return err
}
