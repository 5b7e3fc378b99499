package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"nexto/insights"
	"nexto/models"
	"nexto/views"
)

func outputFlag(cmd *cobra.Command, output *string) {
	cmd.Flags().StringVarP(output, "output", "o", "table", "table, json or yaml")
}

func (a *app) statsCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseOutput(output)
			if err != nil {
				return err
			}
			c, err := a.taskClient(cmd.Context())
			if err != nil {
				return err
			}
			s := views.Compute(c.Tasks(), a.now())
			if ok, err := encode(cmd.OutOrStdout(), format, s); ok {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Total\t%d\n", s.Total)
			fmt.Fprintf(tw, "Completed\t%d\n", s.Completed)
			fmt.Fprintf(tw, "Active\t%d\n", s.Active)
			fmt.Fprintf(tw, "Overdue\t%d\n", s.Overdue)
			fmt.Fprintf(tw, "Due today\t%d\n", s.DueToday)
			fmt.Fprintf(tw, "High priority\t%d\n", s.HighPriorityActive)
			fmt.Fprintf(tw, "Completion\t%.0f%%\n", s.CompletionRate)
			return tw.Flush()
		},
	}
	outputFlag(cmd, &output)
	return cmd
}

func (a *app) insightsCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Suggestions based on the current task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseOutput(output)
			if err != nil {
				return err
			}
			c, err := a.taskClient(cmd.Context())
			if err != nil {
				return err
			}
			list := insights.Generate(c.Tasks(), a.now())
			if ok, err := encode(cmd.OutOrStdout(), format, list); ok {
				return err
			}
			w := cmd.OutOrStdout()
			for _, in := range list {
				fmt.Fprintf(w, "* %s\n  %s\n", in.Title, in.Description)
				if in.Action != "" {
					fmt.Fprintf(w, "  -> %s\n", in.Action)
				}
			}
			return nil
		},
	}
	outputFlag(cmd, &output)
	return cmd
}

func (a *app) achievementsCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "achievements",
		Short: "Show goals and achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseOutput(output)
			if err != nil {
				return err
			}
			c, err := a.taskClient(cmd.Context())
			if err != nil {
				return err
			}
			list := insights.Achievements(c.Tasks(), a.now())
			if ok, err := encode(cmd.OutOrStdout(), format, list); ok {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d/%d unlocked\n\n", insights.Unlocked(list), len(list))
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "\tACHIEVEMENT\tRARITY\tPROGRESS\tGOAL")
			for _, ach := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\n",
					checkbox(ach.Unlocked), ach.Title, ach.Rarity, ach.Progress, ach.Requirement, ach.Description)
			}
			return tw.Flush()
		},
	}
	outputFlag(cmd, &output)
	return cmd
}

func (a *app) calendarCommand() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show a month with the tasks due on each day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := a.now()
			year, mon := now.Year(), now.Month()
			if month != "" {
				t, err := time.Parse("2006-01", month)
				if err != nil {
					return fmt.Errorf("invalid --month %q, want YYYY-MM", month)
				}
				year, mon = t.Year(), t.Month()
			}

			c, err := a.taskClient(cmd.Context())
			if err != nil {
				return err
			}
			return writeCalendar(cmd.OutOrStdout(), year, mon, c.Tasks())
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month to show as YYYY-MM, default the current one")
	return cmd
}

func writeCalendar(w io.Writer, year int, month time.Month, tasks []models.Task) error {
	fmt.Fprintf(w, "%s %d\n", month, year)
	fmt.Fprintln(w, " Su  Mo  Tu  We  Th  Fr  Sa")

	grid := views.MonthGrid(year, month, tasks)
	for _, week := range grid {
		var line strings.Builder
		for _, day := range week {
			switch {
			case !day.InMonth:
				line.WriteString("    ")
			case len(day.Tasks) > 0:
				fmt.Fprintf(&line, "%3d*", day.Date.Day)
			default:
				fmt.Fprintf(&line, "%3d ", day.Date.Day)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}

	due := views.Month(tasks, year, month)
	if len(due) == 0 {
		_, err := fmt.Fprintln(w, "\nNothing due this month.")
		return err
	}
	fmt.Fprintln(w)
	for _, t := range due {
		fmt.Fprintf(w, "%s %s %s\n", t.DueDate, checkbox(t.Completed), t.Title)
	}
	return nil
}
