package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"nexto/insights"
	"nexto/models"
	"nexto/views"
)

// parseDue accepts YYYY-MM-DD and the other layouts dateparse knows, such
// as "Oct 20 2026" or "10/20/2026".
func parseDue(s string, loc *time.Location) (models.Date, error) {
	if d, err := models.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := dateparse.ParseIn(strings.TrimSpace(s), loc)
	if err != nil {
		return models.Date{}, &models.ValidationError{Field: "dueDate", Message: fmt.Sprintf("cannot read due date %q", s)}
	}
	return models.DateOf(t), nil
}

func (a *app) listCommand() *cobra.Command {
	var filter, search, sortKey, output string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := views.ParseStatus(filter)
			if err != nil {
				return err
			}
			key, err := views.ParseSortKey(sortKey)
			if err != nil {
				return err
			}
			format, err := parseOutput(output)
			if err != nil {
				return err
			}

			c, err := a.taskClient(cmd.Context())
			if err != nil {
				return err
			}
			tasks := views.Apply(c.Tasks(), views.Query{Status: status, Search: search, Sort: key})

			if ok, err := encode(cmd.OutOrStdout(), format, tasks); ok {
				return err
			}
			return writeTaskTable(cmd.OutOrStdout(), tasks, a.now())
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, active or completed")
	cmd.Flags().StringVarP(&search, "search", "s", "", "match title or description")
	cmd.Flags().StringVar(&sortKey, "sort", "created", "created, dueDate, priority or alphabetical")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "table, json or yaml")
	return cmd
}

func (a *app) addCommand() *cobra.Command {
	var description, priority, due string
	var smart bool
	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add a task",
		Long: `Add a task.

With --smart the title is read as a quick note: words such as "tomorrow",
"next week", "urgent" or "someday" set the due date and priority and are
removed from the title.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			title := strings.Join(args, " ")

			in := models.TaskInput{Title: title}
			if smart {
				in = insights.Enhance(title, now)
			}
			in.Description = description
			if cmd.Flags().Changed("priority") {
				p, err := models.ParsePriority(priority)
				if err != nil {
					return err
				}
				in.Priority = &p
			}
			if due != "" {
				d, err := parseDue(due, now.Location())
				if err != nil {
					return err
				}
				in.DueDate = &d
			}

			c, err := a.taskClient(cmd.Context())
			if err != nil {
				return err
			}
			task, err := c.Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), "Added ")
			return writeTask(cmd.OutOrStdout(), task, now)
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "longer description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "due date, e.g. 2026-10-20")
	cmd.Flags().BoolVar(&smart, "smart", false, "read due date and priority from the title")
	return cmd
}

func (a *app) editCommand() *cobra.Command {
	var title, description, priority, due string
	var clearDue bool
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			flags := cmd.Flags()

			var patch models.TaskPatch
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("priority") {
				p, err := models.ParsePriority(priority)
				if err != nil {
					return err
				}
				patch.Priority = &p
			}
			switch {
			case clearDue:
				patch.ClearDueDate = true
			case flags.Changed("due"):
				d, err := parseDue(due, now.Location())
				if err != nil {
					return err
				}
				patch.DueDate = &d
			}
			if patch.Empty() {
				return fmt.Errorf("nothing to change, pass at least one of --title, --description, --priority, --due, --clear-due")
			}

			c, err := a.taskClient(cmd.Context())
			if err != nil {
				return err
			}
			task, err := c.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), "Updated ")
			return writeTask(cmd.OutOrStdout(), task, now)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description, empty to clear")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "new due date")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	return cmd
}

func (a *app) toggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "toggle ID",
		Aliases: []string{"done"},
		Short:   "Flip a task between open and completed",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.taskClient(cmd.Context())
			if err != nil {
				return err
			}
			task, err := c.ToggleComplete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeTask(cmd.OutOrStdout(), task, a.now())
		},
	}
}

func (a *app) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.taskClient(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func (a *app) clearCompletedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.taskClient(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := c.ClearCompleted(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d completed task(s)\n", removed)
			return err
		},
	}
}
