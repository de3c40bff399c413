package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newRemindersCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Manage dismissed expired-task reminders",
	}

	cmd.AddCommand(
		newRemindersIgnoreCmd(app),
		newRemindersIgnoredCmd(app),
		newRemindersCheckCmd(app),
		newRemindersClearCmd(app),
	)

	return cmd
}

func newRemindersIgnoreCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ignore <task-id>...",
		Short: "Stop reminding about the given expired tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseTaskIDs(args)
			if err != nil {
				return err
			}

			for _, id := range ids {
				app.exclusions.Add(cmd.Context(), id)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Ignoring %d task(s)\n", len(ids))
			return err
		},
	}
}

func newRemindersIgnoredCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ignored",
		Short: "List ignored task ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids := app.exclusions.Load(cmd.Context()).Sorted()

			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(ids)
			}

			if len(ids) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No ignored tasks")
				return err
			}
			for _, id := range ids {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newRemindersCheckCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <task-id>",
		Short: "Report whether a task reminder is ignored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseTaskIDs(args)
			if err != nil {
				return err
			}

			state := "not ignored"
			if app.exclusions.Contains(cmd.Context(), ids[0]) {
				state = "ignored"
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", ids[0], state)
			return err
		},
	}
}

func newRemindersClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget all ignored task ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.exclusions.Clear(cmd.Context())

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Cleared ignored tasks")
			return err
		},
	}
}

func parseTaskIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid task id %q: must be an integer", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
