package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	noticesadapter "github.com/hms-project/hmsctl/internal/adapters/render/notices"
	"github.com/hms-project/hmsctl/internal/domain"
)

var (
	errNoticesRequirePatient = errors.New("notices are only available to a signed-in patient")
	errSessionEnded          = errors.New("session ended, stopped watching notices")
)

func newNoticesCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "notices",
		Short: "Fetch and display patient notices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !app.engine.Enabled() {
				return errNoticesRequirePatient
			}

			if asJSON {
				if err := app.engine.Sync(cmd.Context()); err != nil {
					return fmt.Errorf("sync notices: %w", err)
				}
				return writeNoticesOutput(cmd, app, app.engine.Notices(), true)
			}

			rendered, err := noticesadapter.SyncAndRender(cmd.Context(), cmd.ErrOrStderr(), app.engine.Sync, app.engine.Notices, renderOptions(app))
			if err != nil {
				return fmt.Errorf("sync notices: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.AddCommand(newNoticesWatchCmd(app))

	return cmd
}

func newNoticesWatchCmd(app *app) *cobra.Command {
	var interval time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the backend and print notices whenever they change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				interval = app.config.PollInterval
			}

			return watchNotices(cmd, app, interval, asJSON)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (default from notices.poll_interval)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print each notice list as a JSON line")

	return cmd
}

func watchNotices(cmd *cobra.Command, app *app, interval time.Duration, asJSON bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	updates, unsubscribe := app.engine.Subscribe()
	defer unsubscribe()

	// Drop the list held before polling starts.
	<-updates

	if !app.engine.Start(ctx, interval) {
		return errNoticesRequirePatient
	}
	defer app.engine.Stop()

	sessionCheck := time.NewTicker(interval)
	defer sessionCheck.Stop()

	var last []string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sessionCheck.C:
			if !app.engine.Enabled() {
				return errSessionEnded
			}
		case notices, ok := <-updates:
			if !ok {
				return nil
			}
			keys := noticeFingerprint(notices)
			if last != nil && slices.Equal(last, keys) {
				continue
			}
			last = keys

			if asJSON {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(nonNilNotices(notices)); err != nil {
					return err
				}
				continue
			}
			if err := writeNoticesOutput(cmd, app, notices, false); err != nil {
				return err
			}
		}
	}
}

func writeNoticesOutput(cmd *cobra.Command, app *app, notices []domain.Notice, asJSON bool) error {
	notices = nonNilNotices(notices)

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(notices)
	}

	rendered, err := app.noticeRenderer(notices, renderOptions(app))
	if err != nil {
		return fmt.Errorf("render notices: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func renderOptions(app *app) noticesadapter.RenderOptions {
	return noticesadapter.RenderOptions{
		Now:     app.now(),
		Subject: app.session.SubjectID(),
	}
}

func nonNilNotices(notices []domain.Notice) []domain.Notice {
	if notices == nil {
		return []domain.Notice{}
	}
	return notices
}

// noticeFingerprint ignores CreatedAt so a cycle that changes nothing prints nothing.
func noticeFingerprint(notices []domain.Notice) []string {
	keys := make([]string, 0, len(notices))
	for _, notice := range notices {
		keys = append(keys, notice.Key+"|"+notice.Message)
	}
	return keys
}
