package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var a *app

	rootCmd := &cobra.Command{
		Use:           "hmsctl",
		Short:         "Hospital management client: session state and patient notices",
		Long:          "hmsctl keeps a hospital-management session on this machine, derives the signed-in role from its token, and reconciles patient notices (pending payments, refunds, visits due today) from the backend.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a != nil {
				a.close()
			}
		},
	}

	wired, err := wireApp(context.Background(), rootCmd.ErrOrStderr())
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}
	a = wired

	rootCmd.AddCommand(
		newVersionCmd(),
		newSessionCmd(a),
		newNoticesCmd(a),
		newRemindersCmd(a),
	)

	return rootCmd
}
