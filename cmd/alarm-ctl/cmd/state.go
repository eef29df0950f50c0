package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-bridge/internal/service/checker"
	"github.com/oshokin/alarm-bridge/internal/service/client"
)

// newSetCommand builds the arm or disarm command.
func newSetCommand(armed bool) *cobra.Command {
	var retry bool

	use, short := "disarm", "Disarm the alarm."
	if armed {
		use, short = "arm", "Arm the alarm."
	}

	command := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `

With --retry the request is repeated every second until the bridge confirms
the state or the command is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return client.Run(ctx, &client.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				DesiredState:  armed,
				Retry:         retry,
			})
		},
	}

	command.Flags().BoolVar(&retry, "retry", false, "retry until the bridge confirms the state")

	return command
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the alarm state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return checker.Run(ctx, &checker.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				Output:        cmd.OutOrStdout(),
			})
		},
	}
}

func newWatchCommand() *cobra.Command {
	var interval time.Duration

	command := &cobra.Command{
		Use:   "watch",
		Short: "Print the alarm state whenever it changes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return checker.Run(ctx, &checker.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				PollInterval:  interval,
				Watch:         true,
				Output:        cmd.OutOrStdout(),
			})
		},
	}

	command.Flags().DurationVarP(&interval, "interval", "i", checker.DefaultPollInterval, "poll interval")

	return command
}
