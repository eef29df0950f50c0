package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-bridge/internal/config"
	"github.com/oshokin/alarm-bridge/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverAddress overrides grpc.server_addr from the configuration.
	serverAddress string

	// rootCmd groups the control commands.
	rootCmd = &cobra.Command{
		Use:   "alarm-ctl",
		Short: "Control a running alarm bridge.",
		Long: `Talks to the gRPC control API of alarm-bridge.

The server address is read from grpc.server_addr or the GRPC_ADDR variable,
and can be overridden with --server. The calling user and host are sent along
with every request and show up in the bridge logs and state.`,
		SilenceUsage: true,
	}
)

// Execute runs the alarm-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is canceled on SIGTERM or SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+")")
	rootCmd.PersistentFlags().StringVar(&serverAddress, "server", "", "bridge control API address, host:port")

	rootCmd.AddCommand(newSetCommand(true), newSetCommand(false), newStatusCommand(), newWatchCommand())
}
