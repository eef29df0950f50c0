package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-bridge/internal/config"
	"github.com/oshokin/alarm-bridge/internal/service/bridge"
	"github.com/oshokin/alarm-bridge/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// envFile is the dotenv file read before the environment overlay.
	envFile string
	// actionsFile overrides the device table path.
	actionsFile string
	// stateFile overrides the marker file path.
	stateFile string
	// singleInstance refuses to start next to another bridge process.
	singleInstance bool

	// rootCmd represents the base command for running the bridge.
	rootCmd = &cobra.Command{
		Use:   "alarm-bridge [grpc-listen-address]",
		Short: "Bridge RF sensor events from MQTT to Slack.",
		Long: `Subscribes to the MQTT topic of an RF gateway, classifies device codes and,
while the alarm is armed, raises a panic window that posts alerts and camera
captures to a Slack channel.

Slash commands and the wall panel are served over HTTP. The alarm-ctl control
API is served over gRPC on the port of grpc.server_addr, or on the address
given as argument. The armed flag survives restarts through a marker file.

Settings come from the YAML file and are overridden by environment variables.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return bridge.Run(ctx, &bridge.Options{
				ConfigPath:        configPath,
				EnvFile:           envFile,
				ActionsFile:       actionsFile,
				StateFile:         stateFile,
				GRPCListenAddress: listenAddress,
				SingleInstance:    singleInstance,
			})
		},
	}
)

// Execute runs the alarm-bridge CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Empty paths fall back to the settings, then to the defaults.
	rootCmd.Flags().
		StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+")")
	rootCmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFilename, "path to optional dotenv file")
	rootCmd.Flags().StringVarP(&actionsFile, "actions", "a", "", "path to device table (default "+config.DefaultActionsFilename+")")
	rootCmd.Flags().
		StringVarP(&stateFile, "state-file", "s", "", "path to armed marker file (default "+config.DefaultStateFilename+")")
	rootCmd.Flags().BoolVar(&singleInstance, "single-instance", false, "refuse to start when another bridge is running")
}
