package checker

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/alarm-bridge/internal/config"
	domain "github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/service/client"
	"github.com/oshokin/alarm-bridge/internal/service/common"
)

// Options controls the checker polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between alarm state checks.
	PollInterval time.Duration
	// Watch keeps polling and reports every change until ctx is canceled.
	// Otherwise the state is printed once.
	Watch bool
	// Output receives the rendered state.
	Output io.Writer
}

// DefaultPollInterval defines the polling interval for watch mode.
const DefaultPollInterval = 5 * time.Second

// Run prints the alarm state once, or keeps printing changes in watch mode.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-ctl")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	if opts.Output == nil {
		opts.Output = io.Discard
	}

	// Determine server address: command line argument overrides config.
	serverAddress := cfg.GRPC.Address
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	if serverAddress == "" {
		return config.ErrServerAddressRequired
	}

	// Detect current system actor for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	conn, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = conn.Close()
	}()

	if !opts.Watch {
		state, err := conn.GetAlarmState(ctx, actor)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(opts.Output, client.FormatState(state))

		return err
	}

	logger.InfoKV(ctx, "Watching alarm state", "server_address", serverAddress, "interval", opts.PollInterval.String())

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	var last *domain.State

	for {
		state, err := conn.GetAlarmState(ctx, actor)
		if err != nil {
			logger.ErrorKV(ctx, "Check state failed", "error", err)
		} else if changed(last, state) {
			last = state

			if _, err = fmt.Fprintln(opts.Output, client.FormatState(state)); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
		}
	}
}

// changed reports whether the parts of the state a watcher cares about differ.
func changed(previous, current *domain.State) bool {
	if previous == nil {
		return true
	}

	return previous.Armed != current.Armed ||
		previous.Panicking != current.Panicking ||
		previous.ArmPending != current.ArmPending
}
