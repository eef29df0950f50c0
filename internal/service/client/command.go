package client

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/alarm-bridge/internal/config"
	domain "github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/service/common"
)

// Options configures alarm client behavior for state change operations.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// DesiredState represents target alarm state (true=armed, false=disarmed).
	DesiredState bool

	// Retry keeps pushing until the bridge confirms the state or ctx is canceled.
	Retry bool
}

// defaultPushInterval defines retry delay when pushing alarm state to the bridge.
const defaultPushInterval = 1 * time.Second

// Run sets the alarm state, optionally retrying until success or cancellation.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-ctl")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.GRPC.Address
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	if serverAddress == "" {
		return config.ErrServerAddressRequired
	}

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Pushing desired alarm state", "server_address", serverAddress, "armed", opts.DesiredState)

	// attempt tries once to change alarm state and reports whether it is done.
	attempt := func() (bool, error) {
		state, err := client.SetAlarmState(ctx, actor, opts.DesiredState)
		if err != nil {
			if !opts.Retry {
				return false, err
			}

			// Log error but continue retrying for transient failures.
			logger.ErrorKV(ctx, "SetAlarmState failed", "error", err)

			return false, nil
		}

		if state.Armed != opts.DesiredState {
			return false, nil
		}

		logger.Infof(ctx, "Alarm updated: %s", FormatState(state))

		return true, nil
	}

	done, err := attempt()
	if err != nil || done {
		return err
	}

	if !opts.Retry {
		return fmt.Errorf("bridge reported armed=%t", !opts.DesiredState)
	}

	ticker := time.NewTicker(defaultPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil {
				return err
			}

			if done {
				return nil
			}
		}
	}
}

// FormatState renders a state for log lines and terminal output.
func FormatState(state *domain.State) string {
	if state == nil {
		return "<nil state>"
	}

	status := "disarmed"
	if state.Armed {
		status = "armed"
	}

	details := ""
	if state.Armed && !state.ArmedAt.IsZero() {
		details += " since " + state.ArmedAt.Local().Format(time.RFC3339)
	}

	if state.ArmPending {
		details += ", arming at " + state.ArmAt.Local().Format(time.RFC3339)
	}

	if state.Panicking {
		details += ", panicking until " + state.PanicExpiresAt.Local().Format(time.RFC3339)
	}

	return fmt.Sprintf("%s%s, last change by %s", status, details, state.LastActor)
}
