package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-bridge/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-bridge/internal/api/mqtt"
	"github.com/oshokin/alarm-bridge/internal/api/rest"
	"github.com/oshokin/alarm-bridge/internal/camera"
	"github.com/oshokin/alarm-bridge/internal/classifier"
	"github.com/oshokin/alarm-bridge/internal/config"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/metrics"
	"github.com/oshokin/alarm-bridge/internal/notifier"
	repository "github.com/oshokin/alarm-bridge/internal/repository/state"
	"github.com/oshokin/alarm-bridge/internal/service/common"
	"github.com/oshokin/alarm-bridge/internal/service/policy"
)

// Options controls the alarm-bridge process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// EnvFile is the optional dotenv file loaded before the environment overlay.
	EnvFile string
	// ActionsFile overrides the device table path from the settings.
	ActionsFile string
	// StateFile overrides the marker file path from the settings.
	StateFile string
	// GRPCListenAddress overrides the gRPC listen address.
	GRPCListenAddress string
	// SingleInstance refuses to start when another bridge process is running.
	SingleInstance bool
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run loads the configuration, wires every component and blocks until ctx is
// canceled or one of the servers fails.
//
//nolint:funlen // Wiring reads best in one place.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-bridge")

	if err := config.LoadDotEnv(opts.EnvFile); err != nil {
		return err
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	logger.Configure(settings.LogLevel, settings.LogFormat)

	if err = settings.RequireBridge(); err != nil {
		return fmt.Errorf("check settings: %w", err)
	}

	if opts.SingleInstance {
		if err = common.EnsureSingleInstance(); err != nil {
			return err
		}
	}

	actionsFile := settings.ActionsFile
	if opts.ActionsFile != "" {
		actionsFile = opts.ActionsFile
	}

	actions, err := config.LoadActions(actionsFile)
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}

	stateFile := settings.StateFile
	if opts.StateFile != "" {
		stateFile = opts.StateFile
	}

	collectors := metrics.New()
	markers := repository.NewMarkerRepository(stateFile)
	codes := classifier.New(actions.RFID)

	engine, err := policy.New(ctx, policy.Options{
		Repository:      markers,
		Notifier:        newNotifier(ctx, settings),
		Poller:          camera.NewClient(actions.Cameras, camera.WithTimeout(settings.Timeout)),
		Metrics:         collectors,
		Channel:         settings.Slack.Channel,
		PanicDuration:   settings.Policy.PanicDuration,
		CaptureInterval: settings.Policy.CaptureInterval,
		ArmDelay:        settings.Policy.ArmDelay,
		Timeout:         settings.Timeout,
	})
	if err != nil {
		return fmt.Errorf("initialise policy: %w", err)
	}

	defer engine.Close()

	logger.InfoKV(ctx, "Alarm bridge starting",
		"armed", engine.Armed(ctx),
		"state_file", markers.Path(),
		"devices", len(actions.RFID),
		"cameras", len(actions.Cameras),
	)

	logger.DebugKV(ctx, "Device codes loaded", "codes", codes.Codes())

	if !settings.Slack.SilentBoot {
		engine.Announce(ctx)
	}

	mqtt.RouteLibraryLogs(logger.Level() == zapcore.DebugLevel)

	subscriber := mqtt.NewSubscriber(mqtt.Options{
		Broker:         settings.MQTT.Broker,
		Topic:          settings.MQTT.Topic,
		ClientID:       settings.MQTT.ClientID,
		Username:       settings.MQTT.Username,
		Password:       settings.MQTT.Password,
		QoS:            settings.MQTT.QoS,
		ConnectTimeout: settings.Timeout,
	}, codes, engine)

	if err = subscriber.Start(ctx); err != nil {
		return fmt.Errorf("start subscriber: %w", err)
	}

	defer subscriber.Stop()

	httpServer := rest.New(engine, rest.Options{
		ListenAddress:      settings.HTTP.ListenAddress,
		SigningSecret:      settings.HTTP.SigningSecret,
		SignatureTolerance: settings.HTTP.SignatureTolerance,
		FrontPassword:      settings.HTTP.FrontPassword,
		ArmDelay:           settings.Policy.ArmDelay,
		Metrics:            collectors,
	})

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return httpServer.Run(groupCtx)
	})

	grpcAddress, err := resolveListenAddress(settings.GRPC.Address, opts.GRPCListenAddress)

	switch {
	case err == nil:
		group.Go(func() error {
			return serveGRPC(groupCtx, grpcAddress, engine)
		})
	case errors.Is(err, ErrNoServerAddress):
		logger.Info(ctx, "gRPC control API disabled")
	default:
		return fmt.Errorf("resolve listen address: %w", err)
	}

	if err = group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Alarm bridge stopped")

	return nil
}

func newNotifier(ctx context.Context, settings *config.Config) notifier.Notifier {
	if settings.Slack.Token == "" {
		logger.Warn(ctx, "Slack token is not set, notifications are discarded")

		return notifier.Nop{}
	}

	slackOptions := []notifier.SlackOption{
		notifier.WithIdentity(settings.Slack.Username, settings.Slack.IconEmoji),
		notifier.WithHTTPTimeout(settings.Timeout),
	}

	if settings.Slack.APIURL != "" {
		slackOptions = append(slackOptions, notifier.WithAPIURL(settings.Slack.APIURL))
	}

	return notifier.NewSlack(settings.Slack.Token, slackOptions...)
}

// serveGRPC runs the control API until ctx is canceled.
func serveGRPC(ctx context.Context, listenAddress string, service api.Service) error {
	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterAlarmServiceServer(grpcServer, api.NewServer(service))

	logger.InfoKV(ctx, "Control API listening", "listen_address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}
