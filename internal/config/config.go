package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the bridge and the control client.
// Values come from YAML first and are then overridden by environment variables.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	// LogFormat is console or json.
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
	// StateFile is the marker file whose presence means "armed".
	StateFile string `yaml:"state_file" env:"STATUS_FILE"`
	// ActionsFile is the YAML file with the device code table and cameras.
	ActionsFile string `yaml:"actions_file" env:"ACTIONS_FILE"`
	// Timeout bounds every outbound call (chat, cameras, gRPC).
	Timeout time.Duration `yaml:"timeout" env:"OUTBOUND_TIMEOUT"`

	Policy Policy `yaml:"policy"`
	HTTP   HTTP   `yaml:"http"`
	GRPC   GRPC   `yaml:"grpc"`
	MQTT   MQTT   `yaml:"mqtt"`
	Slack  Slack  `yaml:"slack"`
}

// Policy tunes the panic window and the deferred arm.
type Policy struct {
	// PanicDuration is how long a panic window stays open after the last trigger.
	PanicDuration time.Duration `yaml:"panic_duration" env:"PANIC_DURATION"`
	// CaptureInterval is the period of the capture-forward tick while panicking.
	CaptureInterval time.Duration `yaml:"capture_interval" env:"CAPTURE_INTERVAL"`
	// ArmDelay is the delay used by the arm-delayed command.
	ArmDelay time.Duration `yaml:"arm_delay" env:"ARM_DELAY"`
}

// HTTP configures the command and wall-panel endpoints.
type HTTP struct {
	// ListenAddress is the HTTP bind address, e.g. ":8080".
	ListenAddress string `yaml:"listen_addr" env:"HTTP_LISTEN_ADDR"`
	// Port overrides the port of ListenAddress; kept for PORT-style deployments.
	Port int `yaml:"-" env:"PORT"`
	// SigningSecret is the shared secret for slash-command signatures.
	SigningSecret string `yaml:"signing_secret" env:"SLACK_SIGNING_SECRET"`
	// SignatureTolerance is the allowed clock skew of X-Request-Timestamp.
	SignatureTolerance time.Duration `yaml:"signature_tolerance" env:"SIGNATURE_TOLERANCE"`
	// FrontPassword gates the wall-panel endpoints.
	FrontPassword string `yaml:"front_password" env:"FRONT_PASSWORD"`
}

// GRPC configures the control API.
type GRPC struct {
	// Address is dialed by alarm-ctl; the server listens on its port.
	// Empty disables the control API.
	Address string `yaml:"server_addr" env:"GRPC_ADDR"`
}

// MQTT configures the sensor bus subscription.
type MQTT struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker string `yaml:"broker" env:"MQTT"`
	// Topic is the subscription filter.
	Topic string `yaml:"topic" env:"MQTT_TOPIC"`
	// ClientID identifies the bridge to the broker.
	ClientID string `yaml:"client_id" env:"MQTT_CLIENT_ID"`
	// Username is optional broker authentication.
	Username string `yaml:"username" env:"MQTT_USERNAME"`
	// Password is optional broker authentication.
	Password string `yaml:"password" env:"MQTT_PASSWORD"`
	// QoS is the subscription quality of service (0, 1 or 2).
	QoS byte `yaml:"qos" env:"MQTT_QOS"`
}

// Slack configures the chat notifier.
type Slack struct {
	// Token is the bot token.
	Token string `yaml:"token" env:"SLACK_TOKEN"`
	// Channel receives alerts and uploads.
	Channel string `yaml:"channel" env:"SLACK_CHANNEL"`
	// Username is the display name of posted messages.
	Username string `yaml:"username" env:"SLACK_USERNAME"`
	// IconEmoji is the avatar of posted messages.
	IconEmoji string `yaml:"icon_emoji" env:"SLACK_ICON_EMOJI"`
	// SilentBoot suppresses the startup announcement.
	SilentBoot bool `yaml:"silent_boot" env:"SILENT_BOOT"`
	// APIURL overrides the Slack Web API base URL.
	APIURL string `yaml:"api_url" env:"SLACK_API_URL"`
}

const (
	// DefaultConfigFilename is the default filename for bridge settings.
	DefaultConfigFilename = "alarm-bridge.yaml"

	// DefaultEnvFilename is the optional dotenv file read before the environment overlay.
	DefaultEnvFilename = ".env"

	// DefaultStateFilename is the default marker file.
	DefaultStateFilename = "alarm-bridge.armed"

	// DefaultActionsFilename is the default device table.
	DefaultActionsFilename = "actions.yaml"

	// DefaultTimeout is the default duration for outbound calls.
	DefaultTimeout = 10 * time.Second

	// DefaultPanicDuration is how long a panic window stays open.
	DefaultPanicDuration = 10 * time.Minute

	// DefaultCaptureInterval is the capture-forward period while panicking.
	DefaultCaptureInterval = 30 * time.Second

	// DefaultArmDelay is the delay of the arm-delayed command.
	DefaultArmDelay = 5 * time.Minute

	// DefaultSignatureTolerance is the accepted request timestamp skew.
	DefaultSignatureTolerance = 300 * time.Second

	// DefaultHTTPListenAddress is used when no address or PORT is configured.
	DefaultHTTPListenAddress = ":8080"

	// DefaultMQTTClientID identifies the bridge on the broker.
	DefaultMQTTClientID = "alarm-bridge"

	// DefaultSlackUsername is the display name of bot messages.
	DefaultSlackUsername = "Alarm bridge"

	// DefaultSlackIconEmoji is the avatar of bot messages.
	DefaultSlackIconEmoji = ":factory:"

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600

	// maxQoS is the highest MQTT quality of service level.
	maxQoS = 2
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBrokerRequired is returned when the bridge has no MQTT broker.
	errBrokerRequired = errors.New("mqtt broker must be provided")
	// errTopicRequired is returned when the bridge has no MQTT topic.
	errTopicRequired = errors.New("mqtt topic must be provided")
	// errChannelRequired is returned when a chat token is set without a channel.
	errChannelRequired = errors.New("slack channel must be provided")
	// errInvalidQoS is returned for QoS values above 2.
	errInvalidQoS = errors.New("mqtt qos must be 0, 1 or 2")
	// ErrServerAddressRequired is returned when the control API address is missing.
	ErrServerAddressRequired = errors.New("grpc server address must be provided")
)

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment.
// Variables already present in the environment win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultEnvFilename
	}

	err := godotenv.Load(filepath.Clean(path))
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load env file: %w", err)
}

// Load reads configuration from the provided path, applies the environment
// overlay and validates the result. The default file may be absent, in which
// case the configuration comes from the environment alone.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Environment-only deployment.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Secrets live in this file, so restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the formats of the provided settings.
// Fields that only the bridge needs are checked by RequireBridge.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	applyDefaults(settings)

	if _, _, err := net.SplitHostPort(settings.HTTP.ListenAddress); err != nil {
		return fmt.Errorf("invalid http listen address: %w", err)
	}

	if settings.GRPC.Address != "" {
		if _, _, err := net.SplitHostPort(settings.GRPC.Address); err != nil {
			return fmt.Errorf("invalid grpc server address: %w", err)
		}
	}

	if settings.MQTT.Broker != "" {
		if _, err := url.ParseRequestURI(settings.MQTT.Broker); err != nil {
			return fmt.Errorf("invalid mqtt broker URI: %w", err)
		}
	}

	if settings.MQTT.QoS > maxQoS {
		return errInvalidQoS
	}

	if settings.Slack.APIURL != "" {
		if _, err := url.ParseRequestURI(settings.Slack.APIURL); err != nil {
			return fmt.Errorf("invalid slack api URI: %w", err)
		}
	}

	return nil
}

// RequireBridge checks the settings the bridge cannot start without.
func (c *Config) RequireBridge() error {
	if c.MQTT.Broker == "" {
		return errBrokerRequired
	}

	if c.MQTT.Topic == "" {
		return errTopicRequired
	}

	if c.Slack.Token != "" && c.Slack.Channel == "" {
		return errChannelRequired
	}

	return nil
}

// applyDefaults sets every zero value that has a sensible default.
func applyDefaults(settings *Config) {
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.StateFile == "" {
		settings.StateFile = DefaultStateFilename
	}

	if settings.ActionsFile == "" {
		settings.ActionsFile = DefaultActionsFilename
	}

	if settings.Policy.PanicDuration <= 0 {
		settings.Policy.PanicDuration = DefaultPanicDuration
	}

	if settings.Policy.CaptureInterval <= 0 {
		settings.Policy.CaptureInterval = DefaultCaptureInterval
	}

	if settings.Policy.ArmDelay <= 0 {
		settings.Policy.ArmDelay = DefaultArmDelay
	}

	if settings.HTTP.Port > 0 {
		settings.HTTP.ListenAddress = ":" + strconv.Itoa(settings.HTTP.Port)
		settings.HTTP.Port = 0
	}

	if settings.HTTP.ListenAddress == "" {
		settings.HTTP.ListenAddress = DefaultHTTPListenAddress
	}

	if settings.HTTP.SignatureTolerance <= 0 {
		settings.HTTP.SignatureTolerance = DefaultSignatureTolerance
	}

	if settings.MQTT.ClientID == "" {
		settings.MQTT.ClientID = DefaultMQTTClientID
	}

	if settings.Slack.Username == "" {
		settings.Slack.Username = DefaultSlackUsername
	}

	if settings.Slack.IconEmoji == "" {
		settings.Slack.IconEmoji = DefaultSlackIconEmoji
	}
}
