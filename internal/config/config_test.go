package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-bridge/internal/domain/sensor"
)

// TestValidate checks defaults and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Empty settings get defaults.
	settings := new(Config)

	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, DefaultStateFilename, settings.StateFile)
	require.Equal(t, DefaultPanicDuration, settings.Policy.PanicDuration)
	require.Equal(t, DefaultCaptureInterval, settings.Policy.CaptureInterval)
	require.Equal(t, DefaultArmDelay, settings.Policy.ArmDelay)
	require.Equal(t, DefaultSignatureTolerance, settings.HTTP.SignatureTolerance)
	require.Equal(t, DefaultHTTPListenAddress, settings.HTTP.ListenAddress)

	// PORT overrides the listen address.
	settings = &Config{HTTP: HTTP{ListenAddress: ":1", Port: 9000}}
	require.NoError(t, Validate(settings))
	require.Equal(t, ":9000", settings.HTTP.ListenAddress)

	// Bad gRPC address.
	settings = &Config{GRPC: GRPC{Address: "bad-address"}}
	require.Error(t, Validate(settings))

	// Bad QoS.
	settings = &Config{MQTT: MQTT{QoS: 3}}
	require.Error(t, Validate(settings))

	// Bad broker.
	settings = &Config{MQTT: MQTT{Broker: "not a url"}}
	require.Error(t, Validate(settings))
}

// TestRequireBridge ensures the bridge refuses to start without a bus subscription.
func TestRequireBridge(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.ErrorIs(t, cfg.RequireBridge(), errBrokerRequired)

	cfg.MQTT.Broker = "tcp://127.0.0.1:1883"
	require.ErrorIs(t, cfg.RequireBridge(), errTopicRequired)

	cfg.MQTT.Topic = "tele/+/RESULT"
	cfg.Slack.Token = "xoxb-1"
	require.ErrorIs(t, cfg.RequireBridge(), errChannelRequired)

	cfg.Slack.Channel = "C123"
	require.NoError(t, cfg.RequireBridge())
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		MQTT: MQTT{
			Broker: "tcp://broker.local:1883",
			Topic:  "tele/rf/RESULT",
		},
		GRPC:   GRPC{Address: "127.0.0.1:50051"},
		Policy: Policy{PanicDuration: 2 * time.Minute},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.MQTT.Broker, loaded.MQTT.Broker)
	require.Equal(t, settings.GRPC.Address, loaded.GRPC.Address)
	require.Equal(t, 2*time.Minute, loaded.Policy.PanicDuration)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoad_MissingExplicitFile fails when an explicitly named file is absent.
func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestLoad_EnvironmentOverlay checks that environment variables win over YAML.
// It mutates the process environment, so it does not run in parallel.
func TestLoad_EnvironmentOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mqtt:
  broker: tcp://yaml:1883
  topic: yaml/topic
slack:
  channel: C-YAML
`), DefaultFilePermissions))

	t.Setenv("MQTT", "tcp://env:1883")
	t.Setenv("SILENT_BOOT", "true")
	t.Setenv("PORT", "8181")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "tcp://env:1883", cfg.MQTT.Broker)
	require.Equal(t, "yaml/topic", cfg.MQTT.Topic)
	require.Equal(t, "C-YAML", cfg.Slack.Channel)
	require.True(t, cfg.Slack.SilentBoot)
	require.Equal(t, ":8181", cfg.HTTP.ListenAddress)
}

// TestLoadDotEnv reads a dotenv file without overriding existing variables.
func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ALARM_BRIDGE_TEST_A=file\nALARM_BRIDGE_TEST_B=file\n"), DefaultFilePermissions))

	t.Setenv("ALARM_BRIDGE_TEST_A", "process")
	// Registers cleanup for a variable the file will set.
	t.Setenv("ALARM_BRIDGE_TEST_B", "")
	require.NoError(t, os.Unsetenv("ALARM_BRIDGE_TEST_B"))

	require.NoError(t, LoadDotEnv(path))
	require.Equal(t, "process", os.Getenv("ALARM_BRIDGE_TEST_A"))
	require.Equal(t, "file", os.Getenv("ALARM_BRIDGE_TEST_B"))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

// TestLoadActions parses the device table and resolves camera credentials from the environment.
func TestLoadActions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rfid:
  A1B2:
    type: door
    name: Front Door
  C3D4:
    type: button
    action: doorBell
    meta:
      camera: 1
cameras:
  - id: 1
    name: Porch
    api: http://cam1.local
    snapshot: http://cam1.local/snapshot.jpg
    username: admin
`), DefaultFilePermissions))

	t.Setenv("CAM_PASSWORD_1", "secret")

	actions, err := LoadActions(path)
	require.NoError(t, err)
	require.Equal(t, sensor.Template{Type: "door", Name: "Front Door"}, actions.RFID["A1B2"])
	require.Equal(t, "doorBell", actions.RFID["C3D4"].Action)
	require.Equal(t, 1, actions.RFID["C3D4"].Meta["camera"])
	require.Len(t, actions.Cameras, 1)
	require.Equal(t, "admin", actions.Cameras[0].Username)
	require.Equal(t, "secret", actions.Cameras[0].Password)
}

// TestValidateActions rejects inconsistent tables.
func TestValidateActions(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateActions(new(Actions)))

	err := ValidateActions(&Actions{
		Cameras: []sensor.Camera{
			{ID: 1, API: "http://a"},
			{ID: 1, API: "http://b"},
		},
	})
	require.ErrorIs(t, err, errDuplicateCamera)

	err = ValidateActions(&Actions{Cameras: []sensor.Camera{{ID: 2}}})
	require.ErrorIs(t, err, errCameraAPIRequired)

	err = ValidateActions(&Actions{
		RFID: sensor.ActionTable{"X": {Type: "button"}},
	})
	require.ErrorIs(t, err, errButtonAction)
}
