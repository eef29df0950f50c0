package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-bridge/internal/config"
	"github.com/oshokin/alarm-bridge/internal/service/bridge"
)

const (
	// frontPassword gates the wall panel of the test bridge.
	frontPassword = "letmein"
	// signingSecret signs slash commands sent to the test bridge.
	signingSecret = "8f742231b10e8888abcd99yyyzzz85a5"
)

// testBridge describes a bridge started by startBridge.
type testBridge struct {
	// configPath is the settings file the bridge was started with.
	configPath string
	// stateFile is the armed marker.
	stateFile string
	// httpAddress serves commands and the wall panel.
	httpAddress string
	// grpcAddress serves the control API.
	grpcAddress string
}

func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// startBridge runs a complete bridge against an unreachable broker and a
// discarding notifier. The bridge is stopped when the test ends.
func startBridge(t *testing.T) *testBridge {
	t.Helper()

	dir := t.TempDir()
	tb := &testBridge{
		configPath:  filepath.Join(dir, "alarm-bridge.yaml"),
		stateFile:   filepath.Join(dir, "alarm-bridge.armed"),
		httpAddress: reservePort(t),
		grpcAddress: reservePort(t),
	}

	actionsPath := filepath.Join(dir, "actions.yaml")
	require.NoError(t, os.WriteFile(actionsPath, []byte(`
rfid:
  A1B2:
    type: door
    name: Front Door
`), config.DefaultFilePermissions))

	require.NoError(t, config.Save(tb.configPath, &config.Config{
		StateFile:   tb.stateFile,
		ActionsFile: actionsPath,
		Timeout:     1 * time.Second,
		HTTP: config.HTTP{
			ListenAddress: tb.httpAddress,
			SigningSecret: signingSecret,
			FrontPassword: frontPassword,
		},
		GRPC: config.GRPC{Address: tb.grpcAddress},
		MQTT: config.MQTT{
			// Nothing listens on the port; the subscriber keeps retrying in the background.
			Broker: "tcp://127.0.0.1:1",
			Topic:  "tele/rf/RESULT",
		},
		Slack: config.Slack{SilentBoot: true},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- bridge.Run(ctx, &bridge.Options{
			ConfigPath:        tb.configPath,
			EnvFile:           filepath.Join(dir, "missing.env"),
			GRPCListenAddress: tb.grpcAddress,
		})
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + tb.httpAddress + "/health") //nolint:noctx // Test probe.
		if err != nil {
			return false
		}

		_ = resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("bridge did not stop")
		}
	})

	return tb
}

// wallStatus reads the wall panel state.
func wallStatus(t *testing.T, tb *testBridge) bool {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://"+tb.httpAddress+"/status", nil)
	require.NoError(t, err)
	req.Header.Set("Password", frontPassword)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Enabled bool `json:"enabled"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	return payload.Enabled
}

func markerExists(t *testing.T, path string) bool {
	t.Helper()

	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	require.NoError(t, err)

	return true
}
