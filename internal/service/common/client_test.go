//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	api "github.com/oshokin/alarm-bridge/internal/api/grpc/alarm"
	domain "github.com/oshokin/alarm-bridge/internal/domain/alarm"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestSetAlarmState_NilActor asserts that a nil actor is rejected by the client.
func TestSetAlarmState_NilActor(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.SetAlarmState(context.Background(), nil, true)
	require.Error(t, err)
}

// memoryService is a minimal in-memory alarm service.
type memoryService struct {
	state domain.State
}

func (m *memoryService) SetArmed(_ context.Context, actor *domain.Actor, armed bool) bool {
	m.state.Armed = armed
	m.state.LastActor = actor.Clone()

	return armed
}

func (m *memoryService) State(context.Context) *domain.State {
	return m.state.Clone()
}

// TestClient_Roundtrip drives a real server over an in-memory listener.
func TestClient_Roundtrip(t *testing.T) {
	t.Parallel()

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	api.RegisterAlarmServiceServer(server, api.NewServer(new(memoryService)))

	go func() {
		_ = server.Serve(lis)
	}()

	t.Cleanup(server.Stop)

	client, err := Dial(context.Background(), "passthrough:///bufnet",
		WithCallTimeout(time.Second),
		WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		})),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	actor := &domain.Actor{Source: domain.SourceRPC, Username: "o.shokin", Hostname: "desk"}

	state, err := client.SetAlarmState(context.Background(), actor, true)
	require.NoError(t, err)
	require.True(t, state.Armed)
	require.Equal(t, actor, state.LastActor)

	state, err = client.GetAlarmState(context.Background(), actor)
	require.NoError(t, err)
	require.True(t, state.Armed)

	state, err = client.SetAlarmState(context.Background(), actor, false)
	require.NoError(t, err)
	require.False(t, state.Armed)
}
