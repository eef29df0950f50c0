package alarm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alarm-bridge/internal/domain/alarm"
)

// Metadata keys carrying the caller.
const (
	metadataUsername = "x-actor-username"
	metadataHostname = "x-actor-hostname"
)

// Struct field names of the state.
const (
	fieldArmed          = "armed"
	fieldArmedAt        = "armed_at"
	fieldPanicking      = "panicking"
	fieldPanicExpiresAt = "panic_expires_at"
	fieldArmPending     = "arm_pending"
	fieldArmAt          = "arm_at"
	fieldLastActor      = "last_actor"
)

// WithActor attaches the caller to outgoing call metadata.
func WithActor(ctx context.Context, actor *domain.Actor) context.Context {
	if actor == nil {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx,
		metadataUsername, actor.Username,
		metadataHostname, actor.Hostname,
	)
}

// ActorFromContext reads the caller from incoming call metadata.
// It returns nil when neither a username nor a hostname was sent.
func ActorFromContext(ctx context.Context) *domain.Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	actor := &domain.Actor{
		Source:   domain.SourceRPC,
		Username: first(md.Get(metadataUsername)),
		Hostname: first(md.Get(metadataHostname)),
	}

	if actor.Username == "" && actor.Hostname == "" {
		return nil
	}

	return actor
}

// EncodeState converts a state snapshot into a Struct. Zero times are omitted.
func EncodeState(state *domain.State) (*structpb.Struct, error) {
	if state == nil {
		state = new(domain.State)
	}

	fields := map[string]any{
		fieldArmed:      state.Armed,
		fieldPanicking:  state.Panicking,
		fieldArmPending: state.ArmPending,
	}

	putTime(fields, fieldArmedAt, state.ArmedAt)
	putTime(fields, fieldPanicExpiresAt, state.PanicExpiresAt)
	putTime(fields, fieldArmAt, state.ArmAt)

	if state.LastActor != nil {
		fields[fieldLastActor] = map[string]any{
			"source":   string(state.LastActor.Source),
			"username": state.LastActor.Username,
			"hostname": state.LastActor.Hostname,
		}
	}

	result, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}

	return result, nil
}

// DecodeState is the inverse of EncodeState. Unknown or mistyped fields are ignored.
func DecodeState(value *structpb.Struct) *domain.State {
	fields := value.GetFields()
	state := &domain.State{
		Armed:          fields[fieldArmed].GetBoolValue(),
		ArmedAt:        parseTime(fields[fieldArmedAt]),
		Panicking:      fields[fieldPanicking].GetBoolValue(),
		PanicExpiresAt: parseTime(fields[fieldPanicExpiresAt]),
		ArmPending:     fields[fieldArmPending].GetBoolValue(),
		ArmAt:          parseTime(fields[fieldArmAt]),
	}

	if actor := fields[fieldLastActor].GetStructValue(); actor != nil {
		actorFields := actor.GetFields()
		state.LastActor = &domain.Actor{
			Source:   domain.Source(actorFields["source"].GetStringValue()),
			Username: actorFields["username"].GetStringValue(),
			Hostname: actorFields["hostname"].GetStringValue(),
		}
	}

	return state
}

func putTime(fields map[string]any, key string, value time.Time) {
	if value.IsZero() {
		return
	}

	fields[key] = value.UTC().Format(time.RFC3339Nano)
}

func parseTime(value *structpb.Value) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value.GetStringValue())
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}

	return values[0]
}
