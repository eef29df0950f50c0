package alarm

import (
	"fmt"
	"time"
)

// Source names the channel through which a state change arrived.
type Source string

const (
	// SourceChat is a signed slash command from the chat service.
	SourceChat Source = "chat"
	// SourceWall is the password-gated wall panel.
	SourceWall Source = "wall"
	// SourceRPC is the gRPC control API.
	SourceRPC Source = "grpc"
	// SourceTimer is the deferred auto-arm timer.
	SourceTimer Source = "timer"
	// SourceBoot is the state restored from disk at startup.
	SourceBoot Source = "boot"
)

// Actor identifies who performed an action in the system.
type Actor struct {
	// Source is the channel the request came through.
	Source Source
	// Username is the chat handle or system user, if known.
	Username string
	// Hostname is the machine name for gRPC callers.
	Hostname string
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String renders the actor as user@host (source).
func (a *Actor) String() string {
	if a == nil {
		return "<unknown>"
	}

	who := a.Username
	if who == "" {
		who = "<anonymous>"
	}

	if a.Hostname != "" {
		who += "@" + a.Hostname
	}

	return fmt.Sprintf("%s (%s)", who, a.Source)
}

// State is a point-in-time snapshot of the alarm policy.
type State struct {
	// Armed reports whether qualifying sensor events raise alerts.
	Armed bool
	// ArmedAt is when the alarm was last armed; informational only.
	ArmedAt time.Time
	// Panicking reports whether a panic window is open.
	Panicking bool
	// PanicExpiresAt is when the open panic window closes on its own.
	PanicExpiresAt time.Time
	// ArmPending reports whether a deferred arm is scheduled.
	ArmPending bool
	// ArmAt is when the pending deferred arm fires.
	ArmAt time.Time
	// LastActor is who last changed the arm flag.
	LastActor *Actor
}

// Clone returns a copy of the state to avoid leaking internal references.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.LastActor = s.LastActor.Clone()

	return &cloned
}
