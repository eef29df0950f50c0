package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/alarm-bridge/internal/camera"
	"github.com/oshokin/alarm-bridge/internal/config"
	domain "github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/metrics"
	"github.com/oshokin/alarm-bridge/internal/notifier"
	repo "github.com/oshokin/alarm-bridge/internal/repository/state"
)

// Options configures the policy engine.
type Options struct {
	// Repository persists the arm flag. Nil keeps the flag in memory only.
	Repository repo.Repository
	// Notifier receives alerts and uploads. Nil discards them.
	Notifier notifier.Notifier
	// Poller fetches camera captures and snapshots. Required.
	Poller camera.Poller
	// Registry remembers the last forwarded capture per camera. Nil creates an empty one.
	Registry *camera.Registry
	// Metrics is optional.
	Metrics *metrics.Metrics
	// Channel is where alerts and uploads go.
	Channel string
	// PanicDuration is how long a panic window stays open after the last trigger.
	PanicDuration time.Duration
	// CaptureInterval is the period of the capture-forward tick.
	CaptureInterval time.Duration
	// ArmDelay is the default delay of ArmAfter.
	ArmDelay time.Duration
	// Timeout bounds each outbound call.
	Timeout time.Duration
}

var errPollerRequired = errors.New("camera poller must be provided")

// Engine owns the arm flag, the panic window and the timers driving them.
// Every transition happens under mu; outbound calls run in tracked goroutines.
type Engine struct {
	// ctx is the detached base context for timer callbacks.
	ctx context.Context
	// repo persists the arm flag.
	repo repo.Repository
	// notifier delivers chat messages and files.
	notifier notifier.Notifier
	// poller reaches the cameras.
	poller camera.Poller
	// registry deduplicates forwarded captures.
	registry *camera.Registry
	// metrics mirrors the state for scraping.
	metrics *metrics.Metrics
	// channel is the chat destination.
	channel string

	panicDuration   time.Duration
	captureInterval time.Duration
	armDelay        time.Duration
	timeout         time.Duration

	// mu guards every field below.
	mu sync.Mutex

	armed     bool
	armedAt   time.Time
	lastActor *domain.Actor

	panicking      bool
	panicExpiresAt time.Time
	// countdown closes the panic window; countdownGen invalidates stale firings.
	countdown    *time.Timer
	countdownGen uint64
	// tick forwards captures while panicking; panicEpoch changes on every start and stop.
	tick       *time.Timer
	panicEpoch uint64

	// armTimer is the pending deferred arm, if any.
	armTimer *time.Timer
	armGen   uint64
	armAt    time.Time

	actions map[string]Action
	closed  bool

	// inflight tracks outbound dispatches.
	inflight sync.WaitGroup
}

// New creates an engine and restores the arm flag from the repository.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Poller == nil {
		return nil, errPollerRequired
	}

	e := &Engine{
		ctx:             logger.WithName(context.WithoutCancel(ctx), "policy"),
		repo:            opts.Repository,
		notifier:        opts.Notifier,
		poller:          opts.Poller,
		registry:        opts.Registry,
		metrics:         opts.Metrics,
		channel:         opts.Channel,
		panicDuration:   durationOr(opts.PanicDuration, config.DefaultPanicDuration),
		captureInterval: durationOr(opts.CaptureInterval, config.DefaultCaptureInterval),
		armDelay:        durationOr(opts.ArmDelay, config.DefaultArmDelay),
		timeout:         durationOr(opts.Timeout, config.DefaultTimeout),
	}

	if e.notifier == nil {
		e.notifier = notifier.Nop{}
	}

	if e.registry == nil {
		e.registry = camera.NewRegistry()
	}

	e.actions = map[string]Action{
		ActionDoorBell: e.doorBell,
	}

	if e.repo == nil {
		return e, nil
	}

	state, err := e.repo.Load(ctx)
	switch {
	case err == nil:
		if state != nil {
			e.armed = state.Armed
			e.armedAt = state.ArmedAt
			e.lastActor = &domain.Actor{Source: domain.SourceBoot}
		}
	case errors.Is(err, repo.ErrNotFound):
		// Disarmed.
	default:
		return nil, fmt.Errorf("load state: %w", err)
	}

	e.metrics.SetArmed(e.armed)

	return e, nil
}

// Armed reports the current arm flag.
func (e *Engine) Armed(context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.armed
}

// State returns a snapshot for transports.
func (e *Engine) State(context.Context) *domain.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return &domain.State{
		Armed:          e.armed,
		ArmedAt:        e.armedAt,
		Panicking:      e.panicking,
		PanicExpiresAt: e.panicExpiresAt,
		ArmPending:     e.armTimer != nil,
		ArmAt:          e.armAt,
		LastActor:      e.lastActor.Clone(),
	}
}

// SetArmed writes the arm flag and returns the value written.
// It cancels any pending deferred arm. Disarming also closes the panic window.
// Persistence failures are logged; the in-memory flag follows the request.
func (e *Engine) SetArmed(ctx context.Context, actor *domain.Actor, armed bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelArmLocked()
	e.setArmedLocked(ctx, actor, armed)

	return armed
}

// ArmAfter schedules a one-shot arm after delay, replacing a pending one.
// A non-positive delay uses the configured default. It does nothing and
// returns false when the alarm is already armed.
func (e *Engine) ArmAfter(ctx context.Context, actor *domain.Actor, delay time.Duration) bool {
	if delay <= 0 {
		delay = e.armDelay
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.armed {
		logger.InfoKV(ctx, "Deferred arm refused, alarm is already armed", "actor", actor)

		return false
	}

	e.cancelArmLocked()

	gen := e.armGen
	timerActor := &domain.Actor{Source: domain.SourceTimer}

	if actor != nil {
		timerActor.Username = actor.Username
		timerActor.Hostname = actor.Hostname
	}

	e.armAt = time.Now().Add(delay)
	e.armTimer = time.AfterFunc(delay, func() {
		e.fireDeferredArm(gen, timerActor)
	})

	logger.InfoKV(ctx, "Deferred arm scheduled", "delay", delay, "actor", actor)

	return true
}

// Wait blocks until every dispatched outbound call has returned.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Close stops every timer and waits for in-flight dispatches.
// Events handled after Close change state but dispatch nothing.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.cancelArmLocked()
	e.stopPanicLocked()
	e.mu.Unlock()

	e.inflight.Wait()
}

func (e *Engine) fireDeferredArm(gen uint64, actor *domain.Actor) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.armGen || e.armTimer == nil {
		return
	}

	e.armTimer = nil
	e.armAt = time.Time{}
	e.armGen++

	e.setArmedLocked(e.ctx, actor, true)
}

func (e *Engine) setArmedLocked(ctx context.Context, actor *domain.Actor, armed bool) {
	if armed && !e.armed {
		e.armedAt = time.Now()
	}

	if !armed {
		e.armedAt = time.Time{}
		e.stopPanicLocked()
	}

	e.armed = armed
	e.lastActor = actor.Clone()
	e.metrics.SetArmed(armed)

	if e.repo != nil {
		err := e.repo.Save(ctx, &domain.State{
			Armed:     e.armed,
			ArmedAt:   e.armedAt,
			LastActor: e.lastActor,
		})
		if err != nil {
			logger.ErrorKV(ctx, "Failed to persist alarm state", "error", err)
			e.metrics.OutboundFailed(metrics.TargetState)
		}
	}

	logger.InfoKV(ctx, "Alarm state updated", "armed", armed, "actor", e.lastActor)
}

func (e *Engine) cancelArmLocked() {
	if e.armTimer != nil {
		e.armTimer.Stop()
		e.armTimer = nil
	}

	e.armAt = time.Time{}
	e.armGen++
}

// dispatch runs fn in a tracked goroutine with a context detached from the caller.
// The caller holds mu.
func (e *Engine) dispatch(ctx context.Context, fn func(ctx context.Context)) {
	if e.closed {
		return
	}

	base := context.WithoutCancel(ctx)

	e.inflight.Go(func() {
		fn(base)
	})
}

// bounded limits a single outbound call.
func (e *Engine) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}

	return fallback
}
