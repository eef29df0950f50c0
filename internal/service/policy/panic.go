package policy

import (
	"context"
	"time"

	"github.com/oshokin/alarm-bridge/internal/domain/sensor"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/notifier"
)

// HandleEvent applies a classified sensor event.
// Motion and door events open or extend the panic window while armed.
// Button presses run their action regardless of the arm flag.
func (e *Engine) HandleEvent(ctx context.Context, event sensor.Event) {
	e.metrics.Event(event.Kind.String())

	switch event.Kind {
	case sensor.KindMotion, sensor.KindDoorOpen:
		e.raise(ctx, event)
	case sensor.KindButtonPress:
		e.press(ctx, event)
	case sensor.KindUnknown:
		logger.WarnKV(ctx, "Unclassified event ignored", "name", event.Name)
	}
}

// Panicking reports whether a panic window is open.
func (e *Engine) Panicking(context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.panicking
}

func (e *Engine) raise(ctx context.Context, event sensor.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.armed {
		logger.InfoKV(ctx, "Event ignored, alarm is disarmed", "kind", event.Kind, "name", event.Name)

		return
	}

	if !e.panicking {
		e.panicking = true
		e.panicEpoch++

		logger.WarnKV(ctx, "Panic started", "kind", event.Kind, "name", event.Name, "duration", e.panicDuration)
		e.metrics.PanicStarted()
		e.metrics.SetPanicking(true)

		e.scheduleTickLocked(e.panicEpoch)
		e.dispatch(ctx, func(ctx context.Context) {
			e.ForwardCaptures(ctx, false)
		})
	}

	e.resetCountdownLocked()

	msg := alertMessage(event)

	e.dispatch(ctx, func(ctx context.Context) {
		e.post(ctx, msg)
	})
}

// resetCountdownLocked (re)starts the panic countdown from now.
func (e *Engine) resetCountdownLocked() {
	if e.countdown != nil {
		e.countdown.Stop()
	}

	e.countdownGen++
	gen := e.countdownGen

	e.panicExpiresAt = time.Now().Add(e.panicDuration)
	e.countdown = time.AfterFunc(e.panicDuration, func() {
		e.expire(gen)
	})
}

func (e *Engine) expire(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.countdownGen || !e.panicking {
		return
	}

	logger.InfoKV(e.ctx, "Panic window closed")
	e.stopPanicLocked()
}

func (e *Engine) scheduleTickLocked(epoch uint64) {
	e.tick = time.AfterFunc(e.captureInterval, func() {
		e.onTick(epoch)
	})
}

func (e *Engine) onTick(epoch uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if epoch != e.panicEpoch || !e.panicking {
		return
	}

	e.scheduleTickLocked(epoch)
	e.dispatch(e.ctx, func(ctx context.Context) {
		e.ForwardCaptures(ctx, false)
	})
}

// stopPanicLocked returns to Idle and cancels both panic timers.
func (e *Engine) stopPanicLocked() {
	if e.countdown != nil {
		e.countdown.Stop()
		e.countdown = nil
	}

	if e.tick != nil {
		e.tick.Stop()
		e.tick = nil
	}

	e.countdownGen++
	e.panicEpoch++
	e.panicExpiresAt = time.Time{}

	if e.panicking {
		e.panicking = false
		e.metrics.SetPanicking(false)
	}
}

func alertMessage(event sensor.Event) notifier.Message {
	header := "Motion detected: " + event.Name
	if event.Kind == sensor.KindDoorOpen {
		header = "Door opened: " + event.Name
	}

	return notifier.Message{
		Text:   "Incoming",
		Header: header,
		Body:   "A capture is on its way...",
	}
}
