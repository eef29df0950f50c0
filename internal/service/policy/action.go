package policy

import (
	"context"

	"github.com/spf13/cast"

	"github.com/oshokin/alarm-bridge/internal/domain/sensor"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/notifier"
)

// ActionDoorBell is the built-in doorbell action.
const ActionDoorBell = "doorBell"

// metaCamera is the button meta key naming the camera to snapshot.
const metaCamera = "camera"

// Action handles a button press. It runs outside the engine lock.
type Action func(ctx context.Context, event sensor.Event)

// RegisterAction adds or replaces a button action.
func (e *Engine) RegisterAction(name string, action Action) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.actions[name] = action
}

func (e *Engine) press(ctx context.Context, event sensor.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	action, ok := e.actions[event.Action]
	if !ok {
		logger.WarnKV(ctx, "Unknown button action", "action", event.Action, "name", event.Name)

		return
	}

	logger.InfoKV(ctx, "Button pressed", "action", event.Action, "name", event.Name)

	e.dispatch(ctx, func(ctx context.Context) {
		action(ctx, event)
	})
}

func (e *Engine) doorBell(ctx context.Context, event sensor.Event) {
	e.post(ctx, notifier.Message{
		Text:   "Doorbell",
		Header: ":bell: The doorbell is ringing!",
	})

	raw, ok := event.Meta[metaCamera]
	if !ok {
		logger.WarnKV(ctx, "Doorbell has no camera configured", "name", event.Name)

		return
	}

	cameraID, err := cast.ToIntE(raw)
	if err != nil {
		logger.WarnKV(ctx, "Doorbell camera is not a number", "camera", raw, "error", err)

		return
	}

	if err = e.SendSnapshot(ctx, cameraID); err != nil {
		logger.ErrorKV(ctx, "Failed to send doorbell snapshot", "camera_id", cameraID, "error", err)
	}
}
