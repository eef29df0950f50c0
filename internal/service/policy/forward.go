package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/oshokin/alarm-bridge/internal/camera"
	"github.com/oshokin/alarm-bridge/internal/domain/sensor"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/metrics"
	"github.com/oshokin/alarm-bridge/internal/notifier"
)

// ForwardCaptures uploads the latest capture of every camera whose capture
// changed since the previous pass, or of every camera when force is set.
// A camera without a capture is skipped. It returns the number of uploads.
func (e *Engine) ForwardCaptures(ctx context.Context, force bool) int {
	var sent int

	for _, cam := range e.poller.Cameras() {
		if e.forward(ctx, cam, force) {
			sent++
		}
	}

	return sent
}

// RequestCaptures starts a forced forward pass in the background.
func (e *Engine) RequestCaptures(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.dispatch(ctx, func(ctx context.Context) {
		e.ForwardCaptures(ctx, true)
	})
}

// SendSnapshot uploads a still image from the camera.
func (e *Engine) SendSnapshot(ctx context.Context, cameraID int) error {
	cam, ok := lo.Find(e.poller.Cameras(), func(item sensor.Camera) bool {
		return item.ID == cameraID
	})
	if !ok {
		return fmt.Errorf("camera %d: %w", cameraID, camera.ErrUnknownCamera)
	}

	callCtx, cancel := e.bounded(ctx)
	image, err := e.poller.Snapshot(callCtx, cameraID)

	cancel()

	if err != nil {
		e.metrics.OutboundFailed(metrics.TargetCamera)

		return fmt.Errorf("fetch snapshot: %w", err)
	}

	now := time.Now()

	return e.upload(ctx, notifier.File{
		Name:    fmt.Sprintf("snapshot-%d-%d.jpg", cameraID, now.Unix()),
		Title:   fmt.Sprintf("%s - %s", now.Format(time.DateTime), cam.Name),
		Content: image,
	})
}

// Announce posts the startup message.
func (e *Engine) Announce(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.dispatch(ctx, func(ctx context.Context) {
		e.post(ctx, notifier.Message{
			Text:   "Incoming",
			Header: ":rocket: Alarm bridge booted!",
		})
	})
}

func (e *Engine) forward(ctx context.Context, cam sensor.Camera, force bool) bool {
	ctx = logger.WithKV(ctx, "camera_id", cam.ID, "camera", cam.Name)

	callCtx, cancel := e.bounded(ctx)
	capture, err := e.poller.LatestCapture(callCtx, cam.ID)

	cancel()

	if err != nil {
		logger.ErrorKV(ctx, "Failed to fetch latest capture", "error", err)
		e.metrics.OutboundFailed(metrics.TargetCamera)

		return false
	}

	if capture == nil {
		logger.WarnKV(ctx, "Camera has no capture")

		return false
	}

	if !e.registry.Observe(cam.ID, capture.ID(), force) {
		logger.DebugKV(ctx, "Capture already forwarded", "src", capture.Src)

		return false
	}

	callCtx, cancel = e.bounded(ctx)
	media, err := e.poller.Media(callCtx, capture)

	cancel()

	if err != nil {
		logger.ErrorKV(ctx, "Failed to download capture", "src", capture.Src, "error", err)
		e.metrics.OutboundFailed(metrics.TargetCamera)

		return false
	}

	err = e.upload(ctx, notifier.File{
		Name:    capture.Filename(),
		Title:   fmt.Sprintf("%s - %s", capture.Time, cam.Name),
		Content: media,
	})

	return err == nil
}

func (e *Engine) post(ctx context.Context, msg notifier.Message) {
	callCtx, cancel := e.bounded(ctx)
	defer cancel()

	if err := e.notifier.PostMessage(callCtx, e.channel, msg); err != nil {
		logger.ErrorKV(ctx, "Failed to post message", "header", msg.Header, "error", err)
		e.metrics.OutboundFailed(metrics.TargetChat)

		return
	}

	e.metrics.Notified()
}

func (e *Engine) upload(ctx context.Context, file notifier.File) error {
	callCtx, cancel := e.bounded(ctx)
	defer cancel()

	if err := e.notifier.UploadFile(callCtx, e.channel, file); err != nil {
		logger.ErrorKV(ctx, "Failed to upload file", "title", file.Title, "error", err)
		e.metrics.OutboundFailed(metrics.TargetChat)

		return fmt.Errorf("upload %s: %w", file.Name, err)
	}

	e.metrics.CaptureSent()

	return nil
}
