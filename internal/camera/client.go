package camera

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"

	"github.com/oshokin/alarm-bridge/internal/domain/sensor"
	"github.com/oshokin/alarm-bridge/internal/version"
)

// Poller is what the policy engine needs from the cameras.
type Poller interface {
	// Cameras returns the configured cameras in table order.
	Cameras() []sensor.Camera
	// LatestCapture returns the newest capture of a camera, or nil when there is none.
	LatestCapture(ctx context.Context, cameraID int) (*Capture, error)
	// Snapshot returns a still image from a camera.
	Snapshot(ctx context.Context, cameraID int) ([]byte, error)
	// Media downloads the content of a capture.
	Media(ctx context.Context, capture *Capture) ([]byte, error)
}

// latestSequencePath is appended to the camera API base URL.
const latestSequencePath = "/api/v1/images/latest_sequence"

var (
	// ErrUnknownCamera is returned for camera ids missing from the action table.
	ErrUnknownCamera = errors.New("unknown camera")
	// ErrNoSnapshotURL is returned when a camera has no snapshot endpoint.
	ErrNoSnapshotURL = errors.New("camera has no snapshot url")
	// errUnexpectedStatus is returned for non-2xx camera responses.
	errUnexpectedStatus = errors.New("unexpected http status")
	// errEmptyBody is returned when an image download returns no bytes.
	errEmptyBody = errors.New("response body is empty")
)

// Client talks to the camera agents over HTTP.
type Client struct {
	// http is the shared resty client.
	http *resty.Client
	// cameras preserves the configured order.
	cameras []sensor.Camera
}

// Option configures client behaviour.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.SetTimeout(timeout)
		}
	}
}

// WithRetries retries failed requests count times.
func WithRetries(count int) Option {
	return func(c *Client) {
		c.http.SetRetryCount(count)
	}
}

// NewClient creates a client for the provided cameras.
func NewClient(cameras []sensor.Camera, opts ...Option) *Client {
	client := &Client{
		http: resty.New().
			SetHeader("Accept", "application/json, image/*").
			SetHeader("User-Agent", version.UserAgent()),
		cameras: append([]sensor.Camera(nil), cameras...),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Cameras returns the configured cameras.
func (c *Client) Cameras() []sensor.Camera {
	return append([]sensor.Camera(nil), c.cameras...)
}

// LatestCapture asks the camera agent for the latest sequence and returns its last element.
func (c *Client) LatestCapture(ctx context.Context, cameraID int) (*Capture, error) {
	camera, err := c.camera(cameraID)
	if err != nil {
		return nil, err
	}

	var captures []Capture

	resp, err := c.request(ctx, camera).
		ForceContentType("application/json").
		SetResult(&captures).
		Get(strings.TrimRight(camera.API, "/") + latestSequencePath)
	if err != nil {
		return nil, fmt.Errorf("fetch latest sequence of camera %d: %w", cameraID, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("fetch latest sequence of camera %d: %w: %s", cameraID, errUnexpectedStatus, resp.Status())
	}

	if len(captures) == 0 {
		return nil, nil
	}

	latest := captures[len(captures)-1]
	if latest.Src == "" {
		return nil, nil
	}

	return &latest, nil
}

// Snapshot downloads a still JPEG from the camera's snapshot URL.
func (c *Client) Snapshot(ctx context.Context, cameraID int) ([]byte, error) {
	camera, err := c.camera(cameraID)
	if err != nil {
		return nil, err
	}

	if camera.Snapshot == "" {
		return nil, fmt.Errorf("camera %d: %w", cameraID, ErrNoSnapshotURL)
	}

	body, err := c.download(c.request(ctx, camera), camera.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("snapshot of camera %d: %w", cameraID, err)
	}

	return body, nil
}

// Media downloads the capture content. Capture URLs are pre-signed by the
// agent, so no credentials are sent.
func (c *Client) Media(ctx context.Context, capture *Capture) ([]byte, error) {
	body, err := c.download(c.http.R().SetContext(ctx), capture.Src)
	if err != nil {
		return nil, fmt.Errorf("capture media: %w", err)
	}

	return body, nil
}

func (c *Client) download(req *resty.Request, url string) ([]byte, error) {
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s", errUnexpectedStatus, resp.Status())
	}

	if len(resp.Body()) == 0 {
		return nil, errEmptyBody
	}

	return resp.Body(), nil
}

// request prepares a request carrying the camera's credentials, if any.
func (c *Client) request(ctx context.Context, camera sensor.Camera) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if camera.Username != "" || camera.Password != "" {
		req.SetBasicAuth(camera.Username, camera.Password)
	}

	return req
}

func (c *Client) camera(cameraID int) (sensor.Camera, error) {
	camera, ok := lo.Find(c.cameras, func(item sensor.Camera) bool {
		return item.ID == cameraID
	})
	if !ok {
		return sensor.Camera{}, fmt.Errorf("camera %d: %w", cameraID, ErrUnknownCamera)
	}

	return camera, nil
}
