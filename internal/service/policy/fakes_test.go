package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/alarm-bridge/internal/camera"
	domain "github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/domain/sensor"
	"github.com/oshokin/alarm-bridge/internal/notifier"
)

var (
	errTestLoad   = errors.New("test load error")
	errTestSave   = errors.New("test save error")
	errTestChat   = errors.New("test chat error")
	errTestCamera = errors.New("test camera error")
)

// memoryRepository is an in-memory Repository.
type memoryRepository struct {
	mu sync.Mutex
	// state is returned from Load.
	state *domain.State
	// loadErr is returned from Load.
	loadErr error
	// saveErr is returned from Save.
	saveErr error
	// saved records every state passed to Save.
	saved []*domain.State
}

func (m *memoryRepository) Load(context.Context) (*domain.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state, m.loadErr
}

func (m *memoryRepository) Save(_ context.Context, s *domain.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saved = append(m.saved, s.Clone())

	return m.saveErr
}

func (m *memoryRepository) last() *domain.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.saved) == 0 {
		return nil
	}

	return m.saved[len(m.saved)-1]
}

// recordingNotifier keeps every message and upload.
type recordingNotifier struct {
	mu       sync.Mutex
	err      error
	messages []notifier.Message
	files    []notifier.File
	channels []string
}

func (r *recordingNotifier) PostMessage(_ context.Context, channel string, msg notifier.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.channels = append(r.channels, channel)
	r.messages = append(r.messages, msg)

	return nil
}

func (r *recordingNotifier) UploadFile(_ context.Context, channel string, file notifier.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.channels = append(r.channels, channel)
	r.files = append(r.files, file)

	return nil
}

func (r *recordingNotifier) headers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]string, 0, len(r.messages))
	for _, msg := range r.messages {
		result = append(result, msg.Header)
	}

	return result
}

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]string, 0, len(r.files))
	for _, file := range r.files {
		result = append(result, file.Title)
	}

	return result
}

// fakePoller serves captures from memory.
type fakePoller struct {
	mu       sync.Mutex
	cameras  []sensor.Camera
	captures map[int]*camera.Capture
	err      error
	// fetches counts LatestCapture calls.
	fetches int
}

func newFakePoller(cameras ...sensor.Camera) *fakePoller {
	return &fakePoller{
		cameras:  cameras,
		captures: make(map[int]*camera.Capture),
	}
}

func (p *fakePoller) setCapture(cameraID int, src string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.captures[cameraID] = &camera.Capture{Time: "12:00", Src: src}
}

func (p *fakePoller) Cameras() []sensor.Camera {
	return p.cameras
}

func (p *fakePoller) LatestCapture(_ context.Context, cameraID int) (*camera.Capture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fetches++

	if p.err != nil {
		return nil, p.err
	}

	capture, ok := p.captures[cameraID]
	if !ok {
		return nil, nil
	}

	cloned := *capture

	return &cloned, nil
}

func (p *fakePoller) Snapshot(_ context.Context, cameraID int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return nil, p.err
	}

	return fmt.Appendf(nil, "snapshot-%d", cameraID), nil
}

func (p *fakePoller) Media(_ context.Context, capture *camera.Capture) ([]byte, error) {
	return []byte(capture.Src), nil
}

func (p *fakePoller) fetchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.fetches
}
