package camera

import (
	"strconv"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// Registry remembers the last forwarded capture per camera.
// It starts empty on every process start.
type Registry struct {
	// mu makes check-and-record atomic across the capture tick and forced passes.
	mu sync.Mutex
	// seen maps a camera id to the last forwarded capture id.
	seen *gocache.Cache
}

// NewRegistry creates an empty registry whose entries never expire.
func NewRegistry() *Registry {
	return &Registry{
		seen: gocache.New(gocache.NoExpiration, 0),
	}
}

// LastSeen returns the last forwarded capture id of a camera.
func (r *Registry) LastSeen(cameraID int) (string, bool) {
	value, ok := r.seen.Get(key(cameraID))
	if !ok {
		return "", false
	}

	id, ok := value.(string)

	return id, ok
}

// Observe records captureID for the camera and reports whether it should be
// forwarded: always when force is set, otherwise only when it differs from
// the last seen id.
func (r *Registry) Observe(cameraID int, captureID string, force bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.LastSeen(cameraID)
	if ok && last == captureID && !force {
		return false
	}

	r.seen.Set(key(cameraID), captureID, gocache.NoExpiration)

	return true
}

// Len returns the number of cameras with a recorded capture.
func (r *Registry) Len() int {
	return r.seen.ItemCount()
}

func key(cameraID int) string {
	return strconv.Itoa(cameraID)
}
