package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/oshokin/alarm-bridge/internal/config"
	domain "github.com/oshokin/alarm-bridge/internal/domain/alarm"
)

// Repository defines persistence operations for the arm flag.
type Repository interface {
	Load(ctx context.Context) (*domain.State, error)
	Save(ctx context.Context, state *domain.State) error
}

// MarkerRepository persists the arm flag as the presence of a file.
// The content is the arm time as a protobuf JSON timestamp.
type MarkerRepository struct {
	// path is the filesystem location of the marker.
	path string
	// mu serializes access to the marker file.
	mu sync.Mutex
}

// ErrNotFound is returned when the marker does not exist, i.e. the alarm is disarmed.
var ErrNotFound = errors.New("state not found")

// NewMarkerRepository creates a repository for the marker at the provided path.
func NewMarkerRepository(path string) *MarkerRepository {
	return &MarkerRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the marker location.
func (r *MarkerRepository) Path() string {
	return r.path
}

// Load reports the persisted state. A missing marker yields ErrNotFound.
// Unreadable content does not matter: the marker still means armed and the
// file modification time stands in for the arm time.
func (r *MarkerRepository) Load(_ context.Context) (*domain.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("stat marker: %w", err)
	}

	state := &domain.State{
		Armed:   true,
		ArmedAt: info.ModTime(),
	}

	contents, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read marker: %w", err)
	}

	var ts timestamppb.Timestamp
	if err = protojson.Unmarshal(contents, &ts); err == nil && ts.IsValid() {
		state.ArmedAt = ts.AsTime()
	}

	return state, nil
}

// Save writes the marker when the state is armed and removes it otherwise.
// Removing a missing marker is not an error.
func (r *MarkerRepository) Save(_ context.Context, state *domain.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state == nil || !state.Armed {
		if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove marker: %w", err)
		}

		return nil
	}

	armedAt := state.ArmedAt
	if armedAt.IsZero() {
		armedAt = time.Now()
	}

	data, err := protojson.Marshal(timestamppb.New(armedAt))
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}

	return nil
}
