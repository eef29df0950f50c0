package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-bridge/internal/domain/sensor"
)

// Actions is the static device configuration: the RF code table and the cameras.
type Actions struct {
	// RFID maps device codes to event templates.
	RFID sensor.ActionTable `yaml:"rfid"`
	// Cameras lists the cameras polled during a panic window.
	Cameras []sensor.Camera `yaml:"cameras"`
}

// Environment variable patterns for camera credentials, keyed by camera id.
const (
	cameraUsernameEnv = "CAM_USERNAME_%d"
	cameraPasswordEnv = "CAM_PASSWORD_%d"
)

var (
	// errDuplicateCamera is returned when two cameras share an id.
	errDuplicateCamera = errors.New("duplicate camera id")
	// errCameraAPIRequired is returned for cameras without an API URL.
	errCameraAPIRequired = errors.New("camera api must be provided")
	// errButtonAction is returned for button entries without an action.
	errButtonAction = errors.New("button entry must name an action")
)

// LoadActions reads and validates the action table file.
// Camera credentials missing from the file are taken from CAM_USERNAME_<id>
// and CAM_PASSWORD_<id>.
func LoadActions(path string) (*Actions, error) {
	if path == "" {
		path = DefaultActionsFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read actions: %w", err)
	}

	var actions Actions
	if err = yaml.Unmarshal(contents, &actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}

	if err = ValidateActions(&actions); err != nil {
		return nil, err
	}

	for i := range actions.Cameras {
		applyCameraEnv(&actions.Cameras[i])
	}

	return &actions, nil
}

// ValidateActions checks camera records and button entries.
// Entries with an unknown type are allowed; the classifier reports them.
func ValidateActions(actions *Actions) error {
	if actions.RFID == nil {
		actions.RFID = make(sensor.ActionTable)
	}

	for code, template := range actions.RFID {
		if strings.EqualFold(template.Type, sensor.TypeButton) && template.Action == "" {
			return fmt.Errorf("code %q: %w", code, errButtonAction)
		}
	}

	seen := make(map[int]struct{}, len(actions.Cameras))

	for _, camera := range actions.Cameras {
		if _, ok := seen[camera.ID]; ok {
			return fmt.Errorf("camera %d: %w", camera.ID, errDuplicateCamera)
		}

		seen[camera.ID] = struct{}{}

		if camera.API == "" {
			return fmt.Errorf("camera %d: %w", camera.ID, errCameraAPIRequired)
		}

		if _, err := url.ParseRequestURI(camera.API); err != nil {
			return fmt.Errorf("camera %d: invalid api URI: %w", camera.ID, err)
		}

		if camera.Snapshot == "" {
			continue
		}

		if _, err := url.ParseRequestURI(camera.Snapshot); err != nil {
			return fmt.Errorf("camera %d: invalid snapshot URI: %w", camera.ID, err)
		}
	}

	return nil
}

func applyCameraEnv(camera *sensor.Camera) {
	if camera.Username == "" {
		camera.Username = os.Getenv(fmt.Sprintf(cameraUsernameEnv, camera.ID))
	}

	if camera.Password == "" {
		camera.Password = os.Getenv(fmt.Sprintf(cameraPasswordEnv, camera.ID))
	}
}
