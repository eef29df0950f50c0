package camera

import (
	"path"
	"time"
)

// Capture is one recording reported by a camera agent.
type Capture struct {
	// Time is the human-readable capture time from the agent.
	Time string `json:"time"`
	// Src is the downloadable URL of the media; it doubles as the capture id.
	Src string `json:"src"`
	// LocalSrc is the agent-local path of the media.
	LocalSrc string `json:"local_src"`
	// Type is the media type, e.g. "image" or "video".
	Type string `json:"type"`
	// Metadata is the agent's description of the recording.
	Metadata Metadata `json:"metadata"`
}

// Metadata describes a capture.
type Metadata struct {
	Key               string `json:"key"`
	User              string `json:"user"`
	Timestamp         int64  `json:"timestamp"`
	Microseconds      string `json:"microseconds"`
	InstanceName      string `json:"instanceName"`
	RegionCoordinates string `json:"regionCoordinates"`
	NumberOfChanges   string `json:"numberOfChanges"`
	Token             string `json:"token"`
}

// ID identifies the capture for deduplication.
func (c *Capture) ID() string {
	return c.Src
}

// Filename is the name used when the media is uploaded.
func (c *Capture) Filename() string {
	if c.Metadata.Key != "" {
		return c.Metadata.Key
	}

	if base := path.Base(c.Src); base != "." && base != "/" {
		return base
	}

	return time.Now().UTC().Format(time.RFC3339) + ".jpg"
}
