package sensor

// Camera is one IP camera the bridge can pull captures and snapshots from.
type Camera struct {
	// ID is referenced by button metadata and keys the last-seen registry.
	ID int `yaml:"id"`
	// Name is used in upload titles.
	Name string `yaml:"name"`
	// API is the base URL of the camera agent API.
	API string `yaml:"api"`
	// Snapshot is the URL returning a still JPEG.
	Snapshot string `yaml:"snapshot,omitempty"`
	// Username for basic auth; falls back to CAM_USERNAME_<id>.
	Username string `yaml:"username,omitempty"`
	// Password for basic auth; falls back to CAM_PASSWORD_<id>.
	Password string `yaml:"password,omitempty"`
}
