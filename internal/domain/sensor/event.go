package sensor

import (
	"maps"
	"strings"
)

// Kind tags the variant of an Event.
type Kind int

const (
	// KindUnknown is the zero value and never dispatched.
	KindUnknown Kind = iota
	// KindMotion is a PIR motion sensor trigger.
	KindMotion
	// KindDoorOpen is a door contact opening.
	KindDoorOpen
	// KindButtonPress is a remote button press bound to an action.
	KindButtonPress
)

// Template type names as written in the action table.
const (
	TypeMotion = "pir"
	TypeDoor   = "door"
	TypeButton = "button"
)

// unnamedSensor is used for table entries without a display name.
const unnamedSensor = "unknown"

// String returns a short lowercase label, used for logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindMotion:
		return "motion"
	case KindDoorOpen:
		return "door"
	case KindButtonPress:
		return "button"
	case KindUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Event is a classified sensor event. It is built per message and never mutated.
type Event struct {
	// Kind selects which of the remaining fields are meaningful.
	Kind Kind
	// Name is the display name of the sensor.
	Name string
	// Action is the handler name for KindButtonPress.
	Action string
	// Meta is passed verbatim to the button action handler.
	Meta map[string]any
}

// Qualifying reports whether the event can open a panic window.
func (e Event) Qualifying() bool {
	return e.Kind == KindMotion || e.Kind == KindDoorOpen
}

// Template is one entry of the action table.
type Template struct {
	// Type is one of "pir", "door" or "button".
	Type string `yaml:"type"`
	// Name is the display name of the sensor.
	Name string `yaml:"name,omitempty"`
	// Action names the handler for button entries.
	Action string `yaml:"action,omitempty"`
	// Meta carries handler parameters for button entries, such as a camera id.
	Meta map[string]any `yaml:"meta,omitempty"`
}

// Event builds the Event described by the template.
// It returns false for templates with an unsupported type.
func (t *Template) Event() (Event, bool) {
	name := t.Name
	if name == "" {
		name = unnamedSensor
	}

	switch strings.ToLower(strings.TrimSpace(t.Type)) {
	case TypeMotion:
		return Event{Kind: KindMotion, Name: name}, true
	case TypeDoor:
		return Event{Kind: KindDoorOpen, Name: name}, true
	case TypeButton:
		return Event{
			Kind:   KindButtonPress,
			Name:   name,
			Action: t.Action,
			Meta:   maps.Clone(t.Meta),
		}, true
	default:
		return Event{}, false
	}
}

// ActionTable maps opaque device codes to event templates.
// It is loaded once at startup and only read afterwards.
type ActionTable map[string]Template
