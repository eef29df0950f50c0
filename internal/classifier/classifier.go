package classifier

import (
	"context"
	"encoding/json"
	"maps"
	"slices"

	"github.com/samber/lo"

	"github.com/oshokin/alarm-bridge/internal/domain/sensor"
	"github.com/oshokin/alarm-bridge/internal/logger"
)

// rfPayload is the shape published by the RF bridge firmware.
type rfPayload struct {
	RfReceived *struct {
		Data *string `json:"Data"`
	} `json:"RfReceived"`
}

// Classifier maps device codes to events. It is safe for concurrent use
// because the table is never mutated after construction.
type Classifier struct {
	table sensor.ActionTable
}

// New returns a classifier over a private copy of table.
func New(table sensor.ActionTable) *Classifier {
	return &Classifier{table: maps.Clone(table)}
}

// Codes returns the known device codes in sorted order.
func (c *Classifier) Codes() []string {
	codes := lo.Keys(c.table)
	slices.Sort(codes)

	return codes
}

// Classify looks up code in the action table.
func (c *Classifier) Classify(ctx context.Context, code string) (sensor.Event, bool) {
	template, ok := c.table[code]
	if !ok {
		logger.DebugKV(ctx, "Unknown device code", "code", code)
		return sensor.Event{}, false
	}

	event, ok := template.Event()
	if !ok {
		logger.WarnKV(ctx, "Unknown event type in action table", "code", code, "type", template.Type)
		return sensor.Event{}, false
	}

	return event, true
}

// ClassifyPayload extracts the device code from a {"RfReceived":{"Data":"..."}}
// payload and classifies it. Any other shape is reported as absent.
func (c *Classifier) ClassifyPayload(ctx context.Context, payload []byte) (sensor.Event, bool) {
	code, ok := ExtractCode(ctx, payload)
	if !ok {
		return sensor.Event{}, false
	}

	return c.Classify(ctx, code)
}

// ExtractCode returns RfReceived.Data from a bus payload.
func ExtractCode(ctx context.Context, payload []byte) (string, bool) {
	var message rfPayload
	if err := json.Unmarshal(payload, &message); err != nil {
		logger.WarnKV(ctx, "Invalid JSON in bus payload", "error", err)
		return "", false
	}

	if message.RfReceived == nil || message.RfReceived.Data == nil {
		logger.DebugKV(ctx, "Bus payload without RfReceived.Data")
		return "", false
	}

	return *message.RfReceived.Data, true
}
