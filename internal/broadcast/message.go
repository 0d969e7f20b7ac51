package broadcast

import (
	"encoding/json"

	"github.com/framewell/framesink/internal/payload"
)

// TypeNewImages is the message type for a freshly ingested payload.
const TypeNewImages = "new_images"

// Message is the fan-out projection of a stored record. Image fields are
// carried in their original encoded form; subscribers decode on their side
// if they need pixels.
type Message struct {
	Type           string            `json:"type"`
	Timestamp      float64           `json:"timestamp"`
	Images         map[string]string `json:"images,omitempty"`
	Prompt         string            `json:"prompt,omitempty"`
	NegativePrompt string            `json:"negative_prompt,omitempty"`
	Seed           any               `json:"seed,omitempty"`
	Payload        json.RawMessage   `json:"payload,omitempty"`
}

// FromRecord projects a record into a broadcast message. The raw payload is
// included only when includePayload is set; some deployments disable it to
// keep frames small.
func FromRecord(rec payload.Record, includePayload bool) Message {
	msg := Message{
		Type:           TypeNewImages,
		Timestamp:      rec.Timestamp,
		Images:         rec.Images,
		Prompt:         rec.Prompt,
		NegativePrompt: rec.NegativePrompt,
		Seed:           rec.Seed,
	}
	if includePayload {
		msg.Payload = rec.Payload
	}
	return msg
}
