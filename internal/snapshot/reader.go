// Package snapshot materializes the current record for the pull-based
// workflow host: declared image fields decoded to frames, metadata coerced
// to concrete types, placeholders substituted where nothing usable exists.
package snapshot

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/framewell/framesink/internal/imaging"
	"github.com/framewell/framesink/internal/payload"
)

// DefaultImageOutputs are the image fields materialized when a deployment
// does not declare its own list.
var DefaultImageOutputs = []string{
	payload.FieldImage,
	payload.FieldColor,
	payload.FieldDepth,
	payload.FieldOpenPose,
}

// Materialized is a fully decoded view of the current record. Every declared
// image output is present, real or placeholder; callers cannot tell "never
// received" from "received without this field" and that is intentional.
type Materialized struct {
	// Images maps each declared output name to its decoded frame.
	Images map[string]*imaging.Frame

	Prompt         string
	NegativePrompt string
	Seed           int64

	// Payload is the record's raw payload with the bulky image fields
	// stripped out.
	Payload json.RawMessage

	Timestamp  float64
	Generation uint64
}

// Reader reads and decodes snapshots. It never mutates shared state; all
// decoding happens outside the store's lock.
type Reader struct {
	store   *payload.Store
	outputs []string
	logger  *zap.Logger
}

// NewReader creates a reader materializing the given image outputs. An empty
// list falls back to DefaultImageOutputs.
func NewReader(store *payload.Store, outputs []string, logger *zap.Logger) *Reader {
	if len(outputs) == 0 {
		outputs = DefaultImageOutputs
	}
	return &Reader{
		store:   store,
		outputs: outputs,
		logger:  logger,
	}
}

// Read materializes the current record.
func (r *Reader) Read() Materialized {
	rec, gen := r.store.Snapshot()

	out := Materialized{
		Images:         make(map[string]*imaging.Frame, len(r.outputs)),
		Prompt:         rec.Prompt,
		NegativePrompt: rec.NegativePrompt,
		Seed:           payload.CoerceSeed(rec.Seed),
		Payload:        stripImageFields(rec.Payload),
		Timestamp:      rec.Timestamp,
		Generation:     gen,
	}

	for _, name := range r.outputs {
		frame, err := imaging.DecodeBase64(rec.Image(name))
		if err != nil {
			if rec.Image(name) != "" {
				r.logger.Warn("image field failed to decode, substituting placeholder",
					zap.String("field", name),
					zap.Error(err),
				)
			}
			frame = imaging.Placeholder()
		}
		out.Images[name] = frame
	}

	return out
}

// HasNewerThan reports whether the store holds a record newer than gen.
// Pollers use this to skip decoding when nothing changed.
func (r *Reader) HasNewerThan(gen uint64) bool {
	return r.store.NewerThan(gen)
}

// stripImageFields removes "*_base64" keys from a JSON payload so consumers
// of the metadata view don't re-receive megabytes of encoded pixels. A
// payload that is not a JSON object passes through untouched.
func stripImageFields(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return raw
	}

	stripped := false
	for key := range fields {
		if strings.HasSuffix(key, "_base64") {
			delete(fields, key)
			stripped = true
		}
	}
	if !stripped {
		return raw
	}

	out, err := json.Marshal(fields)
	if err != nil {
		return raw
	}
	return out
}
