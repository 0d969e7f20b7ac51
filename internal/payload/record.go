package payload

import (
	"encoding/json"
	"strconv"
)

// Field names the companion apps have used across schema revisions. Records
// carry an open name->image mapping, so new fields need no code changes;
// these constants only name the canonical outputs.
const (
	FieldImage    = "image_base64"
	FieldColor    = "color_image_base64"
	FieldDepth    = "depth_image_base64"
	FieldOpenPose = "openpose_image_base64"
)

// Record is one accepted producer payload. Records are built once at
// ingestion and treated as immutable afterwards; maps are never mutated
// after the record enters the store.
type Record struct {
	// Timestamp is wall-clock seconds at ingestion. It doubles as the
	// record's version stamp.
	Timestamp float64 `json:"timestamp"`

	// Payload is the original structured body, or synthesized provenance
	// for binary posts.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Images maps field name to the image in its original encoded form
	// (base64, possibly with a data-URI prefix).
	Images map[string]string `json:"images,omitempty"`

	Prompt         string `json:"prompt,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`

	// Seed is kept as parsed; coercion to an integer happens at read time.
	Seed any `json:"seed,omitempty"`

	// ContentType is retained as provenance when the body was raw binary.
	ContentType string `json:"content_type,omitempty"`
}

// Image returns the encoded image stored under name, or "" when absent.
func (r *Record) Image(name string) string {
	return r.Images[name]
}

// CoerceSeed converts a parsed seed value to an integer: integral values
// pass through, floats and numeric strings truncate, everything else is 0.
func CoerceSeed(v any) int64 {
	switch s := v.(type) {
	case nil:
		return 0
	case int64:
		return s
	case int:
		return int64(s)
	case float64:
		return int64(s)
	case json.Number:
		if n, err := s.Int64(); err == nil {
			return n
		}
		if f, err := s.Float64(); err == nil {
			return int64(f)
		}
		return 0
	case string:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
		return 0
	default:
		return 0
	}
}
