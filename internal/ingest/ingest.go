// Package ingest accepts one producer payload, stores it as the current
// record, and publishes it to streaming subscribers.
package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/framewell/framesink/internal/broadcast"
	"github.com/framewell/framesink/internal/payload"
)

// ErrEmptyBody is returned when a request carries no body at all.
var ErrEmptyBody = errors.New("empty request body")

// Result reports one accepted ingestion.
type Result struct {
	// Timestamp assigned to the stored record, wall-clock seconds.
	Timestamp float64

	// ImageFields is the number of image fields found in the payload.
	ImageFields int
}

// binaryProvenance is the payload synthesized for raw binary posts.
type binaryProvenance struct {
	Type        string `json:"type"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Ingestor builds records from inbound requests. Exactly one store replace
// and at most one broadcast publish happen per accepted payload, in that
// order, both derived from the same record.
type Ingestor struct {
	store          *payload.Store
	broadcaster    *broadcast.Broadcaster
	includePayload bool
	logger         *zap.Logger

	now func() time.Time
}

// New creates an ingestor. includePayload controls whether broadcast
// messages carry the raw payload alongside the projected fields.
func New(store *payload.Store, b *broadcast.Broadcaster, includePayload bool, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		store:          store,
		broadcaster:    b,
		includePayload: includePayload,
		logger:         logger,
		now:            time.Now,
	}
}

// Ingest parses one request body and, on success, replaces the current
// record and publishes it. Parse failures leave the store and subscribers
// untouched.
func (i *Ingestor) Ingest(ctx context.Context, contentType string, body []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(body) == 0 {
		return Result{}, ErrEmptyBody
	}

	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	var rec payload.Record
	var err error
	if strings.Contains(mediaType, "json") {
		rec, err = parseJSONBody(body)
	} else {
		rec = buildBinaryRecord(mediaType, body)
	}
	if err != nil {
		return Result{}, err
	}

	rec.Timestamp = float64(i.now().UnixNano()) / float64(time.Second)

	i.store.Replace(rec)
	i.broadcaster.Publish(broadcast.FromRecord(rec, i.includePayload))

	i.logger.Info("payload ingested",
		zap.Float64("timestamp", rec.Timestamp),
		zap.Int("image_fields", len(rec.Images)),
		zap.Int("body_bytes", len(body)),
		zap.String("content_type", mediaType),
	)

	return Result{Timestamp: rec.Timestamp, ImageFields: len(rec.Images)}, nil
}

// parseJSONBody extracts image fields and metadata from a structured body.
// Any key ending in "_base64" with a string value is an image field; other
// keys ride along untouched in the raw payload. Metadata is accepted both
// nested under "metadata" and at the top level, since producers have sent
// both shapes.
func parseJSONBody(body []byte) (payload.Record, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return payload.Record{}, fmt.Errorf("parse json body: %w", err)
	}

	rec := payload.Record{Payload: json.RawMessage(body)}

	for key, value := range fields {
		if !strings.HasSuffix(key, "_base64") {
			continue
		}
		s, ok := value.(string)
		if !ok || s == "" {
			continue
		}
		if rec.Images == nil {
			rec.Images = make(map[string]string)
		}
		rec.Images[key] = s
	}

	applyMetadata(&rec, fields)
	if meta, ok := fields["metadata"].(map[string]any); ok {
		applyMetadata(&rec, meta)
	}

	return rec, nil
}

func applyMetadata(rec *payload.Record, fields map[string]any) {
	if prompt, ok := fields["prompt"].(string); ok {
		rec.Prompt = prompt
	}
	if negative, ok := fields["negative_prompt"].(string); ok {
		rec.NegativePrompt = negative
	}
	if seed, ok := fields["seed"]; ok {
		rec.Seed = seed
	}
}

// buildBinaryRecord wraps a raw body as the default image field. Image
// content types get a data-URI prefix and are retained as provenance.
func buildBinaryRecord(mediaType string, body []byte) payload.Record {
	encoded := base64.StdEncoding.EncodeToString(body)

	rec := payload.Record{
		Images: map[string]string{payload.FieldImage: encoded},
	}
	if strings.HasPrefix(mediaType, "image/") {
		rec.Images[payload.FieldImage] = "data:" + mediaType + ";base64," + encoded
		rec.ContentType = mediaType
	}

	provenance, _ := json.Marshal(binaryProvenance{
		Type:        "binary_data",
		ContentType: mediaType,
		Size:        len(body),
	})
	rec.Payload = provenance

	return rec
}
