package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/framewell/framesink/internal/broadcast"
	"github.com/framewell/framesink/internal/config"
	"github.com/framewell/framesink/internal/imaging"
	"github.com/framewell/framesink/internal/ingest"
	"github.com/framewell/framesink/internal/payload"
	"github.com/framewell/framesink/internal/snapshot"
)

// maxBodyBytes caps inbound payloads. Base64-encoded renders run large but
// not unboundedly so.
const maxBodyBytes = 64 << 20

// Handlers holds the request handlers' shared dependencies.
type Handlers struct {
	ingestor    *ingest.Ingestor
	store       *payload.Store
	broadcaster *broadcast.Broadcaster
	reader      *snapshot.Reader
	cfg         *config.ServerConfig
	logger      *zap.Logger
	started     time.Time
}

// NewHandlers wires the HTTP handlers to the core components.
func NewHandlers(
	ingestor *ingest.Ingestor,
	store *payload.Store,
	b *broadcast.Broadcaster,
	reader *snapshot.Reader,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		ingestor:    ingestor,
		store:       store,
		broadcaster: b,
		reader:      reader,
		cfg:         cfg,
		logger:      logger,
		started:     time.Now(),
	}
}

type ingestAck struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type latestResponse struct {
	Generation uint64         `json:"generation"`
	Record     payload.Record `json:"record"`
}

type statusResponse struct {
	Generation        uint64          `json:"generation"`
	LastTimestamp     float64         `json:"last_timestamp"`
	Subscribers       int             `json:"subscribers"`
	Broadcast         broadcast.Stats `json:"broadcast"`
	HeartbeatInterval string          `json:"heartbeat_interval"`
	Uptime            string          `json:"uptime"`
}

func (h *Handlers) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:  "error",
			Message: "failed to read request body: " + err.Error(),
		})
		return
	}

	result, err := h.ingestor.Ingest(r.Context(), r.Header.Get("Content-Type"), body)
	if err != nil {
		// A cancelled request context means the producer hung up, not that
		// it sent a bad payload; there is nobody left to send a 400 to.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			h.logger.Debug("ingest abandoned", zap.Error(err))
			return
		}
		h.logger.Debug("ingest rejected", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, ingestAck{
		Status:    "success",
		Message:   fmt.Sprintf("Data received at %.3f", result.Timestamp),
		Timestamp: result.Timestamp,
	})
}

func (h *Handlers) handleLatest(w http.ResponseWriter, r *http.Request) {
	rec, gen := h.store.Snapshot()
	writeJSON(w, http.StatusOK, latestResponse{Generation: gen, Record: rec})
}

func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, gen := h.store.Snapshot()
	stats := h.broadcaster.Stats()

	writeJSON(w, http.StatusOK, statusResponse{
		Generation:        gen,
		LastTimestamp:     rec.Timestamp,
		Subscribers:       stats.Subscribers,
		Broadcast:         stats,
		HeartbeatInterval: h.cfg.HeartbeatInterval.String(),
		Uptime:            time.Since(h.started).Round(time.Second).String(),
	})
}

type snapshotImage struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	PNGBase64 string `json:"png_base64"`
}

type snapshotResponse struct {
	Generation     uint64                   `json:"generation"`
	Timestamp      float64                  `json:"timestamp"`
	Prompt         string                   `json:"prompt"`
	NegativePrompt string                   `json:"negative_prompt"`
	Seed           int64                    `json:"seed"`
	Payload        json.RawMessage          `json:"payload,omitempty"`
	Images         map[string]snapshotImage `json:"images"`
}

// handleSnapshot serves the materialized view: every declared image output
// decoded and re-encoded as PNG, real or placeholder. With ?since=<gen> the
// response is 304 when no newer record exists, so pollers skip the decode.
func (h *Handlers) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if since := r.URL.Query().Get("since"); since != "" {
		gen, err := strconv.ParseUint(since, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Status:  "error",
				Message: "since must be an unsigned integer",
			})
			return
		}
		if !h.reader.HasNewerThan(gen) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	mat := h.reader.Read()

	images := make(map[string]snapshotImage, len(mat.Images))
	for name, frame := range mat.Images {
		data, err := imaging.EncodePNG(frame)
		if err != nil {
			h.logger.Error("snapshot image encode failed",
				zap.String("field", name),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Status:  "error",
				Message: "failed to encode " + name,
			})
			return
		}
		images[name] = snapshotImage{
			Width:     frame.Width,
			Height:    frame.Height,
			PNGBase64: base64.StdEncoding.EncodeToString(data),
		}
	}

	writeJSON(w, http.StatusOK, snapshotResponse{
		Generation:     mat.Generation,
		Timestamp:      mat.Timestamp,
		Prompt:         mat.Prompt,
		NegativePrompt: mat.NegativePrompt,
		Seed:           mat.Seed,
		Payload:        mat.Payload,
		Images:         images,
	})
}

func (h *Handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "framesink listening on port %s\nPOST payloads to /ingest, stream updates from /events\n", h.cfg.Port)
}

// recoverer turns a handler panic into a 500 JSON error response. The
// ingestion path replaces state atomically, so a panic never leaves a
// half-written record behind.
func (h *Handlers) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger.Error("handler panic",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
				)
				writeJSON(w, http.StatusInternalServerError, errorResponse{
					Status:  "error",
					Message: fmt.Sprint(rec),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
