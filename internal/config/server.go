package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/framewell/framesink/internal/snapshot"
)

// ServerConfig holds the ingestion server's settings, loaded from
// FRAMESINK_* environment variables.
type ServerConfig struct {
	Port string
	Host string
	// HeartbeatInterval is the SSE keepalive / WebSocket ping period.
	HeartbeatInterval time.Duration
	// SubscriberBuffer is the per-subscriber outbound message buffer.
	SubscriberBuffer int
	WSEnabled        bool
	// IncludePayload controls whether broadcast messages carry the raw
	// ingested payload.
	IncludePayload bool
	// ImageOutputs is the declared image-field list the snapshot reader
	// materializes, in order.
	ImageOutputs []string
	LogLevel     string
}

// LoadServerConfig reads and validates the server configuration.
func LoadServerConfig() (*ServerConfig, error) {
	heartbeatStr := getEnvOrDefault("FRAMESINK_HEARTBEAT_INTERVAL", "15s")
	heartbeat, err := time.ParseDuration(heartbeatStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FRAMESINK_HEARTBEAT_INTERVAL %q: %w", heartbeatStr, err)
	}

	bufferStr := getEnvOrDefault("FRAMESINK_SUBSCRIBER_BUFFER", "16")
	buffer, err := strconv.Atoi(bufferStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FRAMESINK_SUBSCRIBER_BUFFER %q: %w", bufferStr, err)
	}

	cfg := &ServerConfig{
		Port:              getEnvOrDefault("FRAMESINK_PORT", "8199"),
		Host:              getEnvOrDefault("FRAMESINK_HOST", "0.0.0.0"),
		HeartbeatInterval: heartbeat,
		SubscriberBuffer:  buffer,
		WSEnabled:         getEnvBoolOrDefault("FRAMESINK_WS_ENABLED", true),
		IncludePayload:    getEnvBoolOrDefault("FRAMESINK_INCLUDE_PAYLOAD", true),
		ImageOutputs:      parseImageOutputs(os.Getenv("FRAMESINK_IMAGE_OUTPUTS")),
		LogLevel:          getEnvOrDefault("FRAMESINK_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr returns the host:port bind address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// parseImageOutputs splits a comma-separated field list; empty input means
// the default outputs.
func parseImageOutputs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), snapshot.DefaultImageOutputs...)
	}

	var outputs []string
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field != "" {
			outputs = append(outputs, field)
		}
	}
	return outputs
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
