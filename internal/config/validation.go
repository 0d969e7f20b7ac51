package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Validate checks a loaded server configuration.
func (c *ServerConfig) Validate() error {
	if err := validatePort(c.Port); err != nil {
		return err
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %s", c.HeartbeatInterval)
	}
	if c.SubscriberBuffer < 1 {
		return fmt.Errorf("subscriber buffer must be at least 1, got %d", c.SubscriberBuffer)
	}
	if len(c.ImageOutputs) == 0 {
		return fmt.Errorf("at least one image output must be declared")
	}
	for _, field := range c.ImageOutputs {
		if strings.ContainsAny(field, " \t") {
			return fmt.Errorf("image output %q contains whitespace", field)
		}
	}
	if err := validateLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", port, err)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port %d out of range (1-65535)", n)
	}
	return nil
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", level)
	}
}
