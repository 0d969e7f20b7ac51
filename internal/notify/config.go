package notify

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config selects the ntfy server, topic, and message defaults. Everything
// comes from FRAMESINK_NTFY_* environment variables; notifications stay off
// unless explicitly enabled.
type Config struct {
	Enabled  bool
	Server   string
	Topic    string
	Priority string
	Tags     string
	Token    string // bearer token for private topics
}

// LoadConfig reads the notification settings from the environment.
func LoadConfig() *Config {
	return &Config{
		Enabled:  envBool("FRAMESINK_NTFY_ENABLED", false),
		Server:   envString("FRAMESINK_NTFY_SERVER", "https://ntfy.sh"),
		Topic:    os.Getenv("FRAMESINK_NTFY_TOPIC"),
		Priority: envString("FRAMESINK_NTFY_PRIORITY", "default"),
		Tags:     envString("FRAMESINK_NTFY_TAGS", "film_frames"),
		Token:    os.Getenv("FRAMESINK_NTFY_TOKEN"),
	}
}

// Validate rejects settings that would make every publish fail. A disabled
// config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Topic == "" {
		return errors.New("FRAMESINK_NTFY_TOPIC is required when FRAMESINK_NTFY_ENABLED=true")
	}
	switch c.Priority {
	case "min", "low", "default", "high", "urgent":
	default:
		return fmt.Errorf("invalid FRAMESINK_NTFY_PRIORITY %q (valid: min, low, default, high, urgent)", c.Priority)
	}
	return nil
}

func envString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}
