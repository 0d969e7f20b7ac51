package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/framewell/framesink/internal/replay"
)

// FormatSuccessMessage creates a success notification body.
func FormatSuccessMessage(result *replay.BatchResult, duration time.Duration) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d payloads\n", result.Total))
	sb.WriteString(fmt.Sprintf("Pushed: %d\n", result.Success))
	sb.WriteString(fmt.Sprintf("Rejected: %d\n", result.Rejected))
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Second)))

	return sb.String()
}

// FormatFailureMessage creates a failure notification body.
func FormatFailureMessage(result *replay.BatchResult, duration time.Duration, err error) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d payloads\n", result.Total))
	sb.WriteString(fmt.Sprintf("Pushed: %d\n", result.Success))
	sb.WriteString(fmt.Sprintf("Rejected: %d\n", result.Rejected))
	sb.WriteString(fmt.Sprintf("Failed: %d\n", result.Failed))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", duration.Round(time.Second)))

	if err != nil {
		sb.WriteString(fmt.Sprintf("Error: %v\n", err))
	}

	if len(result.Errors) > 0 {
		sb.WriteString("\nFirst errors:\n")
		limit := len(result.Errors)
		if limit > 5 {
			limit = 5
		}
		for _, e := range result.Errors[:limit] {
			sb.WriteString("- " + e + "\n")
		}
	}

	return sb.String()
}
