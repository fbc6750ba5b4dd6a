package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateJobID generates a search job ID with a timestamp prefix and a
// random UUID suffix, e.g. "srch-20250101-120000-9f83a1c2".
func GenerateJobID() string {
	timestamp := time.Now().Format("20060102-150405")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("srch-%s-%s", timestamp, suffix)
}

// GenerateCallbackID generates an opaque ID for correlating webhook deliveries.
func GenerateCallbackID() string {
	return uuid.NewString()
}
