package instance

import (
	"os"
	"strings"
)

// GetID identifies this worker process in logs: MOVIESTORE_WORKER_ID, then the
// hostname, then a fixed fallback.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("MOVIESTORE_WORKER_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
