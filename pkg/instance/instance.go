package instance

import (
	"os"

	"github.com/angelmondragon/puntoventa-backend/pkg/env"
)

// GetID names the running process for logs and lock ownership. POS_INSTANCE_ID
// wins; otherwise the hostname is used.
func GetID() string {
	if id := env.Get("INSTANCE_ID", ""); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}
