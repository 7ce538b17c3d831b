// Package env reads the few settings that are needed before pkg/config has
// loaded, such as the log format and the instance name.
package env

import (
	"os"
	"strings"
)

// Prefix matches the envconfig prefix used by pkg/config.
const Prefix = "POS_"

// Get returns POS_<name>, then the bare <name>, then fallback. Blank values
// count as unset.
func Get(name, fallback string) string {
	name = strings.TrimPrefix(strings.ToUpper(name), Prefix)
	for _, key := range []string{Prefix + name, name} {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}
