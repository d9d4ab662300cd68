package env

import (
	"os"
	"strings"
)

// Prefix namespaces the variables read outside of config.Load.
const Prefix = "GHEEHIVE_"

// Get returns the trimmed value of Prefix+key or a fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(Prefix + key)); val != "" {
		return val
	}
	return fallback
}
