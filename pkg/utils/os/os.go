// Package os provides helpers around environment of the process.
package os

import "os"

// GetEnvOr returns the environment variable, or fallback when it is missing or empty.
func GetEnvOr(name, fallback string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return fallback
}
