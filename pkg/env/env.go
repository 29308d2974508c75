// Package env has small helpers for reading process environment variables.
package env

import "os"

// Get reads key from the environment, falling back when it is unset or empty.
func Get(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
