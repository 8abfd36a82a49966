package config

import (
	"fmt"
	"os"
	"strconv"
)

// getString retrieves an environment variable or returns a fallback when unset.
func getString(key, fallback string) string {
	if value, ok := os.LookupEnv(envPrefix + key); ok {
		return value
	}
	return fallback
}

// getInt retrieves an environment variable as integer or returns fallback.
// Unparsable values are recorded in errs.
func getInt(key string, fallback int, errs *[]error) int {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalid, envPrefix, key, value))
		return fallback
	}
	return parsed
}
