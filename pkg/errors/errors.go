// Package errors defines the error categories surfaced by distboot and
// small helpers for attaching context to them.
package errors

import "fmt"

// Installer errors. Callers match them with errors.Is.
var (
	// ErrTransport is returned when fetching a remote resource fails.
	ErrTransport = fmt.Errorf("transport error")

	// ErrChecksumMismatch is returned when a downloaded archive does not match its checksum.
	ErrChecksumMismatch = fmt.Errorf("checksum mismatch")

	// ErrStructure is returned when an extracted distribution does not contain exactly one directory.
	ErrStructure = fmt.Errorf("invalid distribution structure")

	// ErrUnknownAlgorithm is returned for checksum algorithms that are not registered.
	ErrUnknownAlgorithm = fmt.Errorf("unknown checksum algorithm")

	// ErrInvalidPath is returned when a path is empty or escapes its root.
	ErrInvalidPath = fmt.Errorf("invalid path")

	// ErrLockTimeout is returned when the cache lock could not be acquired before the context ended.
	ErrLockTimeout = fmt.Errorf("could not acquire cache lock")
)

// Config errors.
var (
	ErrEmptyConfigPath      = fmt.Errorf("config file path cannot be empty")
	ErrConfigParse          = fmt.Errorf("failed to parse config")
	ErrInvalidConfiguration = fmt.Errorf("invalid configuration")
	ErrMissingDistribution  = fmt.Errorf("distributionUrl is required")
	ErrMissingChecksumURL   = fmt.Errorf("checksumUrl is required when verifyDownload is enabled")
	ErrHTTPTimeoutNegative  = fmt.Errorf("http_timeout cannot be negative")
	ErrInvalidVersion       = fmt.Errorf("invalid version")
	ErrConfigFileExists     = fmt.Errorf("configuration file already exists")
)

// Cache errors.
var (
	ErrCacheDirectory = fmt.Errorf("cache directory cannot be empty")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidLogLevelWithDetails reports an unsupported log level.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("invalid log level %q, must be one of debug, info, warn, error: %w", level, ErrInvalidConfiguration)
}
