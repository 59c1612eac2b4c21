package config

import "errors"

// Configuration errors. Load and Validate wrap these so callers can match
// them with errors.Is.
var (
	// ErrMissingUpstream is returned when upstream_base_url is empty.
	ErrMissingUpstream = errors.New("upstream_base_url is required")

	// ErrInvalidUpstream is returned when upstream_base_url does not parse
	// as an http or https URL.
	ErrInvalidUpstream = errors.New("invalid upstream_base_url")

	// ErrUpstreamWithoutHost is returned when upstream_base_url has no
	// domain to put in the outbound Host header. IP literals are rejected.
	ErrUpstreamWithoutHost = errors.New("upstream_base_url has no domain")

	// ErrInvalidTimeout is returned when connect_timeout_secs is not positive.
	ErrInvalidTimeout = errors.New("invalid connect_timeout_secs: must be positive")

	// ErrInvalidIgnoreLength is returned when obfuscation_ignore_length is
	// negative.
	ErrInvalidIgnoreLength = errors.New("invalid obfuscation_ignore_length: must be non-negative")

	// ErrInvalidValue is returned when a setting cannot be converted to the
	// type its key expects.
	ErrInvalidValue = errors.New("invalid configuration value")

	// ErrConfigNotFound is returned when an explicitly requested config file
	// does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
