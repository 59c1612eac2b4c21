package fetch

import "errors"

// Reasons attached to a Special outcome.
var (
	// ErrTimeout is reported when the upstream did not answer in time.
	ErrTimeout = errors.New("upstream request timed out")

	// ErrTransport covers every other failure to get a response.
	ErrTransport = errors.New("upstream request failed")

	// ErrUnsupportedContentType is reported for bodies that are neither
	// HTML nor JSON.
	ErrUnsupportedContentType = errors.New("unsupported upstream content type")

	// ErrBodyRead is reported when the body cannot be read or decoded.
	ErrBodyRead = errors.New("failed to read upstream body")
)
