package transform

import "errors"

var (
	// ErrParse is returned when an upstream body cannot be parsed.
	ErrParse = errors.New("failed to parse body")

	// ErrSerialize is returned when a transformed body cannot be serialized.
	ErrSerialize = errors.New("failed to serialize body")

	// ErrUnknownKind is returned for a content kind the dispatcher has no
	// pipeline for. The fetcher never forwards such bodies, so this is a bug.
	ErrUnknownKind = errors.New("unhandled content kind")
)
