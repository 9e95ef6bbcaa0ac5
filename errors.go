package b2extract

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrInvalidIndex is not returned by any function in this package: OpenIndex checks no header
	// signature and reports an unusable header as ErrIndexMalformed.
	ErrInvalidIndex = errors.New("b2extract: invalid index file")

	// ErrIndexMalformed is returned when the header offsets point outside the file. Fatal: aborts the run.
	ErrIndexMalformed = errors.New("b2extract: index header malformed")

	// ErrEntryOutOfRange is returned when an entry table row points past the index file or references
	// a bad block. The entry is skipped, the run continues.
	ErrEntryOutOfRange = errors.New("b2extract: entry table row out of range")

	// ErrMissingContainer is returned when the container file named by a block does not exist next
	// to the index file.
	ErrMissingContainer = errors.New("b2extract: container file not found")

	// ErrContainerIO is returned when a read from a container falls outside the file.
	ErrContainerIO = errors.New("b2extract: container read out of bounds")

	// ErrCodecUnavailable is returned by the Oodle backend when the native Oodle entry point could
	// not be loaded. The shim does not return it; decompression falls back to passthrough.
	ErrCodecUnavailable = errors.New("b2extract: oodle codec unavailable")

	// ErrCodecFailure is returned when Oodle loaded but the decompress call itself failed.
	ErrCodecFailure = errors.New("b2extract: oodle decompress failed")

	// ErrWriteIO is returned when an output file could not be written (locked, disk full, ...).
	ErrWriteIO = errors.New("b2extract: output write failed")

	// ErrMalformedEntry covers clamp/bounds violations on abs_offset/abs_size against the assembled window.
	ErrMalformedEntry = errors.New("b2extract: entry payload bounds invalid")
)
