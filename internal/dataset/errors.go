package dataset

import (
	"errors"
	"fmt"
	"log"
)

// Error taxonomy. Adapter and resolver errors wrap one of these; check
// them with errors.Is.
var (
	// ErrNotFound means the path or a required primary file is missing.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFormat means the path or modality hint matches no
	// known format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrDecode means the primary image container could not be parsed.
	ErrDecode = errors.New("decode error")

	// ErrMetadataParse marks malformed secondary metadata. It only ever
	// appears inside a Warning.
	ErrMetadataParse = errors.New("metadata parse error")

	// ErrDependencyMissing means the container uses an encoding this
	// build cannot decode.
	ErrDependencyMissing = errors.New("decoder unavailable")

	// ErrChannelOutOfRange is returned for a channel index outside
	// [0, len(Channels())).
	ErrChannelOutOfRange = errors.New("channel out of range")
)

// Warning is a non-fatal problem met while opening or using a dataset.
type Warning struct {
	// Source names the artifact involved, e.g. "cells" or "page 3".
	Source string `json:"source"`

	Err error `json:"-"`
}

// Error implements the error interface.
func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Source, w.Err)
}

// Unwrap returns the underlying error.
func (w Warning) Unwrap() error {
	return w.Err
}

// MarshalText encodes the warning as its message, so warnings render as
// strings in JSON.
func (w Warning) MarshalText() ([]byte, error) {
	return []byte(w.Error()), nil
}

// warn records a warning and logs it.
func (b *base) warn(source string, err error) {
	w := Warning{Source: source, Err: err}
	b.warnings = append(b.warnings, w)
	log.Printf("WARNING [%s %s]: %v", b.modality, b.path, w)
}

// metadataWarning records err as an ErrMetadataParse warning.
func (b *base) metadataWarning(source string, err error) {
	b.warn(source, fmt.Errorf("%w: %v", ErrMetadataParse, err))
}
