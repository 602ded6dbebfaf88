package kunda

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ArchiveError is the error type returned by every operation in this
// module. Errors compare with errors.Is against the named root errors
// below, so callers can react to the category while still seeing the
// detailed message.
type ArchiveError interface {
	error
	WithMessage(message string) ArchiveError
	Wrap(err error) ArchiveError
}

type baseArchiveError string

const rootError = baseArchiveError("")

// Input errors: the source path handed to an operation is unusable.
var ErrInputNotFound = rootError.WithMessage("cannot access input path")
var ErrNotFileOrDirectory = rootError.WithMessage("input is not a regular file or directory")

// Format errors: the container bytes cannot be parsed.
var ErrNotAContainer = rootError.WithMessage("not a valid container")
var ErrUnsupportedVersion = rootError.WithMessage("unsupported container version")
var ErrTruncatedContainer = rootError.WithMessage("truncated or corrupt container")
var ErrBadPrefixReference = rootError.WithMessage("path references a prefix outside the table")

// Limit errors: the archive being built exceeds a wire-format bound.
var ErrLimitExceeded = rootError.WithMessage("container format limit exceeded")

// Codec errors: the external compressor failed or disagreed with the
// header about sizes.
var ErrCompressionFailed = rootError.WithMessage("compression failed")
var ErrDecompressionFailed = rootError.WithMessage("decompression failed")
var ErrSizeMismatch = rootError.WithMessage("decompressed size does not match declared original size")
var ErrUnsupportedMethod = rootError.WithMessage("unsupported compression method")

// Digest errors.
var ErrDigestMismatch = rootError.WithMessage("integrity digest mismatch")

// Extraction errors.
var ErrUnsafePath = rootError.WithMessage("entry path escapes the extraction root")

// Traversal errors: pathological directory trees. These abort only the
// offending subtree during collection, never the whole scan.
var ErrTraversalDepth = rootError.WithMessage("directory nesting exceeds depth limit")
var ErrTraversalCycle = rootError.WithMessage("directory cycle detected")

func (e baseArchiveError) Error() string {
	return string(e)
}

func (e baseArchiveError) WithMessage(message string) ArchiveError {
	return customArchiveError{
		message:       message,
		originalError: e,
	}
}

func (e baseArchiveError) Wrap(err error) ArchiveError {
	return customArchiveError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customArchiveError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a
// string describing the error.
func (e customArchiveError) Error() string {
	return e.message
}

func (e customArchiveError) WithMessage(message string) ArchiveError {
	return customArchiveError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customArchiveError) Wrap(err error) ArchiveError {
	return customArchiveError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customArchiveError) Unwrap() error {
	return e.originalError
}
