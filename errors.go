package rancher

import "errors"

// Load-time errors.
var (
	// ErrNotFound reports a path that does not resolve to a file.
	ErrNotFound = errors.New("document not found")
	// ErrUnreadable reports an I/O or permission failure on a source file.
	ErrUnreadable = errors.New("document not readable")
	// ErrInvalidDocument reports a file that is not a parseable PDF.
	ErrInvalidDocument = errors.New("invalid document")
)

// Ordering mutation errors.
var (
	// ErrInvalidPermutation reports a reorder sequence that is not a
	// permutation of the current entry identifiers.
	ErrInvalidPermutation = errors.New("invalid permutation")
	// ErrUnknownID reports an identifier no ordering entry carries.
	ErrUnknownID = errors.New("unknown ordering id")
)

// Export-time errors.
var (
	// ErrEmptyExport reports an export with zero enabled entries. It is
	// raised before anything touches the filesystem.
	ErrEmptyExport = errors.New("nothing to export")
	// ErrMissingSource reports a source document that disappeared between
	// import and export.
	ErrMissingSource = errors.New("source document missing")
	// ErrWriteFailed reports a failure writing the output file.
	ErrWriteFailed = errors.New("write failed")
	// ErrExportBusy reports an export requested while another is running.
	ErrExportBusy = errors.New("export already in progress")
)
