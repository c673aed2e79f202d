package doctext

import (
	"errors"
	"fmt"
	"io/fs"
)

// FailureKind classifies why a file produced no text.
type FailureKind string

const (
	// KindIO covers unreadable, vanished or permission-denied files.
	KindIO FailureKind = "io"
	// KindStructural covers malformed archives, escapes, nesting and missing entries.
	KindStructural FailureKind = "structural"
	// KindSemantic covers well-formed input that holds nothing to extract.
	KindSemantic FailureKind = "semantic"
)

var (
	ErrEmptyFile    = errors.New("file is empty")
	ErrMissingEntry = errors.New("required archive entry not found")
	ErrNoHTMLPart   = errors.New("message has no text/html part")
)

// Failure is an accounted per-file error.
type Failure struct {
	File string
	Kind FailureKind
	// Page is the zero-based page that failed, or -1 for the whole file.
	Page int
	Err  error
}

func (f *Failure) Error() string {
	if f.Page >= 0 {
		return fmt.Sprintf("%s (page %d): %s: %v", f.File, f.Page, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.File, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure wraps err for file, classifying it with KindOf.
func NewFailure(file string, page int, err error) *Failure {
	return &Failure{File: file, Kind: KindOf(err), Page: page, Err: err}
}

// KindOf maps an arbitrary decode error onto the failure taxonomy. Errors
// that are neither filesystem nor known semantic errors are structural.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, ErrNoHTMLPart):
		return KindSemantic
	case errors.As(err, &pathErr),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission),
		errors.Is(err, fs.ErrClosed):
		return KindIO
	default:
		return KindStructural
	}
}
