package errors

import (
	"errors"
	"fmt"
)

// Kind represents the different failure classes of a scrape run
type Kind string

const (
	KindFetch           Kind = "fetch"
	KindUnsupportedSite Kind = "unsupported_site"
	KindPageWrite       Kind = "page_write"
	KindMetadataWrite   Kind = "metadata_write"
	KindImageDownload   Kind = "image_download"
	KindConfig          Kind = "config"
)

// Error represents a scrape error with the operation and target that failed
type Error struct {
	Kind   Kind
	Op     string
	Target string
	Code   int
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s %s", e.Kind, e.Op, e.Target)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind
func New(kind Kind, op, target string, err error) *Error {
	return &Error{Kind: kind, Op: op, Target: target, Err: err}
}

// WithCode attaches an HTTP status code
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// KindOf returns the kind of the first *Error in the chain, or "" if there is none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsFatal checks if an error must abort the run.
// Only per-image download failures are recoverable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) != KindImageDownload
}
