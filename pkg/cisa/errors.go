package cisa

import (
	"errors"
	"fmt"
)

var (
	ErrTruncatedField     = errors.New("truncated field")
	ErrBadMagic           = errors.New("invalid CISA magic")
	ErrUnsupportedVersion = errors.New("unsupported CISA version")
	ErrBadOffset          = errors.New("detail record out of bounds")
	ErrFieldOverflow      = errors.New("value does not fit field width")
	ErrCountMismatch      = errors.New("count field disagrees with data")
	ErrWrongKind          = errors.New("wrong record kind")

	// ErrClosed is returned by calls that need the source bytes after Close.
	ErrClosed = errors.New("container is closed")
)

// Error reports a parse or serialise failure and the byte offset it
// happened at. Kind is one of the Err* sentinels.
type Error struct {
	Kind   error
	Msg    string
	Offset int
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("cisa: %v at offset %d", e.Kind, e.Offset)
	}
	return fmt.Sprintf("cisa: %v: %s at offset %d", e.Kind, e.Msg, e.Offset)
}

func (e *Error) Unwrap() error { return e.Kind }

func errorf(kind error, off int, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Offset: off}
}
