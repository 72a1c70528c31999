package source

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so the UI can tell a broken environment from broken media.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindUnsupportedFormat
	KindDecoding
	KindIO
	KindToolMissing
	KindEndOfStream
)

// Sentinels for errors.Is checks against any *Error of the matching kind.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrDecoding          = errors.New("decoding error")
	ErrIO                = errors.New("io error")
	ErrToolMissing       = errors.New("decoder not available")
	ErrEndOfStream       = errors.New("end of stream")
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindDecoding:
		return "decoding"
	case KindIO:
		return "io"
	case KindToolMissing:
		return "tool_missing"
	case KindEndOfStream:
		return "end_of_stream"
	}
	return "unknown"
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindUnsupportedFormat:
		return ErrUnsupportedFormat
	case KindDecoding:
		return ErrDecoding
	case KindIO:
		return ErrIO
	case KindToolMissing:
		return ErrToolMissing
	case KindEndOfStream:
		return ErrEndOfStream
	}
	return nil
}

// Error is the typed failure returned by every fallible FrameSource operation.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.sentinel()
	text := "source error"
	if msg != nil {
		text = msg.Error()
	}
	if e.Op != "" {
		text = e.Op + ": " + text
	}
	if e.Path != "" {
		text += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		text += ": " + e.Err.Error()
	}
	return text
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf extracts the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
