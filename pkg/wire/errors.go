package wire

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a CodecError
type ErrorKind string

const (
	UnsupportedType ErrorKind = "unsupported_type"
	InvalidLayout   ErrorKind = "invalid_layout"
	SizeMismatch    ErrorKind = "size_mismatch"
	UnknownEnum     ErrorKind = "unknown_enum"
)

// CodecError reports a message that could not be encoded or decoded.
// Message and Field name the offending struct type and field when known.
type CodecError struct {
	Kind    ErrorKind
	Message string
	Field   string
	Msg     string
}

// Error implements the error interface
func (e *CodecError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		fmt.Fprintf(&b, ": message %s", e.Message)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

// Is allows errors.Is to compare CodecError values by Kind
func (e *CodecError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*CodecError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Predefined sentinel errors, one per kind
var (
	ErrUnsupportedType = &CodecError{Kind: UnsupportedType}
	ErrInvalidLayout   = &CodecError{Kind: InvalidLayout}
	ErrSizeMismatch    = &CodecError{Kind: SizeMismatch}
	ErrUnknownEnum     = &CodecError{Kind: UnknownEnum}
)

func layoutError(l *Layout, field, format string, args ...any) *CodecError {
	return &CodecError{Kind: InvalidLayout, Message: l.Name, Field: field, Msg: fmt.Sprintf(format, args...)}
}
