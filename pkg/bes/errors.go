package bes

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTruncatedInput       = errors.New("truncated input")
	ErrInvalidEncoding      = errors.New("invalid encoding")
	ErrInvalidHeader        = errors.New("invalid header")
	ErrMalformedChunk       = errors.New("malformed chunk")
	ErrUnexpectedChunk      = errors.New("unexpected chunk")
	ErrDuplicateChunk       = errors.New("duplicate chunk")
	ErrTrailingBytes        = errors.New("trailing bytes")
	ErrMissingRequiredChunk = errors.New("missing required chunk")
	ErrChildCountMismatch   = errors.New("child count mismatch")
	ErrSizeMismatch         = errors.New("size mismatch")
	ErrInvalidFaceIndex     = errors.New("invalid face index")
	ErrInvalidMaterialType  = errors.New("invalid material type")
	ErrTooDeep              = errors.New("nesting too deep")
)

// Error is a structural decode failure. Path lists the chunk tags from the
// root down to the chunk whose payload diverged from the grammar; it is empty
// for header failures.
type Error struct {
	Path   []Tag
	Offset int // absolute byte offset of the failing read, -1 if unknown
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	var b strings.Builder
	for i, t := range e.Path {
		if i > 0 {
			b.WriteString("->")
		}
		b.WriteString(t.String())
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// PathString renders the chunk path as "Object->Model->Mesh".
func (e *Error) PathString() string {
	parts := make([]string, len(e.Path))
	for i, t := range e.Path {
		parts[i] = t.String()
	}
	return strings.Join(parts, "->")
}

func newError(kind error, off int, format string, args ...any) *Error {
	return &Error{Offset: off, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// within prefixes the failing chunk's tag onto err's path.
func within(tag Tag, err error) error {
	var de *Error
	if errors.As(err, &de) {
		de.Path = append([]Tag{tag}, de.Path...)
		return de
	}
	return &Error{Path: []Tag{tag}, Offset: -1, Kind: err}
}
