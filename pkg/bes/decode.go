// Package bes decodes BES scene files of the Ptero-Engine into an object tree.
//
// A file is a 16-byte header, a 0x3000-byte preview image and a stream of
// nested tag/length/payload chunks. Every nesting level is checked against a
// fixed grammar: unknown tags, duplicates, missing required chunks, count
// mismatches and unconsumed bytes are all fatal. Decoding is all-or-nothing.
package bes

import (
	"context"
	"slices"
)

const (
	Magic           = "BES\x00"
	HeaderSize      = 16
	PreviewSize     = 0x3000
	DataOffset      = HeaderSize + PreviewSize
	DefaultMaxDepth = 64
)

// DefaultVersions is the version allow-list used unless WithVersions is given.
var DefaultVersions = []string{"0004", "0005", "0006", "0007", "0008", "0100"}

type options struct {
	ctx      context.Context
	maxDepth int
	versions []string
	hook     ChunkHook
}

type Option func(*options)

// WithMaxDepth bounds chunk nesting. Deeper files fail with ErrTooDeep.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// WithVersions replaces the accepted version tags.
func WithVersions(versions ...string) Option {
	return func(o *options) {
		o.versions = slices.Clone(versions)
	}
}

// WithContext makes the decode abort at the next chunk boundary once ctx is done.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

func WithChunkHook(fn ChunkHook) Option {
	return func(o *options) {
		o.hook = fn
	}
}

func resolveOptions(opts []Option) options {
	o := options{
		ctx:      context.Background(),
		maxDepth: DefaultMaxDepth,
		versions: DefaultVersions,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Decode decodes a complete file held in data and returns its root object.
func Decode(data []byte, opts ...Option) (*Object, error) {
	s, err := DecodeScene(data, opts...)
	if err != nil {
		return nil, err
	}
	return s.Root, nil
}

// DecodeScene decodes a complete file and returns the header together with the root object.
// data is only read; the returned tree does not alias it.
func DecodeScene(data []byte, opts ...Option) (*Scene, error) {
	o := resolveOptions(opts)
	hdr, err := readHeader(data, o.versions)
	if err != nil {
		return nil, err
	}
	if len(data) < DataOffset {
		return nil, newError(ErrTruncatedInput, len(data), "preview block needs %d bytes, file has %d", DataOffset, len(data))
	}

	d := &decoder{ctx: o.ctx, maxDepth: o.maxDepth, hook: o.hook}
	set, err := d.parseSet(rootGrammar, newCursor(data[DataOffset:], DataOffset), 1)
	if err != nil {
		return nil, err
	}
	root, _ := one[*Object](set, TagObject)
	return &Scene{Header: hdr, Root: root}, nil
}

// ReadHeader validates only the file header.
func ReadHeader(data []byte, opts ...Option) (Header, error) {
	o := resolveOptions(opts)
	return readHeader(data, o.versions)
}

func readHeader(data []byte, versions []string) (Header, error) {
	c := newCursor(data, 0)
	b, err := c.readFixed(HeaderSize)
	if err != nil {
		return Header{}, err
	}
	var h Header
	copy(h.Signature[:], b[0:4])
	if string(h.Signature[:]) != Magic {
		return Header{}, newError(ErrInvalidHeader, 0, "signature %q", h.Signature[:])
	}
	h.Version = string(b[4:8])
	if !slices.Contains(versions, h.Version) {
		return Header{}, newError(ErrInvalidHeader, 4, "unsupported version %q", h.Version)
	}
	hc := newCursor(b[8:], 8)
	h.Reserved[0], _ = hc.readU32()
	h.Reserved[1], _ = hc.readU32()
	return h, nil
}
