package bes

import (
	"context"
	"strings"
)

const chunkHeaderSize = 8

type chunkHeader struct {
	Tag    Tag
	Length uint32
	Offset int
}

// ChunkInfo describes one chunk header as it is read.
// Path ends with the chunk's own tag.
type ChunkInfo struct {
	Path   []Tag
	Offset int
	Length uint32
}

// ChunkHook observes chunk headers during a decode. It cannot alter decoding.
type ChunkHook func(ChunkInfo)

type decoder struct {
	ctx      context.Context
	maxDepth int
	hook     ChunkHook
	path     []Tag
}

// chunkSet holds the decoded values of one nesting level, keyed by tag, in file order.
type chunkSet map[Tag][]any

func one[T any](s chunkSet, t Tag) (T, bool) {
	var zero T
	vals := s[t]
	if len(vals) == 0 {
		return zero, false
	}
	v, ok := vals[0].(T)
	return v, ok
}

func many[T any](s chunkSet, t Tag) []T {
	vals := s[t]
	out := make([]T, 0, len(vals))
	for _, v := range vals {
		if tv, ok := v.(T); ok {
			out = append(out, tv)
		}
	}
	return out
}

// nextChunk reads one chunk header at depth and carves out its payload.
func (d *decoder) nextChunk(c *cursor, depth int) (chunkHeader, *cursor, error) {
	off := c.pos()
	if err := d.ctx.Err(); err != nil {
		return chunkHeader{}, nil, &Error{Offset: off, Kind: err}
	}
	if depth > d.maxDepth {
		return chunkHeader{}, nil, newError(ErrTooDeep, off, "chunk nesting exceeds %d levels", d.maxDepth)
	}
	if c.remaining() < chunkHeaderSize {
		return chunkHeader{}, nil, newError(ErrTruncatedInput, off, "chunk header needs %d bytes, %d remain", chunkHeaderSize, c.remaining())
	}
	tag, _ := c.readU32()
	length, _ := c.readU32()
	hdr := chunkHeader{Tag: Tag(tag), Length: length, Offset: off}
	if length < chunkHeaderSize {
		return hdr, nil, newError(ErrMalformedChunk, off, "%s chunk declares length %d", hdr.Tag, length)
	}
	size := length - chunkHeaderSize
	if uint64(size) > uint64(c.remaining()) {
		return hdr, nil, newError(ErrTruncatedInput, off, "%s chunk declares %d payload bytes, %d remain", hdr.Tag, size, c.remaining())
	}
	payload, err := c.sub(int(size))
	if err != nil {
		return hdr, nil, err
	}
	if d.hook != nil {
		path := make([]Tag, len(d.path)+1)
		copy(path, d.path)
		path[len(d.path)] = hdr.Tag
		d.hook(ChunkInfo{Path: path, Offset: off, Length: length})
	}
	return hdr, payload, nil
}

// parseSet partitions c into chunks accepted by g, decodes each one and
// checks cardinality and exact consumption of the span.
func (d *decoder) parseSet(g grammar, c *cursor, depth int) (chunkSet, error) {
	set := make(chunkSet, len(g))
	for c.remaining() >= chunkHeaderSize {
		hdr, payload, err := d.nextChunk(c, depth)
		if err != nil {
			return nil, err
		}
		card, ok := g.lookup(hdr.Tag)
		if !ok {
			return nil, newError(ErrUnexpectedChunk, hdr.Offset, "%s", hdr.Tag)
		}
		if !card.Multiple() && len(set[hdr.Tag]) > 0 {
			return nil, newError(ErrDuplicateChunk, hdr.Offset, "%s", hdr.Tag)
		}
		v, err := d.dispatch(hdr, payload, depth)
		if err != nil {
			return nil, within(hdr.Tag, err)
		}
		set[hdr.Tag] = append(set[hdr.Tag], v)
	}
	if c.remaining() != 0 {
		return nil, newError(ErrTrailingBytes, c.pos(), "%d bytes after last chunk", c.remaining())
	}
	var missing []string
	for _, r := range g {
		if r.card.Required() && len(set[r.tag]) == 0 {
			missing = append(missing, r.tag.String())
		}
	}
	if len(missing) > 0 {
		return nil, newError(ErrMissingRequiredChunk, c.pos(), "%s", strings.Join(missing, ", "))
	}
	return set, nil
}

func (d *decoder) dispatch(hdr chunkHeader, payload *cursor, depth int) (any, error) {
	d.path = append(d.path, hdr.Tag)
	defer func() { d.path = d.path[:len(d.path)-1] }()

	switch hdr.Tag {
	case TagObject:
		return d.decodeObject(payload, depth)
	case TagModel:
		return d.decodeModel(payload, depth)
	case TagMesh:
		return d.decodeMesh(payload, depth)
	case TagVertices:
		return decodeVertices(payload)
	case TagFaces:
		return decodeFaces(payload)
	case TagTransformation:
		return decodeTransformation(payload)
	case TagMaterial:
		return d.decodeMaterialList(payload, depth)
	case TagBitmap, TagPteroMat:
		layout, _ := layoutFor(hdr.Tag)
		return decodeMaterial(payload, layout)
	case TagProperties, TagUserInfo, TagReserved38:
		// Contents are not decoded; the chunk only counts towards cardinality.
		return struct{}{}, nil
	default:
		return nil, newError(ErrUnexpectedChunk, hdr.Offset, "%s", hdr.Tag)
	}
}
