package bes

import "github.com/go-gl/mathgl/mgl32"

const (
	vertexBaseSize    = 24 // position + reserved
	vertexReserved    = 12
	uvPairSize        = 8
	faceSize          = 12
	transformSize     = 100
	transformReserved = transformSize - 36
)

func (d *decoder) decodeMesh(c *cursor, depth int) (Mesh, error) {
	material, err := c.readU32()
	if err != nil {
		return Mesh{}, err
	}
	set, err := d.parseSet(meshGrammar, c, depth+1)
	if err != nil {
		return Mesh{}, err
	}
	m := Mesh{Material: material}
	m.Vertices, _ = one[[]Vertex](set, TagVertices)
	m.Faces, _ = one[[]Face](set, TagFaces)

	n := uint64(len(m.Vertices))
	for i, f := range m.Faces {
		for _, idx := range f {
			if uint64(idx) >= n {
				return Mesh{}, newError(ErrInvalidFaceIndex, c.base, "face %d references vertex %d, mesh has %d vertices", i, idx, n)
			}
		}
	}
	return m, nil
}

func decodeVertices(c *cursor) ([]Vertex, error) {
	count, err := c.readU32()
	if err != nil {
		return nil, err
	}
	size, err := c.readU32()
	if err != nil {
		return nil, err
	}
	vtype, err := c.readU32()
	if err != nil {
		return nil, err
	}
	texCnt := (vtype >> 8) & 0xFF
	if want := vertexBaseSize + uvPairSize*texCnt; size != want {
		return nil, newError(ErrSizeMismatch, c.pos(), "vertex size %d, want %d for %d texture channels", size, want, texCnt)
	}
	if need := uint64(count) * uint64(size); need != uint64(c.remaining()) {
		return nil, newError(ErrSizeMismatch, c.pos(), "%d vertices of %d bytes need %d bytes, payload has %d", count, size, need, c.remaining())
	}

	verts := make([]Vertex, count)
	for i := range verts {
		rec, err := c.sub(int(size))
		if err != nil {
			return nil, err
		}
		if verts[i].Position, err = rec.readVec3(); err != nil {
			return nil, err
		}
		if err := rec.skip(vertexReserved); err != nil {
			return nil, err
		}
		if texCnt == 0 {
			continue
		}
		verts[i].UVs = make([]mgl32.Vec2, texCnt)
		for j := range verts[i].UVs {
			if verts[i].UVs[j], err = rec.readVec2(); err != nil {
				return nil, err
			}
		}
	}
	return verts, nil
}

func decodeFaces(c *cursor) ([]Face, error) {
	count, err := c.readU32()
	if err != nil {
		return nil, err
	}
	if need := uint64(count) * faceSize; need != uint64(c.remaining()) {
		return nil, newError(ErrSizeMismatch, c.pos(), "%d faces need %d bytes, payload has %d", count, need, c.remaining())
	}
	faces := make([]Face, count)
	for i := range faces {
		for j := range faces[i] {
			if faces[i][j], err = c.readU32(); err != nil {
				return nil, err
			}
		}
	}
	return faces, nil
}

func decodeTransformation(c *cursor) (Transform, error) {
	if c.remaining() != transformSize {
		return Transform{}, newError(ErrSizeMismatch, c.pos(), "transformation is %d bytes, want %d", c.remaining(), transformSize)
	}
	var t Transform
	var err error
	if t.Translation, err = c.readVec3(); err != nil {
		return Transform{}, err
	}
	if t.Rotation, err = c.readVec3(); err != nil {
		return Transform{}, err
	}
	if t.Scale, err = c.readVec3(); err != nil {
		return Transform{}, err
	}
	if err := c.skip(transformReserved); err != nil {
		return Transform{}, err
	}
	return t, nil
}
