// Package testkit builds BES byte fixtures for tests.
package testkit

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"
)

func U32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func F32(vs ...float32) []byte {
	var out []byte
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func Cat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func Sized(s string) []byte {
	return Cat(U32(uint32(len(s))), []byte(s))
}

func Chunk(tag bes.Tag, parts ...[]byte) []byte {
	payload := Cat(parts...)
	return Cat(U32(uint32(tag)), U32(uint32(len(payload)+8)), payload)
}

// File prefixes chunks with a version 0100 header and a zeroed preview block.
func File(chunks ...[]byte) []byte {
	return Cat([]byte(bes.Magic), []byte("0100"), U32(0), U32(0), make([]byte, bes.PreviewSize), Cat(chunks...))
}

func UserInfo() []byte {
	return Chunk(bes.TagUserInfo)
}

func Object(name string, children uint32, sub ...[]byte) []byte {
	return Chunk(bes.TagObject, U32(children), Sized(name), Cat(sub...))
}

func Transformation(t, r, s mgl32.Vec3) []byte {
	return Chunk(bes.TagTransformation, F32(t[:]...), F32(r[:]...), F32(s[:]...), make([]byte, 64))
}

func Identity() []byte {
	return Transformation(mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
}

// Vertices encodes positions with len(uvs[i]) texture channels each; all
// vertices must carry the same number of channels.
func Vertices(positions []mgl32.Vec3, uvs [][]mgl32.Vec2) []byte {
	texCnt := 0
	if len(uvs) > 0 {
		texCnt = len(uvs[0])
	}
	var body []byte
	for i, p := range positions {
		body = append(body, F32(p[:]...)...)
		body = append(body, make([]byte, 12)...)
		if i < len(uvs) {
			for _, uv := range uvs[i] {
				body = append(body, F32(uv[:]...)...)
			}
		}
	}
	return Chunk(bes.TagVertices, U32(uint32(len(positions))), U32(uint32(24+8*texCnt)), U32(uint32(texCnt)<<8), body)
}

func Faces(fs ...bes.Face) []byte {
	body := U32(uint32(len(fs)))
	for _, f := range fs {
		body = Cat(body, U32(f[0]), U32(f[1]), U32(f[2]))
	}
	return Chunk(bes.TagFaces, body)
}

func Mesh(material uint32, vertices, faces []byte) []byte {
	return Chunk(bes.TagMesh, U32(material), vertices, faces)
}

// Model wraps meshes and a transformation chunk into a Model chunk.
func Model(transform []byte, meshes ...[]byte) []byte {
	return Chunk(bes.TagModel, U32(uint32(len(meshes))), Cat(meshes...), transform)
}

// Bitmap sets one slot bit per texture name starting at slot 0.
func Bitmap(names ...string) []byte {
	var mask uint32
	var entries []byte
	for i, n := range names {
		mask |= 1 << uint(i)
		entries = Cat(entries, U32(uint32(len(n))), U32(0), []byte(n))
	}
	return Chunk(bes.TagBitmap, U32(mask), entries)
}

// PteroMat sets one slot bit per texture name starting at slot 16.
func PteroMat(name string, textures ...string) []byte {
	var mask uint32
	var entries []byte
	for i, n := range textures {
		mask |= 1 << uint(16+i)
		entries = Cat(entries, U32(0), U32(uint32(len(n))), []byte(n))
	}
	return Chunk(bes.TagPteroMat, U32(mask), Sized(name), entries)
}

func Materials(mats ...[]byte) []byte {
	return Chunk(bes.TagMaterial, U32(uint32(len(mats))), Cat(mats...))
}

// Quad is a unit square in the XY plane with one texture channel.
func Quad(material uint32) []byte {
	pos := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	uvs := [][]mgl32.Vec2{{{0, 0}}, {{1, 0}}, {{1, 1}}, {{0, 1}}}
	return Mesh(material, Vertices(pos, uvs), Faces(bes.Face{0, 1, 2}, bes.Face{0, 2, 3}))
}

// Sample is a small valid scene:
//
//	Root
//	├── Wall  (one textured quad, Bitmap "WALL.TGA", translated by (0,0,2))
//	└── Lamp  (PteroMat "Glass" with "glass.tga" and "lightmap.bmp", no meshes)
func Sample() []byte {
	wall := Object("Wall", 0,
		Model(Transformation(mgl32.Vec3{0, 0, 2}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}), Quad(0)),
		Materials(Bitmap("WALL.TGA")),
	)
	lamp := Object("Lamp", 0,
		Materials(PteroMat("Glass", "glass.tga", "lightmap.bmp")),
	)
	return File(Object("Root", 2, wall, lamp, Identity()), UserInfo())
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
