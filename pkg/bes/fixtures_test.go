package bes

import (
	"bytes"
	"encoding/binary"
	"math"
)

func u32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func f32(vs ...float32) []byte {
	var out []byte
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func cat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func sized(s string) []byte {
	return cat(u32(uint32(len(s))), []byte(s))
}

func chunk(tag Tag, parts ...[]byte) []byte {
	payload := cat(parts...)
	return cat(u32(uint32(tag)), u32(uint32(len(payload)+chunkHeaderSize)), payload)
}

func header(version string) []byte {
	return cat([]byte(Magic), []byte(version), u32(0), u32(0))
}

func file(chunks ...[]byte) []byte {
	return cat(header("0100"), make([]byte, PreviewSize), cat(chunks...))
}

func userInfo() []byte {
	return chunk(TagUserInfo)
}

func object(name string, children uint32, sub ...[]byte) []byte {
	return chunk(TagObject, u32(children), sized(name), cat(sub...))
}

func transformation(t, r, s [3]float32) []byte {
	return chunk(TagTransformation, f32(t[:]...), f32(r[:]...), f32(s[:]...), make([]byte, transformReserved))
}

func identity() []byte {
	return transformation([3]float32{}, [3]float32{}, [3]float32{1, 1, 1})
}

type vtx struct {
	pos [3]float32
	uvs [][2]float32
}

func vertices(texCnt uint32, vs ...vtx) []byte {
	size := uint32(vertexBaseSize) + uvPairSize*texCnt
	var body []byte
	for _, v := range vs {
		body = append(body, f32(v.pos[:]...)...)
		body = append(body, make([]byte, vertexReserved)...)
		for _, uv := range v.uvs {
			body = append(body, f32(uv[:]...)...)
		}
	}
	return chunk(TagVertices, u32(uint32(len(vs))), u32(size), u32(texCnt<<8), body)
}

func faces(fs ...[3]uint32) []byte {
	var body []byte
	for _, f := range fs {
		body = append(body, u32(f[0])...)
		body = append(body, u32(f[1])...)
		body = append(body, u32(f[2])...)
	}
	return chunk(TagFaces, u32(uint32(len(fs))), body)
}

func mesh(material uint32, sub ...[]byte) []byte {
	return chunk(TagMesh, u32(material), cat(sub...))
}

func modelChunk(meshes uint32, sub ...[]byte) []byte {
	return chunk(TagModel, u32(meshes), cat(sub...))
}

func triangle() []byte {
	return mesh(NoMaterial,
		vertices(0, vtx{pos: [3]float32{0, 0, 0}}, vtx{pos: [3]float32{1, 0, 0}}, vtx{pos: [3]float32{0, 1, 0}}),
		faces([3]uint32{0, 1, 2}),
	)
}

type tex struct {
	coord uint32
	name  string
}

func bitmap(mask uint32, texs ...tex) []byte {
	body := u32(mask)
	for _, t := range texs {
		body = cat(body, u32(uint32(len(t.name))), u32(t.coord), []byte(t.name))
	}
	return chunk(TagBitmap, body)
}

func pteroMat(mask uint32, name string, texs ...tex) []byte {
	body := cat(u32(mask), sized(name))
	for _, t := range texs {
		body = cat(body, u32(t.coord), u32(uint32(len(t.name))), []byte(t.name))
	}
	return chunk(TagPteroMat, body)
}

func materials(count uint32, sub ...[]byte) []byte {
	return chunk(TagMaterial, u32(count), cat(sub...))
}
