package bes

import "github.com/go-gl/mathgl/mgl32"

// NoMaterial is the Mesh.Material sentinel for a mesh without a material.
const NoMaterial uint32 = 0xFFFFFFFF

// Header is the fixed 16-byte file header.
type Header struct {
	Signature [4]byte
	Version   string
	Reserved  [2]uint32
}

// Transform holds an object's translation, rotation and scale.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Vec3
	Scale       mgl32.Vec3
}

// IdentityTransform is the transform of an object without a Transformation chunk.
func IdentityTransform() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

// Vertex is one vertex record. UVs has one entry per active texture channel.
type Vertex struct {
	Position mgl32.Vec3
	UVs      []mgl32.Vec2
}

// Face is a triangle of vertex indices.
type Face [3]uint32

type Mesh struct {
	Vertices []Vertex
	Faces    []Face
	// Material indexes the owning object's Materials, or is NoMaterial.
	Material uint32
}

// HasMaterial reports whether the mesh references a material.
func (m *Mesh) HasMaterial() bool {
	return m.Material != NoMaterial
}

// Object is one node of the decoded scene graph. Children are owned by
// their parent; the tree has no back references.
type Object struct {
	Name      string
	Children  []*Object
	Meshes    []Mesh
	Materials []Material
	Transform Transform
}

// MaterialFor resolves a mesh's material index against the object's material list.
func (o *Object) MaterialFor(m *Mesh) (*Material, bool) {
	if !m.HasMaterial() || uint64(m.Material) >= uint64(len(o.Materials)) {
		return nil, false
	}
	return &o.Materials[m.Material], true
}

// Walk visits o and its descendants depth-first, parents before children.
// Returning false from fn skips that object's children.
func (o *Object) Walk(fn func(obj *Object, depth int) bool) {
	o.walk(fn, 0)
}

func (o *Object) walk(fn func(*Object, int) bool, depth int) {
	if !fn(o, depth) {
		return
	}
	for _, child := range o.Children {
		child.walk(fn, depth+1)
	}
}

// Stats summarises the size of a decoded tree.
type Stats struct {
	Objects   int
	Meshes    int
	Vertices  int
	Faces     int
	Materials int
	Textures  int
}

func (o *Object) Stats() Stats {
	var s Stats
	o.Walk(func(obj *Object, _ int) bool {
		s.Objects++
		s.Meshes += len(obj.Meshes)
		for i := range obj.Meshes {
			s.Vertices += len(obj.Meshes[i].Vertices)
			s.Faces += len(obj.Meshes[i].Faces)
		}
		s.Materials += len(obj.Materials)
		for i := range obj.Materials {
			s.Textures += len(obj.Materials[i].Textures)
		}
		return true
	})
	return s
}

// Scene is a decoded file: its header and the root object.
type Scene struct {
	Header Header
	Root   *Object
}
