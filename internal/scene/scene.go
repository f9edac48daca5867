// Package scene turns a decoded BES object tree into an index-addressed node
// arena with world transforms, ready for export or an external builder.
package scene

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"
)

// NoParent is the Parent index of the root node.
const NoParent = -1

type Node struct {
	ID       int
	Parent   int
	Children []int
	Depth    int
	Name     string
	// Path joins the names from the root down, separated by "/".
	Path   string
	Object *bes.Object
	Local  mgl32.Mat4
	World  mgl32.Mat4
}

type Scene struct {
	Header bes.Header
	Nodes  []Node
}

// Build flattens s in depth-first pre-order; node 0 is the root.
func Build(s *bes.Scene) *Scene {
	out := &Scene{Header: s.Header}
	if s.Root == nil {
		return out
	}
	out.add(s.Root, NoParent, 0)
	return out
}

func (s *Scene) add(obj *bes.Object, parent, depth int) int {
	id := len(s.Nodes)
	n := Node{
		ID:     id,
		Parent: parent,
		Depth:  depth,
		Name:   obj.Name,
		Path:   obj.Name,
		Object: obj,
		Local:  LocalMatrix(obj.Transform),
	}
	n.World = n.Local
	if parent != NoParent {
		p := &s.Nodes[parent]
		n.Path = p.Path + "/" + obj.Name
		n.World = p.World.Mul4(n.Local)
	}
	s.Nodes = append(s.Nodes, n)
	for _, child := range obj.Children {
		cid := s.add(child, id, depth+1)
		s.Nodes[id].Children = append(s.Nodes[id].Children, cid)
	}
	return id
}

func (s *Scene) Root() *Node {
	if len(s.Nodes) == 0 {
		return nil
	}
	return &s.Nodes[0]
}

// Find looks a node up by its slash-separated path, e.g. "Root/Wall".
// Names are compared case-insensitively; the first match wins.
func (s *Scene) Find(path string) (*Node, bool) {
	for i := range s.Nodes {
		if strings.EqualFold(s.Nodes[i].Path, path) {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

// LocalMatrix composes translation, XYZ Euler rotation in radians, and scale
// as T * Rz * Ry * Rx * S.
func LocalMatrix(t bes.Transform) mgl32.Mat4 {
	tr := mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z())
	rot := mgl32.HomogRotate3DZ(t.Rotation.Z()).
		Mul4(mgl32.HomogRotate3DY(t.Rotation.Y())).
		Mul4(mgl32.HomogRotate3DX(t.Rotation.X()))
	sc := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return tr.Mul4(rot).Mul4(sc)
}

// Batch is one mesh moved into world space.
type Batch struct {
	Node int
	Mesh int
	// Material is nil when the mesh has none or its index is out of range.
	Material      *bes.Material
	MaterialIndex uint32
	Positions     []mgl32.Vec3
	// UVs holds one slice per texture channel, each parallel to Positions.
	UVs     [][]mgl32.Vec2
	Indices []uint32
}

// Batches returns every mesh of the scene with world-space positions, in node order.
func (s *Scene) Batches() []Batch {
	var out []Batch
	for i := range s.Nodes {
		n := &s.Nodes[i]
		for mi := range n.Object.Meshes {
			out = append(out, s.batch(n, mi))
		}
	}
	return out
}

func (s *Scene) batch(n *Node, mi int) Batch {
	m := &n.Object.Meshes[mi]
	b := Batch{
		Node:          n.ID,
		Mesh:          mi,
		MaterialIndex: m.Material,
		Positions:     make([]mgl32.Vec3, len(m.Vertices)),
		Indices:       make([]uint32, 0, len(m.Faces)*3),
	}
	if mat, ok := n.Object.MaterialFor(m); ok {
		b.Material = mat
	}
	channels := 0
	if len(m.Vertices) > 0 {
		channels = len(m.Vertices[0].UVs)
	}
	b.UVs = make([][]mgl32.Vec2, channels)
	for ch := range b.UVs {
		b.UVs[ch] = make([]mgl32.Vec2, len(m.Vertices))
	}
	for vi, v := range m.Vertices {
		b.Positions[vi] = mgl32.TransformCoordinate(v.Position, n.World)
		for ch := 0; ch < channels && ch < len(v.UVs); ch++ {
			b.UVs[ch][vi] = v.UVs[ch]
		}
	}
	for _, f := range m.Faces {
		b.Indices = append(b.Indices, f[0], f[1], f[2])
	}
	return b
}

// Bounds is the world-space axis-aligned bounding box of all vertices.
// ok is false for a scene without vertices.
func (s *Scene) Bounds() (lo, hi mgl32.Vec3, ok bool) {
	inf := float32(math.Inf(1))
	lo = mgl32.Vec3{inf, inf, inf}
	hi = mgl32.Vec3{-inf, -inf, -inf}
	for _, b := range s.Batches() {
		for _, p := range b.Positions {
			for k := 0; k < 3; k++ {
				lo[k] = min(lo[k], p[k])
				hi[k] = max(hi[k], p[k])
			}
			ok = true
		}
	}
	if !ok {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	return lo, hi, true
}
