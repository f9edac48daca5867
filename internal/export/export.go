// Package export renders a decoded scene as JSON or YAML documents.
package export

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/scene"
	"github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type Options struct {
	// Geometry includes vertex and face arrays; otherwise only counts are written.
	Geometry bool
	// Resolver, when set, fills in texture file paths.
	Resolver scene.TextureResolver
}

type Document struct {
	Source  string   `json:"source,omitempty" yaml:"source,omitempty"`
	Version string   `json:"version" yaml:"version"`
	Stats   Stats    `json:"stats" yaml:"stats"`
	Root    *Object  `json:"root" yaml:"root"`
	Bounds  *Bounds  `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	Missing []string `json:"missing_textures,omitempty" yaml:"missing_textures,omitempty"`
}

type Stats struct {
	Objects   int `json:"objects" yaml:"objects"`
	Meshes    int `json:"meshes" yaml:"meshes"`
	Vertices  int `json:"vertices" yaml:"vertices"`
	Faces     int `json:"faces" yaml:"faces"`
	Materials int `json:"materials" yaml:"materials"`
	Textures  int `json:"textures" yaml:"textures"`
}

type Bounds struct {
	Min [3]float32 `json:"min" yaml:"min,flow"`
	Max [3]float32 `json:"max" yaml:"max,flow"`
}

type Transform struct {
	Translation [3]float32 `json:"translation" yaml:"translation,flow"`
	Rotation    [3]float32 `json:"rotation" yaml:"rotation,flow"`
	Scale       [3]float32 `json:"scale" yaml:"scale,flow"`
}

type Object struct {
	Name      string     `json:"name" yaml:"name"`
	Path      string     `json:"path" yaml:"path"`
	Transform Transform  `json:"transform" yaml:"transform"`
	Meshes    []Mesh     `json:"meshes,omitempty" yaml:"meshes,omitempty"`
	Materials []Material `json:"materials,omitempty" yaml:"materials,omitempty"`
	Children  []*Object  `json:"children,omitempty" yaml:"children,omitempty"`
}

type Mesh struct {
	// Material is nil for meshes without a material.
	Material    *uint32        `json:"material" yaml:"material"`
	VertexCount int            `json:"vertex_count" yaml:"vertex_count"`
	FaceCount   int            `json:"face_count" yaml:"face_count"`
	UVChannels  int            `json:"uv_channels" yaml:"uv_channels"`
	Positions   [][3]float32   `json:"positions,omitempty" yaml:"positions,omitempty,flow"`
	UVs         [][][2]float32 `json:"uvs,omitempty" yaml:"uvs,omitempty,flow"`
	Faces       [][3]uint32    `json:"faces,omitempty" yaml:"faces,omitempty,flow"`
}

type Material struct {
	Kind     string    `json:"kind" yaml:"kind"`
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Textures []Texture `json:"textures" yaml:"textures"`
}

type Texture struct {
	Slot  int    `json:"slot" yaml:"slot"`
	Role  string `json:"role" yaml:"role"`
	Coord uint32 `json:"coord" yaml:"coord"`
	Name  string `json:"name" yaml:"name"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// Build converts a decoded scene into a Document. Positions are local to
// their object; the transform carries the placement.
func Build(s *bes.Scene, opts Options) *Document {
	doc := &Document{Version: s.Header.Version}
	if s.Root == nil {
		return doc
	}
	st := s.Root.Stats()
	doc.Stats = Stats{
		Objects: st.Objects, Meshes: st.Meshes, Vertices: st.Vertices,
		Faces: st.Faces, Materials: st.Materials, Textures: st.Textures,
	}
	sc := scene.Build(s)
	refs := sc.Textures(opts.Resolver)
	files := make(map[texKey]string, len(refs))
	for _, ref := range refs {
		if ref.Found {
			files[texKey{ref.Node, ref.Material, ref.Slot}] = ref.File
		}
	}
	if opts.Resolver != nil {
		seen := make(map[string]bool)
		for _, ref := range scene.Missing(refs) {
			if ref.Name != "" && !seen[ref.Name] {
				seen[ref.Name] = true
				doc.Missing = append(doc.Missing, ref.Name)
			}
		}
	}
	if lo, hi, ok := sc.Bounds(); ok {
		doc.Bounds = &Bounds{Min: lo, Max: hi}
	}

	objs := make([]*Object, len(sc.Nodes))
	for i := range sc.Nodes {
		n := &sc.Nodes[i]
		objs[i] = convertObject(n, opts.Geometry, files)
		if n.Parent != scene.NoParent {
			parent := objs[n.Parent]
			parent.Children = append(parent.Children, objs[i])
		}
	}
	if len(objs) > 0 {
		doc.Root = objs[0]
	}
	return doc
}

type texKey struct {
	node, material, slot int
}

func convertObject(n *scene.Node, geometry bool, files map[texKey]string) *Object {
	o := n.Object
	out := &Object{
		Name: o.Name,
		Path: n.Path,
		Transform: Transform{
			Translation: o.Transform.Translation,
			Rotation:    o.Transform.Rotation,
			Scale:       o.Transform.Scale,
		},
	}
	for i := range o.Meshes {
		out.Meshes = append(out.Meshes, convertMesh(&o.Meshes[i], geometry))
	}
	for mi, m := range o.Materials {
		mat := Material{Kind: m.Kind.String(), Name: m.Name, Textures: make([]Texture, 0, len(m.Textures))}
		for _, t := range m.Textures {
			mat.Textures = append(mat.Textures, Texture{
				Slot:  t.Slot,
				Role:  bes.SlotName(m.Kind, t.Slot),
				Coord: t.Coord,
				Name:  t.Name,
				File:  files[texKey{n.ID, mi, t.Slot}],
			})
		}
		out.Materials = append(out.Materials, mat)
	}
	return out
}

func convertMesh(m *bes.Mesh, geometry bool) Mesh {
	out := Mesh{VertexCount: len(m.Vertices), FaceCount: len(m.Faces)}
	if m.HasMaterial() {
		idx := m.Material
		out.Material = &idx
	}
	if len(m.Vertices) > 0 {
		out.UVChannels = len(m.Vertices[0].UVs)
	}
	if !geometry {
		return out
	}
	out.Positions = make([][3]float32, len(m.Vertices))
	if out.UVChannels > 0 {
		out.UVs = make([][][2]float32, len(m.Vertices))
	}
	for i, v := range m.Vertices {
		out.Positions[i] = v.Position
		if out.UVs != nil {
			uvs := make([][2]float32, len(v.UVs))
			for ch, uv := range v.UVs {
				uvs[ch] = uv
			}
			out.UVs[i] = uvs
		}
	}
	out.Faces = make([][3]uint32, len(m.Faces))
	for i, f := range m.Faces {
		out.Faces[i] = f
	}
	return out
}

// Write encodes doc to w in the given format.
func Write(w io.Writer, doc *Document, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("export: encode json: %w", err)
		}
		return nil
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("export: encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("export: encode yaml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("export: unknown format %q (want json or yaml)", format)
	}
}

// Marshal is Write into a byte slice, compact for JSON.
func Marshal(doc *Document, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("export: encode json: %w", err)
		}
		return b, nil
	case FormatYAML, "yml":
		b, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("export: encode yaml: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("export: unknown format %q (want json or yaml)", format)
	}
}
