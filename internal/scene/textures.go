package scene

import "github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"

// TextureResolver maps a texture name stored in a material to a file on disk.
type TextureResolver interface {
	Resolve(name string) (path string, ok bool)
}

// TextureRef is one texture slot of one material in the scene.
type TextureRef struct {
	Node     int
	NodePath string
	Material int
	Kind     bes.MaterialKind
	Slot     int
	SlotName string
	Name     string
	// File is the resolved path, empty when Found is false.
	File  string
	Found bool
}

// Textures lists every texture slot in node order. r may be nil, in which
// case nothing is marked found.
func (s *Scene) Textures(r TextureResolver) []TextureRef {
	var out []TextureRef
	for i := range s.Nodes {
		n := &s.Nodes[i]
		for mi, mat := range n.Object.Materials {
			for _, tex := range mat.Textures {
				ref := TextureRef{
					Node:     n.ID,
					NodePath: n.Path,
					Material: mi,
					Kind:     mat.Kind,
					Slot:     tex.Slot,
					SlotName: bes.SlotName(mat.Kind, tex.Slot),
					Name:     tex.Name,
				}
				if r != nil && tex.Name != "" {
					ref.File, ref.Found = r.Resolve(tex.Name)
				}
				out = append(out, ref)
			}
		}
	}
	return out
}

// Missing filters refs down to the ones that did not resolve.
func Missing(refs []TextureRef) []TextureRef {
	var out []TextureRef
	for _, ref := range refs {
		if !ref.Found {
			out = append(out, ref)
		}
	}
	return out
}
