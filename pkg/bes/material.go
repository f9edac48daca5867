package bes

import "fmt"

type MaterialKind uint8

const (
	KindBitmap MaterialKind = iota + 1
	KindPteroMat
)

func (k MaterialKind) String() string {
	switch k {
	case KindBitmap:
		return "Bitmap"
	case KindPteroMat:
		return "PteroMat"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Texture is one texture reference of a material.
type Texture struct {
	Slot  int
	Coord uint32
	Name  string
}

// Material is a Bitmap or PteroMat material. Name is only set for PteroMat.
// Textures are in slot order, which is the UV channel order of the vertices
// of meshes using this material.
type Material struct {
	Kind     MaterialKind
	Name     string
	Textures []Texture
}

// TextureNames returns the texture file names in channel order.
func (m *Material) TextureNames() []string {
	names := make([]string, len(m.Textures))
	for i, t := range m.Textures {
		names[i] = t.Name
	}
	return names
}

// materialLayout captures the byte-level differences between the variants.
type materialLayout struct {
	kind      MaterialKind
	firstSlot int
	lastSlot  int
	named     bool
	// coordFirst orders a texture entry as (coord, nameLen); otherwise (nameLen, coord).
	coordFirst bool
}

var (
	bitmapLayout   = materialLayout{kind: KindBitmap, firstSlot: 0, lastSlot: 11}
	pteroMatLayout = materialLayout{kind: KindPteroMat, firstSlot: 16, lastSlot: 23, named: true, coordFirst: true}
)

func layoutFor(t Tag) (materialLayout, bool) {
	switch t {
	case TagBitmap:
		return bitmapLayout, true
	case TagPteroMat:
		return pteroMatLayout, true
	default:
		return materialLayout{}, false
	}
}

var bitmapSlotNames = [...]string{
	"ambient", "diffuse", "specular", "shininess", "shininess-strength", "self-illumination",
	"opacity", "filter-color", "bump", "reflection", "refraction", "displacement",
}

var pteroMatSlotNames = [...]string{
	"diffuse-1", "diffuse-2", "diffuse-3", "environment-1", "lightmap", "environment-2", "lightmap-engine", "detail",
}

// SlotName labels a texture slot of the given material kind.
func SlotName(kind MaterialKind, slot int) string {
	switch kind {
	case KindBitmap:
		if slot >= bitmapLayout.firstSlot && slot <= bitmapLayout.lastSlot {
			return bitmapSlotNames[slot-bitmapLayout.firstSlot]
		}
	case KindPteroMat:
		if slot >= pteroMatLayout.firstSlot && slot <= pteroMatLayout.lastSlot {
			return pteroMatSlotNames[slot-pteroMatLayout.firstSlot]
		}
	}
	return fmt.Sprintf("slot-%d", slot)
}

// decodeMaterialList decodes a Material container. Its children are read in
// file order by direct dispatch since their order is what Mesh.Material indexes.
func (d *decoder) decodeMaterialList(c *cursor, depth int) ([]Material, error) {
	count, err := c.readU32()
	if err != nil {
		return nil, err
	}
	if uint64(count) > uint64(c.remaining()/chunkHeaderSize) {
		return nil, newError(ErrChildCountMismatch, c.pos(), "declared %d materials, only %d bytes remain", count, c.remaining())
	}
	materials := make([]Material, 0, count)
	for uint32(len(materials)) < count {
		if c.remaining() == 0 {
			break
		}
		hdr, payload, err := d.nextChunk(c, depth+1)
		if err != nil {
			return nil, err
		}
		layout, ok := layoutFor(hdr.Tag)
		if !ok {
			return nil, newError(ErrInvalidMaterialType, hdr.Offset, "%s chunk in material list", hdr.Tag)
		}
		m, err := decodeMaterial(payload, layout)
		if err != nil {
			return nil, within(hdr.Tag, err)
		}
		materials = append(materials, m)
	}
	if uint32(len(materials)) != count {
		return nil, newError(ErrChildCountMismatch, c.pos(), "declared %d materials, found %d", count, len(materials))
	}
	if c.remaining() != 0 {
		return nil, newError(ErrTrailingBytes, c.pos(), "%d bytes after %d materials", c.remaining(), count)
	}
	return materials, nil
}

func decodeMaterial(c *cursor, layout materialLayout) (Material, error) {
	mask, err := c.readU32()
	if err != nil {
		return Material{}, err
	}
	m := Material{Kind: layout.kind}
	if layout.named {
		if m.Name, err = c.readSizedString(); err != nil {
			return Material{}, err
		}
	}
	for slot := layout.firstSlot; slot <= layout.lastSlot; slot++ {
		if mask&(1<<uint(slot)) == 0 {
			continue
		}
		tex, err := readTexture(c, layout.coordFirst)
		if err != nil {
			return Material{}, err
		}
		tex.Slot = slot
		m.Textures = append(m.Textures, tex)
	}
	if c.remaining() != 0 {
		return Material{}, newError(ErrTrailingBytes, c.pos(), "%d bytes after %s textures", c.remaining(), layout.kind)
	}
	return m, nil
}

func readTexture(c *cursor, coordFirst bool) (Texture, error) {
	var tex Texture
	var n uint32
	var err error
	if coordFirst {
		if tex.Coord, err = c.readU32(); err != nil {
			return Texture{}, err
		}
		if n, err = c.readU32(); err != nil {
			return Texture{}, err
		}
	} else {
		if n, err = c.readU32(); err != nil {
			return Texture{}, err
		}
		if tex.Coord, err = c.readU32(); err != nil {
			return Texture{}, err
		}
	}
	if uint64(n) > uint64(c.remaining()) {
		return Texture{}, newError(ErrTruncatedInput, c.pos(), "texture name of %d bytes, %d remain", n, c.remaining())
	}
	if tex.Name, err = c.readString(int(n)); err != nil {
		return Texture{}, err
	}
	return tex, nil
}
