package bes

// model is the content of a Model chunk, merged into its owning Object.
type model struct {
	meshes    []Mesh
	transform Transform
}

func (d *decoder) decodeObject(c *cursor, depth int) (*Object, error) {
	children, err := c.readU32()
	if err != nil {
		return nil, err
	}
	name, err := c.readSizedString()
	if err != nil {
		return nil, err
	}
	if uint64(children) > uint64(c.remaining()/chunkHeaderSize) {
		return nil, newError(ErrChildCountMismatch, c.pos(), "declared %d children, only %d bytes remain", children, c.remaining())
	}

	set, err := d.parseSet(objectGrammar, c, depth+1)
	if err != nil {
		return nil, err
	}

	obj := &Object{
		Name:      name,
		Children:  many[*Object](set, TagObject),
		Transform: IdentityTransform(),
	}
	if uint64(len(obj.Children)) != uint64(children) {
		return nil, newError(ErrChildCountMismatch, c.base, "object %q declares %d children, found %d", name, children, len(obj.Children))
	}
	if t, ok := one[Transform](set, TagTransformation); ok {
		obj.Transform = t
	}
	if mats, ok := one[[]Material](set, TagMaterial); ok {
		obj.Materials = mats
	}
	// A Model's transform takes precedence over the object's own.
	if m, ok := one[*model](set, TagModel); ok {
		obj.Meshes = m.meshes
		obj.Transform = m.transform
	}
	return obj, nil
}

func (d *decoder) decodeModel(c *cursor, depth int) (*model, error) {
	count, err := c.readU32()
	if err != nil {
		return nil, err
	}
	if uint64(count) > uint64(c.remaining()/chunkHeaderSize) {
		return nil, newError(ErrChildCountMismatch, c.pos(), "declared %d meshes, only %d bytes remain", count, c.remaining())
	}
	set, err := d.parseSet(modelGrammar, c, depth+1)
	if err != nil {
		return nil, err
	}
	m := &model{meshes: many[Mesh](set, TagMesh)}
	if uint64(len(m.meshes)) != uint64(count) {
		return nil, newError(ErrChildCountMismatch, c.base, "model declares %d meshes, found %d", count, len(m.meshes))
	}
	m.transform, _ = one[Transform](set, TagTransformation)
	return m, nil
}
