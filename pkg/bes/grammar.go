package bes

import "fmt"

// Tag identifies a chunk type.
type Tag uint32

const (
	TagObject         Tag = 0x0001
	TagModel          Tag = 0x0030
	TagMesh           Tag = 0x0031
	TagVertices       Tag = 0x0032
	TagFaces          Tag = 0x0033
	TagProperties     Tag = 0x0034
	TagTransformation Tag = 0x0035
	TagReserved38     Tag = 0x0038
	TagUserInfo       Tag = 0x0070
	TagMaterial       Tag = 0x1000
	TagBitmap         Tag = 0x1001
	TagPteroMat       Tag = 0x1002
)

func (t Tag) String() string {
	switch t {
	case TagObject:
		return "Object"
	case TagModel:
		return "Model"
	case TagMesh:
		return "Mesh"
	case TagVertices:
		return "Vertices"
	case TagFaces:
		return "Faces"
	case TagProperties:
		return "Properties"
	case TagTransformation:
		return "Transformation"
	case TagReserved38:
		return "Reserved38"
	case TagUserInfo:
		return "UserInfo"
	case TagMaterial:
		return "Material"
	case TagBitmap:
		return "Bitmap"
	case TagPteroMat:
		return "PteroMat"
	default:
		return fmt.Sprintf("0x%04X", uint32(t))
	}
}

// Cardinality says how often a tag may appear inside one chunk set.
type Cardinality uint8

const (
	Optional Cardinality = 0
	Required Cardinality = 1 << 0
	Multiple Cardinality = 1 << 1
)

func (c Cardinality) Required() bool { return c&Required != 0 }
func (c Cardinality) Multiple() bool { return c&Multiple != 0 }

func (c Cardinality) String() string {
	switch c {
	case Optional:
		return "optional-single"
	case Required:
		return "required-single"
	case Multiple:
		return "optional-multiple"
	case Required | Multiple:
		return "required-multiple"
	default:
		return fmt.Sprintf("cardinality(%d)", uint8(c))
	}
}

type rule struct {
	tag  Tag
	card Cardinality
}

// grammar is the set of chunk tags accepted at one nesting position.
// Grammars are package-level values and are never mutated.
type grammar []rule

func (g grammar) lookup(t Tag) (Cardinality, bool) {
	for _, r := range g {
		if r.tag == t {
			return r.card, true
		}
	}
	return 0, false
}

var (
	rootGrammar = grammar{
		{TagObject, Required},
		{TagUserInfo, Required},
	}
	objectGrammar = grammar{
		{TagObject, Multiple},
		{TagModel, Optional},
		{TagProperties, Optional},
		{TagTransformation, Optional},
		{TagMaterial, Optional},
		{TagReserved38, Optional},
	}
	modelGrammar = grammar{
		{TagMesh, Multiple},
		{TagProperties, Optional},
		{TagTransformation, Required},
	}
	meshGrammar = grammar{
		{TagVertices, Required},
		{TagFaces, Required},
	}
)
