package dof

import "fmt"

type DomainKind uint8

const (
	Volume DomainKind = iota
	InteriorFaces
	AllFaces
	Boundary
)

func (k DomainKind) String() string {
	switch k {
	case Volume:
		return "vol"
	case InteriorFaces:
		return "int_faces"
	case AllFaces:
		return "all_faces"
	case Boundary:
		return "bdry"
	}
	return fmt.Sprintf("DomainKind(%d)", uint8(k))
}

// BoundaryTag names a set of boundary faces. BTagAll selects every boundary
// face and BTagNone selects none.
type BoundaryTag string

const (
	BTagAll  BoundaryTag = "all"
	BTagNone BoundaryTag = "none"
)

type DomainTag struct {
	Kind DomainKind
	Tag  BoundaryTag // only meaningful for Boundary
}

// DiscrTag selects the group factory a discretization is built with.
type DiscrTag string

const (
	DiscrTagBase DiscrTag = "base"
	DiscrTagQuad DiscrTag = "quad"
)

// DOFDesc identifies where field data lives. Two descriptors are equal iff
// both the domain and the discretization tag match, so DOFDesc is usable as
// a map key and with ==.
type DOFDesc struct {
	Domain DomainTag
	Discr  DiscrTag
}

var (
	DDVolume        = DOFDesc{Domain: DomainTag{Kind: Volume}, Discr: DiscrTagBase}
	DDInteriorFaces = DOFDesc{Domain: DomainTag{Kind: InteriorFaces}, Discr: DiscrTagBase}
	DDAllFaces      = DOFDesc{Domain: DomainTag{Kind: AllFaces}, Discr: DiscrTagBase}
)

func BoundaryDD(tag BoundaryTag) DOFDesc {
	return DOFDesc{Domain: DomainTag{Kind: Boundary, Tag: tag}, Discr: DiscrTagBase}
}

func (dd DOFDesc) WithDiscrTag(tag DiscrTag) DOFDesc {
	dd.Discr = tag
	return dd
}

func (dd DOFDesc) WithDomain(dom DomainTag) DOFDesc {
	dd.Domain = dom
	return dd
}

func (dd DOFDesc) IsVolume() bool { return dd.Domain.Kind == Volume }
func (dd DOFDesc) IsTrace() bool  { return dd.Domain.Kind != Volume }
func (dd DOFDesc) IsBase() bool   { return dd.Discr == DiscrTagBase }

func (dd DOFDesc) String() string {
	if dd.Domain.Kind == Boundary {
		return fmt.Sprintf("DOFDesc(%s:%s, %s)", dd.Domain.Kind, dd.Domain.Tag, dd.Discr)
	}
	return fmt.Sprintf("DOFDesc(%s, %s)", dd.Domain.Kind, dd.Discr)
}
