package discretization

import (
	"fmt"

	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/element"
	"github.com/notargets/dgcore/utils"
)

// Group is a batch of elements of one reference element. For trace groups
// each element is one face of a volume element, identified by
// VolumeElements[k] and Faces[k] within volume group VolumeGroup.
type Group struct {
	Ref            *element.Reference
	NElements      int
	Nodes          []utils.Matrix // read-only, one Np x K matrix per ambient axis
	VolumeGroup    int
	VolumeElements utils.Index
	Faces          utils.Index
}

func (g *Group) Key() element.Key { return g.Ref.Key }
func (g *Group) Np() int          { return g.Ref.Np }

// Discretization is the set of element groups realizing one descriptor.
// Trace discretizations omit groups that would contain no faces.
type Discretization struct {
	DD         dof.DOFDesc
	Dim        int
	AmbientDim int
	Groups     []*Group
}

func (d *Discretization) NumElements() (n int) {
	for _, g := range d.Groups {
		n += g.NElements
	}
	return
}

func (d *Discretization) NumNodes() (n int) {
	for _, g := range d.Groups {
		n += g.NElements * g.Np()
	}
	return
}

// Zeros returns a writable zero field on d.
func (d *Discretization) Zeros() dof.Array {
	a := dof.Array{Groups: make([]utils.Matrix, len(d.Groups))}
	for i, g := range d.Groups {
		a.Groups[i] = utils.NewMatrix(g.Np(), g.NElements)
	}
	return a
}

func (d *Discretization) Ones() dof.Array {
	return dof.FullLike(d.Zeros(), 1)
}

// Nodes returns the node coordinates, one read-only Array per ambient axis.
func (d *Discretization) Nodes() dof.Vector {
	v := make(dof.Vector, d.AmbientDim)
	for ax := range v {
		v[ax].Groups = make([]utils.Matrix, len(d.Groups))
		for i, g := range d.Groups {
			v[ax].Groups[i] = g.Nodes[ax]
		}
	}
	return v
}

// CheckArray verifies that a has the layout of d.
func (d *Discretization) CheckArray(a dof.Array) error {
	if len(a.Groups) != len(d.Groups) {
		return fmt.Errorf("%w: %d groups on %s, field has %d",
			dof.ErrIncompatibleDiscretization, len(d.Groups), d.DD, len(a.Groups))
	}
	for i, g := range d.Groups {
		nr, nc := a.Groups[i].Dims()
		if nr != g.Np() || nc != g.NElements {
			return fmt.Errorf("%w: group %d on %s is %d x %d, field is %d x %d",
				dof.ErrIncompatibleDiscretization, i, d.DD, g.Np(), g.NElements, nr, nc)
		}
	}
	return nil
}
