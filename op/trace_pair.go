package op

import (
	"fmt"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
)

// TracePair holds the values on both sides of the faces of DD: Int from the
// element owning each face, Ext from its neighbor or from a boundary
// condition.
type TracePair[C dof.Container] struct {
	DD       dof.DOFDesc
	Int, Ext C
}

// NewTracePair pairs two values of identical layout. Mismatched shapes are a
// programming error in the caller and panic.
func NewTracePair[C dof.Container](dd dof.DOFDesc, interior, exterior C) TracePair[C] {
	li, le := interior.Arrays(), exterior.Arrays()
	if len(li) != len(le) {
		panic(fmt.Errorf("%w: trace pair on %s has %d interior and %d exterior components",
			dof.ErrIncompatibleDiscretization, dd, len(li), len(le)))
	}
	for i := range li {
		if !li[i].SameShape(le[i]) {
			panic(fmt.Errorf("%w: trace pair on %s: component %d shapes differ",
				dof.ErrIncompatibleDiscretization, dd, i))
		}
	}
	return TracePair[C]{DD: dd, Int: interior, Ext: exterior}
}

// Avg is (Int + Ext) / 2.
func (tp TracePair[C]) Avg() C { return dof.Scale(0.5, dof.Add(tp.Int, tp.Ext)) }

// Diff is Ext - Int.
func (tp TracePair[C]) Diff() C { return dof.Sub(tp.Ext, tp.Int) }

// InteriorTracePair restricts a volume field to the interior faces and pairs
// it with its value across each face. With a quadrature tag both sides are
// then interpolated onto that tag.
func InteriorTracePair[C dof.Container](dc *discretization.Collection, c C, qtag ...dof.DiscrTag) (tp TracePair[C], err error) {
	var (
		dd       = dof.DDInteriorFaces
		interior C
		exterior C
		opp      discretization.Connector
	)
	if interior, err = Project(dc, dof.DDVolume, dd, c); err != nil {
		return
	}
	if opp, err = dc.OppositeFaceConnection(dd); err != nil {
		return
	}
	if exterior, err = dof.MapErr(interior, opp.Apply); err != nil {
		return
	}
	if len(qtag) != 0 && qtag[0] != dof.DiscrTagBase {
		dq := dd.WithDiscrTag(qtag[0])
		if interior, err = Project(dc, dd, dq, interior); err != nil {
			return
		}
		if exterior, err = Project(dc, dd, dq, exterior); err != nil {
			return
		}
		dd = dq
	}
	return NewTracePair(dd, interior, exterior), nil
}

// InteriorTracePairs returns every interior trace pair of c. All faces of a
// single-process mesh are in one pair.
func InteriorTracePairs[C dof.Container](dc *discretization.Collection, c C, qtag ...dof.DiscrTag) ([]TracePair[C], error) {
	tp, err := InteriorTracePair(dc, c, qtag...)
	if err != nil {
		return nil, err
	}
	return []TracePair[C]{tp}, nil
}

func checkOn[C dof.Container](dc *discretization.Collection, dd dof.DOFDesc, c C) error {
	d, err := dc.DiscrFromDD(dd)
	if err != nil {
		return err
	}
	for _, a := range c.Arrays() {
		if err = d.CheckArray(a); err != nil {
			return err
		}
	}
	return nil
}

// BdryTracePair pairs interior and exterior values already given on the
// boundary dd.
func BdryTracePair[C dof.Container](dc *discretization.Collection, dd dof.DOFDesc, interior, exterior C) (tp TracePair[C], err error) {
	if err = checkOn(dc, dd, interior); err != nil {
		return
	}
	if err = checkOn(dc, dd, exterior); err != nil {
		return
	}
	return NewTracePair(dd, interior, exterior), nil
}

// BVTracePair restricts the volume field interior to the boundary dd and
// pairs it with exterior, given on dd.
func BVTracePair[C dof.Container](dc *discretization.Collection, dd dof.DOFDesc, interior, exterior C) (tp TracePair[C], err error) {
	var onBdry C
	if onBdry, err = Project(dc, dof.DDVolume, dd, interior); err != nil {
		return
	}
	return BdryTracePair(dc, dd, onBdry, exterior)
}
