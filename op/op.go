// Package op holds the numerical primitives of a DG discretization: mass and
// inverse mass, strong and weak derivatives, face mass, reductions, norms and
// trace pairs. Every operator is a pure function of the collection, the
// descriptors and the field. Fields are applied one element group at a time
// with a single matrix product per group.
package op

import (
	"fmt"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
)

// Project maps every leaf of c from src to tgt. When src == tgt c is returned
// as is, without touching the connection machinery.
func Project[C dof.Container](dc *discretization.Collection, src, tgt dof.DOFDesc, c C) (C, error) {
	if src == tgt {
		return c, nil
	}
	return dof.MapErr(c, func(a dof.Array) (dof.Array, error) {
		return dc.Project(src, tgt, a)
	})
}

// checkField resolves dd and verifies the layout of a.
func checkField(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (d *discretization.Discretization, err error) {
	if d, err = dc.DiscrFromDD(dd); err != nil {
		return
	}
	err = d.CheckArray(a)
	return
}

func baseOf(dd dof.DOFDesc) dof.DOFDesc { return dd.WithDiscrTag(dof.DiscrTagBase) }

func notImplemented(what string, val any) error {
	return fmt.Errorf("%w: %s %v", dof.ErrNotImplemented, what, val)
}
