package op

import (
	"fmt"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/geometry"
	"github.com/notargets/dgcore/utils"
)

// Mass applies the physical mass matrix. The input lives on dd, which may be
// a quadrature discretization; the output lives on the interpolatory
// discretization of the same domain.
func Mass[C dof.Container](dc *discretization.Collection, dd dof.DOFDesc, c C) (C, error) {
	return dof.MapErr(c, func(a dof.Array) (dof.Array, error) {
		return mass(dc, dd, a)
	})
}

func mass(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (r dof.Array, err error) {
	var (
		in, out *discretization.Discretization
		J       dof.Array
	)
	if in, err = checkField(dc, dd, a); err != nil {
		return
	}
	if out, err = dc.DiscrFromDD(baseOf(dd)); err != nil {
		return
	}
	if J, err = geometry.AreaElement(dc, dd); err != nil {
		return
	}
	r = out.Zeros()
	for gi, g := range in.Groups {
		var Mq utils.Matrix
		if Mq, err = dc.Cache().QuadMass(out.Groups[gi].Key(), g.Key()); err != nil {
			return
		}
		r.Groups[gi] = Mq.Mul(J.Groups[gi].Copy().ElMul(a.Groups[gi]))
	}
	return
}

// InverseMass applies the inverse physical mass matrix on the interpolatory
// volume discretization.
func InverseMass[C dof.Container](dc *discretization.Collection, c C) (C, error) {
	return InverseMassDD(dc, dof.DDVolume, dof.DDVolume, c)
}

// InverseMassDD is InverseMass with explicit descriptors. The inverse exists
// only within one interpolatory discretization, so ddOut must equal ddIn and
// be a base descriptor.
func InverseMassDD[C dof.Container](dc *discretization.Collection, ddOut, ddIn dof.DOFDesc, c C) (r C, err error) {
	if ddOut != ddIn || !ddIn.IsBase() {
		err = fmt.Errorf("%w: inverse mass from %s to %s: inverse not well-defined between different element groups",
			dof.ErrIncompatibleDiscretization, ddIn, ddOut)
		return
	}
	return dof.MapErr(c, func(a dof.Array) (dof.Array, error) {
		return inverseMass(dc, ddIn, a)
	})
}

func inverseMass(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (r dof.Array, err error) {
	var (
		d *discretization.Discretization
		J dof.Array
	)
	if d, err = checkField(dc, dd, a); err != nil {
		return
	}
	if J, err = geometry.AreaElement(dc, dd); err != nil {
		return
	}
	r = d.Zeros()
	for gi, g := range d.Groups {
		var Minv utils.Matrix
		if Minv, err = dc.Cache().InverseMass(g.Key()); err != nil {
			return
		}
		r.Groups[gi] = Minv.Mul(a.Groups[gi]).ElDiv(J.Groups[gi])
	}
	return
}

// QuadratureInverseMass is InverseMass with the mass matrix assembled by the
// quadrature rule of qtag on the volume.
func QuadratureInverseMass[C dof.Container](dc *discretization.Collection, qtag dof.DiscrTag, c C) (C, error) {
	return dof.MapErr(c, func(a dof.Array) (r dof.Array, err error) {
		var (
			d, dq *discretization.Discretization
			J     dof.Array
		)
		if d, err = checkField(dc, dof.DDVolume, a); err != nil {
			return
		}
		if dq, err = dc.DiscrFromDD(dof.DDVolume.WithDiscrTag(qtag)); err != nil {
			return
		}
		if J, err = geometry.AreaElement(dc, dof.DDVolume); err != nil {
			return
		}
		r = d.Zeros()
		for gi, g := range d.Groups {
			var Minv utils.Matrix
			if Minv, err = dc.Cache().QuadratureInverseMass(g.Key(), dq.Groups[gi].Key()); err != nil {
				return
			}
			r.Groups[gi] = Minv.Mul(a.Groups[gi]).ElDiv(J.Groups[gi])
		}
		return
	})
}
