package op

import (
	"fmt"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/geometry"
	"github.com/notargets/dgcore/utils"
)

func checkAxis(dc *discretization.Collection, axis int) error {
	if axis < 0 || axis >= dc.AmbientDim() {
		return fmt.Errorf("%w: axis %d in %d dimensions", dof.ErrIncompatibleDiscretization, axis, dc.AmbientDim())
	}
	return nil
}

// LocalDdx is the elementwise derivative of a along ambient axis axis,
// d/dx_i = sum_j dr_j/dx_i d/dr_j. On embedded manifolds it is the tangential
// derivative.
func LocalDdx(dc *discretization.Collection, dd dof.DOFDesc, axis int, a dof.Array) (r dof.Array, err error) {
	var (
		dr []dof.Array
		R  [][]dof.Array
	)
	if err = checkAxis(dc, axis); err != nil {
		return
	}
	if dr, err = dc.ReferenceDerivatives(dd, a); err != nil {
		return
	}
	if R, err = geometry.InverseMetricDerivativeMatrix(dc, dd); err != nil {
		return
	}
	r = dof.ZerosLike(a)
	for j := range dr {
		r = r.Add(R[j][axis].Mul(dr[j]))
	}
	return
}

func LocalGrad(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (g dof.Vector, err error) {
	g = make(dof.Vector, dc.AmbientDim())
	for ax := range g {
		if g[ax], err = LocalDdx(dc, dd, ax, a); err != nil {
			return
		}
	}
	return
}

func LocalDiv(dc *discretization.Collection, dd dof.DOFDesc, v dof.Vector) (r dof.Array, err error) {
	if len(v) != dc.AmbientDim() {
		err = fmt.Errorf("%w: divergence of a %d-vector in %d dimensions",
			dof.ErrIncompatibleDiscretization, len(v), dc.AmbientDim())
		return
	}
	for ax := range v {
		var d dof.Array
		if d, err = LocalDdx(dc, dd, ax, v[ax]); err != nil {
			return
		}
		if ax == 0 {
			r = d
		} else {
			r = r.Add(d)
		}
	}
	return
}

// WeakLocalDdx applies the weak derivative along ambient axis axis: for each
// test function phi_i on the interpolatory volume discretization, the
// integral of d phi_i/dx_axis times a, with a given on ddIn.
func WeakLocalDdx(dc *discretization.Collection, ddIn dof.DOFDesc, axis int, a dof.Array) (r dof.Array, err error) {
	var (
		in, out *discretization.Discretization
		R       [][]dof.Array
		J       dof.Array
	)
	if err = checkAxis(dc, axis); err != nil {
		return
	}
	if !ddIn.IsVolume() {
		err = fmt.Errorf("%w: weak derivative requires a volume descriptor, got %s", dof.ErrIncompatibleDiscretization, ddIn)
		return
	}
	if in, err = checkField(dc, ddIn, a); err != nil {
		return
	}
	if out, err = dc.DiscrFromDD(baseOf(ddIn)); err != nil {
		return
	}
	if R, err = geometry.InverseMetricDerivativeMatrix(dc, ddIn); err != nil {
		return
	}
	if J, err = geometry.AreaElement(dc, ddIn); err != nil {
		return
	}
	Ja := J.Mul(a)
	r = out.Zeros()
	for gi, g := range in.Groups {
		var ST []utils.Matrix
		if ST, err = dc.Cache().StiffnessTranspose(out.Groups[gi].Key(), g.Key()); err != nil {
			return
		}
		for j := range ST {
			r.Groups[gi].Add(ST[j].Mul(R[j][axis].Groups[gi].Copy().ElMul(Ja.Groups[gi])))
		}
	}
	return
}

func WeakLocalGrad(dc *discretization.Collection, ddIn dof.DOFDesc, a dof.Array) (g dof.Vector, err error) {
	g = make(dof.Vector, dc.AmbientDim())
	for ax := range g {
		if g[ax], err = WeakLocalDdx(dc, ddIn, ax, a); err != nil {
			return
		}
	}
	return
}

func WeakLocalDiv(dc *discretization.Collection, ddIn dof.DOFDesc, v dof.Vector) (r dof.Array, err error) {
	if len(v) != dc.AmbientDim() {
		err = fmt.Errorf("%w: divergence of a %d-vector in %d dimensions",
			dof.ErrIncompatibleDiscretization, len(v), dc.AmbientDim())
		return
	}
	for ax := range v {
		var d dof.Array
		if d, err = WeakLocalDdx(dc, ddIn, ax, v[ax]); err != nil {
			return
		}
		if ax == 0 {
			r = d
		} else {
			r = r.Add(d)
		}
	}
	return
}
