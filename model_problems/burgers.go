package model_problems

import (
	"fmt"
	"math"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/geometry"
	"github.com/notargets/dgcore/op"
)

// BurgersOperator discretizes u_t + (u^2/2)_x = 0 on a 1D mesh.
type BurgersOperator struct {
	dc   *discretization.Collection
	Flux FluxType
	// Boundary gives the exterior u on the volume nodes at time t. When nil,
	// the exterior copies the interior and every boundary is an outflow.
	Boundary func(t float64) (dof.Array, error)
}

// LaxFriedrichsFlux is the Rusanov flux with the element-wise max |u|.
const LaxFriedrichsFlux FluxType = "lf"

func NewBurgersOperator(dc *discretization.Collection, flux FluxType,
	boundary func(t float64) (dof.Array, error)) (b *BurgersOperator, err error) {
	if flux != CentralFlux && flux != LaxFriedrichsFlux {
		err = fmt.Errorf("%w: flux type %q", dof.ErrNotImplemented, flux)
		return
	}
	if dc.Dim() != 1 || dc.AmbientDim() != 1 {
		err = fmt.Errorf("%w: Burgers operator in %d dimensions", dof.ErrNotImplemented, dc.Dim())
		return
	}
	return &BurgersOperator{dc: dc, Flux: flux, Boundary: boundary}, nil
}

// MaxCharacteristicVelocity is the largest |u| of each element.
func (b *BurgersOperator) MaxCharacteristicVelocity(u dof.Array) (dof.Array, error) {
	return op.ElementwiseMax(b.dc, dof.DDVolume, u.Abs())
}

// NumericalFlux takes pairs of (u, max |u|).
func (b *BurgersOperator) NumericalFlux(tp op.TracePair[dof.Vector]) (f dof.Array, err error) {
	var normal dof.Vector
	if normal, err = geometry.Normal(b.dc, tp.DD); err != nil {
		return
	}
	var (
		uI, uE  = tp.Int[0], tp.Ext[0]
		central = uI.Mul(uI).Add(uE.Mul(uE)).Scale(0.25).Mul(normal[0])
	)
	if b.Flux == CentralFlux {
		return central, nil
	}
	lam := tp.Int[1].Apply2(tp.Ext[1], math.Max)
	return central.Sub(lam.Mul(uE.Sub(uI)).Scale(0.5)), nil
}

// Operator returns the time derivative of u at time t.
func (b *BurgersOperator) Operator(t float64, u dof.Array) (rhs dof.Array, err error) {
	dc := b.dc
	var (
		amax     dof.Array
		state    dof.Vector
		exterior dof.Vector
		pairs    []op.TracePair[dof.Vector]
		bdry     op.TracePair[dof.Vector]
		dd       = dof.BoundaryDD(dof.BTagAll)
		div      dof.Array
		faceFlux dof.Array
	)
	if amax, err = b.MaxCharacteristicVelocity(u); err != nil {
		return
	}
	state = dof.Vector{u, amax}
	if div, err = op.WeakLocalDdx(dc, dof.DDVolume, 0, u.Mul(u).Scale(0.5)); err != nil {
		return
	}
	if pairs, err = op.InteriorTracePairs(dc, state); err != nil {
		return
	}
	if b.Boundary == nil {
		exterior, err = op.Project(dc, dof.DDVolume, dd, state)
	} else {
		var ub dof.Array
		if ub, err = b.Boundary(t); err != nil {
			return
		}
		exterior, err = op.Project(dc, dof.DDVolume, dd, dof.Vector{ub, amax})
	}
	if err != nil {
		return
	}
	if bdry, err = op.BVTracePair(dc, dd, state, exterior); err != nil {
		return
	}
	if faceFlux, err = dc.Zeros(dof.DDAllFaces); err != nil {
		return
	}
	for _, tp := range append(pairs, bdry) {
		var f dof.Array
		if f, err = b.NumericalFlux(tp); err != nil {
			return
		}
		if f, err = op.Project(dc, tp.DD, dof.DDAllFaces, f); err != nil {
			return
		}
		faceFlux = faceFlux.Add(f)
	}
	var faceTerm dof.Array
	if rhs, err = op.InverseMass(dc, div); err != nil {
		return
	}
	if faceTerm, err = op.Lift(dc, dof.DDAllFaces, faceFlux); err != nil {
		return
	}
	return rhs.Sub(faceTerm), nil
}
