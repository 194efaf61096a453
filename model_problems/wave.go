package model_problems

import (
	"fmt"
	"sort"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/dtutils"
	"github.com/notargets/dgcore/geometry"
	"github.com/notargets/dgcore/op"
)

type FluxType string

const (
	CentralFlux FluxType = "central"
	UpwindFlux  FluxType = "upwind"
)

type BoundaryKind string

const (
	Dirichlet BoundaryKind = "dirichlet"
	Neumann   BoundaryKind = "neumann"
	Radiation BoundaryKind = "radiation"
)

// WaveBC is the condition imposed on the faces of one boundary tag. Value is
// the prescribed u of a Dirichlet condition.
type WaveBC struct {
	Kind  BoundaryKind
	Value float64
}

// WaveOperator discretizes u_t - div(c v) = 0, v_t - grad(c u) = 0 in weak
// form, with c a constant or a field on the volume nodes. The state is the
// Vector (u, v_0, ..., v_{d-1}).
type WaveOperator struct {
	dc   *discretization.Collection
	c    dof.Array
	sign dof.Array
	cmax float64
	Flux FluxType
	// BCs covers every boundary face exactly once.
	BCs map[dof.BoundaryTag]WaveBC
	// Source, if set, is added to the time derivative of u.
	Source func(t float64) (dof.Array, error)
}

type WaveOption func(w *WaveOperator)

func WithFlux(f FluxType) WaveOption { return func(w *WaveOperator) { w.Flux = f } }

func withBC(tag dof.BoundaryTag, bc WaveBC) WaveOption {
	return func(w *WaveOperator) {
		if w.BCs == nil {
			w.BCs = make(map[dof.BoundaryTag]WaveBC)
		}
		w.BCs[tag] = bc
	}
}

func WithDirichlet(tag dof.BoundaryTag, value float64) WaveOption {
	return withBC(tag, WaveBC{Kind: Dirichlet, Value: value})
}

func WithNeumann(tag dof.BoundaryTag) WaveOption { return withBC(tag, WaveBC{Kind: Neumann}) }

func WithRadiation(tag dof.BoundaryTag) WaveOption { return withBC(tag, WaveBC{Kind: Radiation}) }

func WithSource(f func(t float64) (dof.Array, error)) WaveOption {
	return func(w *WaveOperator) { w.Source = f }
}

// NewWaveOperator defaults to upwind fluxes with u = 0 on every boundary.
// Boundary conditions given as options replace the default and must cover
// the boundary.
func NewWaveOperator(dc *discretization.Collection, c float64, opts ...WaveOption) (*WaveOperator, error) {
	return NewVariableCoefficientWaveOperator(dc, dc.VolumeDiscr().Ones().Scale(c), opts...)
}

// NewVariableCoefficientWaveOperator takes the wave speed at every volume
// node. Its sign selects the forward or the backward equation node by node.
func NewVariableCoefficientWaveOperator(dc *discretization.Collection, c dof.Array,
	opts ...WaveOption) (w *WaveOperator, err error) {
	if err = dc.VolumeDiscr().CheckArray(c); err != nil {
		return
	}
	w = &WaveOperator{
		dc:   dc,
		c:    c.Copy(),
		Flux: UpwindFlux,
		sign: c.Apply(func(v float64) float64 {
			if v < 0 {
				return -1
			}
			return 1
		}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.Flux != CentralFlux && w.Flux != UpwindFlux {
		err = fmt.Errorf("%w: flux type %q", dof.ErrNotImplemented, w.Flux)
		return
	}
	if len(w.BCs) == 0 {
		w.BCs = map[dof.BoundaryTag]WaveBC{dof.BTagAll: {Kind: Dirichlet}}
	}
	for tag, bc := range w.BCs {
		switch bc.Kind {
		case Dirichlet, Neumann, Radiation:
		default:
			err = fmt.Errorf("%w: boundary condition %q on %s", dof.ErrNotImplemented, bc.Kind, tag)
			return
		}
	}
	if err = dc.Mesh().CheckBoundaryCoverage(w.boundaryTags()); err != nil {
		return
	}
	if w.cmax, err = op.NodalMax(dc, dof.DDVolume, w.c.Abs()); err != nil {
		return
	}
	return
}

// boundaryTags lists the tags of BCs in a fixed order.
func (w *WaveOperator) boundaryTags() (tags []dof.BoundaryTag) {
	for tag := range w.BCs {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return
}

func (w *WaveOperator) MaxCharacteristicVelocity() float64 { return w.cmax }

// EstimateTimestep is the largest stable step for the given CFL number.
func (w *WaveOperator) EstimateTimestep(cfl float64) (float64, error) {
	return dtutils.EstimateTimestep(w.dc, w.c.Abs(), cfl)
}

// flux takes pairs of (c, u, v_0, ...).
func (w *WaveOperator) flux(tp op.TracePair[dof.Vector]) (f dof.Vector, err error) {
	var normal dof.Vector
	if normal, err = geometry.Normal(w.dc, tp.DD); err != nil {
		return
	}
	var (
		cI, cE = tp.Int[0], tp.Ext[0]
		uI, uE = tp.Int[1], tp.Ext[1]
		vI, vE = tp.Int[2:], tp.Ext[2:]
		cvAvg  = dof.Scale(0.5, dof.Add(dof.MulArray(cI, vI), dof.MulArray(cE, vE)))
		cuAvg  = cI.Mul(uI).Add(cE.Mul(uE)).Scale(0.5)
	)
	f = make(dof.Vector, len(tp.Int)-1)
	f[0] = dof.Dot(cvAvg, normal).Scale(-1)
	for i, n := range normal {
		f[i+1] = cuAvg.Mul(n).Scale(-1)
	}
	switch w.Flux {
	case CentralFlux:
		return
	case UpwindFlux:
		var (
			aI, aE = cI.Abs(), cE.Abs()
			ju     = aE.Mul(uE).Sub(aI.Mul(uI))
			jv     = dof.Dot(dof.Sub(dof.MulArray(aE, vE), dof.MulArray(aI, vI)), normal)
		)
		f[0] = f[0].Sub(ju.Scale(0.5))
		for i, n := range normal {
			f[i+1] = f[i+1].Sub(n.Mul(jv).Scale(0.5))
		}
		return
	}
	err = fmt.Errorf("%w: flux type %q", dof.ErrNotImplemented, w.Flux)
	return
}

// boundaryState returns the exterior (c, u, v) imposed by bc on dd.
func (w *WaveOperator) boundaryState(dd dof.DOFDesc, bc WaveBC, interior dof.Vector) (ext dof.Vector, err error) {
	var (
		c = interior[0]
		u = interior[1]
		v = interior[2:]
	)
	ext = make(dof.Vector, len(interior))
	ext[0] = c
	switch bc.Kind {
	case Dirichlet:
		ext[1] = u.Scale(-1).AddScalar(2 * bc.Value)
		copy(ext[2:], v)
	case Neumann:
		ext[1] = u
		for i := range v {
			ext[i+2] = v[i].Scale(-1)
		}
	case Radiation:
		var (
			normal dof.Vector
			sign   dof.Array
		)
		if normal, err = geometry.Normal(w.dc, dd); err != nil {
			return
		}
		if sign, err = op.Project(w.dc, dof.DDVolume, dd, w.sign); err != nil {
			return
		}
		nv := dof.Dot(v, normal)
		ext[1] = u.Sub(nv.Mul(sign)).Scale(0.5)
		for i, n := range normal {
			ext[i+2] = n.Mul(nv.Sub(u.Mul(sign))).Scale(0.5)
		}
	}
	return
}

// Operator returns the time derivative of state at time t.
func (w *WaveOperator) Operator(t float64, state dof.Vector) (rhs dof.Vector, err error) {
	dc := w.dc
	if len(state) != dc.AmbientDim()+1 {
		err = fmt.Errorf("%w: wave state has %d components, want %d",
			dof.ErrIncompatibleDiscretization, len(state), dc.AmbientDim()+1)
		return
	}
	var (
		u, v       = state[0], state[1:]
		withSpeed  = append(dof.Vector{w.c}, state...)
		divV       dof.Array
		gradU      dof.Vector
		faceFlux   dof.Vector
		pairs      []op.TracePair[dof.Vector]
		allFaces   dof.Array
		faceTerm   dof.Vector
		volumeTerm = make(dof.Vector, len(state))
	)
	if divV, err = op.WeakLocalDiv(dc, dof.DDVolume, dof.MulArray(w.c, v)); err != nil {
		return
	}
	if gradU, err = op.WeakLocalGrad(dc, dof.DDVolume, u.Mul(w.c)); err != nil {
		return
	}
	volumeTerm[0] = divV.Scale(-1)
	for i := range gradU {
		volumeTerm[i+1] = gradU[i].Scale(-1)
	}

	if pairs, err = op.InteriorTracePairs(dc, withSpeed); err != nil {
		return
	}
	for _, tag := range w.boundaryTags() {
		if tag == dof.BTagNone {
			continue
		}
		var (
			dd       = dof.BoundaryDD(tag)
			interior dof.Vector
			exterior dof.Vector
			tp       op.TracePair[dof.Vector]
		)
		if interior, err = op.Project(dc, dof.DDVolume, dd, withSpeed); err != nil {
			return
		}
		if exterior, err = w.boundaryState(dd, w.BCs[tag], interior); err != nil {
			return
		}
		if tp, err = op.BdryTracePair(dc, dd, interior, exterior); err != nil {
			return
		}
		pairs = append(pairs, tp)
	}

	if allFaces, err = dc.Zeros(dof.DDAllFaces); err != nil {
		return
	}
	faceFlux = make(dof.Vector, len(state))
	for i := range faceFlux {
		faceFlux[i] = allFaces
	}
	for _, tp := range pairs {
		var f dof.Vector
		if f, err = w.flux(tp); err != nil {
			return
		}
		if f, err = op.Project(dc, tp.DD, dof.DDAllFaces, f); err != nil {
			return
		}
		faceFlux = dof.Add(faceFlux, f)
	}
	if faceTerm, err = op.FaceMass(dc, dof.DDAllFaces, faceFlux); err != nil {
		return
	}
	if rhs, err = op.InverseMass(dc, dof.Sub(volumeTerm, faceTerm)); err != nil {
		return
	}
	if w.Source != nil {
		var s dof.Array
		if s, err = w.Source(t); err != nil {
			return
		}
		rhs[0] = rhs[0].Add(s)
	}
	return
}
