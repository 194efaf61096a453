package model_problems

import (
	"fmt"
	"math"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/geometry"
	"github.com/notargets/dgcore/op"
)

// ConservedVars is the Euler state: density, total energy and momentum.
type ConservedVars struct {
	Mass     dof.Array
	Energy   dof.Array
	Momentum dof.Vector
}

func (q ConservedVars) Dim() int { return len(q.Momentum) }

func (q ConservedVars) Arrays() []dof.Array {
	return append([]dof.Array{q.Mass, q.Energy}, q.Momentum...)
}

func (q ConservedVars) WithArrays(leaves []dof.Array) dof.Container {
	if len(leaves) != 2+q.Dim() {
		panic(fmt.Errorf("conserved variables in %d dimensions expect %d leaves, got %d",
			q.Dim(), 2+q.Dim(), len(leaves)))
	}
	mom := make(dof.Vector, q.Dim())
	copy(mom, leaves[2:])
	return ConservedVars{Mass: leaves[0], Energy: leaves[1], Momentum: mom}
}

func (q ConservedVars) Velocity() dof.Vector {
	v := make(dof.Vector, q.Dim())
	for i, m := range q.Momentum {
		v[i] = m.Div(q.Mass)
	}
	return v
}

type EulerOperator struct {
	dc    *discretization.Collection
	Gamma float64
	// BoundaryStates gives, per boundary tag, the prescribed exterior state
	// on the volume nodes at time t.
	BoundaryStates map[dof.BoundaryTag]func(t float64) (ConservedVars, error)
}

func NewEulerOperator(dc *discretization.Collection, gamma float64,
	bcs map[dof.BoundaryTag]func(t float64) (ConservedVars, error)) *EulerOperator {
	return &EulerOperator{dc: dc, Gamma: gamma, BoundaryStates: bcs}
}

func (e *EulerOperator) KineticEnergy(q ConservedVars) dof.Array {
	return dof.Dot(q.Momentum, q.Momentum).Div(q.Mass).Scale(0.5)
}

func (e *EulerOperator) Pressure(q ConservedVars) dof.Array {
	return q.Energy.Sub(e.KineticEnergy(q)).Scale(e.Gamma - 1)
}

func (e *EulerOperator) SoundSpeed(q ConservedVars) dof.Array {
	return e.Pressure(q).Div(q.Mass).Scale(e.Gamma).Apply(math.Sqrt)
}

// MaxCharacteristicVelocity is |u| + c at every node.
func (e *EulerOperator) MaxCharacteristicVelocity(q ConservedVars) dof.Array {
	v := q.Velocity()
	return dof.Dot(v, v).Apply(math.Sqrt).Add(e.SoundSpeed(q))
}

// Flux returns the physical flux along each axis.
func (e *EulerOperator) Flux(q ConservedVars) (F []ConservedVars) {
	var (
		p   = e.Pressure(q)
		v   = q.Velocity()
		dim = q.Dim()
	)
	F = make([]ConservedVars, dim)
	for d := 0; d < dim; d++ {
		mom := make(dof.Vector, dim)
		for i := range mom {
			mom[i] = q.Momentum[i].Mul(v[d])
			if i == d {
				mom[i] = mom[i].Add(p)
			}
		}
		F[d] = ConservedVars{
			Mass:     q.Momentum[d],
			Energy:   q.Energy.Add(p).Mul(v[d]),
			Momentum: mom,
		}
	}
	return
}

func normalFlux(F []ConservedVars, normal dof.Vector) (r ConservedVars) {
	r = dof.MulArray(normal[0], F[0])
	for d := 1; d < len(F); d++ {
		r = dof.Add(r, dof.MulArray(normal[d], F[d]))
	}
	return
}

// NumericalFlux is the local Lax-Friedrichs flux through the faces of tp.
func (e *EulerOperator) NumericalFlux(tp op.TracePair[ConservedVars]) (f ConservedVars, err error) {
	var normal dof.Vector
	if normal, err = geometry.Normal(e.dc, tp.DD); err != nil {
		return
	}
	var (
		lam = e.MaxCharacteristicVelocity(tp.Int).Apply2(e.MaxCharacteristicVelocity(tp.Ext), math.Max)
		avg = dof.Scale(0.5, dof.Add(normalFlux(e.Flux(tp.Int), normal), normalFlux(e.Flux(tp.Ext), normal)))
	)
	// avg + lam/2 (int - ext)
	return dof.Sub(avg, dof.MulArray(lam.Scale(0.5), tp.Diff())), nil
}

// Operator returns the time derivative of q at time t.
func (e *EulerOperator) Operator(t float64, q ConservedVars) (rhs ConservedVars, err error) {
	dc := e.dc
	if q.Dim() != dc.AmbientDim() {
		err = fmt.Errorf("%w: %d momentum components in %d dimensions",
			dof.ErrIncompatibleDiscretization, q.Dim(), dc.AmbientDim())
		return
	}
	var (
		F        = e.Flux(q)
		div      ConservedVars
		faceFlux ConservedVars
		faceTerm ConservedVars
		pairs    []op.TracePair[ConservedVars]
	)
	for d := range F {
		var term ConservedVars
		if term, err = dof.MapErr(F[d], func(a dof.Array) (dof.Array, error) {
			return op.WeakLocalDdx(dc, dof.DDVolume, d, a)
		}); err != nil {
			return
		}
		if d == 0 {
			div = term
		} else {
			div = dof.Add(div, term)
		}
	}

	if pairs, err = op.InteriorTracePairs(dc, q); err != nil {
		return
	}
	if faceFlux, err = op.Project(dc, dof.DDVolume, dof.DDAllFaces, dof.Scale(0, q)); err != nil {
		return
	}
	for _, tp := range pairs {
		var f ConservedVars
		if f, err = e.NumericalFlux(tp); err != nil {
			return
		}
		if f, err = op.Project(dc, tp.DD, dof.DDAllFaces, f); err != nil {
			return
		}
		faceFlux = dof.Add(faceFlux, f)
	}
	for tag, state := range e.BoundaryStates {
		var (
			dd  = dof.BoundaryDD(tag)
			ext ConservedVars
			tp  op.TracePair[ConservedVars]
			f   ConservedVars
		)
		if ext, err = state(t); err != nil {
			return
		}
		if ext, err = op.Project(dc, dof.DDVolume, dd, ext); err != nil {
			return
		}
		if tp, err = op.BVTracePair(dc, dd, q, ext); err != nil {
			return
		}
		if f, err = e.NumericalFlux(tp); err != nil {
			return
		}
		if f, err = op.Project(dc, dd, dof.DDAllFaces, f); err != nil {
			return
		}
		faceFlux = dof.Add(faceFlux, f)
	}
	if rhs, err = op.InverseMass(dc, div); err != nil {
		return
	}
	if faceTerm, err = op.Lift(dc, dof.DDAllFaces, faceFlux); err != nil {
		return
	}
	return dof.Sub(rhs, faceTerm), nil
}
