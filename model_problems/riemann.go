package model_problems

import (
	"fmt"
	"math"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/op"
)

// RiemannState is a primitive state: density, normal velocity, pressure.
type RiemannState struct {
	Rho, U, P float64
}

// RiemannProblem is the exact solution of a 1D shock tube whose left state
// expands through a rarefaction and whose right state is hit by a shock, as
// in Sod's problem.
type RiemannProblem struct {
	Gamma       float64
	X0          float64
	Left, Right RiemannState
	PStar       float64
	UStar       float64
}

// SodShockTube is the classic tube on [0, 1] with the diaphragm at 0.5.
func SodShockTube() *RiemannProblem {
	rp, err := NewRiemannProblem(1.4, 0.5, RiemannState{Rho: 1, P: 1}, RiemannState{Rho: 0.125, P: 0.1})
	if err != nil {
		panic(err)
	}
	return rp
}

func NewRiemannProblem(gamma, x0 float64, left, right RiemannState) (rp *RiemannProblem, err error) {
	if gamma <= 1 || left.Rho <= 0 || right.Rho <= 0 || left.P <= 0 || right.P <= 0 {
		err = fmt.Errorf("invalid Riemann data: gamma = %g, left = %+v, right = %+v", gamma, left, right)
		return
	}
	rp = &RiemannProblem{Gamma: gamma, X0: x0, Left: left, Right: right}
	// Pressure jump across both waves minus the velocity jump, increasing in p.
	f := func(p float64) float64 {
		return rp.rarefaction(p) + rp.shock(p) + right.U - left.U
	}
	lo, hi := right.P, left.P
	if lo >= hi || f(lo) > 0 || f(hi) < 0 {
		err = fmt.Errorf("Riemann data %+v | %+v is not a left rarefaction and right shock", left, right)
		return
	}
	for i := 0; i < 200 && hi-lo > 1.e-15*hi; i++ {
		mid := 0.5 * (lo + hi)
		if f(mid) > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}
	rp.PStar = 0.5 * (lo + hi)
	rp.UStar = 0.5*(left.U+right.U) + 0.5*(rp.shock(rp.PStar)-rp.rarefaction(rp.PStar))
	return
}

func soundSpeed(gamma float64, s RiemannState) float64 {
	return math.Sqrt(gamma * s.P / s.Rho)
}

func (rp *RiemannProblem) rarefaction(p float64) float64 {
	var (
		g  = rp.Gamma
		cl = soundSpeed(g, rp.Left)
	)
	return 2 * cl / (g - 1) * (math.Pow(p/rp.Left.P, (g-1)/(2*g)) - 1)
}

func (rp *RiemannProblem) shock(p float64) float64 {
	var (
		g = rp.Gamma
		a = 2 / ((g + 1) * rp.Right.Rho)
		b = (g - 1) / (g + 1) * rp.Right.P
	)
	return (p - rp.Right.P) * math.Sqrt(a/(p+b))
}

// Waves returns the positions at time t of the rarefaction head and tail,
// the contact and the shock.
func (rp *RiemannProblem) Waves(t float64) (head, tail, contact, shock float64) {
	var (
		g     = rp.Gamma
		cl    = soundSpeed(g, rp.Left)
		cr    = soundSpeed(g, rp.Right)
		cStar = cl * math.Pow(rp.PStar/rp.Left.P, (g-1)/(2*g))
		sr    = rp.Right.U + cr*math.Sqrt((g+1)/(2*g)*rp.PStar/rp.Right.P+(g-1)/(2*g))
	)
	head = rp.X0 + (rp.Left.U-cl)*t
	tail = rp.X0 + (rp.UStar-cStar)*t
	contact = rp.X0 + rp.UStar*t
	shock = rp.X0 + sr*t
	return
}

// Sample returns the exact state at x and time t > 0.
func (rp *RiemannProblem) Sample(x, t float64) RiemannState {
	var (
		g                          = rp.Gamma
		mu2                        = (g - 1) / (g + 1)
		head, tail, contact, shock = rp.Waves(t)
		l, r                       = rp.Left, rp.Right
		cl                         = soundSpeed(g, l)
		pratio                     = rp.PStar / r.P
	)
	switch {
	case x < head:
		return l
	case x < tail:
		xi := (x - rp.X0) / t
		c := 2 / (g + 1) * (cl + (g-1)/2*(l.U-xi))
		return RiemannState{
			Rho: l.Rho * math.Pow(c/cl, 2/(g-1)),
			U:   2 / (g + 1) * (cl + (g-1)/2*l.U + xi),
			P:   l.P * math.Pow(c/cl, 2*g/(g-1)),
		}
	case x < contact:
		return RiemannState{Rho: l.Rho * math.Pow(rp.PStar/l.P, 1/g), U: rp.UStar, P: rp.PStar}
	case x < shock:
		return RiemannState{Rho: r.Rho * (pratio + mu2) / (mu2*pratio + 1), U: rp.UStar, P: rp.PStar}
	}
	return r
}

// Conserved samples the solution along the first axis at the volume nodes.
// Momentum in the other axes is zero.
func (rp *RiemannProblem) Conserved(dc *discretization.Collection, t float64) (q ConservedVars, err error) {
	var x dof.Vector
	if x, err = dc.Nodes(dof.DDVolume); err != nil {
		return
	}
	state := func(f func(s RiemannState) float64) dof.Array {
		return x[0].Apply(func(xv float64) float64 {
			if t <= 0 {
				if xv < rp.X0 {
					return f(rp.Left)
				}
				return f(rp.Right)
			}
			return f(rp.Sample(xv, t))
		})
	}
	q = ConservedVars{
		Mass:     state(func(s RiemannState) float64 { return s.Rho }),
		Energy:   state(func(s RiemannState) float64 { return s.P/(rp.Gamma-1) + 0.5*s.Rho*s.U*s.U }),
		Momentum: make(dof.Vector, len(x)),
	}
	q.Momentum[0] = state(func(s RiemannState) float64 { return s.Rho * s.U })
	for ax := 1; ax < len(x); ax++ {
		q.Momentum[ax] = dof.ZerosLike(q.Mass)
	}
	return
}

// DensityL1Error integrates |rho - rho_exact| over the volume at time t.
func (rp *RiemannProblem) DensityL1Error(dc *discretization.Collection, q ConservedVars, t float64) (e float64, err error) {
	var exact ConservedVars
	if exact, err = rp.Conserved(dc, t); err != nil {
		return
	}
	return op.Integral(dc, dof.DDVolume, q.Mass.Sub(exact.Mass).Abs())
}
