package model_problems

import (
	"fmt"
	"math"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/mesh"
	"github.com/notargets/dgcore/utils"
)

// SlopeLimiter is the TVB minmod slope limiter on a 1D mesh. Elements whose
// edge values lie within the minmod bounds set by the neighboring cell
// averages keep their data; the others are replaced by a limited linear
// function with the same average. M = 0 is the TVD minmod limiter.
type SlopeLimiter struct {
	M           float64
	dc          *discretization.Collection
	left, right []int
	h, xc       []float64
	lo, hi      []int // nodes at the left and right end of each element
	weights     []float64
	linear      utils.Matrix
}

func NewSlopeLimiter(dc *discretization.Collection, M float64) (sl *SlopeLimiter, err error) {
	vol := dc.VolumeDiscr()
	if dc.Dim() != 1 || dc.AmbientDim() != 1 || len(vol.Groups) != 1 {
		err = fmt.Errorf("%w: slope limiting on a %d-dimensional mesh with %d groups",
			dof.ErrNotImplemented, dc.Dim(), len(vol.Groups))
		return
	}
	var (
		g  = vol.Groups[0]
		K  = g.NElements
		Np = g.Np()
		x  = g.Nodes[0]
	)
	sl = &SlopeLimiter{
		M:     M,
		dc:    dc,
		left:  make([]int, K),
		right: make([]int, K),
		h:     make([]float64, K),
		xc:    make([]float64, K),
		lo:    make([]int, K),
		hi:    make([]int, K),
	}
	for k := 0; k < K; k++ {
		sl.lo[k], sl.hi[k] = 0, Np-1
		if x.At(0, k) > x.At(Np-1, k) {
			sl.lo[k], sl.hi[k] = Np-1, 0
		}
		sl.h[k] = math.Abs(x.At(Np-1, k) - x.At(0, k))
		sl.xc[k] = 0.5 * (x.At(Np-1, k) + x.At(0, k))
	}
	for k := 0; k < K; k++ {
		sl.left[k], sl.right[k] = k, k
		for f := 0; f < 2; f++ {
			nb, ok := dc.Mesh().Neighbor(mesh.FaceID{Group: 0, Element: k, Face: f})
			switch {
			case !ok:
			case sl.xc[nb.Element] < sl.xc[k]:
				sl.left[k] = nb.Element
			default:
				sl.right[k] = nb.Element
			}
		}
	}
	if g.Ref.Order == 0 {
		return
	}
	var M0, V, Vinv utils.Matrix
	if M0, err = dc.Cache().Mass(g.Key()); err != nil {
		return
	}
	sl.weights = M0.Mul(utils.NewMatrixFromFunc(Np, 1, func(int, int) float64 { return 1 })).Col(0)
	if V, err = dc.Cache().Vandermonde(g.Key()); err != nil {
		return
	}
	if Vinv, err = dc.Cache().InverseVandermonde(g.Key()); err != nil {
		return
	}
	// Interpolant of the two lowest modes.
	sl.linear = utils.NewMatrixFromFunc(Np, Np, func(i, j int) float64 {
		return V.At(i, 0)*Vinv.At(0, j) + V.At(i, 1)*Vinv.At(1, j)
	})
	return
}

func minmod(a ...float64) float64 {
	s := math.Copysign(1, a[0])
	m := math.Abs(a[0])
	for _, v := range a[1:] {
		if math.Copysign(1, v) != s {
			return 0
		}
		m = math.Min(m, math.Abs(v))
	}
	return s * m
}

func (sl *SlopeLimiter) minmodB(h float64, a ...float64) float64 {
	if math.Abs(a[0]) <= sl.M*h*h {
		return a[0]
	}
	return minmod(a...)
}

// Averages returns the cell average of every element of a.
func (sl *SlopeLimiter) Averages(a dof.Array) []float64 {
	var (
		g     = a.Groups[0]
		_, K  = g.Dims()
		avg   = make([]float64, K)
		total float64
	)
	if sl.weights == nil {
		return g.Row(0)
	}
	for _, w := range sl.weights {
		total += w
	}
	for k := range avg {
		for i, u := range g.Col(k) {
			avg[k] += sl.weights[i] * u
		}
		avg[k] /= total
	}
	return avg
}

// Limit returns a with the troubled elements replaced by limited linears.
func (sl *SlopeLimiter) Limit(a dof.Array) (r dof.Array, err error) {
	if err = sl.dc.VolumeDiscr().CheckArray(a); err != nil {
		return
	}
	r = a.Copy()
	if sl.linear.IsEmpty() {
		return
	}
	var (
		avg = sl.Averages(a)
		x   = sl.dc.VolumeDiscr().Groups[0].Nodes[0]
		U   = r.Groups[0]
		lin = sl.linear.Mul(a.Groups[0])
	)
	for k, v0 := range avg {
		var (
			u      = a.Groups[0].Col(k)
			h      = sl.h[k]
			lo, hi = sl.lo[k], sl.hi[k]
			dm, dp = v0 - avg[sl.left[k]], avg[sl.right[k]] - v0
			ve1    = v0 - sl.minmodB(h, v0-u[lo], dm, dp)
			ve2    = v0 + sl.minmodB(h, u[hi]-v0, dm, dp)
		)
		if math.Abs(ve1-u[lo]) < 1.e-8 && math.Abs(ve2-u[hi]) < 1.e-8 {
			continue
		}
		slope := (lin.At(hi, k) - lin.At(lo, k)) / (x.At(hi, k) - x.At(lo, k))
		slope = minmod(slope, dp/h, dm/h)
		for i := range u {
			U.Set(i, k, v0+(x.At(i, k)-sl.xc[k])*slope)
		}
	}
	return
}

// LimitConserved limits every conserved field independently.
func (sl *SlopeLimiter) LimitConserved(q ConservedVars) (ConservedVars, error) {
	return dof.MapErr(q, sl.Limit)
}
