package op

import (
	"math"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/geometry"
	"github.com/notargets/dgcore/utils"
)

func reduce(a dof.Array, init float64, f func(acc, x float64) float64) float64 {
	acc := init
	for _, g := range a.Groups {
		for _, x := range g.Data() {
			acc = f(acc, x)
		}
	}
	return acc
}

func NodalSum(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (float64, error) {
	if _, err := checkField(dc, dd, a); err != nil {
		return 0, err
	}
	return reduce(a, 0, func(acc, x float64) float64 { return acc + x }), nil
}

// NodalMin is +Inf on a discretization without nodes.
func NodalMin(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (float64, error) {
	if _, err := checkField(dc, dd, a); err != nil {
		return 0, err
	}
	return reduce(a, math.Inf(1), math.Min), nil
}

// NodalMax is -Inf on a discretization without nodes.
func NodalMax(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (float64, error) {
	if _, err := checkField(dc, dd, a); err != nil {
		return 0, err
	}
	return reduce(a, math.Inf(-1), math.Max), nil
}

// elementwise reduces each element (column) with f and broadcasts the result
// to every node of the element.
func elementwise(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array, init float64,
	f func(acc, x float64) float64) (r dof.Array, err error) {
	if _, err = checkField(dc, dd, a); err != nil {
		return
	}
	r = dof.ZerosLike(a)
	for gi, g := range a.Groups {
		np, K := g.Dims()
		vals := make([]float64, K)
		for e := range vals {
			acc := init
			for _, x := range g.Col(e) {
				acc = f(acc, x)
			}
			vals[e] = acc
		}
		r.Groups[gi] = utils.NewMatrixFromFunc(np, K, func(_, e int) float64 { return vals[e] })
	}
	return
}

func ElementwiseSum(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (dof.Array, error) {
	return elementwise(dc, dd, a, 0, func(acc, x float64) float64 { return acc + x })
}

func ElementwiseMax(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (dof.Array, error) {
	return elementwise(dc, dd, a, math.Inf(-1), math.Max)
}

func ElementwiseMin(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (dof.Array, error) {
	return elementwise(dc, dd, a, math.Inf(1), math.Min)
}

// weighted returns per-node contributions to the integral of a over dd:
// the mass-weighted values on interpolatory nodes, w_q J_q a_q on
// quadrature nodes. The result lives on dd.
func weighted(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (r dof.Array, err error) {
	if dd.IsBase() {
		return mass(dc, dd, a)
	}
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
	r = J.Mul(a)
	for gi, g := range d.Groups {
		w := g.Ref.Weights
		r.Groups[gi].Apply2(utils.NewMatrixFromFunc(len(w), g.NElements, func(q, _ int) float64 { return w[q] }),
			func(x, wq float64) float64 { return x * wq })
	}
	return
}

// ElementwiseIntegral is the integral of a over each element, broadcast to
// the element's nodes.
func ElementwiseIntegral(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (r dof.Array, err error) {
	var w dof.Array
	if w, err = weighted(dc, dd, a); err != nil {
		return
	}
	return ElementwiseSum(dc, dd, w)
}

func Integral(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array) (v float64, err error) {
	var w dof.Array
	if w, err = weighted(dc, dd, a); err != nil {
		return
	}
	return NodalSum(dc, dd, w)
}

// Norm is the p-norm of c over dd for p = 2 or p = +Inf. Leaves of a
// container combine as the Euclidean norm of their 2-norms, or the largest
// of their max norms.
func Norm(dc *discretization.Collection, c dof.Container, p float64, dd dof.DOFDesc) (n float64, err error) {
	switch {
	case p == 2:
		var sum float64
		for _, a := range c.Arrays() {
			var w dof.Array
			if w, err = weighted(dc, dd, a); err != nil {
				return
			}
			sum += reduce(w.Mul(a), 0, func(acc, x float64) float64 { return acc + x })
		}
		return math.Sqrt(math.Abs(sum)), nil
	case math.IsInf(p, 1):
		for _, a := range c.Arrays() {
			var m float64
			if m, err = NodalMax(dc, dd, a.Abs()); err != nil {
				return
			}
			n = math.Max(n, m)
		}
		return
	}
	err = notImplemented("norm order", p)
	return
}
