package basis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/dgcore/utils"
)

func nearVec(a, b []float64, tol float64) (l bool) {
	if len(a) != len(b) {
		return false
	}
	for i, val := range a {
		if math.Abs(val-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestJacobi(t *testing.T) {
	{ // Gauss points and weights
		X, W := JacobiGQ(0, 0, 1)
		assert.True(t, nearVec([]float64{-1 / math.Sqrt(3), 1 / math.Sqrt(3)}, X, 1.e-14))
		assert.True(t, nearVec([]float64{1, 1}, W, 1.e-14))
		X, W = JacobiGQ(0, 0, 2)
		assert.True(t, nearVec([]float64{-math.Sqrt(0.6), 0, math.Sqrt(0.6)}, X, 1.e-14))
		assert.True(t, nearVec([]float64{5. / 9, 8. / 9, 5. / 9}, W, 1.e-14))
		// (1-x) weighted rule integrates to 2
		_, W = JacobiGQ(1, 0, 4)
		assert.InDelta(t, 2, floats.Sum(W), 1.e-13)
	}
	{ // Unequal exponents: nodes, weights and orthonormality
		X, W := JacobiGQ(1, 0, 0)
		assert.InDelta(t, -1./3, X[0], 1.e-15)
		assert.InDelta(t, 2, W[0], 1.e-15)
		X, W = JacobiGQ(1, 0, 1)
		// roots of P_2^(1,0), proportional to 5x^2 + 2x - 1
		assert.True(t, nearVec([]float64{(-1 - math.Sqrt(6)) / 5, (-1 + math.Sqrt(6)) / 5}, X, 1.e-14))
		for k := 0; k <= 3; k++ {
			// integral of (1-x) x^k over [-1, 1]
			var exact, sum float64
			if k%2 == 0 {
				exact = 2 / float64(k+1)
			} else {
				exact = -2 / float64(k+2)
			}
			for q := range W {
				sum += W[q] * utils.POW(X[q], k)
			}
			assert.InDelta(t, exact, sum, 1.e-14, "k = %d", k)
		}
		for _, ab := range [][2]float64{{1, 0}, {2, 1}, {0, 3}} {
			X, W := JacobiGQ(ab[0], ab[1], 6)
			for i := 0; i < 5; i++ {
				for j := 0; j < 5; j++ {
					pi, pj := JacobiP(X, ab[0], ab[1], i), JacobiP(X, ab[0], ab[1], j)
					var sum float64
					for q := range W {
						sum += W[q] * pi[q] * pj[q]
					}
					if i == j {
						assert.InDelta(t, 1, sum, 1.e-12, "alpha, beta = %v", ab)
					} else {
						assert.InDelta(t, 0, sum, 1.e-12, "alpha, beta = %v", ab)
					}
				}
			}
		}
	}
	{ // Gauss Lobatto
		assert.True(t, nearVec([]float64{-1, 0, 1}, JacobiGL(0, 0, 2), 1.e-14))
		assert.True(t, nearVec([]float64{-1, -0.4472, 0.4472, 1}, JacobiGL(0, 0, 3), 0.0001))
	}
	{ // Orthonormality of JacobiP under Gauss quadrature
		X, W := JacobiGQ(0, 0, 6)
		for i := 0; i < 5; i++ {
			for j := 0; j < 5; j++ {
				pi, pj := JacobiP(X, 0, 0, i), JacobiP(X, 0, 0, j)
				var sum float64
				for q := range W {
					sum += W[q] * pi[q] * pj[q]
				}
				if i == j {
					assert.InDelta(t, 1, sum, 1.e-13)
				} else {
					assert.InDelta(t, 0, sum, 1.e-13)
				}
			}
		}
	}
	{ // GradJacobiP against a finite difference
		x := []float64{0.3}
		h := 1.e-6
		for N := 1; N < 5; N++ {
			fd := (JacobiP([]float64{x[0] + h}, 0, 0, N)[0] - JacobiP([]float64{x[0] - h}, 0, 0, N)[0]) / (2 * h)
			assert.InDelta(t, fd, GradJacobiP(x, 0, 0, N)[0], 1.e-6)
		}
	}
}

func TestNodes2D(t *testing.T) {
	{
		N := 1
		x, y := Nodes2D(N)
		assert.True(t, nearVec([]float64{-1, 1, 0}, x, 0.0001))
		assert.True(t, nearVec([]float64{-0.5774, -0.5774, 1.1547}, y, 0.0001))

		N = 2
		x, y = Nodes2D(N)
		assert.True(t, nearVec([]float64{-1, 0, 1, -.5, .5, 0}, x, 0.0001))
		assert.True(t, nearVec([]float64{-0.5774, -0.5774, -0.5774, 0.2887, 0.2887, 1.1547}, y, 0.0001))
		r, s := XYtoRS(Nodes2D(N))
		assert.True(t, nearVec([]float64{-1, 0, 1, -1, 0, -1}, r, 0.0001))
		assert.True(t, nearVec([]float64{-1, -1, -1, 0, 0, 1}, s, 0.0001))
		a, b := RStoAB(r, s)
		assert.True(t, nearVec([]float64{-1, 0, 1, -1, 1, -1}, a, 0.0001))
		assert.True(t, nearVec([]float64{-1, -1, -1, 0, 0, 1}, b, 0.0001))
		P := Simplex2DP(a, b, 0, 0)
		assert.True(t, nearVec([]float64{0.7071, 0.7071, 0.7071, 0.7071, 0.7071, 0.7071}, P, 0.0001))

		V := Vandermonde2D(N, r, s)
		assert.True(t, nearVec([]float64{
			0.7071, -1.0000, 1.2247, -1.7321, 2.1213, 2.7386,
			0.7071, -1.0000, 1.2247, 0, 0, -1.3693,
			0.7071, -1.0000, 1.2247, 1.7321, -2.1213, 2.7386,
			0.7071, 0.5000, -0.6124, -0.8660, -1.5910, 0.6847,
			0.7071, 0.5000, -0.6124, 0.8660, 1.5910, 0.6847,
			0.7071, 2.0000, 3.6742, 0, 0, 0,
		}, V.Data(), 0.0001))
		V2Dr, V2Ds := GradVandermonde2D(N, r, s)
		assert.True(t, nearVec([]float64{
			0, 0, 0, 1.7321, -2.1213, -8.2158,
			0, 0, 0, 1.7321, -2.1213, 0,
			0, 0, 0, 1.7321, -2.1213, 8.2158,
			0, 0, 0, 1.7321, 3.1820, -4.1079,
			0, 0, 0, 1.7321, 3.1820, 4.1079,
			0, 0, 0, 1.7321, 8.4853, 0,
		}, V2Dr.Data(), 0.0001))
		assert.True(t, nearVec([]float64{
			0, 1.5000, -4.8990, 0.8660, -6.3640, -2.7386,
			0, 1.5000, -4.8990, 0.8660, -1.0607, 1.3693,
			0, 1.5000, -4.8990, 0.8660, 4.2426, 5.4772,
			0, 1.5000, 1.2247, 0.8660, -1.0607, -1.3693,
			0, 1.5000, 1.2247, 0.8660, 4.2426, 2.7386,
			0, 1.5000, 7.3485, 0.8660, 4.2426, 0,
		}, V2Ds.Data(), 0.0001))
	}
	{ // Warpfactor
		warpf := Warpfactor(3, []float64{-1.0000, -0.3333, 0.3333, 1.0000, -0.6667, -0.0000, 0.6667, -0.3333, 0.3333, 0})
		assert.True(t, nearVec([]float64{0, -0.1281, 0.1281, 0, -0.2562, 0.0000, 0.2562, -0.1281, 0.1281, 0.0000}, warpf, 0.0001))
	}
	{ // Distribution at higher order
		x, y := Nodes2D(3)
		assert.True(t, nearVec([]float64{-1.0000, -0.4472, 0.4472, 1.0000, -0.7236, -0.0000, 0.7236, -0.2764, 0.2764, 0}, x, 0.0001))
		assert.True(t, nearVec([]float64{-0.5774, -0.5774, -0.5774, -0.5774, -0.0986, -0.0000, -0.0986, 0.6760, 0.6760, 1.1547}, y, 0.0001))
	}
	{ // Order zero is the centroid
		r, s := XYtoRS(Nodes2D(0))
		assert.True(t, nearVec([]float64{-1. / 3}, r, 1.e-14))
		assert.True(t, nearVec([]float64{-1. / 3}, s, 1.e-14))
	}
}

func TestQuadrature(t *testing.T) {
	{ // Interval
		for order := 0; order < 9; order++ {
			q := LegendreGaussRule(order)
			assert.GreaterOrEqual(t, q.ExactTo, order)
			// integral of x^order over [-1,1]
			var sum, exact float64
			for i, x := range q.Nodes[0] {
				sum += q.Weights[i] * utils.POW(x, order)
			}
			if order%2 == 0 {
				exact = 2 / float64(order+1)
			}
			assert.InDelta(t, exact, sum, 1.e-13)
		}
	}
	{ // Triangle: sum of weights, monomials r^i s^j against PKDO orthonormality
		for order := 0; order < 8; order++ {
			q := StroudTriangleRule(order)
			assert.GreaterOrEqual(t, q.ExactTo, order)
			assert.InDelta(t, 2, floats.Sum(q.Weights), 1.e-13)
		}
		N := 3
		q := StroudTriangleRule(2 * N)
		V := Vandermonde2D(N, q.Nodes[0], q.Nodes[1])
		nq, np := V.Dims()
		W := mat.NewDiagDense(nq, q.Weights)
		var VtW, M mat.Dense
		VtW.Mul(V.T(), W)
		M.Mul(&VtW, V.M)
		assert.True(t, mat.EqualApprox(&M, utils.NewIdentity(np), 1.e-13))
	}
	{ // Point
		q := PointRule()
		assert.Equal(t, 1, q.NumNodes())
		assert.Equal(t, 0, len(q.Nodes))
	}
}
