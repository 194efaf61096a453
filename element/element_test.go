package element

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/dgcore/dof"
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

func nodeCol(ref *Reference, f func(x []float64) float64) utils.Matrix {
	return utils.NewMatrixFromFunc(ref.Np, 1, func(i, _ int) float64 {
		x := make([]float64, ref.Dim)
		for d := range x {
			x[d] = ref.Nodes[d][i]
		}
		return f(x)
	})
}

func TestShapes(t *testing.T) {
	for _, s := range []Shape{Tetrahedron, Quadrilateral, Hexahedron} {
		_, err := NewReference(Key{Shape: s, Order: 2})
		assert.True(t, errors.Is(err, dof.ErrUnsupportedShape), s.String())
		_, err = PolynomialWarpBlendGroupFactory{Order: 2}.KeyFor(s)
		assert.True(t, errors.Is(err, dof.ErrUnsupportedShape))
	}
	assert.Equal(t, Point, Interval.FaceShape())
	assert.Equal(t, Interval, Triangle.FaceShape())
	// Face i is opposite vertex i
	for _, s := range []Shape{Interval, Triangle} {
		for f, fv := range s.FaceVertexIndices() {
			assert.NotContains(t, fv, f)
		}
	}
	// Reference normals point away from the opposite vertex
	for f := 0; f < 3; f++ {
		var (
			n    = Triangle.ReferenceFaceNormal(f)
			v    = Triangle.UnitVertices()[f]
			a    = Triangle.UnitVertices()[Triangle.FaceVertexIndices()[f][0]]
			proj = n[0]*(a[0]-v[0]) + n[1]*(a[1]-v[1])
		)
		assert.Greater(t, proj, 0.)
	}
}

func TestReferenceOperators(t *testing.T) {
	cache := NewOperatorCache()
	for _, shape := range []Shape{Interval, Triangle} {
		for N := 1; N <= 4; N++ {
			key := Key{Shape: shape, Order: N, Kind: WarpBlend}
			ref, err := cache.Reference(key)
			require.NoError(t, err)
			M, err := cache.Mass(key)
			require.NoError(t, err)
			Minv, err := cache.InverseMass(key)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(M.Mul(Minv), utils.NewIdentity(ref.Np), 1.e-10))
			// Total mass is the reference volume
			ones := utils.NewMatrixFromFunc(ref.Np, 1, func(int, int) float64 { return 1 })
			assert.InDelta(t, shape.Volume(), ones.Transpose().Mul(M).Mul(ones).At(0, 0), 1.e-12)
			// Derivatives of r^2 + r s
			D, err := cache.Diff(key)
			require.NoError(t, err)
			require.Len(t, D, shape.Dim())
			var f func(x []float64) float64
			if shape == Interval {
				f = func(x []float64) float64 { return x[0] * x[0] }
			} else {
				f = func(x []float64) float64 { return x[0]*x[0] + x[0]*x[1] }
			}
			u := nodeCol(ref, f)
			dr := D[0].Mul(u)
			var want utils.Matrix
			if shape == Interval {
				want = nodeCol(ref, func(x []float64) float64 { return 2 * x[0] })
			} else {
				want = nodeCol(ref, func(x []float64) float64 { return 2*x[0] + x[1] })
				ds := D[1].Mul(u)
				if N >= 2 {
					assert.True(t, nearVec(nodeCol(ref, func(x []float64) float64 { return x[0] }).Data(), ds.Data(), 1.e-11))
				}
			}
			if N >= 2 {
				assert.True(t, nearVec(want.Data(), dr.Data(), 1.e-11))
			}
			// Quadrature variants agree with the nodal ones under exact quadrature
			qkey := Key{Shape: shape, Order: 2 * N, Kind: QuadratureNodes}
			I, err := cache.Interpolation(key, qkey)
			require.NoError(t, err)
			Mq, err := cache.QuadMass(key, qkey)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(Mq.Mul(I), M, 1.e-12))
			STq, err := cache.StiffnessTranspose(key, qkey)
			require.NoError(t, err)
			ST, err := cache.StiffnessTranspose(key, key)
			require.NoError(t, err)
			for d := range ST {
				assert.True(t, mat.EqualApprox(STq[d].Mul(I), ST[d], 1.e-11))
			}
			// L2 projection of interpolated data is the identity
			P, err := cache.L2Projection(key, qkey)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(P.Mul(I), utils.NewIdentity(ref.Np), 1.e-11))
			MqInv, err := cache.QuadratureInverseMass(key, qkey)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(MqInv, Minv, 1.e-10))
		}
	}
}

func TestLift(t *testing.T) {
	cache := NewOperatorCache()
	{ // Interval, face 0 at r=+1 and face 1 at r=-1
		L, err := cache.Lift(Key{Shape: Interval, Order: 1}, Key{Shape: Point, Order: 1})
		require.NoError(t, err)
		assert.True(t, nearVec([]float64{-1, 2, 2, -1}, L.Data(), 1.e-12))
	}
	{ // Triangle, faces ordered hypotenuse, r=-1, s=-1
		L, err := cache.Lift(Key{Shape: Triangle, Order: 1}, Key{Shape: Interval, Order: 1})
		require.NoError(t, err)
		assert.True(t, nearVec([]float64{
			-1.5, -1.5, 2.5, 0.5, 2.5, 0.5,
			2.5, 0.5, -1.5, -1.5, 0.5, 2.5,
			0.5, 2.5, 0.5, 2.5, -1.5, -1.5,
		}, L.Data(), 1.e-12))
	}
	{ // Quadrature faces integrate the restricted basis exactly
		vol := Key{Shape: Triangle, Order: 3}
		E, err := cache.FaceMass(vol, Key{Shape: Interval, Order: 3})
		require.NoError(t, err)
		Eq, err := cache.FaceMass(vol, Key{Shape: Interval, Order: 6, Kind: QuadratureNodes})
		require.NoError(t, err)
		Iq, err := cache.Interpolation(Key{Shape: Interval, Order: 3}, Key{Shape: Interval, Order: 6, Kind: QuadratureNodes})
		require.NoError(t, err)
		nq, _ := Iq.Dims()
		for f := 0; f < 3; f++ {
			Ef := E.SliceCols(utils.NewRange(f*4, (f+1)*4))
			Eqf := Eq.SliceCols(utils.NewRange(f*nq, (f+1)*nq))
			assert.True(t, mat.EqualApprox(Eqf.Mul(Iq), Ef, 1.e-12))
		}
	}
}

func TestFaceRestriction(t *testing.T) {
	cache := NewOperatorCache()
	vol := Key{Shape: Triangle, Order: 3}
	face := Key{Shape: Interval, Order: 3}
	ref, _ := cache.Reference(vol)
	for f := 0; f < 3; f++ {
		R, err := cache.FaceRestriction(vol, face, f)
		require.NoError(t, err)
		// Warp & blend volume nodes contain the face nodes: rows are unit vectors
		nr, nc := R.Dims()
		assert.Equal(t, ref.Np, nc)
		for i := 0; i < nr; i++ {
			var ones, zeros int
			for _, v := range R.Row(i) {
				switch v {
				case 1:
					ones++
				case 0:
					zeros++
				}
			}
			assert.Equal(t, 1, ones)
			assert.Equal(t, nc-1, zeros)
		}
	}
	_, err := cache.FaceRestriction(vol, face, 3)
	assert.True(t, errors.Is(err, dof.ErrIncompatibleDiscretization))
	_, err = cache.FaceRestriction(vol, Key{Shape: Point}, 0)
	assert.True(t, errors.Is(err, dof.ErrIncompatibleDiscretization))
}

func TestOperatorCache(t *testing.T) {
	cache := NewOperatorCache()
	key := Key{Shape: Triangle, Order: 2}
	M1, err := cache.Mass(key)
	require.NoError(t, err)
	n := cache.Len()
	M2, err := cache.Mass(key)
	require.NoError(t, err)
	assert.Same(t, M1.M, M2.M)
	assert.Equal(t, n, cache.Len())
	assert.True(t, M1.IsReadOnly())
	assert.Panics(t, func() { M1.Scale(2) })

	// Nodal operators on quadrature groups are rejected
	qkey := Key{Shape: Triangle, Order: 4, Kind: QuadratureNodes}
	_, err = cache.Diff(qkey)
	assert.True(t, errors.Is(err, dof.ErrIncompatibleDiscretization))
	_, err = cache.QuadMass(key, Key{Shape: Triangle, Order: 3})
	assert.True(t, errors.Is(err, dof.ErrIncompatibleDiscretization))
	_, err = cache.Interpolation(key, Key{Shape: Interval, Order: 2})
	assert.True(t, errors.Is(err, dof.ErrIncompatibleDiscretization))
	_, err = QuadratureSimplexGroupFactory{Order: 2}.KeyFor(Quadrilateral)
	assert.True(t, errors.Is(err, dof.ErrUnsupportedShape))
}
