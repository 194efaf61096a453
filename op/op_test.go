package op

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/geometry"
	"github.com/notargets/dgcore/mesh"
	"github.com/notargets/dgcore/utils"
)

func flat(a dof.Array) (v []float64) {
	for _, g := range a.Groups {
		v = append(v, g.Data()...)
	}
	return
}

// eval samples f at the nodes x.
func eval(x dof.Vector, f func(p []float64) float64) dof.Array {
	r := dof.ZerosLike(x[0])
	p := make([]float64, len(x))
	for gi, g := range r.Groups {
		data := g.Data()
		for i := range data {
			for ax := range x {
				p[ax] = x[ax].Groups[gi].Data()[i]
			}
			data[i] = f(p)
		}
	}
	return r
}

func newCollection(t *testing.T, m *mesh.Mesh, order int, opts ...discretization.Option) *discretization.Collection {
	dc, err := discretization.NewCollection(m, order, opts...)
	require.NoError(t, err)
	return dc
}

func rect(t *testing.T, n, order int, opts ...discretization.Option) *discretization.Collection {
	m, err := mesh.GenerateRegularRectMesh([]float64{0, 0}, []float64{1, 1}, []int{n, n}, order)
	require.NoError(t, err)
	return newCollection(t, m, order, opts...)
}

func TestProject(t *testing.T) {
	dc := rect(t, 2, 2)
	x, err := dc.Nodes(dof.DDVolume)
	require.NoError(t, err)
	same, err := Project(dc, dof.DDVolume, dof.DDVolume, x)
	require.NoError(t, err)
	assert.Same(t, &x[0].Groups[0].Data()[0], &same[0].Groups[0].Data()[0])

	s, err := Project(dc, dof.DDVolume, dof.DDAllFaces, dof.Scalar(3))
	require.NoError(t, err)
	assert.Equal(t, dof.Scalar(3), s)

	xf, err := Project(dc, dof.DDVolume, dof.DDAllFaces, x)
	require.NoError(t, err)
	want, _ := dc.Nodes(dof.DDAllFaces)
	for ax := range xf {
		assert.InDeltaSlice(t, flat(want[ax]), flat(xf[ax]), 1.e-14)
	}
}

func TestMassInverseRoundTrip(t *testing.T) {
	m, err := mesh.GenerateRegularRectMesh([]float64{-1, -1}, []float64{1, 1}, []int{3, 3}, 4)
	require.NoError(t, err)
	warped := mesh.MapMesh(m, func(x []float64) []float64 {
		return []float64{x[0] + 0.1*math.Sin(x[1]), x[1] + 0.05*math.Cos(2*x[0])}
	})
	ellipse, err := mesh.GenerateEllipse(2, 1, 12, 4)
	require.NoError(t, err)
	for _, m := range []*mesh.Mesh{m, warped, ellipse} {
		dc := newCollection(t, m, 4)
		x, _ := dc.Nodes(dof.DDVolume)
		f := eval(x, func(p []float64) float64 { return math.Sin(p[0]) * math.Exp(p[1]) })
		mf, err := Mass(dc, dof.DDVolume, f)
		require.NoError(t, err)
		back, err := InverseMass(dc, mf)
		require.NoError(t, err)
		assert.InDeltaSlice(t, flat(f), flat(back), 1.e-13)
	}

	dc := rect(t, 2, 2, discretization.WithQuadrature(4))
	ones := dc.VolumeDiscr().Ones()
	_, err = InverseMassDD(dc, dof.DDVolume, dof.DDAllFaces, ones)
	assert.ErrorIs(t, err, dof.ErrIncompatibleDiscretization)
	_, err = InverseMassDD(dc, dof.DDVolume.WithDiscrTag(dof.DiscrTagQuad), dof.DDVolume.WithDiscrTag(dof.DiscrTagQuad), ones)
	assert.ErrorIs(t, err, dof.ErrIncompatibleDiscretization)
	assert.Contains(t, err.Error(), "not well-defined")
}

func TestMassTrig(t *testing.T) {
	var (
		a, b  = -4 * math.Pi, 9 * math.Pi
		exact = 13 * math.Pi / 2
		order = 4
		sin2  = func(p []float64) float64 { return math.Pow(math.Sin(p[0]), 2) }
		dq    = dof.DDVolume.WithDiscrTag(dof.DiscrTagQuad)
	)
	cases := []struct {
		lo, hi []float64
		n      []int
		tol    float64
	}{
		{[]float64{a}, []float64{b}, []int{64}, 2.e-9},
		{[]float64{a, 0}, []float64{b, 1}, []int{64, 2}, 1.e-8},
	}
	for _, tc := range cases {
		m, err := mesh.GenerateRegularRectMesh(tc.lo, tc.hi, tc.n, order)
		require.NoError(t, err)
		dc := newCollection(t, m, order, discretization.WithQuadrature(3*order))
		xq, err := dc.Nodes(dq)
		require.NoError(t, err)
		fq := eval(xq, sin2)

		integral, err := Integral(dc, dq, fq)
		require.NoError(t, err)
		assert.InDelta(t, exact, integral, tc.tol)

		// Mass from quadrature lands on the nodal basis, which sums to one
		mf, err := Mass(dc, dq, fq)
		require.NoError(t, err)
		total, err := NodalSum(dc, dof.DDVolume, mf)
		require.NoError(t, err)
		assert.InDelta(t, exact, total, tc.tol)
	}
}

func TestDivergenceTheorem(t *testing.T) {
	dc := rect(t, 4, 3)
	x, _ := dc.Nodes(dof.DDVolume)
	f := dof.Vector{
		eval(x, func(p []float64) float64 { return math.Sin(3*p[0]) + math.Cos(3*p[1]) }),
		eval(x, func(p []float64) float64 { return math.Sin(2*p[0]) + math.Cos(p[1]) }),
	}
	div, err := LocalDiv(dc, dof.DDVolume, f)
	require.NoError(t, err)
	volInt, err := Integral(dc, dof.DDVolume, div)
	require.NoError(t, err)

	bdry := dof.BoundaryDD(dof.BTagAll)
	fb, err := Project(dc, dof.DDVolume, bdry, f)
	require.NoError(t, err)
	n, err := geometry.Normal(dc, bdry)
	require.NoError(t, err)
	bdryInt, err := Integral(dc, bdry, dof.Dot(fb, n))
	require.NoError(t, err)
	assert.InDelta(t, volInt, bdryInt, 1.e-13)

	// Elementwise: M div f + S^T f = face integral of f.n, test function by
	// test function
	mdiv, err := Mass(dc, dof.DDVolume, div)
	require.NoError(t, err)
	weak, err := WeakLocalDiv(dc, dof.DDVolume, f)
	require.NoError(t, err)
	ff, err := Project(dc, dof.DDVolume, dof.DDAllFaces, f)
	require.NoError(t, err)
	nf, err := geometry.Normal(dc, dof.DDAllFaces)
	require.NoError(t, err)
	lift, err := FaceMass(dc, dof.DDAllFaces, dof.Dot(ff, nf))
	require.NoError(t, err)
	assert.InDeltaSlice(t, flat(lift), flat(mdiv.Add(weak)), 1.e-12)

	_, err = FaceMass(dc, dof.DDInteriorFaces, ff[0])
	assert.ErrorIs(t, err, dof.ErrIncompatibleDiscretization)
	_, err = LocalDdx(dc, dof.DDVolume, 2, f[0])
	assert.ErrorIs(t, err, dof.ErrIncompatibleDiscretization)
}

func TestWeakDerivativeQuadrature(t *testing.T) {
	// Weak derivatives of a polynomial agree on base and quadrature input
	dc := rect(t, 2, 3, discretization.WithQuadrature(8))
	dq := dof.DDVolume.WithDiscrTag(dof.DiscrTagQuad)
	poly := func(p []float64) float64 { return p[0]*p[0]*p[1] - 2*p[1] + 1 }
	x, _ := dc.Nodes(dof.DDVolume)
	xq, _ := dc.Nodes(dq)
	for ax := 0; ax < 2; ax++ {
		base, err := WeakLocalDdx(dc, dof.DDVolume, ax, eval(x, poly))
		require.NoError(t, err)
		quad, err := WeakLocalDdx(dc, dq, ax, eval(xq, poly))
		require.NoError(t, err)
		assert.InDeltaSlice(t, flat(base), flat(quad), 1.e-13)
	}
	_, err := WeakLocalGrad(dc, dof.DDAllFaces, dc.VolumeDiscr().Ones())
	assert.ErrorIs(t, err, dof.ErrIncompatibleDiscretization)
}

func TestLift(t *testing.T) {
	dc := rect(t, 3, 2)
	x, _ := dc.Nodes(dof.DDAllFaces)
	g := eval(x, func(p []float64) float64 { return p[0]*p[1] + 2*p[0] - 1 })
	fm, err := FaceMass(dc, dof.DDAllFaces, g)
	require.NoError(t, err)
	want, err := InverseMass(dc, fm)
	require.NoError(t, err)
	got, err := Lift(dc, dof.DDAllFaces, dof.Vector{g, g.Scale(2)})
	require.NoError(t, err)
	assert.InDeltaSlice(t, flat(want), flat(got[0]), 1.e-12)
	assert.InDeltaSlice(t, flat(want.Scale(2)), flat(got[1]), 1.e-12)

	_, err = Lift(dc, dof.DDInteriorFaces, g)
	assert.ErrorIs(t, err, dof.ErrIncompatibleDiscretization)
}

func TestQuadratureProjection(t *testing.T) {
	dc := rect(t, 2, 3, discretization.WithQuadrature(8))
	dq := dof.DDVolume.WithDiscrTag(dof.DiscrTagQuad)
	xq, _ := dc.Nodes(dq)

	onesQ, err := dc.Zeros(dq)
	require.NoError(t, err)
	ones, err := Project(dc, dq, dof.DDVolume, onesQ.AddScalar(1))
	require.NoError(t, err)
	require.NoError(t, dc.VolumeDiscr().CheckArray(ones))
	for _, v := range flat(ones) {
		assert.InDelta(t, 1, v, 1.e-13)
	}

	// The projection has the moments of the quadrature data
	f := eval(xq, func(p []float64) float64 { return math.Sin(3*p[0]) * math.Exp(p[1]) })
	proj, err := Project(dc, dq, dof.DDVolume, f)
	require.NoError(t, err)
	mq, err := Mass(dc, dq, f)
	require.NoError(t, err)
	mp, err := Mass(dc, dof.DDVolume, proj)
	require.NoError(t, err)
	assert.InDeltaSlice(t, flat(mq), flat(mp), 1.e-13)

	// An exact rule reproduces the nodal inverse mass
	byQuad, err := QuadratureInverseMass(dc, dof.DiscrTagQuad, mq)
	require.NoError(t, err)
	assert.InDeltaSlice(t, flat(proj), flat(byQuad), 1.e-10)
	_, err = QuadratureInverseMass(dc, "missing", mq)
	assert.ErrorIs(t, err, dof.ErrMissingGroupFactory)
}

func TestDerivativeConvergence(t *testing.T) {
	var (
		order = 3
		eoc   = utils.NewEOCRecorder("d/dx sin(3x)")
	)
	for _, n := range []int{4, 8, 16} {
		dc := rect(t, n, order)
		x, _ := dc.Nodes(dof.DDVolume)
		f := eval(x, func(p []float64) float64 { return math.Sin(3 * p[0]) })
		df, err := LocalDdx(dc, dof.DDVolume, 0, f)
		require.NoError(t, err)
		exact := eval(x, func(p []float64) float64 { return 3 * math.Cos(3*p[0]) })
		errInf, err := Norm(dc, df.Sub(exact), math.Inf(1), dof.DDVolume)
		require.NoError(t, err)
		eoc.AddDataPoint(1/float64(n), errInf)
	}
	t.Log(eoc)
	assert.True(t, eoc.Satisfied(float64(order), 0.25, 1.e-12), eoc.String())

	// Gradient and divergence are consistent
	dc := rect(t, 2, order)
	x, _ := dc.Nodes(dof.DDVolume)
	f := eval(x, func(p []float64) float64 { return p[0]*p[0] + p[0]*p[1] })
	grad, err := LocalGrad(dc, dof.DDVolume, f)
	require.NoError(t, err)
	lap, err := LocalDiv(dc, dof.DDVolume, grad)
	require.NoError(t, err)
	for _, v := range flat(lap) {
		assert.InDelta(t, 2, v, 1.e-11)
	}
}

func TestSurfaceDivergence(t *testing.T) {
	var (
		order = 3
		eoc   = utils.NewEOCRecorder("surface divergence")
	)
	for _, ref := range []int{1, 2, 3} {
		m, err := mesh.GenerateIcosphere(1, ref, order)
		require.NoError(t, err)
		dc := newCollection(t, m, order)
		x, _ := dc.Nodes(dof.DDVolume)
		f := dof.Vector{
			eval(x, func(p []float64) float64 { return math.Sin(3*p[1]) + math.Cos(3*p[0]) + 1 }),
			eval(x, func(p []float64) float64 { return math.Sin(2*p[0]) + math.Cos(p[1]) }),
			eval(x, func(p []float64) float64 { return 3*math.Cos(p[0]/2) + math.Cos(p[1]) }),
		}
		div, err := LocalDiv(dc, dof.DDVolume, f)
		require.NoError(t, err)
		lhs, err := Integral(dc, dof.DDVolume, div)
		require.NoError(t, err)
		H, err := geometry.SummedCurvature(dc, dof.DDVolume)
		require.NoError(t, err)
		n, err := geometry.Normal(dc, dof.DDVolume)
		require.NoError(t, err)
		rhs, err := Integral(dc, dof.DDVolume, H.Mul(dof.Dot(f, n)))
		require.NoError(t, err)
		eoc.AddDataPoint(math.Pow(2, -float64(ref)), math.Abs(lhs-rhs))
	}
	t.Log(eoc)
	assert.True(t, eoc.Satisfied(float64(order)-0.5, 0.5, 1.e-12), eoc.String())
}

func TestReductions(t *testing.T) {
	dc := rect(t, 2, 2, discretization.WithQuadrature(4))
	vol := dc.VolumeDiscr()
	ones := vol.Ones()

	x, _ := dc.Nodes(dof.DDVolume)
	sum, err := NodalSum(dc, dof.DDVolume, x[0])
	require.NoError(t, err)
	assert.InDelta(t, reduce(x[0], 0, func(a, v float64) float64 { return a + v }), sum, 1.e-14)
	lo, err := NodalMin(dc, dof.DDVolume, x[0])
	require.NoError(t, err)
	hi, err := NodalMax(dc, dof.DDVolume, x[0])
	require.NoError(t, err)
	assert.InDelta(t, 0., lo, 1.e-15)
	assert.InDelta(t, 1., hi, 1.e-15)

	// Every element has area 1/8
	areas, err := ElementwiseIntegral(dc, dof.DDVolume, ones)
	require.NoError(t, err)
	for _, v := range flat(areas) {
		assert.InDelta(t, 1./8, v, 1.e-14)
	}
	dq := dof.DDVolume.WithDiscrTag(dof.DiscrTagQuad)
	dqDiscr, _ := dc.DiscrFromDD(dq)
	areasQ, err := ElementwiseIntegral(dc, dq, dqDiscr.Ones())
	require.NoError(t, err)
	for _, v := range flat(areasQ) {
		assert.InDelta(t, 1./8, v, 1.e-14)
	}

	// Elementwise max broadcasts to all nodes of the element
	emax, err := ElementwiseMax(dc, dof.DDVolume, x[0])
	require.NoError(t, err)
	emin, err := ElementwiseMin(dc, dof.DDVolume, x[0])
	require.NoError(t, err)
	g, gmin := emax.Groups[0], emin.Groups[0]
	for e := 0; e < vol.NumElements(); e++ {
		col := x[0].Groups[0].Col(e)
		for i := range col {
			assert.GreaterOrEqual(t, g.At(i, e), col[i])
			assert.LessOrEqual(t, gmin.At(i, e), col[i])
		}
	}
	esum, err := ElementwiseSum(dc, dof.DDVolume, ones)
	require.NoError(t, err)
	for _, v := range flat(esum) {
		assert.Equal(t, 6., v)
	}

	l2, err := Norm(dc, ones, 2, dof.DDVolume)
	require.NoError(t, err)
	assert.InDelta(t, 1, l2, 1.e-14)
	l2v, err := Norm(dc, dof.Vector{ones, ones.Scale(2)}, 2, dof.DDVolume)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5), l2v, 1.e-14)
	linf, err := Norm(dc, x[0].AddScalar(-2), math.Inf(1), dof.DDVolume)
	require.NoError(t, err)
	assert.InDelta(t, 2, linf, 1.e-15)
	_, err = Norm(dc, ones, 1, dof.DDVolume)
	assert.ErrorIs(t, err, dof.ErrNotImplemented)
	assert.Contains(t, err.Error(), "1")

	_, err = NodalSum(dc, dof.DDAllFaces, ones)
	assert.ErrorIs(t, err, dof.ErrIncompatibleDiscretization)
}

func TestEmptyBoundary(t *testing.T) {
	dc := rect(t, 2, 2)
	dd := dof.BoundaryDD(dof.BTagNone)
	d, err := dc.DiscrFromDD(dd)
	require.NoError(t, err)
	integral, err := Integral(dc, dd, d.Ones())
	require.NoError(t, err)
	assert.Equal(t, 0., integral)
	x, _ := dc.Nodes(dof.DDVolume)
	tp, err := BVTracePair(dc, dd, x[0], d.Zeros())
	require.NoError(t, err)
	assert.Equal(t, 0, tp.Int.NumDOFs())
}

func TestTracePairs(t *testing.T) {
	dc := rect(t, 2, 2, discretization.WithQuadrature(4))
	x, _ := dc.Nodes(dof.DDVolume)

	// Continuous fields agree across faces
	tp, err := InteriorTracePair(dc, x)
	require.NoError(t, err)
	assert.Equal(t, dof.DDInteriorFaces, tp.DD)
	for ax := range x {
		assert.InDeltaSlice(t, flat(tp.Int[ax]), flat(tp.Ext[ax]), 1.e-15)
		assert.InDeltaSlice(t, flat(tp.Int[ax]), flat(tp.Avg()[ax]), 1.e-15)
		for _, v := range flat(tp.Diff()[ax]) {
			assert.InDelta(t, 0, v, 1.e-15)
		}
	}

	// Element indices jump across every interior face
	idx := dof.ZerosLike(x[0])
	for e := 0; e < dc.VolumeDiscr().NumElements(); e++ {
		for i := 0; i < 6; i++ {
			idx.Groups[0].Set(i, e, float64(e))
		}
	}
	pairs, err := InteriorTracePairs(dc, idx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	for i, v := range flat(pairs[0].Diff()) {
		assert.NotZero(t, v, i)
	}

	// Quadrature pairs live on the quadrature trace
	tq, err := InteriorTracePair(dc, idx, dof.DiscrTagQuad)
	require.NoError(t, err)
	assert.Equal(t, dof.DDInteriorFaces.WithDiscrTag(dof.DiscrTagQuad), tq.DD)
	require.NoError(t, checkOn(dc, tq.DD, tq.Ext))

	bdry := dof.BoundaryDD("-x")
	ext := dof.Vector{dof.ZerosLike(x[0]), dof.ZerosLike(x[0])}
	_, err = BdryTracePair(dc, bdry, x, ext)
	assert.ErrorIs(t, err, dof.ErrIncompatibleDiscretization)
	bd, _ := dc.DiscrFromDD(bdry)
	bv, err := BVTracePair(dc, bdry, x, dof.Vector{bd.Zeros(), bd.Ones()})
	require.NoError(t, err)
	for _, v := range flat(bv.Int[0]) {
		assert.InDelta(t, 0, v, 1.e-15)
	}

	assert.Panics(t, func() {
		NewTracePair(bdry, dof.Vector{bd.Zeros()}, dof.Vector{bd.Zeros(), bd.Zeros()})
	})
}
