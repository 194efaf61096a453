package model_problems

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/mesh"
	"github.com/notargets/dgcore/op"
	"github.com/notargets/dgcore/utils"
)

func newCollection(t *testing.T, a, b []float64, n []int, order int) *discretization.Collection {
	m, err := mesh.GenerateRegularRectMesh(a, b, n, max(order, 1))
	require.NoError(t, err)
	dc, err := discretization.NewCollection(m, order)
	require.NoError(t, err)
	return dc
}

// sample evaluates f at the volume nodes.
func sample(t *testing.T, dc *discretization.Collection, f func(x []float64) float64) dof.Array {
	x, err := dc.Nodes(dof.DDVolume)
	require.NoError(t, err)
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

// energyRate is d/dt of the discrete energy sum_i w_i^T M w_i.
func energyRate(t *testing.T, dc *discretization.Collection, w, rhs dof.Vector) float64 {
	mw, err := op.Mass(dc, dof.DDVolume, w)
	require.NoError(t, err)
	rate, err := op.NodalSum(dc, dof.DDVolume, dof.Dot(mw, rhs))
	require.NoError(t, err)
	return 2 * rate
}

func smoothState(t *testing.T, dc *discretization.Collection) dof.Vector {
	return dof.Vector{
		sample(t, dc, func(x []float64) float64 { return math.Sin(3*x[0]) * math.Cos(2*x[1]) }),
		sample(t, dc, func(x []float64) float64 { return x[0] * x[1] }),
		sample(t, dc, func(x []float64) float64 { return x[0] - x[1]*x[1] + 1 }),
	}
}

func TestWaveEnergy(t *testing.T) {
	dc := newCollection(t, []float64{0, 0}, []float64{1, 1}, []int{3, 3}, 3)
	w := smoothState(t, dc)
	norm, err := op.Norm(dc, w, 2, dof.DDVolume)
	require.NoError(t, err)
	scale := norm * norm

	cases := []struct {
		name         string
		opts         []WaveOption
		conservative bool
	}{
		{"central dirichlet", []WaveOption{WithFlux(CentralFlux)}, true},
		{"central neumann", []WaveOption{WithFlux(CentralFlux), WithNeumann(dof.BTagAll)}, true},
		{"upwind dirichlet", nil, false},
		{"upwind radiation", []WaveOption{WithRadiation(dof.BTagAll)}, false},
		{"central mixed", []WaveOption{WithFlux(CentralFlux), WithDirichlet("-x", 0), WithDirichlet("+x", 0),
			WithNeumann("-y"), WithNeumann("+y"), WithNeumann(dof.BTagNone)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wave, err := NewWaveOperator(dc, 1, tc.opts...)
			require.NoError(t, err)
			rhs, err := wave.Operator(0, w)
			require.NoError(t, err)
			rate := energyRate(t, dc, w, rhs)
			if tc.conservative {
				assert.InDelta(t, 0, rate/scale, 1.e-11)
			} else {
				assert.Less(t, rate/scale, -1.e-6)
			}
		})
	}
}

func TestWaveConvergence1D(t *testing.T) {
	var (
		order  = 3
		tFinal = 0.5
		eoc    = utils.NewEOCRecorder("wave 1D standing mode")
	)
	exact := func(tt float64, x []float64) (u, v float64) {
		return math.Cos(math.Pi*tt) * math.Sin(math.Pi*x[0]), math.Sin(math.Pi*tt) * math.Cos(math.Pi*x[0])
	}
	for _, n := range []int{4, 8, 16} {
		dc := newCollection(t, []float64{0}, []float64{1}, []int{n}, order)
		wave, err := NewWaveOperator(dc, 1)
		require.NoError(t, err)
		w0 := dof.Vector{
			sample(t, dc, func(x []float64) float64 { u, _ := exact(0, x); return u }),
			sample(t, dc, func(x []float64) float64 { _, v := exact(0, x); return v }),
		}
		dt, err := wave.EstimateTimestep(0.2)
		require.NoError(t, err)
		w, err := Integrate(RK4Step[dof.Vector], wave.Operator, w0, 0, tFinal, dt, nil)
		require.NoError(t, err)
		want := dof.Vector{
			sample(t, dc, func(x []float64) float64 { u, _ := exact(tFinal, x); return u }),
			sample(t, dc, func(x []float64) float64 { _, v := exact(tFinal, x); return v }),
		}
		e, err := op.Norm(dc, dof.Sub(w, want), 2, dof.DDVolume)
		require.NoError(t, err)
		eoc.AddDataPoint(1/float64(n), e)
	}
	t.Log(eoc)
	assert.True(t, eoc.Satisfied(float64(order+1), 0.5, 1.e-12), eoc.String())
}

func TestWaveSource(t *testing.T) {
	dc := newCollection(t, []float64{0, 0}, []float64{1, 1}, []int{2, 2}, 2)
	w := smoothState(t, dc)
	src := sample(t, dc, func(x []float64) float64 { return x[0] + 2*x[1] })
	plain, err := NewWaveOperator(dc, 1)
	require.NoError(t, err)
	forced, err := NewWaveOperator(dc, 1, WithSource(func(float64) (dof.Array, error) { return src, nil }))
	require.NoError(t, err)
	a, err := plain.Operator(0, w)
	require.NoError(t, err)
	b, err := forced.Operator(0, w)
	require.NoError(t, err)
	diff := dof.Sub(b, a)
	for _, v := range [][]float64{flat(diff[1]), flat(diff[2])} {
		assert.InDeltaSlice(t, make([]float64, len(v)), v, 1.e-14)
	}
	assert.InDeltaSlice(t, flat(src), flat(diff[0]), 1.e-12)
}

func TestWaveErrors(t *testing.T) {
	dc := newCollection(t, []float64{0, 0}, []float64{1, 1}, []int{1, 1}, 1)
	_, err := NewWaveOperator(dc, 1, WithFlux("lax-wendroff"))
	assert.ErrorIs(t, err, dof.ErrNotImplemented)

	wave, err := NewWaveOperator(dc, -2)
	require.NoError(t, err)
	assert.Equal(t, 2., wave.MaxCharacteristicVelocity())
	_, err = wave.Operator(0, dof.Vector{dc.VolumeDiscr().Zeros()})
	assert.ErrorIs(t, err, dof.ErrIncompatibleDiscretization)
}

func TestWaveBoundaryCoverage(t *testing.T) {
	dc := newCollection(t, []float64{0, 0}, []float64{1, 1}, []int{2, 2}, 2)
	for name, opts := range map[string][]WaveOption{
		"one side":  {WithDirichlet("-x", 0)},
		"overlap":   {WithDirichlet(dof.BTagAll, 0), WithNeumann("-x")},
		"unknown":   {WithDirichlet(dof.BTagAll, 0), WithNeumann("-z")},
		"none only": {WithRadiation(dof.BTagNone)},
	} {
		_, err := NewWaveOperator(dc, 1, opts...)
		assert.ErrorIs(t, err, dof.ErrBoundaryCoverage, name)
	}
	_, err := NewWaveOperator(dc, 1, withBC(dof.BTagAll, WaveBC{Kind: "periodic"}))
	assert.ErrorIs(t, err, dof.ErrNotImplemented)

	// Dirichlet on every side tag is Dirichlet on the whole boundary
	w := smoothState(t, dc)
	all, err := NewWaveOperator(dc, 1)
	require.NoError(t, err)
	sides, err := NewWaveOperator(dc, 1,
		WithDirichlet("-x", 0), WithDirichlet("+x", 0), WithDirichlet("-y", 0), WithDirichlet("+y", 0))
	require.NoError(t, err)
	a, err := all.Operator(0, w)
	require.NoError(t, err)
	b, err := sides.Operator(0, w)
	require.NoError(t, err)
	for i := range a {
		assert.InDeltaSlice(t, flat(a[i]), flat(b[i]), 1.e-11)
	}
}

func TestVariableCoefficientWave(t *testing.T) {
	dc := newCollection(t, []float64{0, 0}, []float64{1, 1}, []int{2, 2}, 2)
	w := smoothState(t, dc)
	for _, opts := range [][]WaveOption{nil, {WithRadiation(dof.BTagAll)}, {WithFlux(CentralFlux)}} {
		constant, err := NewWaveOperator(dc, -2, opts...)
		require.NoError(t, err)
		field, err := NewVariableCoefficientWaveOperator(dc, dc.VolumeDiscr().Ones().Scale(-2), opts...)
		require.NoError(t, err)
		a, err := constant.Operator(0, w)
		require.NoError(t, err)
		b, err := field.Operator(0, w)
		require.NoError(t, err)
		for i := range a {
			assert.InDeltaSlice(t, flat(a[i]), flat(b[i]), 1.e-11)
		}
	}
	_, err := NewVariableCoefficientWaveOperator(dc, dof.Array{})
	assert.ErrorIs(t, err, dof.ErrIncompatibleDiscretization)

	// The discrete operator converges to (d(cv)/dx, d(cu)/dx) for a state
	// that meets the boundary condition.
	var (
		order = 3
		eoc   = utils.NewEOCRecorder("variable speed residual")
		speed = func(x []float64) float64 { return 1 + 0.5*x[0] }
	)
	for _, n := range []int{4, 8, 16} {
		dc := newCollection(t, []float64{0}, []float64{1}, []int{n}, order)
		wave, err := NewVariableCoefficientWaveOperator(dc, sample(t, dc, speed))
		require.NoError(t, err)
		assert.InDelta(t, 1.5, wave.MaxCharacteristicVelocity(), 1.e-14)
		state := dof.Vector{
			sample(t, dc, func(x []float64) float64 { return math.Sin(math.Pi * x[0]) }),
			sample(t, dc, func(x []float64) float64 { return math.Cos(math.Pi * x[0]) }),
		}
		rhs, err := wave.Operator(0, state)
		require.NoError(t, err)
		want := dof.Vector{
			sample(t, dc, func(x []float64) float64 {
				return 0.5*math.Cos(math.Pi*x[0]) - speed(x)*math.Pi*math.Sin(math.Pi*x[0])
			}),
			sample(t, dc, func(x []float64) float64 {
				return 0.5*math.Sin(math.Pi*x[0]) + speed(x)*math.Pi*math.Cos(math.Pi*x[0])
			}),
		}
		e, err := op.Norm(dc, dof.Sub(rhs, want), 2, dof.DDVolume)
		require.NoError(t, err)
		eoc.AddDataPoint(1/float64(n), e)
	}
	t.Log(eoc)
	assert.True(t, eoc.Satisfied(float64(order), 0.5, 1.e-10), eoc.String())
}

func flat(a dof.Array) (v []float64) {
	for _, g := range a.Groups {
		v = append(v, g.Data()...)
	}
	return
}
