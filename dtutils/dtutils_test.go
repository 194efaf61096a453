package dtutils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/mesh"
)

func collection(t *testing.T, lo, hi []float64, n []int, order int) *discretization.Collection {
	m, err := mesh.GenerateRegularRectMesh(lo, hi, n, max(order, 1))
	require.NoError(t, err)
	dc, err := discretization.NewCollection(m, order)
	require.NoError(t, err)
	return dc
}

func values(a dof.Array) (v []float64) {
	for _, g := range a.Groups {
		v = append(v, g.Data()...)
	}
	return
}

func TestNonGeometricFactors(t *testing.T) {
	cases := []struct {
		name  string
		dim   int
		order int
		want  float64
	}{
		{"interval order 2", 1, 2, 1},
		{"interval order 0", 1, 0, 1},
		{"triangle order 1", 2, 1, 2},
		{"triangle order 0", 2, 0, 2 * math.Sqrt2 / 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lo, hi, n := []float64{0, 0}[:tc.dim], []float64{1, 1}[:tc.dim], []int{2, 2}[:tc.dim]
			dc := collection(t, lo, hi, n, tc.order)
			cng, err := NonGeometricFactors(dc, dof.DDVolume)
			require.NoError(t, err)
			require.Len(t, cng, 1)
			assert.InDelta(t, tc.want, cng[0], 1.e-14)
		})
	}
}

func TestGeometricFactors(t *testing.T) {
	dc := collection(t, []float64{0}, []float64{1}, []int{4}, 2)
	geo, err := GeometricFactors(dc, dof.DDVolume)
	require.NoError(t, err)
	for _, v := range values(geo) {
		assert.InDelta(t, 0.25, v, 1.e-14)
	}

	// Right triangles with legs 1/2: inradius (a + b - c) / 2
	dc = collection(t, []float64{0, 0}, []float64{1, 1}, []int{2, 2}, 3)
	geo, err = GeometricFactors(dc, dof.DDVolume)
	require.NoError(t, err)
	want := (1 - math.Sqrt2/2) / 2
	for _, v := range values(geo) {
		assert.InDelta(t, want, v, 1.e-13)
	}
	assert.True(t, geo.IsFrozen())
}

func TestMeshSize(t *testing.T) {
	dc := collection(t, []float64{0, 0}, []float64{1, 1}, []int{2, 2}, 2)
	hmax, err := HMaxFromVolume(dc, 0, dof.DDVolume)
	require.NoError(t, err)
	hmin, err := HMinFromVolume(dc, 0, dof.DDVolume)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(1./8), hmax, 1.e-14)
	assert.InDelta(t, hmax, hmin, 1.e-14)
	h1, err := HMaxFromVolume(dc, 1, dof.DDVolume)
	require.NoError(t, err)
	assert.InDelta(t, 1./8, h1, 1.e-14)

	m, err := mesh.GenerateRegularRectMesh([]float64{0, 0}, []float64{2, 1}, []int{2, 2}, 1)
	require.NoError(t, err)
	stretched, err := discretization.NewCollection(m, 1)
	require.NoError(t, err)
	hmax, _ = HMaxFromVolume(stretched, 0, dof.DDVolume)
	assert.InDelta(t, 0.5, hmax, 1.e-14)
}

func TestEstimateTimestep(t *testing.T) {
	dc := collection(t, []float64{0}, []float64{1}, []int{4}, 2)
	c := dc.VolumeDiscr().Ones().Scale(2)
	dt, err := EstimateTimestep(dc, c, 0.5)
	require.NoError(t, err)
	// cng = 1, element length 1/4, c = 2
	assert.InDelta(t, 0.0625, dt, 1.e-14)

	h, err := CharacteristicLengthscales(dc)
	require.NoError(t, err)
	again, _ := CharacteristicLengthscales(dc)
	assert.Same(t, &h.Groups[0].Data()[0], &again.Groups[0].Data()[0])

	// Faster waves give smaller steps
	dtFast, err := EstimateTimestep(dc, c.Scale(10), 0.5)
	require.NoError(t, err)
	assert.InDelta(t, dt/10, dtFast, 1.e-15)

	faces, _ := dc.DiscrFromDD(dof.DDAllFaces)
	_, err = EstimateTimestep(dc, faces.Ones(), 1)
	assert.ErrorIs(t, err, dof.ErrIncompatibleDiscretization)
}
