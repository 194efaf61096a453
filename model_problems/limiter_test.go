package model_problems

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/dgcore/dof"
)

func TestSlopeLimiterLinearData(t *testing.T) {
	dc := newCollection(t, []float64{0}, []float64{1}, []int{8}, 2)
	sl, err := NewSlopeLimiter(dc, 0)
	require.NoError(t, err)
	u := sample(t, dc, func(x []float64) float64 { return 2*x[0] + 1 })
	lim, err := sl.Limit(u)
	require.NoError(t, err)
	var (
		h        = 1. / 8
		before   = u.Groups[0]
		after    = lim.Groups[0]
		np, K    = after.Dims()
		averages = sl.Averages(u)
	)
	for k := 0; k < K; k++ {
		assert.InDelta(t, 2*sl.xc[k]+1, averages[k], 1.e-13)
		boundary := sl.xc[k] < h || sl.xc[k] > 1-h
		for i := 0; i < np; i++ {
			if boundary {
				// One-sided differences vanish, leaving the average.
				assert.InDelta(t, averages[k], after.At(i, k), 1.e-13)
			} else {
				assert.InDelta(t, before.At(i, k), after.At(i, k), 1.e-13)
			}
		}
	}
}

func TestSlopeLimiterStep(t *testing.T) {
	dc := newCollection(t, []float64{0}, []float64{1}, []int{8}, 2)
	sl, err := NewSlopeLimiter(dc, 20)
	require.NoError(t, err)
	u := sample(t, dc, func(x []float64) float64 {
		if x[0] < 0.45 {
			return 1
		}
		return 0
	})
	lim, err := sl.Limit(u)
	require.NoError(t, err)
	assert.InDeltaSlice(t, sl.Averages(u), sl.Averages(lim), 1.e-14)
	var changed bool
	for i, v := range flat(lim) {
		assert.GreaterOrEqual(t, v, -1.e-13)
		assert.LessOrEqual(t, v, 1+1.e-13)
		changed = changed || math.Abs(v-flat(u)[i]) > 1.e-8
	}
	assert.True(t, changed)
	// The input is not modified.
	assert.Equal(t, 1., u.Groups[0].At(0, 0))
}

func TestSlopeLimiterErrors(t *testing.T) {
	_, err := NewSlopeLimiter(newCollection(t, []float64{0, 0}, []float64{1, 1}, []int{1, 1}, 1), 0)
	assert.ErrorIs(t, err, dof.ErrNotImplemented)

	dc := newCollection(t, []float64{0}, []float64{1}, []int{4}, 0)
	sl, err := NewSlopeLimiter(dc, 0)
	require.NoError(t, err)
	u := sample(t, dc, func(x []float64) float64 { return x[0] * x[0] })
	lim, err := sl.Limit(u)
	require.NoError(t, err)
	assert.Equal(t, flat(u), flat(lim))
	assert.Equal(t, u.Groups[0].Row(0), sl.Averages(u))

	other := newCollection(t, []float64{0}, []float64{1}, []int{5}, 0)
	_, err = sl.Limit(other.VolumeDiscr().Ones())
	assert.ErrorIs(t, err, dof.ErrIncompatibleDiscretization)
}
