package utils

import (
	"math"
)

// NODETOL is the distance below which two nodes are considered coincident.
const NODETOL = 1.e-12

type Index []int

func NewIndex(N int) (I Index) {
	return make(Index, N)
}

// NewRange returns [rmin, rmax).
func NewRange(rmin, rmax int) (r Index) {
	r = NewIndex(rmax - rmin)
	for i := range r {
		r[i] = rmin + i
	}
	return
}

func (I Index) Add(val int) (r Index) {
	r = NewIndex(len(I))
	for i, v := range I {
		r[i] = v + val
	}
	return
}

func ConstArray(N int, val float64) (v []float64) {
	v = make([]float64, N)
	for i := range v {
		v[i] = val
	}
	return
}

func Linspace(a, b float64, N int) (v []float64) {
	v = make([]float64, N)
	if N == 1 {
		v[0] = a
		return
	}
	h := (b - a) / float64(N-1)
	for i := range v {
		v[i] = a + float64(i)*h
	}
	v[N-1] = b
	return
}

func POW(x float64, pp int) (y float64) {
	var (
		p       = pp
		flipped bool
	)
	if pp > 8 || pp < -8 {
		goto MATHPOW
	}

	if p < 0 {
		p = -pp
		flipped = true
	}
	switch p {
	case 0:
		y = 1
	case 1:
		y = x
	case 2:
		y = x * x
	case 3:
		y = x * x * x
	case 4:
		y = x * x
		y = y * y
	case 5:
		y = x * x
		y = y * y * x
	case 6:
		y = x * x
		y = y * y * y
	case 7:
		y = x * x
		y = y * y * y * x
	case 8:
		y = x * x
		y = y * y * y * y
	}
	if flipped {
		y = 1. / y
	}
	return

MATHPOW:
	y = math.Pow(x, float64(p))
	return
}

// Factorial is used for simplex volumes.
func Factorial(n int) (f int) {
	f = 1
	for i := 2; i <= n; i++ {
		f *= i
	}
	return
}
