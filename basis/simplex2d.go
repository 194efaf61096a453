package basis

import (
	"math"

	"github.com/notargets/dgcore/utils"
)

// Nodes2D computes the (x, y) warp & blend nodes on the equilateral triangle
// for polynomial order N.
func Nodes2D(N int) (x, y []float64) {
	var (
		alpha float64
		Np    = (N + 1) * (N + 2) / 2
	)
	if N == 0 {
		return []float64{0}, []float64{0}
	}
	alpopt := []float64{
		0.0000, 0.0000, 1.4152, 0.1001, 0.2751,
		0.9800, 1.0999, 1.2832, 1.3648, 1.4773,
		1.4959, 1.5743, 1.5770, 1.6223, 1.6258,
	}
	if N < 16 {
		alpha = alpopt[N-1]
	} else {
		alpha = 5. / 3.
	}
	var (
		L1, L2, L3                = make([]float64, Np), make([]float64, Np), make([]float64, Np)
		d32, d13, d21             = make([]float64, Np), make([]float64, Np), make([]float64, Np)
		blend1, blend2, blend3    = make([]float64, Np), make([]float64, Np), make([]float64, Np)
		warpf1, warpf2, warpf3    []float64
		cos23, cos43, sin23, sin43 = math.Cos(2*math.Pi/3), math.Cos(4*math.Pi/3), math.Sin(2*math.Pi/3), math.Sin(4*math.Pi/3)
	)
	x, y = make([]float64, Np), make([]float64, Np)
	// Create equidistributed nodes on equilateral triangle
	fn := 1. / float64(N)
	var sk int
	for n := 0; n < N+1; n++ {
		for m := 0; m < (N + 1 - n); m++ {
			L1[sk] = float64(n) * fn
			L3[sk] = float64(m) * fn
			sk++
		}
	}
	for i := range x {
		L2[i] = 1 - L1[i] - L3[i]
		x[i] = L3[i] - L2[i]
		y[i] = (2*L1[i] - L3[i] - L2[i]) / math.Sqrt(3)
		// Blending function at each node for each edge
		blend1[i] = 4 * L2[i] * L3[i]
		blend2[i] = 4 * L1[i] * L3[i]
		blend3[i] = 4 * L1[i] * L2[i]
		d32[i], d13[i], d21[i] = L3[i]-L2[i], L1[i]-L3[i], L2[i]-L1[i]
	}
	// Amount of warp for each node, for each edge
	warpf1, warpf2, warpf3 = Warpfactor(N, d32), Warpfactor(N, d13), Warpfactor(N, d21)
	for i := range x {
		warp1 := blend1[i] * warpf1[i] * (1 + utils.POW(alpha*L1[i], 2))
		warp2 := blend2[i] * warpf2[i] * (1 + utils.POW(alpha*L2[i], 2))
		warp3 := blend3[i] * warpf3[i] * (1 + utils.POW(alpha*L3[i], 2))
		x[i] += warp1 + cos23*warp2 + cos43*warp3
		y[i] += sin23*warp2 + sin43*warp3
	}
	return
}

// Warpfactor computes the scaled warp function at rout, the difference
// between Gauss-Lobatto and equidistant interpolation.
func Warpfactor(N int, rout []float64) (warpF []float64) {
	var (
		Nr   = len(rout)
		Pmat = utils.NewMatrix(N+1, Nr)
	)
	LGLr := JacobiGL(0, 0, N)
	req := utils.Linspace(-1, 1, N+1)
	Veq := Vandermonde1D(N, req)
	// Evaluate Lagrange polynomial at rout
	for i := 0; i <= N; i++ {
		Pmat.M.SetRow(i, JacobiP(rout, 0, 0, i))
	}
	Lmat, err := Veq.Transpose().LUSolve(Pmat)
	if err != nil {
		panic(err)
	}
	diff := utils.NewMatrix(N+1, 1)
	for i := range req {
		diff.Set(i, 0, LGLr[i]-req[i])
	}
	warp := Lmat.Transpose().Mul(diff).Data()
	warpF = make([]float64, Nr)
	for i, r := range rout {
		if math.Abs(r) < 1.0-1.e-10 {
			warpF[i] = warp[i] / (1 - r*r)
		} else {
			warpF[i] = 0
		}
	}
	return
}

// XYtoRS maps the equilateral triangle to the reference (r, s) triangle.
func XYtoRS(x, y []float64) (r, s []float64) {
	r, s = make([]float64, len(x)), make([]float64, len(x))
	sr3 := math.Sqrt(3)
	for i := range x {
		l1 := (sr3*y[i] + 1) / 3
		l2 := (-3*x[i] - sr3*y[i] + 2) / 6
		l3 := (3*x[i] - sr3*y[i] + 2) / 6
		r[i] = -l2 + l3 - l1
		s[i] = -l2 - l3 + l1
	}
	return
}

// RStoAB collapses the reference triangle onto the square.
func RStoAB(r, s []float64) (a, b []float64) {
	a, b = make([]float64, len(r)), make([]float64, len(r))
	for i := range r {
		if s[i] != 1 {
			a[i] = 2*(1+r[i])/(1-s[i]) - 1
		} else {
			a[i] = -1
		}
		b[i] = s[i]
	}
	return
}

// Simplex2DP evaluates the orthonormal PKDO polynomial of order (i, j) on the
// simplex at collapsed coordinates (a, b).
func Simplex2DP(a, b []float64, i, j int) (P []float64) {
	var (
		h1 = JacobiP(a, 0, 0, i)
		h2 = JacobiP(b, float64(2*i+1), 0, j)
	)
	P = make([]float64, len(a))
	for ii := range a {
		P[ii] = math.Sqrt2 * h1[ii] * h2[ii] * utils.POW(1-b[ii], i)
	}
	return
}

// GradSimplex2DP returns the (r, s) derivatives of the modal basis (id, jd).
func GradSimplex2DP(a, b []float64, id, jd int) (dmodedr, dmodeds []float64) {
	var (
		fa  = JacobiP(a, 0, 0, id)
		dfa = GradJacobiP(a, 0, 0, id)
		gb  = JacobiP(b, float64(2*id+1), 0, jd)
		dgb = GradJacobiP(b, float64(2*id+1), 0, jd)
		n   = len(a)
		sc  = math.Pow(2, float64(id)+0.5)
	)
	dmodedr, dmodeds = make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		hb := 0.5 * (1 - b[i])
		dr := dfa[i] * gb[i]
		if id > 0 {
			dr *= utils.POW(hb, id-1)
		}
		ds := dfa[i] * gb[i] * 0.5 * (1 + a[i])
		if id > 0 {
			ds *= utils.POW(hb, id-1)
		}
		tmp := dgb[i] * utils.POW(hb, id)
		if id > 0 {
			tmp -= 0.5 * float64(id) * gb[i] * utils.POW(hb, id-1)
		}
		ds += fa[i] * tmp
		dmodedr[i], dmodeds[i] = dr*sc, ds*sc
	}
	return
}

// Vandermonde2D is the 2D Vandermonde matrix V[i,k] = phi_k(r_i, s_i) over the
// modes (i, j), i+j <= N, ordered with j varying fastest.
func Vandermonde2D(N int, r, s []float64) (V utils.Matrix) {
	var (
		Np   = (N + 1) * (N + 2) / 2
		a, b = RStoAB(r, s)
	)
	V = utils.NewMatrix(len(r), Np)
	var sk int
	for i := 0; i <= N; i++ {
		for j := 0; j <= N-i; j++ {
			V.M.SetCol(sk, Simplex2DP(a, b, i, j))
			sk++
		}
	}
	return
}

func GradVandermonde2D(N int, r, s []float64) (V2Dr, V2Ds utils.Matrix) {
	var (
		Np   = (N + 1) * (N + 2) / 2
		a, b = RStoAB(r, s)
	)
	V2Dr, V2Ds = utils.NewMatrix(len(r), Np), utils.NewMatrix(len(r), Np)
	var sk int
	for i := 0; i <= N; i++ {
		for j := 0; j <= N-i; j++ {
			ddr, dds := GradSimplex2DP(a, b, i, j)
			V2Dr.M.SetCol(sk, ddr)
			V2Ds.M.SetCol(sk, dds)
			sk++
		}
	}
	return
}
