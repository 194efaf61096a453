package basis

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/dgcore/utils"
)

// JacobiGQ computes the N'th order Gauss quadrature points X and weights W
// associated with the Jacobi polynomial of type (alpha, beta) > -1.
func JacobiGQ(alpha, beta float64, N int) (X, W []float64) {
	if N == 0 {
		X = []float64{-(alpha - beta) / (alpha + beta + 2)}
		W = []float64{gamma0(alpha, beta)}
		return
	}
	var (
		n  = N + 1
		J  = mat.NewSymDense(n, nil)
		h1 = make([]float64, n)
	)
	for i := range h1 {
		h1[i] = 2*float64(i) + alpha + beta
	}
	// Form symmetric tridiagonal matrix from the recurrence
	for i := 0; i < n; i++ {
		J.SetSym(i, i, -(alpha*alpha-beta*beta)/(h1[i]+2)/h1[i])
	}
	if alpha+beta < 10*math.SmallestNonzeroFloat64 {
		J.SetSym(0, 0, 0)
	}
	for i := 0; i < N; i++ {
		ip1 := float64(i + 1)
		J.SetSym(i, i+1, 2/(h1[i]+2)*math.Sqrt(ip1*(ip1+alpha+beta)*(ip1+alpha)*(ip1+beta)/(h1[i]+1)/(h1[i]+3)))
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(J, true); !ok {
		panic("eigenvalue decomposition failed in JacobiGQ")
	}
	X = eig.Values(nil)
	var V mat.Dense
	eig.VectorsTo(&V)
	W = make([]float64, n)
	g0 := gamma0(alpha, beta)
	for j := range W {
		W[j] = utils.POW(V.At(0, j), 2) * g0
	}
	return
}

// JacobiGL computes the N'th order Gauss Lobatto quadrature points associated
// with the Jacobi polynomial of type (alpha, beta) > -1.
func JacobiGL(alpha, beta float64, N int) (X []float64) {
	switch N {
	case 0:
		return []float64{0}
	case 1:
		return []float64{-1, 1}
	}
	xint, _ := JacobiGQ(alpha+1, beta+1, N-2)
	X = make([]float64, 0, N+1)
	X = append(X, -1)
	X = append(X, xint...)
	X = append(X, 1)
	return
}

func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1
	return math.Pow(2, ab1) / ab1 * math.Gamma(alpha+1) * math.Gamma(beta+1) / math.Gamma(ab1)
}

// JacobiP evaluates the orthonormal Jacobi polynomial of type (alpha, beta)
// and order N at points r.
func JacobiP(r []float64, alpha, beta float64, N int) (p []float64) {
	var (
		Nc = len(r)
		PL = make([][]float64, N+1)
	)
	PL[0] = utils.ConstArray(Nc, 1/math.Sqrt(gamma0(alpha, beta)))
	if N == 0 {
		return PL[0]
	}
	g1 := (alpha + 1) * (beta + 1) / (alpha + beta + 3) * gamma0(alpha, beta)
	PL[1] = make([]float64, Nc)
	for i, x := range r {
		PL[1][i] = ((alpha+beta+2)*x/2 + (alpha-beta)/2) / math.Sqrt(g1)
	}
	aold := 2 / (2 + alpha + beta) * math.Sqrt((alpha+1)*(beta+1)/(alpha+beta+3))
	for i := 1; i < N; i++ {
		var (
			fi   = float64(i)
			h1   = 2*fi + alpha + beta
			anew = 2 / (h1 + 2) * math.Sqrt((fi+1)*(fi+1+alpha+beta)*(fi+1+alpha)*(fi+1+beta)/(h1+1)/(h1+3))
			bnew = -(alpha*alpha - beta*beta) / h1 / (h1 + 2)
		)
		PL[i+1] = make([]float64, Nc)
		for j, x := range r {
			PL[i+1][j] = 1 / anew * (-aold*PL[i-1][j] + (x-bnew)*PL[i][j])
		}
		aold = anew
	}
	return PL[N]
}

// GradJacobiP evaluates the derivative of the orthonormal Jacobi polynomial.
func GradJacobiP(r []float64, alpha, beta float64, N int) (p []float64) {
	if N == 0 {
		return make([]float64, len(r))
	}
	p = JacobiP(r, alpha+1, beta+1, N-1)
	fN := float64(N)
	scale := math.Sqrt(fN * (fN + alpha + beta + 1))
	for i := range p {
		p[i] *= scale
	}
	return
}

// Vandermonde1D is the generalized Vandermonde matrix V[i,j] = P_j(r_i).
func Vandermonde1D(N int, r []float64) (V utils.Matrix) {
	V = utils.NewMatrix(len(r), N+1)
	for j := 0; j <= N; j++ {
		V.M.SetCol(j, JacobiP(r, 0, 0, j))
	}
	return
}

func GradVandermonde1D(N int, r []float64) (Vr utils.Matrix) {
	Vr = utils.NewMatrix(len(r), N+1)
	for j := 0; j <= N; j++ {
		Vr.M.SetCol(j, GradJacobiP(r, 0, 0, j))
	}
	return
}
