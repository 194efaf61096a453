package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

// Matrix wraps a dense gonum matrix with a read-only flag. Reference operators
// and memoized geometric factors are handed out read-only so that shared
// cache entries can never be modified in place.
type Matrix struct {
	M        *mat.Dense
	readOnly bool
	name     string
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v", nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		M:    m,
		name: "unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// NewMatrixFromFunc fills an nr x nc matrix with f(i, j).
func NewMatrixFromFunc(nr, nc int, f func(i, j int) float64) (R Matrix) {
	R = NewMatrix(nr, nc)
	data := R.RawMatrix().Data
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			data[i*nc+j] = f(i, j)
		}
	}
	return
}

func NewIdentity(n int) Matrix {
	return NewMatrixFromFunc(n, n, func(i, j int) float64 {
		if i == j {
			return 1
		}
		return 0
	})
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }
func (m Matrix) Data() []float64           { return m.M.RawMatrix().Data }
func (m Matrix) IsEmpty() bool             { return m.M == nil }
func (m Matrix) IsReadOnly() bool          { return m.readOnly }

// Chainable methods (extended)
func (m *Matrix) SetReadOnly(name ...string) Matrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		dataR  = make([]float64, nr*nc)
	)
	copy(dataR, m.Data())
	R = NewMatrix(nr, nc, dataR)
	return
}

func (m Matrix) Transpose() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		data   = m.Data()
	)
	R = NewMatrix(nc, nr)
	dataR := R.Data()
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			dataR[j*nr+i] = data[i*nc+j]
		}
	}
	return
}

func (m Matrix) Mul(A Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, ncM = m.Dims()
		nrA, ncA = A.Dims()
	)
	if ncM != nrA {
		panic(fmt.Errorf("dimension mismatch in Mul: [%d x %d] * [%d x %d]", nrM, ncM, nrA, ncA))
	}
	R = NewMatrix(nrM, ncA)
	R.M.Mul(m.M, A.M)
	return R
}

func (m Matrix) SliceRows(I Index) (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(len(I), nc)
	for iNew, i := range I {
		if i < 0 || i >= nr {
			panic(fmt.Errorf("row index out of bounds: index = %d, max_bounds = %d", i, nr-1))
		}
		R.M.SetRow(iNew, m.M.RawRowView(i))
	}
	return
}

func (m Matrix) SliceCols(I Index) (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		data   = m.Data()
		nI     = len(I)
	)
	R = NewMatrix(nr, nI)
	dataR := R.Data()
	for jNew, j := range I {
		if j < 0 || j >= nc {
			panic(fmt.Errorf("column index out of bounds: index = %d, max_bounds = %d", j, nc-1))
		}
		for i := 0; i < nr; i++ {
			dataR[i*nI+jNew] = data[i*nc+j]
		}
	}
	return
}

// AssignColumns writes column jA of A into column I[jA] of the receiver.
func (m Matrix) AssignColumns(I Index, A Matrix) Matrix { // Changes receiver
	var (
		nr, nc   = m.Dims()
		nrA, ncA = A.Dims()
		data     = m.Data()
		dataA    = A.Data()
	)
	m.checkWritable()
	if nrA != nr || ncA != len(I) {
		panic(fmt.Errorf("dimension mismatch in AssignColumns: [%d x %d] <- [%d x %d]", nr, len(I), nrA, ncA))
	}
	for jA, j := range I {
		for i := 0; i < nr; i++ {
			data[i*nc+j] = dataA[i*ncA+jA]
		}
	}
	return m
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

func (m Matrix) Add(A Matrix) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Add(m.M, A.M)
	return m
}

func (m Matrix) Subtract(A Matrix) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Sub(m.M, A.M)
	return m
}

func (m Matrix) Scale(a float64) Matrix { // Changes receiver
	m.checkWritable()
	data := m.Data()
	for i := range data {
		data[i] *= a
	}
	return m
}

func (m Matrix) AddScalar(a float64) Matrix { // Changes receiver
	m.checkWritable()
	data := m.Data()
	for i := range data {
		data[i] += a
	}
	return m
}

func (m Matrix) Apply(f func(float64) float64) Matrix { // Changes receiver
	m.checkWritable()
	data := m.Data()
	for i, val := range data {
		data[i] = f(val)
	}
	return m
}

func (m Matrix) Apply2(A Matrix, f func(float64, float64) float64) Matrix { // Changes receiver
	m.checkWritable()
	var (
		data  = m.Data()
		dataA = A.Data()
	)
	if len(data) != len(dataA) {
		panic(fmt.Errorf("dimension mismatch in Apply2: %d vs %d", len(data), len(dataA)))
	}
	for i := range data {
		data[i] = f(data[i], dataA[i])
	}
	return m
}

func (m Matrix) ElMul(A Matrix) Matrix { // Changes receiver
	return m.Apply2(A, func(a, b float64) float64 { return a * b })
}

func (m Matrix) ElDiv(A Matrix) Matrix { // Changes receiver
	return m.Apply2(A, func(a, b float64) float64 { return a / b })
}

func (m Matrix) Inverse() (R Matrix, err error) {
	var (
		nr, nc = m.Dims()
	)
	if nr != nc {
		err = fmt.Errorf("unable to invert non-square matrix [%d x %d]", nr, nc)
		return
	}
	R = m.Copy()
	iPiv := make([]int, nr)
	if ok := lapack64.Getrf(R.RawMatrix(), iPiv); !ok {
		err = fmt.Errorf("unable to invert, matrix is singular")
		return
	}
	work := make([]float64, nr*nc)
	if ok := lapack64.Getri(R.RawMatrix(), iPiv, work, nr*nc); !ok {
		err = fmt.Errorf("unable to invert, matrix is singular")
	}
	return
}

// LUSolve returns X with m*X = B.
func (m Matrix) LUSolve(B Matrix) (X Matrix, err error) {
	var lu mat.LU
	lu.Factorize(m.M)
	nr, nc := B.Dims()
	X = NewMatrix(nr, nc)
	if err = lu.SolveTo(X.M, false, B.M); err != nil {
		err = fmt.Errorf("LUSolve: %w", err)
	}
	return
}

func (m Matrix) Col(j int) (v []float64) {
	var (
		nr, nc = m.Dims()
		data   = m.Data()
	)
	v = make([]float64, nr)
	for i := range v {
		v[i] = data[i*nc+j]
	}
	return
}

func (m Matrix) Row(i int) (v []float64) {
	_, nc := m.Dims()
	v = make([]float64, nc)
	copy(v, m.M.RawRowView(i))
	return
}

func (m Matrix) Min() (min float64) {
	min = math.Inf(1)
	for _, val := range m.Data() {
		if val < min {
			min = val
		}
	}
	return
}

func (m Matrix) Max() (max float64) {
	max = math.Inf(-1)
	for _, val := range m.Data() {
		if val > max {
			max = val
		}
	}
	return
}

func (m Matrix) Sum() (sum float64) {
	for _, val := range m.Data() {
		sum += val
	}
	return
}

func (m Matrix) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m Matrix) String() string {
	return fmt.Sprintf("%s\n%v", m.name, mat.Formatted(m.M, mat.Squeeze()))
}
