// Package geometry computes the geometric factors of the element mappings:
// metric terms, area elements, normals and curvature. Every quantity is
// memoized on the collection by descriptor and handed out read-only.
package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
)

func freeze(a dof.Array, name string) dof.Array {
	return dof.Freeze(a, name).View()
}

// nodewise evaluates f at every node of the identically laid out fields in,
// producing nout fields. f reads x[len(in)] and writes y[nout].
func nodewise(in []dof.Array, nout int, f func(x, y []float64)) (out []dof.Array) {
	out = make([]dof.Array, nout)
	for k := range out {
		out[k] = dof.ZerosLike(in[0])
	}
	var (
		x   = make([]float64, len(in))
		y   = make([]float64, nout)
		src = make([][]float64, len(in))
		dst = make([][]float64, nout)
	)
	for gi := range in[0].Groups {
		for k := range in {
			src[k] = in[k].Groups[gi].Data()
		}
		for k := range out {
			dst[k] = out[k].Groups[gi].Data()
		}
		for p := range src[0] {
			for k := range src {
				x[k] = src[k][p]
			}
			f(x, y)
			for k := range dst {
				dst[k][p] = y[k]
			}
		}
	}
	return
}

func flatten(m [][]dof.Array) (r []dof.Array) {
	for _, row := range m {
		r = append(r, row...)
	}
	return
}

func unflatten(r []dof.Array, nr, nc int) (m [][]dof.Array) {
	m = make([][]dof.Array, nr)
	for i := range m {
		m[i] = r[i*nc : (i+1)*nc]
	}
	return
}

// invert writes the inverse of the row-major n x n matrix a into r.
func invert(n int, a, r []float64) {
	switch n {
	case 1:
		r[0] = 1 / a[0]
	case 2:
		det := a[0]*a[3] - a[1]*a[2]
		r[0], r[1] = a[3]/det, -a[1]/det
		r[2], r[3] = -a[2]/det, a[0]/det
	default:
		var inv mat.Dense
		if err := inv.Inverse(mat.NewDense(n, n, append([]float64(nil), a...))); err != nil {
			for i := range r {
				r[i] = math.NaN()
			}
			return
		}
		copy(r, inv.RawMatrix().Data)
	}
}

func det(n int, a []float64) float64 {
	switch n {
	case 1:
		return a[0]
	case 2:
		return a[0]*a[3] - a[1]*a[2]
	}
	return mat.Det(mat.NewDense(n, n, append([]float64(nil), a...)))
}

// gram returns G = J^T J for the row-major amb x dim matrix J.
func gram(amb, dim int, J []float64) (G []float64) {
	G = make([]float64, dim*dim)
	for a := 0; a < dim; a++ {
		for b := 0; b < dim; b++ {
			for i := 0; i < amb; i++ {
				G[a*dim+b] += J[i*dim+a] * J[i*dim+b]
			}
		}
	}
	return
}

// ForwardMetricDerivativeMatrix returns J[i][j] = d x_i / d r_j on dd, where
// r are the reference coordinates of the elements of dd itself.
func ForwardMetricDerivativeMatrix(dc *discretization.Collection, dd dof.DOFDesc) ([][]dof.Array, error) {
	return discretization.Memoize(dc, "forward_metric", dd, func() (J [][]dof.Array, err error) {
		var (
			base = dd.WithDiscrTag(dof.DiscrTagBase)
			dx   [][]dof.Array
		)
		if dx, err = dc.MappingDerivatives(base); err != nil {
			return
		}
		J = make([][]dof.Array, len(dx))
		for i := range dx {
			J[i] = make([]dof.Array, len(dx[i]))
			for j := range dx[i] {
				if J[i][j], err = dc.Project(base, dd, dx[i][j]); err != nil {
					return
				}
				J[i][j] = freeze(J[i][j], fmt.Sprintf("dx%d/dr%d on %s", i, j, dd))
			}
		}
		return
	})
}

func ForwardMetricDerivative(dc *discretization.Collection, xyzAxis, rstAxis int, dd dof.DOFDesc) (a dof.Array, err error) {
	var J [][]dof.Array
	if J, err = ForwardMetricDerivativeMatrix(dc, dd); err != nil {
		return
	}
	if xyzAxis >= len(J) || rstAxis >= len(J[xyzAxis]) {
		err = fmt.Errorf("%w: no metric term dx%d/dr%d on %s", dof.ErrGeometry, xyzAxis, rstAxis, dd)
		return
	}
	return J[xyzAxis][rstAxis], nil
}

// FirstFundamentalForm is G = J^T J on dd.
func FirstFundamentalForm(dc *discretization.Collection, dd dof.DOFDesc) ([][]dof.Array, error) {
	return discretization.Memoize(dc, "first_fundamental_form", dd, func() (G [][]dof.Array, err error) {
		var J [][]dof.Array
		if J, err = ForwardMetricDerivativeMatrix(dc, dd); err != nil {
			return
		}
		if len(J) == 0 || len(J[0]) == 0 {
			err = fmt.Errorf("%w: no tangent space on %s", dof.ErrGeometry, dd)
			return
		}
		amb, dim := len(J), len(J[0])
		out := nodewise(flatten(J), dim*dim, func(x, y []float64) { copy(y, gram(amb, dim, x)) })
		for k := range out {
			out[k] = freeze(out[k], fmt.Sprintf("G[%d] on %s", k, dd))
		}
		return unflatten(out, dim, dim), nil
	})
}

// InverseMetricDerivativeMatrix returns R[j][i] = d r_j / d x_i of the volume
// mapping, projected onto dd. For manifolds embedded in a higher dimensional
// space this is the pseudo-inverse G^-1 J^T.
func InverseMetricDerivativeMatrix(dc *discretization.Collection, dd dof.DOFDesc) ([][]dof.Array, error) {
	return discretization.Memoize(dc, "inverse_metric", dd, func() (R [][]dof.Array, err error) {
		var (
			J        [][]dof.Array
			amb, dim = dc.AmbientDim(), dc.Dim()
		)
		if dim == 0 {
			err = fmt.Errorf("%w: inverse metric of a 0-dimensional mesh", dof.ErrGeometry)
			return
		}
		if J, err = ForwardMetricDerivativeMatrix(dc, dof.DDVolume); err != nil {
			return
		}
		out := nodewise(flatten(J), dim*amb, func(x, y []float64) {
			if amb == dim {
				invert(dim, x, y)
				return
			}
			var (
				G    = gram(amb, dim, x)
				Ginv = make([]float64, dim*dim)
			)
			invert(dim, G, Ginv)
			for a := 0; a < dim; a++ {
				for i := 0; i < amb; i++ {
					var sum float64
					for b := 0; b < dim; b++ {
						sum += Ginv[a*dim+b] * x[i*dim+b]
					}
					y[a*amb+i] = sum
				}
			}
		})
		for k := range out {
			if out[k], err = dc.Project(dof.DDVolume, dd, out[k]); err != nil {
				return
			}
			out[k] = freeze(out[k], fmt.Sprintf("dr%d/dx%d on %s", k/amb, k%amb, dd))
		}
		return unflatten(out, dim, amb), nil
	})
}

func InverseMetricDerivative(dc *discretization.Collection, rstAxis, xyzAxis int, dd dof.DOFDesc) (a dof.Array, err error) {
	var R [][]dof.Array
	if R, err = InverseMetricDerivativeMatrix(dc, dd); err != nil {
		return
	}
	if rstAxis >= len(R) || xyzAxis >= len(R[rstAxis]) {
		err = fmt.Errorf("%w: no metric term dr%d/dx%d on %s", dof.ErrGeometry, rstAxis, xyzAxis, dd)
		return
	}
	return R[rstAxis][xyzAxis], nil
}

// AreaElement is the ratio of physical to reference measure on dd: |det J|
// for volume-filling elements, sqrt(det G) for embedded ones and 1 on
// 0-dimensional faces.
func AreaElement(dc *discretization.Collection, dd dof.DOFDesc) (dof.Array, error) {
	return discretization.Memoize(dc, "area_element", dd, func() (a dof.Array, err error) {
		var (
			d *discretization.Discretization
			J [][]dof.Array
		)
		if d, err = dc.DiscrFromDD(dd); err != nil {
			return
		}
		name := fmt.Sprintf("area element on %s", dd)
		if d.Dim == 0 || len(d.Groups) == 0 {
			return freeze(d.Ones(), name), nil
		}
		if J, err = ForwardMetricDerivativeMatrix(dc, dd); err != nil {
			return
		}
		amb, dim := d.AmbientDim, d.Dim
		out := nodewise(flatten(J), 1, func(x, y []float64) {
			if amb == dim {
				y[0] = math.Abs(det(dim, x))
				return
			}
			y[0] = math.Sqrt(det(dim, gram(amb, dim, x)))
		})
		return freeze(out[0], name), nil
	})
}

func InverseFirstFundamentalForm(dc *discretization.Collection, dd dof.DOFDesc) ([][]dof.Array, error) {
	return discretization.Memoize(dc, "inverse_first_fundamental_form", dd, func() (Ginv [][]dof.Array, err error) {
		var G [][]dof.Array
		if G, err = FirstFundamentalForm(dc, dd); err != nil {
			return
		}
		dim := len(G)
		out := nodewise(flatten(G), dim*dim, func(x, y []float64) { invert(dim, x, y) })
		for k := range out {
			out[k] = freeze(out[k], fmt.Sprintf("Ginv[%d] on %s", k, dd))
		}
		return unflatten(out, dim, dim), nil
	})
}

// Pseudoscalar is the signed volume form of the mapping on dd: det J for
// volume-filling elements, negative on inverted ones. Embedded elements have
// no orientation relative to the ambient space and return the area element.
func Pseudoscalar(dc *discretization.Collection, dd dof.DOFDesc) (dof.Array, error) {
	return discretization.Memoize(dc, "pseudoscalar", dd, func() (a dof.Array, err error) {
		var (
			d *discretization.Discretization
			J [][]dof.Array
		)
		if d, err = dc.DiscrFromDD(dd); err != nil {
			return
		}
		if d.Dim != d.AmbientDim || len(d.Groups) == 0 {
			return AreaElement(dc, dd)
		}
		if J, err = ForwardMetricDerivativeMatrix(dc, dd); err != nil {
			return
		}
		dim := d.Dim
		out := nodewise(flatten(J), 1, func(x, y []float64) { y[0] = det(dim, x) })
		return freeze(out[0], fmt.Sprintf("pseudoscalar on %s", dd)), nil
	})
}
