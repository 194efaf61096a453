package geometry

import (
	"fmt"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
)

func checkSurface(dc *discretization.Collection, dd dof.DOFDesc) error {
	if !dd.IsVolume() {
		return fmt.Errorf("%w: curvature requires a volume descriptor, got %s", dof.ErrGeometry, dd)
	}
	if amb, dim := dc.AmbientDim(), dc.Dim(); amb-dim > 1 || dim > 2 || dim == 0 {
		return fmt.Errorf("%w: curvature of a %d-manifold in %d dimensions", dof.ErrGeometry, dim, amb)
	}
	return nil
}

// SecondFundamentalForm is II[a][b] = n . d^2 x / dr_a dr_b on a surface of
// codimension one. It is computed on the interpolatory discretization and
// projected onto dd.
func SecondFundamentalForm(dc *discretization.Collection, dd dof.DOFDesc) ([][]dof.Array, error) {
	return discretization.Memoize(dc, "second_fundamental_form", dd, func() (II [][]dof.Array, err error) {
		if err = checkSurface(dc, dd); err != nil {
			return
		}
		if dc.IsVolumeFilling() {
			err = fmt.Errorf("%w: no second fundamental form on a volume-filling mesh", dof.ErrGeometry)
			return
		}
		var (
			base     = dd.WithDiscrTag(dof.DiscrTagBase)
			amb, dim = dc.AmbientDim(), dc.Dim()
			x, n     dof.Vector
			in       []dof.Array
		)
		if x, err = dc.Nodes(base); err != nil {
			return
		}
		if n, err = Normal(dc, base); err != nil {
			return
		}
		in = append(in, n...)
		for i := 0; i < amb; i++ {
			var dx []dof.Array
			if dx, err = dc.ReferenceDerivatives(base, x[i]); err != nil {
				return
			}
			for a := 0; a < dim; a++ {
				var ddx []dof.Array
				if ddx, err = dc.ReferenceDerivatives(base, dx[a]); err != nil {
					return
				}
				in = append(in, ddx...)
			}
		}
		// in holds n[i] then d2x_i/dr_a dr_b at amb + (i*dim+a)*dim + b
		out := nodewise(in, dim*dim, func(v, y []float64) {
			for a := 0; a < dim; a++ {
				for b := 0; b < dim; b++ {
					var sum float64
					for i := 0; i < amb; i++ {
						sum += v[i] * 0.5 * (v[amb+(i*dim+a)*dim+b] + v[amb+(i*dim+b)*dim+a])
					}
					y[a*dim+b] = sum
				}
			}
		})
		for k := range out {
			if out[k], err = dc.Project(base, dd, out[k]); err != nil {
				return
			}
			out[k] = freeze(out[k], fmt.Sprintf("II[%d] on %s", k, dd))
		}
		return unflatten(out, dim, dim), nil
	})
}

// ShapeOperator is S = -G^-1 II. Its eigenvalues are the principal
// curvatures with respect to the element normal.
func ShapeOperator(dc *discretization.Collection, dd dof.DOFDesc) ([][]dof.Array, error) {
	return discretization.Memoize(dc, "shape_operator", dd, func() (S [][]dof.Array, err error) {
		var G, II [][]dof.Array
		if II, err = SecondFundamentalForm(dc, dd); err != nil {
			return
		}
		if G, err = FirstFundamentalForm(dc, dd); err != nil {
			return
		}
		dim := len(G)
		in := append(flatten(G), flatten(II)...)
		out := nodewise(in, dim*dim, func(v, y []float64) {
			Ginv := make([]float64, dim*dim)
			invert(dim, v[:dim*dim], Ginv)
			ii := v[dim*dim:]
			for a := 0; a < dim; a++ {
				for b := 0; b < dim; b++ {
					var sum float64
					for c := 0; c < dim; c++ {
						sum += Ginv[a*dim+c] * ii[c*dim+b]
					}
					y[a*dim+b] = -sum
				}
			}
		})
		for k := range out {
			out[k] = freeze(out[k], fmt.Sprintf("S[%d] on %s", k, dd))
		}
		return unflatten(out, dim, dim), nil
	})
}

// SummedCurvature is the trace of the shape operator: 1/R on a circle and
// 2/R on a sphere of radius R with outward normals. It is zero on
// volume-filling meshes.
func SummedCurvature(dc *discretization.Collection, dd dof.DOFDesc) (dof.Array, error) {
	return discretization.Memoize(dc, "summed_curvature", dd, func() (H dof.Array, err error) {
		if dc.IsVolumeFilling() && dd.IsVolume() {
			var d *discretization.Discretization
			if d, err = dc.DiscrFromDD(dd); err != nil {
				return
			}
			return freeze(d.Zeros(), fmt.Sprintf("H on %s", dd)), nil
		}
		var S [][]dof.Array
		if S, err = ShapeOperator(dc, dd); err != nil {
			return
		}
		H = dof.ZerosLike(S[0][0])
		for a := range S {
			H = H.Add(S[a][a])
		}
		return freeze(H, fmt.Sprintf("H on %s", dd)), nil
	})
}
