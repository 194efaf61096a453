// Package dtutils estimates stable explicit time steps from the reference
// node spacing and the element inradius.
package dtutils

import (
	"fmt"
	"math"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/op"
	"github.com/notargets/dgcore/utils"
)

// NonGeometricFactors returns, per element group of dd, the smallest distance
// between two unit nodes. Order 0 groups have a single node at the centroid
// and use its distance to a vertex.
func NonGeometricFactors(dc *discretization.Collection, dd dof.DOFDesc) ([]float64, error) {
	return discretization.Memoize(dc, "dt_non_geometric_factors", dd, func() (cng []float64, err error) {
		var d *discretization.Discretization
		if d, err = dc.DiscrFromDD(dd); err != nil {
			return
		}
		for _, g := range d.Groups {
			var (
				ref   = g.Ref
				dist  = math.Inf(1)
				point = func(i int) []float64 {
					p := make([]float64, ref.Dim)
					for ax := range p {
						p[ax] = ref.Nodes[ax][i]
					}
					return p
				}
			)
			if ref.Order == 0 {
				if ref.Np != 1 {
					err = fmt.Errorf("order 0 group %s has %d nodes", ref.Key, ref.Np)
					return
				}
				dist = distance(point(0), ref.Shape.UnitVertices()[0])
			} else {
				for i := 0; i < ref.Np; i++ {
					for j := i + 1; j < ref.Np; j++ {
						dist = math.Min(dist, distance(point(i), point(j)))
					}
				}
			}
			cng = append(cng, dist)
		}
		return
	})
}

func distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += (a[i] - b[i]) * (a[i] - b[i])
	}
	return math.Sqrt(sum)
}

// GeometricFactors returns the inradius of every simplex of dd broadcast to
// its nodes, d V / sum of face areas. In one dimension it is the element
// length. Embedded meshes are accepted although the inradius is only a
// heuristic there.
func GeometricFactors(dc *discretization.Collection, dd dof.DOFDesc) (dof.Array, error) {
	return discretization.Memoize(dc, "dt_geometric_factors", dd, func() (r dof.Array, err error) {
		var (
			vol, faces *discretization.Discretization
			cellVols   dof.Array
			faceAreas  dof.Array
			ddFaces    = dof.DOFDesc{Domain: dof.DomainTag{Kind: dof.AllFaces}, Discr: dd.Discr}
			dim        = dc.Dim()
		)
		if vol, err = dc.DiscrFromDD(dd); err != nil {
			return
		}
		for _, g := range vol.Groups {
			if !g.Ref.Shape.IsSimplex() {
				err = fmt.Errorf("%w: geometric factors for %s", dof.ErrUnsupportedShape, g.Ref.Shape)
				return
			}
		}
		if cellVols, err = op.ElementwiseIntegral(dc, dd, vol.Ones()); err != nil {
			return
		}
		cellVols = cellVols.Abs()
		if dim == 1 {
			return dof.Freeze(cellVols, "dt geometric factors").View(), nil
		}
		if faces, err = dc.DiscrFromDD(ddFaces); err != nil {
			return
		}
		if faceAreas, err = op.ElementwiseIntegral(dc, ddFaces, faces.Ones()); err != nil {
			return
		}
		faceAreas = faceAreas.Abs()
		r = dof.ZerosLike(cellVols)
		for fi, fg := range faces.Groups {
			var (
				vg     = fg.VolumeGroup
				K      = vol.Groups[vg].NElements
				nfp    = fg.Np()
				nfaces = vol.Groups[vg].Ref.Shape.NumFaces()
				area   = make([]float64, K)
			)
			// Sum over faces and face nodes; every node of a face carries
			// the full face area.
			for f := 0; f < nfaces; f++ {
				for e := 0; e < K; e++ {
					for _, v := range faceAreas.Groups[fi].Col(f*K + e) {
						area[e] += v
					}
				}
			}
			np, _ := cellVols.Groups[vg].Dims()
			cv := cellVols.Groups[vg]
			r.Groups[vg] = utils.NewMatrixFromFunc(np, K, func(i, e int) float64 {
				return float64(dim) * cv.At(i, e) / (area[e] / float64(nfp))
			})
		}
		return dof.Freeze(r, "dt geometric factors").View(), nil
	})
}

// CharacteristicLengthscales is the product of the non-geometric and
// geometric factors at every node of the volume discretization.
func CharacteristicLengthscales(dc *discretization.Collection) (dof.Array, error) {
	return discretization.Memoize(dc, "characteristic_lengthscales", dof.DDVolume, func() (h dof.Array, err error) {
		var (
			cng []float64
			geo dof.Array
		)
		if cng, err = NonGeometricFactors(dc, dof.DDVolume); err != nil {
			return
		}
		if geo, err = GeometricFactors(dc, dof.DDVolume); err != nil {
			return
		}
		h = geo.Copy()
		for gi := range h.Groups {
			h.Groups[gi].Scale(cng[gi])
		}
		return dof.Freeze(h, "characteristic lengthscales").View(), nil
	})
}

func hFromVolume(dc *discretization.Collection, dd dof.DOFDesc, dim int,
	reduce func(*discretization.Collection, dof.DOFDesc, dof.Array) (float64, error)) (h float64, err error) {
	var (
		d           *discretization.Discretization
		m, elemVols dof.Array
	)
	if dim <= 0 {
		dim = dc.Dim()
	}
	if d, err = dc.DiscrFromDD(dd); err != nil {
		return
	}
	if m, err = op.Mass(dc, dd, d.Ones()); err != nil {
		return
	}
	if elemVols, err = op.ElementwiseSum(dc, dd, m); err != nil {
		return
	}
	if h, err = reduce(dc, dd, elemVols); err != nil {
		return
	}
	return math.Pow(h, 1/float64(dim)), nil
}

// HMaxFromVolume is the largest element volume raised to 1/dim. A dim of 0
// means the mesh dimension.
func HMaxFromVolume(dc *discretization.Collection, dim int, dd dof.DOFDesc) (float64, error) {
	return hFromVolume(dc, dd, dim, op.NodalMax)
}

func HMinFromVolume(dc *discretization.Collection, dim int, dd dof.DOFDesc) (float64, error) {
	return hFromVolume(dc, dd, dim, op.NodalMin)
}

// EstimateTimestep is cfl * min(h / c) over the volume nodes, where c is the
// local wave speed. h is the smallest reference node spacing scaled to the
// element, so it shrinks like 1/N^2 with the order N; explicit Runge-Kutta
// steppers are stable for cfl up to about 0.25.
func EstimateTimestep(dc *discretization.Collection, c dof.Array, cfl float64) (dt float64, err error) {
	var h dof.Array
	if h, err = CharacteristicLengthscales(dc); err != nil {
		return
	}
	if !h.SameShape(c) {
		err = fmt.Errorf("%w: wave speed does not match the volume discretization", dof.ErrIncompatibleDiscretization)
		return
	}
	if dt, err = op.NodalMin(dc, dof.DDVolume, h.Div(c.Abs())); err != nil {
		return
	}
	return cfl * dt, nil
}
