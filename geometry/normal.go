package geometry

import (
	"fmt"
	"math"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/utils"
)

// Normal returns the unit normal on dd, one Array per ambient axis.
//
// On faces it is the outward normal of the element owning each face, mapped
// from the reference face normal through the inverse metric. On volume
// discretizations it exists only for manifolds of codimension one, where it
// is oriented by the element orientation.
func Normal(dc *discretization.Collection, dd dof.DOFDesc) (dof.Vector, error) {
	return discretization.Memoize(dc, "normal", dd, func() (n dof.Vector, err error) {
		var d *discretization.Discretization
		if d, err = dc.DiscrFromDD(dd); err != nil {
			return
		}
		if dd.IsVolume() {
			n, err = surfaceNormal(dc, d)
		} else {
			n, err = faceNormal(dc, d)
		}
		if err != nil {
			return
		}
		for ax := range n {
			n[ax] = freeze(n[ax], fmt.Sprintf("n%d on %s", ax, dd))
		}
		return
	})
}

func surfaceNormal(dc *discretization.Collection, d *discretization.Discretization) (n dof.Vector, err error) {
	var (
		amb, dim = d.AmbientDim, d.Dim
		J        [][]dof.Array
	)
	switch amb - dim {
	case 0:
		err = fmt.Errorf("%w: no normal on volume-filling %s", dof.ErrGeometry, d.DD)
		return
	case 1:
	default:
		err = fmt.Errorf("%w: normal of a %d-manifold in %d dimensions is not unique", dof.ErrGeometry, dim, amb)
		return
	}
	if dim == 0 {
		return dof.Vector{d.Ones()}, nil
	}
	if J, err = ForwardMetricDerivativeMatrix(dc, d.DD); err != nil {
		return
	}
	n = nodewise(flatten(J), amb, func(x, y []float64) {
		switch dim {
		case 1:
			// (ty, -tx)
			y[0], y[1] = x[1], -x[0]
		case 2:
			// x_r cross x_s, J is 3 x 2 row-major
			y[0] = x[2]*x[5] - x[4]*x[3]
			y[1] = x[4]*x[1] - x[0]*x[5]
			y[2] = x[0]*x[3] - x[2]*x[1]
		}
		normalize(y)
	})
	return
}

func faceNormal(dc *discretization.Collection, d *discretization.Discretization) (n dof.Vector, err error) {
	var (
		amb  = d.AmbientDim
		vdim = dc.Dim()
		R    [][]dof.Array
		nref = make([]dof.Array, vdim)
	)
	if R, err = InverseMetricDerivativeMatrix(dc, d.DD); err != nil {
		return
	}
	for j := range nref {
		nref[j] = d.Zeros()
	}
	for gi, g := range d.Groups {
		shape := dc.Mesh().Groups[g.VolumeGroup].Shape
		for k := 0; k < g.NElements; k++ {
			nf := shape.ReferenceFaceNormal(g.Faces[k])
			for j := range nref {
				col := utils.ConstArray(g.Np(), nf[j])
				nref[j].Groups[gi].AssignColumns(utils.Index{k}, utils.NewMatrix(g.Np(), 1, col))
			}
		}
	}
	in := append(flatten(R), nref...)
	n = nodewise(in, amb, func(x, y []float64) {
		nr := x[vdim*amb:]
		for i := 0; i < amb; i++ {
			y[i] = 0
			for j := 0; j < vdim; j++ {
				y[i] += x[j*amb+i] * nr[j]
			}
		}
		normalize(y)
	})
	return
}

func normalize(y []float64) {
	var norm float64
	for _, v := range y {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range y {
		y[i] /= norm
	}
}
