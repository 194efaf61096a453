package op

import (
	"fmt"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/geometry"
	"github.com/notargets/dgcore/utils"
)

// FaceMass integrates data on all faces against the volume test functions,
// returning one value per node of the interpolatory volume discretization.
// dd must be an all-faces descriptor, on base or quadrature nodes.
func FaceMass[C dof.Container](dc *discretization.Collection, dd dof.DOFDesc, c C) (C, error) {
	return dof.MapErr(c, func(a dof.Array) (dof.Array, error) {
		return faceMass(dc, dd, a, false)
	})
}

// Lift is InverseMass applied to FaceMass, using the precomputed reference
// lift matrix of each group.
func Lift[C dof.Container](dc *discretization.Collection, dd dof.DOFDesc, c C) (C, error) {
	return dof.MapErr(c, func(a dof.Array) (dof.Array, error) {
		return faceMass(dc, dd, a, true)
	})
}

func faceMass(dc *discretization.Collection, dd dof.DOFDesc, a dof.Array, lift bool) (r dof.Array, err error) {
	var (
		faces, vol *discretization.Discretization
		J, Jvol    dof.Array
	)
	if dd.Domain.Kind != dof.AllFaces {
		err = fmt.Errorf("%w: face mass requires an all-faces descriptor, got %s", dof.ErrIncompatibleDiscretization, dd)
		return
	}
	if faces, err = checkField(dc, dd, a); err != nil {
		return
	}
	if vol, err = dc.DiscrFromDD(dof.DDVolume); err != nil {
		return
	}
	if J, err = geometry.AreaElement(dc, dd); err != nil {
		return
	}
	if lift {
		if Jvol, err = geometry.AreaElement(dc, dof.DDVolume); err != nil {
			return
		}
	}
	r = vol.Zeros()
	for fi, fg := range faces.Groups {
		var (
			vg     = vol.Groups[fg.VolumeGroup]
			E      utils.Matrix
			K      = vg.NElements
			nfp    = fg.Np()
			nfaces = vg.Ref.Shape.NumFaces()
		)
		if lift {
			E, err = dc.Cache().Lift(vg.Key(), fg.Key())
		} else {
			E, err = dc.Cache().FaceMass(vg.Key(), fg.Key())
		}
		if err != nil {
			return
		}
		// Stack the faces of each element into one column: row f*nfp+i of
		// element e holds node i of trace element f*K+e.
		X := J.Groups[fi].Copy().ElMul(a.Groups[fi])
		stacked := utils.NewMatrixFromFunc(nfaces*nfp, K, func(row, e int) float64 {
			f, i := row/nfp, row%nfp
			return X.At(i, f*K+e)
		})
		r.Groups[fg.VolumeGroup] = E.Mul(stacked)
		if lift {
			r.Groups[fg.VolumeGroup].ElDiv(Jvol.Groups[fg.VolumeGroup])
		}
	}
	return
}
