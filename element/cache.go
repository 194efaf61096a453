package element

import (
	"fmt"
	"math"
	"sync"

	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/utils"
)

type opKind uint8

const (
	opVandermonde opKind = iota
	opInvVandermonde
	opMass
	opInvMass
	opDiff
	opStiffT
	opQuadMass
	opInterp
	opFaceRestrict
	opFaceMass
	opLift
	opL2Proj
	opDiffAt
	opQuadInvMass
)

var opNames = [...]string{
	"V", "Vinv", "M", "Minv", "D", "ST", "Mq", "I", "Rf", "Mf", "LIFT", "P", "Dx", "Mqinv",
}

// opKey identifies one cached operator. a is the output (or only) element,
// b the input element, face the reference face for face restrictions.
type opKey struct {
	kind opKind
	a, b Key
	face int
}

func (k opKey) String() string {
	return fmt.Sprintf("%s(%s,%s,%d)", opNames[k.kind], k.a, k.b, k.face)
}

// OperatorCache computes and memoizes reference operators. Entries are pure
// functions of their key, are frozen on insertion and are never replaced.
// Concurrent misses on one key may both compute; the first insert wins.
type OperatorCache struct {
	mu   sync.Mutex
	refs map[Key]*Reference
	ops  map[opKey][]utils.Matrix
}

func NewOperatorCache() *OperatorCache {
	return &OperatorCache{
		refs: make(map[Key]*Reference),
		ops:  make(map[opKey][]utils.Matrix),
	}
}

// Len is the number of cached operators.
func (c *OperatorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ops)
}

func (c *OperatorCache) Reference(key Key) (ref *Reference, err error) {
	var ok bool
	c.mu.Lock()
	ref, ok = c.refs[key]
	c.mu.Unlock()
	if ok {
		return
	}
	if ref, err = NewReference(key); err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prior, ok := c.refs[key]; ok {
		return prior, nil
	}
	c.refs[key] = ref
	return
}

func (c *OperatorCache) lookup(k opKey, compute func() ([]utils.Matrix, error)) ([]utils.Matrix, error) {
	c.mu.Lock()
	m, ok := c.ops[k]
	c.mu.Unlock()
	if ok {
		return m, nil
	}
	m, err := compute()
	if err != nil {
		return nil, err
	}
	for i := range m {
		m[i].SetReadOnly(fmt.Sprintf("%s[%d]", k, i))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prior, ok := c.ops[k]; ok {
		return prior, nil
	}
	c.ops[k] = m
	return m, nil
}

func (c *OperatorCache) lookup1(k opKey, compute func() (utils.Matrix, error)) (utils.Matrix, error) {
	m, err := c.lookup(k, func() ([]utils.Matrix, error) {
		r, err := compute()
		return []utils.Matrix{r}, err
	})
	if err != nil {
		return utils.Matrix{}, err
	}
	return m[0], nil
}

func (c *OperatorCache) unisolvent(key Key, what string) (ref *Reference, err error) {
	if ref, err = c.Reference(key); err != nil {
		return
	}
	if !ref.IsUnisolvent() {
		err = fmt.Errorf("%w: %s requires interpolatory nodes, got %s", dof.ErrIncompatibleDiscretization, what, key)
	}
	return
}

// Vandermonde is V[i,j] = phi_j(r_i) at the element's own nodes.
func (c *OperatorCache) Vandermonde(key Key) (utils.Matrix, error) {
	return c.lookup1(opKey{kind: opVandermonde, a: key}, func() (V utils.Matrix, err error) {
		var ref *Reference
		if ref, err = c.unisolvent(key, "Vandermonde"); err != nil {
			return
		}
		return ref.Vandermonde(ref.Nodes, ref.Np), nil
	})
}

func (c *OperatorCache) InverseVandermonde(key Key) (utils.Matrix, error) {
	return c.lookup1(opKey{kind: opInvVandermonde, a: key}, func() (Vinv utils.Matrix, err error) {
		var V utils.Matrix
		if V, err = c.Vandermonde(key); err != nil {
			return
		}
		return V.Inverse()
	})
}

// Mass is M = inv(V V^T).
func (c *OperatorCache) Mass(key Key) (utils.Matrix, error) {
	return c.lookup1(opKey{kind: opMass, a: key}, func() (M utils.Matrix, err error) {
		var Vinv utils.Matrix
		if Vinv, err = c.InverseVandermonde(key); err != nil {
			return
		}
		return Vinv.Transpose().Mul(Vinv), nil
	})
}

// InverseMass is V V^T.
func (c *OperatorCache) InverseMass(key Key) (utils.Matrix, error) {
	return c.lookup1(opKey{kind: opInvMass, a: key}, func() (Minv utils.Matrix, err error) {
		var V utils.Matrix
		if V, err = c.Vandermonde(key); err != nil {
			return
		}
		return V.Mul(V.Transpose()), nil
	})
}

// Diff returns one differentiation matrix per reference axis, D = Vr Vinv.
func (c *OperatorCache) Diff(key Key) ([]utils.Matrix, error) {
	return c.lookup(opKey{kind: opDiff, a: key}, func() (D []utils.Matrix, err error) {
		var (
			ref  *Reference
			Vinv utils.Matrix
		)
		if ref, err = c.unisolvent(key, "differentiation"); err != nil {
			return
		}
		if Vinv, err = c.InverseVandermonde(key); err != nil {
			return
		}
		for _, Vr := range ref.GradVandermonde(ref.Nodes) {
			D = append(D, Vr.Mul(Vinv))
		}
		return
	})
}

// DiffAt gives the reference derivatives of the nodal interpolant on from,
// evaluated at the nodes of to.
func (c *OperatorCache) DiffAt(from, to Key) ([]utils.Matrix, error) {
	return c.lookup(opKey{kind: opDiffAt, a: to, b: from}, func() (G []utils.Matrix, err error) {
		var refTo *Reference
		if from.Shape != to.Shape {
			err = fmt.Errorf("%w: cannot differentiate %s at the nodes of %s", dof.ErrIncompatibleDiscretization, from, to)
			return
		}
		if refTo, err = c.Reference(to); err != nil {
			return
		}
		return c.gradBasisAt(from, refTo.Nodes)
	})
}

// basisAt evaluates the nodal basis of the unisolvent element key at nodes,
// giving I[q,i] = l_i(x_q).
func (c *OperatorCache) basisAt(key Key, nodes [][]float64, np int) (I utils.Matrix, err error) {
	var (
		ref  *Reference
		Vinv utils.Matrix
	)
	if ref, err = c.unisolvent(key, "interpolation"); err != nil {
		return
	}
	if Vinv, err = c.InverseVandermonde(key); err != nil {
		return
	}
	return ref.Vandermonde(nodes, np).Mul(Vinv), nil
}

// gradBasisAt gives G_d[q,i] = d l_i / d r_d (x_q).
func (c *OperatorCache) gradBasisAt(key Key, nodes [][]float64) (G []utils.Matrix, err error) {
	var (
		ref  *Reference
		Vinv utils.Matrix
	)
	if ref, err = c.unisolvent(key, "differentiation"); err != nil {
		return
	}
	if Vinv, err = c.InverseVandermonde(key); err != nil {
		return
	}
	for _, Vr := range ref.GradVandermonde(nodes) {
		G = append(G, Vr.Mul(Vinv))
	}
	return
}

// Interpolation maps nodal values on from to nodal values on to.
func (c *OperatorCache) Interpolation(from, to Key) (utils.Matrix, error) {
	return c.lookup1(opKey{kind: opInterp, a: to, b: from}, func() (I utils.Matrix, err error) {
		var refTo *Reference
		if from.Shape != to.Shape {
			err = fmt.Errorf("%w: cannot interpolate %s to %s", dof.ErrIncompatibleDiscretization, from, to)
			return
		}
		if from == to {
			var ref *Reference
			if ref, err = c.unisolvent(from, "interpolation"); err != nil {
				return
			}
			return utils.NewIdentity(ref.Np), nil
		}
		if refTo, err = c.Reference(to); err != nil {
			return
		}
		return c.basisAt(from, refTo.Nodes, refTo.Np)
	})
}

// StiffnessTranspose returns, per reference axis, ST[i,j] = integral of
// d phi_i^out / d r times phi_j^in over the reference cell. With out == in
// this is D^T M; with quadrature input it is w_j d phi_i^out / d r (x_j).
func (c *OperatorCache) StiffnessTranspose(out, in Key) ([]utils.Matrix, error) {
	return c.lookup(opKey{kind: opStiffT, a: out, b: in}, func() (ST []utils.Matrix, err error) {
		var (
			refIn *Reference
		)
		if refIn, err = c.Reference(in); err != nil {
			return
		}
		if refIn.IsUnisolvent() {
			if out != in {
				err = fmt.Errorf("%w: stiffness between distinct nodal groups %s and %s",
					dof.ErrIncompatibleDiscretization, out, in)
				return
			}
			var (
				D []utils.Matrix
				M utils.Matrix
			)
			if D, err = c.Diff(in); err != nil {
				return
			}
			if M, err = c.Mass(in); err != nil {
				return
			}
			for _, Dd := range D {
				ST = append(ST, Dd.Transpose().Mul(M))
			}
			return
		}
		var G []utils.Matrix
		if G, err = c.gradBasisAt(out, refIn.Nodes); err != nil {
			return
		}
		for _, Gd := range G {
			ST = append(ST, weightedTranspose(Gd, refIn.Weights))
		}
		return
	})
}

// weightedTranspose returns R[i,q] = w_q A[q,i].
func weightedTranspose(A utils.Matrix, w []float64) utils.Matrix {
	nq, ni := A.Dims()
	return utils.NewMatrixFromFunc(ni, nq, func(i, q int) float64 { return w[q] * A.At(q, i) })
}

// QuadMass maps values on in to mass-weighted moments on out:
// Mq[i,q] = w_q l_i^out(x_q). With out == in it is the mass matrix.
func (c *OperatorCache) QuadMass(out, in Key) (utils.Matrix, error) {
	if out == in {
		return c.Mass(out)
	}
	return c.lookup1(opKey{kind: opQuadMass, a: out, b: in}, func() (Mq utils.Matrix, err error) {
		var (
			refIn *Reference
			I     utils.Matrix
		)
		if refIn, err = c.Reference(in); err != nil {
			return
		}
		if refIn.IsUnisolvent() {
			err = fmt.Errorf("%w: mass from %s to %s requires quadrature input", dof.ErrIncompatibleDiscretization, in, out)
			return
		}
		if I, err = c.basisAt(out, refIn.Nodes, refIn.Np); err != nil {
			return
		}
		return weightedTranspose(I, refIn.Weights), nil
	})
}

// L2Projection projects values on quadrature nodes in onto the nodal basis
// of out, Minv Mq.
func (c *OperatorCache) L2Projection(out, in Key) (utils.Matrix, error) {
	return c.lookup1(opKey{kind: opL2Proj, a: out, b: in}, func() (P utils.Matrix, err error) {
		var Minv, Mq utils.Matrix
		if Minv, err = c.InverseMass(out); err != nil {
			return
		}
		if Mq, err = c.QuadMass(out, in); err != nil {
			return
		}
		return Minv.Mul(Mq), nil
	})
}

// QuadratureInverseMass inverts the mass matrix of base assembled with the
// quadrature rule of quad, I^T W I. It equals InverseMass when the rule is
// exact for products of two basis functions.
func (c *OperatorCache) QuadratureInverseMass(base, quad Key) (utils.Matrix, error) {
	return c.lookup1(opKey{kind: opQuadInvMass, a: base, b: quad}, func() (Minv utils.Matrix, err error) {
		var Mq, I utils.Matrix
		if Mq, err = c.QuadMass(base, quad); err != nil {
			return
		}
		if I, err = c.Interpolation(base, quad); err != nil {
			return
		}
		return Mq.Mul(I).Inverse()
	})
}

// snap removes roundoff from entries that should be exactly 0 or 1, which
// keeps restrictions onto nodes that coincide with volume nodes exact.
func snap(m utils.Matrix) utils.Matrix {
	return m.Apply(func(x float64) float64 {
		switch {
		case math.Abs(x) < 1.e-13:
			return 0
		case math.Abs(x-1) < 1.e-13:
			return 1
		}
		return x
	})
}

// FaceRestriction interpolates volume nodal values of vol onto the nodes of
// face reference element face, placed on reference face f.
func (c *OperatorCache) FaceRestriction(vol, face Key, f int) (utils.Matrix, error) {
	return c.lookup1(opKey{kind: opFaceRestrict, a: face, b: vol, face: f}, func() (R utils.Matrix, err error) {
		var refFace *Reference
		if err = checkFacePair(vol, face, f); err != nil {
			return
		}
		if refFace, err = c.Reference(face); err != nil {
			return
		}
		nodes := vol.Shape.MapFaceToVolume(f, refFace.Nodes, refFace.Np)
		if R, err = c.basisAt(vol, nodes, refFace.Np); err != nil {
			return
		}
		return snap(R), nil
	})
}

func checkFacePair(vol, face Key, f int) error {
	if err := vol.Shape.Check(); err != nil {
		return err
	}
	if vol.Shape.FaceShape() != face.Shape {
		return fmt.Errorf("%w: %s is not a face of %s", dof.ErrIncompatibleDiscretization, face.Shape, vol.Shape)
	}
	if f < 0 || f >= vol.Shape.NumFaces() {
		return fmt.Errorf("%w: face %d of %s", dof.ErrIncompatibleDiscretization, f, vol.Shape)
	}
	return nil
}

// FaceMass is the Np_vol x (nfaces*Np_face) matrix of face integrals of
// volume basis functions against face basis functions, one column block per
// reference face. Face integrals are in face reference coordinates.
func (c *OperatorCache) FaceMass(vol, face Key) (utils.Matrix, error) {
	return c.lookup1(opKey{kind: opFaceMass, a: vol, b: face}, func() (E utils.Matrix, err error) {
		var (
			refVol, refFace *Reference
			nfaces          = vol.Shape.NumFaces()
		)
		if err = checkFacePair(vol, face, 0); err != nil {
			return
		}
		if refVol, err = c.unisolvent(vol, "face mass"); err != nil {
			return
		}
		if refFace, err = c.Reference(face); err != nil {
			return
		}
		E = utils.NewMatrix(refVol.Np, nfaces*refFace.Np)
		for f := 0; f < nfaces; f++ {
			var Ef utils.Matrix
			if Ef, err = c.faceMassBlock(refVol, refFace, f); err != nil {
				return
			}
			cols := utils.NewRange(f*refFace.Np, (f+1)*refFace.Np)
			E.AssignColumns(cols, Ef)
		}
		return
	})
}

func (c *OperatorCache) faceMassBlock(refVol, refFace *Reference, f int) (Ef utils.Matrix, err error) {
	if !refFace.IsUnisolvent() {
		// Quadrature faces: w_q l_i^vol(x_q)
		var R utils.Matrix
		if R, err = c.FaceRestriction(refVol.Key, refFace.Key, f); err != nil {
			return
		}
		return weightedTranspose(R, refFace.Weights), nil
	}
	var (
		quadKey     = Key{Shape: refFace.Shape, Order: refVol.Order + refFace.Order, Kind: QuadratureNodes}
		refQ        *Reference
		Ivol, Iface utils.Matrix
		nVol, nFace = refVol.Np, refFace.Np
	)
	if refQ, err = c.Reference(quadKey); err != nil {
		return
	}
	if Ivol, err = c.FaceRestriction(refVol.Key, quadKey, f); err != nil {
		return
	}
	if Iface, err = c.Interpolation(refFace.Key, quadKey); err != nil {
		return
	}
	Ef = utils.NewMatrixFromFunc(nVol, nFace, func(i, j int) (sum float64) {
		for q, w := range refQ.Weights {
			sum += w * Ivol.At(q, i) * Iface.At(q, j)
		}
		return
	})
	return
}

// Lift is Minv times the face mass matrix.
func (c *OperatorCache) Lift(vol, face Key) (utils.Matrix, error) {
	return c.lookup1(opKey{kind: opLift, a: vol, b: face}, func() (L utils.Matrix, err error) {
		var Minv, E utils.Matrix
		if Minv, err = c.InverseMass(vol); err != nil {
			return
		}
		if E, err = c.FaceMass(vol, face); err != nil {
			return
		}
		return Minv.Mul(E), nil
	})
}
