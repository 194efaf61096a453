package element

import (
	"fmt"

	"github.com/notargets/dgcore/basis"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/utils"
)

type NodeKind uint8

const (
	// WarpBlend nodes are interpolatory: one node per basis function.
	WarpBlend NodeKind = iota
	// QuadratureNodes are the nodes of a quadrature rule and carry weights.
	// They need not be unisolvent for the basis of the same order.
	QuadratureNodes
)

func (k NodeKind) String() string {
	if k == WarpBlend {
		return "WarpBlend"
	}
	return "Quadrature"
}

// Key identifies a reference element structurally. Groups with equal keys
// share every reference operator.
type Key struct {
	Shape Shape
	Order int
	Kind  NodeKind
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Shape, k.Kind, k.Order)
}

// Reference is a reference cell together with its unit nodes and its
// polynomial space.
type Reference struct {
	Key
	Dim     int
	Np      int
	Nmodes  int
	Nodes   [][]float64 // Nodes[axis][node]
	Weights []float64   // quadrature weights, nil for WarpBlend
}

// NewReference builds the unit nodes for key.
func NewReference(key Key) (ref *Reference, err error) {
	if err = key.Shape.Check(); err != nil {
		return
	}
	if key.Order < 0 {
		err = fmt.Errorf("negative order %d for %s", key.Order, key.Shape)
		return
	}
	ref = &Reference{Key: key, Dim: key.Shape.Dim(), Nmodes: NumModes(key.Shape, key.Order)}
	switch key.Kind {
	case WarpBlend:
		switch key.Shape {
		case Point:
			ref.Nodes = [][]float64{}
		case Interval:
			ref.Nodes = [][]float64{basis.JacobiGL(0, 0, key.Order)}
		case Triangle:
			r, s := basis.XYtoRS(basis.Nodes2D(key.Order))
			ref.Nodes = [][]float64{r, s}
		}
		ref.Np = ref.Nmodes
	case QuadratureNodes:
		var q basis.Rule
		switch key.Shape {
		case Point:
			q = basis.PointRule()
		case Interval:
			q = basis.LegendreGaussRule(key.Order)
		case Triangle:
			q = basis.StroudTriangleRule(key.Order)
		}
		ref.Nodes, ref.Weights = q.Nodes, q.Weights
		ref.Np = q.NumNodes()
	}
	return
}

// IsUnisolvent reports whether nodal interpolation is well-posed on the nodes.
func (ref *Reference) IsUnisolvent() bool { return ref.Kind == WarpBlend }

func NumModes(shape Shape, order int) int {
	switch shape {
	case Point:
		return 1
	case Interval:
		return order + 1
	case Triangle:
		return (order + 1) * (order + 2) / 2
	}
	return 0
}

// Vandermonde evaluates the orthonormal basis of the reference at nodes
// given as nodes[axis][i].
func (ref *Reference) Vandermonde(nodes [][]float64, np int) utils.Matrix {
	switch ref.Shape {
	case Interval:
		return basis.Vandermonde1D(ref.Order, nodes[0])
	case Triangle:
		return basis.Vandermonde2D(ref.Order, nodes[0], nodes[1])
	}
	return utils.NewMatrixFromFunc(np, 1, func(int, int) float64 { return 1 })
}

// GradVandermonde returns one matrix per reference axis.
func (ref *Reference) GradVandermonde(nodes [][]float64) []utils.Matrix {
	switch ref.Shape {
	case Interval:
		return []utils.Matrix{basis.GradVandermonde1D(ref.Order, nodes[0])}
	case Triangle:
		vr, vs := basis.GradVandermonde2D(ref.Order, nodes[0], nodes[1])
		return []utils.Matrix{vr, vs}
	}
	return nil
}

// GroupFactory selects the reference element used for cells of a given shape.
type GroupFactory interface {
	KeyFor(shape Shape) (Key, error)
}

// PolynomialWarpBlendGroupFactory builds interpolatory groups of the given
// order on warp & blend nodes.
type PolynomialWarpBlendGroupFactory struct {
	Order int
}

func (f PolynomialWarpBlendGroupFactory) KeyFor(shape Shape) (key Key, err error) {
	if err = shape.Check(); err != nil {
		return
	}
	return Key{Shape: shape, Order: f.Order, Kind: WarpBlend}, nil
}

// QuadratureSimplexGroupFactory builds groups on simplex quadrature nodes
// exact to the given order.
type QuadratureSimplexGroupFactory struct {
	Order int
}

func (f QuadratureSimplexGroupFactory) KeyFor(shape Shape) (key Key, err error) {
	if err = shape.Check(); err != nil {
		return
	}
	if !shape.IsSimplex() {
		err = fmt.Errorf("%w: quadrature groups require a simplex, got %s", dof.ErrUnsupportedShape, shape)
		return
	}
	return Key{Shape: shape, Order: f.Order, Kind: QuadratureNodes}, nil
}
