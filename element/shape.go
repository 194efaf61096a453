package element

import (
	"fmt"
	"math"

	"github.com/notargets/dgcore/dof"
)

// Shape is a reference cell. Faces of a simplex are numbered by the vertex
// they are opposite to.
type Shape uint8

const (
	Point Shape = iota
	Interval
	Triangle
	Tetrahedron
	Quadrilateral
	Hexahedron
)

func (s Shape) String() string {
	switch s {
	case Point:
		return "Point"
	case Interval:
		return "Interval"
	case Triangle:
		return "Triangle"
	case Tetrahedron:
		return "Tetrahedron"
	case Quadrilateral:
		return "Quadrilateral"
	case Hexahedron:
		return "Hexahedron"
	}
	return fmt.Sprintf("Shape(%d)", uint8(s))
}

func (s Shape) Dim() int {
	switch s {
	case Point:
		return 0
	case Interval:
		return 1
	case Triangle, Quadrilateral:
		return 2
	default:
		return 3
	}
}

func (s Shape) IsSimplex() bool {
	return s == Point || s == Interval || s == Triangle || s == Tetrahedron
}

// Check returns ErrUnsupportedShape for cells without reference operators.
func (s Shape) Check() error {
	switch s {
	case Point, Interval, Triangle:
		return nil
	}
	return fmt.Errorf("%w: %s", dof.ErrUnsupportedShape, s)
}

// SimplexForDim is the simplex of the given dimension.
func SimplexForDim(dim int) (Shape, error) {
	switch dim {
	case 0:
		return Point, nil
	case 1:
		return Interval, nil
	case 2:
		return Triangle, nil
	case 3:
		return Tetrahedron, fmt.Errorf("%w: %s", dof.ErrUnsupportedShape, Tetrahedron)
	}
	return Point, fmt.Errorf("%w: dimension %d", dof.ErrUnsupportedShape, dim)
}

// UnitVertices returns vertex coordinates as [vertex][axis].
func (s Shape) UnitVertices() [][]float64 {
	switch s {
	case Point:
		return [][]float64{{}}
	case Interval:
		return [][]float64{{-1}, {1}}
	case Triangle:
		return [][]float64{{-1, -1}, {1, -1}, {-1, 1}}
	}
	return nil
}

func (s Shape) NumVertices() int {
	switch s {
	case Point:
		return 1
	case Interval:
		return 2
	case Triangle:
		return 3
	case Tetrahedron, Quadrilateral:
		return 4
	}
	return 8
}

func (s Shape) NumFaces() int {
	switch s {
	case Point:
		return 0
	case Interval:
		return 2
	case Triangle:
		return 3
	case Tetrahedron, Quadrilateral:
		return 4
	}
	return 6
}

// FaceShape is the shape shared by every face of s.
func (s Shape) FaceShape() Shape {
	switch s {
	case Interval:
		return Point
	case Triangle, Quadrilateral:
		return Interval
	case Tetrahedron:
		return Triangle
	}
	return Quadrilateral
}

// FaceVertexIndices lists, per face, the vertex indices of the face in the
// order used to parametrize it.
func (s Shape) FaceVertexIndices() [][]int {
	switch s {
	case Interval:
		return [][]int{{1}, {0}}
	case Triangle:
		return [][]int{{1, 2}, {0, 2}, {0, 1}}
	}
	return nil
}

// ReferenceFaceNormal is the outward unit normal of face f on the reference
// cell.
func (s Shape) ReferenceFaceNormal(f int) []float64 {
	switch s {
	case Interval:
		// Even faces point along +r, odd along -r
		if f%2 == 0 {
			return []float64{1}
		}
		return []float64{-1}
	case Triangle:
		switch f {
		case 0:
			return []float64{1 / math.Sqrt2, 1 / math.Sqrt2}
		case 1:
			return []float64{-1, 0}
		case 2:
			return []float64{0, -1}
		}
	}
	return nil
}

// MapFaceToVolume maps reference face points (Nodes[axis][i] in face
// coordinates) onto face f of the reference cell.
func (s Shape) MapFaceToVolume(f int, faceNodes [][]float64, np int) (volNodes [][]float64) {
	var (
		verts = s.UnitVertices()
		fv    = s.FaceVertexIndices()[f]
		dim   = s.Dim()
	)
	volNodes = make([][]float64, dim)
	for d := range volNodes {
		volNodes[d] = make([]float64, np)
	}
	switch s {
	case Interval:
		for i := 0; i < np; i++ {
			volNodes[0][i] = verts[fv[0]][0]
		}
	case Triangle:
		a, b := verts[fv[0]], verts[fv[1]]
		for i := 0; i < np; i++ {
			lam := 0.5 * (faceNodes[0][i] + 1)
			for d := 0; d < dim; d++ {
				volNodes[d][i] = a[d] + lam*(b[d]-a[d])
			}
		}
	}
	return
}

// Volume is the measure of the reference cell.
func (s Shape) Volume() float64 {
	switch s {
	case Point:
		return 1
	case Interval, Triangle:
		return 2
	}
	return math.NaN()
}
