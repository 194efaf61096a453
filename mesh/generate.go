package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/element"
	"github.com/notargets/dgcore/utils"
)

var axisNames = []string{"x", "y", "z"}

// GenerateRegularRectMesh builds a uniform mesh of [a,b] in one or two
// dimensions with n elements per axis. Rectangles are split into two
// positively oriented triangles. Boundary faces are tagged "-x", "+x", "-y"
// and "+y" by the side they lie on.
func GenerateRegularRectMesh(a, b []float64, n []int, order int) (m *Mesh, err error) {
	dim := len(a)
	if len(b) != dim || len(n) != dim {
		err = fmt.Errorf("inconsistent box description: %d, %d, %d", len(a), len(b), len(n))
		return
	}
	var (
		vertices [][]float64
		elements [][]int
		shape    element.Shape
	)
	switch dim {
	case 1:
		shape = element.Interval
		vertices = [][]float64{utils.Linspace(a[0], b[0], n[0]+1)}
		for k := 0; k < n[0]; k++ {
			elements = append(elements, []int{k, k + 1})
		}
	case 2:
		shape = element.Triangle
		var (
			xs  = utils.Linspace(a[0], b[0], n[0]+1)
			ys  = utils.Linspace(a[1], b[1], n[1]+1)
			nx  = n[0] + 1
			idx = func(i, j int) int { return i + j*nx }
		)
		vertices = [][]float64{make([]float64, 0), make([]float64, 0)}
		for j := range ys {
			for i := range xs {
				vertices[0] = append(vertices[0], xs[i])
				vertices[1] = append(vertices[1], ys[j])
			}
		}
		for j := 0; j < n[1]; j++ {
			for i := 0; i < n[0]; i++ {
				v00, v10, v01, v11 := idx(i, j), idx(i+1, j), idx(i, j+1), idx(i+1, j+1)
				elements = append(elements, []int{v00, v10, v01}, []int{v11, v01, v10})
			}
		}
	default:
		err = fmt.Errorf("%w: regular rect mesh in %d dimensions", dof.ErrUnsupportedShape, dim)
		return
	}
	var g *Group
	if g, err = MakeGroup(shape, order, elements, vertices); err != nil {
		return
	}
	tol := 1.e-10
	for d := 0; d < dim; d++ {
		tol = math.Min(tol, 1.e-10*(b[d]-a[d]))
	}
	tagger := func(fv [][]float64) (tags []dof.BoundaryTag) {
		for d := 0; d < dim; d++ {
			onLow, onHigh := true, true
			for _, x := range fv {
				onLow = onLow && math.Abs(x[d]-a[d]) < tol
				onHigh = onHigh && math.Abs(x[d]-b[d]) < tol
			}
			if onLow {
				tags = append(tags, dof.BoundaryTag("-"+axisNames[d]))
			}
			if onHigh {
				tags = append(tags, dof.BoundaryTag("+"+axisNames[d]))
			}
		}
		return
	}
	return NewMesh(vertices, []*Group{g}, tagger)
}

// GenerateEllipse builds a closed curve of n interval elements on the
// ellipse with semi-axes rx, ry, traversed counterclockwise. Nodes lie on
// the ellipse exactly.
func GenerateEllipse(rx, ry float64, n, order int) (m *Mesh, err error) {
	if n < 3 {
		err = fmt.Errorf("ellipse needs at least 3 elements, got %d", n)
		return
	}
	var (
		dTheta   = 2 * math.Pi / float64(n)
		vertices = [][]float64{make([]float64, n), make([]float64, n)}
		elements = make([][]int, n)
		r        = unitNodes(element.Interval, order)[0]
		np       = len(r)
	)
	for k := 0; k < n; k++ {
		vertices[0][k] = rx * math.Cos(float64(k)*dTheta)
		vertices[1][k] = ry * math.Sin(float64(k)*dTheta)
		elements[k] = []int{k, (k + 1) % n}
	}
	g := &Group{Shape: element.Interval, Order: order, VertexIndices: elements}
	g.Nodes = []utils.Matrix{
		utils.NewMatrixFromFunc(np, n, func(i, k int) float64 {
			return rx * math.Cos((float64(k)+0.5*(r[i]+1))*dTheta)
		}),
		utils.NewMatrixFromFunc(np, n, func(i, k int) float64 {
			return ry * math.Sin((float64(k)+0.5*(r[i]+1))*dTheta)
		}),
	}
	return NewMesh(vertices, []*Group{g}, nil)
}

// GenerateIcosphere builds a closed triangulated sphere of the given radius
// from an icosahedron refined the given number of times. Elements are
// oriented so that the right-hand normal points outward, and nodes are
// projected onto the sphere.
func GenerateIcosphere(radius float64, refinements, order int) (m *Mesh, err error) {
	tau := (1 + math.Sqrt(5)) / 2
	pts := [][]float64{
		{-1, tau, 0}, {1, tau, 0}, {-1, -tau, 0}, {1, -tau, 0},
		{0, -1, tau}, {0, 1, tau}, {0, -1, -tau}, {0, 1, -tau},
		{tau, 0, -1}, {tau, 0, 1}, {-tau, 0, -1}, {-tau, 0, 1},
	}
	tris := [][]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	project := func(x []float64) []float64 {
		nrm := math.Sqrt(x[0]*x[0] + x[1]*x[1] + x[2]*x[2])
		return []float64{radius * x[0] / nrm, radius * x[1] / nrm, radius * x[2] / nrm}
	}
	for i := range pts {
		pts[i] = project(pts[i])
	}
	for level := 0; level < refinements; level++ {
		mid := make(map[[2]int]int)
		midpoint := func(a, b int) int {
			key := [2]int{a, b}
			if a > b {
				key = [2]int{b, a}
			}
			if i, ok := mid[key]; ok {
				return i
			}
			pa, pb := pts[a], pts[b]
			pts = append(pts, project([]float64{pa[0] + pb[0], pa[1] + pb[1], pa[2] + pb[2]}))
			mid[key] = len(pts) - 1
			return len(pts) - 1
		}
		refined := make([][]int, 0, 4*len(tris))
		for _, t := range tris {
			ab, bc, ca := midpoint(t[0], t[1]), midpoint(t[1], t[2]), midpoint(t[2], t[0])
			refined = append(refined,
				[]int{t[0], ab, ca}, []int{t[1], bc, ab}, []int{t[2], ca, bc}, []int{ab, bc, ca})
		}
		tris = refined
	}
	vertices := [][]float64{make([]float64, len(pts)), make([]float64, len(pts)), make([]float64, len(pts))}
	for i, p := range pts {
		for d := 0; d < 3; d++ {
			vertices[d][i] = p[d]
		}
	}
	var g *Group
	if g, err = MakeGroup(element.Triangle, order, tris, vertices); err != nil {
		return
	}
	if m, err = NewMesh(vertices, []*Group{g}, nil); err != nil {
		return
	}
	return MapMesh(m, project), nil
}
