package mesh

import (
	"fmt"

	"github.com/james-bowman/sparse"

	"github.com/notargets/dgcore/basis"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/element"
	"github.com/notargets/dgcore/utils"
)

// Group is a batch of elements of one shape. Nodes holds the coordinates of
// the warp & blend nodes of order Order, one Np x K matrix per ambient axis.
type Group struct {
	Shape         element.Shape
	Order         int
	VertexIndices [][]int // [element][vertex]
	Nodes         []utils.Matrix
}

func (g *Group) NumElements() int { return len(g.VertexIndices) }

func (g *Group) Key() element.Key {
	return element.Key{Shape: g.Shape, Order: g.Order, Kind: element.WarpBlend}
}

// FaceID locates one face of one element.
type FaceID struct {
	Group, Element, Face int
}

// BoundaryTagger returns the tags of a boundary face given its vertex
// coordinates [vertex][axis].
type BoundaryTagger func(faceVertices [][]float64) []dof.BoundaryTag

// Mesh is an unstructured simplicial mesh, possibly embedded in a higher
// dimensional space.
type Mesh struct {
	Dim, AmbientDim int
	Vertices        [][]float64 // [axis][vertex]
	Groups          []*Group
	BoundaryTags    []dof.BoundaryTag

	neighbors [][][]FaceID // [group][element][face], Group == -1 on the boundary
	faceTags  map[FaceID][]dof.BoundaryTag
}

// NewMesh validates the groups and computes facial adjacency.
func NewMesh(vertices [][]float64, groups []*Group, tagger BoundaryTagger) (m *Mesh, err error) {
	if len(groups) == 0 {
		err = fmt.Errorf("mesh has no element groups")
		return
	}
	m = &Mesh{
		Dim:        groups[0].Shape.Dim(),
		AmbientDim: len(vertices),
		Vertices:   vertices,
		Groups:     groups,
		faceTags:   make(map[FaceID][]dof.BoundaryTag),
	}
	if m.AmbientDim > 3 || m.AmbientDim < m.Dim {
		err = fmt.Errorf("invalid ambient dimension %d for %d-dimensional mesh", m.AmbientDim, m.Dim)
		return
	}
	for _, g := range groups {
		if err = g.Shape.Check(); err != nil {
			return
		}
		if g.NumElements() == 0 {
			err = fmt.Errorf("empty element group of %s", g.Shape)
			return
		}
		if g.Shape.Dim() != m.Dim {
			err = fmt.Errorf("mixed dimensional groups: %s in %d-dimensional mesh", g.Shape, m.Dim)
			return
		}
		if len(g.Nodes) != m.AmbientDim {
			err = fmt.Errorf("group nodes have %d axes, vertices have %d", len(g.Nodes), m.AmbientDim)
			return
		}
	}
	if err = m.connect(); err != nil {
		return
	}
	m.tagBoundary(tagger)
	return
}

func (m *Mesh) NumElements() (n int) {
	for _, g := range m.Groups {
		n += g.NumElements()
	}
	return
}

func (m *Mesh) NumVertices() int { return len(m.Vertices[0]) }

// Neighbor returns the face across fid, or false on the boundary.
func (m *Mesh) Neighbor(fid FaceID) (FaceID, bool) {
	nb := m.neighbors[fid.Group][fid.Element][fid.Face]
	return nb, nb.Group >= 0
}

// FaceTags returns the boundary tags of a boundary face.
func (m *Mesh) FaceTags(fid FaceID) []dof.BoundaryTag {
	return m.faceTags[fid]
}

// HasTag reports whether boundary face fid belongs to tag.
func (m *Mesh) HasTag(fid FaceID, tag dof.BoundaryTag) bool {
	if _, interior := m.Neighbor(fid); interior {
		return false
	}
	switch tag {
	case dof.BTagAll:
		return true
	case dof.BTagNone:
		return false
	}
	for _, t := range m.faceTags[fid] {
		if t == tag {
			return true
		}
	}
	return false
}

// CheckBoundaryCoverage verifies that every boundary face belongs to exactly
// one of tags. BTagNone entries cover nothing; tags that the mesh does not
// know are rejected.
func (m *Mesh) CheckBoundaryCoverage(tags []dof.BoundaryTag) error {
	known := map[dof.BoundaryTag]bool{dof.BTagAll: true, dof.BTagNone: true}
	for _, t := range m.BoundaryTags {
		known[t] = true
	}
	for _, t := range tags {
		if !known[t] {
			return fmt.Errorf("%w: unknown boundary tag %q", dof.ErrBoundaryCoverage, t)
		}
	}
	for gi, g := range m.Groups {
		for k := 0; k < g.NumElements(); k++ {
			for f := 0; f < g.Shape.NumFaces(); f++ {
				fid := FaceID{Group: gi, Element: k, Face: f}
				if _, interior := m.Neighbor(fid); interior {
					continue
				}
				var covering []dof.BoundaryTag
				for _, t := range tags {
					if m.HasTag(fid, t) {
						covering = append(covering, t)
					}
				}
				switch {
				case len(covering) == 0:
					return fmt.Errorf("%w: face %v with tags %v is not covered",
						dof.ErrBoundaryCoverage, fid, m.FaceTags(fid))
				case len(covering) > 1:
					return fmt.Errorf("%w: face %v is covered by %v",
						dof.ErrBoundaryCoverage, fid, covering)
				}
			}
		}
	}
	return nil
}

// connect finds face neighbors from the sparse product of the face-to-vertex
// incidence with its transpose: two faces are neighbors when they share all
// of their vertices.
func (m *Mesh) connect() (err error) {
	var (
		offsets    = make([]int, len(m.Groups))
		totalFaces int
		faceOf     []FaceID
		nVertsFace []int
		nv         = m.NumVertices()
	)
	for gi, g := range m.Groups {
		offsets[gi] = totalFaces
		totalFaces += g.NumElements() * g.Shape.NumFaces()
	}
	SpFToV_Tmp := sparse.NewDOK(totalFaces, nv)
	faceOf, nVertsFace = make([]FaceID, totalFaces), make([]int, totalFaces)
	m.neighbors = make([][][]FaceID, len(m.Groups))
	for gi, g := range m.Groups {
		var (
			nf = g.Shape.NumFaces()
			fv = g.Shape.FaceVertexIndices()
		)
		m.neighbors[gi] = make([][]FaceID, g.NumElements())
		for k, verts := range g.VertexIndices {
			m.neighbors[gi][k] = make([]FaceID, nf)
			for f := 0; f < nf; f++ {
				sk := offsets[gi] + k*nf + f
				faceOf[sk] = FaceID{Group: gi, Element: k, Face: f}
				nVertsFace[sk] = len(fv[f])
				m.neighbors[gi][k][f] = FaceID{Group: -1, Element: -1, Face: -1}
				for _, lv := range fv[f] {
					SpFToV_Tmp.Set(sk, verts[lv], 1)
				}
			}
		}
	}
	SpFToF := sparse.NewCSR(totalFaces, totalFaces, nil, nil, nil)
	SpFToV := SpFToV_Tmp.ToCSR()
	SpFToF.Mul(SpFToV, SpFToV.T())
	SpFToF.DoNonZero(func(i, j int, v float64) {
		if err != nil || i == j || int(v) != nVertsFace[i] {
			return
		}
		a, b := faceOf[i], faceOf[j]
		if prior := m.neighbors[a.Group][a.Element][a.Face]; prior.Group >= 0 && prior != b {
			err = fmt.Errorf("non-manifold face shared by more than two elements at %v", a)
			return
		}
		m.neighbors[a.Group][a.Element][a.Face] = b
	})
	return
}

func (m *Mesh) tagBoundary(tagger BoundaryTagger) {
	if tagger == nil {
		return
	}
	seen := make(map[dof.BoundaryTag]bool)
	for gi, g := range m.Groups {
		fv := g.Shape.FaceVertexIndices()
		for k, verts := range g.VertexIndices {
			for f := range fv {
				fid := FaceID{Group: gi, Element: k, Face: f}
				if _, interior := m.Neighbor(fid); interior {
					continue
				}
				coords := make([][]float64, len(fv[f]))
				for i, lv := range fv[f] {
					coords[i] = m.vertex(verts[lv])
				}
				tags := tagger(coords)
				m.faceTags[fid] = tags
				for _, t := range tags {
					if !seen[t] {
						seen[t] = true
						m.BoundaryTags = append(m.BoundaryTags, t)
					}
				}
			}
		}
	}
}

func (m *Mesh) vertex(i int) []float64 {
	x := make([]float64, m.AmbientDim)
	for d := range x {
		x[d] = m.Vertices[d][i]
	}
	return x
}

// MakeGroup places the warp & blend nodes of the given order on each element
// by the affine map through its vertices.
func MakeGroup(shape element.Shape, order int, vertexIndices [][]int, vertices [][]float64) (g *Group, err error) {
	var ref *element.Reference
	if ref, err = element.NewReference(element.Key{Shape: shape, Order: order, Kind: element.WarpBlend}); err != nil {
		return
	}
	var (
		K    = len(vertexIndices)
		lam  = barycentric(shape, ref)
		nAmb = len(vertices)
	)
	g = &Group{Shape: shape, Order: order, VertexIndices: vertexIndices, Nodes: make([]utils.Matrix, nAmb)}
	for d := 0; d < nAmb; d++ {
		g.Nodes[d] = utils.NewMatrixFromFunc(ref.Np, K, func(i, k int) (x float64) {
			for v, vi := range vertexIndices[k] {
				x += lam[v][i] * vertices[d][vi]
			}
			return
		})
	}
	return
}

func barycentric(shape element.Shape, ref *element.Reference) (lam [][]float64) {
	lam = make([][]float64, shape.NumVertices())
	for v := range lam {
		lam[v] = make([]float64, ref.Np)
	}
	for i := 0; i < ref.Np; i++ {
		switch shape {
		case element.Point:
			lam[0][i] = 1
		case element.Interval:
			r := ref.Nodes[0][i]
			lam[0][i], lam[1][i] = 0.5*(1-r), 0.5*(1+r)
		case element.Triangle:
			r, s := ref.Nodes[0][i], ref.Nodes[1][i]
			lam[0][i], lam[1][i], lam[2][i] = -0.5*(r+s), 0.5*(1+r), 0.5*(1+s)
		}
	}
	return
}

// MapMesh applies f to every node and vertex of m. Connectivity and boundary
// tags are retained.
func MapMesh(m *Mesh, f func(x []float64) []float64) *Mesh {
	var (
		nAmb = m.AmbientDim
		mm   = *m
	)
	mm.Vertices = make([][]float64, nAmb)
	for d := range mm.Vertices {
		mm.Vertices[d] = make([]float64, m.NumVertices())
	}
	for i := 0; i < m.NumVertices(); i++ {
		y := f(m.vertex(i))
		for d := 0; d < nAmb; d++ {
			mm.Vertices[d][i] = y[d]
		}
	}
	mm.Groups = make([]*Group, len(m.Groups))
	for gi, g := range m.Groups {
		ng := *g
		ng.Nodes = make([]utils.Matrix, nAmb)
		np, K := g.Nodes[0].Dims()
		for d := range ng.Nodes {
			ng.Nodes[d] = utils.NewMatrix(np, K)
		}
		x := make([]float64, nAmb)
		for i := 0; i < np; i++ {
			for k := 0; k < K; k++ {
				for d := range x {
					x[d] = g.Nodes[d].At(i, k)
				}
				y := f(x)
				for d := range x {
					ng.Nodes[d].Set(i, k, y[d])
				}
			}
		}
		mm.Groups[gi] = &ng
	}
	return &mm
}

// unitNodes is a convenience for generators that place nodes parametrically.
func unitNodes(shape element.Shape, order int) [][]float64 {
	switch shape {
	case element.Interval:
		return [][]float64{basis.JacobiGL(0, 0, order)}
	case element.Triangle:
		r, s := basis.XYtoRS(basis.Nodes2D(order))
		return [][]float64{r, s}
	}
	return nil
}
