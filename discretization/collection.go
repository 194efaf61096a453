package discretization

import (
	"fmt"
	"math"
	"sync"

	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/element"
	"github.com/notargets/dgcore/mesh"
	"github.com/notargets/dgcore/utils"
)

// Collection owns a mesh, the discretizations realized on it and the
// connections between them. Discretizations, connections and memoized
// quantities are created on first request and never replaced.
type Collection struct {
	mesh      *mesh.Mesh
	cache     *element.OperatorCache
	order     int
	factories map[dof.DiscrTag]element.GroupFactory

	mu     sync.Mutex
	discrs map[dof.DOFDesc]*Discretization
	conns  map[[2]dof.DOFDesc]Connector
	memo   map[memoKey]any
}

type Option func(*Collection)

// WithGroupFactory registers the factory used for discretization tag tag.
func WithGroupFactory(tag dof.DiscrTag, f element.GroupFactory) Option {
	return func(dc *Collection) { dc.factories[tag] = f }
}

// WithQuadrature registers a QuadratureSimplexGroupFactory of the given
// order under DiscrTagQuad.
func WithQuadrature(order int) Option {
	return WithGroupFactory(dof.DiscrTagQuad, element.QuadratureSimplexGroupFactory{Order: order})
}

// WithOperatorCache shares reference operators with other collections.
func WithOperatorCache(cache *element.OperatorCache) Option {
	return func(dc *Collection) { dc.cache = cache }
}

// NewCollection discretizes m with polynomial order order on warp & blend
// nodes. Every registered factory is checked against every mesh group here so
// that unsupported shapes fail at construction.
func NewCollection(m *mesh.Mesh, order int, opts ...Option) (dc *Collection, err error) {
	dc = &Collection{
		mesh:      m,
		order:     order,
		factories: make(map[dof.DiscrTag]element.GroupFactory),
		discrs:    make(map[dof.DOFDesc]*Discretization),
		conns:     make(map[[2]dof.DOFDesc]Connector),
		memo:      make(map[memoKey]any),
	}
	dc.factories[dof.DiscrTagBase] = element.PolynomialWarpBlendGroupFactory{Order: order}
	for _, opt := range opts {
		opt(dc)
	}
	if dc.cache == nil {
		dc.cache = element.NewOperatorCache()
	}
	for tag, f := range dc.factories {
		for _, g := range m.Groups {
			if _, err = f.KeyFor(g.Shape); err != nil {
				err = fmt.Errorf("group factory for %q: %w", tag, err)
				return
			}
			if m.Dim > 0 {
				if _, err = f.KeyFor(g.Shape.FaceShape()); err != nil {
					err = fmt.Errorf("group factory for %q: %w", tag, err)
					return
				}
			}
		}
	}
	if _, err = dc.DiscrFromDD(dof.DDVolume); err != nil {
		return
	}
	return
}

func (dc *Collection) Mesh() *mesh.Mesh                    { return dc.mesh }
func (dc *Collection) Cache() *element.OperatorCache       { return dc.cache }
func (dc *Collection) Order() int                          { return dc.order }
func (dc *Collection) Dim() int                            { return dc.mesh.Dim }
func (dc *Collection) AmbientDim() int                     { return dc.mesh.AmbientDim }
func (dc *Collection) IsVolumeFilling() bool               { return dc.mesh.Dim == dc.mesh.AmbientDim }
func (dc *Collection) HasDiscrTag(tag dof.DiscrTag) bool   { _, ok := dc.factories[tag]; return ok }
func (dc *Collection) VolumeDiscr() *Discretization        { d, _ := dc.DiscrFromDD(dof.DDVolume); return d }

// Zeros returns a writable zero field on dd.
func (dc *Collection) Zeros(dd dof.DOFDesc) (a dof.Array, err error) {
	var d *Discretization
	if d, err = dc.DiscrFromDD(dd); err != nil {
		return
	}
	return d.Zeros(), nil
}

// Nodes returns the read-only node coordinates of dd.
func (dc *Collection) Nodes(dd dof.DOFDesc) (dof.Vector, error) {
	return Memoize(dc, "nodes", dd, func() (v dof.Vector, err error) {
		var d *Discretization
		if d, err = dc.DiscrFromDD(dd); err != nil {
			return
		}
		return d.Nodes(), nil
	})
}

// Project maps a from src to tgt. Equal descriptors return a unchanged.
func (dc *Collection) Project(src, tgt dof.DOFDesc, a dof.Array) (r dof.Array, err error) {
	if src == tgt {
		return a, nil
	}
	var conn Connector
	if conn, err = dc.ConnectionFromDDs(src, tgt); err != nil {
		return
	}
	return conn.Apply(a)
}

// ReferenceDerivatives returns the derivatives of a along each reference axis
// of dd, which must be an interpolatory discretization.
func (dc *Collection) ReferenceDerivatives(dd dof.DOFDesc, a dof.Array) (da []dof.Array, err error) {
	var d *Discretization
	if d, err = dc.DiscrFromDD(dd); err != nil {
		return
	}
	if err = d.CheckArray(a); err != nil {
		return
	}
	da = make([]dof.Array, d.Dim)
	for j := range da {
		da[j].Groups = make([]utils.Matrix, len(d.Groups))
	}
	for gi, g := range d.Groups {
		var D []utils.Matrix
		if D, err = dc.cache.Diff(g.Key()); err != nil {
			return
		}
		for j := range da {
			da[j].Groups[gi] = D[j].Mul(a.Groups[gi])
		}
	}
	return
}

// MappingDerivatives returns J[i][j] = d x_i / d r_j at the nodes of dd,
// differentiating the mesh's element mapping rather than the interpolated
// node coordinates, so low order discretizations of a curved or high order
// mesh see its exact geometry.
func (dc *Collection) MappingDerivatives(dd dof.DOFDesc) (J [][]dof.Array, err error) {
	var d *Discretization
	if d, err = dc.DiscrFromDD(dd); err != nil {
		return
	}
	J = make([][]dof.Array, d.AmbientDim)
	for i := range J {
		J[i] = make([]dof.Array, d.Dim)
		for j := range J[i] {
			J[i][j].Groups = make([]utils.Matrix, len(d.Groups))
		}
	}
	if d.Dim == 0 {
		return
	}
	for gi, g := range d.Groups {
		var (
			mg   = dc.mesh.Groups[g.VolumeGroup]
			geom = mg.Key()
			x    = mg.Nodes
			D    []utils.Matrix
		)
		if dd.IsTrace() {
			var ref *element.Reference
			geom = element.Key{Shape: mg.Shape.FaceShape(), Order: mg.Order, Kind: element.WarpBlend}
			if ref, err = dc.cache.Reference(geom); err != nil {
				return
			}
			x = make([]utils.Matrix, len(mg.Nodes))
			for ax := range x {
				x[ax] = utils.NewMatrix(ref.Np, g.NElements)
			}
			for face, ks := range byFace(g.Faces, mg.Shape.NumFaces()) {
				var R utils.Matrix
				if R, err = dc.cache.FaceRestriction(mg.Key(), geom, face); err != nil {
					return
				}
				volElems := subset(g.VolumeElements, ks)
				for ax := range x {
					x[ax].AssignColumns(ks, R.Mul(mg.Nodes[ax].SliceCols(volElems)))
				}
			}
		}
		if D, err = dc.cache.DiffAt(geom, g.Key()); err != nil {
			return
		}
		for i := range J {
			for j := range J[i] {
				J[i][j].Groups[gi] = D[j].Mul(x[i])
			}
		}
	}
	return
}

type memoKey struct {
	name string
	dd   dof.DOFDesc
}

// Memoize returns the value cached under (name, dd), computing it with fn on
// the first request. Cached values must not be modified by callers.
func Memoize[T any](dc *Collection, name string, dd dof.DOFDesc, fn func() (T, error)) (v T, err error) {
	k := memoKey{name: name, dd: dd}
	dc.mu.Lock()
	cached, ok := dc.memo[k]
	dc.mu.Unlock()
	if ok {
		return cached.(T), nil
	}
	if v, err = fn(); err != nil {
		return
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if prior, ok := dc.memo[k]; ok {
		return prior.(T), nil
	}
	dc.memo[k] = v
	return
}

// DiscrFromDD returns the discretization for dd, building it on first use.
func (dc *Collection) DiscrFromDD(dd dof.DOFDesc) (d *Discretization, err error) {
	var ok bool
	dc.mu.Lock()
	d, ok = dc.discrs[dd]
	dc.mu.Unlock()
	if ok {
		return
	}
	if d, err = dc.buildDiscr(dd); err != nil {
		return
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if prior, ok := dc.discrs[dd]; ok {
		return prior, nil
	}
	dc.discrs[dd] = d
	return
}

func (dc *Collection) factory(tag dof.DiscrTag) (f element.GroupFactory, err error) {
	var ok bool
	if f, ok = dc.factories[tag]; !ok {
		err = fmt.Errorf("%w: %q", dof.ErrMissingGroupFactory, tag)
	}
	return
}

func (dc *Collection) buildDiscr(dd dof.DOFDesc) (d *Discretization, err error) {
	var f element.GroupFactory
	if f, err = dc.factory(dd.Discr); err != nil {
		return
	}
	if dd.IsVolume() {
		return dc.buildVolume(dd, f)
	}
	if dc.mesh.Dim == 0 {
		err = fmt.Errorf("%w: 0-dimensional mesh has no faces", dof.ErrIncompatibleDiscretization)
		return
	}
	return dc.buildTrace(dd, f)
}

func (dc *Collection) buildVolume(dd dof.DOFDesc, f element.GroupFactory) (d *Discretization, err error) {
	d = &Discretization{DD: dd, Dim: dc.mesh.Dim, AmbientDim: dc.mesh.AmbientDim}
	for gi, mg := range dc.mesh.Groups {
		var (
			key element.Key
			ref *element.Reference
			I   utils.Matrix
		)
		if key, err = f.KeyFor(mg.Shape); err != nil {
			return
		}
		if ref, err = dc.cache.Reference(key); err != nil {
			return
		}
		if I, err = dc.cache.Interpolation(mg.Key(), key); err != nil {
			return
		}
		g := &Group{
			Ref:            ref,
			NElements:      mg.NumElements(),
			Nodes:          make([]utils.Matrix, dc.mesh.AmbientDim),
			VolumeGroup:    gi,
			VolumeElements: utils.NewRange(0, mg.NumElements()),
		}
		for ax := range g.Nodes {
			g.Nodes[ax] = I.Mul(mg.Nodes[ax])
			g.Nodes[ax].SetReadOnly(fmt.Sprintf("nodes %s axis %d", dd, ax))
		}
		d.Groups = append(d.Groups, g)
	}
	return
}

// faceList returns the (element, face) pairs of volume group gi that belong
// to the trace domain. All-faces lists are face-major, so that face f of
// element e is trace element f*K+e.
func (dc *Collection) faceList(dom dof.DomainTag, gi int) (elems, faces utils.Index, err error) {
	var (
		mg = dc.mesh.Groups[gi]
		K  = mg.NumElements()
		nf = mg.Shape.NumFaces()
	)
	switch dom.Kind {
	case dof.AllFaces:
		for f := 0; f < nf; f++ {
			for e := 0; e < K; e++ {
				elems, faces = append(elems, e), append(faces, f)
			}
		}
	case dof.InteriorFaces, dof.Boundary:
		for e := 0; e < K; e++ {
			for f := 0; f < nf; f++ {
				fid := mesh.FaceID{Group: gi, Element: e, Face: f}
				var include bool
				if dom.Kind == dof.InteriorFaces {
					_, include = dc.mesh.Neighbor(fid)
				} else {
					include = dc.mesh.HasTag(fid, dom.Tag)
				}
				if include {
					elems, faces = append(elems, e), append(faces, f)
				}
			}
		}
	default:
		err = fmt.Errorf("%w: %s is not a trace domain", dof.ErrIncompatibleDiscretization, dom.Kind)
	}
	return
}

func (dc *Collection) buildTrace(dd dof.DOFDesc, f element.GroupFactory) (d *Discretization, err error) {
	d = &Discretization{DD: dd, Dim: dc.mesh.Dim - 1, AmbientDim: dc.mesh.AmbientDim}
	for gi, mg := range dc.mesh.Groups {
		var (
			key          element.Key
			ref          *element.Reference
			elems, faces utils.Index
		)
		if elems, faces, err = dc.faceList(dd.Domain, gi); err != nil {
			return
		}
		if len(elems) == 0 {
			continue
		}
		if key, err = f.KeyFor(mg.Shape.FaceShape()); err != nil {
			return
		}
		if ref, err = dc.cache.Reference(key); err != nil {
			return
		}
		g := &Group{
			Ref:            ref,
			NElements:      len(elems),
			Nodes:          make([]utils.Matrix, dc.mesh.AmbientDim),
			VolumeGroup:    gi,
			VolumeElements: elems,
			Faces:          faces,
		}
		for ax := range g.Nodes {
			g.Nodes[ax] = utils.NewMatrix(ref.Np, len(elems))
		}
		for face, ks := range byFace(faces, mg.Shape.NumFaces()) {
			var R utils.Matrix
			if R, err = dc.cache.FaceRestriction(mg.Key(), key, face); err != nil {
				return
			}
			volElems := subset(elems, ks)
			for ax := range g.Nodes {
				g.Nodes[ax].AssignColumns(ks, R.Mul(mg.Nodes[ax].SliceCols(volElems)))
			}
		}
		for ax := range g.Nodes {
			g.Nodes[ax].SetReadOnly(fmt.Sprintf("nodes %s axis %d", dd, ax))
		}
		d.Groups = append(d.Groups, g)
	}
	return
}

// byFace groups trace element indices by reference face. Faces without
// trace elements are omitted.
func byFace(faces utils.Index, nfaces int) map[int]utils.Index {
	m := make(map[int]utils.Index, nfaces)
	for k, f := range faces {
		m[f] = append(m[f], k)
	}
	return m
}

func subset(I, ks utils.Index) (r utils.Index) {
	r = make(utils.Index, len(ks))
	for i, k := range ks {
		r[i] = I[k]
	}
	return
}

// ConnectionFromDDs returns the connection mapping fields on src onto tgt.
// Quadrature nodes carry no interpolant, so a quadrature source can only be
// L2 projected onto the base discretization of its own domain.
func (dc *Collection) ConnectionFromDDs(src, tgt dof.DOFDesc) (c Connector, err error) {
	var ok bool
	key := [2]dof.DOFDesc{src, tgt}
	dc.mu.Lock()
	c, ok = dc.conns[key]
	dc.mu.Unlock()
	if ok {
		return
	}
	if c, err = dc.buildConnection(src, tgt); err != nil {
		return
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if prior, ok := dc.conns[key]; ok {
		return prior, nil
	}
	dc.conns[key] = c
	return
}

func (dc *Collection) buildConnection(src, tgt dof.DOFDesc) (c Connector, err error) {
	var from, to *Discretization
	if from, err = dc.DiscrFromDD(src); err != nil {
		return
	}
	if to, err = dc.DiscrFromDD(tgt); err != nil {
		return
	}
	switch {
	case src == tgt:
		return NewDirectConnection(from, to, identityBatches(from)), nil

	case src.IsTrace() && tgt.Domain.Kind == dof.AllFaces && src.Discr == tgt.Discr:
		return dc.allFacesEmbedding(from, to)

	case src.Domain != tgt.Domain && src.IsBase() && !tgt.IsBase():
		// change domain on the base discretization, then go to quadrature
		var toBase, toQuad Connector
		mid := tgt.WithDiscrTag(dof.DiscrTagBase)
		if toBase, err = dc.ConnectionFromDDs(src, mid); err != nil {
			return
		}
		if toQuad, err = dc.ConnectionFromDDs(mid, tgt); err != nil {
			return
		}
		return NewChainedConnection(toBase, toQuad)

	case src.Domain == tgt.Domain && !src.IsBase() && tgt.IsBase():
		return dc.l2Projection(from, to)

	case !src.IsBase():
		err = fmt.Errorf("%w: cannot interpolate from quadrature discretization %s to %s",
			dof.ErrIncompatibleDiscretization, src, tgt)
		return

	case src.Domain == tgt.Domain:
		return dc.sameMeshConnection(from, to)

	case src.IsVolume() && tgt.IsTrace():
		return dc.restriction(from, to)
	}
	err = fmt.Errorf("%w: no connection from %s to %s", dof.ErrIncompatibleDiscretization, src, tgt)
	return
}

// sameMeshConnection interpolates between two discretizations of the same
// domain, group by group.
func (dc *Collection) sameMeshConnection(from, to *Discretization) (c Connector, err error) {
	var batches []Batch
	for gi, g := range from.Groups {
		var I utils.Matrix
		if I, err = dc.cache.Interpolation(g.Key(), to.Groups[gi].Key()); err != nil {
			return
		}
		all := utils.NewRange(0, g.NElements)
		batches = append(batches, Batch{
			FromGroup: gi, ToGroup: gi, FromElements: all, ToElements: all, Matrix: I,
		})
	}
	return NewDirectConnection(from, to, batches), nil
}

// l2Projection maps quadrature values onto the nodal basis that has the same
// moments against every basis function.
func (dc *Collection) l2Projection(from, to *Discretization) (c Connector, err error) {
	var batches []Batch
	for gi, g := range from.Groups {
		var P utils.Matrix
		if P, err = dc.cache.L2Projection(to.Groups[gi].Key(), g.Key()); err != nil {
			return
		}
		all := utils.NewRange(0, g.NElements)
		batches = append(batches, Batch{
			FromGroup: gi, ToGroup: gi, FromElements: all, ToElements: all, Matrix: P,
		})
	}
	return NewDirectConnection(from, to, batches), nil
}

// restriction interpolates volume data onto the faces of a trace
// discretization, with one batch per trace group and reference face.
func (dc *Collection) restriction(from, to *Discretization) (c Connector, err error) {
	var batches []Batch
	for ti, tg := range to.Groups {
		vg := from.Groups[tg.VolumeGroup]
		for face, ks := range byFace(tg.Faces, vg.Ref.Shape.NumFaces()) {
			var R utils.Matrix
			if R, err = dc.cache.FaceRestriction(vg.Key(), tg.Key(), face); err != nil {
				return
			}
			batches = append(batches, Batch{
				FromGroup: tg.VolumeGroup, ToGroup: ti,
				FromElements: subset(tg.VolumeElements, ks), ToElements: ks,
				Matrix: R,
			})
		}
	}
	return NewDirectConnection(from, to, batches), nil
}

// allFacesEmbedding places trace data at its position on the all-faces
// discretization of the same tag. Faces not in the source remain zero.
func (dc *Collection) allFacesEmbedding(from, to *Discretization) (c Connector, err error) {
	var batches []Batch
	for ti, tg := range from.Groups {
		ai := -1
		for i, ag := range to.Groups {
			if ag.VolumeGroup == tg.VolumeGroup {
				ai = i
			}
		}
		if ai < 0 {
			err = fmt.Errorf("%w: no all-faces group for volume group %d", dof.ErrIncompatibleDiscretization, tg.VolumeGroup)
			return
		}
		K := dc.mesh.Groups[tg.VolumeGroup].NumElements()
		toElems := make(utils.Index, tg.NElements)
		for k := range toElems {
			toElems[k] = tg.Faces[k]*K + tg.VolumeElements[k]
		}
		batches = append(batches, Batch{
			FromGroup: ti, ToGroup: ai,
			FromElements: utils.NewRange(0, tg.NElements), ToElements: toElems,
			Perm: utils.NewRange(0, tg.Np()),
		})
	}
	return NewDirectConnection(from, to, batches), nil
}

// OppositeFaceConnection returns the permutation that takes interior face
// data to the matching nodes of the neighboring element's face. Nodes are
// matched by physical position, so applying it twice is the identity.
func (dc *Collection) OppositeFaceConnection(dd dof.DOFDesc) (Connector, error) {
	return Memoize(dc, "opposite_face_connection", dd, func() (c Connector, err error) {
		var d *Discretization
		if dd.Domain.Kind != dof.InteriorFaces {
			err = fmt.Errorf("%w: opposite face connection requires interior faces, got %s",
				dof.ErrIncompatibleDiscretization, dd)
			return
		}
		if d, err = dc.DiscrFromDD(dd); err != nil {
			return
		}
		type loc struct{ group, elem int }
		where := make(map[mesh.FaceID]loc)
		for ti, tg := range d.Groups {
			for k := 0; k < tg.NElements; k++ {
				where[mesh.FaceID{Group: tg.VolumeGroup, Element: tg.VolumeElements[k], Face: tg.Faces[k]}] = loc{ti, k}
			}
		}
		type batchKey struct {
			to, from int
			perm     string
		}
		var (
			order   []batchKey
			batches = make(map[batchKey]*Batch)
		)
		for ti, tg := range d.Groups {
			for k := 0; k < tg.NElements; k++ {
				fid := mesh.FaceID{Group: tg.VolumeGroup, Element: tg.VolumeElements[k], Face: tg.Faces[k]}
				nb, _ := dc.mesh.Neighbor(fid)
				other := where[nb]
				var perm utils.Index
				if perm, err = matchNodes(tg, k, d.Groups[other.group], other.elem); err != nil {
					return
				}
				bk := batchKey{to: ti, from: other.group, perm: fmt.Sprint(perm)}
				b, ok := batches[bk]
				if !ok {
					b = &Batch{FromGroup: other.group, ToGroup: ti, Perm: perm}
					batches[bk] = b
					order = append(order, bk)
				}
				b.FromElements = append(b.FromElements, other.elem)
				b.ToElements = append(b.ToElements, k)
			}
		}
		list := make([]Batch, len(order))
		for i, bk := range order {
			list[i] = *batches[bk]
		}
		return NewDirectConnection(d, d, list), nil
	})
}

// matchNodes finds, for each node of element k of group a, the coincident
// node of element l of group b.
func matchNodes(a *Group, k int, b *Group, l int) (perm utils.Index, err error) {
	var (
		np  = a.Np()
		nax = len(a.Nodes)
		h   float64
	)
	if b.Np() != np {
		err = fmt.Errorf("%w: faces with %d and %d nodes", dof.ErrIncompatibleDiscretization, np, b.Np())
		return
	}
	dist := func(i, j int) (d float64) {
		for ax := 0; ax < nax; ax++ {
			dx := a.Nodes[ax].At(i, k) - b.Nodes[ax].At(j, l)
			d += dx * dx
		}
		return math.Sqrt(d)
	}
	for i := 0; i < np; i++ {
		for j := 0; j < np; j++ {
			var d float64
			for ax := 0; ax < nax; ax++ {
				dx := a.Nodes[ax].At(i, k) - a.Nodes[ax].At(j, k)
				d += dx * dx
			}
			h = math.Max(h, math.Sqrt(d))
		}
	}
	tol := 1.e-8*h + utils.NODETOL
	perm = make(utils.Index, np)
	for i := 0; i < np; i++ {
		best, bestD := -1, math.Inf(1)
		for j := 0; j < np; j++ {
			if d := dist(i, j); d < bestD {
				best, bestD = j, d
			}
		}
		if bestD > tol {
			err = fmt.Errorf("%w: non-conforming face, node %d is %g from its nearest neighbor node",
				dof.ErrIncompatibleDiscretization, i, bestD)
			return
		}
		perm[i] = best
	}
	return
}
