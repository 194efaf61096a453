package discretization

import (
	"fmt"

	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/utils"
)

// Batch maps the elements FromElements of source group FromGroup onto the
// elements ToElements of target group ToGroup with a single reference
// operator: either Matrix (target nodes x source nodes) or the node
// permutation Perm, where target node i takes source node Perm[i].
type Batch struct {
	FromGroup, ToGroup       int
	FromElements, ToElements utils.Index
	Matrix                   utils.Matrix
	Perm                     utils.Index
}

// Connector maps fields on one discretization to another.
type Connector interface {
	From() *Discretization
	To() *Discretization
	Apply(a dof.Array) (dof.Array, error)
}

// DirectConnection applies its batches with one gather, one matrix product
// and one scatter per batch. Target nodes not covered by any batch are zero.
type DirectConnection struct {
	from, to *Discretization
	Batches  []Batch
}

func NewDirectConnection(from, to *Discretization, batches []Batch) *DirectConnection {
	return &DirectConnection{from: from, to: to, Batches: batches}
}

func (c *DirectConnection) From() *Discretization { return c.from }
func (c *DirectConnection) To() *Discretization   { return c.to }

func (c *DirectConnection) Apply(a dof.Array) (r dof.Array, err error) {
	if err = c.from.CheckArray(a); err != nil {
		return
	}
	r = c.to.Zeros()
	for _, b := range c.Batches {
		var (
			src = a.Groups[b.FromGroup].SliceCols(b.FromElements)
			out utils.Matrix
		)
		if b.Perm != nil {
			out = src.SliceRows(b.Perm)
		} else {
			out = b.Matrix.Mul(src)
		}
		r.Groups[b.ToGroup].AssignColumns(b.ToElements, out)
	}
	return
}

// ChainedConnection applies its connections in order.
type ChainedConnection struct {
	Connections []Connector
}

func NewChainedConnection(conns ...Connector) (*ChainedConnection, error) {
	for i := 1; i < len(conns); i++ {
		if conns[i-1].To() != conns[i].From() {
			return nil, fmt.Errorf("%w: chained connection %d ends on %s but %d starts on %s",
				dof.ErrIncompatibleDiscretization, i-1, conns[i-1].To().DD, i, conns[i].From().DD)
		}
	}
	if len(conns) == 0 {
		return nil, fmt.Errorf("empty chained connection")
	}
	return &ChainedConnection{Connections: conns}, nil
}

func (c *ChainedConnection) From() *Discretization { return c.Connections[0].From() }
func (c *ChainedConnection) To() *Discretization {
	return c.Connections[len(c.Connections)-1].To()
}

func (c *ChainedConnection) Apply(a dof.Array) (r dof.Array, err error) {
	r = a
	for _, conn := range c.Connections {
		if r, err = conn.Apply(r); err != nil {
			return
		}
	}
	return
}

// identityBatches maps every element of d onto itself.
func identityBatches(d *Discretization) (batches []Batch) {
	for gi, g := range d.Groups {
		all := utils.NewRange(0, g.NElements)
		batches = append(batches, Batch{
			FromGroup: gi, ToGroup: gi,
			FromElements: all, ToElements: all,
			Perm: utils.NewRange(0, g.Np()),
		})
	}
	return
}
