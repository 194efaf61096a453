package optemplate

import (
	"fmt"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/op"
)

type value struct {
	a  dof.Array
	dd dof.DOFDesc
}

// Evaluator computes expressions against a collection. Shared subtrees are
// evaluated once per Evaluator.
type Evaluator struct {
	dc   *discretization.Collection
	env  map[string]dof.Array
	done map[*Expr]value
}

func NewEvaluator(dc *discretization.Collection, env map[string]dof.Array) *Evaluator {
	return &Evaluator{dc: dc, env: env, done: make(map[*Expr]value)}
}

// Evaluate is a one-shot NewEvaluator(dc, env).Eval(e).
func Evaluate(dc *discretization.Collection, e *Expr, env map[string]dof.Array) (dof.Array, dof.DOFDesc, error) {
	return NewEvaluator(dc, env).Eval(e)
}

// Eval returns the value of e and the descriptor it lives on.
func (ev *Evaluator) Eval(e *Expr) (a dof.Array, dd dof.DOFDesc, err error) {
	if v, ok := ev.done[e]; ok {
		return v.a, v.dd, nil
	}
	if a, dd, err = ev.eval(e); err != nil {
		err = fmt.Errorf("evaluating %s: %w", e.Kind, err)
		return
	}
	ev.done[e] = value{a: a, dd: dd}
	return
}

func (ev *Evaluator) eval(e *Expr) (r dof.Array, dd dof.DOFDesc, err error) {
	dc := ev.dc
	if e.Kind == Variable {
		var (
			ok bool
			d  *discretization.Discretization
		)
		if r, ok = ev.env[e.Name]; !ok {
			err = fmt.Errorf("unbound variable %q", e.Name)
			return
		}
		if d, err = dc.DiscrFromDD(e.DD); err != nil {
			return
		}
		return r, e.DD, d.CheckArray(r)
	}
	if len(e.Args) == 0 {
		err = fmt.Errorf("%s without arguments", e.Kind)
		return
	}
	if e.Kind == Sum {
		return ev.sum(e.Args)
	}
	if len(e.Args) != 1 {
		err = fmt.Errorf("%s takes one argument, got %d", e.Kind, len(e.Args))
		return
	}
	var (
		a    dof.Array
		ddIn dof.DOFDesc
	)
	if a, ddIn, err = ev.Eval(e.Args[0]); err != nil {
		return
	}
	base := ddIn.WithDiscrTag(dof.DiscrTagBase)
	switch e.Kind {
	case ScalarMul:
		return a.Scale(e.Coeff), ddIn, nil
	case Mass:
		r, err = op.Mass(dc, ddIn, a)
		return r, base, err
	case InverseMass:
		r, err = op.InverseMassDD(dc, ddIn, ddIn, a)
		return r, ddIn, err
	case Diff:
		r, err = op.LocalDdx(dc, ddIn, e.Axis, a)
		return r, ddIn, err
	case WeakDiff:
		r, err = op.WeakLocalDdx(dc, ddIn, e.Axis, a)
		return r, base, err
	case FaceMass:
		r, err = op.FaceMass(dc, ddIn, a)
		return r, dof.DDVolume, err
	case Project:
		r, err = op.Project(dc, ddIn, e.DD, a)
		return r, e.DD, err
	case Boundarize:
		if !ddIn.IsVolume() {
			err = fmt.Errorf("%w: boundarize from %s", dof.ErrIncompatibleDiscretization, ddIn)
			return
		}
		dd = e.DD.WithDiscrTag(ddIn.Discr)
		r, err = op.Project(dc, ddIn, dd, a)
		return
	case OppositeInteriorFace:
		var conn discretization.Connector
		if conn, err = dc.OppositeFaceConnection(ddIn); err != nil {
			return
		}
		r, err = conn.Apply(a)
		return r, ddIn, err
	}
	err = fmt.Errorf("%w: expression kind %s", dof.ErrNotImplemented, e.Kind)
	return
}

func (ev *Evaluator) sum(terms []*Expr) (r dof.Array, dd dof.DOFDesc, err error) {
	for i, t := range terms {
		var (
			a    dof.Array
			ddIn dof.DOFDesc
		)
		if a, ddIn, err = ev.Eval(t); err != nil {
			return
		}
		if i == 0 {
			r, dd = a.Copy(), ddIn
			continue
		}
		if ddIn != dd {
			err = fmt.Errorf("%w: adding %s to %s", dof.ErrIncompatibleDiscretization, ddIn, dd)
			return
		}
		r = r.Add(a)
	}
	return
}
