// Package optemplate builds DG operators as expression trees over named
// fields and evaluates them against a discretization collection.
package optemplate

import (
	"fmt"
	"strings"

	"github.com/notargets/dgcore/dof"
)

type Kind uint8

const (
	Variable Kind = iota
	Sum
	ScalarMul
	Mass
	InverseMass
	Diff
	WeakDiff
	FaceMass
	Project
	Boundarize
	OppositeInteriorFace
)

func (k Kind) String() string {
	switch k {
	case Variable:
		return "Variable"
	case Sum:
		return "Sum"
	case ScalarMul:
		return "ScalarMul"
	case Mass:
		return "Mass"
	case InverseMass:
		return "InverseMass"
	case Diff:
		return "Diff"
	case WeakDiff:
		return "WeakDiff"
	case FaceMass:
		return "FaceMass"
	case Project:
		return "Project"
	case Boundarize:
		return "Boundarize"
	case OppositeInteriorFace:
		return "OppositeInteriorFace"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Expr is a node of an operator expression. Which fields are meaningful
// depends on Kind:
//
//	Variable              Name, DD
//	Sum                   Args
//	ScalarMul             Coeff, Args[0]
//	Diff, WeakDiff        Axis, Args[0]
//	Project, Boundarize   DD (the target), Args[0]
//	everything else       Args[0]
//
// Expressions are immutable once built and may share subtrees.
type Expr struct {
	Kind  Kind
	Name  string
	DD    dof.DOFDesc
	Coeff float64
	Axis  int
	Args  []*Expr
}

func Var(name string, dd dof.DOFDesc) *Expr {
	return &Expr{Kind: Variable, Name: name, DD: dd}
}

func Add(terms ...*Expr) *Expr {
	return &Expr{Kind: Sum, Args: terms}
}

func Sub(a, b *Expr) *Expr {
	return Add(a, Scale(-1, b))
}

func Scale(c float64, a *Expr) *Expr {
	return &Expr{Kind: ScalarMul, Coeff: c, Args: []*Expr{a}}
}

func MassOf(a *Expr) *Expr        { return unary(Mass, a) }
func InverseMassOf(a *Expr) *Expr { return unary(InverseMass, a) }
func FaceMassOf(a *Expr) *Expr    { return unary(FaceMass, a) }
func Opposite(a *Expr) *Expr      { return unary(OppositeInteriorFace, a) }

func Ddx(axis int, a *Expr) *Expr {
	return &Expr{Kind: Diff, Axis: axis, Args: []*Expr{a}}
}

func WeakDdx(axis int, a *Expr) *Expr {
	return &Expr{Kind: WeakDiff, Axis: axis, Args: []*Expr{a}}
}

func ProjectTo(tgt dof.DOFDesc, a *Expr) *Expr {
	return &Expr{Kind: Project, DD: tgt, Args: []*Expr{a}}
}

// BoundarizeTo restricts a volume expression to the boundary faces tagged tag,
// keeping the discretization tag of its argument.
func BoundarizeTo(tag dof.BoundaryTag, a *Expr) *Expr {
	return &Expr{Kind: Boundarize, DD: dof.BoundaryDD(tag), Args: []*Expr{a}}
}

func unary(k Kind, a *Expr) *Expr {
	return &Expr{Kind: k, Args: []*Expr{a}}
}

func (e *Expr) String() string {
	switch e.Kind {
	case Variable:
		return e.Name
	case Sum:
		terms := make([]string, len(e.Args))
		for i, a := range e.Args {
			terms[i] = a.String()
		}
		return "(" + strings.Join(terms, " + ") + ")"
	case ScalarMul:
		return fmt.Sprintf("%g*%s", e.Coeff, e.Args[0])
	case Diff, WeakDiff:
		return fmt.Sprintf("%s[%d](%s)", e.Kind, e.Axis, e.Args[0])
	case Project, Boundarize:
		return fmt.Sprintf("%s[%s](%s)", e.Kind, e.DD, e.Args[0])
	}
	return fmt.Sprintf("%s(%s)", e.Kind, e.Args[0])
}

// Variables lists the variable names the expression depends on, in order of
// first appearance.
func (e *Expr) Variables() (names []string) {
	seen := make(map[string]bool)
	var walk func(*Expr)
	walk = func(x *Expr) {
		if x.Kind == Variable {
			if !seen[x.Name] {
				seen[x.Name] = true
				names = append(names, x.Name)
			}
			return
		}
		for _, a := range x.Args {
			walk(a)
		}
	}
	walk(e)
	return
}
