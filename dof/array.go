package dof

import (
	"fmt"
	"math"

	"github.com/notargets/dgcore/utils"
)

// Array holds field data for a discretization: one Np x K matrix per element
// group, nodes along rows and elements along columns.
type Array struct {
	Groups []utils.Matrix
}

func NewArray(groups ...utils.Matrix) Array {
	return Array{Groups: groups}
}

func (a Array) NumGroups() int { return len(a.Groups) }

func (a Array) NumDOFs() (n int) {
	for _, g := range a.Groups {
		nr, nc := g.Dims()
		n += nr * nc
	}
	return
}

// SameShape reports whether b has identical group count and group shapes.
func (a Array) SameShape(b Array) bool {
	if len(a.Groups) != len(b.Groups) {
		return false
	}
	for i := range a.Groups {
		ar, ac := a.Groups[i].Dims()
		br, bc := b.Groups[i].Dims()
		if ar != br || ac != bc {
			return false
		}
	}
	return true
}

func (a Array) checkShape(b Array) {
	if !a.SameShape(b) {
		panic(fmt.Errorf("%w: array shapes differ", ErrIncompatibleDiscretization))
	}
}

func (a Array) Copy() Array {
	r := Array{Groups: make([]utils.Matrix, len(a.Groups))}
	for i, g := range a.Groups {
		r.Groups[i] = g.Copy()
	}
	return r
}

func ZerosLike(a Array) Array {
	r := Array{Groups: make([]utils.Matrix, len(a.Groups))}
	for i, g := range a.Groups {
		r.Groups[i] = utils.NewMatrix(g.Dims())
	}
	return r
}

func FullLike(a Array, val float64) Array {
	return ZerosLike(a).Apply(func(float64) float64 { return val })
}

// Apply returns f applied to every DOF. The receiver is not changed.
func (a Array) Apply(f func(float64) float64) Array {
	r := a.Copy()
	for _, g := range r.Groups {
		g.Apply(f)
	}
	return r
}

// Apply2 returns f(a, b) applied DOF by DOF.
func (a Array) Apply2(b Array, f func(float64, float64) float64) Array {
	a.checkShape(b)
	r := a.Copy()
	for i, g := range r.Groups {
		g.Apply2(b.Groups[i], f)
	}
	return r
}

func (a Array) Add(b Array) Array {
	return a.Apply2(b, func(x, y float64) float64 { return x + y })
}

func (a Array) Sub(b Array) Array {
	return a.Apply2(b, func(x, y float64) float64 { return x - y })
}

func (a Array) Mul(b Array) Array {
	return a.Apply2(b, func(x, y float64) float64 { return x * y })
}

func (a Array) Div(b Array) Array {
	return a.Apply2(b, func(x, y float64) float64 { return x / y })
}

func (a Array) Scale(alpha float64) Array {
	return a.Apply(func(x float64) float64 { return alpha * x })
}

func (a Array) AddScalar(alpha float64) Array {
	return a.Apply(func(x float64) float64 { return alpha + x })
}

func (a Array) Abs() Array { return a.Apply(math.Abs) }

// Arrays and WithArrays make an Array a single-leaf Container.
func (a Array) Arrays() []Array { return []Array{a} }

func (a Array) WithArrays(leaves []Array) Container {
	if len(leaves) != 1 {
		panic(fmt.Errorf("array container expects 1 leaf, got %d", len(leaves)))
	}
	return leaves[0]
}

func (a Array) IsFrozen() bool {
	for _, g := range a.Groups {
		if !g.IsReadOnly() {
			return false
		}
	}
	return len(a.Groups) != 0
}

// FrozenArray is the cached form of an Array. Its storage is read-only and
// may be shared by every caller.
type FrozenArray struct {
	a Array
}

// Freeze takes a private copy of a and marks it read-only.
func Freeze(a Array, name string) FrozenArray {
	f := a.Copy()
	for i := range f.Groups {
		f.Groups[i].SetReadOnly(fmt.Sprintf("%s[%d]", name, i))
	}
	return FrozenArray{a: f}
}

// View returns the frozen data as a read-only Array without copying.
func (f FrozenArray) View() Array { return f.a }

// Thaw returns a writable copy bound to the caller.
func (f FrozenArray) Thaw() Array { return f.a.Copy() }
