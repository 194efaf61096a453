package dof

import "fmt"

// Container is any field value whose leaves are Arrays: a single Array, a
// vector of Arrays, a struct of conserved variables. Generic operations walk
// the leaves once and rebuild the container with WithArrays.
type Container interface {
	Arrays() []Array
	WithArrays(leaves []Array) Container
}

// Vector is an ordered set of Arrays, one per component.
type Vector []Array

func (v Vector) Arrays() []Array { return v }

func (v Vector) WithArrays(leaves []Array) Container {
	if len(leaves) != len(v) {
		panic(fmt.Errorf("vector container expects %d leaves, got %d", len(v), len(leaves)))
	}
	r := make(Vector, len(leaves))
	copy(r, leaves)
	return r
}

// Scalar is a leafless container. It passes unchanged through every
// operation that maps over leaves.
type Scalar float64

func (s Scalar) Arrays() []Array                     { return nil }
func (s Scalar) WithArrays(leaves []Array) Container { return s }

// MapErr applies f to every leaf of c.
func MapErr[C Container](c C, f func(Array) (Array, error)) (r C, err error) {
	var (
		leaves = c.Arrays()
		out    = make([]Array, len(leaves))
	)
	for i, l := range leaves {
		if out[i], err = f(l); err != nil {
			return
		}
	}
	r = c.WithArrays(out).(C)
	return
}

func Map[C Container](c C, f func(Array) Array) C {
	r, _ := MapErr(c, func(a Array) (Array, error) { return f(a), nil })
	return r
}

// Zip applies f leaf by leaf to two containers of identical structure.
func Zip[C Container](a, b C, f func(x, y Array) Array) C {
	var (
		la, lb = a.Arrays(), b.Arrays()
		out    = make([]Array, len(la))
	)
	if len(la) != len(lb) {
		panic(fmt.Errorf("%w: containers have %d and %d leaves", ErrIncompatibleDiscretization, len(la), len(lb)))
	}
	for i := range la {
		out[i] = f(la[i], lb[i])
	}
	return a.WithArrays(out).(C)
}

func Add[C Container](a, b C) C { return Zip(a, b, Array.Add) }

func Sub[C Container](a, b C) C { return Zip(a, b, Array.Sub) }

func Scale[C Container](alpha float64, c C) C {
	return Map(c, func(a Array) Array { return a.Scale(alpha) })
}

// Axpy returns alpha*x + y.
func Axpy[C Container](alpha float64, x, y C) C {
	return Zip(x, y, func(a, b Array) Array {
		return a.Apply2(b, func(p, q float64) float64 { return alpha*p + q })
	})
}

// MulArray multiplies every leaf of c by the Array s.
func MulArray[C Container](s Array, c C) C {
	return Map(c, func(a Array) Array { return a.Mul(s) })
}

// Dot sums the leafwise products of two containers, node by node.
func Dot[C Container](a, b C) Array {
	var (
		la, lb = a.Arrays(), b.Arrays()
	)
	if len(la) == 0 || len(la) != len(lb) {
		panic(fmt.Errorf("%w: cannot dot containers with %d and %d leaves", ErrIncompatibleDiscretization, len(la), len(lb)))
	}
	r := la[0].Mul(lb[0])
	for i := 1; i < len(la); i++ {
		r = r.Add(la[i].Mul(lb[i]))
	}
	return r
}

// FreezeContainer freezes every leaf of c.
func FreezeContainer[C Container](c C, name string) C {
	return Map(c, func(a Array) Array { return Freeze(a, name).View() })
}

// Thaw returns a writable copy of every leaf of c.
func Thaw[C Container](c C) C {
	return Map(c, Array.Copy)
}
