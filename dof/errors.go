package dof

import "errors"

// Configuration errors surface when a descriptor or operator is resolved.
// Numerical applicability errors surface when geometry makes a quantity
// ill-defined. Callers match with errors.Is.
var (
	ErrUnsupportedShape           = errors.New("unsupported element shape")
	ErrMissingGroupFactory        = errors.New("no group factory registered for discretization tag")
	ErrIncompatibleDiscretization = errors.New("incompatible discretizations")
	ErrGeometry                   = errors.New("geometric quantity not well-defined")
	ErrNotImplemented             = errors.New("not implemented")
	ErrBoundaryCoverage           = errors.New("boundary conditions do not cover every boundary face once")
)
