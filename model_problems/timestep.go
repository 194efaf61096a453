package model_problems

import (
	"fmt"
	"math"

	"github.com/notargets/dgcore/dof"
)

// RHS returns the time derivative of state y at time t.
type RHS[C dof.Container] func(t float64, y C) (C, error)

// Stepper advances y from t to t+dt.
type Stepper[C dof.Container] func(rhs RHS[C], t, dt float64, y C) (C, error)

// RK4Step is the classical four stage Runge-Kutta method.
func RK4Step[C dof.Container](rhs RHS[C], t, dt float64, y C) (r C, err error) {
	var k1, k2, k3, k4 C
	if k1, err = rhs(t, y); err != nil {
		return
	}
	if k2, err = rhs(t+dt/2, dof.Axpy(dt/2, k1, y)); err != nil {
		return
	}
	if k3, err = rhs(t+dt/2, dof.Axpy(dt/2, k2, y)); err != nil {
		return
	}
	if k4, err = rhs(t+dt, dof.Axpy(dt, k3, y)); err != nil {
		return
	}
	r = dof.Axpy(dt/6, k1, y)
	r = dof.Axpy(dt/3, k2, r)
	r = dof.Axpy(dt/3, k3, r)
	r = dof.Axpy(dt/6, k4, r)
	return
}

// Carpenter & Kennedy five stage, fourth order low storage coefficients
var (
	rk4a = []float64{
		0.0,
		-567301805773.0 / 1357537059087.0,
		-2404267990393.0 / 2016746695238.0,
		-3550918686646.0 / 2091501179385.0,
		-1275806237668.0 / 842570457699.0,
	}
	rk4b = []float64{
		1432997174477.0 / 9575080441755.0,
		5161836677717.0 / 13612068292357.0,
		1720146321549.0 / 2090206949498.0,
		3134564353537.0 / 4481467310338.0,
		2277821191437.0 / 14882151754819.0,
	}
	rk4c = []float64{
		0.0,
		1432997174477.0 / 9575080441755.0,
		2526269341429.0 / 6820363962896.0,
		2006345519317.0 / 3224310063776.0,
		2802321613138.0 / 2924317926251.0,
	}
)

// LSERK4Step is the low storage explicit Runge-Kutta method: one residual
// register is carried between stages.
func LSERK4Step[C dof.Container](rhs RHS[C], t, dt float64, y C) (r C, err error) {
	var resid, rhsY C
	r = y
	for INTRK := 0; INTRK < 5; INTRK++ {
		if rhsY, err = rhs(t+rk4c[INTRK]*dt, r); err != nil {
			return
		}
		if INTRK == 0 {
			resid = dof.Scale(dt, rhsY)
		} else {
			resid = dof.Axpy(rk4a[INTRK], resid, dof.Scale(dt, rhsY))
		}
		r = dof.Axpy(rk4b[INTRK], resid, r)
	}
	return
}

// SSPRK3Step is the three stage strong stability preserving Runge-Kutta
// method of Shu and Osher.
func SSPRK3Step[C dof.Container](rhs RHS[C], t, dt float64, y C) (C, error) {
	return LimitedSSPRK3[C](nil)(rhs, t, dt, y)
}

// LimitedSSPRK3 is SSPRK3Step with limit applied to every stage. A nil limit
// leaves the stages alone.
func LimitedSSPRK3[C dof.Container](limit func(C) (C, error)) Stepper[C] {
	apply := func(y C) (C, error) {
		if limit == nil {
			return y, nil
		}
		return limit(y)
	}
	return func(rhs RHS[C], t, dt float64, y C) (r C, err error) {
		var k, y1, y2 C
		if k, err = rhs(t, y); err != nil {
			return
		}
		if y1, err = apply(dof.Axpy(dt, k, y)); err != nil {
			return
		}
		if k, err = rhs(t+dt, y1); err != nil {
			return
		}
		y2 = dof.Add(dof.Scale(0.75, y), dof.Scale(0.25, dof.Axpy(dt, k, y1)))
		if y2, err = apply(y2); err != nil {
			return
		}
		if k, err = rhs(t+dt/2, y2); err != nil {
			return
		}
		r = dof.Add(dof.Scale(1./3, y), dof.Scale(2./3, dof.Axpy(dt, k, y2)))
		return apply(r)
	}
}

// Integrate advances y0 from t0 to tFinal in equal steps no longer than
// dtMax. report, if not nil, is called after every step.
func Integrate[C dof.Container](step Stepper[C], rhs RHS[C], y0 C, t0, tFinal, dtMax float64,
	report func(istep int, t float64, y C)) (y C, err error) {
	if dtMax <= 0 || math.IsNaN(dtMax) {
		err = fmt.Errorf("invalid time step %g", dtMax)
		return
	}
	var (
		Nsteps = int(math.Ceil((tFinal - t0) / dtMax))
		dt     = (tFinal - t0) / float64(Nsteps)
		Time   = t0
	)
	y = y0
	for tstep := 0; tstep < Nsteps; tstep++ {
		if y, err = step(rhs, Time, dt, y); err != nil {
			err = fmt.Errorf("step %d at t = %g: %w", tstep, Time, err)
			return
		}
		Time = t0 + float64(tstep+1)*dt
		if report != nil {
			report(tstep, Time, y)
		}
	}
	return
}
