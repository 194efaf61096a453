package cmd

import (
	"fmt"
	"image/color"
	"math"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/dtutils"
	"github.com/notargets/dgcore/mesh"
	"github.com/notargets/dgcore/model_problems"
	"github.com/notargets/dgcore/op"
	"github.com/notargets/dgcore/plot"
)

// SodCmd represents the sod command
var SodCmd = &cobra.Command{
	Use:   "sod",
	Short: "Euler equations on Sod's shock tube",
	Long: `
Integrates the 1D Euler equations from Sod's shock tube initial condition and
reports the L1 density error against the exact Riemann solution. Above order 0
the solution is slope limited every stage of an SSP Runge-Kutta step.

dgcore sod -n 100 -N 1 --finalTime 0.2 -g`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var res *SodResult
		if err = counted(func() (err error) {
			res, err = RunSod(viper.GetInt("sod.n"), viper.GetInt("sod.order"),
				viper.GetFloat64("sod.CFL"), viper.GetFloat64("sod.finalTime"))
			return
		}); err != nil {
			return
		}
		if viper.GetBool("sod.graph") {
			plot.Show(map[color.RGBA][]float32{
				{B: 255, A: 255}: plot.Segments(res.X, res.Rho),
				{R: 255, A: 255}: plot.Segments(res.X, res.Exact),
			})
		}
		return
	},
}

func init() {
	rootCmd.AddCommand(SodCmd)
	SodCmd.Flags().IntP("n", "n", 100, "number of elements")
	SodCmd.Flags().IntP("order", "N", 1, "polynomial degree")
	SodCmd.Flags().Float64("CFL", 0.1, "CFL - increase for speedup, decrease for stability")
	SodCmd.Flags().Float64("finalTime", 0.2, "FinalTime - the target end time for the sim")
	SodCmd.Flags().BoolP("graph", "g", false, "display the density when done")
	for _, name := range []string{"n", "order", "CFL", "finalTime", "graph"} {
		_ = viper.BindPFlag("sod."+name, SodCmd.Flags().Lookup(name))
	}
}

// TVB constant of the slope limiter applied above order 0
const slopeLimiterM = 20.

type SodResult struct {
	X, Rho, Exact dof.Array
	L1Error       float64
	Steps         int
}

func RunSod(n, order int, cfl, finalTime float64) (res *SodResult, err error) {
	var (
		rp    = model_problems.SodShockTube()
		m     *mesh.Mesh
		dc    *discretization.Collection
		x     dof.Vector
		q0, q model_problems.ConservedVars
		exact model_problems.ConservedVars
		dt    float64
		step  model_problems.Stepper[model_problems.ConservedVars] = model_problems.LSERK4Step[model_problems.ConservedVars]
	)
	if m, err = mesh.GenerateRegularRectMesh([]float64{0}, []float64{1}, []int{n}, max(order, 1)); err != nil {
		return
	}
	if dc, err = discretization.NewCollection(m, order); err != nil {
		return
	}
	if x, err = dc.Nodes(dof.DDVolume); err != nil {
		return
	}
	if q0, err = rp.Conserved(dc, 0); err != nil {
		return
	}
	euler := model_problems.NewEulerOperator(dc, rp.Gamma,
		map[dof.BoundaryTag]func(float64) (model_problems.ConservedVars, error){
			dof.BTagAll: func(float64) (model_problems.ConservedVars, error) { return q0, nil },
		})
	if dt, err = dtutils.EstimateTimestep(dc, euler.MaxCharacteristicVelocity(q0), cfl); err != nil {
		return
	}
	if order > 0 {
		var sl *model_problems.SlopeLimiter
		if sl, err = model_problems.NewSlopeLimiter(dc, slopeLimiterM); err != nil {
			return
		}
		step = model_problems.LimitedSSPRK3(sl.LimitConserved)
	}
	res = &SodResult{X: x[0]}
	Nsteps := int(math.Ceil(finalTime / dt))
	fmt.Printf("FinalTime = %8.4f, Nsteps = %d, dt = %8.6f\n", finalTime, Nsteps, finalTime/float64(max(Nsteps, 1)))
	logFrequency := 50
	report := func(tstep int, Time float64, q model_problems.ConservedVars) {
		res.Steps++
		if tstep%logFrequency == 0 {
			rmin, _ := op.NodalMin(dc, dof.DDVolume, q.Mass)
			rmax, _ := op.NodalMax(dc, dof.DDVolume, q.Mass)
			fmt.Printf("Time = %8.4f, step = %d, rhomin = %8.6f, rhomax = %8.6f\n", Time, tstep, rmin, rmax)
		}
	}
	if q, err = model_problems.Integrate(step, euler.Operator, q0, 0, finalTime, dt, report); err != nil {
		return
	}
	if exact, err = rp.Conserved(dc, finalTime); err != nil {
		return
	}
	res.Rho, res.Exact = q.Mass, exact.Mass
	if res.L1Error, err = rp.DensityL1Error(dc, q, finalTime); err != nil {
		return
	}
	fmt.Printf("Density L1 error at t = %8.4f: %12.6e\n", finalTime, res.L1Error)
	return
}
