package cmd

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"math"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/dgcore/InputParameters"
	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/mesh"
	"github.com/notargets/dgcore/model_problems"
	"github.com/notargets/dgcore/op"
	"github.com/notargets/dgcore/plot"
	"github.com/notargets/dgcore/utils"
)

// WaveCmd represents the wave command
var WaveCmd = &cobra.Command{
	Use:   "wave",
	Short: "Wave equation standing mode on the unit interval or square",
	Long: `
Integrates the first order wave system from a standing mode with u = 0 on the
boundary and reports the L2 error against the exact solution.

dgcore wave -n 8 -N 3 --eoc`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var ip *InputParameters.WaveParameters
		if ip, err = waveParameters(); err != nil {
			return
		}
		ip.Print()
		if !viper.GetBool("wave.eoc") {
			var res *WaveResult
			if err = counted(func() (err error) {
				res, err = RunWave(ip)
				return
			}); err != nil {
				return
			}
			if viper.GetBool("wave.graph") {
				if ip.Dimensions != 1 {
					return fmt.Errorf("graphing is only available in 1D")
				}
				plot.Show(map[color.RGBA][]float32{
					{B: 255, A: 255}: plot.Segments(res.X, res.U),
					{R: 255, A: 255}: plot.Segments(res.X, res.Exact),
				})
			}
			return
		}
		var eoc *utils.EOCRecorder
		if eoc, err = WaveEOC(ip, 3); err != nil {
			return
		}
		fmt.Print(eoc)
		if csvFile := viper.GetString("wave.csv"); csvFile != "" {
			err = appendCSV(csvFile, ip, eoc)
		}
		return
	},
}

func init() {
	rootCmd.AddCommand(WaveCmd)
	def := InputParameters.NewWaveParameters()
	WaveCmd.Flags().StringP("inputFile", "I", "", "YAML file of wave parameters, flags are ignored where it sets a value")
	WaveCmd.Flags().IntP("n", "n", def.Elements, "number of elements per axis")
	WaveCmd.Flags().IntP("order", "N", def.PolynomialOrder, "polynomial degree")
	WaveCmd.Flags().Int("quadOrder", def.QuadratureOrder, "quadrature order used to measure the error, 0 for none")
	WaveCmd.Flags().Int("dim", def.Dimensions, "spatial dimension, 1 or 2")
	WaveCmd.Flags().String("flux", def.FluxType, "numerical flux: upwind or central")
	WaveCmd.Flags().Float64("CFL", def.CFL, "CFL - increase for speedup, decrease for stability")
	WaveCmd.Flags().Float64("finalTime", def.FinalTime, "FinalTime - the target end time for the sim")
	WaveCmd.Flags().Float64("c", def.WaveSpeed, "wave speed")
	WaveCmd.Flags().Bool("eoc", false, "run three successive refinements and estimate the order of convergence")
	WaveCmd.Flags().String("csv", "", "append the convergence study to this CSV file")
	WaveCmd.Flags().BoolP("graph", "g", false, "display the 1D solution when done")
	for _, name := range []string{"inputFile", "n", "order", "quadOrder", "dim", "flux", "CFL", "finalTime",
		"c", "eoc", "csv", "graph"} {
		_ = viper.BindPFlag("wave."+name, WaveCmd.Flags().Lookup(name))
	}
}

// waveParameters merges flags, config file and environment, then the input
// file if one is given.
func waveParameters() (ip *InputParameters.WaveParameters, err error) {
	ip = InputParameters.NewWaveParameters()
	ip.Elements = viper.GetInt("wave.n")
	ip.PolynomialOrder = viper.GetInt("wave.order")
	ip.QuadratureOrder = viper.GetInt("wave.quadOrder")
	ip.Dimensions = viper.GetInt("wave.dim")
	ip.FluxType = viper.GetString("wave.flux")
	ip.CFL = viper.GetFloat64("wave.CFL")
	ip.FinalTime = viper.GetFloat64("wave.finalTime")
	ip.WaveSpeed = viper.GetFloat64("wave.c")
	if inputFile := viper.GetString("wave.inputFile"); inputFile != "" {
		var data []byte
		if data, err = os.ReadFile(inputFile); err != nil {
			return
		}
		if err = ip.Parse(data); err != nil {
			return
		}
	}
	err = ip.Validate()
	return
}

type WaveResult struct {
	DC       *discretization.Collection
	X        dof.Array // first coordinate of the volume nodes
	U, Exact dof.Array
	Error    float64
	Steps    int
}

// standingMode returns u and v of the lowest Dirichlet mode at time t.
func standingMode(x dof.Vector, c, t float64) (w dof.Vector) {
	var (
		dim = len(x)
		k   = math.Pi * math.Sqrt(float64(dim))
	)
	w = make(dof.Vector, dim+1)
	w[0] = product(x, -1).Scale(math.Cos(k * c * t))
	for ax := 0; ax < dim; ax++ {
		w[ax+1] = product(x, ax).Scale(math.Sin(k*c*t) / math.Sqrt(float64(dim)))
	}
	return
}

// product is prod_i sin(pi x_i), with cos in place of sin along axis cosAxis.
func product(x dof.Vector, cosAxis int) dof.Array {
	r := x[0].Apply(func(float64) float64 { return 1 })
	for ax := range x {
		f := math.Sin
		if ax == cosAxis {
			f = math.Cos
		}
		r = r.Mul(x[ax].Apply(func(v float64) float64 { return f(math.Pi * v) }))
	}
	return r
}

func waveOptions(ip *InputParameters.WaveParameters) (opts []model_problems.WaveOption) {
	opts = append(opts, model_problems.WithFlux(model_problems.FluxType(ip.FluxType)))
	if len(ip.BCs) == 0 {
		return
	}
	for tag, kind := range ip.BCs {
		switch kind {
		case "dirichlet":
			opts = append(opts, model_problems.WithDirichlet(dof.BoundaryTag(tag), 0))
		case "neumann":
			opts = append(opts, model_problems.WithNeumann(dof.BoundaryTag(tag)))
		case "radiation":
			opts = append(opts, model_problems.WithRadiation(dof.BoundaryTag(tag)))
		}
	}
	return
}

func RunWave(ip *InputParameters.WaveParameters) (res *WaveResult, err error) {
	var (
		m      *mesh.Mesh
		dc     *discretization.Collection
		x      dof.Vector
		wave   *model_problems.WaveOperator
		dt     float64
		w      dof.Vector
		lo     = utils.ConstArray(ip.Dimensions, 0)
		hi     = utils.ConstArray(ip.Dimensions, 1)
		n      = make([]int, ip.Dimensions)
		opts   []discretization.Option
		errDD  = dof.DDVolume
		errVec dof.Vector
	)
	for i := range n {
		n[i] = ip.Elements
	}
	if m, err = mesh.GenerateRegularRectMesh(lo, hi, n, max(ip.PolynomialOrder, 1)); err != nil {
		return
	}
	if ip.QuadratureOrder > 0 {
		opts = append(opts, discretization.WithQuadrature(ip.QuadratureOrder))
		errDD = errDD.WithDiscrTag(dof.DiscrTagQuad)
	}
	if dc, err = discretization.NewCollection(m, ip.PolynomialOrder, opts...); err != nil {
		return
	}
	if x, err = dc.Nodes(dof.DDVolume); err != nil {
		return
	}
	if wave, err = model_problems.NewWaveOperator(dc, ip.WaveSpeed, waveOptions(ip)...); err != nil {
		return
	}
	if dt, err = wave.EstimateTimestep(ip.CFL); err != nil {
		return
	}
	res = &WaveResult{DC: dc, X: x[0]}
	Nsteps := int(math.Ceil(ip.FinalTime / dt))
	fmt.Printf("FinalTime = %8.4f, Nsteps = %d, dt = %8.6f\n", ip.FinalTime, Nsteps, ip.FinalTime/float64(max(Nsteps, 1)))
	logFrequency := 50
	report := func(tstep int, Time float64, w dof.Vector) {
		res.Steps++
		if tstep%logFrequency == 0 {
			umin, _ := op.NodalMin(dc, dof.DDVolume, w[0])
			umax, _ := op.NodalMax(dc, dof.DDVolume, w[0])
			fmt.Printf("Time = %8.4f, step = %d, umin = %8.6f, umax = %8.6f\n", Time, tstep, umin, umax)
		}
	}
	w0 := standingMode(x, ip.WaveSpeed, 0)
	if w, err = model_problems.Integrate(model_problems.LSERK4Step[dof.Vector], wave.Operator,
		w0, 0, ip.FinalTime, dt, report); err != nil {
		return
	}
	exact := standingMode(x, ip.WaveSpeed, ip.FinalTime)
	res.U, res.Exact = w[0], exact[0]
	if errVec, err = op.Project(dc, dof.DDVolume, errDD, dof.Sub(w, exact)); err != nil {
		return
	}
	if res.Error, err = op.Norm(dc, errVec, 2, errDD); err != nil {
		return
	}
	fmt.Printf("L2 error at t = %8.4f: %12.6e\n", ip.FinalTime, res.Error)
	return
}

// WaveEOC runs levels successive refinements starting from ip.Elements.
func WaveEOC(ip *InputParameters.WaveParameters, levels int) (eoc *utils.EOCRecorder, err error) {
	eoc = utils.NewEOCRecorder(ip.Title)
	level := *ip
	for i := 0; i < levels; i++ {
		var res *WaveResult
		if res, err = RunWave(&level); err != nil {
			return
		}
		eoc.AddDataPoint(1/float64(level.Elements), res.Error)
		level.Elements *= 2
	}
	return
}

// appendCSV writes one line per refinement: title, order, h, error.
func appendCSV(csvFile string, ip *InputParameters.WaveParameters, eoc *utils.EOCRecorder) (err error) {
	var f *os.File
	if f, err = os.OpenFile(csvFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err != nil {
		return
	}
	defer f.Close()
	w := csv.NewWriter(f)
	h, e := eoc.Points()
	for i := range h {
		if err = w.Write([]string{ip.Title, strconv.Itoa(ip.PolynomialOrder),
			strconv.FormatFloat(h[i], 'e', -1, 64), strconv.FormatFloat(e[i], 'e', -1, 64)}); err != nil {
			return
		}
	}
	w.Flush()
	return w.Error()
}
