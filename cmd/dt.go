package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/dgcore/discretization"
	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/dtutils"
	"github.com/notargets/dgcore/mesh"
	"github.com/notargets/dgcore/utils"
)

// DtCmd represents the dt command
var DtCmd = &cobra.Command{
	Use:   "dt",
	Short: "Time step and mesh size estimates for a generated mesh",
	Long: `
Prints the reference node spacing, the element size bounds and the stable time
step for a unit wave speed.

dgcore dt --mesh rect --dim 2 -n 8 -N 3
dgcore dt --mesh sphere -n 2
dgcore dt --mesh airfoil.su2`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			m  *mesh.Mesh
			dc *discretization.Collection
			dr *DtReport
		)
		order := viper.GetInt("dt.order")
		if m, err = generateMesh(viper.GetString("dt.mesh"), viper.GetInt("dt.dim"), viper.GetInt("dt.n"),
			max(order, 1)); err != nil {
			return
		}
		if dc, err = discretization.NewCollection(m, order); err != nil {
			return
		}
		if dr, err = Timestep(dc, viper.GetFloat64("dt.CFL")); err != nil {
			return
		}
		dr.Print()
		return
	},
}

func init() {
	rootCmd.AddCommand(DtCmd)
	DtCmd.Flags().String("mesh", "rect", "mesh to generate: rect, ellipse, sphere or the name of an SU2 file")
	DtCmd.Flags().Int("dim", 2, "dimension of the rect mesh")
	DtCmd.Flags().IntP("n", "n", 4, "elements per axis (rect), elements (ellipse) or refinements (sphere)")
	DtCmd.Flags().IntP("order", "N", 3, "polynomial degree")
	DtCmd.Flags().Float64("CFL", 1, "CFL number")
	for _, name := range []string{"mesh", "dim", "n", "order", "CFL"} {
		_ = viper.BindPFlag("dt."+name, DtCmd.Flags().Lookup(name))
	}
}

func generateMesh(kind string, dim, n, order int) (*mesh.Mesh, error) {
	if strings.HasSuffix(kind, ".su2") {
		return mesh.ReadSU2File(kind, order)
	}
	switch kind {
	case "rect":
		nn := make([]int, dim)
		for i := range nn {
			nn[i] = n
		}
		return mesh.GenerateRegularRectMesh(utils.ConstArray(dim, 0), utils.ConstArray(dim, 1), nn, order)
	case "ellipse":
		return mesh.GenerateEllipse(2, 1, n, order)
	case "sphere":
		return mesh.GenerateIcosphere(1, n, order)
	}
	return nil, fmt.Errorf("unknown mesh %q, expected rect, ellipse or sphere", kind)
}

type DtReport struct {
	Dim, AmbientDim int
	NonGeometric    []float64
	HMin, HMax      float64
	Dt              float64
}

func Timestep(dc *discretization.Collection, cfl float64) (dr *DtReport, err error) {
	dr = &DtReport{Dim: dc.Dim(), AmbientDim: dc.AmbientDim()}
	if dr.NonGeometric, err = dtutils.NonGeometricFactors(dc, dof.DDVolume); err != nil {
		return
	}
	if dr.HMin, err = dtutils.HMinFromVolume(dc, 0, dof.DDVolume); err != nil {
		return
	}
	if dr.HMax, err = dtutils.HMaxFromVolume(dc, 0, dof.DDVolume); err != nil {
		return
	}
	if dr.Dt, err = dtutils.EstimateTimestep(dc, dc.VolumeDiscr().Ones(), cfl); err != nil {
		return
	}
	return
}

func (dr *DtReport) Print() {
	fmt.Printf("[%d] in [%d]\t\t= Dimension in Ambient Dimension\n", dr.Dim, dr.AmbientDim)
	fmt.Printf("%v\t= Non Geometric Factors\n", dr.NonGeometric)
	fmt.Printf("%8.5f\t\t= HMin\n", dr.HMin)
	fmt.Printf("%8.5f\t\t= HMax\n", dr.HMax)
	fmt.Printf("%8.6f\t\t= Dt\n", dr.Dt)
}
