package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file of a wave run
type WaveParameters struct {
	Title           string  `yaml:"Title"`
	CFL             float64 `yaml:"CFL"`
	FluxType        string  `yaml:"FluxType"`
	PolynomialOrder int     `yaml:"PolynomialOrder"`
	QuadratureOrder int     `yaml:"QuadratureOrder"` // 0 disables overintegration
	FinalTime       float64 `yaml:"FinalTime"`
	Dimensions      int     `yaml:"Dimensions"`
	Elements        int     `yaml:"Elements"` // per axis
	WaveSpeed       float64 `yaml:"WaveSpeed"`
	// Boundary condition kind per boundary tag: dirichlet, neumann or radiation
	BCs map[string]string `yaml:"BCs"`
}

func NewWaveParameters() *WaveParameters {
	return &WaveParameters{
		Title:           "standing wave",
		CFL:             0.25,
		FluxType:        "upwind",
		PolynomialOrder: 3,
		FinalTime:       1,
		Dimensions:      1,
		Elements:        8,
		WaveSpeed:       1,
	}
}

// Parse overlays the YAML in data on the receiver; absent keys keep their
// current values.
func (ip *WaveParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *WaveParameters) Validate() error {
	switch {
	case ip.Dimensions != 1 && ip.Dimensions != 2:
		return fmt.Errorf("Dimensions must be 1 or 2, got %d", ip.Dimensions)
	case ip.Elements < 1:
		return fmt.Errorf("Elements must be positive, got %d", ip.Elements)
	case ip.PolynomialOrder < 0:
		return fmt.Errorf("PolynomialOrder must not be negative, got %d", ip.PolynomialOrder)
	case ip.CFL <= 0:
		return fmt.Errorf("CFL must be positive, got %g", ip.CFL)
	case ip.FinalTime < 0:
		return fmt.Errorf("FinalTime must not be negative, got %g", ip.FinalTime)
	case ip.WaveSpeed == 0:
		return fmt.Errorf("WaveSpeed must not be zero")
	}
	for tag, kind := range ip.BCs {
		switch kind {
		case "dirichlet", "neumann", "radiation":
		default:
			return fmt.Errorf("unknown boundary condition %q on %q", kind, tag)
		}
	}
	return nil
}

func (ip *WaveParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%8.5f\t\t= CFL\n", ip.CFL)
	fmt.Printf("%8.5f\t\t= FinalTime\n", ip.FinalTime)
	fmt.Printf("%8.5f\t\t= WaveSpeed\n", ip.WaveSpeed)
	fmt.Printf("[%s]\t\t\t= Flux Type\n", ip.FluxType)
	fmt.Printf("[%d]\t\t\t\t= Polynomial Order\n", ip.PolynomialOrder)
	fmt.Printf("[%d]\t\t\t\t= Quadrature Order\n", ip.QuadratureOrder)
	fmt.Printf("[%d]x[%d]\t\t\t= Dimensions x Elements\n", ip.Dimensions, ip.Elements)
	keys := make([]string, len(ip.BCs))
	i := 0
	for k := range ip.BCs {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("BCs[%s] = %v\n", key, ip.BCs[key])
	}
}
