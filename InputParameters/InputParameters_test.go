package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	fileInput := []byte(`
Title: Test Case
CFL: 0.25
FluxType: central
PolynomialOrder: 4
FinalTime: 2.
Dimensions: 2
BCs:
  "-x": dirichlet
  "+x": radiation
  "-y": neumann
`)
	ip := NewWaveParameters()
	require.NoError(t, ip.Parse(fileInput))
	assert.Equal(t, "Test Case", ip.Title)
	assert.Equal(t, 0.25, ip.CFL)
	assert.Equal(t, "central", ip.FluxType)
	assert.Equal(t, 4, ip.PolynomialOrder)
	assert.Equal(t, 2, ip.Dimensions)
	assert.Equal(t, "radiation", ip.BCs["+x"])
	// Absent keys keep their defaults
	assert.Equal(t, 8, ip.Elements)
	assert.Equal(t, 1., ip.WaveSpeed)
	assert.NoError(t, ip.Validate())
	ip.Print()

	assert.Error(t, ip.Parse([]byte("CFL: [1, 2]")))
}

func TestValidate(t *testing.T) {
	cases := map[string]func(ip *WaveParameters){
		"dimension": func(ip *WaveParameters) { ip.Dimensions = 3 },
		"elements":  func(ip *WaveParameters) { ip.Elements = 0 },
		"order":     func(ip *WaveParameters) { ip.PolynomialOrder = -1 },
		"cfl":       func(ip *WaveParameters) { ip.CFL = 0 },
		"time":      func(ip *WaveParameters) { ip.FinalTime = -1 },
		"speed":     func(ip *WaveParameters) { ip.WaveSpeed = 0 },
		"bc":        func(ip *WaveParameters) { ip.BCs = map[string]string{"-x": "periodic"} },
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			ip := NewWaveParameters()
			require.NoError(t, ip.Validate())
			breakIt(ip)
			assert.Error(t, ip.Validate())
		})
	}
}
