package utils

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// EOCRecorder accumulates (h, error) pairs of a refinement study and estimates
// the experimental order of convergence from a log-log least squares fit.
type EOCRecorder struct {
	Title    string
	abscissa []float64
	errors   []float64
}

func NewEOCRecorder(title string) *EOCRecorder {
	return &EOCRecorder{Title: title}
}

func (eoc *EOCRecorder) AddDataPoint(h, err float64) {
	eoc.abscissa = append(eoc.abscissa, h)
	eoc.errors = append(eoc.errors, err)
}

func (eoc *EOCRecorder) Len() int { return len(eoc.errors) }

// Points returns copies of the recorded abscissae and errors.
func (eoc *EOCRecorder) Points() (h, errs []float64) {
	h = append([]float64(nil), eoc.abscissa...)
	errs = append([]float64(nil), eoc.errors...)
	return
}

// OrderEstimate is the slope of log(error) against log(h). NaN with fewer
// than two points.
func (eoc *EOCRecorder) OrderEstimate() float64 {
	if len(eoc.errors) < 2 {
		return math.NaN()
	}
	var (
		lh = make([]float64, len(eoc.abscissa))
		le = make([]float64, len(eoc.errors))
	)
	for i := range lh {
		lh[i] = math.Log10(eoc.abscissa[i])
		le[i] = math.Log10(eoc.errors[i])
	}
	_, slope := stat.LinearRegression(lh, le, nil, false)
	return slope
}

func (eoc *EOCRecorder) MaxError() (emax float64) {
	for _, e := range eoc.errors {
		emax = math.Max(emax, e)
	}
	return
}

// Satisfied reports whether the study converged at the expected order within
// slack, or whether every error is already below the absolute tolerance.
func (eoc *EOCRecorder) Satisfied(expected, slack, absTol float64) bool {
	if eoc.MaxError() < absTol {
		return true
	}
	return eoc.OrderEstimate() > expected-slack
}

func (eoc *EOCRecorder) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", eoc.Title)
	fmt.Fprintf(&sb, "%12s %14s %8s\n", "h", "error", "eoc")
	for i := range eoc.errors {
		rate := "-"
		if i > 0 {
			rate = fmt.Sprintf("%8.3f", math.Log(eoc.errors[i]/eoc.errors[i-1])/
				math.Log(eoc.abscissa[i]/eoc.abscissa[i-1]))
		}
		fmt.Fprintf(&sb, "%12.5e %14.6e %8s\n", eoc.abscissa[i], eoc.errors[i], rate)
	}
	fmt.Fprintf(&sb, "Overall %8.3f\n", eoc.OrderEstimate())
	return sb.String()
}
