// Package plot draws 1D nodal fields in an interactive window.
package plot

import (
	"image/color"
	"math"
	"sort"
	"time"

	"github.com/notargets/avs/chart2d"
	utils2 "github.com/notargets/avs/utils"

	"github.com/notargets/dgcore/dof"
)

// Segments turns a piecewise polynomial field into line segments
// x1, y1, x2, y2, ... joining neighboring nodes inside each element.
func Segments(x, u dof.Array) (line []float32) {
	for gi, g := range x.Groups {
		var (
			np, K = g.Dims()
			order = make([]int, np)
		)
		for e := 0; e < K; e++ {
			xe, ue := g.Col(e), u.Groups[gi].Col(e)
			for i := range order {
				order[i] = i
			}
			sort.Slice(order, func(a, b int) bool { return xe[order[a]] < xe[order[b]] })
			for i := 1; i < np; i++ {
				p, q := order[i-1], order[i]
				line = append(line,
					float32(xe[p]), float32(ue[p]),
					float32(xe[q]), float32(ue[q]))
			}
		}
	}
	return
}

// Bounds returns the extent of a segment list with a margin of 5%.
func Bounds(line []float32) (xMin, xMax, yMin, yMax float32) {
	xMin, yMin = math.MaxFloat32, math.MaxFloat32
	xMax, yMax = -math.MaxFloat32, -math.MaxFloat32
	for i := 0; i+1 < len(line); i += 2 {
		xMin, xMax = min(xMin, line[i]), max(xMax, line[i])
		yMin, yMax = min(yMin, line[i+1]), max(yMax, line[i+1])
	}
	dy := max(yMax-yMin, 1.e-3)
	return xMin, xMax, yMin - 0.05*dy, yMax + 0.05*dy
}

// Show opens a window with every field drawn in its own color and blocks
// until the process is interrupted.
func Show(lines map[color.RGBA][]float32) {
	var all []float32
	for _, l := range lines {
		all = append(all, l...)
	}
	xMin, xMax, yMin, yMax := Bounds(all)
	ch := chart2d.NewChart2D(xMin, xMax, yMin, yMax,
		1024, 1024, utils2.WHITE, utils2.BLACK)
	for col, line := range lines {
		ch.AddLine(line, col)
	}
	for {
		time.Sleep(time.Second)
	}
}
