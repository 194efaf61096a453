package basis

// Rule is a quadrature rule on a reference cell. Nodes[d][q] is coordinate d
// of node q.
type Rule struct {
	Nodes   [][]float64
	Weights []float64
	// ExactTo is the highest total polynomial degree integrated exactly.
	ExactTo int
}

func (q Rule) NumNodes() int { return len(q.Weights) }

// PointRule integrates over a 0-dimensional cell.
func PointRule() Rule {
	return Rule{Nodes: [][]float64{}, Weights: []float64{1}, ExactTo: 1 << 30}
}

// LegendreGaussRule is the Gauss-Legendre rule on [-1,1] exact to degree order.
func LegendreGaussRule(order int) Rule {
	n := order/2 + 1
	x, w := JacobiGQ(0, 0, n-1)
	return Rule{Nodes: [][]float64{x}, Weights: w, ExactTo: 2*n - 1}
}

// StroudTriangleRule is the collapsed Gauss-Jacobi product rule on the
// reference triangle exact to degree order. Weights sum to the reference
// area, 2.
func StroudTriangleRule(order int) Rule {
	var (
		n      = order/2 + 1
		xa, wa = JacobiGQ(0, 0, n-1)
		xb, wb = JacobiGQ(1, 0, n-1)
		r      = make([]float64, 0, n*n)
		s      = make([]float64, 0, n*n)
		w      = make([]float64, 0, n*n)
	)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			r = append(r, 0.5*(1+xa[i])*(1-xb[j])-1)
			s = append(s, xb[j])
			w = append(w, 0.5*wa[i]*wb[j])
		}
	}
	return Rule{Nodes: [][]float64{r, s}, Weights: w, ExactTo: 2*n - 1}
}
