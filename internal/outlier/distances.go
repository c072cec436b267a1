package outlier

import "github.com/sells-group/coordclean/internal/geodist"

// distances gives pairwise distances between the members of one group.
type distances interface {
	Len() int
	At(i, j int) float64
}

// matrix is a cached, symmetric n x n distance matrix stored row-major.
type matrix struct {
	n int
	d []float64
}

func newMatrix(xs, ys []float64, fn geodist.Func) matrix {
	n := len(xs)
	m := matrix{n: n, d: make([]float64, n*n)}
	for i := range n {
		for j := i + 1; j < n; j++ {
			v := fn(xs[i], ys[i], xs[j], ys[j])
			m.d[i*n+j] = v
			m.d[j*n+i] = v
		}
	}
	return m
}

func (m matrix) Len() int            { return m.n }
func (m matrix) At(i, j int) float64 { return m.d[i*m.n+j] }

// onDemand recomputes every distance when asked.
type onDemand struct {
	xs, ys []float64
	fn     geodist.Func
}

func (o onDemand) Len() int { return len(o.xs) }

func (o onDemand) At(i, j int) float64 {
	return o.fn(o.xs[i], o.ys[i], o.xs[j], o.ys[j])
}
