// Package outlier flags records that lie far from the other records of their
// species. Records are grouped by species label, a per-record dispersion
// statistic is computed from pairwise distances inside each group, and one of
// three threshold methods classifies the group's members.
package outlier

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/coordclean/internal/geodist"
)

// Method selects the outlier threshold.
type Method int

// Threshold methods.
const (
	Quantile Method = iota // q75 + mltpl * IQR of mean distances
	MAD                    // median + mltpl * MAD of mean distances
	Distance               // nearest neighbour farther than TDI
)

// ErrUnknownMethod is returned for an unrecognised method or metric name.
var ErrUnknownMethod = errors.New("outlier: unknown method")

// ParseMethod parses "quantile", "mad" or "distance".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "quantile", "":
		return Quantile, nil
	case "mad":
		return MAD, nil
	case "distance":
		return Distance, nil
	}
	return 0, eris.Wrapf(ErrUnknownMethod, "outlier: method %q", s)
}

func (m Method) String() string {
	switch m {
	case MAD:
		return "mad"
	case Distance:
		return "distance"
	}
	return "quantile"
}

// Metric selects the pairwise distance used inside a group.
type Metric int

// Distance metrics. Euclidean works in raw coordinate units, so TDI is in
// degrees for lon/lat input; the other two are in meters.
const (
	Euclidean Metric = iota
	Planar
	Geodesic
)

// ParseMetric parses "euclidean", "planar" or "geodesic".
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(s) {
	case "euclidean", "":
		return Euclidean, nil
	case "planar":
		return Planar, nil
	case "geodesic":
		return Geodesic, nil
	}
	return 0, eris.Wrapf(ErrUnknownMethod, "outlier: metric %q", s)
}

func (m Metric) String() string {
	switch m {
	case Planar:
		return "planar"
	case Geodesic:
		return "geodesic"
	}
	return "euclidean"
}

// Func returns the distance function for the metric.
func (m Metric) Func() geodist.Func {
	switch m {
	case Planar:
		return geodist.Planar
	case Geodesic:
		return geodist.Geodesic
	}
	return geodist.Euclidean
}

// Config controls outlier detection.
type Config struct {
	Method     Method
	Multiplier float64
	TDI        float64
	MinOccs    int
	// Intrinsic caches each group's full distance matrix. Otherwise
	// distances are recomputed on demand.
	Intrinsic bool
	Metric    Metric
	// Workers bounds how many species groups are scored concurrently.
	Workers int
}

// DefaultConfig returns the stock outlier settings.
func DefaultConfig() Config {
	return Config{
		Method:     Quantile,
		Multiplier: 5,
		TDI:        1000,
		MinOccs:    7,
		Metric:     Euclidean,
		Workers:    1,
	}
}

// Groups partitions record indices by species label. Groups are ordered by
// first appearance and keep the original record order.
func Groups(species []string) [][]int {
	pos := make(map[string]int)
	var groups [][]int
	for i, s := range species {
		g, ok := pos[s]
		if !ok {
			g = len(groups)
			pos[s] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// Detect returns the is-outlier mask for the records. Groups smaller than
// MinOccs (and never fewer than two records) are not scored. Coordinates
// must already be valid.
func Detect(ctx context.Context, lon, lat []float64, species []string, cfg Config) ([]bool, error) {
	out := make([]bool, len(lon))
	minOccs := max(cfg.MinOccs, 2)
	dist := cfg.Metric.Func()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))

	scored := 0
	for _, members := range Groups(species) {
		if len(members) < minOccs {
			continue
		}
		scored++
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for k, flagged := range scoreGroup(members, lon, lat, dist, cfg) {
				if flagged {
					out[members[k]] = true
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "outlier: detect")
	}

	zap.L().Debug("outlier detection complete",
		zap.String("method", cfg.Method.String()),
		zap.String("metric", cfg.Metric.String()),
		zap.Int("groups_scored", scored),
	)
	return out, nil
}

// scoreGroup classifies one group and returns a mask aligned with members.
func scoreGroup(members []int, lon, lat []float64, dist geodist.Func, cfg Config) []bool {
	xs := make([]float64, len(members))
	ys := make([]float64, len(members))
	for k, idx := range members {
		xs[k] = lon[idx]
		ys[k] = lat[idx]
	}

	var d distances = onDemand{xs: xs, ys: ys, fn: dist}
	if cfg.Intrinsic {
		d = newMatrix(xs, ys, dist)
	}

	n := len(members)
	flags := make([]bool, n)
	switch cfg.Method {
	case Distance:
		for i := range n {
			flags[i] = nearest(d, i) > cfg.TDI
		}
	case MAD:
		means := meanDistances(d)
		med := median(means)
		dev := make([]float64, n)
		for i, m := range means {
			dev[i] = math.Abs(m - med)
		}
		threshold := med + cfg.Multiplier*median(dev)
		for i, m := range means {
			flags[i] = m > threshold
		}
	default:
		means := meanDistances(d)
		threshold := quantileThreshold(means, cfg.Multiplier)
		for i, m := range means {
			flags[i] = m > threshold
		}
	}
	return flags
}

// quantileThreshold returns q75 + mltpl*(q75-q25) with index-based
// percentiles at n*3/4 and n/4 of the sorted values.
func quantileThreshold(values []float64, mltpl float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	q75 := sorted[n*3/4]
	q25 := sorted[n/4]
	return q75 + mltpl*(q75-q25)
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

func meanDistances(d distances) []float64 {
	n := d.Len()
	means := make([]float64, n)
	for i := range n {
		var total float64
		for j := range n {
			if i != j {
				total += d.At(i, j)
			}
		}
		means[i] = total / float64(n-1)
	}
	return means
}

func nearest(d distances, i int) float64 {
	best := math.Inf(1)
	for j := range d.Len() {
		if i != j {
			best = min(best, d.At(i, j))
		}
	}
	return best
}
