package calculator

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"ChannelSentinel/internal/model"
)

const minResidualThreshold = 1e-9

// FitOptions controls the consensus-sampling line fit. Seed is part of the input:
// the same points fit with the same seed always produce the same line.
type FitOptions struct {
	Seed              int64   `yaml:"seed"`
	MaxTrials         int     `yaml:"max_trials"`
	StopProbability   float64 `yaml:"stop_probability"`
	ResidualThreshold float64 `yaml:"residual_threshold"` // 0 means median absolute deviation of y
}

// DefaultFitOptions returns the fitter defaults.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		Seed:            42,
		MaxTrials:       100,
		StopProbability: 0.99,
	}
}

// FitTrendline fits a line through (xs[i], ys[i]) that tolerates a minority of outliers.
//
// Each trial samples two distinct points, draws the line through them and counts the points whose
// absolute residual is within the threshold. The candidate with the most inliers wins, ties going to
// the smaller inlier sum of squared residuals. The result is the least-squares line over the winning
// inlier set.
func FitTrendline(xs []int, ys []float64, opts FitOptions) (model.Trendline, error) {
	n := len(xs)
	if n != len(ys) {
		return model.Trendline{}, fmt.Errorf("%d x values vs %d y values: %w", n, len(ys), ErrDegenerateFit)
	}
	if n < 2 {
		return model.Trendline{}, fmt.Errorf("%d points: %w", n, ErrDegenerateFit)
	}
	if opts.MaxTrials <= 0 {
		opts.MaxTrials = DefaultFitOptions().MaxTrials
	}
	if opts.StopProbability <= 0 || opts.StopProbability > 1 {
		opts.StopProbability = DefaultFitOptions().StopProbability
	}

	fx := make([]float64, n)
	for i, x := range xs {
		fx[i] = float64(x)
	}

	threshold := opts.ResidualThreshold
	if threshold <= 0 {
		threshold = medianAbsDeviation(ys)
	}
	if threshold < minResidualThreshold {
		threshold = minResidualThreshold
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	var (
		bestInliers []int
		bestSSR     = math.Inf(1)
		inliers     = make([]int, 0, n)
	)

	for trial := 0; trial < opts.MaxTrials; trial++ {
		a := rng.Intn(n)
		b := rng.Intn(n - 1)
		if b >= a {
			b++
		}
		if fx[a] == fx[b] {
			continue
		}
		slope := (ys[b] - ys[a]) / (fx[b] - fx[a])
		intercept := ys[a] - slope*fx[a]

		inliers = inliers[:0]
		ssr := 0.0
		for i := 0; i < n; i++ {
			r := math.Abs(ys[i] - (slope*fx[i] + intercept))
			if r <= threshold {
				inliers = append(inliers, i)
				ssr += r * r
			}
		}

		if len(inliers) < len(bestInliers) {
			continue
		}
		if len(inliers) == len(bestInliers) && ssr >= bestSSR {
			continue
		}
		bestInliers = append(bestInliers[:0], inliers...)
		bestSSR = ssr

		if float64(trial+1) >= dynamicMaxTrials(len(bestInliers), n, 2, opts.StopProbability) {
			break
		}
	}

	if len(bestInliers) < 2 {
		return model.Trendline{}, fmt.Errorf("no consensus set among %d points: %w", n, ErrDegenerateFit)
	}

	ix := make([]float64, len(bestInliers))
	iy := make([]float64, len(bestInliers))
	for k, i := range bestInliers {
		ix[k] = fx[i]
		iy[k] = ys[i]
	}
	intercept, slope := stat.LinearRegression(ix, iy, nil, false)
	return model.Trendline{Slope: slope, Intercept: intercept}, nil
}

// dynamicMaxTrials is the number of trials needed to draw an all-inlier sample with the
// given probability at the current inlier ratio.
func dynamicMaxTrials(nInliers, nSamples, minSamples int, probability float64) float64 {
	const eps = 1e-12
	ratio := float64(nInliers) / float64(nSamples)
	nom := math.Max(eps, 1-probability)
	denom := math.Max(eps, 1-math.Pow(ratio, float64(minSamples)))
	if nom == 1 {
		return 0
	}
	if denom == 1 {
		return math.Inf(1)
	}
	return math.Ceil(math.Abs(math.Log(nom) / math.Log(denom)))
}

func medianAbsDeviation(values []float64) float64 {
	med := median(values)
	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - med)
	}
	return median(dev)
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// FitTrendlines fits resistance through the swing highs and support through the swing lows.
func FitTrendlines(values []float64, pivots model.PivotSet, opts FitOptions) (resistance, support model.Trendline, err error) {
	resistance, err = FitTrendline(pivots.Highs, pick(values, pivots.Highs), opts)
	if err != nil {
		return model.Trendline{}, model.Trendline{}, fmt.Errorf("resistance: %w", err)
	}
	support, err = FitTrendline(pivots.Lows, pick(values, pivots.Lows), opts)
	if err != nil {
		return model.Trendline{}, model.Trendline{}, fmt.Errorf("support: %w", err)
	}
	return resistance, support, nil
}

func pick(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
