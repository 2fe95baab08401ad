package calculator

import (
	"errors"
	"fmt"
	"sort"

	"ChannelSentinel/internal/model"
)

// FindPeaks returns the indices of local maxima in values, ascending.
//
// A sample is a peak when both neighbours are lower. A flat top counts once, at the left middle of
// the plateau, and only when the samples on both sides of the plateau are lower. The first and last
// samples are never peaks. Peaks closer than distance samples to a higher peak are dropped; between
// equal heights the later peak is kept.
func FindPeaks(values []float64, distance int) ([]int, error) {
	if distance < 1 {
		return nil, errors.New("distance must be positive")
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("find peaks on %d samples: %w", len(values), ErrInsufficientData)
	}

	peaks := localMaxima(values)
	if distance > 1 && len(peaks) > 1 {
		peaks = selectByDistance(values, peaks, distance)
	}
	return peaks, nil
}

func localMaxima(values []float64) []int {
	var peaks []int
	n := len(values)
	i := 1
	for i < n-1 {
		if values[i-1] < values[i] {
			ahead := i + 1
			for ahead < n-1 && values[ahead] == values[i] {
				ahead++
			}
			if values[ahead] < values[i] {
				left, right := i, ahead-1
				peaks = append(peaks, (left+right)/2)
				i = ahead
				continue
			}
		}
		i++
	}
	return peaks
}

func selectByDistance(values []float64, peaks []int, distance int) []int {
	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}

	// ascending by height; iterating from the back visits the highest (and, on ties, the latest) first
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[peaks[order[a]]] < values[peaks[order[b]]]
	})

	for o := len(order) - 1; o >= 0; o-- {
		j := order[o]
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			keep[k] = false
		}
	}

	out := make([]int, 0, len(peaks))
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// IdentifyPivots finds swing highs on values and swing lows on the negated values,
// using lookback as the minimum separation between pivots of the same kind.
func IdentifyPivots(values []float64, lookback int) (model.PivotSet, error) {
	if lookback < 1 {
		return model.PivotSet{}, errors.New("lookback must be positive")
	}
	highs, err := FindPeaks(values, lookback)
	if err != nil {
		return model.PivotSet{}, fmt.Errorf("swing highs: %w", err)
	}

	negated := make([]float64, len(values))
	for i, v := range values {
		negated[i] = -v
	}
	lows, err := FindPeaks(negated, lookback)
	if err != nil {
		return model.PivotSet{}, fmt.Errorf("swing lows: %w", err)
	}

	return model.PivotSet{Highs: highs, Lows: lows}, nil
}
