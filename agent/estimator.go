package agent

import (
	"context"
	"math/rand/v2"

	"github.com/nvr-ai/go-localize/common"
	"github.com/nvr-ai/go-localize/localizer"
	"github.com/nvr-ai/go-localize/search"
	"gorgonia.org/tensor"
)

// SearchEstimator produces one value per search.Action for a search state.
type SearchEstimator interface {
	Estimate(ctx context.Context, s *search.State) (*tensor.Dense, error)
}

// RefineEstimator produces one value per localizer.Action for a localizer.
type RefineEstimator interface {
	Estimate(ctx context.Context, l *localizer.Localizer) (*tensor.Dense, error)
}

// SearchEstimatorFunc adapts a function to SearchEstimator.
type SearchEstimatorFunc func(ctx context.Context, s *search.State) (*tensor.Dense, error)

// Estimate implements SearchEstimator.
func (f SearchEstimatorFunc) Estimate(ctx context.Context, s *search.State) (*tensor.Dense, error) {
	return f(ctx, s)
}

// RefineEstimatorFunc adapts a function to RefineEstimator.
type RefineEstimatorFunc func(ctx context.Context, l *localizer.Localizer) (*tensor.Dense, error)

// Estimate implements RefineEstimator.
func (f RefineEstimatorFunc) Estimate(ctx context.Context, l *localizer.Localizer) (*tensor.Dense, error) {
	return f(ctx, l)
}

func randomQ(rng *rand.Rand, n int) *tensor.Dense {
	values := make([]float64, n)
	for i := range values {
		values[i] = rng.Float64()
	}
	return NewQ(values)
}

// RandomSearch returns uniform random values in [0, 1).
func RandomSearch(rng *rand.Rand) SearchEstimator {
	return SearchEstimatorFunc(func(context.Context, *search.State) (*tensor.Dense, error) {
		return randomQ(rng, search.NumActions), nil
	})
}

// RandomRefine returns uniform random values in [0, 1).
func RandomRefine(rng *rand.Rand) RefineEstimator {
	return RefineEstimatorFunc(func(context.Context, *localizer.Localizer) (*tensor.Dense, error) {
		return randomQ(rng, localizer.NumActions), nil
	})
}

// bestIoU returns the largest overlap between b and any of truth.
func bestIoU(b common.Box, truth []common.Box) float64 {
	var best float32
	for _, t := range truth {
		best = max(best, b.IoU(t))
	}
	return float64(best)
}

// SearchOracle scores search actions against known object boxes.
//
// A geometric action is worth the IoU it gains. PlaceLandmark is worth the
// current IoU once it reaches Threshold on a box not placed before, and -1
// otherwise.
type SearchOracle struct {
	Truth     []common.Box
	Threshold float64
}

// Estimate implements SearchEstimator.
func (o SearchOracle) Estimate(_ context.Context, s *search.State) (*tensor.Dense, error) {
	current := bestIoU(s.Box(), o.Truth)
	values := make([]float64, search.NumActions)

	for a := search.Action(0); a < search.NumActions; a++ {
		if a == search.PlaceLandmark {
			values[a] = -1
			if current >= o.Threshold && !s.VisitedBefore() {
				values[a] = current
			}
			continue
		}
		next, err := search.Transform(a, s.Box(), s.Size())
		if err != nil {
			return nil, err
		}
		values[a] = bestIoU(next, o.Truth) - current
	}
	return NewQ(values), nil
}

// RefineOracle scores refinement actions against a known object box.
//
// Adjustments are worth the IoU they reach. Accept is worth the current IoU
// once it reaches Threshold. Reject is worth Threshold when the IoU is below
// it and no adjustment improves on it.
type RefineOracle struct {
	Truth     common.Box
	Threshold float64
}

// Estimate implements RefineEstimator.
func (o RefineOracle) Estimate(_ context.Context, l *localizer.Localizer) (*tensor.Dense, error) {
	current := float64(l.Box().IoU(o.Truth))
	values := make([]float64, localizer.NumActions)

	improves := false
	for a := localizer.ExpandTop; a < localizer.NumActions; a++ {
		next, err := localizer.Adjust(a, l.Box(), l.Size())
		if err != nil {
			return nil, err
		}
		values[a] = float64(next.IoU(o.Truth))
		if values[a] > current {
			improves = true
		}
	}

	if current >= o.Threshold {
		values[localizer.Accept] = current
	}
	if current < o.Threshold && !improves {
		values[localizer.Reject] = o.Threshold
	}
	return NewQ(values), nil
}
