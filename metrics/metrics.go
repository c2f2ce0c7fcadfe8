// Package metrics - Overlap measures for predicted box sequences.
package metrics

import (
	"sort"

	"github.com/nvr-ai/go-localize/common"
	"github.com/nvr-ai/go-localize/images"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrShapeMismatch is returned when two batches of sequences differ in shape.
var ErrShapeMismatch = errors.New("sequence shape mismatch")

// Summary holds per-frame statistics across sequences.
type Summary struct {
	Mean   []float64 `json:"mean" yaml:"mean"`
	Max    []float64 `json:"max" yaml:"max"`
	Min    []float64 `json:"min" yaml:"min"`
	Median []float64 `json:"median" yaml:"median"`
	Std    []float64 `json:"std" yaml:"std"`
}

// ScaleBoxes maps boxes from one frame size to another.
//
// Arguments:
//   - boxes: Boxes in the source frame.
//   - from: The source frame dimensions.
//   - to: The target frame dimensions.
//
// Returns:
//   - []common.Box: New boxes in the target frame.
func ScaleBoxes(boxes []common.Box, from, to images.Size) []common.Box {
	sx := float64(to.Width) / float64(from.Width)
	sy := float64(to.Height) / float64(from.Height)

	out := make([]common.Box, len(boxes))
	for i, b := range boxes {
		out[i] = common.NewBox(b.X1*sx, b.Y1*sy, b.X2*sx, b.Y2*sy)
	}
	return out
}

// SequenceIoU computes the IoU of every predicted box with its ground truth.
//
// Arguments:
//   - truth: Ground-truth boxes, one slice per sequence, one box per frame.
//   - pred: Predicted boxes with the same shape as truth.
//
// Returns:
//   - [][]float64: IoU per sequence and frame.
//   - error: ErrShapeMismatch if the shapes differ.
func SequenceIoU(truth, pred [][]common.Box) ([][]float64, error) {
	if len(truth) != len(pred) {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d truth sequences, %d predicted", len(truth), len(pred))
	}

	out := make([][]float64, len(truth))
	for i := range truth {
		if len(truth[i]) != len(pred[i]) {
			return nil, errors.Wrapf(ErrShapeMismatch, "sequence %d: %d truth frames, %d predicted", i, len(truth[i]), len(pred[i]))
		}
		out[i] = make([]float64, len(truth[i]))
		for f := range truth[i] {
			out[i][f] = float64(truth[i][f].IoU(pred[i][f]))
		}
	}
	return out, nil
}

// Summarize reduces IoU sequences to per-frame statistics. Std is the
// population standard deviation.
//
// Arguments:
//   - ious: IoU per sequence and frame; every sequence must have the same length.
//
// Returns:
//   - Summary: One value per frame for each statistic.
//   - error: ErrShapeMismatch for ragged or empty input.
func Summarize(ious [][]float64) (Summary, error) {
	if len(ious) == 0 {
		return Summary{}, errors.Wrap(ErrShapeMismatch, "no sequences")
	}
	frames := len(ious[0])
	for i, seq := range ious {
		if len(seq) != frames {
			return Summary{}, errors.Wrapf(ErrShapeMismatch, "sequence %d has %d frames, want %d", i, len(seq), frames)
		}
	}

	s := Summary{
		Mean:   make([]float64, frames),
		Max:    make([]float64, frames),
		Min:    make([]float64, frames),
		Median: make([]float64, frames),
		Std:    make([]float64, frames),
	}
	col := make([]float64, len(ious))
	for f := 0; f < frames; f++ {
		for i, seq := range ious {
			col[i] = seq[f]
		}
		s.Mean[f], s.Std[f] = stat.PopMeanStdDev(col, nil)
		s.Max[f] = floats.Max(col)
		s.Min[f] = floats.Min(col)
		s.Median[f] = median(col)
	}
	return s, nil
}

// median averages the two middle values of an even-length sample.
func median(x []float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
