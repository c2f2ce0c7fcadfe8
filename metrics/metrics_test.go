package metrics

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/nvr-ai/go-localize/common"
	"github.com/nvr-ai/go-localize/images"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleBoxes(t *testing.T) {
	boxes := []common.Box{common.NewBox(10, 20, 30, 40)}

	got := ScaleBoxes(boxes, images.Size{Width: 100, Height: 200}, images.Size{Width: 200, Height: 100})
	assert.Equal(t, []common.Box{common.NewBox(20, 10, 60, 20)}, got)
	assert.Equal(t, common.NewBox(10, 20, 30, 40), boxes[0])
}

func TestSequenceIoU(t *testing.T) {
	truth := [][]common.Box{
		{common.NewBox(0, 0, 100, 100), common.NewBox(0, 0, 100, 100)},
	}
	pred := [][]common.Box{
		{common.NewBox(0, 0, 100, 100), common.NewBox(25, 25, 75, 75)},
	}

	got, err := SequenceIoU(truth, pred)
	require.NoError(t, err)
	if diff := cmp.Diff([][]float64{{1, 0.25}}, got, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("SequenceIoU mismatch (-want +got):\n%s", diff)
	}

	_, err = SequenceIoU(truth, [][]common.Box{{common.NewBox(0, 0, 1, 1)}})
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = SequenceIoU(truth, nil)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestSummarize(t *testing.T) {
	ious := [][]float64{
		{0.2, 1.0},
		{0.4, 0.0},
		{0.6, 0.5},
		{0.8, 0.5},
	}

	s, err := Summarize(ious)
	require.NoError(t, err)

	approx := cmpopts.EquateApprox(0, 1e-9)
	want := Summary{
		Mean:   []float64{0.5, 0.5},
		Max:    []float64{0.8, 1.0},
		Min:    []float64{0.2, 0.0},
		Median: []float64{0.5, 0.5},
		Std:    []float64{0.22360679774997896, 0.35355339059327373},
	}
	if diff := cmp.Diff(want, s, approx); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeRejectsRaggedInput(t *testing.T) {
	_, err := Summarize(nil)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = Summarize([][]float64{{1, 2}, {1}})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestMedianOdd(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
}
