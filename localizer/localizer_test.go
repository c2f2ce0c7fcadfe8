package localizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvr-ai/go-localize/common"
	"github.com/nvr-ai/go-localize/images"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var size100 = images.Size{Width: 100, Height: 100}

func newLocalizer(t *testing.T, b common.Box) *Localizer {
	t.Helper()
	l, err := New(size100, b)
	require.NoError(t, err)
	return l
}

func TestNew(t *testing.T) {
	l := newLocalizer(t, common.NewBox(10, 10, 50, 50))

	assert.Equal(t, NotStarted, l.Status())
	assert.False(t, l.Terminal())
	_, ok := l.LastAction()
	assert.False(t, ok)
	assert.Empty(t, l.History())
	assert.Equal(t, 0.0, l.TerminalScore())

	_, err := New(images.Size{Width: 0, Height: 10}, common.NewBox(0, 0, 1, 1))
	assert.True(t, errors.Is(err, images.ErrInvalidSize))
}

func TestNewRejectsInvalidBoxes(t *testing.T) {
	tests := []struct {
		name string
		box  common.Box
	}{
		{"zero width", common.NewBox(50, 10, 50, 60)},
		{"inverted", common.NewBox(60, 10, 50, 60)},
		{"right of image", common.NewBox(120, 10, 150, 50)},
		{"past right edge", common.NewBox(10, 10, 100, 50)},
		{"past bottom edge", common.NewBox(10, 10, 50, 100)},
		{"negative origin", common.NewBox(-1, 10, 50, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(size100, tt.box)
			assert.True(t, errors.Is(err, ErrInvalidBox), "got %v", err)
		})
	}

	_, err := New(size100, common.NewBox(0, 0, 99, 99))
	assert.NoError(t, err, "the full image is a valid start")
}

func TestPerformActionRejectsInvertedBox(t *testing.T) {
	// Only reachable when the box was placed outside the image without New.
	start := common.NewBox(120, 10, 150, 50)
	l := &Localizer{size: size100, prev: start, next: start}

	_, err := l.PerformAction(ReduceRight, []float64{0, 0})
	assert.True(t, errors.Is(err, ErrInvalidBox), "got %v", err)
	assert.Equal(t, start, l.Box())
	assert.Equal(t, NotStarted, l.Status())
	assert.Empty(t, l.History())
}

// TestAcceptIsDetectedOneCallLate walks the documented episode: an
// adjustment, the Accept decision, then a frozen call.
func TestAcceptIsDetectedOneCallLate(t *testing.T) {
	l := newLocalizer(t, common.NewBox(10, 10, 50, 50))

	got, err := l.PerformAction(ExpandTop, []float64{1, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, ExpandTop, got)
	assert.InDelta(t, 6.0, l.Box().Y1, 1e-9)
	assert.Equal(t, common.NewBox(10, 10, 50, 50), l.PrevBox())
	assert.Equal(t, 1.0, l.TerminalScore())
	assert.Equal(t, Running, l.Status())

	got, err = l.PerformAction(Accept, []float64{5, 2})
	require.NoError(t, err)
	assert.Equal(t, Accept, got)
	assert.Equal(t, 3.0, l.TerminalScore())
	assert.Equal(t, Accepted, l.Status())
	assert.InDelta(t, 6.0, l.Box().Y1, 1e-9, "accept must not move the box")

	box := l.Box()
	got, err = l.PerformAction(ReduceLeft, []float64{7, 1})
	require.NoError(t, err)
	assert.Equal(t, Accept, got)
	assert.Equal(t, 7.0, l.TerminalScore())
	assert.Equal(t, box, l.Box())

	if diff := cmp.Diff([]Action{ExpandTop, Accept}, l.History()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestRejectFreezes(t *testing.T) {
	l := newLocalizer(t, common.NewBox(10, 10, 50, 50))

	_, err := l.PerformAction(Reject, []float64{0.2, 0.9})
	require.NoError(t, err)
	assert.InDelta(t, -0.7, l.TerminalScore(), 1e-9)
	assert.True(t, l.Terminal())

	for _, a := range []Action{ExpandRight, Accept, Action(99)} {
		got, err := l.PerformAction(a, []float64{0.4, 0.6})
		require.NoError(t, err)
		assert.Equal(t, Reject, got)
		assert.Equal(t, -0.6, l.TerminalScore())
	}
	assert.Equal(t, []Action{Reject}, l.History())
	assert.Equal(t, common.NewBox(10, 10, 50, 50), l.Box())
}

func TestPerformActionGeometry(t *testing.T) {
	start := common.NewBox(10, 20, 50, 70)

	tests := []struct {
		action   Action
		expected common.Box
	}{
		{ExpandTop, common.NewBox(10, 15, 50, 70)},
		{ExpandBottom, common.NewBox(10, 20, 50, 75)},
		{ExpandLeft, common.NewBox(6, 20, 50, 70)},
		{ExpandRight, common.NewBox(10, 20, 54, 70)},
		{ReduceTop, common.NewBox(10, 25, 50, 70)},
		{ReduceBottom, common.NewBox(10, 20, 50, 65)},
		{ReduceLeft, common.NewBox(14, 20, 50, 70)},
		{ReduceRight, common.NewBox(10, 20, 46, 70)},
		{Accept, start},
		{Reject, start},
	}

	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			l := newLocalizer(t, start)
			_, err := l.PerformAction(tt.action, []float64{0, 0})
			require.NoError(t, err)

			got := l.Box()
			assert.InDelta(t, tt.expected.X1, got.X1, 1e-9)
			assert.InDelta(t, tt.expected.Y1, got.Y1, 1e-9)
			assert.InDelta(t, tt.expected.X2, got.X2, 1e-9)
			assert.InDelta(t, tt.expected.Y2, got.Y2, 1e-9)
			assert.Equal(t, tt.action, l.History()[0])
		})
	}
}

func TestAdjustClampsToImage(t *testing.T) {
	tests := []struct {
		name     string
		action   Action
		start    common.Box
		expected common.Box
	}{
		{"left edge", ExpandLeft, common.NewBox(2, 10, 52, 60), common.NewBox(0, 10, 52, 60)},
		{"top edge", ExpandTop, common.NewBox(10, 0, 60, 50), common.NewBox(10, 0, 60, 50)},
		{"right edge", ExpandRight, common.NewBox(40, 10, 95, 60), common.NewBox(40, 10, 99, 60)},
		{"bottom edge", ExpandBottom, common.NewBox(10, 50, 60, 99), common.NewBox(10, 50, 60, 99)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Adjust(tt.action, tt.start, size100)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAdjustKeepsFractionalValueBelowLimit(t *testing.T) {
	// 95.5 + 0.1*40 lands in (99, 100); only values at or past 100 snap.
	got, err := Adjust(ExpandRight, common.NewBox(55.5, 10, 95.5, 60), size100)
	require.NoError(t, err)
	assert.InDelta(t, 99.5, got.X2, 1e-9)
	assert.Equal(t, 55.5, got.X1)

	got, err = Adjust(ExpandBottom, common.NewBox(10, 50, 60, 96), size100)
	require.NoError(t, err)
	assert.Equal(t, 99.0, got.Y2, "values past the limit snap to 99")
}

func TestAdjustMovesOneCoordinate(t *testing.T) {
	b := common.NewBox(10, 10, 60, 60)

	got, err := Adjust(ExpandTop, b, size100)
	require.NoError(t, err)
	assert.Equal(t, b.Y2, got.Y2, "expanding the top must not move the bottom")
	assert.Equal(t, b.X1, got.X1)
	assert.Equal(t, b.X2, got.X2)
	assert.Equal(t, common.NewBox(10, 10, 60, 60), b)
}

func TestPerformActionErrorsDoNotMutate(t *testing.T) {
	l := newLocalizer(t, common.NewBox(10, 10, 50, 50))
	_, err := l.PerformAction(ExpandLeft, []float64{2, 1})
	require.NoError(t, err)
	box, prev := l.Box(), l.PrevBox()

	_, err = l.PerformAction(Action(12), []float64{9, 9})
	assert.True(t, errors.Is(err, ErrInvalidAction))

	_, err = l.PerformAction(ExpandLeft, []float64{9})
	assert.True(t, errors.Is(err, ErrMissingValues))

	assert.Equal(t, box, l.Box())
	assert.Equal(t, prev, l.PrevBox())
	assert.Equal(t, 1.0, l.TerminalScore())
	assert.Equal(t, []Action{ExpandLeft}, l.History())
	last, ok := l.LastAction()
	assert.True(t, ok)
	assert.Equal(t, ExpandLeft, last)
}

func TestHistoryIsACopy(t *testing.T) {
	l := newLocalizer(t, common.NewBox(10, 10, 50, 50))
	_, err := l.PerformAction(ReduceTop, []float64{0, 0})
	require.NoError(t, err)

	h := l.History()
	h[0] = Reject
	assert.Equal(t, []Action{ReduceTop}, l.History())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "status(9)", Status(9).String())
	assert.Equal(t, "reduce_right", ReduceRight.String())
}
