package search

import (
	"github.com/nvr-ai/go-localize/common"
	"github.com/nvr-ai/go-localize/images"
	"github.com/pkg/errors"
)

// transform maps a box to its successor under one action.
type transform func(b common.Box, s images.Size) common.Box

var transforms = [NumActions]transform{
	XCoordUp:        xCoordUp,
	YCoordUp:        yCoordUp,
	ScaleUp:         scaleUp,
	AspectRatioUp:   aspectRatioUp,
	XCoordDown:      xCoordDown,
	YCoordDown:      yCoordDown,
	ScaleDown:       scaleDown,
	AspectRatioDown: aspectRatioDown,
	PlaceLandmark:   reset,
}

// Transform applies action to b without touching any State.
//
// PlaceLandmark returns the full-image box; recording the landmark is the
// State's job.
//
// Arguments:
//   - action: The action to apply.
//   - b: The current box.
//   - s: The image dimensions.
//
// Returns:
//   - common.Box: The transformed box.
//   - error: ErrInvalidAction for an unknown action.
func Transform(action Action, b common.Box, s images.Size) (common.Box, error) {
	if !action.Valid() {
		return b, errors.Wrapf(ErrInvalidAction, "%d", int(action))
	}
	return transforms[action](b, s), nil
}

func maxX(s images.Size) float64 { return float64(s.Width - 1) }
func maxY(s images.Size) float64 { return float64(s.Height - 1) }

// clampDelta keeps the largest candidate delta that is not negative.
func clampDelta(candidates ...float64) float64 {
	d := candidates[0]
	for _, c := range candidates[1:] {
		d = min(d, c)
	}
	return max(d, 0)
}

// Translations preserve width and height.

func xCoordUp(b common.Box, s images.Size) common.Box {
	w := b.Width()
	step := StepFactor * w
	if b.X2+step <= maxX(s) {
		b = b.Translate(step, 0)
	} else {
		b.X1, b.X2 = maxX(s)-w, maxX(s)
	}
	return adjustAndClip(b, s)
}

func yCoordUp(b common.Box, s images.Size) common.Box {
	h := b.Height()
	step := StepFactor * h
	if b.Y2+step <= maxY(s) {
		b = b.Translate(0, step)
	} else {
		b.Y1, b.Y2 = maxY(s)-h, maxY(s)
	}
	return adjustAndClip(b, s)
}

func xCoordDown(b common.Box, s images.Size) common.Box {
	w := b.Width()
	step := StepFactor * w
	if b.X1-step >= 0 {
		b = b.Translate(-step, 0)
	} else {
		b.X1, b.X2 = 0, w
	}
	return adjustAndClip(b, s)
}

func yCoordDown(b common.Box, s images.Size) common.Box {
	h := b.Height()
	step := StepFactor * h
	if b.Y1-step >= 0 {
		b = b.Translate(0, -step)
	} else {
		b.Y1, b.Y2 = 0, h
	}
	return adjustAndClip(b, s)
}

// Scaling preserves the aspect ratio.

func scaleUp(b common.Box, s images.Size) common.Box {
	w, h := b.Width(), b.Height()
	delta := clampDelta(DeltaSize, maxX(s)/w-1, maxY(s)/h-1)
	return adjustAndClip(grow(b, delta*w/2, delta*h/2), s)
}

func scaleDown(b common.Box, s images.Size) common.Box {
	w, h := b.Width(), b.Height()
	delta := clampDelta(DeltaSize, 1-MinBoxSide/w, 1-MinBoxSide/h)
	return adjustAndClip(grow(b, -delta*w/2, -delta*h/2), s)
}

// aspectRatioUp grows the height and keeps the width.
func aspectRatioUp(b common.Box, s images.Size) common.Box {
	w, h := b.Width(), b.Height()
	delta := clampDelta(DeltaSize, maxY(s)/h-1, MaxAspectRatio*w/h-1)
	return adjustAndClip(grow(b, 0, delta*h/2), s)
}

// aspectRatioDown grows the width and keeps the height.
func aspectRatioDown(b common.Box, s images.Size) common.Box {
	w, h := b.Width(), b.Height()
	delta := clampDelta(DeltaSize, maxX(s)/w-1, h/(MinAspectRatio*w)-1)
	return adjustAndClip(grow(b, delta*w/2, 0), s)
}

func reset(_ common.Box, s images.Size) common.Box {
	return s.Full()
}

// grow moves every edge outward by (dx, dy); negative values shrink the box.
func grow(b common.Box, dx, dy float64) common.Box {
	return common.NewBox(b.X1-dx, b.Y1-dy, b.X2+dx, b.Y2+dy)
}

// adjustAndClip brings every edge back inside [0, dim-1]. Edges are checked
// left, top, right, bottom; each check sees the result of the previous one.
// An overshooting box is shifted inward when the opposite edge has room,
// otherwise it spans the whole axis.
func adjustAndClip(b common.Box, s images.Size) common.Box {
	mx, my := maxX(s), maxY(s)

	if b.X1 < 0 {
		if step := -b.X1; b.X2+step <= mx {
			b.X1, b.X2 = 0, b.X2+step
		} else {
			b.X1, b.X2 = 0, mx
		}
	}
	if b.Y1 < 0 {
		if step := -b.Y1; b.Y2+step <= my {
			b.Y1, b.Y2 = 0, b.Y2+step
		} else {
			b.Y1, b.Y2 = 0, my
		}
	}
	if b.X2 > mx {
		if step := b.X2 - mx; b.X1-step >= 0 {
			b.X1, b.X2 = b.X1-step, mx
		} else {
			b.X1, b.X2 = 0, mx
		}
	}
	if b.Y2 > my {
		if step := b.Y2 - my; b.Y1-step >= 0 {
			b.Y1, b.Y2 = b.Y1-step, my
		} else {
			b.Y1, b.Y2 = 0, my
		}
	}
	return b
}

// checkBox asserts the invariants every action must preserve.
func checkBox(b common.Box, s images.Size) error {
	if !b.Valid() || !s.Contains(b) {
		return errors.Wrapf(ErrDegenerateBox, "%s in %s image", b, s)
	}
	return nil
}
