package search

import (
	"math/rand/v2"
	"sort"

	"github.com/nvr-ai/go-localize/common"
	"github.com/nvr-ai/go-localize/images"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidAction is returned for action codes outside the action space.
	ErrInvalidAction = errors.New("invalid search action")
	// ErrImageTooSmall is returned when a random start cannot fit in the image.
	ErrImageTooSmall = errors.New("image too small for a random start")
	// ErrDegenerateBox is returned when an action would leave the box empty or out of bounds.
	ErrDegenerateBox = errors.New("degenerate box")
)

// State is the search state of one image for one episode.
//
// State is not safe for concurrent use.
type State struct {
	id   string
	size images.Size
	box  common.Box

	landmarks map[common.Fingerprint]common.Box

	lastAction Action
	lastValue  float64
}

type options struct {
	rng *rand.Rand
}

// Option configures NewState.
type Option func(*options)

// WithRandomStart starts the search from a random box drawn with rng
// instead of the full image.
func WithRandomStart(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// NewState creates the search state for an image.
//
// Arguments:
//   - id: The image identifier.
//   - size: The image dimensions.
//   - opts: Optional settings, see WithRandomStart.
//
// Returns:
//   - *State: The initialized state, with an empty landmark index.
//   - error: An error if the image is too small for the requested start.
//
// @example
// state, err := search.NewState("000005", images.Size{Width: 500, Height: 375})
func NewState(id string, size images.Size, opts ...Option) (*State, error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	box := size.Full()
	if o.rng != nil {
		var err error
		if box, err = randomBox(o.rng, size); err != nil {
			return nil, err
		}
	}

	return &State{
		id:         id,
		size:       size,
		box:        box,
		landmarks:  make(map[common.Fingerprint]common.Box),
		lastAction: ScaleUp,
	}, nil
}

// randomBox picks a center at least MinBoxSide from every edge and half
// extents that keep the box inside the image without clipping.
func randomBox(rng *rand.Rand, s images.Size) (common.Box, error) {
	hiA := s.Width - 1 - MinBoxSide
	hiB := s.Height - 1 - MinBoxSide
	if hiA < MinBoxSide || hiB < MinBoxSide {
		return common.Box{}, errors.Wrapf(ErrImageTooSmall, "%s", s)
	}

	a := between(rng, MinBoxSide, hiA)
	b := between(rng, MinBoxSide, hiB)
	c := between(rng, MinBoxSide, min(s.Width-1-a, a))
	d := between(rng, MinBoxSide, min(s.Height-1-b, b))

	return common.NewBox(float64(a-c), float64(b-d), float64(a+c), float64(b+d)), nil
}

// between returns a uniform integer in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

// PerformAction applies an action to the current box.
//
// PlaceLandmark stores the current box in the landmark index and resets the
// box to the full image.
//
// Arguments:
//   - action: The action chosen by the policy.
//   - value: The action-value estimate that led to the choice.
//
// Returns:
//   - common.Box: The new current box.
//   - error: ErrInvalidAction for an unknown action, ErrDegenerateBox if the
//     result breaks the box invariants. The state is unchanged on error.
func (s *State) PerformAction(action Action, value float64) (common.Box, error) {
	next, err := Transform(action, s.box, s.size)
	if err != nil {
		return s.box, err
	}
	if err := checkBox(next, s.size); err != nil {
		return s.box, errors.Wrapf(err, "after %s", action)
	}

	if action == PlaceLandmark {
		s.landmarks[s.box.Fingerprint()] = s.box
	}
	s.lastAction = action
	s.lastValue = value
	s.box = next
	return next, nil
}

// Representation returns the proximity features of the current box: its IoU
// with every landmark, largest first, truncated or zero-padded to
// NumProximityFeatures values.
func (s *State) Representation() []float32 {
	ious := make([]float32, 0, max(len(s.landmarks), NumProximityFeatures))
	for _, lm := range s.landmarks {
		ious = append(ious, s.box.IoU(lm))
	}
	sort.Slice(ious, func(i, j int) bool { return ious[i] > ious[j] })

	features := make([]float32, NumProximityFeatures)
	copy(features, ious)
	return features
}

// VisitedBefore reports whether the current box has already been placed as
// a landmark. Boxes match when their truncated coordinates match.
func (s *State) VisitedBefore() bool {
	_, ok := s.landmarks[s.box.Fingerprint()]
	return ok
}

// Landmarks returns the placed landmarks ordered by fingerprint.
func (s *State) Landmarks() []common.Box {
	keys := make([]common.Fingerprint, 0, len(s.landmarks))
	for fp := range s.landmarks {
		keys = append(keys, fp)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	out := make([]common.Box, len(keys))
	for i, fp := range keys {
		out[i] = s.landmarks[fp]
	}
	return out
}

// ID returns the image identifier.
func (s *State) ID() string { return s.id }

// Size returns the image dimensions.
func (s *State) Size() images.Size { return s.size }

// Box returns the current box.
func (s *State) Box() common.Box { return s.box }

// Width returns the current box width.
func (s *State) Width() float64 { return s.box.Width() }

// Height returns the current box height.
func (s *State) Height() float64 { return s.box.Height() }

// AspectRatio returns the current box height/width.
func (s *State) AspectRatio() float64 { return s.box.AspectRatio() }

// LastAction returns the most recent action, ScaleUp before the first one.
func (s *State) LastAction() Action { return s.lastAction }

// LastValue returns the value estimate passed with the most recent action.
func (s *State) LastValue() float64 { return s.lastValue }
