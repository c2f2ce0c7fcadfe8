// Package localizer - Per-object box refinement driven by action-value estimates.
package localizer

import (
	"fmt"

	"github.com/nvr-ai/go-localize/common"
	"github.com/nvr-ai/go-localize/images"
	"github.com/pkg/errors"
)

// Action is one of the ten refinement actions.
type Action int

// Actions. Values index the Q-value vector passed to PerformAction.
const (
	Accept Action = iota
	Reject
	ExpandTop
	ExpandBottom
	ExpandLeft
	ExpandRight
	ReduceTop
	ReduceBottom
	ReduceLeft
	ReduceRight
)

// NumActions is the size of the action space.
const NumActions = 10

// AdjustPercent is the fraction of the box side moved by one adjustment.
const AdjustPercent = 0.1

var (
	// ErrInvalidAction is returned for action codes outside the action space.
	ErrInvalidAction = errors.New("unknown localizer action")
	// ErrInvalidBox is returned for a box without positive area or outside the image.
	ErrInvalidBox = errors.New("invalid box")
	// ErrMissingValues is returned when the value vector lacks the Accept and Reject entries.
	ErrMissingValues = errors.New("value estimates must include accept and reject")
)

// Status tracks where a localizer is in its episode.
type Status int

const (
	// NotStarted means no action has been applied yet.
	NotStarted Status = iota
	// Running means the last action was an adjustment.
	Running
	// Accepted means the last action was Accept; the box is frozen.
	Accepted
	// Rejected means the last action was Reject; the box is frozen.
	Rejected
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// adjustment moves a single coordinate of the box.
type adjustment struct {
	direction float64
	axis      byte
	coord     int
}

var adjustments = map[Action]adjustment{
	ExpandTop:    {-1, 'y', common.CoordY1},
	ExpandBottom: {1, 'y', common.CoordY2},
	ExpandLeft:   {-1, 'x', common.CoordX1},
	ExpandRight:  {1, 'x', common.CoordX2},
	ReduceTop:    {1, 'y', common.CoordY1},
	ReduceBottom: {-1, 'y', common.CoordY2},
	ReduceLeft:   {1, 'x', common.CoordX1},
	ReduceRight:  {-1, 'x', common.CoordX2},
}

var actionNames = [NumActions]string{
	Accept:       "accept",
	Reject:       "reject",
	ExpandTop:    "expand_top",
	ExpandBottom: "expand_bottom",
	ExpandLeft:   "expand_left",
	ExpandRight:  "expand_right",
	ReduceTop:    "reduce_top",
	ReduceBottom: "reduce_bottom",
	ReduceLeft:   "reduce_left",
	ReduceRight:  "reduce_right",
}

// Valid reports whether a is one of the ten actions.
func (a Action) Valid() bool {
	return a >= 0 && a < NumActions
}

// Terminal reports whether a ends the episode.
func (a Action) Terminal() bool {
	return a == Accept || a == Reject
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// Adjust applies a refinement action to a box without touching any Localizer.
//
// The delta is AdjustPercent of the box width (x actions) or height (y
// actions). Only the named coordinate moves. Values below 0 snap to 0 and
// values at or past limit snap to limit-1; a fractional value between
// limit-1 and limit is kept.
// Accept and Reject return the box unchanged.
//
// Arguments:
//   - action: The refinement action.
//   - b: The box before the action.
//   - s: The image dimensions.
//
// Returns:
//   - common.Box: The adjusted box.
//   - error: ErrInvalidAction for an unknown action.
func Adjust(action Action, b common.Box, s images.Size) (common.Box, error) {
	if action.Terminal() {
		return b, nil
	}
	adj, ok := adjustments[action]
	if !ok {
		return b, errors.Wrapf(ErrInvalidAction, "%d", int(action))
	}

	delta, limit := b.Width()*AdjustPercent, s.Width
	if adj.axis == 'y' {
		delta, limit = b.Height()*AdjustPercent, s.Height
	}

	v := b.Coord(adj.coord) + adj.direction*delta
	if v < 0 {
		v = 0
	}
	if v >= float64(limit) {
		v = float64(limit - 1)
	}
	return b.WithCoord(adj.coord, v), nil
}

// Localizer refines the box of a single object.
//
// Accept and Reject take effect one call late: the call that chooses them
// is recorded like any other step, and every later call returns the frozen
// action.
//
// Localizer is not safe for concurrent use.
type Localizer struct {
	size images.Size
	prev common.Box
	next common.Box

	last    Action
	started bool

	history       []Action
	terminalScore float64
}

// New creates a localizer for one object.
//
// Arguments:
//   - size: The image dimensions.
//   - initial: The starting box.
//
// Returns:
//   - *Localizer: The localizer, in the NotStarted status.
//   - error: An error if the size or the box is invalid.
func New(size images.Size, initial common.Box) (*Localizer, error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}
	if !initial.Valid() || !size.Contains(initial) {
		return nil, errors.Wrapf(ErrInvalidBox, "%s in %s image", initial, size)
	}
	return &Localizer{size: size, prev: initial, next: initial}, nil
}

// PerformAction applies one decision step.
//
// Arguments:
//   - action: The action chosen by the policy.
//   - values: Value estimates indexed by action; at least Accept and Reject.
//
// Returns:
//   - Action: The applied action, or the frozen terminal action.
//   - error: ErrMissingValues, ErrInvalidAction or ErrInvalidBox; nothing is
//     mutated on error.
func (l *Localizer) PerformAction(action Action, values []float64) (Action, error) {
	if len(values) <= int(Reject) {
		return action, errors.Wrapf(ErrMissingValues, "got %d values", len(values))
	}

	switch l.Status() {
	case Accepted:
		l.terminalScore = values[Accept]
		return Accept, nil
	case Rejected:
		l.terminalScore = -values[Reject]
		return Reject, nil
	}

	next, err := Adjust(action, l.next, l.size)
	if err != nil {
		return action, err
	}
	if !next.Valid() {
		return action, errors.Wrapf(ErrInvalidBox, "%s after %s", next, action)
	}
	if !action.Terminal() {
		l.prev, l.next = l.next, next
	}

	l.last = action
	l.started = true
	l.terminalScore = values[Accept] - values[Reject]
	l.history = append(l.history, action)
	return action, nil
}

// Status returns the episode status.
func (l *Localizer) Status() Status {
	switch {
	case !l.started:
		return NotStarted
	case l.last == Accept:
		return Accepted
	case l.last == Reject:
		return Rejected
	}
	return Running
}

// Terminal reports whether the box is frozen.
func (l *Localizer) Terminal() bool {
	s := l.Status()
	return s == Accepted || s == Rejected
}

// LastAction returns the last applied action; ok is false before the first one.
func (l *Localizer) LastAction() (action Action, ok bool) {
	return l.last, l.started
}

// Box returns the current box.
func (l *Localizer) Box() common.Box { return l.next }

// PrevBox returns the box before the most recent adjustment.
func (l *Localizer) PrevBox() common.Box { return l.prev }

// Size returns the image dimensions.
func (l *Localizer) Size() images.Size { return l.size }

// TerminalScore returns the score set by the most recent call.
func (l *Localizer) TerminalScore() float64 { return l.terminalScore }

// History returns a copy of the applied actions in order.
func (l *Localizer) History() []Action {
	return append([]Action(nil), l.history...)
}
