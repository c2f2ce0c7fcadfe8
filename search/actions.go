// Package search - Box search state for the landmark-placing localization agent.
//
// A State owns one image's candidate box and mutates it under nine discrete
// actions: translate along x or y, scale, change the aspect ratio, or place
// a landmark. Every geometric action keeps the box inside the image.
package search

import "fmt"

// Action is one of the nine discrete box transformations.
type Action int

// Actions. Values are the indexes of the agent's Q-value vector.
const (
	XCoordUp Action = iota
	YCoordUp
	ScaleUp
	AspectRatioUp
	XCoordDown
	YCoordDown
	ScaleDown
	AspectRatioDown
	PlaceLandmark
)

// NumActions is the size of the action space.
const NumActions = 9

// Box limits.
const (
	MinAspectRatio = 0.20
	MaxAspectRatio = 5.00
	MinBoxSide     = 20
	StepFactor     = 0.10
	DeltaSize      = 0.10
)

// NumProximityFeatures is the length of the vector returned by State.Representation.
const NumProximityFeatures = 8

var actionNames = [NumActions]string{
	XCoordUp:        "x_coord_up",
	YCoordUp:        "y_coord_up",
	ScaleUp:         "scale_up",
	AspectRatioUp:   "aspect_ratio_up",
	XCoordDown:      "x_coord_down",
	YCoordDown:      "y_coord_down",
	ScaleDown:       "scale_down",
	AspectRatioDown: "aspect_ratio_down",
	PlaceLandmark:   "place_landmark",
}

// Valid reports whether a is one of the nine actions.
func (a Action) Valid() bool {
	return a >= 0 && a < NumActions
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}
