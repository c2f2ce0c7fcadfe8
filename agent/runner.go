package agent

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-localize/common"
	"github.com/nvr-ai/go-localize/localizer"
	"github.com/nvr-ai/go-localize/search"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DefaultMaxSteps bounds an episode when the runner is built without a limit.
const DefaultMaxSteps = 100

// Step is one decision of an episode.
type Step struct {
	Action int        `json:"action" yaml:"action"`
	Name   string     `json:"name" yaml:"name"`
	Value  float64    `json:"value" yaml:"value"`
	Box    common.Box `json:"box" yaml:"box"`
}

// Episode is the trajectory of one search or refinement run.
type Episode struct {
	ID    uuid.UUID  `json:"id" yaml:"id"`
	Image string     `json:"image,omitempty" yaml:"image,omitempty"`
	Steps []Step     `json:"steps" yaml:"steps"`
	Final common.Box `json:"final" yaml:"final"`

	// Search episodes only.
	Landmarks []common.Box `json:"landmarks,omitempty" yaml:"landmarks,omitempty"`
	Features  []float32    `json:"features,omitempty" yaml:"features,omitempty"`

	// Refinement episodes only.
	Status string  `json:"status,omitempty" yaml:"status,omitempty"`
	Score  float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// Runner drives search states and localizers with a policy, one action per step.
type Runner struct {
	policy   Policy
	maxSteps int
	logger   *slog.Logger
}

// NewRunner creates a runner.
//
// Arguments:
//   - policy: The action selection policy.
//   - maxSteps: The episode length limit; DefaultMaxSteps when not positive.
//   - logger: Destination for step and episode logs; discarded when nil.
//
// Returns:
//   - *Runner: The runner.
func NewRunner(policy Policy, maxSteps int, logger *slog.Logger) *Runner {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{policy: policy, maxSteps: maxSteps, logger: logger}
}

// choose runs the policy over q and returns the action with its value.
func (r *Runner) choose(q *tensor.Dense, n int) (int, float64, []float64, error) {
	values, err := Values(q)
	if err != nil {
		return 0, 0, nil, err
	}
	if len(values) != n {
		return 0, 0, nil, errors.Wrapf(ErrShapeMismatch, "got %d values for %d actions", len(values), n)
	}

	a, err := r.policy.Select(q)
	if err != nil {
		return 0, 0, nil, errors.Wrap(err, "select action")
	}
	if a < 0 || a >= n {
		return 0, 0, nil, errors.Errorf("policy chose action %d of %d", a, n)
	}
	return a, values[a], values, nil
}

// Search runs a search episode of exactly maxSteps actions.
//
// Arguments:
//   - ctx: Checked between steps.
//   - s: The search state, mutated in place.
//   - est: The action-value estimator.
//
// Returns:
//   - *Episode: The trajectory, final box, landmarks and proximity features.
//   - error: An estimator, policy or action error, or ctx.Err() on cancellation.
func (r *Runner) Search(ctx context.Context, s *search.State, est SearchEstimator) (*Episode, error) {
	ep := &Episode{ID: uuid.New(), Image: s.ID()}
	log := r.logger.With("episode", ep.ID.String(), "image", s.ID())

	for i := 0; i < r.maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return ep, err
		}

		q, err := est.Estimate(ctx, s)
		if err != nil {
			return ep, errors.Wrapf(err, "estimate step %d", i)
		}
		a, v, _, err := r.choose(q, search.NumActions)
		if err != nil {
			return ep, err
		}

		action := search.Action(a)
		box, err := s.PerformAction(action, v)
		if err != nil {
			return ep, errors.Wrapf(err, "step %d", i)
		}
		ep.Steps = append(ep.Steps, Step{Action: a, Name: action.String(), Value: v, Box: box})
		log.Debug("search step", "step", i, "action", action.String(), "value", v, "box", box.String())
	}

	ep.Final = s.Box()
	ep.Landmarks = s.Landmarks()
	ep.Features = s.Representation()
	log.Info("search episode finished", "steps", len(ep.Steps), "landmarks", len(ep.Landmarks))
	return ep, nil
}

// Refine runs a refinement episode until the localizer freezes or maxSteps
// actions have been applied. Once frozen, one more call settles the
// terminal score from fresh estimates.
//
// Arguments:
//   - ctx: Checked between steps.
//   - l: The localizer, mutated in place.
//   - est: The action-value estimator.
//
// Returns:
//   - *Episode: The trajectory, final box, status and terminal score.
//   - error: An estimator, policy or action error, or ctx.Err() on cancellation.
func (r *Runner) Refine(ctx context.Context, l *localizer.Localizer, est RefineEstimator) (*Episode, error) {
	ep := &Episode{ID: uuid.New()}
	log := r.logger.With("episode", ep.ID.String())

	for i := 0; i < r.maxSteps && !l.Terminal(); i++ {
		if err := ctx.Err(); err != nil {
			return ep, err
		}

		q, err := est.Estimate(ctx, l)
		if err != nil {
			return ep, errors.Wrapf(err, "estimate step %d", i)
		}
		a, v, values, err := r.choose(q, localizer.NumActions)
		if err != nil {
			return ep, err
		}

		action := localizer.Action(a)
		if _, err := l.PerformAction(action, values); err != nil {
			return ep, errors.Wrapf(err, "step %d", i)
		}
		ep.Steps = append(ep.Steps, Step{Action: a, Name: action.String(), Value: v, Box: l.Box()})
		log.Debug("refine step", "step", i, "action", action.String(), "value", v, "box", l.Box().String())
	}

	if l.Terminal() {
		q, err := est.Estimate(ctx, l)
		if err != nil {
			return ep, errors.Wrap(err, "estimate terminal score")
		}
		values, err := Values(q)
		if err != nil {
			return ep, err
		}
		if _, err := l.PerformAction(localizer.Accept, values); err != nil {
			return ep, errors.Wrap(err, "settle terminal score")
		}
	}

	ep.Final = l.Box()
	ep.Status = l.Status().String()
	ep.Score = l.TerminalScore()
	log.Info("refine episode finished", "steps", len(ep.Steps), "status", ep.Status, "score", ep.Score)
	return ep, nil
}
