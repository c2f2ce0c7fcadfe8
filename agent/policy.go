// Package agent - Action selection and episode runners for the search and refinement agents.
package agent

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrShapeMismatch is returned when a Q-value tensor does not match the action space.
var ErrShapeMismatch = errors.New("q-value shape mismatch")

// Policy picks an action index from a vector of action values.
type Policy interface {
	Select(q *tensor.Dense) (int, error)
}

// NewQ wraps action values in a 1-D tensor.
func NewQ(values []float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(len(values)), tensor.WithBacking(values))
}

// Values returns the action values held by q.
//
// Arguments:
//   - q: A 1-D float64 tensor.
//
// Returns:
//   - []float64: The values, sharing q's backing array.
//   - error: ErrShapeMismatch if q is not a non-empty float64 vector.
func Values(q *tensor.Dense) ([]float64, error) {
	if q == nil || q.Dims() != 1 || q.Shape()[0] == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "want a non-empty vector")
	}
	switch v := q.Data().(type) {
	case []float64:
		return v, nil
	case float64:
		return []float64{v}, nil
	}
	return nil, errors.Wrapf(ErrShapeMismatch, "want float64 values, got %v", q.Dtype())
}

// Greedy always picks the highest-valued action; ties go to the lowest index.
type Greedy struct{}

// Select implements Policy.
func (Greedy) Select(q *tensor.Dense) (int, error) {
	if _, err := Values(q); err != nil {
		return 0, err
	}

	idx, err := q.Argmax(0)
	if err != nil {
		return 0, errors.Wrap(err, "argmax")
	}
	switch v := idx.Data().(type) {
	case int:
		return v, nil
	case []int:
		if len(v) == 1 {
			return v[0], nil
		}
	}
	return 0, errors.Errorf("unexpected argmax result %v", idx.Data())
}

// EpsilonGreedy explores with probability Epsilon and exploits otherwise.
type EpsilonGreedy struct {
	Epsilon float64
	Rand    *rand.Rand
}

// Select implements Policy.
func (p EpsilonGreedy) Select(q *tensor.Dense) (int, error) {
	values, err := Values(q)
	if err != nil {
		return 0, err
	}
	if p.Rand != nil && p.Rand.Float64() < p.Epsilon {
		return p.Rand.IntN(len(values)), nil
	}
	return Greedy{}.Select(q)
}
