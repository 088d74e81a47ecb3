package estimators

import (
	"errors"
	"fmt"
	"math"

	"github.com/ahrav/go-catsurv/internal/domain"
)

// Newton-Raphson settings.
const (
	newtonTolerance = 1e-7
	newtonMaxIter   = 200

	// slopeStep is the central-difference step used when the root function
	// has no closed-form derivative.
	slopeStep = 1e-5
)

// solve locates a root of score. It runs Newton-Raphson with the given step
// (score/slope) from 0.0 towards 1.0 and falls back to the bounded root
// finder over the theta support only when an iterate is NaN or the score is
// undefined at an iterate. Errors other than numerical domain failures are
// returned unchanged.
func (c *core) solve(
	kind domain.EstimationType,
	step func(theta float64) (float64, error),
	score func(theta float64) (float64, error),
) (float64, error) {
	theta, err := newton(step, score)
	if err == nil {
		return theta, nil
	}
	if !errors.Is(err, domain.ErrNumericalDomain) {
		return 0, err
	}

	c.observer.ObserveFallback(kind, err)
	lo, hi := c.integrator.Support()
	root, rerr := c.roots.FindRoot(score, lo, hi)
	if rerr != nil {
		return 0, fmt.Errorf("%s fallback root search after %v: %w", kind, err, rerr)
	}
	return root, nil
}

// newton iterates until successive iterates differ by at most
// newtonTolerance. When the iteration budget runs out first, the last iterate
// is the result.
func newton(step, score func(float64) (float64, error)) (float64, error) {
	old, next := 0.0, 1.0
	diff := math.Abs(next - old)

	for iter := 0; diff > newtonTolerance && iter < newtonMaxIter; iter++ {
		s, err := step(old)
		if err != nil {
			return 0, err
		}
		next = old - s
		diff = math.Abs(next - old)

		if math.IsNaN(next) {
			return 0, fmt.Errorf("%w: NaN iterate", domain.ErrNumericalDomain)
		}
		if _, err := score(next); err != nil {
			return 0, err
		}
		old = next
	}
	return next, nil
}

// centralSlope approximates f'(theta).
func centralSlope(f func(float64) (float64, error), theta float64) (float64, error) {
	hi, err := f(theta + slopeStep)
	if err != nil {
		return 0, err
	}
	lo, err := f(theta - slopeStep)
	if err != nil {
		return 0, err
	}
	return (hi - lo) / (2 * slopeStep), nil
}
