package estimators

import (
	"fmt"
	"math"

	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

var _ ports.Estimator = (*MLE)(nil)

// MLE is the maximum likelihood estimator. Its standard error is the inverse
// square root of the test information at the estimate.
type MLE struct{ *core }

// NewMLE creates a maximum likelihood estimator over qs.
func NewMLE(qs *domain.QuestionSet, integrator ports.Integrator, roots ports.RootFinder, opts ...Option) *MLE {
	e := &MLE{core: newCore(qs, integrator, roots, opts)}
	e.self = e
	return e
}

// Type returns domain.EstimationMLE.
func (e *MLE) Type() domain.EstimationType { return domain.EstimationMLE }

// EstimateTheta returns the root of the score function. The prior is unused.
func (e *MLE) EstimateTheta(prior domain.Prior) (float64, error) {
	if err := e.requireAnswers("estimate_theta"); err != nil {
		return 0, err
	}
	score := func(theta float64) (float64, error) { return e.D1LL(theta, false, prior) }
	step := func(theta float64) (float64, error) {
		d1, err := e.D1LL(theta, false, prior)
		if err != nil {
			return 0, err
		}
		d2, err := e.D2LL(theta, false, prior)
		if err != nil {
			return 0, err
		}
		return d1 / d2, nil
	}
	return e.solve(domain.EstimationMLE, step, score)
}

// EstimateSE returns sqrt(1 / FisherTestInfo).
func (e *MLE) EstimateSE(prior domain.Prior) (float64, error) {
	return inverseInfoSE(e.core, prior)
}

func inverseInfoSE(c *core, prior domain.Prior) (float64, error) {
	info, err := c.FisherTestInfo(prior)
	if err != nil {
		return 0, err
	}
	if !(info > 0) {
		return 0, fmt.Errorf("%w: test information is %g", domain.ErrNumericalDomain, info)
	}
	return math.Sqrt(1 / info), nil
}
