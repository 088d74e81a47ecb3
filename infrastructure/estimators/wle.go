package estimators

import (
	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

var _ ports.Estimator = (*WLE)(nil)

// WLE is Warm's weighted likelihood estimator. It solves the score function
// plus the bias correction J/(2I), where I is the test information and J sums
// P'P''/P over every category of every answered item.
type WLE struct{ *core }

// NewWLE creates a weighted likelihood estimator over qs.
func NewWLE(qs *domain.QuestionSet, integrator ports.Integrator, roots ports.RootFinder, opts ...Option) *WLE {
	e := &WLE{core: newCore(qs, integrator, roots, opts)}
	e.self = e
	return e
}

// Type returns domain.EstimationWLE.
func (e *WLE) Type() domain.EstimationType { return domain.EstimationWLE }

// WeightedScore returns d1LL(theta) + J/(2I).
func (e *WLE) WeightedScore(theta float64) (float64, error) {
	d1, err := e.D1LL(theta, false, domain.Prior{})
	if err != nil {
		return 0, err
	}

	var info, j float64
	for _, i := range e.qs.ApplicableRows {
		cat, err := e.categories(e.qs.Model, e.qs.Items[i], theta)
		if err != nil {
			return 0, err
		}
		info += fisher(cat)
		for k, p := range cat.P {
			if p > 0 {
				j += cat.D1[k] * cat.D2[k] / p
			}
		}
	}
	return d1 + j/(2*info), nil
}

// EstimateTheta returns the root of the weighted score. Newton steps use a
// central-difference slope. The prior is unused.
func (e *WLE) EstimateTheta(prior domain.Prior) (float64, error) {
	if err := e.requireAnswers("estimate_theta"); err != nil {
		return 0, err
	}
	step := func(theta float64) (float64, error) {
		w, err := e.WeightedScore(theta)
		if err != nil {
			return 0, err
		}
		slope, err := centralSlope(e.WeightedScore, theta)
		if err != nil {
			return 0, err
		}
		return w / slope, nil
	}
	return e.solve(domain.EstimationWLE, step, e.WeightedScore)
}

// EstimateSE returns sqrt(1 / FisherTestInfo).
func (e *WLE) EstimateSE(prior domain.Prior) (float64, error) {
	return inverseInfoSE(e.core, prior)
}
