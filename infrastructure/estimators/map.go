package estimators

import (
	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

var _ ports.Estimator = (*MAP)(nil)

// MAP is the maximum a posteriori estimator. It requires a normal prior.
type MAP struct{ *core }

// NewMAP creates a maximum a posteriori estimator over qs.
func NewMAP(qs *domain.QuestionSet, integrator ports.Integrator, roots ports.RootFinder, opts ...Option) *MAP {
	e := &MAP{core: newCore(qs, integrator, roots, opts)}
	e.self = e
	return e
}

// Type returns domain.EstimationMAP.
func (e *MAP) Type() domain.EstimationType { return domain.EstimationMAP }

// EstimateTheta returns the posterior mode. Priors other than normal fail
// before any iteration.
func (e *MAP) EstimateTheta(prior domain.Prior) (float64, error) {
	if _, _, err := priorDerivatives("estimate_theta", 0, true, prior); err != nil {
		return 0, err
	}
	score := func(theta float64) (float64, error) { return e.D1LL(theta, true, prior) }
	step := func(theta float64) (float64, error) {
		d1, err := e.D1LL(theta, true, prior)
		if err != nil {
			return 0, err
		}
		d2, err := e.D2LL(theta, true, prior)
		if err != nil {
			return 0, err
		}
		return d1 / d2, nil
	}
	return e.solve(domain.EstimationMAP, step, score)
}

// EstimateSE returns the posterior standard deviation about the mode.
func (e *MAP) EstimateSE(prior domain.Prior) (float64, error) {
	theta, err := e.EstimateTheta(prior)
	if err != nil {
		return 0, err
	}
	return e.posteriorSD(prior, theta)
}
