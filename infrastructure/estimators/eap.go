package estimators

import (
	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

var _ ports.Estimator = (*EAP)(nil)

// EAP is the expected a posteriori estimator.
type EAP struct{ *core }

// NewEAP creates an expected a posteriori estimator over qs.
func NewEAP(qs *domain.QuestionSet, integrator ports.Integrator, roots ports.RootFinder, opts ...Option) *EAP {
	e := &EAP{core: newCore(qs, integrator, roots, opts)}
	e.self = e
	return e
}

// Type returns domain.EstimationEAP.
func (e *EAP) Type() domain.EstimationType { return domain.EstimationEAP }

// EstimateTheta returns the posterior mean over the theta support.
func (e *EAP) EstimateTheta(prior domain.Prior) (float64, error) {
	return e.posteriorMean(prior)
}

// EstimateSE returns the posterior standard deviation.
func (e *EAP) EstimateSE(prior domain.Prior) (float64, error) {
	theta, err := e.EstimateTheta(prior)
	if err != nil {
		return 0, err
	}
	return e.posteriorSD(prior, theta)
}
