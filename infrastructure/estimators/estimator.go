// Package estimators implements the ability estimators: expected a
// posteriori (EAP), maximum a posteriori (MAP), maximum likelihood (MLE) and
// weighted likelihood (WLE).
//
// All four share the likelihood, derivative and information computations in
// core and differ only in how they locate theta and its standard error.
// An estimator reads the answers of the question set it was built over on
// every call, so answering an item is immediately reflected in its results.
package estimators

import (
	"fmt"
	"math"

	"github.com/ahrav/go-catsurv/infrastructure/irt"
	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

// categoryFunc evaluates the category probabilities of an item.
type categoryFunc func(domain.ModelType, domain.Item, float64) (irt.Categories, error)

// Option configures an estimator.
type Option func(*core)

// WithFallbackObserver registers an observer for Newton-Raphson fallbacks.
func WithFallbackObserver(o ports.FallbackObserver) Option {
	return func(c *core) {
		if o != nil {
			c.observer = o
		}
	}
}

// core holds what every estimator shares. self is the concrete estimator
// embedding it, so that shared quantities such as FisherTestInfo use the
// right EstimateTheta.
type core struct {
	qs         *domain.QuestionSet
	integrator ports.Integrator
	roots      ports.RootFinder
	observer   ports.FallbackObserver
	categories categoryFunc
	self       ports.Estimator
}

func newCore(qs *domain.QuestionSet, integrator ports.Integrator, roots ports.RootFinder, opts []Option) *core {
	c := &core{
		qs:         qs,
		integrator: integrator,
		roots:      roots,
		observer:   ports.FallbackObserverFunc(func(domain.EstimationType, error) {}),
		categories: irt.CategoriesAt,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probability returns the response probability vector of item at theta.
func (c *core) Probability(theta float64, item int) ([]float64, error) {
	if err := c.qs.CheckItem(item); err != nil {
		return nil, domain.NewPreconditionError("probability", err)
	}
	return irt.Probability(c.qs.Model, c.qs.Items[item], theta)
}

// Likelihood returns the product of the recorded answers' probabilities.
func (c *core) Likelihood(theta float64) (float64, error) {
	l := 1.0
	for _, i := range c.qs.ApplicableRows {
		cat, err := c.categories(c.qs.Model, c.qs.Items[i], theta)
		if err != nil {
			return 0, err
		}
		l *= cat.P[c.qs.CategoryIndex(c.qs.Answers[i])]
	}
	return l, nil
}

// observed returns the categories of an answered item and the index of the
// recorded answer. A zero probability for the recorded answer leaves the
// log-likelihood undefined.
func (c *core) observed(theta float64, item int) (irt.Categories, int, error) {
	cat, err := c.categories(c.qs.Model, c.qs.Items[item], theta)
	if err != nil {
		return irt.Categories{}, 0, err
	}
	k := c.qs.CategoryIndex(c.qs.Answers[item])
	if !(cat.P[k] > 0) {
		return irt.Categories{}, 0, fmt.Errorf("%w: item=%d has zero probability at theta=%g",
			domain.ErrNumericalDomain, item, theta)
	}
	return cat, k, nil
}

func priorDerivatives(op string, theta float64, usePrior bool, prior domain.Prior) (float64, float64, error) {
	if !usePrior {
		return 0, 0, nil
	}
	d1, d2, err := prior.LogDensityDerivatives(theta)
	if err != nil {
		return 0, 0, domain.NewPreconditionError(op, err)
	}
	return d1, d2, nil
}

// D1LL returns the score function at theta.
func (c *core) D1LL(theta float64, usePrior bool, prior domain.Prior) (float64, error) {
	sum, _, err := priorDerivatives("d1LL", theta, usePrior, prior)
	if err != nil {
		return 0, err
	}
	for _, i := range c.qs.ApplicableRows {
		cat, k, err := c.observed(theta, i)
		if err != nil {
			return 0, err
		}
		sum += cat.D1[k] / cat.P[k]
	}
	return sum, nil
}

// D2LL returns the second derivative of the log-likelihood at theta.
func (c *core) D2LL(theta float64, usePrior bool, prior domain.Prior) (float64, error) {
	_, sum, err := priorDerivatives("d2LL", theta, usePrior, prior)
	if err != nil {
		return 0, err
	}
	for _, i := range c.qs.ApplicableRows {
		cat, k, err := c.observed(theta, i)
		if err != nil {
			return 0, err
		}
		r := cat.D1[k] / cat.P[k]
		sum += cat.D2[k]/cat.P[k] - r*r
	}
	return sum, nil
}

// FisherInf returns the expected information of item at theta.
func (c *core) FisherInf(theta float64, item int) (float64, error) {
	if err := c.qs.CheckItem(item); err != nil {
		return 0, domain.NewPreconditionError("fisher_inf", err)
	}
	cat, err := c.categories(c.qs.Model, c.qs.Items[item], theta)
	if err != nil {
		return 0, err
	}
	return fisher(cat), nil
}

func fisher(cat irt.Categories) float64 {
	info := 0.0
	for k, p := range cat.P {
		if p > 0 {
			info += cat.D1[k] * cat.D1[k] / p
		}
	}
	return info
}

// ObsInf returns the observed information of an answered item at theta.
func (c *core) ObsInf(theta float64, item int) (float64, error) {
	if err := c.qs.CheckItem(item); err != nil {
		return 0, domain.NewPreconditionError("obs_inf", err)
	}
	if !c.qs.IsAnswered(item) {
		return 0, domain.NewPreconditionError("obs_inf", fmt.Errorf("%w: item=%d", domain.ErrItemNotAnswered, item))
	}
	cat, k, err := c.observed(theta, item)
	if err != nil {
		return 0, err
	}
	r := cat.D1[k] / cat.P[k]
	return -(cat.D2[k]/cat.P[k] - r*r), nil
}

// FisherTestInfo sums the Fisher information of the answered items at the
// current ability estimate.
func (c *core) FisherTestInfo(prior domain.Prior) (float64, error) {
	theta, err := c.self.EstimateTheta(prior)
	if err != nil {
		return 0, err
	}
	return c.testInfoAt(theta)
}

func (c *core) testInfoAt(theta float64) (float64, error) {
	total := 0.0
	for _, i := range c.qs.ApplicableRows {
		info, err := c.FisherInf(theta, i)
		if err != nil {
			return 0, err
		}
		total += info
	}
	return total, nil
}

func (c *core) posteriorKernel(prior domain.Prior) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		l, err := c.Likelihood(x)
		if err != nil {
			return 0, err
		}
		return l * prior.Density(x), nil
	}
}

// posteriorMean returns the integral of theta*L*prior over the integral of L*prior.
func (c *core) posteriorMean(prior domain.Prior) (float64, error) {
	var cp ports.IntegrandErrors
	kernel := c.posteriorKernel(prior)
	den := c.integrator.Integrate(cp.Wrap(kernel))
	num := c.integrator.Integrate(cp.Wrap(func(x float64) (float64, error) {
		v, err := kernel(x)
		return x * v, err
	}))
	if cp.Err != nil {
		return 0, cp.Err
	}
	if !(den > 0) {
		return 0, fmt.Errorf("%w: posterior has no mass on the theta support", domain.ErrNumericalDomain)
	}
	return num / den, nil
}

// posteriorSD returns the root posterior second moment about center.
func (c *core) posteriorSD(prior domain.Prior, center float64) (float64, error) {
	var cp ports.IntegrandErrors
	kernel := c.posteriorKernel(prior)
	den := c.integrator.Integrate(cp.Wrap(kernel))
	num := c.integrator.Integrate(cp.Wrap(func(x float64) (float64, error) {
		v, err := kernel(x)
		return (x - center) * (x - center) * v, err
	}))
	if cp.Err != nil {
		return 0, cp.Err
	}
	if !(den > 0) {
		return 0, fmt.Errorf("%w: posterior has no mass on the theta support", domain.ErrNumericalDomain)
	}
	return math.Sqrt(num / den), nil
}

func (c *core) requireAnswers(op string) error {
	if len(c.qs.ApplicableRows) == 0 {
		return domain.NewPreconditionError(op, domain.ErrNoAnsweredItems)
	}
	return nil
}
