package ports

import "github.com/ahrav/go-catsurv/internal/domain"

// Estimator estimates a respondent's ability from the answers recorded in
// the question set it was built over. Item indices are 0-based.
//
// The prior is passed on every call rather than held by the estimator, so
// one estimator can be evaluated against different priors.
type Estimator interface {
	// Type returns the estimation method.
	Type() domain.EstimationType

	// Probability returns the response probability vector of item at theta.
	// Binary families return [P(correct)]; the graded response model returns
	// the cumulative boundary vector [0, P*_1, ..., 1]; the partial credit
	// model returns one probability per category.
	Probability(theta float64, item int) ([]float64, error)

	// Likelihood returns the product of the probabilities of the recorded
	// answers at theta. With nothing answered it is 1.
	Likelihood(theta float64) (float64, error)

	// D1LL returns the first derivative of the log-likelihood at theta,
	// optionally including the log prior. Only a normal prior supports
	// usePrior.
	D1LL(theta float64, usePrior bool, prior domain.Prior) (float64, error)

	// D2LL returns the second derivative of the log-likelihood at theta.
	D2LL(theta float64, usePrior bool, prior domain.Prior) (float64, error)

	// EstimateTheta returns the ability estimate.
	EstimateTheta(prior domain.Prior) (float64, error)

	// EstimateSE returns the standard error of the ability estimate.
	EstimateSE(prior domain.Prior) (float64, error)

	// FisherInf returns the expected information of item at theta.
	FisherInf(theta float64, item int) (float64, error)

	// ObsInf returns the observed information of an answered item at theta.
	ObsInf(theta float64, item int) (float64, error)

	// FisherTestInfo returns the summed Fisher information of the answered
	// items at the current ability estimate.
	FisherTestInfo(prior domain.Prior) (float64, error)

	// ExpectedObsInf returns the observed information of an unanswered item
	// averaged over its possible responses.
	ExpectedObsInf(item int, prior domain.Prior) (float64, error)

	// ExpectedPV returns the posterior variance expected after answering an
	// unanswered item.
	ExpectedPV(item int, prior domain.Prior) (float64, error)

	// ExpectedKL returns the Kullback-Leibler information of item integrated
	// over a window around the current estimate.
	ExpectedKL(item int, prior domain.Prior) (float64, error)

	// LikelihoodKL returns the Kullback-Leibler information of item weighted
	// by the likelihood.
	LikelihoodKL(item int, prior domain.Prior) (float64, error)

	// PosteriorKL returns the Kullback-Leibler information of item weighted
	// by the posterior.
	PosteriorKL(item int, prior domain.Prior) (float64, error)
}

// Selector scores the unanswered items and picks the next one to administer.
type Selector interface {
	// Type returns the selection criterion.
	Type() domain.SelectionType

	// SelectItem scores every unanswered item in ascending index order.
	// It fails with a precondition error wrapping
	// domain.ErrNoUnansweredItems when every item has been answered.
	SelectItem() (domain.Selection, error)
}
