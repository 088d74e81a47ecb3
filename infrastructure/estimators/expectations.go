package estimators

import (
	"fmt"
	"math"

	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

// klHalfWidth scales the window 3/sqrt(n) that ExpectedKL integrates over
// around the current estimate, n being the number of answered items.
const klHalfWidth = 3.0

// overResponses averages eval over the possible responses to an unanswered
// item, each weighted by its probability at the current estimate. The item
// is answered in turn with every option and the question set is restored
// before returning.
func (c *core) overResponses(op string, item int, prior domain.Prior, eval func() (float64, error)) (float64, error) {
	if err := c.qs.CheckItem(item); err != nil {
		return 0, domain.NewPreconditionError(op, err)
	}
	if c.qs.IsAnswered(item) {
		return 0, domain.NewPreconditionError(op, fmt.Errorf("%w: item=%d", domain.ErrItemAnswered, item))
	}

	theta, err := c.self.EstimateTheta(prior)
	if err != nil {
		return 0, err
	}
	cat, err := c.categories(c.qs.Model, c.qs.Items[item], theta)
	if err != nil {
		return 0, err
	}

	cp := c.qs.Checkpoint()
	defer c.qs.Restore(cp)

	total := 0.0
	for k, response := range c.qs.ResponseOptions(item) {
		if err := c.qs.Answer(item, response); err != nil {
			return 0, err
		}
		v, err := eval()
		if err != nil {
			return 0, err
		}
		total += cat.P[k] * v
	}
	return total, nil
}

// ExpectedPV returns the posterior variance expected after answering item.
func (c *core) ExpectedPV(item int, prior domain.Prior) (float64, error) {
	return c.overResponses("expected_pv", item, prior, func() (float64, error) {
		se, err := c.self.EstimateSE(prior)
		return se * se, err
	})
}

// ExpectedObsInf returns the observed information of item expected over its
// responses, each evaluated at the estimate that response would produce.
func (c *core) ExpectedObsInf(item int, prior domain.Prior) (float64, error) {
	return c.overResponses("expected_obs_inf", item, prior, func() (float64, error) {
		theta, err := c.self.EstimateTheta(prior)
		if err != nil {
			return 0, err
		}
		return c.ObsInf(theta, item)
	})
}

// klAt returns theta0 -> KL(thetaHat || theta0) for the response
// distribution of item.
func (c *core) klAt(item int, thetaHat float64) (func(float64) (float64, error), error) {
	ref, err := c.categories(c.qs.Model, c.qs.Items[item], thetaHat)
	if err != nil {
		return nil, err
	}
	return func(theta0 float64) (float64, error) {
		cat, err := c.categories(c.qs.Model, c.qs.Items[item], theta0)
		if err != nil {
			return 0, err
		}
		kl := 0.0
		for k, p := range ref.P {
			if p > 0 {
				kl += p * math.Log(p/cat.P[k])
			}
		}
		return kl, nil
	}, nil
}

func (c *core) klSetup(op string, item int, prior domain.Prior) (func(float64) (float64, error), float64, error) {
	if err := c.qs.CheckItem(item); err != nil {
		return nil, 0, domain.NewPreconditionError(op, err)
	}
	theta, err := c.self.EstimateTheta(prior)
	if err != nil {
		return nil, 0, err
	}
	kl, err := c.klAt(item, theta)
	return kl, theta, err
}

// ExpectedKL integrates the KL information of item over
// [thetaHat - 3/sqrt(n), thetaHat + 3/sqrt(n)], or the whole support when
// nothing is answered.
func (c *core) ExpectedKL(item int, prior domain.Prior) (float64, error) {
	kl, theta, err := c.klSetup("expected_kl", item, prior)
	if err != nil {
		return 0, err
	}
	lo, hi := c.integrator.Support()
	if n := len(c.qs.ApplicableRows); n > 0 {
		delta := klHalfWidth / math.Sqrt(float64(n))
		lo, hi = theta-delta, theta+delta
	}

	var cp ports.IntegrandErrors
	v := c.integrator.IntegrateRange(cp.Wrap(kl), lo, hi)
	return v, cp.Err
}

// LikelihoodKL integrates the KL information of item weighted by the likelihood.
func (c *core) LikelihoodKL(item int, prior domain.Prior) (float64, error) {
	kl, _, err := c.klSetup("likelihood_kl", item, prior)
	if err != nil {
		return 0, err
	}
	var cp ports.IntegrandErrors
	v := c.integrator.Integrate(cp.Wrap(func(x float64) (float64, error) {
		l, err := c.Likelihood(x)
		if err != nil {
			return 0, err
		}
		d, err := kl(x)
		return l * d, err
	}))
	return v, cp.Err
}

// PosteriorKL integrates the KL information of item weighted by the
// unnormalised posterior.
func (c *core) PosteriorKL(item int, prior domain.Prior) (float64, error) {
	kl, _, err := c.klSetup("posterior_kl", item, prior)
	if err != nil {
		return 0, err
	}
	kernel := c.posteriorKernel(prior)
	var cp ports.IntegrandErrors
	v := c.integrator.Integrate(cp.Wrap(func(x float64) (float64, error) {
		post, err := kernel(x)
		if err != nil {
			return 0, err
		}
		d, err := kl(x)
		return post * d, err
	}))
	return v, cp.Err
}
