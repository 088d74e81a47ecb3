// Package irt implements the response functions of the supported item
// response theory families together with their derivatives in theta.
//
// Binary families (ltm, tpm) have two categories, incorrect and correct.
// The graded response model (grm) has len(Difficulty)+1 ordered categories
// built from cumulative boundary curves. The generalized partial credit
// model (gpcm) has len(Difficulty)+1 categories built from a softmax over
// accumulated step scores.
package irt

import (
	"fmt"
	"math"

	"github.com/ahrav/go-catsurv/internal/domain"
)

// Categories holds the probability of each response category and its first
// and second derivatives with respect to theta. Index 0 is the lowest
// response option.
type Categories struct {
	P  []float64
	D1 []float64
	D2 []float64
}

// Len returns the number of categories.
func (c Categories) Len() int { return len(c.P) }

func logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func checkTheta(theta float64) error {
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		return fmt.Errorf("%w: theta=%g", domain.ErrNumericalDomain, theta)
	}
	return nil
}

func checkFinite(model domain.ModelType, theta float64, values []float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: model=%s, theta=%g, non-finite probability", domain.ErrNumericalDomain, model, theta)
		}
	}
	return nil
}

// Probability returns the response probability vector of item at theta.
// Binary families return [P(correct)]. grm returns the cumulative boundary
// vector [0, P*_1, ..., P*_{K-1}, 1]. gpcm returns one probability per
// category.
func Probability(model domain.ModelType, item domain.Item, theta float64) ([]float64, error) {
	if err := checkTheta(theta); err != nil {
		return nil, err
	}

	var out []float64
	switch model {
	case domain.ModelLTM, domain.ModelTPM:
		out = []float64{binaryP(model, item, theta)}
	case domain.ModelGRM:
		out = make([]float64, 0, len(item.Difficulty)+2)
		out = append(out, 0)
		for _, alpha := range item.Difficulty {
			out = append(out, logistic(alpha-item.Discrimination*theta))
		}
		out = append(out, 1)
	case domain.ModelGPCM:
		out = gpcmP(item, theta)
	default:
		return nil, domain.NewConfigError("model", string(model), domain.ErrInvalidConfiguration)
	}

	if err := checkFinite(model, theta, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CategoriesAt returns the category probabilities of item at theta with
// their first and second theta-derivatives.
func CategoriesAt(model domain.ModelType, item domain.Item, theta float64) (Categories, error) {
	if err := checkTheta(theta); err != nil {
		return Categories{}, err
	}

	var c Categories
	switch model {
	case domain.ModelLTM, domain.ModelTPM:
		c = binaryCategories(model, item, theta)
	case domain.ModelGRM:
		c = grmCategories(item, theta)
	case domain.ModelGPCM:
		c = gpcmCategories(item, theta)
	default:
		return Categories{}, domain.NewConfigError("model", string(model), domain.ErrInvalidConfiguration)
	}

	for _, s := range [][]float64{c.P, c.D1, c.D2} {
		if err := checkFinite(model, theta, s); err != nil {
			return Categories{}, err
		}
	}
	return c, nil
}

func binaryP(model domain.ModelType, item domain.Item, theta float64) float64 {
	p := logistic(item.Difficulty[0] + item.Discrimination*theta)
	if model == domain.ModelTPM {
		return item.Guessing + (1-item.Guessing)*p
	}
	return p
}

func binaryCategories(model domain.ModelType, item domain.Item, theta float64) Categories {
	a := item.Discrimination
	s := logistic(item.Difficulty[0] + a*theta)
	scale := 1.0
	p := s
	if model == domain.ModelTPM {
		scale = 1 - item.Guessing
		p = item.Guessing + scale*s
	}
	w := s * (1 - s)
	d1 := scale * a * w
	d2 := scale * a * a * w * (1 - 2*s)
	return Categories{
		P:  []float64{1 - p, p},
		D1: []float64{-d1, d1},
		D2: []float64{-d2, d2},
	}
}

// grmCategories differences the cumulative curves P*_k = logistic(alpha_k - b*theta),
// whose derivatives are -b*w and b^2*w*(1-2P*) with w = P*(1-P*).
func grmCategories(item domain.Item, theta float64) Categories {
	b := item.Discrimination
	k := len(item.Difficulty) + 1

	star := make([]float64, k+1)
	dStar := make([]float64, k+1)
	d2Star := make([]float64, k+1)
	star[k] = 1
	for i, alpha := range item.Difficulty {
		ps := logistic(alpha - b*theta)
		w := ps * (1 - ps)
		star[i+1] = ps
		dStar[i+1] = -b * w
		d2Star[i+1] = b * b * w * (1 - 2*ps)
	}

	c := Categories{P: make([]float64, k), D1: make([]float64, k), D2: make([]float64, k)}
	for i := range k {
		c.P[i] = star[i+1] - star[i]
		c.D1[i] = dStar[i+1] - dStar[i]
		c.D2[i] = d2Star[i+1] - d2Star[i]
	}
	return c
}

func gpcmP(item domain.Item, theta float64) []float64 {
	a := item.Discrimination
	z := make([]float64, len(item.Difficulty)+1)
	for i, step := range item.Difficulty {
		z[i+1] = z[i] + a*(theta-step)
	}

	maxZ := z[0]
	for _, v := range z[1:] {
		maxZ = math.Max(maxZ, v)
	}
	total := 0.0
	for i, v := range z {
		z[i] = math.Exp(v - maxZ)
		total += z[i]
	}
	for i := range z {
		z[i] /= total
	}
	return z
}

// gpcmCategories uses P'_k = a*P_k*(k-E) and P''_k = a^2*P_k*((k-E)^2 - V)
// where E and V are the mean and variance of the category index.
func gpcmCategories(item domain.Item, theta float64) Categories {
	a := item.Discrimination
	p := gpcmP(item, theta)

	mean, sq := 0.0, 0.0
	for k, pk := range p {
		mean += float64(k) * pk
		sq += float64(k*k) * pk
	}
	variance := sq - mean*mean

	c := Categories{P: p, D1: make([]float64, len(p)), D2: make([]float64, len(p))}
	for k, pk := range p {
		dev := float64(k) - mean
		c.D1[k] = a * pk * dev
		c.D2[k] = a * a * pk * (dev*dev - variance)
	}
	return c
}
