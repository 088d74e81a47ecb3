package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// PriorName identifies the family of the ability prior.
type PriorName string

// Supported prior families.
const (
	// PriorNormal is parameterised by mean and standard deviation.
	PriorNormal PriorName = "NORMAL"

	// PriorStudentT is parameterised by location and degrees of freedom.
	PriorStudentT PriorName = "STUDENT_T"

	// PriorUniform is parameterised by lower and upper bound.
	PriorUniform PriorName = "UNIFORM"
)

// PriorNames lists every supported prior family.
func PriorNames() []PriorName { return []PriorName{PriorNormal, PriorStudentT, PriorUniform} }

// Prior is an immutable density over theta.
type Prior struct {
	name   PriorName
	params [2]float64
	dist   interface{ Prob(float64) float64 }
}

// NewPrior validates the parameters and builds a prior.
func NewPrior(name PriorName, params [2]float64) (Prior, error) {
	p := Prior{name: name, params: params}
	switch name {
	case PriorNormal:
		if !(params[1] > 0) {
			return Prior{}, NewConfigError("prior.params", fmt.Sprint(params), fmt.Errorf("normal standard deviation must be positive"))
		}
		p.dist = distuv.Normal{Mu: params[0], Sigma: params[1]}
	case PriorStudentT:
		if !(params[1] > 0) {
			return Prior{}, NewConfigError("prior.params", fmt.Sprint(params), fmt.Errorf("student-t degrees of freedom must be positive"))
		}
		p.dist = distuv.StudentsT{Mu: params[0], Sigma: 1, Nu: params[1]}
	case PriorUniform:
		if !(params[0] < params[1]) {
			return Prior{}, NewConfigError("prior.params", fmt.Sprint(params), fmt.Errorf("uniform lower bound must be below upper bound"))
		}
		p.dist = distuv.Uniform{Min: params[0], Max: params[1]}
	default:
		return Prior{}, NewConfigError("prior.name", string(name), ErrInvalidConfiguration)
	}
	for _, v := range params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Prior{}, NewConfigError("prior.params", fmt.Sprint(params), fmt.Errorf("parameters must be finite"))
		}
	}
	return p, nil
}

// Name returns the prior family.
func (p Prior) Name() PriorName { return p.name }

// Params returns the two distribution parameters.
func (p Prior) Params() [2]float64 { return p.params }

// Density evaluates the prior at x. The uniform density is zero outside its
// bounds so that it can be integrated over the full theta support.
func (p Prior) Density(x float64) float64 {
	if p.dist == nil {
		return math.NaN()
	}
	return p.dist.Prob(x)
}

// Evaluate is the checked form of Density used at the public boundary:
// evaluating a uniform prior outside its bounds is refused.
func (p Prior) Evaluate(x float64) (float64, error) {
	if p.name == PriorUniform && (x < p.params[0] || x > p.params[1]) {
		return 0, NewPreconditionError("prior", fmt.Errorf("%w: x=%g, bounds=[%g,%g]", ErrOutOfSupport, x, p.params[0], p.params[1]))
	}
	return p.Density(x), nil
}

// LogDensityDerivatives returns the first and second derivative of the log
// prior density at x. Only the normal prior supports them.
func (p Prior) LogDensityDerivatives(x float64) (d1, d2 float64, err error) {
	if p.name != PriorNormal {
		return 0, 0, fmt.Errorf("%w: prior=%s", ErrUnsupportedPrior, p.name)
	}
	v := p.params[1] * p.params[1]
	return -(x - p.params[0]) / v, -1 / v, nil
}
