// Package numeric provides the quadrature and root-finding primitives shared
// by the ability estimators and item selectors.
package numeric

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/ahrav/go-catsurv/internal/ports"
)

var _ ports.Integrator = Integrator{}

// Default quadrature settings.
const (
	// SupportLower and SupportUpper bound every theta integral.
	SupportLower = -5.0
	SupportUpper = 5.0

	// DefaultNodes is the Gauss-Legendre order used within each panel.
	DefaultNodes = 20

	// DefaultMaxPanels caps panel doubling.
	DefaultMaxPanels = 256

	// DefaultRelTol is the relative change at which refinement stops.
	DefaultRelTol = 1e-9
)

// Integrator is a composite Gauss-Legendre rule over a fixed support.
// The number of equal-width panels doubles until two successive estimates
// agree to RelTol, or MaxPanels is reached. The zero value is not usable;
// construct with NewIntegrator.
type Integrator struct {
	lower, upper float64
	nodes        int
	maxPanels    int
	relTol       float64
}

// NewIntegrator returns an integrator over [SupportLower, SupportUpper]
// with the default accuracy settings.
func NewIntegrator() Integrator {
	return Integrator{
		lower:     SupportLower,
		upper:     SupportUpper,
		nodes:     DefaultNodes,
		maxPanels: DefaultMaxPanels,
		relTol:    DefaultRelTol,
	}
}

// Support returns the integration bounds.
func (in Integrator) Support() (float64, float64) { return in.lower, in.upper }

// Integrate integrates f over the full support.
func (in Integrator) Integrate(f ports.Integrand) float64 {
	return in.IntegrateRange(f, in.lower, in.upper)
}

// IntegrateRange integrates f over [lo, hi] clamped to the support.
func (in Integrator) IntegrateRange(f ports.Integrand, lo, hi float64) float64 {
	lo = math.Max(lo, in.lower)
	hi = math.Min(hi, in.upper)
	if !(hi > lo) {
		return 0
	}

	prev := in.composite(f, lo, hi, 1)
	for panels := 2; panels <= in.maxPanels; panels *= 2 {
		cur := in.composite(f, lo, hi, panels)
		if math.Abs(cur-prev) <= in.relTol*math.Abs(cur) {
			return cur
		}
		prev = cur
	}
	return prev
}

func (in Integrator) composite(f ports.Integrand, lo, hi float64, panels int) float64 {
	width := (hi - lo) / float64(panels)
	sum := 0.0
	for i := range panels {
		a := lo + float64(i)*width
		sum += quad.Fixed(f, a, a+width, in.nodes, quad.Legendre{}, 0)
	}
	return sum
}
