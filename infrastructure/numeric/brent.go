package numeric

import (
	"fmt"
	"math"

	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

var _ ports.RootFinder = Brent{}

// Brent defaults.
const (
	DefaultRootTol   = 1e-10
	DefaultRootIters = 100
)

const epsilon = 0x1p-52

// Brent finds roots with Brent's method: inverse quadratic interpolation and
// secant steps safeguarded by bisection.
type Brent struct {
	Tol      float64
	MaxIters int
}

// NewBrent returns a root finder with the default tolerance and iteration cap.
func NewBrent() Brent { return Brent{Tol: DefaultRootTol, MaxIters: DefaultRootIters} }

// FindRoot returns a root of f in [lo, hi]. When the iteration budget runs
// out the best bracketed point so far is returned.
func (b Brent) FindRoot(f func(float64) (float64, error), lo, hi float64) (float64, error) {
	fa, err := evalFinite(f, lo)
	if err != nil {
		return 0, err
	}
	fb, err := evalFinite(f, hi)
	if err != nil {
		return 0, err
	}
	if fa == 0 {
		return lo, nil
	}
	if fb == 0 {
		return hi, nil
	}
	if math.Signbit(fa) == math.Signbit(fb) {
		return 0, domain.NewPreconditionError("find_root",
			fmt.Errorf("%w: f(%g)=%g, f(%g)=%g", domain.ErrNoBracket, lo, fa, hi, fb))
	}

	a, bb := lo, hi
	c, fc := a, fa
	d := bb - a
	e := d

	for range b.MaxIters {
		if math.Signbit(fb) == math.Signbit(fc) {
			c, fc = a, fa
			d = bb - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, bb, c = bb, c, bb
			fa, fb, fc = fb, fc, fb
		}

		tol := 2*epsilon*math.Abs(bb) + 0.5*b.Tol
		m := 0.5 * (c - bb)
		if math.Abs(m) <= tol || fb == 0 {
			return bb, nil
		}

		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			var p, q float64
			s := fb / fa
			if a == c {
				p = 2 * m * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*m*q*(q-r) - (bb-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if 2*p < math.Min(3*m*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = m
				e = m
			}
		} else {
			d = m
			e = m
		}

		a, fa = bb, fb
		if math.Abs(d) > tol {
			bb += d
		} else {
			bb += math.Copysign(tol, m)
		}
		if fb, err = evalFinite(f, bb); err != nil {
			return 0, err
		}
	}
	return bb, nil
}

func evalFinite(f func(float64) (float64, error), x float64) (float64, error) {
	y, err := f(x)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(y) {
		return 0, fmt.Errorf("%w: root function is NaN at %g", domain.ErrNumericalDomain, x)
	}
	return y, nil
}
