package selectors

import (
	"math"

	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

var (
	_ ports.Selector = (*EPV)(nil)
	_ ports.Selector = (*MFI)(nil)
	_ ports.Selector = (*MEI)(nil)
	_ ports.Selector = (*MFII)(nil)
	_ ports.Selector = (*MLWI)(nil)
	_ ports.Selector = (*MPWI)(nil)
)

// EPV picks the item with the smallest expected posterior variance.
type EPV struct{ base }

// NewEPV creates an expected posterior variance selector.
func NewEPV(s Session) *EPV { return &EPV{base{s}} }

// Type returns domain.SelectionEPV.
func (s *EPV) Type() domain.SelectionType { return domain.SelectionEPV }

// SelectItem scores each unanswered item by its expected posterior variance.
func (s *EPV) SelectItem() (domain.Selection, error) {
	return s.selectBy(domain.SelectionEPV, true, func(item int) (float64, error) {
		return s.Estimator.ExpectedPV(item, s.Prior)
	})
}

// MFI picks the item with the largest Fisher information at the current estimate.
type MFI struct{ base }

// NewMFI creates a maximum Fisher information selector.
func NewMFI(s Session) *MFI { return &MFI{base{s}} }

// Type returns domain.SelectionMFI.
func (s *MFI) Type() domain.SelectionType { return domain.SelectionMFI }

// SelectItem scores each unanswered item by its Fisher information at theta-hat.
func (s *MFI) SelectItem() (domain.Selection, error) {
	if _, err := s.candidates(); err != nil {
		return domain.Selection{}, err
	}
	theta, err := s.Estimator.EstimateTheta(s.Prior)
	if err != nil {
		return domain.Selection{}, err
	}
	return s.selectBy(domain.SelectionMFI, false, func(item int) (float64, error) {
		return s.Estimator.FisherInf(theta, item)
	})
}

// MEI picks the item with the largest expected observed information.
type MEI struct{ base }

// NewMEI creates a maximum expected information selector.
func NewMEI(s Session) *MEI { return &MEI{base{s}} }

// Type returns domain.SelectionMEI.
func (s *MEI) Type() domain.SelectionType { return domain.SelectionMEI }

// SelectItem scores each unanswered item by its expected observed information.
func (s *MEI) SelectItem() (domain.Selection, error) {
	return s.selectBy(domain.SelectionMEI, false, func(item int) (float64, error) {
		return s.Estimator.ExpectedObsInf(item, s.Prior)
	})
}

// MFII integrates Fisher information over a window around the estimate
// whose half-width is Z / sqrt(test information).
type MFII struct {
	base
	z float64
}

// NewMFII creates a maximum Fisher interval information selector. A
// non-positive or unset z falls back to domain.DefaultZ.
func NewMFII(s Session, z float64) *MFII {
	if !domain.IsSet(z) || z <= 0 {
		z = domain.DefaultZ
	}
	return &MFII{base: base{s}, z: z}
}

// Type returns domain.SelectionMFII.
func (s *MFII) Type() domain.SelectionType { return domain.SelectionMFII }

// SelectItem scores each unanswered item by its interval information. With
// no test information yet the window spans the whole support.
func (s *MFII) SelectItem() (domain.Selection, error) {
	if _, err := s.candidates(); err != nil {
		return domain.Selection{}, err
	}
	theta, err := s.Estimator.EstimateTheta(s.Prior)
	if err != nil {
		return domain.Selection{}, err
	}
	info, err := s.Estimator.FisherTestInfo(s.Prior)
	if err != nil {
		return domain.Selection{}, err
	}
	delta := math.Inf(1)
	if info > 0 {
		delta = s.z / math.Sqrt(info)
	}

	return s.selectBy(domain.SelectionMFII, false, func(item int) (float64, error) {
		var cp ports.IntegrandErrors
		v := s.Integrator.IntegrateRange(cp.Wrap(func(x float64) (float64, error) {
			return s.Estimator.FisherInf(x, item)
		}), theta-delta, theta+delta)
		return v, cp.Err
	})
}

// MLWI integrates Fisher information weighted by the likelihood.
type MLWI struct{ base }

// NewMLWI creates a maximum likelihood weighted information selector.
func NewMLWI(s Session) *MLWI { return &MLWI{base{s}} }

// Type returns domain.SelectionMLWI.
func (s *MLWI) Type() domain.SelectionType { return domain.SelectionMLWI }

// SelectItem scores each unanswered item by its likelihood-weighted information.
func (s *MLWI) SelectItem() (domain.Selection, error) {
	return s.selectBy(domain.SelectionMLWI, false, func(item int) (float64, error) {
		return s.weightedInfo(item, func(float64) float64 { return 1 })
	})
}

// MPWI integrates Fisher information weighted by the unnormalised posterior.
type MPWI struct{ base }

// NewMPWI creates a maximum posterior weighted information selector.
func NewMPWI(s Session) *MPWI { return &MPWI{base{s}} }

// Type returns domain.SelectionMPWI.
func (s *MPWI) Type() domain.SelectionType { return domain.SelectionMPWI }

// SelectItem scores each unanswered item by its posterior-weighted information.
func (s *MPWI) SelectItem() (domain.Selection, error) {
	return s.selectBy(domain.SelectionMPWI, false, func(item int) (float64, error) {
		return s.weightedInfo(item, s.Prior.Density)
	})
}

func (b base) weightedInfo(item int, weight func(float64) float64) (float64, error) {
	var cp ports.IntegrandErrors
	v := b.Integrator.Integrate(cp.Wrap(func(x float64) (float64, error) {
		l, err := b.Estimator.Likelihood(x)
		if err != nil {
			return 0, err
		}
		info, err := b.Estimator.FisherInf(x, item)
		return l * weight(x) * info, err
	}))
	return v, cp.Err
}

