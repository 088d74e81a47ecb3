package selectors

import (
	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

var (
	_ ports.Selector = (*KL)(nil)
	_ ports.Selector = (*LKL)(nil)
	_ ports.Selector = (*PKL)(nil)
)

// KL picks the item with the largest Kullback-Leibler information over a
// window around the estimate.
type KL struct{ base }

// NewKL creates a Kullback-Leibler selector.
func NewKL(s Session) *KL { return &KL{base{s}} }

// Type returns domain.SelectionKL.
func (s *KL) Type() domain.SelectionType { return domain.SelectionKL }

// SelectItem scores each unanswered item by its expected KL information.
func (s *KL) SelectItem() (domain.Selection, error) {
	return s.selectBy(domain.SelectionKL, false, func(item int) (float64, error) {
		return s.Estimator.ExpectedKL(item, s.Prior)
	})
}

// LKL weights the KL information by the likelihood.
type LKL struct{ base }

// NewLKL creates a likelihood-weighted Kullback-Leibler selector.
func NewLKL(s Session) *LKL { return &LKL{base{s}} }

// Type returns domain.SelectionLKL.
func (s *LKL) Type() domain.SelectionType { return domain.SelectionLKL }

// SelectItem scores each unanswered item by its likelihood-weighted KL information.
func (s *LKL) SelectItem() (domain.Selection, error) {
	return s.selectBy(domain.SelectionLKL, false, func(item int) (float64, error) {
		return s.Estimator.LikelihoodKL(item, s.Prior)
	})
}

// PKL weights the KL information by the posterior.
type PKL struct{ base }

// NewPKL creates a posterior-weighted Kullback-Leibler selector.
func NewPKL(s Session) *PKL { return &PKL{base{s}} }

// Type returns domain.SelectionPKL.
func (s *PKL) Type() domain.SelectionType { return domain.SelectionPKL }

// SelectItem scores each unanswered item by its posterior-weighted KL information.
func (s *PKL) SelectItem() (domain.Selection, error) {
	return s.selectBy(domain.SelectionPKL, false, func(item int) (float64, error) {
		return s.Estimator.PosteriorKL(item, s.Prior)
	})
}
