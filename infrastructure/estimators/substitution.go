package estimators

import (
	"github.com/ahrav/go-catsurv/internal/domain"
)

// Substitution reports why a session configured with kind must run on its
// default estimator instead, or nil when kind can serve it. Only the
// likelihood-based estimators (MLE, WLE) are ever substituted: with nothing
// answered, or every answer at the same end of its scale, their likelihood
// has no interior maximum.
//
// The decision is taken once, from the answers the session starts with, and
// holds for the whole session.
func Substitution(kind domain.EstimationType, qs *domain.QuestionSet) error {
	if kind != domain.EstimationMLE && kind != domain.EstimationWLE {
		return nil
	}
	switch {
	case len(qs.ApplicableRows) == 0:
		return domain.ErrNoAnsweredItems
	case qs.AllExtreme:
		return domain.ErrAllExtreme
	}
	return nil
}
