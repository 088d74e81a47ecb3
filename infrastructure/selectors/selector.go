// Package selectors implements the item selection criteria. Each selector
// scores every unanswered item of a question set against the session's
// estimator and prior and picks the best one: the lowest score for expected
// posterior variance, the highest for every information and
// Kullback-Leibler criterion. Ties go to the lowest item index.
package selectors

import (
	"fmt"
	"math"

	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

// Session bundles what a selector scores against. The question set and
// estimator are shared with the owning session; selectors never retain
// mutations of the answers.
type Session struct {
	Questions  *domain.QuestionSet
	Estimator  ports.Estimator
	Prior      domain.Prior
	Integrator ports.Integrator
}

// base implements the shared scoring loop.
type base struct {
	Session
}

// scoreFunc scores one unanswered item.
type scoreFunc func(item int) (float64, error)

// selectBy builds the scoring table over the unanswered items in ascending
// index order and picks the extreme value.
func (b base) selectBy(kind domain.SelectionType, minimize bool, score scoreFunc) (domain.Selection, error) {
	candidates, err := b.candidates()
	if err != nil {
		return domain.Selection{}, err
	}

	values := make([]float64, len(candidates))
	for i, item := range candidates {
		v, err := score(item)
		if err != nil {
			return domain.Selection{}, fmt.Errorf("%s score for item %d: %w", kind, item, err)
		}
		if math.IsNaN(v) {
			return domain.Selection{}, fmt.Errorf("%w: %s score for item %d is NaN", domain.ErrInvalidScore, kind, item)
		}
		values[i] = v
	}

	best := 0
	for i := 1; i < len(values); i++ {
		if (minimize && values[i] < values[best]) || (!minimize && values[i] > values[best]) {
			best = i
		}
	}

	return domain.Selection{
		Name:          string(kind),
		Questions:     candidates,
		QuestionNames: b.Questions.Names(candidates),
		Values:        values,
		Item:          candidates[best],
	}, nil
}

// candidates returns the unanswered items sorted ascending.
func (b base) candidates() ([]int, error) {
	if len(b.Questions.NonapplicableRows) == 0 {
		return nil, domain.NewPreconditionError("select_item", domain.ErrNoUnansweredItems)
	}
	out := make([]int, 0, len(b.Questions.NonapplicableRows))
	for i := range b.Questions.Len() {
		if !b.Questions.IsAnswered(i) {
			out = append(out, i)
		}
	}
	return out, nil
}
