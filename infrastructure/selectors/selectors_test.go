package selectors

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-catsurv/infrastructure/estimators"
	"github.com/ahrav/go-catsurv/infrastructure/numeric"
	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
	"github.com/ahrav/go-catsurv/internal/testutils"
)

const NA = testutils.NA

func newSession(t *testing.T, qs *domain.QuestionSet) Session {
	t.Helper()
	in := numeric.NewIntegrator()
	return Session{
		Questions:  qs,
		Estimator:  estimators.NewEAP(qs, in, numeric.NewBrent()),
		Prior:      testutils.NormalPrior(t),
		Integrator: in,
	}
}

func allSelectors(s Session) []ports.Selector {
	return []ports.Selector{
		NewEPV(s), NewMFI(s), NewMEI(s), NewMFII(s, domain.DefaultZ), NewMLWI(s),
		NewMPWI(s), NewKL(s), NewLKL(s), NewPKL(s), NewRandom(s, rand.New(rand.NewPCG(1, 2))),
	}
}

func TestSelectItemCoversUnansweredItems(t *testing.T) {
	for _, model := range domain.ModelTypes() {
		qs := testutils.NewQuestionSet(t, model, testutils.MixedAnswers(model))
		before := qs.Clone()

		for _, sel := range allSelectors(newSession(t, qs)) {
			t.Run(string(model)+"/"+string(sel.Type()), func(t *testing.T) {
				got, err := sel.SelectItem()
				require.NoError(t, err)

				want := slices.Sorted(slices.Values(qs.NonapplicableRows))
				assert.Equal(t, want, got.Questions)
				assert.Len(t, got.Values, len(want))
				assert.Len(t, got.QuestionNames, len(want))
				assert.Contains(t, qs.NonapplicableRows, got.Item)
				assert.Equal(t, string(sel.Type()), got.Name)

				assert.Equal(t, before, qs, "selection must not leave answers changed")
			})
		}
	}
}

func TestSelectItemPicksExtremeScore(t *testing.T) {
	qs := testutils.NewQuestionSet(t, domain.ModelLTM, []int{1, NA, NA, NA, 0})
	s := newSession(t, qs)

	for _, sel := range allSelectors(s) {
		if sel.Type() == domain.SelectionRandom {
			continue
		}
		t.Run(string(sel.Type()), func(t *testing.T) {
			got, err := sel.SelectItem()
			require.NoError(t, err)

			best := slices.Index(got.Questions, got.Item)
			for i, v := range got.Values {
				if sel.Type() == domain.SelectionEPV {
					assert.GreaterOrEqual(t, v, got.Values[best])
				} else {
					assert.LessOrEqual(t, v, got.Values[best])
				}
				if v == got.Values[best] {
					assert.GreaterOrEqual(t, i, best, "ties go to the lowest index")
				}
			}
		})
	}
}

func TestMFIPrefersDiscriminatingItem(t *testing.T) {
	items := []domain.Item{
		{Name: "weak", Discrimination: 0.3, Difficulty: []float64{0}},
		{Name: "strong", Discrimination: 2.5, Difficulty: []float64{0}},
		{Name: "medium", Discrimination: 1.0, Difficulty: []float64{0}},
	}
	qs, err := domain.NewQuestionSet(domain.ModelLTM, items, nil)
	require.NoError(t, err)

	got, err := NewMFI(newSession(t, qs)).SelectItem()
	require.NoError(t, err)
	assert.Equal(t, 1, got.Item)
	assert.Equal(t, []string{"weak", "strong", "medium"}, got.QuestionNames)
}

func TestSelectItemTieBreaksToLowestIndex(t *testing.T) {
	items := []domain.Item{
		{Discrimination: 1, Difficulty: []float64{0}},
		{Discrimination: 1, Difficulty: []float64{0}},
		{Discrimination: 1, Difficulty: []float64{0}},
	}
	qs, err := domain.NewQuestionSet(domain.ModelLTM, items, []int{NA, NA, NA})
	require.NoError(t, err)

	for _, sel := range []ports.Selector{NewMFI(newSession(t, qs)), NewEPV(newSession(t, qs))} {
		got, err := sel.SelectItem()
		require.NoError(t, err)
		assert.Equal(t, 0, got.Item)
		assert.Equal(t, []string{"Q1", "Q2", "Q3"}, got.QuestionNames)
	}
}

func TestSelectItemNoUnansweredItems(t *testing.T) {
	qs := testutils.NewQuestionSet(t, domain.ModelLTM, []int{1, 0, 1, 0, 1})

	for _, sel := range allSelectors(newSession(t, qs)) {
		t.Run(string(sel.Type()), func(t *testing.T) {
			_, err := sel.SelectItem()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrNoUnansweredItems)

			var pre *domain.PreconditionError
			assert.True(t, errors.As(err, &pre))
		})
	}
}

func TestRandomSelector(t *testing.T) {
	qs := testutils.NewQuestionSet(t, domain.ModelGPCM, nil)
	s := newSession(t, qs)

	first, err := NewRandom(s, rand.New(rand.NewPCG(7, 7))).SelectItem()
	require.NoError(t, err)
	second, err := NewRandom(s, rand.New(rand.NewPCG(7, 7))).SelectItem()
	require.NoError(t, err)

	assert.Equal(t, first.Item, second.Item, "same seed must give the same pick")
	assert.Equal(t, []float64{0, 0, 0, 0}, first.Values)

	seen := map[int]bool{}
	sel := NewRandom(s, rand.New(rand.NewPCG(1, 99)))
	for range 200 {
		got, err := sel.SelectItem()
		require.NoError(t, err)
		seen[got.Item] = true
	}
	assert.Len(t, seen, 4, "every unanswered item should eventually be drawn")
}

func TestMFIIDefaultsZ(t *testing.T) {
	qs := testutils.NewQuestionSet(t, domain.ModelLTM, nil)
	assert.Equal(t, domain.DefaultZ, NewMFII(newSession(t, qs), domain.Unset).z)
	assert.Equal(t, domain.DefaultZ, NewMFII(newSession(t, qs), 0).z)
	assert.Equal(t, 1.96, NewMFII(newSession(t, qs), 1.96).z)
}
