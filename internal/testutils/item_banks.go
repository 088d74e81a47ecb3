// Package testutils provides small calibrated item banks and helpers shared
// by the package tests.
package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-catsurv/internal/domain"
)

// NA is a short alias for domain.Unanswered in answer literals.
const NA = domain.Unanswered

// LTMBank returns a five-item two-parameter logistic bank.
func LTMBank() []domain.Item {
	return []domain.Item{
		{Name: "Q1", Discrimination: 1.2, Difficulty: []float64{-1.0}},
		{Name: "Q2", Discrimination: 0.8, Difficulty: []float64{0.5}},
		{Name: "Q3", Discrimination: 1.5, Difficulty: []float64{0.0}},
		{Name: "Q4", Discrimination: 2.0, Difficulty: []float64{-0.3}},
		{Name: "Q5", Discrimination: 0.6, Difficulty: []float64{1.1}},
	}
}

// TPMBank returns a five-item three-parameter logistic bank.
func TPMBank() []domain.Item {
	items := LTMBank()
	guessing := []float64{0.2, 0.1, 0.25, 0.15, 0.05}
	for i := range items {
		items[i].Guessing = guessing[i]
	}
	return items
}

// GRMBank returns a four-item graded response bank with four categories
// per item.
func GRMBank() []domain.Item {
	return []domain.Item{
		{Name: "G1", Discrimination: 1.1, Difficulty: []float64{-1.5, -0.2, 1.4}},
		{Name: "G2", Discrimination: 0.7, Difficulty: []float64{-2.0, 0.1, 0.9}},
		{Name: "G3", Discrimination: 1.6, Difficulty: []float64{-0.8, 0.4, 2.1}},
		{Name: "G4", Discrimination: 1.3, Difficulty: []float64{-1.1, 0.0, 1.0}},
	}
}

// GPCMBank returns a four-item generalized partial credit bank with four
// categories per item.
func GPCMBank() []domain.Item {
	return []domain.Item{
		{Name: "P1", Discrimination: 0.8, Difficulty: []float64{-1.0, 0.3, 1.2}},
		{Name: "P2", Discrimination: 1.2, Difficulty: []float64{-0.5, 0.0, 0.6}},
		{Name: "P3", Discrimination: 0.6, Difficulty: []float64{-1.8, -0.2, 1.5}},
		{Name: "P4", Discrimination: 1.4, Difficulty: []float64{-0.7, 0.8, 1.9}},
	}
}

// Bank returns the fixture bank of a model family.
func Bank(model domain.ModelType) []domain.Item {
	switch model {
	case domain.ModelLTM:
		return LTMBank()
	case domain.ModelTPM:
		return TPMBank()
	case domain.ModelGRM:
		return GRMBank()
	default:
		return GPCMBank()
	}
}

// MixedAnswers returns a non-extreme partial answer profile for the fixture
// bank of model, leaving the last two items unanswered.
func MixedAnswers(model domain.ModelType) []int {
	if model.IsBinary() {
		return []int{1, 0, 1, NA, NA}
	}
	return []int{2, 4, NA, NA}
}

// NewQuestionSet builds a question set over the fixture bank of model.
func NewQuestionSet(t testing.TB, model domain.ModelType, answers []int) *domain.QuestionSet {
	t.Helper()
	qs, err := domain.NewQuestionSet(model, Bank(model), answers)
	require.NoError(t, err)
	return qs
}

// NormalPrior returns a standard normal prior.
func NormalPrior(t testing.TB) domain.Prior {
	t.Helper()
	p, err := domain.NewPrior(domain.PriorNormal, [2]float64{0, 1})
	require.NoError(t, err)
	return p
}

// Config returns a session configuration over the fixture bank of model
// with a standard normal prior and no stopping rules.
func Config(model domain.ModelType, answers []int, estimation, selection string) domain.CatConfig {
	return domain.CatConfig{
		Model:             model,
		Items:             Bank(model),
		Answers:           answers,
		Estimation:        estimation,
		EstimationDefault: string(domain.EstimationEAP),
		Selection:         selection,
		PriorName:         string(domain.PriorNormal),
		PriorParams:       [2]float64{0, 1},
		StoppingRules:     domain.NoStoppingRules(),
		Z:                 domain.DefaultZ,
	}
}
