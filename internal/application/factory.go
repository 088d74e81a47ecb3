package application

import (
	"fmt"
	"math/rand/v2"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ahrav/go-catsurv/infrastructure/estimators"
	"github.com/ahrav/go-catsurv/infrastructure/selectors"
	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

var (
	// upperCaser normalises estimator, selector and prior names.
	upperCaser = cases.Upper(language.Und)
	// lowerCaser normalises IRT family names.
	lowerCaser = cases.Lower(language.Und)
)

// maxHintDistance is the largest edit distance for which an unknown name
// gets a "did you mean" suggestion.
const maxHintDistance = 2

// suggest returns the candidate closest to value by Levenshtein distance,
// or "" when nothing is close enough.
func suggest[T ~string](value string, candidates []T) string {
	best, bestDist := "", maxHintDistance+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(value, string(c)); d < bestDist {
			best, bestDist = string(c), d
		}
	}
	return best
}

func unknownName[T ~string](key, value string, candidates []T) error {
	err := domain.NewConfigError(key, value, fmt.Errorf("unknown %s %q, expected one of %v", key, value, candidates))
	err.Hint = suggest(value, candidates)
	return err
}

// ParseModel resolves an IRT family name case-insensitively.
func ParseModel(name string) (domain.ModelType, error) {
	m := domain.ModelType(lowerCaser.String(name))
	if !m.Valid() {
		return "", unknownName("model", lowerCaser.String(name), domain.ModelTypes())
	}
	return m, nil
}

// ParseEstimation resolves an estimator name case-insensitively.
func ParseEstimation(name string) (domain.EstimationType, error) {
	e := domain.EstimationType(upperCaser.String(name))
	if !e.Valid() {
		return "", unknownName("estimation", upperCaser.String(name), domain.EstimationTypes())
	}
	return e, nil
}

// ParseEstimationDefault resolves the estimator used while a likelihood
// estimator has no finite estimate. Only EAP and MAP qualify.
func ParseEstimationDefault(name string) (domain.EstimationType, error) {
	allowed := []domain.EstimationType{domain.EstimationEAP, domain.EstimationMAP}
	e := domain.EstimationType(upperCaser.String(name))
	switch e {
	case domain.EstimationEAP, domain.EstimationMAP:
		return e, nil
	default:
		return "", unknownName("estimation_default", string(e), allowed)
	}
}

// ParseSelection resolves a selection criterion case-insensitively.
func ParseSelection(name string) (domain.SelectionType, error) {
	s := domain.SelectionType(upperCaser.String(name))
	if !s.Valid() {
		return "", unknownName("selection", upperCaser.String(name), domain.SelectionTypes())
	}
	return s, nil
}

// ParsePriorName resolves a prior family name case-insensitively.
func ParsePriorName(name string) (domain.PriorName, error) {
	p := domain.PriorName(upperCaser.String(name))
	switch p {
	case domain.PriorNormal, domain.PriorStudentT, domain.PriorUniform:
		return p, nil
	default:
		return "", unknownName("prior.name", string(p), domain.PriorNames())
	}
}

// newEstimator builds the concrete estimator of kind.
func newEstimator(
	kind domain.EstimationType,
	qs *domain.QuestionSet,
	integrator ports.Integrator,
	roots ports.RootFinder,
	opts ...estimators.Option,
) (ports.Estimator, error) {
	switch kind {
	case domain.EstimationEAP:
		return estimators.NewEAP(qs, integrator, roots, opts...), nil
	case domain.EstimationMAP:
		return estimators.NewMAP(qs, integrator, roots, opts...), nil
	case domain.EstimationMLE:
		return estimators.NewMLE(qs, integrator, roots, opts...), nil
	case domain.EstimationWLE:
		return estimators.NewWLE(qs, integrator, roots, opts...), nil
	default:
		return nil, unknownName("estimation", string(kind), domain.EstimationTypes())
	}
}

// newSelector builds the concrete selector of kind.
func newSelector(kind domain.SelectionType, s selectors.Session, z float64, rng *rand.Rand) (ports.Selector, error) {
	switch kind {
	case domain.SelectionEPV:
		return selectors.NewEPV(s), nil
	case domain.SelectionMFI:
		return selectors.NewMFI(s), nil
	case domain.SelectionMEI:
		return selectors.NewMEI(s), nil
	case domain.SelectionMPWI:
		return selectors.NewMPWI(s), nil
	case domain.SelectionMLWI:
		return selectors.NewMLWI(s), nil
	case domain.SelectionKL:
		return selectors.NewKL(s), nil
	case domain.SelectionLKL:
		return selectors.NewLKL(s), nil
	case domain.SelectionPKL:
		return selectors.NewPKL(s), nil
	case domain.SelectionMFII:
		return selectors.NewMFII(s, z), nil
	case domain.SelectionRandom:
		return selectors.NewRandom(s, rng), nil
	default:
		return nil, unknownName("selection", string(kind), domain.SelectionTypes())
	}
}
