package domain

import "math"

// ValidateItems checks item parameters against the response scale of model.
// Binary items carry exactly one difficulty; graded response thresholds must
// be strictly ascending; guessing must lie in [0, 1) and is only meaningful
// for tpm. Every problem is collected into one ValidationError.
func ValidateItems(model ModelType, items []Item) error {
	verr := NewValidationError("items")
	if len(items) == 0 {
		verr.AddError("item bank is empty")
	}

	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	for i, it := range items {
		n := i + 1
		if !finite(it.Discrimination) {
			verr.AddErrorf("item %d: discrimination %g is not finite", n, it.Discrimination)
		}
		if len(it.Difficulty) == 0 {
			verr.AddErrorf("item %d: no difficulty parameters", n)
		}
		for _, d := range it.Difficulty {
			if !finite(d) {
				verr.AddErrorf("item %d: difficulty %g is not finite", n, d)
			}
		}
		if model.IsBinary() && len(it.Difficulty) > 1 {
			verr.AddErrorf("item %d: %s items take one difficulty, got %d", n, model, len(it.Difficulty))
		}
		if model == ModelGRM {
			for k := 1; k < len(it.Difficulty); k++ {
				if !(it.Difficulty[k] > it.Difficulty[k-1]) {
					verr.AddErrorf("item %d: grm thresholds must be strictly ascending", n)
					break
				}
			}
		}
		if model == ModelTPM {
			if !(it.Guessing >= 0 && it.Guessing < 1) {
				verr.AddErrorf("item %d: guessing %g outside [0,1)", n, it.Guessing)
			}
		} else if it.Guessing != 0 {
			verr.AddErrorf("item %d: guessing is only used by tpm", n)
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
