// Package domain contains the pure data model of a computerized adaptive
// testing session: the item bank with one respondent's answers, the ability
// prior, stopping rules and selection results.
package domain

import "math"

// ModelType identifies the item response theory family of a question set.
type ModelType string

// Supported IRT families.
const (
	// ModelLTM is the binary two-parameter logistic model.
	ModelLTM ModelType = "ltm"

	// ModelTPM is the binary three-parameter logistic model with guessing.
	ModelTPM ModelType = "tpm"

	// ModelGRM is the graded response model for ordered categories.
	ModelGRM ModelType = "grm"

	// ModelGPCM is the generalized partial credit model.
	ModelGPCM ModelType = "gpcm"
)

// ModelTypes lists every supported IRT family.
func ModelTypes() []ModelType { return []ModelType{ModelLTM, ModelTPM, ModelGRM, ModelGPCM} }

// IsBinary reports whether responses are coded 0/1.
func (m ModelType) IsBinary() bool { return m == ModelLTM || m == ModelTPM }

// Valid reports whether m is a supported family.
func (m ModelType) Valid() bool {
	switch m {
	case ModelLTM, ModelTPM, ModelGRM, ModelGPCM:
		return true
	}
	return false
}

// EstimationType identifies an ability estimator.
type EstimationType string

// Supported estimators.
const (
	EstimationEAP EstimationType = "EAP"
	EstimationMAP EstimationType = "MAP"
	EstimationMLE EstimationType = "MLE"
	EstimationWLE EstimationType = "WLE"
)

// EstimationTypes lists every supported estimator.
func EstimationTypes() []EstimationType {
	return []EstimationType{EstimationEAP, EstimationMAP, EstimationMLE, EstimationWLE}
}

// Valid reports whether e is a supported estimator.
func (e EstimationType) Valid() bool {
	switch e {
	case EstimationEAP, EstimationMAP, EstimationMLE, EstimationWLE:
		return true
	}
	return false
}

// SelectionType identifies an item selection strategy.
type SelectionType string

// Supported selection strategies.
const (
	SelectionEPV    SelectionType = "EPV"
	SelectionMFI    SelectionType = "MFI"
	SelectionMEI    SelectionType = "MEI"
	SelectionMPWI   SelectionType = "MPWI"
	SelectionMLWI   SelectionType = "MLWI"
	SelectionKL     SelectionType = "KL"
	SelectionLKL    SelectionType = "LKL"
	SelectionPKL    SelectionType = "PKL"
	SelectionMFII   SelectionType = "MFII"
	SelectionRandom SelectionType = "RANDOM"
)

// SelectionTypes lists every supported selection strategy.
func SelectionTypes() []SelectionType {
	return []SelectionType{
		SelectionEPV, SelectionMFI, SelectionMEI, SelectionMPWI, SelectionMLWI,
		SelectionKL, SelectionLKL, SelectionPKL, SelectionMFII, SelectionRandom,
	}
}

// Valid reports whether s is a supported selection strategy.
func (s SelectionType) Valid() bool {
	switch s {
	case SelectionEPV, SelectionMFI, SelectionMEI, SelectionMPWI, SelectionMLWI,
		SelectionKL, SelectionLKL, SelectionPKL, SelectionMFII, SelectionRandom:
		return true
	}
	return false
}

// Unset is the not-a-number sentinel for an unconfigured numeric option.
// Zero is a meaningful threshold and must not be used for "unset".
var Unset = math.NaN()

// IsSet reports whether a numeric option carries a configured value.
func IsSet(v float64) bool { return !math.IsNaN(v) }

// Item holds the calibrated parameters of one question.
type Item struct {
	// Name is a human-readable label shown in selection tables.
	Name string

	// Discrimination is the item slope.
	Discrimination float64

	// Difficulty holds the intercept for binary items, the ordered category
	// thresholds for grm and the step difficulties for gpcm.
	Difficulty []float64

	// Guessing is the lower asymptote; only used by tpm.
	Guessing float64
}

// CatConfig is the configuration snapshot a session is built from.
// Answers must have one entry per item, using Unanswered for items
// the respondent has not seen.
type CatConfig struct {
	Model             ModelType
	Items             []Item
	Answers           []int
	Estimation        string
	EstimationDefault string
	Selection         string
	PriorName         string
	PriorParams       [2]float64
	StoppingRules     StoppingRules
	// Z scales the MFII integration window.
	Z float64
}

// DefaultZ is the MFII window multiplier used when none is configured.
const DefaultZ = 0.9
