package domain

import "math"

// StoppingRules holds the optional stopping thresholds and overrides.
// Each field is either a finite number or Unset.
type StoppingRules struct {
	// LengthThreshold stops once at least this many items are answered.
	LengthThreshold float64
	// SEThreshold stops once the standard error falls below it.
	SEThreshold float64
	// InfoThreshold stops once every unanswered item's Fisher information
	// at the current estimate is below it.
	InfoThreshold float64
	// GainThreshold stops once every unanswered item's |SE - sqrt(EPV)| is
	// below it.
	GainThreshold float64
	// LengthOverride keeps testing while fewer than this many items are answered.
	LengthOverride float64
	// GainOverride keeps testing while every unanswered item's |SE - sqrt(EPV)|
	// is at least this large.
	GainOverride float64
}

// NoStoppingRules returns a rule set with everything unset.
func NoStoppingRules() StoppingRules {
	return StoppingRules{
		LengthThreshold: Unset,
		SEThreshold:     Unset,
		InfoThreshold:   Unset,
		GainThreshold:   Unset,
		LengthOverride:  Unset,
		GainOverride:    Unset,
	}
}

// HasThreshold reports whether any stopping threshold (as opposed to an
// override) is configured.
func (r StoppingRules) HasThreshold() bool {
	return IsSet(r.LengthThreshold) || IsSet(r.SEThreshold) ||
		IsSet(r.InfoThreshold) || IsSet(r.GainThreshold)
}

// NeedsInfo reports whether evaluation needs per-item Fisher information.
func (r StoppingRules) NeedsInfo() bool { return IsSet(r.InfoThreshold) }

// NeedsGain reports whether evaluation needs per-item expected posterior variance.
func (r StoppingRules) NeedsGain() bool { return IsSet(r.GainThreshold) || IsSet(r.GainOverride) }

// StopInputs carries the session quantities the rules are evaluated on.
// Info and EPV hold one value per unanswered item and may be nil when the
// corresponding rules are unset.
type StopInputs struct {
	Answered int
	SE       float64
	Theta    float64
	Info     []float64
	EPV      []float64
}

// ShouldStop reports whether testing should stop: at least one configured
// threshold is satisfied and no configured override is. With nothing
// configured it always returns false.
func (r StoppingRules) ShouldStop(in StopInputs) bool {
	var thresholds, overrides []bool

	if IsSet(r.LengthThreshold) {
		thresholds = append(thresholds, float64(in.Answered) >= r.LengthThreshold)
	}
	if IsSet(r.LengthOverride) {
		overrides = append(overrides, float64(in.Answered) < r.LengthOverride)
	}
	if IsSet(r.SEThreshold) {
		thresholds = append(thresholds, in.SE < r.SEThreshold)
	}
	if IsSet(r.GainThreshold) {
		thresholds = append(thresholds, allOf(in.EPV, func(epv float64) bool {
			return gain(in.SE, epv) < r.GainThreshold
		}))
	}
	if IsSet(r.GainOverride) {
		overrides = append(overrides, allOf(in.EPV, func(epv float64) bool {
			return gain(in.SE, epv) >= r.GainOverride
		}))
	}
	if IsSet(r.InfoThreshold) {
		thresholds = append(thresholds, allOf(in.Info, func(info float64) bool {
			return info < r.InfoThreshold
		}))
	}

	if len(thresholds) == 0 && len(overrides) == 0 {
		return false
	}

	anyThreshold := false
	for _, t := range thresholds {
		anyThreshold = anyThreshold || t
	}
	for _, o := range overrides {
		if o {
			return false
		}
	}
	return anyThreshold
}

func gain(se, epv float64) float64 { return math.Abs(se - math.Sqrt(epv)) }

// allOf is vacuously true for an empty slice.
func allOf(values []float64, pred func(float64) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}
