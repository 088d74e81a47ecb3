package application

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-catsurv/internal/domain"
)

// nameParsers maps each custom name tag to the parser that produces the
// configuration error, including its "did you mean" hint.
var nameParsers = map[string]func(string) error{
	"irtmodel":          accepts(ParseModel),
	"estimation":        accepts(ParseEstimation),
	"estimationdefault": accepts(ParseEstimationDefault),
	"selection":         accepts(ParseSelection),
	"priorname":         accepts(ParsePriorName),
}

func accepts[T any](parse func(string) (T, error)) func(string) error {
	return func(s string) error {
		_, err := parse(s)
		return err
	}
}

// registerCustomValidators registers the name and numeric rules used by
// CatFile struct tags.
func registerCustomValidators(v *validator.Validate) error {
	for tag, parse := range nameParsers {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return parse(fl.Field().String()) == nil
		}); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	if err := v.RegisterValidation("finite", validateFinite); err != nil {
		return fmt.Errorf("failed to register finite validator: %w", err)
	}
	return nil
}

// validateFinite rejects NaN and infinities.
func validateFinite(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// translateValidationErrors turns validator output into domain errors.
// A failed name rule is reported alone as a *domain.ConfigError so the hint
// reaches the user; other failures are collected.
func translateValidationErrors(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	verr := domain.NewValidationError("CatFile")
	for _, fe := range fieldErrs {
		if parse, ok := nameParsers[fe.Tag()]; ok {
			if value, isString := fe.Value().(string); isString {
				if perr := parse(value); perr != nil {
					return perr
				}
			}
		}
		verr.AddErrorf("%s: failed %q rule (value %v)", fe.Namespace(), ruleName(fe), fe.Value())
	}
	return verr
}

func ruleName(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// validateSemantics checks what the struct tags cannot: item parameters
// against the model, the answer vector against the items and the prior
// parameters against the family.
func validateSemantics(f *CatFile) error {
	model, err := ParseModel(f.Model)
	if err != nil {
		return err
	}

	verr := domain.NewValidationError("CatFile")

	cfg, err := f.ToConfig()
	if err != nil {
		return err
	}
	var itemErr *domain.ValidationError
	if err := domain.ValidateItems(model, cfg.Items); errors.As(err, &itemErr) {
		for _, msg := range itemErr.Errors {
			verr.AddError(msg)
		}
	}

	if f.Answers != nil {
		if len(f.Answers) != len(f.Items) {
			verr.AddErrorf("answers: %d answers for %d items", len(f.Answers), len(f.Items))
		} else if !verr.HasErrors() {
			if _, err := domain.NewQuestionSet(model, cfg.Items, cfg.Answers); err != nil {
				verr.AddErrorf("answers: %v", err)
			}
		}
	}

	priorName, err := ParsePriorName(f.Prior.Name)
	if err != nil {
		return err
	}
	if _, err := domain.NewPrior(priorName, cfg.PriorParams); err != nil {
		verr.AddErrorf("prior: %v", err)
	}

	if priorName != domain.PriorNormal && usesMAP(cfg) {
		verr.AddErrorf("prior: MAP estimation requires a NORMAL prior, got %s", priorName)
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// usesMAP reports whether cfg can route estimation to MAP, either directly
// or as the stand-in for a likelihood estimator.
func usesMAP(cfg domain.CatConfig) bool {
	switch domain.EstimationType(cfg.Estimation) {
	case domain.EstimationMAP:
		return true
	case domain.EstimationMLE, domain.EstimationWLE:
		return domain.EstimationType(cfg.EstimationDefault) == domain.EstimationMAP
	}
	return false
}
