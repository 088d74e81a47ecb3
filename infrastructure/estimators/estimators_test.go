package estimators

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-catsurv/infrastructure/irt"
	"github.com/ahrav/go-catsurv/infrastructure/numeric"
	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
	"github.com/ahrav/go-catsurv/internal/testutils"
)

const NA = testutils.NA

var allModels = []domain.ModelType{domain.ModelLTM, domain.ModelTPM, domain.ModelGRM, domain.ModelGPCM}

type constructor func(*domain.QuestionSet, ports.Integrator, ports.RootFinder, ...Option) ports.Estimator

var constructors = map[domain.EstimationType]constructor{
	domain.EstimationEAP: func(qs *domain.QuestionSet, in ports.Integrator, rf ports.RootFinder, o ...Option) ports.Estimator {
		return NewEAP(qs, in, rf, o...)
	},
	domain.EstimationMAP: func(qs *domain.QuestionSet, in ports.Integrator, rf ports.RootFinder, o ...Option) ports.Estimator {
		return NewMAP(qs, in, rf, o...)
	},
	domain.EstimationMLE: func(qs *domain.QuestionSet, in ports.Integrator, rf ports.RootFinder, o ...Option) ports.Estimator {
		return NewMLE(qs, in, rf, o...)
	},
	domain.EstimationWLE: func(qs *domain.QuestionSet, in ports.Integrator, rf ports.RootFinder, o ...Option) ports.Estimator {
		return NewWLE(qs, in, rf, o...)
	},
}

func build(t *testing.T, kind domain.EstimationType, qs *domain.QuestionSet, opts ...Option) ports.Estimator {
	t.Helper()
	return constructors[kind](qs, numeric.NewIntegrator(), numeric.NewBrent(), opts...)
}

// twinItems returns n identical 2PL items so that the MLE has a closed form.
func twinItems(n int, a, d float64) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{Discrimination: a, Difficulty: []float64{d}}
	}
	return items
}

func TestNewtonConvergesToKnownRoot(t *testing.T) {
	tests := []struct {
		name     string
		kind     domain.EstimationType
		items    []domain.Item
		answers  []int
		expected float64
	}{
		{
			// One right and one wrong on identical items: P(theta) = 1/2.
			name:     "MLE balanced",
			kind:     domain.EstimationMLE,
			items:    twinItems(2, 1.5, 0.6),
			answers:  []int{1, 0},
			expected: -0.4,
		},
		{
			// Two right and one wrong: P(theta) = 2/3.
			name:     "MLE two of three",
			kind:     domain.EstimationMLE,
			items:    twinItems(3, 1, 0),
			answers:  []int{1, 1, 0},
			expected: math.Log(2),
		},
		{
			// The Warm correction vanishes where P = 1/2.
			name:     "WLE balanced",
			kind:     domain.EstimationWLE,
			items:    twinItems(2, 1.5, 0.6),
			answers:  []int{1, 0},
			expected: -0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs, err := domain.NewQuestionSet(domain.ModelLTM, tt.items, tt.answers)
			require.NoError(t, err)

			fallbacks := 0
			e := build(t, tt.kind, qs, WithFallbackObserver(ports.FallbackObserverFunc(
				func(domain.EstimationType, error) { fallbacks++ })))

			theta, err := e.EstimateTheta(testutils.NormalPrior(t))
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, theta, 1e-6)
			assert.Zero(t, fallbacks, "newton should converge without the fallback")
		})
	}
}

func TestDomainErrorTriggersFallback(t *testing.T) {
	for _, kind := range []domain.EstimationType{domain.EstimationMLE, domain.EstimationWLE, domain.EstimationMAP} {
		t.Run(string(kind), func(t *testing.T) {
			qs, err := domain.NewQuestionSet(domain.ModelLTM, twinItems(2, 1.5, 0.6), []int{1, 0})
			require.NoError(t, err)

			var observed []error
			e := build(t, kind, qs, WithFallbackObserver(ports.FallbackObserverFunc(
				func(got domain.EstimationType, reason error) {
					assert.Equal(t, kind, got)
					observed = append(observed, reason)
				})))

			calls := 0
			c := coreOf(e)
			c.categories = func(m domain.ModelType, it domain.Item, theta float64) (irt.Categories, error) {
				calls++
				if calls == 1 {
					return irt.Categories{}, domain.ErrNumericalDomain
				}
				return irt.CategoriesAt(m, it, theta)
			}

			theta, err := e.EstimateTheta(testutils.NormalPrior(t))
			require.NoError(t, err)
			assert.False(t, math.IsNaN(theta) || math.IsInf(theta, 0))
			require.Len(t, observed, 1)
			assert.ErrorIs(t, observed[0], domain.ErrNumericalDomain)
			if kind != domain.EstimationMAP {
				assert.InDelta(t, -0.4, theta, 1e-6)
			}
		})
	}
}

func coreOf(e ports.Estimator) *core {
	switch v := e.(type) {
	case *MLE:
		return v.core
	case *WLE:
		return v.core
	case *MAP:
		return v.core
	case *EAP:
		return v.core
	}
	return nil
}

// countingRoots fails every search and counts how often it was asked.
type countingRoots struct{ calls int }

func (r *countingRoots) FindRoot(func(float64) (float64, error), float64, float64) (float64, error) {
	r.calls++
	return 0, domain.NewPreconditionError("find_root", domain.ErrNoBracket)
}

func TestNewtonIterationBudgetKeepsLastIterate(t *testing.T) {
	// The step sends 0 to 1 and 1 back to 0, so the iterates never settle.
	step := func(theta float64) (float64, error) { return 2*theta - 1, nil }
	score := func(float64) (float64, error) { return 1, nil }

	theta, err := newton(step, score)
	require.NoError(t, err)
	assert.Equal(t, 0.0, theta, "200 alternating steps end on 0")

	roots := &countingRoots{}
	fallbacks := 0
	c := newCore(testutils.NewQuestionSet(t, domain.ModelLTM, nil), numeric.NewIntegrator(), roots,
		[]Option{WithFallbackObserver(ports.FallbackObserverFunc(func(domain.EstimationType, error) { fallbacks++ }))})

	theta, err = c.solve(domain.EstimationMLE, step, score)
	require.NoError(t, err)
	assert.Equal(t, 0.0, theta)
	assert.Zero(t, roots.calls, "running out of iterations does not start the root search")
	assert.Zero(t, fallbacks)
}

func TestFallbackWithoutBracketFails(t *testing.T) {
	// All correct answers have no finite maximum likelihood estimate.
	qs, err := domain.NewQuestionSet(domain.ModelLTM, twinItems(2, 1, 0), []int{1, 1})
	require.NoError(t, err)

	_, err = build(t, domain.EstimationMLE, qs).EstimateTheta(testutils.NormalPrior(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoBracket)
}

func TestEAPEmptyProfileIsPriorMean(t *testing.T) {
	tests := []struct {
		name string
		mean float64
		sd   float64
	}{
		{"standard", 0, 1},
		{"shifted", 0.5, 1},
		{"narrow", -1.2, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := testutils.NewQuestionSet(t, domain.ModelLTM, nil)
			prior, err := domain.NewPrior(domain.PriorNormal, [2]float64{tt.mean, tt.sd})
			require.NoError(t, err)

			e := build(t, domain.EstimationEAP, qs)
			theta, err := e.EstimateTheta(prior)
			require.NoError(t, err)
			assert.InDelta(t, tt.mean, theta, 1e-4)

			se, err := e.EstimateSE(prior)
			require.NoError(t, err)
			assert.InDelta(t, tt.sd, se, 1e-3)
		})
	}
}

func TestMAPEmptyProfileIsPriorMode(t *testing.T) {
	qs := testutils.NewQuestionSet(t, domain.ModelGRM, nil)
	prior, err := domain.NewPrior(domain.PriorNormal, [2]float64{0.3, 1.5})
	require.NoError(t, err)

	theta, err := build(t, domain.EstimationMAP, qs).EstimateTheta(prior)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, theta, 1e-7)
}

func TestMAPRejectsNonNormalPrior(t *testing.T) {
	qs := testutils.NewQuestionSet(t, domain.ModelLTM, testutils.MixedAnswers(domain.ModelLTM))
	prior, err := domain.NewPrior(domain.PriorStudentT, [2]float64{0, 5})
	require.NoError(t, err)

	_, err = build(t, domain.EstimationMAP, qs).EstimateTheta(prior)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedPrior)

	var pre *domain.PreconditionError
	assert.True(t, errors.As(err, &pre))
}

func TestMLERequiresAnswers(t *testing.T) {
	qs := testutils.NewQuestionSet(t, domain.ModelLTM, nil)
	_, err := build(t, domain.EstimationMLE, qs).EstimateTheta(testutils.NormalPrior(t))
	assert.ErrorIs(t, err, domain.ErrNoAnsweredItems)
}

func TestD1LLWithPriorAddsPriorDerivative(t *testing.T) {
	prior, err := domain.NewPrior(domain.PriorNormal, [2]float64{0.4, 1.3})
	require.NoError(t, err)

	for _, model := range allModels {
		t.Run(string(model), func(t *testing.T) {
			qs := testutils.NewQuestionSet(t, model, testutils.MixedAnswers(model))
			e := build(t, domain.EstimationEAP, qs)

			for _, theta := range []float64{-3, -0.7, 0, 1.1, 2.8} {
				plain, err := e.D1LL(theta, false, prior)
				require.NoError(t, err)
				withPrior, err := e.D1LL(theta, true, prior)
				require.NoError(t, err)
				d1, d2, err := prior.LogDensityDerivatives(theta)
				require.NoError(t, err)
				assert.InDelta(t, plain+d1, withPrior, 1e-12)

				plain2, err := e.D2LL(theta, false, prior)
				require.NoError(t, err)
				withPrior2, err := e.D2LL(theta, true, prior)
				require.NoError(t, err)
				assert.InDelta(t, plain2+d2, withPrior2, 1e-12)
			}
		})
	}
}

func TestDerivativesMatchLogLikelihood(t *testing.T) {
	const h = 1e-5
	prior := testutils.NormalPrior(t)

	for _, model := range allModels {
		t.Run(string(model), func(t *testing.T) {
			qs := testutils.NewQuestionSet(t, model, testutils.MixedAnswers(model))
			e := build(t, domain.EstimationEAP, qs)
			logL := func(theta float64) float64 {
				l, err := e.Likelihood(theta)
				require.NoError(t, err)
				return math.Log(l)
			}

			for _, theta := range []float64{-2, -0.5, 0.3, 1.7} {
				d1, err := e.D1LL(theta, false, prior)
				require.NoError(t, err)
				assert.InDelta(t, (logL(theta+h)-logL(theta-h))/(2*h), d1, 1e-6)

				d2, err := e.D2LL(theta, false, prior)
				require.NoError(t, err)
				if model != domain.ModelTPM {
					// Guessing breaks log-concavity, so only the other families are checked.
					assert.LessOrEqual(t, d2, 0.0)
				}
				assert.InDelta(t, (logL(theta+h)-2*logL(theta)+logL(theta-h))/(h*h), d2, 1e-3)
			}
		})
	}
}

func TestD1LLUnsupportedPrior(t *testing.T) {
	qs := testutils.NewQuestionSet(t, domain.ModelLTM, testutils.MixedAnswers(domain.ModelLTM))
	prior, err := domain.NewPrior(domain.PriorUniform, [2]float64{-3, 3})
	require.NoError(t, err)

	e := build(t, domain.EstimationEAP, qs)
	_, err = e.D1LL(0, true, prior)
	assert.ErrorIs(t, err, domain.ErrUnsupportedPrior)
	_, err = e.D2LL(0, true, prior)
	assert.ErrorIs(t, err, domain.ErrUnsupportedPrior)

	_, err = e.D1LL(0, false, prior)
	assert.NoError(t, err)
}

func TestBinaryFisherEqualsObservedInformation(t *testing.T) {
	for _, answer := range []int{0, 1} {
		qs, err := domain.NewQuestionSet(domain.ModelLTM, testutils.LTMBank(), []int{answer, NA, NA, NA, NA})
		require.NoError(t, err)
		e := build(t, domain.EstimationEAP, qs)

		fi, err := e.FisherInf(0.3, 0)
		require.NoError(t, err)
		oi, err := e.ObsInf(0.3, 0)
		require.NoError(t, err)
		assert.InDelta(t, fi, oi, 1e-12)
	}
}

func TestObsInfRequiresAnsweredItem(t *testing.T) {
	qs := testutils.NewQuestionSet(t, domain.ModelGRM, testutils.MixedAnswers(domain.ModelGRM))
	e := build(t, domain.EstimationEAP, qs)

	_, err := e.ObsInf(0, 3)
	assert.ErrorIs(t, err, domain.ErrItemNotAnswered)

	_, err = e.ObsInf(0, 9)
	assert.ErrorIs(t, err, domain.ErrItemOutOfRange)
}

func TestStandardErrors(t *testing.T) {
	prior := testutils.NormalPrior(t)

	for _, model := range allModels {
		for kind := range constructors {
			t.Run(string(model)+"/"+string(kind), func(t *testing.T) {
				qs := testutils.NewQuestionSet(t, model, testutils.MixedAnswers(model))
				e := build(t, kind, qs)

				theta, err := e.EstimateTheta(prior)
				require.NoError(t, err)
				assert.True(t, theta > -5 && theta < 5)

				se, err := e.EstimateSE(prior)
				require.NoError(t, err)
				assert.Greater(t, se, 0.0)

				if kind == domain.EstimationMLE || kind == domain.EstimationWLE {
					info, err := e.FisherTestInfo(prior)
					require.NoError(t, err)
					assert.InDelta(t, math.Sqrt(1/info), se, 1e-12)
				}

				again, err := e.EstimateTheta(prior)
				require.NoError(t, err)
				assert.Equal(t, theta, again, "estimation must be idempotent")
			})
		}
	}
}

func TestExpectedQuantitiesRestoreAnswers(t *testing.T) {
	prior := testutils.NormalPrior(t)

	for _, model := range allModels {
		t.Run(string(model), func(t *testing.T) {
			qs := testutils.NewQuestionSet(t, model, testutils.MixedAnswers(model))
			before := qs.Clone()
			e := build(t, domain.EstimationEAP, qs)
			item := qs.NonapplicableRows[0]

			pv, err := e.ExpectedPV(item, prior)
			require.NoError(t, err)
			se, err := e.EstimateSE(prior)
			require.NoError(t, err)
			assert.Greater(t, pv, 0.0)
			assert.Less(t, pv, se*se, "answering an item should be expected to shrink the posterior")

			mei, err := e.ExpectedObsInf(item, prior)
			require.NoError(t, err)
			assert.Greater(t, mei, 0.0)

			assert.Equal(t, before, qs)
		})
	}
}

func TestExpectedQuantitiesRejectAnsweredItem(t *testing.T) {
	qs := testutils.NewQuestionSet(t, domain.ModelLTM, testutils.MixedAnswers(domain.ModelLTM))
	e := build(t, domain.EstimationEAP, qs)

	_, err := e.ExpectedPV(0, testutils.NormalPrior(t))
	assert.ErrorIs(t, err, domain.ErrItemAnswered)
	_, err = e.ExpectedObsInf(0, testutils.NormalPrior(t))
	assert.ErrorIs(t, err, domain.ErrItemAnswered)
}

func TestKLCriteria(t *testing.T) {
	prior := testutils.NormalPrior(t)

	for _, model := range allModels {
		t.Run(string(model), func(t *testing.T) {
			qs := testutils.NewQuestionSet(t, model, testutils.MixedAnswers(model))
			e := build(t, domain.EstimationEAP, qs)
			item := qs.NonapplicableRows[0]

			kl, err := e.ExpectedKL(item, prior)
			require.NoError(t, err)
			assert.Greater(t, kl, 0.0)

			lkl, err := e.LikelihoodKL(item, prior)
			require.NoError(t, err)
			assert.Greater(t, lkl, 0.0)

			pkl, err := e.PosteriorKL(item, prior)
			require.NoError(t, err)
			assert.Greater(t, pkl, 0.0)
			assert.Less(t, pkl, lkl, "a standard normal density never exceeds 0.4")
		})
	}
}

func TestLikelihoodEmptyProfile(t *testing.T) {
	qs := testutils.NewQuestionSet(t, domain.ModelGPCM, nil)
	l, err := build(t, domain.EstimationEAP, qs).Likelihood(1.3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, l)
}
