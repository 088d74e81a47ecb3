package application

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-catsurv/infrastructure/estimators"
	"github.com/ahrav/go-catsurv/infrastructure/middleware"
	"github.com/ahrav/go-catsurv/infrastructure/numeric"
	"github.com/ahrav/go-catsurv/infrastructure/selectors"
	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/pkg/logger"
	"github.com/ahrav/go-catsurv/internal/ports"
)

// Option configures a Cat.
type Option func(*options)

type options struct {
	logger     *logger.Logger
	metrics    ports.MetricsCollector
	tracer     trace.Tracer
	rng        *rand.Rand
	integrator ports.Integrator
	roots      ports.RootFinder

	// estimation pins the estimator a clone inherits from its parent, so
	// the parent's construction-time substitution carries over.
	estimation domain.EstimationType
}

// WithLogger sets the session logger. The default discards everything.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the collector that receives latency, outcome and
// fallback counts.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithRand sets the random source of the RANDOM selector.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// WithSeed seeds the random source of the RANDOM selector.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// WithIntegrator replaces the default Gauss-Legendre integrator.
func WithIntegrator(in ports.Integrator) Option {
	return func(o *options) { o.integrator = in }
}

// WithRootFinder replaces the default Brent root finder.
func WithRootFinder(rf ports.RootFinder) Option {
	return func(o *options) { o.roots = rf }
}

// Cat is one respondent's adaptive testing session: the question set with
// its answers, the prior, the configured estimator and selector, and the
// stopping rules. Item indices are 0-based.
//
// A Cat is not safe for concurrent use. Use Clone to hand independent
// copies to other goroutines.
type Cat struct {
	id     string
	config domain.CatConfig
	opts   options

	qs        *domain.QuestionSet
	prior     domain.Prior
	rules     domain.StoppingRules
	estimator ports.Estimator
	selector  ports.Selector

	logger *logger.Logger
	tracer *middleware.SessionTracer
}

// NewCat validates cfg and builds a session. Unknown names and invalid
// parameters are reported as configuration errors before anything runs.
func NewCat(cfg domain.CatConfig, opts ...Option) (*Cat, error) {
	o := options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	model, err := ParseModel(string(cfg.Model))
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateItems(model, cfg.Items); err != nil {
		return nil, err
	}
	qs, err := domain.NewQuestionSet(model, cfg.Items, cfg.Answers)
	if err != nil {
		return nil, err
	}
	return build(cfg, qs, o)
}

func build(cfg domain.CatConfig, qs *domain.QuestionSet, o options) (*Cat, error) {
	estimation, err := ParseEstimation(cfg.Estimation)
	if err != nil {
		return nil, err
	}
	defaultName := cfg.EstimationDefault
	if defaultName == "" {
		defaultName = string(domain.EstimationEAP)
	}
	estimationDefault, err := ParseEstimationDefault(defaultName)
	if err != nil {
		return nil, err
	}
	selection, err := ParseSelection(cfg.Selection)
	if err != nil {
		return nil, err
	}
	priorName, err := ParsePriorName(cfg.PriorName)
	if err != nil {
		return nil, err
	}
	prior, err := domain.NewPrior(priorName, cfg.PriorParams)
	if err != nil {
		return nil, err
	}

	if o.integrator == nil {
		o.integrator = numeric.NewIntegrator()
	}
	if o.roots == nil {
		o.roots = numeric.NewBrent()
	}

	active, substitution := estimation, estimators.Substitution(estimation, qs)
	if o.estimation != "" {
		active, substitution = o.estimation, nil
	} else if substitution != nil {
		active = estimationDefault
	}
	o.estimation = active

	id := uuid.NewString()
	log := o.logger.With("session_id", id)
	tracer := middleware.NewSessionTracer(o.metrics, id, string(active), string(selection))
	if o.tracer != nil {
		tracer.WithTracer(o.tracer)
	}

	observer := ports.FallbackObserverFunc(func(kind domain.EstimationType, reason error) {
		log.Debug("estimator fallback", "estimator", kind, "reason", middleware.FallbackReason(reason), "err", reason)
		tracer.ObserveFallback(kind, reason)
	})

	if substitution != nil {
		observer.ObserveFallback(estimation, substitution)
	}
	estimator, err := newEstimator(active, qs, o.integrator, o.roots, estimators.WithFallbackObserver(observer))
	if err != nil {
		return nil, err
	}

	session := selectors.Session{Questions: qs, Estimator: estimator, Prior: prior, Integrator: o.integrator}
	selector, err := newSelector(selection, session, cfg.Z, o.rng)
	if err != nil {
		return nil, err
	}

	cfg.Model = qs.Model
	log.Info("cat session created",
		"model", qs.Model,
		"items", qs.Len(),
		"answered", len(qs.ApplicableRows),
		"estimation", estimation,
		"estimation_default", estimationDefault,
		"estimator", active,
		"selection", selection,
		"prior", priorName,
	)

	return &Cat{
		id:        id,
		config:    cfg,
		opts:      o,
		qs:        qs,
		prior:     prior,
		rules:     cfg.StoppingRules,
		estimator: estimator,
		selector:  selector,
		logger:    log,
		tracer:    tracer,
	}, nil
}

// ID returns the session identifier used in logs and spans.
func (c *Cat) ID() string { return c.id }

// QuestionSet returns the session's question set. It is owned by the
// session and must not be shared with another goroutine.
func (c *Cat) QuestionSet() *domain.QuestionSet { return c.qs }

// Prior returns the session prior.
func (c *Cat) Prior() domain.Prior { return c.prior }

// StoppingRules returns the configured stopping rules.
func (c *Cat) StoppingRules() domain.StoppingRules { return c.rules }

// Estimation returns the estimator the session runs on. It is the
// configured default when MLE or WLE was configured but the session started
// with no answers or only extreme ones.
func (c *Cat) Estimation() domain.EstimationType { return c.estimator.Type() }

// Selection returns the configured selection criterion.
func (c *Cat) Selection() domain.SelectionType { return c.selector.Type() }

// Answer records a response for item.
func (c *Cat) Answer(item, response int) error {
	if err := c.qs.Answer(item, response); err != nil {
		return domain.NewPreconditionError("answer", err)
	}
	return nil
}

// Unanswer clears the response for item.
func (c *Cat) Unanswer(item int) error {
	if err := c.qs.Unanswer(item); err != nil {
		return domain.NewPreconditionError("unanswer", err)
	}
	return nil
}

// Clone returns an independent session over a deep copy of the question set
// with the same configuration. A RANDOM selector gets a source seeded from
// the parent's, so a seeded parent yields reproducible clones; drawing the
// seed advances the parent's source.
func (c *Cat) Clone() (*Cat, error) {
	o := c.opts
	if o.rng != nil {
		o.rng = rand.New(rand.NewPCG(o.rng.Uint64(), o.rng.Uint64()))
	}
	o.logger = c.opts.logger.With("parent_session_id", c.id)
	return build(c.config, c.qs.Clone(), o)
}

// Probability returns the response probability vector of item at theta.
func (c *Cat) Probability(theta float64, item int) ([]float64, error) {
	return c.estimator.Probability(theta, item)
}

// Likelihood returns the likelihood of the recorded answers at theta.
func (c *Cat) Likelihood(theta float64) (float64, error) { return c.estimator.Likelihood(theta) }

// PriorDensity evaluates the session prior at x.
func (c *Cat) PriorDensity(x float64) (float64, error) { return c.prior.Evaluate(x) }

// PriorDensity evaluates the prior named name with params at x.
func PriorDensity(x float64, name string, params [2]float64) (float64, error) {
	priorName, err := ParsePriorName(name)
	if err != nil {
		return 0, err
	}
	prior, err := domain.NewPrior(priorName, params)
	if err != nil {
		return 0, err
	}
	return prior.Evaluate(x)
}

// D1LL returns the first derivative of the log-likelihood at theta.
func (c *Cat) D1LL(theta float64, usePrior bool) (float64, error) {
	return c.estimator.D1LL(theta, usePrior, c.prior)
}

// D2LL returns the second derivative of the log-likelihood at theta.
func (c *Cat) D2LL(theta float64, usePrior bool) (float64, error) {
	return c.estimator.D2LL(theta, usePrior, c.prior)
}

// EstimateTheta returns the current ability estimate.
func (c *Cat) EstimateTheta() (theta float64, err error) {
	_, finish := c.tracer.Start(context.Background(), "estimate_theta")
	defer func() { finish(err) }()
	return c.estimator.EstimateTheta(c.prior)
}

// EstimateSE returns the standard error of the current ability estimate.
func (c *Cat) EstimateSE() (float64, error) { return c.estimator.EstimateSE(c.prior) }

// ObsInf returns the observed information of an answered item at theta.
func (c *Cat) ObsInf(theta float64, item int) (float64, error) {
	if len(c.qs.ApplicableRows) == 0 {
		return 0, domain.NewPreconditionError("obs_inf", domain.ErrNoAnsweredItems)
	}
	return c.estimator.ObsInf(theta, item)
}

// ExpectedObsInf returns the observed information of an unanswered item
// expected over its responses.
func (c *Cat) ExpectedObsInf(item int) (float64, error) {
	return c.estimator.ExpectedObsInf(item, c.prior)
}

// FisherInf returns the Fisher information of item at theta.
func (c *Cat) FisherInf(theta float64, item int) (float64, error) {
	return c.estimator.FisherInf(theta, item)
}

// FisherTestInfo returns the test information at the current estimate.
func (c *Cat) FisherTestInfo() (float64, error) { return c.estimator.FisherTestInfo(c.prior) }

// ExpectedPV returns the posterior variance expected after answering item.
func (c *Cat) ExpectedPV(item int) (float64, error) { return c.estimator.ExpectedPV(item, c.prior) }

// ExpectedKL returns the windowed Kullback-Leibler information of item.
func (c *Cat) ExpectedKL(item int) (float64, error) { return c.estimator.ExpectedKL(item, c.prior) }

// LikelihoodKL returns the likelihood-weighted Kullback-Leibler information of item.
func (c *Cat) LikelihoodKL(item int) (float64, error) {
	return c.estimator.LikelihoodKL(item, c.prior)
}

// PosteriorKL returns the posterior-weighted Kullback-Leibler information of item.
func (c *Cat) PosteriorKL(item int) (float64, error) {
	return c.estimator.PosteriorKL(item, c.prior)
}

// SelectItem scores every unanswered item and returns the table with the
// chosen item.
func (c *Cat) SelectItem() (sel domain.Selection, err error) {
	_, finish := c.tracer.Start(context.Background(), "select_item",
		attribute.Int("cat.answered", len(c.qs.ApplicableRows)))
	defer func() { finish(err) }()
	return c.selector.SelectItem()
}

// LookAhead answers item with every response option in turn and reports
// the item that would be selected next for each. The question set is left
// exactly as it was, also when selection fails.
func (c *Cat) LookAhead(item int) (rows []domain.LookAheadRow, err error) {
	_, finish := c.tracer.Start(context.Background(), "lookahead", attribute.Int("cat.item", item))
	defer func() { finish(err) }()

	if err := c.qs.CheckItem(item); err != nil {
		return nil, domain.NewPreconditionError("lookahead", err)
	}
	if c.qs.IsAnswered(item) {
		return nil, domain.NewPreconditionError("lookahead", fmt.Errorf("%w: item=%d", domain.ErrItemAnswered, item))
	}

	cp := c.qs.Checkpoint()
	defer c.qs.Restore(cp)

	responses := c.qs.ResponseOptions(item)
	rows = make([]domain.LookAheadRow, 0, len(responses))
	for _, response := range responses {
		if err := c.qs.Answer(item, response); err != nil {
			return nil, err
		}
		sel, err := c.selector.SelectItem()
		if err != nil {
			return nil, fmt.Errorf("lookahead response %d: %w", response, err)
		}
		rows = append(rows, domain.LookAheadRow{ResponseOption: response, NextItem: sel.Item})
	}
	return rows, nil
}

// CheckStopRules reports whether the stopping rules say to stop. Only the
// quantities the configured rules need are computed.
func (c *Cat) CheckStopRules() (stop bool, err error) {
	_, finish := c.tracer.Start(context.Background(), "check_stop_rules")
	defer func() { finish(err) }()
	return c.checkStopRules()
}

func (c *Cat) checkStopRules() (bool, error) {
	r := c.rules
	in := domain.StopInputs{Answered: len(c.qs.ApplicableRows)}

	if domain.IsSet(r.SEThreshold) || r.NeedsGain() {
		se, err := c.estimator.EstimateSE(c.prior)
		if err != nil {
			return false, fmt.Errorf("stopping rules: %w", err)
		}
		in.SE = se
	}
	if r.NeedsInfo() {
		theta, err := c.estimator.EstimateTheta(c.prior)
		if err != nil {
			return false, fmt.Errorf("stopping rules: %w", err)
		}
		in.Theta = theta
		for _, item := range c.qs.NonapplicableRows {
			info, err := c.estimator.FisherInf(theta, item)
			if err != nil {
				return false, fmt.Errorf("stopping rules: %w", err)
			}
			in.Info = append(in.Info, info)
		}
	}
	if r.NeedsGain() {
		for _, item := range c.qs.NonapplicableRows {
			epv, err := c.estimator.ExpectedPV(item, c.prior)
			if err != nil {
				return false, fmt.Errorf("stopping rules: %w", err)
			}
			in.EPV = append(in.EPV, epv)
		}
	}
	return r.ShouldStop(in), nil
}

func (c *Cat) checkShape(op string, rows [][]int) error {
	for i, row := range rows {
		if len(row) != c.qs.Len() {
			return domain.NewPreconditionError(op, fmt.Errorf("%w: row %d has %d responses for %d items",
				domain.ErrShapeMismatch, i, len(row), c.qs.Len()))
		}
	}
	return nil
}

// EstimateThetas replaces the answers with each row in turn and returns one
// ability estimate per row. The answers in place before the call are
// restored on return.
func (c *Cat) EstimateThetas(ctx context.Context, rows [][]int) (thetas []float64, err error) {
	ctx, finish := c.tracer.Start(ctx, "estimate_thetas", attribute.Int("cat.rows", len(rows)))
	defer func() { finish(err) }()

	if err := c.checkShape("estimate_thetas", rows); err != nil {
		return nil, err
	}

	cp := c.qs.Checkpoint()
	defer c.qs.Restore(cp)

	thetas = make([]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.qs.ResetAnswers(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		theta, err := c.estimator.EstimateTheta(c.prior)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		thetas[i] = theta
	}
	return thetas, nil
}

// SimulateAll runs a full adaptive session per row: starting from the
// session's current answers, it repeatedly selects the next item and
// answers it from the row until the stopping rules fire or no items are
// left, then records the ability estimate. At least one stopping threshold
// must be configured.
func (c *Cat) SimulateAll(ctx context.Context, rows [][]int) (thetas []float64, err error) {
	ctx, finish := c.tracer.Start(ctx, "simulate_all", attribute.Int("cat.rows", len(rows)))
	defer func() { finish(err) }()

	if !c.rules.HasThreshold() {
		return nil, domain.NewPreconditionError("simulate_all", domain.ErrNoStoppingRule)
	}
	if err := c.checkShape("simulate_all", rows); err != nil {
		return nil, err
	}

	cp := c.qs.Checkpoint()
	defer c.qs.Restore(cp)

	thetas = make([]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.qs.Restore(cp)
		theta, err := c.simulateRow(ctx, row)
		if err != nil {
			c.logger.Warn("simulation failed", "row", i, "err", err)
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		c.logger.Debug("row simulated", "row", i, "administered", len(c.qs.ApplicableRows), "theta", theta)
		thetas[i] = theta
	}
	return thetas, nil
}

func (c *Cat) simulateRow(ctx context.Context, row []int) (float64, error) {
	for len(c.qs.NonapplicableRows) > 0 {
		stop, err := c.checkStopRules()
		if err != nil {
			return 0, err
		}
		if stop {
			break
		}
		sel, err := c.selector.SelectItem()
		if err != nil {
			return 0, err
		}
		response := row[sel.Item]
		if response == domain.Unanswered {
			return 0, domain.NewPreconditionError("simulate_all",
				fmt.Errorf("%w: item=%d", domain.ErrMissingResponse, sel.Item))
		}
		if err := c.qs.Answer(sel.Item, response); err != nil {
			return 0, err
		}
	}
	c.tracer.RecordSessionLength(ctx, len(c.qs.ApplicableRows))
	return c.estimator.EstimateTheta(c.prior)
}
