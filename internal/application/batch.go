package application

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-catsurv/internal/domain"
)

// DefaultProgressInterval is how often a batch logs its progress.
const DefaultProgressInterval = 2 * time.Second

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithWorkers sets the number of concurrent sessions. Values below one
// select runtime.GOMAXPROCS(0).
func WithWorkers(n int) BatchOption {
	return func(b *BatchRunner) { b.workers = n }
}

// WithRowLimit caps how many rows per second the batch processes across
// all workers.
func WithRowLimit(perSecond float64, burst int) BatchOption {
	return func(b *BatchRunner) {
		if perSecond > 0 {
			b.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// WithProgressInterval sets how often progress is logged.
func WithProgressInterval(d time.Duration) BatchOption {
	return func(b *BatchRunner) { b.progress = rate.Sometimes{Interval: d} }
}

// BatchRunner processes the rows of a response table in parallel. Each
// worker owns a clone of the template session, so no question set is shared
// between goroutines, and results are stored by row index. The template's
// answers are the starting point of every row and are never modified.
type BatchRunner struct {
	cat      *Cat
	workers  int
	limiter  *rate.Limiter
	progress rate.Sometimes
}

// NewBatchRunner creates a runner over the template session cat.
func NewBatchRunner(cat *Cat, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{cat: cat, progress: rate.Sometimes{Interval: DefaultProgressInterval}}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers < 1 {
		b.workers = runtime.GOMAXPROCS(0)
	}
	return b
}

// EstimateThetas returns one ability estimate per row, as Cat.EstimateThetas
// does.
func (b *BatchRunner) EstimateThetas(ctx context.Context, rows [][]int) ([]float64, error) {
	if err := b.cat.checkShape("estimate_thetas", rows); err != nil {
		return nil, err
	}
	return b.run(ctx, "batch_estimate_thetas", rows, func(_ context.Context, c *Cat, row []int) (float64, error) {
		if err := c.qs.ResetAnswers(row); err != nil {
			return 0, err
		}
		return c.estimator.EstimateTheta(c.prior)
	})
}

// SimulateAll runs one adaptive session per row, as Cat.SimulateAll does.
func (b *BatchRunner) SimulateAll(ctx context.Context, rows [][]int) ([]float64, error) {
	if !b.cat.rules.HasThreshold() {
		return nil, domain.NewPreconditionError("simulate_all", domain.ErrNoStoppingRule)
	}
	if err := b.cat.checkShape("simulate_all", rows); err != nil {
		return nil, err
	}
	return b.run(ctx, "batch_simulate_all", rows, func(ctx context.Context, c *Cat, row []int) (float64, error) {
		return c.simulateRow(ctx, row)
	})
}

// rowFunc computes the estimate for one row on a worker's session. The
// session's answers are reset to the template's before every call.
type rowFunc func(ctx context.Context, c *Cat, row []int) (float64, error)

func (b *BatchRunner) run(ctx context.Context, operation string, rows [][]int, fn rowFunc) (thetas []float64, err error) {
	workers := min(b.workers, len(rows))
	ctx, finish := b.cat.tracer.Start(ctx, operation,
		attribute.Int("cat.rows", len(rows)),
		attribute.Int("cat.workers", workers))
	defer func() { finish(err) }()

	thetas = make([]float64, len(rows))
	if len(rows) == 0 {
		return thetas, nil
	}

	// Clones are taken before any worker starts so that seeded RANDOM
	// selectors are reproducible.
	clones := make([]*Cat, workers)
	for w := range clones {
		if clones[w], err = b.cat.Clone(); err != nil {
			return nil, fmt.Errorf("failed to clone session: %w", err)
		}
	}

	log := b.cat.logger
	started := time.Now()
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for w, clone := range clones {
		g.Go(func() error {
			start := clone.qs.Checkpoint()
			for i := w; i < len(rows); i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				if b.limiter != nil {
					if err := b.limiter.Wait(gctx); err != nil {
						return err
					}
				}
				clone.qs.Restore(start)
				theta, err := fn(gctx, clone, rows[i])
				if err != nil {
					return fmt.Errorf("row %d: %w", i, err)
				}
				thetas[i] = theta

				n := done.Add(1)
				b.progress.Do(func() {
					log.Info("batch progress", "operation", operation, "done", n, "rows", len(rows))
					b.cat.tracer.RecordRowsDone(operation, int(n))
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("batch failed", "operation", operation, "done", done.Load(), "err", err)
		return nil, err
	}

	b.cat.tracer.RecordRowsDone(operation, len(rows))
	log.Info("batch complete", "operation", operation, "rows", len(rows), "workers", workers,
		"elapsed", time.Since(started))
	return thetas, nil
}
