package classify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/searchwise/termlens/internal/model"
	"github.com/searchwise/termlens/internal/resilience"
)

// Driver classifies a term list through a Completer, one bounded-retry
// call per term. Per-term failures are absorbed into terminal ERROR
// results; the run itself never aborts because one term failed.
type Driver struct {
	completer Completer
	set       model.CategorySet
	system    string
	retry     resilience.RetryConfig
	limiter   *rate.Limiter
	workers   int
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithRetryConfig overrides the default retry/backoff schedule.
func WithRetryConfig(cfg resilience.RetryConfig) DriverOption {
	return func(d *Driver) {
		d.retry = cfg
	}
}

// WithQPS paces classification dispatch. Zero or negative disables pacing.
func WithQPS(qps float64) DriverOption {
	return func(d *Driver) {
		if qps > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(qps), 1)
		}
	}
}

// WithWorkers bounds concurrent classification calls. The default of 1
// keeps the run strictly sequential in term order.
func WithWorkers(n int) DriverOption {
	return func(d *Driver) {
		if n > 0 {
			d.workers = n
		}
	}
}

// NewDriver creates a Driver for the given provider adapter and category
// set.
func NewDriver(completer Completer, set model.CategorySet, opts ...DriverOption) *Driver {
	d := &Driver{
		completer: completer,
		set:       set,
		system:    BuildSystemPrompt(set),
		retry:     resilience.DefaultRetryConfig(),
		workers:   1,
	}
	d.retry.ShouldRetry = retryAll
	if d.retry.OnRetry == nil {
		d.retry.OnRetry = resilience.RetryLogger("llm", "classify")
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run classifies every term, preserving term-list order in the returned
// results. With workers > 1 terms are classified concurrently into
// pre-indexed slots; usage stays per-result for an explicit fold
// afterwards (see FoldUsage), so there is no shared mutable accumulator.
func (d *Driver) Run(ctx context.Context, terms []model.Term) []model.ClassificationResult {
	results := make([]model.ClassificationResult, len(terms))

	if d.workers <= 1 {
		for i, term := range terms {
			results[i] = d.classifyTerm(ctx, term)
		}
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, term := range terms {
		g.Go(func() error {
			results[i] = d.classifyTerm(gctx, term)
			return nil
		})
	}
	// Workers never return errors; failures land in their result slots.
	_ = g.Wait()

	return results
}

// classifyTerm runs the bounded-retry classification for one term. The
// recorded duration is the wall clock of the attempt that settled the
// result (the winning attempt, or the final failed one), excluding backoff
// sleeps.
func (d *Driver) classifyTerm(ctx context.Context, term model.Term) model.ClassificationResult {
	user := BuildUserPrompt(term)

	var usage model.TokenUsage
	var attemptSecs float64

	type parsed struct {
		category   model.Category
		confidence float64
	}

	result, err := resilience.DoVal(ctx, d.retry, func(ctx context.Context) (parsed, error) {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return parsed{}, err
			}
		}

		start := time.Now()
		defer func() {
			attemptSecs = time.Since(start).Seconds()
		}()

		comp, err := d.completer.Complete(ctx, d.system, user)
		if err != nil {
			return parsed{}, err
		}
		// Tokens were spent even if the output fails to parse.
		usage.Add(comp.Usage)

		category, confidence, err := Parse(comp.Text, d.set)
		if err != nil {
			return parsed{}, err
		}
		return parsed{category: category, confidence: confidence}, nil
	})

	if err != nil {
		zap.L().Warn("term classification failed after retries",
			zap.String("term", string(term)),
			zap.Error(err),
		)
		return model.ClassificationResult{
			Term:     term,
			Category: model.CategoryError,
			Duration: attemptSecs,
			Err:      err.Error(),
			Usage:    usage,
		}
	}

	return model.ClassificationResult{
		Term:       term,
		Category:   result.category,
		Confidence: result.confidence,
		Duration:   attemptSecs,
		Usage:      usage,
	}
}

// FoldUsage reduces per-result usage into run totals.
func FoldUsage(results []model.ClassificationResult) model.TokenUsage {
	var totals model.TokenUsage
	for _, r := range results {
		totals.Add(r.Usage)
	}
	return totals
}
