package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"option-analytics-go/chain"
	"option-analytics-go/infrastructure/logger"
	"option-analytics-go/pricing"
)

// ErrInvalidConfig 表示分析器配置不合法。
var ErrInvalidConfig = errors.New("invalid analyzer config")

// Recorder 接收分析过程中的统计事件，由监控层实现。
type Recorder interface {
	ObserveSolve(kind string, iterations int, converged bool)
	ObserveFailure(reason string)
	ObserveRun(records, failures int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSolve(string, int, bool) {}
func (nopRecorder) ObserveFailure(string) {}
func (nopRecorder) ObserveRun(int, int, time.Duration) {}

// Config 分析器配置
type Config struct {
	Solver         pricing.SolverConfig
	PlaceholderVol float64 // 求解前占位的波动率，不影响结果
	Workers        int     // <=1 表示顺序执行
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Solver:         pricing.DefaultSolverConfig(),
		PlaceholderVol: 0.2,
		Workers:        1,
	}
}

// Option 定制 Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger used for per-quote debug lines.
func WithLogger(l *logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.rec = r
		}
	}
}

// Analyzer 串联 IV 求解与 Greeks 计算。无内部可变状态，可并发复用。
type Analyzer struct {
	cfg Config
	log *logger.Logger
	rec Recorder
}

// New validates cfg and builds an Analyzer.
func New(cfg Config, opts ...Option) (*Analyzer, error) {
	if err := cfg.Solver.Validate(); err != nil {
		return nil, err
	}
	if !(cfg.PlaceholderVol > 0) {
		return nil, fmt.Errorf("%w: placeholder vol must be > 0, got %v", ErrInvalidConfig, cfg.PlaceholderVol)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	a := &Analyzer{cfg: cfg, log: logger.Nop(), rec: nopRecorder{}}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// AnalyzeQuote solves the implied volatility of q against its LTP and
// computes Greeks at the solved volatility.
func (a *Analyzer) AnalyzeQuote(q chain.Quote) (Record, error) {
	sol, err := pricing.SolveImpliedVol(q.LTP, q.Params(a.cfg.PlaceholderVol), q.Kind, a.cfg.Solver)
	if err != nil {
		return Record{}, fmt.Errorf("solve iv strike=%v kind=%s: %w", q.Strike, q.Kind, err)
	}
	g, err := pricing.ComputeGreeks(q.Params(sol.Vol), q.Kind)
	if err != nil {
		return Record{}, fmt.Errorf("greeks strike=%v kind=%s: %w", q.Strike, q.Kind, err)
	}
	return Record{
		Quote:      q,
		IV:         sol.Vol,
		Greeks:     g,
		Iterations: sol.Iterations,
		Converged:  sol.Converged,
	}, nil
}

type outcome struct {
	rec Record
	err error
}

// Analyze processes quotes and returns records in input order. A quote that
// fails is recorded in Result.Failures and does not stop the batch. Empty
// input, or a batch where every quote fails, returns ErrNoQuotes together
// with whatever failures were collected. Cancelling ctx before every quote
// has been dispatched returns ctx.Err().
func (a *Analyzer) Analyze(ctx context.Context, quotes []chain.Quote) (Result, error) {
	if len(quotes) == 0 {
		return Result{}, ErrNoQuotes
	}
	start := time.Now()

	slots := make([]outcome, len(quotes))
	workers := min(a.cfg.Workers, len(quotes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	dispatched := 0
	for i := range quotes {
		if gctx.Err() != nil {
			break
		}
		dispatched++
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := a.AnalyzeQuote(quotes[i])
			slots[i] = outcome{rec: rec, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	// 只有派发被提前中断时才放弃结果；全部完成后的超时不影响本批次
	if dispatched < len(quotes) {
		return Result{}, ctx.Err()
	}

	res := Result{Records: make([]Record, 0, len(quotes))}
	for i, o := range slots {
		if o.err != nil {
			f := newFailure(i, quotes[i], o.err)
			res.Failures = append(res.Failures, f)
			a.rec.ObserveFailure(f.Reason())
			a.log.LogFailure(i, o.err, map[string]interface{}{
				"strike": quotes[i].Strike,
				"kind":   quotes[i].Kind.String(),
			})
			continue
		}
		res.Records = append(res.Records, o.rec)
		a.rec.ObserveSolve(o.rec.Kind.String(), o.rec.Iterations, o.rec.Converged)
		a.log.Debug("quote analysed",
			zap.Float64("strike", o.rec.Strike),
			zap.Stringer("kind", o.rec.Kind),
			zap.Float64("iv", o.rec.IV),
			zap.Int("iterations", o.rec.Iterations),
			zap.Bool("converged", o.rec.Converged),
		)
	}

	elapsed := time.Since(start)
	a.rec.ObserveRun(res.Len(), res.FailureCount(), elapsed)
	if res.Len() == 0 {
		return res, ErrNoQuotes
	}
	return res, nil
}
