// Package pipeline wires chain loading, analysis and smile filtering into a
// single run shared by the CLI and the serve mode.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"option-analytics-go/analysis"
	"option-analytics-go/chain"
	"option-analytics-go/config"
	"option-analytics-go/infrastructure/logger"
	"option-analytics-go/report"
	"option-analytics-go/smile"
)

// BandRecorder 记录被 IV 区间过滤掉的数量
type BandRecorder interface {
	RecordOutOfBand(n int)
}

// Output 是一次运行的全部产物
type Output struct {
	Result    analysis.Result
	Filtered  []analysis.Record // 区间过滤后的记录，保持输入顺序
	OutOfBand int
	Snapshot  report.Snapshot
}

// Pipeline 串联加载、分析与过滤
type Pipeline struct {
	cfg      config.AppConfig
	analyzer *analysis.Analyzer
	log      *logger.Logger
	band     BandRecorder
	now      func() time.Time
}

// Option 定制 Pipeline
type Option func(*Pipeline)

// WithClock overrides the date used for time-to-maturity.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithBandRecorder sets the out-of-band metrics sink.
func WithBandRecorder(r BandRecorder) Option {
	return func(p *Pipeline) { p.band = r }
}

// New 创建 Pipeline
func New(cfg config.AppConfig, analyzer *analysis.Analyzer, log *logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	p := &Pipeline{cfg: cfg, analyzer: analyzer, log: log, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run loads the chain at path and analyses it. When analysis yields no
// records the returned Output still carries the per-quote failures.
func (p *Pipeline) Run(ctx context.Context, path string) (Output, error) {
	if timeout := p.cfg.Analysis.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	lc, err := p.cfg.LoaderConfig(p.now())
	if err != nil {
		return Output{}, err
	}
	quotes, err := chain.LoadFile(path, lc)
	if err != nil {
		return Output{}, fmt.Errorf("load chain: %w", err)
	}

	res, err := p.analyzer.Analyze(ctx, quotes)
	if err != nil {
		return Output{Result: res}, err
	}

	kept, dropped := smile.Filter(res.Records, p.cfg.Smile)
	if p.band != nil {
		p.band.RecordOutOfBand(dropped)
	}
	snap, err := report.NewSnapshot(lc.Symbol, lc.Spot, kept, res.Failures, dropped)
	if err != nil {
		return Output{Result: res}, err
	}

	p.log.LogRun(snap.RunID, map[string]interface{}{
		"symbol":      lc.Symbol,
		"quotes":      len(quotes),
		"records":     res.Len(),
		"failures":    res.FailureCount(),
		"out_of_band": dropped,
	})
	return Output{Result: res, Filtered: kept, OutOfBand: dropped, Snapshot: snap}, nil
}
