package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 报价分析指标
	quotesAnalyzed   *prometheus.CounterVec
	quoteFailures    *prometheus.CounterVec
	solverIterations prometheus.Histogram
	solverNonConv    prometheus.Counter
	ivOutOfBand      prometheus.Counter

	// 批次指标
	runsTotal      prometheus.Counter
	runSeconds     prometheus.Histogram
	lastRunRecords prometheus.Gauge
	lastRunFailed  prometheus.Gauge

	// 推送指标
	wsClients prometheus.Gauge
}

// Config 监控配置
type Config struct {
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "oa",
		Subsystem: "chain",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Monitor{
		registry: reg,

		quotesAnalyzed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "quotes_analyzed_total",
			Help:      "成功求解 IV 的报价数",
		}, []string{"kind"}),
		quoteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "quote_failures_total",
			Help:      "分析失败的报价数",
		}, []string{"reason"}),
		solverIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "solver_iterations",
			Help:      "二分求解迭代次数分布",
			Buckets:   []float64{5, 10, 20, 30, 40, 50, 75, 100},
		}),
		solverNonConv: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "solver_nonconverged_total",
			Help:      "达到迭代上限仍未收敛的求解次数",
		}),
		ivOutOfBand: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "iv_out_of_band_total",
			Help:      "被合理区间过滤掉的 IV 记录数",
		}),

		runsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "analysis_runs_total",
			Help:      "期权链分析批次总数",
		}),
		runSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "analysis_run_seconds",
			Help:      "单批次分析耗时（秒）",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		lastRunRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "last_run_records",
			Help:      "最近一批次的有效记录数",
		}),
		lastRunFailed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "last_run_failures",
			Help:      "最近一批次的失败报价数",
		}),

		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ws_clients",
			Help:      "当前 websocket 订阅数",
		}),
	}
}

// ObserveSolve 记录一次成功的 IV 求解
func (m *Monitor) ObserveSolve(kind string, iterations int, converged bool) {
	m.quotesAnalyzed.WithLabelValues(kind).Inc()
	m.solverIterations.Observe(float64(iterations))
	if !converged {
		m.solverNonConv.Inc()
	}
}

// ObserveFailure 记录一次报价失败
func (m *Monitor) ObserveFailure(reason string) {
	m.quoteFailures.WithLabelValues(reason).Inc()
}

// ObserveRun 记录批次汇总
func (m *Monitor) ObserveRun(records, failures int, elapsed time.Duration) {
	m.runsTotal.Inc()
	m.runSeconds.Observe(elapsed.Seconds())
	m.lastRunRecords.Set(float64(records))
	m.lastRunFailed.Set(float64(failures))
}

// RecordOutOfBand 记录被 IV 区间过滤的记录数
func (m *Monitor) RecordOutOfBand(n int) {
	if n > 0 {
		m.ivOutOfBand.Add(float64(n))
	}
}

// UpdateWSClients 更新 websocket 连接数
func (m *Monitor) UpdateWSClients(n int) {
	m.wsClients.Set(float64(n))
}

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回底层注册表
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
