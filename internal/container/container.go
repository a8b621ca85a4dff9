package container

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"option-analytics-go/analysis"
	"option-analytics-go/config"
	"option-analytics-go/infrastructure/alert"
	"option-analytics-go/infrastructure/logger"
	"option-analytics-go/infrastructure/monitor"
	"option-analytics-go/internal/pipeline"
	"option-analytics-go/internal/stream"
	"option-analytics-go/internal/watch"
	"option-analytics-go/report"
)

// ErrNoSnapshot 表示还没有成功完成过一次分析
var ErrNoSnapshot = errors.New("no analysis snapshot yet")

// Container 依赖注入容器，管理 serve 模式下所有组件的生命周期
type Container struct {
	cfg config.AppConfig

	// 基础设施
	logger  *logger.Logger
	monitor *monitor.Monitor
	alerts  *alert.Manager

	// 核心服务
	analyzer *analysis.Analyzer
	pipeline *pipeline.Pipeline
	hub      *stream.Hub
	watcher  *watch.FileWatcher
	server   *HTTPServer

	// 生命周期管理
	lifecycle *LifecycleManager

	mu       sync.RWMutex
	snapshot *report.Snapshot
}

// New 创建新的Container实例；cfg 需已通过校验
func New(cfg config.AppConfig, log *logger.Logger) (*Container, error) {
	if cfg.Market.ChainFile == "" {
		return nil, config.ErrInvalid("market.chainFile is required for serve mode")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Container{
		cfg:       cfg,
		logger:    log,
		lifecycle: NewLifecycleManager(),
	}, nil
}

// Build 构建所有组件
func (c *Container) Build() error {
	c.monitor = monitor.New(c.cfg.Metrics)
	c.alerts = alert.NewManager(c.cfg.Alert, alert.NewLogChannel("log", c.logger))

	var err error
	c.analyzer, err = analysis.New(c.cfg.AnalyzerConfig(),
		analysis.WithLogger(c.logger),
		analysis.WithRecorder(c.monitor),
	)
	if err != nil {
		return fmt.Errorf("build analyzer failed: %w", err)
	}
	c.pipeline = pipeline.New(c.cfg, c.analyzer, c.logger, pipeline.WithBandRecorder(c.monitor))

	c.hub = stream.NewHub(c.logger, c.monitor.UpdateWSClients, c.cfg.Server.AllowedOrigins)

	c.watcher, err = watch.New(c.cfg.Market.ChainFile, watch.Config{
		Enabled:  true,
		Cooldown: time.Duration(c.cfg.Server.WatchCooldownMs) * time.Millisecond,
	}, func(ctx context.Context, _ string) error {
		_, err := c.Refresh(ctx)
		return err
	}, c.logger)
	if err != nil {
		return fmt.Errorf("build watcher failed: %w", err)
	}

	c.server = NewHTTPServer("api_server", c.cfg.Server.Addr, c.Handler(),
		time.Duration(c.cfg.Server.ShutdownTimeoutS)*time.Second, c.logger)

	// 启动顺序：hub -> http -> watcher；停止时逆序
	c.lifecycle.Register("stream_hub", c.hub)
	c.lifecycle.Register("api_server", c.server)
	c.lifecycle.Register("chain_watcher", c.watcher)

	c.logger.Info("container built successfully")
	return nil
}

// Refresh 重新加载期权链并推送快照
func (c *Container) Refresh(ctx context.Context) (report.Snapshot, error) {
	out, err := c.pipeline.Run(ctx, c.cfg.Market.ChainFile)
	if aerr := c.alerts.CheckRun(c.cfg.Market.Symbol, out.Result.Len(), out.Result.FailureCount(), err); aerr != nil {
		c.logger.Warn(fmt.Sprintf("send alert failed: %v", aerr))
	}
	if err != nil {
		c.logger.LogError(err, map[string]interface{}{
			"action":   "refresh",
			"failures": out.Result.FailureCount(),
		})
		return report.Snapshot{}, err
	}

	c.mu.Lock()
	c.snapshot = &out.Snapshot
	c.mu.Unlock()

	if err := c.hub.Publish(out.Snapshot); err != nil && !errors.Is(err, stream.ErrHubClosed) {
		return out.Snapshot, err
	}
	return out.Snapshot, nil
}

// Snapshot 返回最近一次成功的快照
func (c *Container) Snapshot() (report.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return report.Snapshot{}, ErrNoSnapshot
	}
	return *c.snapshot, nil
}

// Handler 组装 HTTP 路由
func (c *Container) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.monitor.Handler())
	mux.Handle("/ws", c.hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := c.HealthCheck(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		snap, err := c.Snapshot()
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	})
	return mux
}

// Start 启动全部组件并完成首次分析
func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")

	if err := c.lifecycle.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	// 首次分析失败不阻止服务启动，等待文件更新后重试
	if _, err := c.Refresh(ctx); err != nil {
		c.logger.Warn(fmt.Sprintf("initial analysis failed: %v", err))
	}

	if c.cfg.Server.SystemdNotify {
		notifySystemd(c.logger, daemon.SdNotifyReady)
	}
	c.logger.Info("container started")
	return nil
}

// Stop 逆序停止组件
func (c *Container) Stop() error {
	c.logger.Info("stopping container...")
	if c.cfg.Server.SystemdNotify {
		notifySystemd(c.logger, daemon.SdNotifyStopping)
	}

	if err := c.lifecycle.StopAll(); err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "stop"})
		return err
	}
	return nil
}

// HealthCheck 汇总组件健康状态
func (c *Container) HealthCheck() error {
	if err := c.lifecycle.CheckHealth(); err != nil {
		return err
	}
	_, err := c.Snapshot()
	return err
}

// Addr 返回 HTTP 实际监听地址
func (c *Container) Addr() string {
	return c.server.Addr()
}
