package alert

import (
	"fmt"
	"sync"
	"time"
)

// Level 告警级别
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// Alert 告警信息
type Alert struct {
	Level     Level
	Message   string
	Timestamp time.Time
	Fields    map[string]interface{}
}

// Channel 告警通道接口
type Channel interface {
	Send(alert Alert) error
	Name() string
}

// Config 告警配置
type Config struct {
	Enabled         bool    `yaml:"enabled"`
	FailureRatio    float64 `yaml:"failureRatio"`    // 单批次失败占比超过该值时告警，0 表示关闭
	ThrottleSeconds int     `yaml:"throttleSeconds"` // 相同告警的最小间隔
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		FailureRatio:    0.5,
		ThrottleSeconds: 300,
	}
}

// Throttler 告警限流器
type Throttler struct {
	lastSent map[string]time.Time
	interval time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

// NewThrottler 创建限流器
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		lastSent: make(map[string]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

// Allow 检查是否允许发送（限流）
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	last, ok := t.lastSent[key]
	if !ok || now.Sub(last) >= t.interval {
		t.lastSent[key] = now
		return true
	}
	return false
}

// Clear 清空所有限流记录
func (t *Throttler) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = make(map[string]time.Time)
}

// Manager 告警管理器
type Manager struct {
	cfg      Config
	channels []Channel
	throttle *Throttler
	mu       sync.RWMutex
}

// NewManager 创建告警管理器
func NewManager(cfg Config, channels ...Channel) *Manager {
	return &Manager{
		cfg:      cfg,
		channels: channels,
		throttle: NewThrottler(time.Duration(cfg.ThrottleSeconds) * time.Second),
	}
}

// Send 发送告警；被限流或未启用时静默忽略
func (m *Manager) Send(a Alert) error {
	if !m.cfg.Enabled {
		return nil
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	if !m.throttle.Allow(fmt.Sprintf("%s:%s", a.Level, a.Message)) {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	sent := 0
	for _, ch := range m.channels {
		if err := ch.Send(a); err != nil {
			lastErr = fmt.Errorf("channel %s failed: %w", ch.Name(), err)
			continue
		}
		sent++
	}
	// 所有通道都失败才返回错误
	if sent == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// AddChannel 添加告警通道
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// Channels 返回所有通道名
func (m *Manager) Channels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return names
}

// CheckRun 根据一次分析批次的结果决定是否告警
func (m *Manager) CheckRun(symbol string, records, failures int, runErr error) error {
	fields := map[string]interface{}{
		"symbol":   symbol,
		"records":  records,
		"failures": failures,
	}
	if runErr != nil {
		fields["error"] = runErr.Error()
		return m.Send(Alert{Level: LevelError, Message: "chain analysis failed", Fields: fields})
	}
	total := records + failures
	if m.cfg.FailureRatio <= 0 || total == 0 {
		return nil
	}
	ratio := float64(failures) / float64(total)
	if ratio > m.cfg.FailureRatio {
		fields["ratio"] = ratio
		return m.Send(Alert{Level: LevelWarning, Message: "quote failure ratio above threshold", Fields: fields})
	}
	return nil
}
