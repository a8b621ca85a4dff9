package alert

import (
	"fmt"

	"go.uber.org/zap"

	"option-analytics-go/infrastructure/logger"
)

// LogChannel 将告警写入结构化日志
type LogChannel struct {
	name   string
	logger *logger.Logger
}

// NewLogChannel 创建日志告警通道
func NewLogChannel(name string, log *logger.Logger) *LogChannel {
	if log == nil {
		log = logger.Nop()
	}
	return &LogChannel{name: name, logger: log}
}

func (c *LogChannel) Send(a Alert) error {
	fields := []zap.Field{
		zap.String("level", string(a.Level)),
		zap.Time("at", a.Timestamp),
	}
	for k, v := range a.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	switch a.Level {
	case LevelError, LevelCritical:
		c.logger.Error("[ALERT] "+a.Message, fields...)
	default:
		c.logger.Warn("[ALERT] "+a.Message, fields...)
	}
	return nil
}

func (c *LogChannel) Name() string { return c.name }

// MockChannel 记录收到的告警（用于测试）
type MockChannel struct {
	name      string
	alerts    []Alert
	shouldErr bool
}

func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

func (c *MockChannel) Send(a Alert) error {
	if c.shouldErr {
		return fmt.Errorf("mock error")
	}
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *MockChannel) Name() string { return c.name }

// Alerts 返回收到的告警
func (c *MockChannel) Alerts() []Alert { return c.alerts }

// SetShouldError 设置是否返回错误
func (c *MockChannel) SetShouldError(v bool) { c.shouldErr = v }
