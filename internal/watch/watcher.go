// Package watch re-runs a handler when a watched file changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"option-analytics-go/infrastructure/logger"
)

// ErrNotRunning 表示 watcher 尚未启动或已停止。
var ErrNotRunning = errors.New("watcher not running")

// Config 监听配置
type Config struct {
	Enabled  bool          // 是否启用
	Cooldown time.Duration // 合并连续事件的静默期
}

// DefaultConfig 默认监听配置
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Cooldown: 500 * time.Millisecond,
	}
}

// Handler 在文件变化静默 Cooldown 后被调用。
type Handler func(ctx context.Context, path string) error

// FileWatcher 监听单个文件。监听的是所在目录，以便捕获编辑器的
// rename/替换写入。
type FileWatcher struct {
	config  Config
	path    string
	handler Handler
	log     *logger.Logger

	watcher *fsnotify.Watcher

	mu         sync.Mutex
	running    bool
	lastReload time.Time
	lastErr    error
	reloads    int
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// New 创建 FileWatcher
func New(path string, cfg Config, handler Handler, log *logger.Logger) (*FileWatcher, error) {
	if handler == nil {
		return nil, errors.New("watch handler is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	return &FileWatcher{
		config:  cfg,
		path:    abs,
		handler: handler,
		log:     log,
	}, nil
}

// Start 启动监听
func (w *FileWatcher) Start(ctx context.Context) error {
	if !w.config.Enabled {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	w.watcher = fw
	w.stopChan = make(chan struct{})
	w.doneChan = make(chan struct{})
	w.running = true
	go w.watch(ctx, fw, w.stopChan, w.doneChan)
	return nil
}

// Stop 停止监听
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopChan)
	done, fw := w.doneChan, w.watcher
	w.mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		// handler 长时间阻塞时不再等待
	}
	return fw.Close()
}

// Health 返回最近一次处理失败的错误
func (w *FileWatcher) Health() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.config.Enabled && !w.running {
		return ErrNotRunning
	}
	return w.lastErr
}

// LastReload 返回最近一次成功处理的时间
func (w *FileWatcher) LastReload() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastReload
}

// Reloads 返回成功处理次数
func (w *FileWatcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *FileWatcher) watch(ctx context.Context, fw *fsnotify.Watcher, stop, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			// 只处理写入、创建和重命名进来的事件
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				timer.Reset(w.config.Cooldown)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", zap.String("path", w.path), zap.Error(err))
		case <-timer.C:
			w.handleChange(ctx)
		}
	}
}

func (w *FileWatcher) handleChange(ctx context.Context) {
	err := w.handler(ctx, w.path)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = err
	if err != nil {
		w.log.LogError(err, map[string]interface{}{"component": "file_watcher", "path": w.path})
		return
	}
	w.lastReload = time.Now()
	w.reloads++
}
