package xconf

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc 在每次重载后调用，err 非 nil 表示重载或监视出错，此时配置保持不变。
type ReloadFunc func(src *Source, err error)

// WatchOption 监视选项。
type WatchOption func(*Watcher)

// WithDebounce 设置防抖窗口，默认 100ms。
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher 监视配置文件并自动重载。
type Watcher struct {
	src      *Source
	onReload ReloadFunc
	debounce time.Duration
}

// NewWatcher 创建监视器。src 必须由 Load 创建。
func NewWatcher(src *Source, onReload ReloadFunc, opts ...WatchOption) (*Watcher, error) {
	if src == nil || src.path == "" {
		return nil, ErrNotReloadable
	}
	w := &Watcher{src: src, onReload: onReload, debounce: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run 监视直到 ctx 取消，取消时返回 nil。
// 回调在 Run 所在 goroutine 上执行，Run 返回后不会再有回调。
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("xconf: create watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.src.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("xconf: watch directory %s: %w", dir, err)
	}
	filename := filepath.Base(w.src.path)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, filename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.notify(fmt.Errorf("xconf: watch: %w", err))

		case <-fire:
			fire = nil
			w.notify(w.src.Reload())
		}
	}
}

func (w *Watcher) notify(err error) {
	if w.onReload != nil {
		w.onReload(w.src, err)
	}
}

// relevant 判断事件是否可能改变了目标文件。
// Create 与 Rename 覆盖编辑器先写临时文件再替换的保存方式。
func relevant(ev fsnotify.Event, filename string) bool {
	if filepath.Base(ev.Name) != filename {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
