// monitor.go
package file

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监视数据目录，月度数据文件新增或被覆盖时触发回调。
// 同一文件修改时间未前进的重复事件会被吞掉，避免编辑器多次写入反复触发。
type FileMonitor struct {
	watchDir string
	watcher  *fsnotify.Watcher
	match    func(name string) bool
	lastMod  map[string]time.Time
	mu       sync.Mutex
}

// NewFileMonitor 创建目录监视器，match决定哪些文件名会触发回调
func NewFileMonitor(dir string, match func(name string) bool) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &FileMonitor{
		watchDir: dir,
		watcher:  watcher,
		match:    match,
		lastMod:  make(map[string]time.Time),
	}, nil
}

// Watch 阻塞处理文件事件直到ctx取消或监视器出错。
// handler在独立goroutine中执行，慢处理不会阻塞事件循环。
func (m *FileMonitor) Watch(ctx context.Context, handler func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write != fsnotify.Write && event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if m.match != nil && !m.match(event.Name) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}

			m.mu.Lock()
			if info.ModTime().After(m.lastMod[event.Name]) {
				m.lastMod[event.Name] = info.ModTime()
				go handler(event.Name)
			}
			m.mu.Unlock()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}
