package provider

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

type FileProviderOptions struct {
	FilePath string `cfg:"filePath" validate:"required"`
}

// FileProvider 从本地文件读取配置，监听文件所在目录以兼容编辑器的原子替换
type FileProvider struct {
	filePath string

	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	onChange []func(data []byte) error
	once     sync.Once
	done     chan struct{}
	errFn    func(err error)
}

func NewFileProviderWithOptions(options *FileProviderOptions) (*FileProvider, error) {
	if options == nil || options.FilePath == "" {
		return nil, errors.New("file path is required")
	}
	absPath, err := filepath.Abs(options.FilePath)
	if err != nil {
		return nil, errors.Wrap(err, "invalid file path")
	}
	return &FileProvider{filePath: absPath, done: make(chan struct{})}, nil
}

func (p *FileProvider) Load() ([]byte, error) {
	data, err := os.ReadFile(p.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "read file %s failed", p.filePath)
	}
	return data, nil
}

func (p *FileProvider) OnChange(fn func(data []byte) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = append(p.onChange, fn)
}

// OnError 注册回调执行失败或者监听出错时的处理函数
func (p *FileProvider) OnError(fn func(err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errFn = fn
}

func (p *FileProvider) Watch() error {
	var watchErr error
	p.once.Do(func() {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			watchErr = errors.Wrap(err, "create file watcher failed")
			return
		}
		if err := watcher.Add(filepath.Dir(p.filePath)); err != nil {
			watcher.Close()
			watchErr = errors.Wrap(err, "watch directory failed")
			return
		}

		p.mu.Lock()
		p.watcher = watcher
		p.mu.Unlock()

		go p.loop(watcher)
	})
	return watchErr
}

func (p *FileProvider) loop(watcher *fsnotify.Watcher) {
	for {
		select {
		case <-p.done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.filePath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(p.filePath)
			if err != nil {
				p.reportError(errors.Wrapf(err, "reload file %s failed", p.filePath))
				continue
			}
			p.mu.RLock()
			handlers := append([]func([]byte) error(nil), p.onChange...)
			p.mu.RUnlock()
			for _, handler := range handlers {
				if err := handler(data); err != nil {
					p.reportError(err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.reportError(errors.Wrap(err, "file watcher error"))
		}
	}
}

func (p *FileProvider) reportError(err error) {
	p.mu.RLock()
	fn := p.errFn
	p.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

func (p *FileProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	default:
		close(p.done)
	}
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}
