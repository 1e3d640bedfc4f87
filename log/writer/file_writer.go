package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileWriterOptions 文件输出配置
type FileWriterOptions struct {
	// 文件路径
	Path string `cfg:"path" validate:"required"`
	// 单个文件最大大小（MB），0 表示不轮转
	MaxSize int `cfg:"maxSize"`
	// 保留的历史文件数量，0 表示只保留最近一个
	MaxBackups int `cfg:"maxBackups"`
}

// FileWriter 文件输出器，超过 MaxSize 后按 path.1, path.2 ... 轮转
type FileWriter struct {
	path       string
	maxBytes   int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

func NewFileWriterWithOptions(options *FileWriterOptions) (*FileWriter, error) {
	if options == nil || options.Path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(options.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", options.Path, err)
	}

	w := &FileWriter{
		path:       options.Path,
		maxBytes:   int64(options.MaxSize) * 1024 * 1024,
		maxBackups: options.MaxBackups,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *FileWriter) open() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", w.path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat file %s: %w", w.path, err)
	}
	w.file = file
	w.size = info.Size()
	return nil
}

func (w *FileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, fmt.Errorf("file writer is closed")
	}

	if w.maxBytes > 0 && w.size+int64(len(p)) > w.maxBytes && w.size > 0 {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *FileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", w.path, err)
	}

	backups := w.maxBackups
	if backups <= 0 {
		backups = 1
	}
	os.Remove(fmt.Sprintf("%s.%d", w.path, backups))
	for i := backups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", w.path, i), fmt.Sprintf("%s.%d", w.path, i+1))
	}
	if err := os.Rename(w.path, w.path+".1"); err != nil {
		return fmt.Errorf("failed to rotate file %s: %w", w.path, err)
	}

	return w.open()
}

func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
