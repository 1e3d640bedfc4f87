package writer

import (
	"io"
	"os"

	"github.com/hatlonely/harvest/ref"
)

// Namespace writer 注册的命名空间
const Namespace = "github.com/hatlonely/harvest/log/writer"

func init() {
	ref.MustRegisterT[*ConsoleWriter](NewConsoleWriterWithOptions)
	ref.MustRegisterT[*FileWriter](NewFileWriterWithOptions)
}

// Writer 日志输出器接口
type Writer interface {
	io.Writer
	io.Closer
}

// ConsoleWriterOptions 控制台输出配置
type ConsoleWriterOptions struct {
	// 输出目标：stdout, stderr
	Target string `cfg:"target" def:"stdout" validate:"omitempty,oneof=stdout stderr"`
}

// ConsoleWriter 控制台输出器
type ConsoleWriter struct {
	w io.Writer
}

func NewConsoleWriterWithOptions(options *ConsoleWriterOptions) (*ConsoleWriter, error) {
	if options != nil && options.Target == "stderr" {
		return &ConsoleWriter{w: os.Stderr}, nil
	}
	return &ConsoleWriter{w: os.Stdout}, nil
}

func (c *ConsoleWriter) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

// Close 控制台不需要关闭
func (c *ConsoleWriter) Close() error {
	return nil
}

// nopCloser 把普通 io.Writer 包装成 Writer，用于测试或者外部注入的输出
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Wrap 把 io.Writer 包装成 Writer
func Wrap(w io.Writer) Writer {
	if wc, ok := w.(Writer); ok {
		return wc
	}
	return nopCloser{Writer: w}
}
