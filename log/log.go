package log

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/hatlonely/harvest/log/logger"
	"github.com/hatlonely/harvest/log/writer"
	"github.com/hatlonely/harvest/ref"
)

// Namespace 日志类型注册的命名空间，配置中可以省略
const Namespace = "github.com/hatlonely/harvest/log/logger"

func init() {
	ref.MustRegisterT[*logger.SLog](logger.NewSLogWithOptions)
}

var defaultLogger atomic.Value

func init() {
	l, err := logger.NewSLogWithOptions(&logger.SLogOptions{Level: "info", Format: "text"})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger.Store(logger.Logger(l))
}

// Default 返回全局默认日志，输出 text 格式到 stdout
func Default() logger.Logger {
	return defaultLogger.Load().(logger.Logger)
}

func SetDefault(l logger.Logger) {
	defaultLogger.Store(l)
}

// NewLoggerWithOptions 通过 ref 创建日志，options 为空时返回默认日志
// Type 为空时使用 SLog，Namespace 为空时使用 log/logger
func NewLoggerWithOptions(options *ref.TypeOptions) (logger.Logger, error) {
	if options == nil {
		return Default(), nil
	}

	namespace, typ := options.Namespace, options.Type
	if typ == "" {
		typ = "SLog"
	}
	if namespace == "" {
		namespace = Namespace
	}

	obj, err := ref.New(namespace, typ, options.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger %s:%s: %w", namespace, typ, err)
	}
	l, ok := obj.(logger.Logger)
	if !ok {
		return nil, fmt.Errorf("object %T does not implement Logger", obj)
	}
	return l, nil
}

// NewDiscard 丢弃所有输出的日志
func NewDiscard() logger.Logger {
	l, _ := logger.NewSLog(writer.Wrap(io.Discard), &logger.SLogOptions{Level: "error"})
	return l
}
