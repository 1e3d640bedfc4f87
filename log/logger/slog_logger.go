package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hatlonely/harvest/log/writer"
	"github.com/hatlonely/harvest/ref"
)

// SLogOptions 日志初始化选项
type SLogOptions struct {
	// 日志级别：debug, info, warn, error
	Level string `cfg:"level" def:"info" validate:"omitempty,oneof=debug info warn error"`

	// 输出格式：text, json
	Format string `cfg:"format" def:"text" validate:"omitempty,oneof=text json"`

	// 输出目标，为空时输出到 stdout
	Output *ref.TypeOptions `cfg:"output"`

	TimeFormat string `cfg:"timeFormat"`

	AddSource bool `cfg:"addSource"`

	// 每条日志都会带上的字段
	Fields map[string]any `cfg:"fields"`
}

type SLog struct {
	slogger *slog.Logger
	w       writer.Writer
}

func NewSLogWithOptions(options *SLogOptions) (*SLog, error) {
	if options == nil {
		options = &SLogOptions{}
	}

	var w writer.Writer
	if options.Output != nil && options.Output.Type != "" {
		namespace := options.Output.Namespace
		if namespace == "" {
			namespace = writer.Namespace
		}
		obj, err := ref.New(namespace, options.Output.Type, options.Output.Options)
		if err != nil {
			return nil, fmt.Errorf("failed to create writer: %w", err)
		}
		var ok bool
		if w, ok = obj.(writer.Writer); !ok {
			return nil, fmt.Errorf("writer %T does not implement Writer interface", obj)
		}
	} else {
		cw, err := writer.NewConsoleWriterWithOptions(&writer.ConsoleWriterOptions{Target: "stdout"})
		if err != nil {
			return nil, fmt.Errorf("failed to create default console writer: %w", err)
		}
		w = cw
	}

	return NewSLog(w, options)
}

// NewSLog 使用已经创建好的 writer 构建日志，options 中的 Output 会被忽略
func NewSLog(w writer.Writer, options *SLogOptions) (*SLog, error) {
	if options == nil {
		options = &SLogOptions{}
	}

	level, err := parseLevel(options.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: options.AddSource,
	}
	if options.TimeFormat != "" && options.TimeFormat != time.RFC3339 {
		timeFormat := options.TimeFormat
		handlerOpts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(a.Key, a.Value.Time().Format(timeFormat))
			}
			return a
		}
	}

	var handler slog.Handler
	switch strings.ToLower(options.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		return nil, fmt.Errorf("unsupported format: %s", options.Format)
	}

	slogger := slog.New(handler)
	if len(options.Fields) > 0 {
		keys := make([]string, 0, len(options.Fields))
		for k := range options.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		args := make([]any, 0, len(keys)*2)
		for _, k := range keys {
			args = append(args, k, options.Fields[k])
		}
		slogger = slogger.With(args...)
	}

	return &SLog{slogger: slogger, w: w}, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level: %s", level)
	}
}

func (l *SLog) Debug(msg string, args ...any) { l.slogger.Debug(msg, args...) }
func (l *SLog) Info(msg string, args ...any)  { l.slogger.Info(msg, args...) }
func (l *SLog) Warn(msg string, args ...any)  { l.slogger.Warn(msg, args...) }
func (l *SLog) Error(msg string, args ...any) { l.slogger.Error(msg, args...) }

func (l *SLog) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, args...)
}

func (l *SLog) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, args...)
}

func (l *SLog) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, args...)
}

func (l *SLog) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, args...)
}

func (l *SLog) With(args ...any) Logger {
	return &SLog{slogger: l.slogger.With(args...), w: l.w}
}

func (l *SLog) WithGroup(name string) Logger {
	return &SLog{slogger: l.slogger.WithGroup(name), w: l.w}
}

// Close 关闭底层输出
func (l *SLog) Close() error {
	return l.w.Close()
}
