package source

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hatlonely/harvest/log"
	"github.com/hatlonely/harvest/log/logger"
	"github.com/hatlonely/harvest/rdb/query"
	"github.com/hatlonely/harvest/rdb/record"
	"github.com/hatlonely/harvest/ref"
)

type ObservableSourceOptions struct {
	// Source 被包装的数据源配置
	Source *ref.TypeOptions `cfg:"source" validate:"required"`

	Logger *ref.TypeOptions `cfg:"logger"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableLogging bool `cfg:"enableLogging" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 指标名前缀，同时作为日志和 span 的 component
	Name string `cfg:"name" def:"source"`
}

// ObservableMetrics 拉取相关的 prometheus 指标
type ObservableMetrics struct {
	fetchCounter  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchRows     *prometheus.HistogramVec
	activeFetches *prometheus.GaugeVec
}

// NewObservableMetrics 创建并注册指标，同名指标已经注册过时复用已有的
func NewObservableMetrics(name string) *ObservableMetrics {
	return &ObservableMetrics{
		fetchCounter: mustRegister(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_fetch_total",
				Help: "Total number of entity fetches",
			},
			[]string{"entity", "status"},
		)),
		fetchDuration: mustRegister(prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_fetch_duration_seconds",
				Help:    "Duration of entity fetches in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"entity"},
		)),
		fetchRows: mustRegister(prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_fetch_rows",
				Help:    "Number of records returned by a fetch",
				Buckets: []float64{0, 10, 100, 1000, 10000, 100000},
			},
			[]string{"entity"},
		)),
		activeFetches: mustRegister(prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_fetches",
				Help: "Number of in-flight entity fetches",
			},
			[]string{"entity"},
		)),
	}
}

func mustRegister[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObservableSource 装饰器，为任何数据源加上指标、日志和追踪
type ObservableSource struct {
	source Source

	logger  logger.Logger
	metrics *ObservableMetrics
	tracer  trace.Tracer
	name    string
}

func NewObservableSourceWithOptions(options *ObservableSourceOptions) (*ObservableSource, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.Source == nil {
		return nil, errors.New("source is required")
	}

	source, err := NewSourceWithOptions(options.Source)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying source")
	}
	return NewObservableSource(source, options)
}

func NewObservableSource(source Source, options *ObservableSourceOptions) (*ObservableSource, error) {
	name := options.Name
	if name == "" {
		name = "source"
	}
	obs := &ObservableSource{source: source, name: name}

	if options.EnableLogging {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		obs.logger = l.WithGroup("observableSource")
	}
	if options.EnableMetrics {
		obs.metrics = NewObservableMetrics(name)
	}
	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("source.%s", name))
	}
	return obs, nil
}

func (obs *ObservableSource) FetchAll(ctx context.Context, entity record.Entity, q query.Query, opts ...FetchOption) ([]record.Record, error) {
	start := time.Now()

	var span trace.Span
	if obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, "source.FetchAll",
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("entity", string(entity)),
			),
		)
		defer span.End()
	}

	if obs.metrics != nil {
		obs.metrics.activeFetches.WithLabelValues(string(entity)).Inc()
		defer obs.metrics.activeFetches.WithLabelValues(string(entity)).Dec()
	}

	records, err := obs.source.FetchAll(ctx, entity, q, opts...)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(
			attribute.Int64("duration_ms", duration.Milliseconds()),
			attribute.Int("rows", len(records)),
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.fetchCounter.WithLabelValues(string(entity), status).Inc()
		obs.metrics.fetchDuration.WithLabelValues(string(entity)).Observe(duration.Seconds())
		if err == nil {
			obs.metrics.fetchRows.WithLabelValues(string(entity)).Observe(float64(len(records)))
		}
	}

	if obs.logger != nil {
		if err != nil {
			obs.logger.WarnContext(ctx, "fetch failed",
				"component", obs.name,
				"entity", string(entity),
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.DebugContext(ctx, "fetch completed",
				"component", obs.name,
				"entity", string(entity),
				"rows", len(records),
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return records, err
}

func (obs *ObservableSource) Close() error {
	return obs.source.Close()
}
