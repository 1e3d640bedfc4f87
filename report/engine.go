package report

import (
	"context"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hatlonely/harvest/cfg/validator"
	"github.com/hatlonely/harvest/log"
	"github.com/hatlonely/harvest/log/logger"
	"github.com/hatlonely/harvest/rdb/record"
	"github.com/hatlonely/harvest/rdb/source"
	"github.com/hatlonely/harvest/ref"
	"github.com/hatlonely/harvest/uid/intgen"
)

const ScopeGlobal = "global"

type Options struct {
	Source    *ref.TypeOptions `cfg:"source"`
	Generator *ref.TypeOptions `cfg:"generator"`
	Logger    *ref.TypeOptions `cfg:"logger"`
	Publisher PublisherOptions `cfg:"publisher"`

	WindowMonths int           `cfg:"windowMonths" def:"6" validate:"min=0,max=120"`
	TopK         int           `cfg:"topK" def:"5" validate:"min=0"`
	RecentLimit  int           `cfg:"recentLimit" def:"10" validate:"min=0"`
	FetchTimeout time.Duration `cfg:"fetchTimeout" def:"5s"`
	// Concurrency 同时拉取的实体数，0 表示不限制
	Concurrency int `cfg:"concurrency" def:"4" validate:"min=0"`

	// Sections 默认计算的部分，为空时计算全部
	Sections []string `cfg:"sections" validate:"dive,oneof=stats trend statusDistribution regionalDistribution topContributors recentActivity orders feedback farmers contributors"`

	// PrimaryKeys 实体名到主键列，未配置的实体主键为 id
	PrimaryKeys map[string]string `cfg:"primaryKeys" validate:"dive,keys,oneof=users rec_contributions states farmers products orders order_items website_feedback,endkeys,required"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`
}

// Request 单次刷新的参数，为空时使用全局范围和 Options 中的 Sections
type Request struct {
	// Scope 发布时的范围，相同范围内代数大的快照生效，为空时按 FarmerID 推导
	Scope string
	// FarmerID 不为空时订单只保留该农户的商品
	FarmerID string
	Sections []string
}

// Engine 报表引擎，每次 Refresh 是独立的一轮，轮与轮之间只通过 Publisher 交互
type Engine struct {
	source    source.Source
	generator intgen.IntGenerator
	publisher *Publisher
	options   *Options
	logger    logger.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

func NewEngineWithOptions(options *Options) (*Engine, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if err := validator.ValidateStruct(options); err != nil {
		return nil, errors.Wrap(err, "invalid report options")
	}

	src, err := source.NewSourceWithOptions(options.Source)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create source")
	}
	gen, err := intgen.NewIntGeneratorWithOptions(options.Generator)
	if err != nil {
		_ = src.Close()
		return nil, errors.WithMessage(err, "failed to create generator")
	}
	pubOptions := options.Publisher
	pubOptions.EnableMetrics = pubOptions.EnableMetrics || options.EnableMetrics
	pub, err := NewPublisherWithOptions(&pubOptions)
	if err != nil {
		_ = src.Close()
		return nil, errors.WithMessage(err, "failed to create publisher")
	}
	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		_ = src.Close()
		_ = pub.Close()
		return nil, errors.WithMessage(err, "failed to create logger")
	}
	return NewEngine(src, gen, pub, options, l)
}

// NewEngine gen、pub、l 为 nil 时分别使用 TimestampSeqGenerator、内存 Publisher 和默认日志
func NewEngine(src source.Source, gen intgen.IntGenerator, pub *Publisher, options *Options, l logger.Logger) (*Engine, error) {
	if src == nil {
		return nil, errors.New("source is required")
	}
	if options == nil {
		options = &Options{}
	}
	if err := validator.ValidateStruct(options); err != nil {
		return nil, errors.Wrap(err, "invalid report options")
	}
	if gen == nil {
		gen = intgen.NewTimestampSeqGenerator()
	}
	if l == nil {
		l = log.Default()
	}
	if pub == nil {
		pub = NewPublisher(nil, &PublisherOptions{EnableMetrics: options.EnableMetrics}, l)
	}

	opts := *options
	if opts.WindowMonths == 0 {
		opts.WindowMonths = 6
	}
	if opts.TopK == 0 {
		opts.TopK = 5
	}
	if opts.RecentLimit == 0 {
		opts.RecentLimit = 10
	}

	e := &Engine{
		source:    src,
		generator: gen,
		publisher: pub,
		options:   &opts,
		logger:    l.WithGroup("report"),
		now:       time.Now,
	}
	if opts.EnableMetrics {
		e.metrics = NewMetrics()
	}
	if opts.EnableTracing {
		e.tracer = otel.Tracer("report")
	}
	return e, nil
}

func (e *Engine) Publisher() *Publisher {
	return e.publisher
}

// Refresh 计算并发布一轮报表
// 被取消的一轮直接丢弃并返回错误；代数落后的快照不会覆盖已发布的结果，但仍然返回给调用方
func (e *Engine) Refresh(ctx context.Context, req *Request) (*Snapshot, error) {
	snapshot, err := e.Compute(ctx, req)
	if err != nil {
		return nil, err
	}
	e.publisher.Apply(ctx, snapshot)
	return snapshot, nil
}

// Compute 计算一轮报表但不发布，代数在开始时分配
// 单个实体拉取失败只影响依赖它的部分，不会返回错误
func (e *Engine) Compute(ctx context.Context, req *Request) (snapshot *Snapshot, err error) {
	start := time.Now()
	req = e.normalize(req)

	generation, err := e.generator.Generate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			e.observeCycle("cancelled", start)
			return nil, errors.Wrap(ctx.Err(), "report cycle cancelled")
		}
		e.observeCycle("error", start)
		return nil, errors.WithMessage(err, "generate generation id failed")
	}

	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "report.Refresh",
			trace.WithAttributes(
				attribute.Int64("generation", generation),
				attribute.String("scope", req.Scope),
				attribute.StringSlice("sections", req.Sections),
			),
		)
		defer func() {
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				span.RecordError(err)
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
		}()
	}

	entities := requiredEntities(req.Sections)
	records, failures := e.fetch(ctx, entities)

	if ctx.Err() != nil {
		e.observeCycle("cancelled", start)
		e.logger.DebugContext(ctx, "report cycle discarded", "generation", generation, "scope", req.Scope)
		return nil, errors.Wrap(ctx.Err(), "report cycle cancelled")
	}

	now := e.now()
	snapshot = newSnapshot(generation, req.Scope, now)
	d := &dataset{records: records, now: now, request: req, options: e.options}
	for _, name := range req.Sections {
		missing, msgs := missingEntities(sections[name].entities, failures)
		if len(missing) > 0 {
			snapshot.Sections[name] = SectionStatus{Available: false, Missing: missing, Error: strings.Join(msgs, "; ")}
			if e.metrics != nil {
				e.metrics.sectionUnavailable.WithLabelValues(name).Inc()
			}
			continue
		}
		sections[name].compute(d, snapshot)
		snapshot.Sections[name] = SectionStatus{Available: true, Missing: []string{}}
	}

	status := "success"
	if len(failures) > 0 {
		status = "partial"
		e.logFailures(ctx, generation, req, failures)
	}
	e.observeCycle(status, start)
	e.logger.DebugContext(ctx, "report cycle completed",
		"generation", generation,
		"scope", req.Scope,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return snapshot, nil
}

// fetch 并发拉取所有实体，每个 goroutine 只写自己的结果槽位，错误不返回给 errgroup
func (e *Engine) fetch(ctx context.Context, entities []record.Entity) (map[record.Entity][]record.Record, map[record.Entity]error) {
	results := make([][]record.Record, len(entities))
	errs := make([]error, len(entities))

	var g errgroup.Group
	if e.options.Concurrency > 0 {
		g.SetLimit(e.options.Concurrency)
	}
	for i, entity := range entities {
		g.Go(func() error {
			fctx, cancel := ctx, context.CancelFunc(func() {})
			if e.options.FetchTimeout > 0 {
				fctx, cancel = context.WithTimeout(ctx, e.options.FetchTimeout)
			}
			defer cancel()
			results[i], errs[i] = e.source.FetchAll(fctx, entity, nil)
			return nil
		})
	}
	_ = g.Wait()

	records := make(map[record.Entity][]record.Record, len(entities))
	failures := map[record.Entity]error{}
	for i, entity := range entities {
		if errs[i] != nil {
			failures[entity] = errs[i]
			continue
		}
		if results[i] == nil {
			results[i] = []record.Record{}
		}
		records[entity] = withPrimaryKey(results[i], e.options.PrimaryKeys[string(entity)])
	}
	return records, failures
}

// withPrimaryKey 把配置的主键列写到 id 上，关联统一按 id 查找
func withPrimaryKey(rows []record.Record, pk string) []record.Record {
	if pk == "" || pk == "id" {
		return rows
	}
	out := make([]record.Record, len(rows))
	for i, r := range rows {
		c := r.Clone()
		if v, ok := r[pk]; ok {
			c["id"] = v
		}
		out[i] = c
	}
	return out
}

func missingEntities(entities []record.Entity, failures map[record.Entity]error) ([]string, []string) {
	var missing, msgs []string
	for _, entity := range entities {
		if err, ok := failures[entity]; ok {
			missing = append(missing, string(entity))
			msgs = append(msgs, string(entity)+": "+err.Error())
		}
	}
	return missing, msgs
}

// logFailures 每轮只记录一条
func (e *Engine) logFailures(ctx context.Context, generation int64, req *Request, failures map[record.Entity]error) {
	var entities, msgs []string
	for _, entity := range record.Entities {
		if err, ok := failures[entity]; ok {
			entities = append(entities, string(entity))
			msgs = append(msgs, string(entity)+": "+err.Error())
		}
	}
	e.logger.WarnContext(ctx, "partial fetch failure",
		"generation", generation,
		"scope", req.Scope,
		"entities", entities,
		"error", strings.Join(msgs, "; "),
	)
}

func (e *Engine) observeCycle(status string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.cycles.WithLabelValues(status).Inc()
	e.metrics.cycleDuration.Observe(time.Since(start).Seconds())
}

func (e *Engine) normalize(req *Request) *Request {
	r := Request{}
	if req != nil {
		r = *req
	}
	if len(r.Sections) == 0 {
		r.Sections = e.options.Sections
	}
	if len(r.Sections) == 0 {
		r.Sections = Sections
	}
	// 按固定顺序去重，忽略未知的部分
	var names []string
	for _, name := range Sections {
		if slices.Contains(r.Sections, name) {
			names = append(names, name)
		}
	}
	r.Sections = names
	if r.Scope == "" {
		r.Scope = ScopeGlobal
		if r.FarmerID != "" {
			r.Scope = "farmer:" + r.FarmerID
		}
	}
	return &r
}

func (e *Engine) Close() error {
	closers := []io.Closer{e.source, e.publisher}
	if c, ok := e.generator.(io.Closer); ok {
		closers = append(closers, c)
	}
	var msgs []string
	for _, c := range closers {
		if err := c.Close(); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) > 0 {
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}
