package report

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hatlonely/harvest/kv/store"
	"github.com/hatlonely/harvest/log"
	"github.com/hatlonely/harvest/log/logger"
	"github.com/hatlonely/harvest/ref"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

type PublisherOptions struct {
	// Store 已发布快照的镜像，供其他进程的渲染端读取，为空时只保存在内存中
	Store *ref.TypeOptions `cfg:"store"`

	Prefix string        `cfg:"prefix" def:"harvest:report:"`
	TTL    time.Duration `cfg:"ttl"`
	// MirrorTimeout 单次镜像写入的超时，为 0 时使用 1s
	MirrorTimeout time.Duration `cfg:"mirrorTimeout" def:"1s"`

	EnableMetrics bool `cfg:"enableMetrics"`

	Logger *ref.TypeOptions `cfg:"logger"`
}

// Publisher 按 scope 保存已发布的快照，只接受代数严格更大的快照
type Publisher struct {
	mu      sync.RWMutex
	applied map[string]*Snapshot

	// mirrorMu 串行化镜像写入，和 mu 分开，读快照不会被镜像阻塞
	mirrorMu      sync.Mutex
	store         store.Store[string, Snapshot]
	prefix        string
	ttl           time.Duration
	mirrorTimeout time.Duration

	logger  logger.Logger
	metrics *Metrics
}

func NewPublisherWithOptions(options *PublisherOptions) (*Publisher, error) {
	if options == nil {
		options = &PublisherOptions{}
	}

	var s store.Store[string, Snapshot]
	if options.Store != nil {
		var err error
		if s, err = store.NewStoreWithOptions[string, Snapshot](options.Store); err != nil {
			return nil, errors.WithMessage(err, "failed to create snapshot store")
		}
	}
	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}
	return NewPublisher(s, options, l), nil
}

// NewPublisher s 可以为 nil
func NewPublisher(s store.Store[string, Snapshot], options *PublisherOptions, l logger.Logger) *Publisher {
	if options == nil {
		options = &PublisherOptions{}
	}
	if l == nil {
		l = log.Default()
	}
	prefix := options.Prefix
	if prefix == "" {
		prefix = "harvest:report:"
	}
	mirrorTimeout := options.MirrorTimeout
	if mirrorTimeout <= 0 {
		mirrorTimeout = time.Second
	}
	p := &Publisher{
		applied:       map[string]*Snapshot{},
		store:         s,
		prefix:        prefix,
		ttl:           options.TTL,
		mirrorTimeout: mirrorTimeout,
		logger:        l.WithGroup("publisher"),
	}
	if options.EnableMetrics {
		p.metrics = NewMetrics()
	}
	return p
}

// Apply 快照的代数不大于当前已发布的代数时丢弃并返回 false
// 镜像写入失败只记日志，不影响内存中的发布结果
func (p *Publisher) Apply(ctx context.Context, snapshot *Snapshot) bool {
	if snapshot == nil {
		return false
	}

	p.mu.Lock()
	if current, ok := p.applied[snapshot.Scope]; ok && snapshot.Generation <= current.Generation {
		p.mu.Unlock()
		p.logger.DebugContext(ctx, "stale snapshot discarded",
			"scope", snapshot.Scope,
			"generation", snapshot.Generation,
			"applied", current.Generation,
		)
		if p.metrics != nil {
			p.metrics.staleDiscards.Inc()
		}
		return false
	}
	p.applied[snapshot.Scope] = snapshot
	p.mu.Unlock()

	p.logger.DebugContext(ctx, "snapshot applied", "scope", snapshot.Scope, "generation", snapshot.Generation)
	p.mirror(ctx, snapshot)
	return true
}

// mirror 只写仍然是当前代数的快照，镜像中的代数不会回退
func (p *Publisher) mirror(ctx context.Context, snapshot *Snapshot) {
	if p.store == nil {
		return
	}

	p.mirrorMu.Lock()
	defer p.mirrorMu.Unlock()
	if current, _ := p.Current(snapshot.Scope); current != snapshot {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.mirrorTimeout)
	defer cancel()

	var opts []store.SetOption
	if p.ttl > 0 {
		opts = append(opts, store.WithExpiration(p.ttl))
	}
	if err := p.store.Set(ctx, p.prefix+snapshot.Scope, *snapshot, opts...); err != nil {
		p.logger.WarnContext(ctx, "mirror snapshot failed",
			"scope", snapshot.Scope,
			"generation", snapshot.Generation,
			"error", err.Error(),
		)
	}
}

// Current 当前进程内已发布的快照
func (p *Publisher) Current(scope string) (*Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.applied[scope]
	return s, ok
}

// Get 先查内存，没有时读镜像
func (p *Publisher) Get(ctx context.Context, scope string) (*Snapshot, error) {
	if s, ok := p.Current(scope); ok {
		return s, nil
	}
	if p.store == nil {
		return nil, ErrSnapshotNotFound
	}
	s, err := p.store.Get(ctx, p.prefix+scope)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, errors.WithMessage(err, "read snapshot mirror failed")
	}
	return &s, nil
}

func (p *Publisher) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}
