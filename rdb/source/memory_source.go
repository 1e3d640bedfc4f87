package source

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hatlonely/harvest/rdb/query"
	"github.com/hatlonely/harvest/rdb/record"
	"github.com/pkg/errors"
)

type MemorySourceOptions struct {
	Tables Tables `cfg:"tables"`

	// Data 初始数据，key 为表名
	Data map[string][]map[string]any `cfg:"data"`

	// Failures 指定实体拉取时返回的错误信息
	Failures map[string]string `cfg:"failures"`

	// Latency 每次拉取的模拟延迟
	Latency time.Duration `cfg:"latency"`
}

// MemorySource 内存数据源，在进程内执行过滤、排序和分页
type MemorySource struct {
	tables Tables

	mu       sync.RWMutex
	data     map[string][]record.Record
	failures map[record.Entity]error
	latency  time.Duration
}

func NewMemorySourceWithOptions(options *MemorySourceOptions) *MemorySource {
	if options == nil {
		options = &MemorySourceOptions{}
	}

	s := &MemorySource{
		tables:   options.Tables,
		data:     map[string][]record.Record{},
		failures: map[record.Entity]error{},
		latency:  options.Latency,
	}
	for table, rows := range options.Data {
		for _, row := range rows {
			s.data[table] = append(s.data[table], record.Record(row).Clone())
		}
	}
	for entity, msg := range options.Failures {
		s.failures[record.Entity(entity)] = errors.New(msg)
	}
	return s
}

// Put 追加记录
func (s *MemorySource) Put(entity record.Entity, rows ...record.Record) error {
	table, err := s.tables.Resolve(entity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.data[table] = append(s.data[table], row.Clone())
	}
	return nil
}

// Fail 让实体的拉取返回 err，err 为 nil 时恢复
func (s *MemorySource) Fail(entity record.Entity, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, entity)
		return
	}
	s.failures[entity] = err
}

func (s *MemorySource) FetchAll(ctx context.Context, entity record.Entity, q query.Query, opts ...FetchOption) ([]record.Record, error) {
	table, err := s.tables.Resolve(entity)
	if err != nil {
		return nil, err
	}

	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "fetch %s", entity)
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "fetch %s", entity)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failures[entity]; err != nil {
		return nil, errors.WithMessagef(err, "fetch %s", entity)
	}

	options := NewFetchOptions(opts...)
	rows := make([]record.Record, 0, len(s.data[table]))
	for _, row := range s.data[table] {
		if q == nil || q.Match(row) {
			rows = append(rows, row.Clone())
		}
	}

	if options.OrderBy != "" {
		sortRecords(rows, options.OrderBy, options.OrderDesc)
	}
	return page(rows, options.Offset, options.Limit), nil
}

func (s *MemorySource) Close() error {
	return nil
}

// sortRecords 稳定排序，缺失或无法比较的值排在最后
func sortRecords(rows []record.Record, field string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i][field], rows[j][field]
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		c, ok := query.Compare(a, b)
		if !ok {
			return false
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func page(rows []record.Record, offset, limit int) []record.Record {
	if offset > 0 {
		if offset >= len(rows) {
			return []record.Record{}
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
