package aggregation

import (
	"github.com/hatlonely/harvest/rdb/record"
)

// UnknownKey 取不到分组键的记录都归到这个分组
const UnknownKey = "unknown"

// KeyFunc 从记录中提取分组键，返回 false 表示没有键
type KeyFunc func(r record.Record) (string, bool)

// ByField 用字段值作为分组键
func ByField(field string) KeyFunc {
	return func(r record.Record) (string, bool) {
		return r.Key(field)
	}
}

// ByResolved 依次尝试多个字段，用于关联后的属性优先、原始外键兜底
func ByResolved(fields ...string) KeyFunc {
	return func(r record.Record) (string, bool) {
		for _, field := range fields {
			if k, ok := r.Key(field); ok && k != "" {
				return k, true
			}
		}
		return "", false
	}
}

// Groups 按首次出现顺序保存的分组结果
type Groups struct {
	keys   []string
	groups map[string][]record.Record
}

// GroupBy 所有记录都会落到某个分组，分组大小之和等于输入长度
func GroupBy(records []record.Record, keyFn KeyFunc) *Groups {
	g := &Groups{groups: map[string][]record.Record{}}
	for _, r := range records {
		k, ok := keyFn(r)
		if !ok || k == "" {
			k = UnknownKey
		}
		if _, exists := g.groups[k]; !exists {
			g.keys = append(g.keys, k)
		}
		g.groups[k] = append(g.groups[k], r)
	}
	return g
}

func (g *Groups) Keys() []string {
	return append([]string{}, g.keys...)
}

func (g *Groups) Get(key string) []record.Record {
	return g.groups[key]
}

func (g *Groups) Len() int {
	return len(g.keys)
}

// Size 所有分组的记录数之和
func (g *Groups) Size() int {
	n := 0
	for _, rs := range g.groups {
		n += len(rs)
	}
	return n
}

type Bucket struct {
	Key   string  `json:"key"`
	Count int     `json:"count"`
	Sum   float64 `json:"sum,omitempty"`
}

func CountBy(records []record.Record, keyFn KeyFunc) []Bucket {
	g := GroupBy(records, keyFn)
	buckets := make([]Bucket, 0, g.Len())
	for _, k := range g.keys {
		buckets = append(buckets, Bucket{Key: k, Count: len(g.groups[k])})
	}
	return buckets
}

// SumBy 非数值的字段按 0 累加，但仍然计数
func SumBy(records []record.Record, keyFn KeyFunc, field string) []Bucket {
	g := GroupBy(records, keyFn)
	buckets := make([]Bucket, 0, g.Len())
	for _, k := range g.keys {
		b := Bucket{Key: k}
		for _, r := range g.groups[k] {
			b.Count++
			if v, ok := r.Float(field); ok {
				b.Sum += v
			}
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// CountMap 分组计数的查找表
func CountMap(records []record.Record, keyFn KeyFunc) map[string]int {
	m := map[string]int{}
	for _, b := range CountBy(records, keyFn) {
		m[b.Key] = b.Count
	}
	return m
}
