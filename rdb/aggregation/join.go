package aggregation

import (
	"github.com/hatlonely/harvest/rdb/record"
)

// 关联不上时的占位值
const (
	Anonymous     = "Anonymous"
	UnknownFarmer = "Unknown Farmer"
	NotSpecified  = "Not specified"
	Unknown       = "Unknown"
)

// Index 主键到记录的索引，构建一次 O(m)，查找 O(1)
type Index struct {
	field   string
	records map[string]record.Record
}

// NewIndex 按 keyField 建立索引，主键重复时保留第一条
func NewIndex(refs []record.Record, keyField string) *Index {
	idx := &Index{
		field:   keyField,
		records: make(map[string]record.Record, len(refs)),
	}
	for _, r := range refs {
		k, ok := r.Key(keyField)
		if !ok {
			continue
		}
		if _, exists := idx.records[k]; !exists {
			idx.records[k] = r
		}
	}
	return idx
}

func (idx *Index) Lookup(key any) (record.Record, bool) {
	if idx == nil {
		return nil, false
	}
	k, ok := record.KeyOf(key)
	if !ok {
		return nil, false
	}
	r, ok := idx.records[k]
	return r, ok
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.records)
}

// Attr 把关联记录的 From 字段投影到结果的 To 字段，取不到时使用 Sentinel
type Attr struct {
	From     string
	To       string
	Sentinel any
}

// Resolve 按 fkField 关联 index 中的记录并投影属性，返回新的记录，不修改输入
func Resolve(records []record.Record, fkField string, index *Index, attrs ...Attr) []record.Record {
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		ref, found := index.Lookup(r[fkField])
		resolved := r.Clone()
		for _, attr := range attrs {
			resolved[attr.To] = project(ref, found, attr)
		}
		out = append(out, resolved)
	}
	return out
}

func project(ref record.Record, found bool, attr Attr) any {
	if !found {
		return attr.Sentinel
	}
	v, ok := ref[attr.From]
	if !ok || v == nil {
		return attr.Sentinel
	}
	if s, isStr := v.(string); isStr && s == "" {
		return attr.Sentinel
	}
	return v
}

// ResolveName 常用的单属性关联
func ResolveName(index *Index, key any, field string, sentinel string) string {
	ref, ok := index.Lookup(key)
	if !ok {
		return sentinel
	}
	v := project(ref, true, Attr{From: field, Sentinel: sentinel})
	if s, isStr := v.(string); isStr {
		return s
	}
	k, _ := record.KeyOf(v)
	return k
}
