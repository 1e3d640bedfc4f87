package aggregation

import (
	"github.com/hatlonely/harvest/rdb/record"
)

// DistinctCount 字段非 nil 非空取值的去重个数，和 GroupBy 归到 unknown 的记录一致
func DistinctCount(records []record.Record, field string) int {
	return len(Distinct(records, field))
}

// Distinct 按首次出现顺序返回去重后的键
func Distinct(records []record.Record, field string) []string {
	seen := map[string]struct{}{}
	values := []string{}
	for _, r := range records {
		k, ok := r.Key(field)
		if !ok || k == "" {
			continue
		}
		if _, exists := seen[k]; exists {
			continue
		}
		seen[k] = struct{}{}
		values = append(values, k)
	}
	return values
}
