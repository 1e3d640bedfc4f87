package query

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hatlonely/harvest/rdb/record"
)

// Compare 比较两个标量，数字按数值比较，时间按时刻比较，其他按字符串比较
// 第二个返回值为 false 表示无法比较
func Compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			return ta.Compare(tb), true
		}
	}

	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
	}

	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1, true
	case sa > sb:
		return 1, true
	}
	return 0, true
}

func equal(a, b any) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	case string:
		return record.ToTime(t)
	}
	return time.Time{}, false
}

// lookup 支持 "a.b" 形式访问嵌套字段
func lookup(fields map[string]any, field string) (any, bool) {
	if v, ok := fields[field]; ok {
		return v, true
	}
	for i := 0; i < len(field); i++ {
		if field[i] == '.' {
			sub, ok := fields[field[:i]].(map[string]any)
			if !ok {
				return nil, false
			}
			return lookup(sub, field[i+1:])
		}
	}
	return nil, false
}
