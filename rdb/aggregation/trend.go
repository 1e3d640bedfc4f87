package aggregation

import (
	"time"

	"github.com/hatlonely/harvest/rdb/record"
)

const monthLayout = "2006-01"

type MonthBucket struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// MonthStart now 所在月份的第一天零点，使用 now 的时区
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// MonthlyTrend 以 now 所在月份结尾的 windowMonths 个自然月，从旧到新，没有数据的月份补 0
// 时间戳为空、无法解析或者不在窗口内的记录不计入
func MonthlyTrend(records []record.Record, field string, windowMonths int, now time.Time) []MonthBucket {
	if windowMonths <= 0 {
		return []MonthBucket{}
	}

	loc := now.Location()
	first := MonthStart(now).AddDate(0, -(windowMonths - 1), 0)
	end := MonthStart(now).AddDate(0, 1, 0)

	buckets := make([]MonthBucket, windowMonths)
	for i := range buckets {
		buckets[i].Month = first.AddDate(0, i, 0).Format(monthLayout)
	}

	for _, r := range records {
		t, ok := r.Time(field)
		if !ok {
			continue
		}
		t = t.In(loc)
		if t.Before(first) || !t.Before(end) {
			continue
		}
		i := (t.Year()-first.Year())*12 + int(t.Month()) - int(first.Month())
		buckets[i].Count++
	}
	return buckets
}

// InMonth 时间戳是否落在 now 所在的自然月
func InMonth(r record.Record, field string, now time.Time) bool {
	t, ok := r.Time(field)
	if !ok {
		return false
	}
	t = t.In(now.Location())
	start := MonthStart(now)
	return !t.Before(start) && t.Before(start.AddDate(0, 1, 0))
}
