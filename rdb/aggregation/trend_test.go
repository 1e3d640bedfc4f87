package aggregation

import (
	"testing"
	"time"

	"github.com/hatlonely/harvest/rdb/record"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMonthlyTrend(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	at := func(year int, month time.Month, day int) record.Record {
		return record.Record{"created_at": time.Date(year, month, day, 8, 0, 0, 0, time.UTC)}
	}

	Convey("跨 7 个月的 13 条投稿，窗口 6 个月", t, func() {
		records := []record.Record{
			at(2023, 12, 1), at(2023, 12, 31), // 窗口外
			at(2024, 2, 1), at(2024, 2, 29),
			at(2024, 3, 10),
			at(2024, 4, 1), at(2024, 4, 2), at(2024, 4, 30),
			at(2024, 5, 5),
			at(2024, 6, 1), at(2024, 6, 14), at(2024, 6, 15),
			{"created_at": "2024-06-03T10:00:00Z"},
		}
		So(records, ShouldHaveLength, 13)

		trend := MonthlyTrend(records, "created_at", 6, now)
		So(trend, ShouldResemble, []MonthBucket{
			{Month: "2024-01", Count: 0},
			{Month: "2024-02", Count: 2},
			{Month: "2024-03", Count: 1},
			{Month: "2024-04", Count: 3},
			{Month: "2024-05", Count: 1},
			{Month: "2024-06", Count: 4},
		})

		sum := 0
		for _, b := range trend {
			sum += b.Count
		}
		So(sum, ShouldEqual, 11)
	})

	Convey("边界和异常值", t, func() {
		records := []record.Record{
			{"created_at": time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},  // 下个月
			{"created_at": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},  // 窗口第一天
			{"created_at": time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)},
			{"created_at": nil},
			{"created_at": "not a time"},
			{},
		}
		trend := MonthlyTrend(records, "created_at", 6, now)
		So(trend, ShouldHaveLength, 6)
		So(trend[0], ShouldResemble, MonthBucket{Month: "2024-01", Count: 1})
		for _, b := range trend[1:] {
			So(b.Count, ShouldEqual, 0)
		}
	})

	Convey("跨年窗口", t, func() {
		trend := MonthlyTrend(nil, "created_at", 3, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
		So(trend, ShouldResemble, []MonthBucket{
			{Month: "2024-11", Count: 0},
			{Month: "2024-12", Count: 0},
			{Month: "2025-01", Count: 0},
		})
	})

	Convey("按 now 的时区划分月份", t, func() {
		loc := time.FixedZone("IST", 5*3600+1800)
		local := time.Date(2024, 6, 1, 1, 0, 0, 0, loc)
		records := []record.Record{{"created_at": local.UTC()}}
		trend := MonthlyTrend(records, "created_at", 2, time.Date(2024, 6, 10, 0, 0, 0, 0, loc))
		So(trend[1], ShouldResemble, MonthBucket{Month: "2024-06", Count: 1})
	})

	Convey("窗口小于等于 0", t, func() {
		So(MonthlyTrend([]record.Record{at(2024, 6, 1)}, "created_at", 0, now), ShouldResemble, []MonthBucket{})
	})

	Convey("InMonth", t, func() {
		So(InMonth(at(2024, 6, 1), "created_at", now), ShouldBeTrue)
		So(InMonth(at(2024, 5, 31), "created_at", now), ShouldBeFalse)
		So(InMonth(record.Record{}, "created_at", now), ShouldBeFalse)
	})
}
