package aggregation

import (
	"testing"

	"github.com/hatlonely/harvest/rdb/record"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGroupBy(t *testing.T) {
	Convey("GroupBy", t, func() {
		records := []record.Record{
			{"status": "approved"},
			{"status": "pending"},
			{"status": "approved"},
			{"status": nil},
			{"status": ""},
			{},
		}

		g := GroupBy(records, ByField("status"))
		So(g.Keys(), ShouldResemble, []string{"approved", "pending", UnknownKey})
		So(g.Get("approved"), ShouldHaveLength, 2)
		So(g.Get(UnknownKey), ShouldHaveLength, 3)
		So(g.Size(), ShouldEqual, len(records))

		Convey("空输入", func() {
			g := GroupBy(nil, ByField("status"))
			So(g.Len(), ShouldEqual, 0)
			So(CountBy(nil, ByField("status")), ShouldResemble, []Bucket{})
		})
	})

	Convey("ByResolved", t, func() {
		keyFn := ByResolved("region", "state_id")
		k, ok := keyFn(record.Record{"region": "Kerala", "state_id": 3})
		So(ok, ShouldBeTrue)
		So(k, ShouldEqual, "Kerala")
		k, ok = keyFn(record.Record{"region": "", "state_id": 3})
		So(ok, ShouldBeTrue)
		So(k, ShouldEqual, "3")
		_, ok = keyFn(record.Record{})
		So(ok, ShouldBeFalse)
	})
}

func TestCountAndSum(t *testing.T) {
	Convey("状态分布", t, func() {
		var records []record.Record
		for status, n := range map[string]int{"approved": 5, "pending": 3, "changes_requested": 2} {
			for i := 0; i < n; i++ {
				records = append(records, record.Record{"status": status})
			}
		}

		buckets := CountBy(records, ByField("status"))
		So(buckets, ShouldHaveLength, 3)
		total := 0
		for _, b := range buckets {
			total += b.Count
		}
		So(total, ShouldEqual, 10)
		So(CountMap(records, ByField("status")), ShouldResemble, map[string]int{"approved": 5, "pending": 3, "changes_requested": 2})
	})

	Convey("SumBy", t, func() {
		items := []record.Record{
			{"order_id": 1, "quantity": 2},
			{"order_id": 1, "quantity": "3"},
			{"order_id": 2, "quantity": "n/a"},
			{"order_id": 2, "quantity": nil},
		}
		buckets := SumBy(items, ByField("order_id"), "quantity")
		So(buckets, ShouldResemble, []Bucket{
			{Key: "1", Count: 2, Sum: 5},
			{Key: "2", Count: 2, Sum: 0},
		})
	})
}

func TestDistinct(t *testing.T) {
	Convey("DistinctCount", t, func() {
		So(DistinctCount([]record.Record{{"f": 1}, {"f": 1}, {"f": nil}}, "f"), ShouldEqual, 1)
		So(DistinctCount(nil, "f"), ShouldEqual, 0)

		contributions := []record.Record{
			{"created_by": "u1"},
			{"created_by": "u1"},
			{"created_by": "u2"},
			{"created_by": nil},
		}
		So(DistinctCount(contributions, "created_by"), ShouldEqual, 2)
		So(Distinct(contributions, "created_by"), ShouldResemble, []string{"u1", "u2"})
	})

	Convey("空字符串和 GroupBy 的 unknown 分组一致", t, func() {
		contributions := []record.Record{
			{"created_by": "u1"},
			{"created_by": ""},
			{"created_by": nil},
			{},
		}
		So(DistinctCount(contributions, "created_by"), ShouldEqual, 1)
		groups := GroupBy(contributions, ByField("created_by"))
		So(groups.Keys(), ShouldResemble, []string{"u1", UnknownKey})
	})

	Convey("数值类型不同但值相同", t, func() {
		So(DistinctCount([]record.Record{{"f": 1}, {"f": int64(1)}, {"f": 1.0}, {"f": "1"}}, "f"), ShouldEqual, 1)
	})
}
