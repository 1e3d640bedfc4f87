package report

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/harvest/rdb/record"
	"github.com/hatlonely/harvest/rdb/source"
)

func TestRecentActivityOrder(t *testing.T) {
	Convey("不同时区的创建时间按时刻排序", t, func() {
		src := source.NewMemorySourceWithOptions(nil)
		_ = src.Put(record.EntityUsers, record.Record{"id": "u1", "name": "Asha"})
		_ = src.Put(record.EntityContributions,
			record.Record{"id": 1, "name": "Older", "created_by": "u1", "status": "pending", "created_at": "2024-06-10 09:00:00+05:30"},
			record.Record{"id": 2, "name": "Newer", "created_by": "u1", "status": "pending", "created_at": "2024-06-10 05:00:00+00:00"},
			record.Record{"id": 3, "name": "Undated", "created_by": "u1", "status": "pending", "created_at": "yesterday"},
			record.Record{"id": 4, "name": "Latest", "created_by": "u1", "status": "approved", "created_at": "2024-06-11T01:00:00+09:00"},
		)

		e := newEngine(src, &Options{Sections: []string{SectionRecentActivity, SectionTrend}})
		s, err := e.Refresh(context.Background(), nil)
		So(err, ShouldBeNil)

		So(len(s.RecentActivity), ShouldEqual, 4)
		So(s.RecentActivity[0], ShouldResemble, Activity{Description: `"Latest" by Asha was approved`, Timestamp: "2024-06-10T16:00:00Z", Type: "approved"})
		So(s.RecentActivity[1], ShouldResemble, Activity{Description: `Asha submitted "Newer"`, Timestamp: "2024-06-10T05:00:00Z", Type: "submitted"})
		So(s.RecentActivity[2], ShouldResemble, Activity{Description: `Asha submitted "Older"`, Timestamp: "2024-06-10T03:30:00Z", Type: "submitted"})
		So(s.RecentActivity[3], ShouldResemble, Activity{Description: `Asha submitted "Undated"`, Type: "submitted"})

		// 趋势和最近动态使用同一套时间解析
		total := 0
		for _, b := range s.Trend {
			total += b.Count
		}
		So(total, ShouldEqual, 3)
	})
}

func TestPrimaryKeys(t *testing.T) {
	Convey("按配置的主键列关联", t, func() {
		src := source.NewMemorySourceWithOptions(nil)
		_ = src.Put(record.EntityUsers,
			record.Record{"user_id": "u1", "name": "Asha"},
			record.Record{"user_id": "u2", "name": "Bilal", "rating": 4.5},
		)
		_ = src.Put(record.EntityContributions,
			record.Record{"id": 1, "name": "Appam", "created_by": "u1", "status": "approved", "created_at": day(6, 2)},
			record.Record{"id": 2, "name": "Puttu", "created_by": "u1", "status": "pending", "created_at": day(6, 3)},
			record.Record{"id": 3, "name": "Kheer", "created_by": "u2", "status": "approved", "created_at": day(6, 4)},
		)

		e := newEngine(src, &Options{
			Sections:    []string{SectionTopContributors},
			PrimaryKeys: map[string]string{"users": "user_id"},
		})
		s, err := e.Refresh(context.Background(), nil)
		So(err, ShouldBeNil)
		So(s.TopContributors, ShouldHaveLength, 2)
		So(s.TopContributors[0].Name, ShouldEqual, "Asha")
		So(s.TopContributors[1].Name, ShouldEqual, "Bilal")
		So(s.TopContributors[1].Rating, ShouldEqual, 4.5)

		Convey("不修改数据源中的记录", func() {
			rows, err := src.FetchAll(context.Background(), record.EntityUsers, nil)
			So(err, ShouldBeNil)
			_, ok := rows[0]["id"]
			So(ok, ShouldBeFalse)
		})

		Convey("未知实体", func() {
			_, err := NewEngine(src, nil, nil, &Options{PrimaryKeys: map[string]string{"customers": "customer_id"}}, nil)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("withPrimaryKey", t, func() {
		rows := []record.Record{{"order_id": "O1"}, {"id": "x"}}
		So(withPrimaryKey(rows, ""), ShouldResemble, rows)
		So(withPrimaryKey(rows, "order_id"), ShouldResemble, []record.Record{
			{"order_id": "O1", "id": "O1"},
			{"id": "x"},
		})
		So(rows[0], ShouldResemble, record.Record{"order_id": "O1"})
	})
}
