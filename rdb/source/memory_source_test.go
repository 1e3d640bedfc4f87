package source

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/harvest/cfg/storage"
	"github.com/hatlonely/harvest/rdb/query"
	"github.com/hatlonely/harvest/rdb/record"
	"github.com/hatlonely/harvest/ref"
)

func newContributions() *MemorySource {
	s := NewMemorySourceWithOptions(nil)
	_ = s.Put(record.EntityContributions,
		record.Record{"id": 1, "created_by": "u1", "status": "approved", "created_at": "2024-03-01"},
		record.Record{"id": 2, "created_by": "u1", "status": "pending", "created_at": "2024-03-05"},
		record.Record{"id": 3, "created_by": "u2", "status": "approved", "created_at": "2024-02-10"},
		record.Record{"id": 4, "created_by": nil, "status": "rejected", "created_at": nil},
	)
	return s
}

func ids(rows []record.Record) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		key, _ := r.Key("id")
		out = append(out, key)
	}
	return out
}

func TestMemorySource(t *testing.T) {
	Convey("MemorySource", t, func() {
		ctx := context.Background()
		s := newContributions()

		Convey("全部记录", func() {
			rows, err := s.FetchAll(ctx, record.EntityContributions, nil)
			So(err, ShouldBeNil)
			So(ids(rows), ShouldResemble, []string{"1", "2", "3", "4"})
		})

		Convey("空表返回空切片", func() {
			rows, err := s.FetchAll(ctx, record.EntityOrders, nil)
			So(err, ShouldBeNil)
			So(rows, ShouldNotBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("过滤", func() {
			rows, err := s.FetchAll(ctx, record.EntityContributions, query.Term("status", "approved"))
			So(err, ShouldBeNil)
			So(ids(rows), ShouldResemble, []string{"1", "3"})
		})

		Convey("排序和分页", func() {
			rows, err := s.FetchAll(ctx, record.EntityContributions, nil, WithOrderBy("created_at", true), WithLimit(2))
			So(err, ShouldBeNil)
			So(ids(rows), ShouldResemble, []string{"2", "1"})

			rows, err = s.FetchAll(ctx, record.EntityContributions, nil, WithOrderBy("created_at", false), WithOffset(1))
			So(err, ShouldBeNil)
			So(ids(rows), ShouldResemble, []string{"1", "2", "4"})

			rows, err = s.FetchAll(ctx, record.EntityContributions, nil, WithOffset(10))
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("返回的是副本", func() {
			rows, _ := s.FetchAll(ctx, record.EntityContributions, nil)
			rows[0]["status"] = "rejected"
			rows, _ = s.FetchAll(ctx, record.EntityContributions, nil)
			So(rows[0]["status"], ShouldEqual, "approved")
		})

		Convey("注入错误", func() {
			s.Fail(record.EntityContributions, errors.New("connection reset"))
			_, err := s.FetchAll(ctx, record.EntityContributions, nil)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "connection reset")

			_, err = s.FetchAll(ctx, record.EntityUsers, nil)
			So(err, ShouldBeNil)

			s.Fail(record.EntityContributions, nil)
			_, err = s.FetchAll(ctx, record.EntityContributions, nil)
			So(err, ShouldBeNil)
		})

		Convey("未知实体", func() {
			_, err := s.FetchAll(ctx, record.Entity("payments"), nil)
			So(errors.Is(err, ErrUnknownEntity), ShouldBeTrue)
			So(errors.Is(s.Put(record.Entity("payments"), record.Record{}), ErrUnknownEntity), ShouldBeTrue)
		})

		Convey("超时", func() {
			slow := NewMemorySourceWithOptions(&MemorySourceOptions{Latency: time.Second})
			ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			_, err := slow.FetchAll(ctx, record.EntityUsers, nil)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})
}

func TestNewSourceWithOptions(t *testing.T) {
	Convey("NewSourceWithOptions", t, func() {
		ctx := context.Background()

		Convey("默认是空的内存数据源", func() {
			s, err := NewSourceWithOptions(nil)
			So(err, ShouldBeNil)
			rows, err := s.FetchAll(ctx, record.EntityUsers, nil)
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("通过配置创建", func() {
			options := storage.NewMapStorage(map[string]any{
				"tables": map[string]any{"users": "app_users"},
				"data": map[string]any{
					"app_users": []any{
						map[string]any{"id": 1, "name": "Ada"},
						map[string]any{"id": 2, "name": "Linus"},
					},
				},
				"failures": map[string]any{"orders": "orders unavailable"},
			})
			s, err := NewSourceWithOptions(&ref.TypeOptions{Type: "MemorySource", Options: options})
			So(err, ShouldBeNil)

			rows, err := s.FetchAll(ctx, record.EntityUsers, query.Term("name", "Linus"))
			So(err, ShouldBeNil)
			So(ids(rows), ShouldResemble, []string{"2"})

			_, err = s.FetchAll(ctx, record.EntityOrders, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("未注册的类型", func() {
			_, err := NewSourceWithOptions(&ref.TypeOptions{Type: "CassandraSource"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestTables(t *testing.T) {
	Convey("Tables.Resolve", t, func() {
		tables := Tables{"users": "profiles"}
		name, err := tables.Resolve(record.EntityUsers)
		So(err, ShouldBeNil)
		So(name, ShouldEqual, "profiles")

		name, err = tables.Resolve(record.EntityOrderItems)
		So(err, ShouldBeNil)
		So(name, ShouldEqual, "order_items")

		_, err = Tables(nil).Resolve("")
		So(errors.Is(err, ErrUnknownEntity), ShouldBeTrue)
	})
}
