package aggregation

import (
	"testing"

	"github.com/hatlonely/harvest/rdb/record"
	. "github.com/smartystreets/goconvey/convey"
)

func users() []record.Record {
	return []record.Record{
		{"id": int64(1), "name": "Asha", "location": "Pune", "email": "asha@example.com", "rating": 4.5},
		{"id": int64(2), "name": "Bilal", "location": nil},
		{"id": int64(1), "name": "Duplicate"},
		{"id": nil, "name": "NoKey"},
	}
}

func TestIndex(t *testing.T) {
	Convey("NewIndex", t, func() {
		idx := NewIndex(users(), "id")
		So(idx.Len(), ShouldEqual, 2)

		Convey("重复主键保留第一条", func() {
			u, ok := idx.Lookup(1)
			So(ok, ShouldBeTrue)
			So(u["name"], ShouldEqual, "Asha")
		})

		Convey("数值和字符串键可以互相关联", func() {
			_, ok := idx.Lookup("2")
			So(ok, ShouldBeTrue)
			_, ok = idx.Lookup(2.0)
			So(ok, ShouldBeTrue)
		})

		Convey("nil 和不存在的键", func() {
			_, ok := idx.Lookup(nil)
			So(ok, ShouldBeFalse)
			_, ok = idx.Lookup(99)
			So(ok, ShouldBeFalse)
			var empty *Index
			_, ok = empty.Lookup(1)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestResolve(t *testing.T) {
	Convey("Resolve", t, func() {
		idx := NewIndex(users(), "id")
		contributions := []record.Record{
			{"id": 10, "created_by": 1},
			{"id": 11, "created_by": 2},
			{"id": 12, "created_by": 404},
			{"id": 13, "created_by": nil},
		}
		attrs := []Attr{
			{From: "name", To: "author_name", Sentinel: Anonymous},
			{From: "location", To: "author_location", Sentinel: NotSpecified},
			{From: "rating", To: "author_rating", Sentinel: 0},
		}

		resolved := Resolve(contributions, "created_by", idx, attrs...)
		So(resolved, ShouldHaveLength, 4)

		So(resolved[0]["author_name"], ShouldEqual, "Asha")
		So(resolved[0]["author_location"], ShouldEqual, "Pune")
		So(resolved[0]["author_rating"], ShouldEqual, 4.5)

		Convey("属性为空时使用占位值", func() {
			So(resolved[1]["author_name"], ShouldEqual, "Bilal")
			So(resolved[1]["author_location"], ShouldEqual, NotSpecified)
			So(resolved[1]["author_rating"], ShouldEqual, 0)
		})

		Convey("外键关联不上或者为 nil 时使用占位值", func() {
			for _, r := range resolved[2:] {
				So(r["author_name"], ShouldEqual, Anonymous)
				So(r["author_location"], ShouldEqual, NotSpecified)
				So(r["author_rating"], ShouldEqual, 0)
			}
		})

		Convey("不修改输入", func() {
			So(contributions[0], ShouldNotContainKey, "author_name")
			So(resolved[0]["id"], ShouldEqual, 10)
		})
	})

	Convey("ResolveName", t, func() {
		idx := NewIndex(users(), "id")
		So(ResolveName(idx, 1, "name", Anonymous), ShouldEqual, "Asha")
		So(ResolveName(idx, 3, "name", Anonymous), ShouldEqual, Anonymous)
		So(ResolveName(idx, 2, "location", NotSpecified), ShouldEqual, NotSpecified)
		So(ResolveName(nil, 1, "name", Unknown), ShouldEqual, Unknown)
	})
}
