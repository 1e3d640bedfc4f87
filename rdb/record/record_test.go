package record

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestKeyOf(t *testing.T) {
	Convey("KeyOf", t, func() {
		for _, v := range []any{1, int64(1), int32(1), uint8(1), 1.0, float32(1), "1", []byte("1")} {
			key, ok := KeyOf(v)
			So(ok, ShouldBeTrue)
			So(key, ShouldEqual, "1")
		}

		key, ok := KeyOf(1.5)
		So(ok, ShouldBeTrue)
		So(key, ShouldEqual, "1.5")

		_, ok = KeyOf(nil)
		So(ok, ShouldBeFalse)

		key, ok = Record{"id": "u-1"}.Key("id")
		So(ok, ShouldBeTrue)
		So(key, ShouldEqual, "u-1")

		_, ok = Record{}.Key("id")
		So(ok, ShouldBeFalse)
	})
}

func TestAccessors(t *testing.T) {
	Convey("Record 取值", t, func() {
		r := Record{
			"name":       []byte("Ada"),
			"price":      "12.5",
			"quantity":   int64(3),
			"created_at": "2024-03-15T10:00:00Z",
			"updated_at": "2024-03-15 10:00:00",
			"paid_at":    int64(1710496800000),
			"bad":        "not a time",
		}

		So(r.String("name"), ShouldEqual, "Ada")
		So(r.String("missing"), ShouldEqual, "")

		f, ok := r.Float("price")
		So(ok, ShouldBeTrue)
		So(f, ShouldEqual, 12.5)

		n, ok := r.Int("quantity")
		So(ok, ShouldBeTrue)
		So(n, ShouldEqual, 3)

		_, ok = r.Float("name")
		So(ok, ShouldBeFalse)

		want := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
		ts, ok := r.Time("created_at")
		So(ok, ShouldBeTrue)
		So(ts.Equal(want), ShouldBeTrue)

		ts, ok = r.Time("updated_at")
		So(ok, ShouldBeTrue)
		So(ts.Equal(want), ShouldBeTrue)

		ts, ok = r.Time("paid_at")
		So(ok, ShouldBeTrue)
		So(ts.Equal(want), ShouldBeTrue)

		_, ok = r.Time("bad")
		So(ok, ShouldBeFalse)
		_, ok = r.Time("missing")
		So(ok, ShouldBeFalse)
	})

	Convey("Clone 不影响原记录", t, func() {
		r := Record{"id": 1}
		c := r.Clone()
		c["name"] = "x"
		So(r, ShouldNotContainKey, "name")
	})
}

func TestScan(t *testing.T) {
	Convey("Record.Scan", t, func() {
		Convey("数字主键转成字符串", func() {
			var c Contribution
			err := Record{
				"id":         float64(10),
				"created_by": int64(3),
				"state_id":   nil,
				"meal_type":  "Dessert",
				"status":     StatusApproved,
				"created_at": "2024-01-02",
			}.Scan(&c)
			So(err, ShouldBeNil)
			So(c.ID, ShouldEqual, "10")
			So(c.CreatedBy, ShouldEqual, "3")
			So(c.StateID, ShouldEqual, "")
			So(c.Status, ShouldEqual, StatusApproved)
			So(c.CreatedAt.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("可选字段", func() {
			var u User
			So(Record{"id": 1, "name": "Ada"}.Scan(&u), ShouldBeNil)
			So(u.Rating, ShouldBeNil)

			So(Record{"id": 1, "rating": "4.5"}.Scan(&u), ShouldBeNil)
			So(u.Rating, ShouldNotBeNil)
			So(*u.Rating, ShouldEqual, 4.5)
		})

		Convey("数值字段", func() {
			var item OrderItem
			So(Record{"order_id": 1, "product_id": "p1", "quantity": "2", "price": int64(5)}.Scan(&item), ShouldBeNil)
			So(item, ShouldResemble, OrderItem{OrderID: "1", ProductID: "p1", Quantity: 2, Price: 5})
		})

		Convey("任意类型字段", func() {
			var f Farmer
			So(Record{"id": 1, "certifications": []any{"organic"}}.Scan(&f), ShouldBeNil)
			So(f.Certifications, ShouldResemble, []any{"organic"})
		})

		Convey("错误", func() {
			var p Product
			So(Record{}.Scan(p), ShouldNotBeNil)
			So(Record{"price": "cheap"}.Scan(&p), ShouldNotBeNil)
			var o Order
			So(Record{"created_at": "yesterday"}.Scan(&o), ShouldNotBeNil)
		})
	})
}

func TestFromStruct(t *testing.T) {
	Convey("FromStruct", t, func() {
		rating := 4.0
		r := FromStruct(&User{ID: "1", Name: "Ada", Rating: &rating})
		So(r["id"], ShouldEqual, "1")
		So(r["rating"], ShouldEqual, 4.0)
		So(r["created_at"], ShouldBeNil)
		So(r, ShouldContainKey, "created_at")

		var u User
		So(r.Scan(&u), ShouldBeNil)
		So(u.Name, ShouldEqual, "Ada")
		So(*u.Rating, ShouldEqual, 4.0)

		So(FromStruct(1), ShouldBeEmpty)
	})
}

func TestToTimeNumeric(t *testing.T) {
	Convey("数字按 unix 毫秒解析", t, func() {
		for _, v := range []any{int8(100), int16(100), uint(100), uint8(100), uint16(100), float32(100), int64(100), 100.0} {
			tm, ok := ToTime(v)
			So(ok, ShouldBeTrue)
			So(tm, ShouldEqual, time.UnixMilli(100).UTC())
		}
		_, ok := ToTime(true)
		So(ok, ShouldBeFalse)
	})
}
