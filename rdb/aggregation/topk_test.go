package aggregation

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type contributor struct {
	Name        string
	Submissions int
	Approved    int
	Rank        int
}

func TestTopK(t *testing.T) {
	byName := Asc(func(c contributor) string { return c.Name })
	bySubmissions := Desc(func(c contributor) int { return c.Submissions })
	byApproved := Desc(func(c contributor) int { return c.Approved })

	Convey("TopK", t, func() {
		items := []contributor{
			{Name: "Meera", Submissions: 10},
			{Name: "Chen", Submissions: 7},
			{Name: "Arjun", Submissions: 10},
		}

		Convey("并列时名字靠前的排第一", func() {
			top := TopK(items, 3, bySubmissions, byName)
			So(top, ShouldHaveLength, 3)
			So(top[0].Name, ShouldEqual, "Arjun")
			So(top[1].Name, ShouldEqual, "Meera")
			So(top[2].Name, ShouldEqual, "Chen")
		})

		Convey("不修改输入", func() {
			TopK(items, 3, bySubmissions, byName)
			So(items[0].Name, ShouldEqual, "Meera")
		})

		Convey("长度为 min(k, n)", func() {
			So(TopK(items, 2, bySubmissions, byName), ShouldHaveLength, 2)
			So(TopK(items, 10, bySubmissions, byName), ShouldHaveLength, 3)
			So(TopK(items, 0, bySubmissions), ShouldResemble, []contributor{})
			So(TopK(items, -1, bySubmissions), ShouldNotBeNil)
			So(TopK([]contributor{}, 5, bySubmissions), ShouldBeEmpty)
		})

		Convey("多个次级排序依次生效", func() {
			items := []contributor{
				{Name: "B", Submissions: 5, Approved: 1},
				{Name: "A", Submissions: 5, Approved: 1},
				{Name: "C", Submissions: 5, Approved: 3},
			}
			top := TopK(items, 3, bySubmissions, byApproved, byName)
			So([]string{top[0].Name, top[1].Name, top[2].Name}, ShouldResemble, []string{"C", "A", "B"})
		})

		Convey("多次调用结果一致", func() {
			first := TopK(items, 3, bySubmissions, byName)
			for i := 0; i < 10; i++ {
				So(TopK(items, 3, bySubmissions, byName), ShouldResemble, first)
			}
		})

		Convey("Rank", func() {
			top := Rank(TopK(items, 2, bySubmissions, byName), func(c *contributor, rank int) { c.Rank = rank })
			So(top[0].Rank, ShouldEqual, 1)
			So(top[1].Rank, ShouldEqual, 2)
		})
	})
}
