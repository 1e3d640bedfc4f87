package aggregation

import (
	"math"
	"testing"

	"github.com/hatlonely/harvest/rdb/record"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMath(t *testing.T) {
	Convey("除 0 返回 0", t, func() {
		So(Ratio(1, 0), ShouldEqual, 0)
		So(Ratio(1, 4), ShouldEqual, 0.25)
		So(Average(10, 0), ShouldEqual, 0)
		So(Average(10, 4), ShouldEqual, 2.5)
	})

	Convey("Round", t, func() {
		So(Round(3.14159, 2), ShouldEqual, 3.14)
		So(Round(2.25, 1), ShouldEqual, 2.3)
		So(Round(66.66666, 1), ShouldEqual, 66.7)
		So(Round(math.NaN(), 2), ShouldEqual, 0)
	})
}

func TestBuildContributorProfiles(t *testing.T) {
	Convey("作者档案", t, func() {
		users := []record.Record{{"id": 1, "name": "Asha", "email": "asha@example.com", "location": "Pune"}}
		contributions := []record.Record{
			{"created_by": 1, "status": "approved", "meal_type": "Dessert"},
			{"created_by": 1, "status": "pending", "meal_type": "Snack"},
			{"created_by": 1, "status": "rejected", "meal_type": "Dessert"},
			{"created_by": 2, "status": "pending", "meal_type": ""},
			{"created_by": nil, "status": "approved"},
		}

		profiles := BuildContributorProfiles(contributions, users)
		So(profiles, ShouldHaveLength, 2)
		So(profiles[0], ShouldResemble, ContributorProfile{
			ID:           "1",
			Name:         "Asha",
			Email:        "asha@example.com",
			Location:     "Pune",
			Total:        3,
			Approved:     1,
			Pending:      1,
			ApprovalRate: 33.3,
			Specialties:  []string{"Dessert", "Snack"},
		})
		So(profiles[1].Name, ShouldEqual, Anonymous)
		So(profiles[1].Location, ShouldEqual, NotSpecified)
		So(profiles[1].ApprovalRate, ShouldEqual, 0)
		So(profiles[1].Specialties, ShouldBeEmpty)
	})
}

func TestSummarizeFeedback(t *testing.T) {
	Convey("反馈汇总", t, func() {
		feedback := []record.Record{
			{"sentiment_label": "positive", "overall_rating": 5, "recipe_rating": 4},
			{"sentiment_label": "Positive", "overall_rating": 4, "recipe_rating": nil},
			{"sentiment_label": "negative", "overall_rating": 2},
			{"sentiment_label": "angry", "overall_rating": "n/a"},
			{"sentiment_label": nil},
		}

		s := SummarizeFeedback(feedback)
		So(s.Total, ShouldEqual, 5)
		So(s.Sentiment, ShouldResemble, []NameValue{
			{Name: "Positive", Value: 2},
			{Name: "Neutral", Value: 0},
			{Name: "Negative", Value: 1},
		})

		averages := map[string]float64{}
		for _, r := range s.Ratings {
			averages[r.Name] = r.Average
		}
		So(s.Ratings, ShouldHaveLength, len(FeedbackRatingFields))
		So(averages["Overall"], ShouldEqual, 3.67)
		So(averages["Recipes"], ShouldEqual, 4)
		So(averages["Chatbot"], ShouldEqual, 0)
	})

	Convey("空输入", t, func() {
		s := SummarizeFeedback(nil)
		So(s.Sentiment, ShouldHaveLength, 3)
		for _, r := range s.Ratings {
			So(r.Average, ShouldEqual, 0)
		}
	})
}

func TestSummarizeFarmers(t *testing.T) {
	Convey("农户汇总", t, func() {
		in := FarmerSummaryInput{
			Users: []record.Record{
				{"id": "u1", "name": "Kiran", "location": "Nashik"},
				{"id": "u2", "name": "Anil"},
				{"id": "u3", "name": "Zoya"},
			},
			Farmers: []record.Record{
				{"id": "F1", "user_id": "u1"},
				{"id": "F2", "user_id": "u2", "location": "Mysuru"},
				{"id": "F3", "user_id": "u3"},
				{"id": "F4", "user_id": "missing"},
			},
			Products: []record.Record{
				{"id": "p1", "farmer_id": "F1", "price": 10.0},
				{"id": "p2", "farmer_id": "F2", "price": 20.0},
				{"id": "p3", "farmer_id": "F2", "price": 5.0},
				{"id": "p4", "farmer_id": "F3", "price": 20.0},
			},
			OrderItems: []record.Record{
				{"product_id": "p1", "quantity": 4},
				{"product_id": "p2", "quantity": 1, "price": 20.0},
				{"product_id": "p3", "quantity": 4},
				{"product_id": "p4", "quantity": 2, "price": 20.0},
				{"product_id": "unknown", "quantity": 100},
			},
		}

		farmers := SummarizeFarmers(in, 0)
		So(farmers, ShouldHaveLength, 4)

		var names []string
		for _, f := range farmers {
			names = append(names, f.Name)
		}
		// 前三个农户销售额都是 40，按销量排
		So(names, ShouldResemble, []string{"Anil", "Kiran", "Zoya", UnknownFarmer})
		So(farmers[0], ShouldResemble, FarmerSummary{ID: "F2", Name: "Anil", Location: "Mysuru", Products: 2, UnitsSold: 5, Revenue: 40, Rank: 1})
		So(farmers[1].Location, ShouldEqual, "Nashik")
		So(farmers[1].Revenue, ShouldEqual, 40)
		So(farmers[3].Location, ShouldEqual, NotSpecified)
		So(farmers[3].Rank, ShouldEqual, 4)

		So(SummarizeFarmers(in, 2), ShouldHaveLength, 2)
		So(SummarizeFarmers(FarmerSummaryInput{}, 5), ShouldBeEmpty)
	})
}
