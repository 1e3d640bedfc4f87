package aggregation

import (
	"github.com/hatlonely/harvest/rdb/record"
)

type FarmerSummaryInput struct {
	Farmers    []record.Record
	Users      []record.Record
	Products   []record.Record
	OrderItems []record.Record
}

type FarmerSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	Products  int     `json:"products"`
	UnitsSold int64   `json:"unitsSold"`
	Revenue   float64 `json:"revenue"`
	Rank      int     `json:"rank"`
}

// SummarizeFarmers 按销售额倒序、销量倒序、名字正序排名，k <= 0 时返回全部
func SummarizeFarmers(in FarmerSummaryInput, k int) []FarmerSummary {
	users := NewIndex(in.Users, "id")
	products := NewIndex(in.Products, "id")
	productCounts := CountMap(in.Products, ByField("farmer_id"))

	units := map[string]int64{}
	revenue := map[string]float64{}
	for _, it := range in.OrderItems {
		p, ok := products.Lookup(it["product_id"])
		if !ok {
			continue
		}
		fid, ok := p.Key("farmer_id")
		if !ok {
			continue
		}
		quantity, _ := it.Int("quantity")
		price, ok := it.Float("price")
		if !ok {
			price, _ = p.Float("price")
		}
		units[fid] += quantity
		revenue[fid] += float64(quantity) * price
	}

	summaries := make([]FarmerSummary, 0, len(in.Farmers))
	seen := map[string]struct{}{}
	for _, f := range in.Farmers {
		id, ok := f.Key("id")
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		location := f.String("location")
		if location == "" {
			location = ResolveName(users, f["user_id"], "location", NotSpecified)
		}
		summaries = append(summaries, FarmerSummary{
			ID:        id,
			Name:      ResolveName(users, f["user_id"], "name", UnknownFarmer),
			Location:  location,
			Products:  productCounts[id],
			UnitsSold: units[id],
			Revenue:   Round(revenue[id], 2),
		})
	}

	if k <= 0 {
		k = len(summaries)
	}
	top := TopK(summaries, k,
		Desc(func(s FarmerSummary) float64 { return s.Revenue }),
		Desc(func(s FarmerSummary) int64 { return s.UnitsSold }),
		Asc(func(s FarmerSummary) string { return s.Name }),
	)
	return Rank(top, func(s *FarmerSummary, rank int) { s.Rank = rank })
}
