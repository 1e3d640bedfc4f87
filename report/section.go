package report

import (
	"fmt"
	"slices"
	"time"

	"github.com/hatlonely/harvest/rdb/aggregation"
	"github.com/hatlonely/harvest/rdb/record"
)

const (
	SectionStats                = "stats"
	SectionTrend                = "trend"
	SectionStatusDistribution   = "statusDistribution"
	SectionRegionalDistribution = "regionalDistribution"
	SectionTopContributors      = "topContributors"
	SectionRecentActivity       = "recentActivity"
	SectionOrders               = "orders"
	SectionFeedback             = "feedback"
	SectionFarmers              = "farmers"
	SectionContributors         = "contributors"
)

// Sections 所有部分，也是计算顺序
var Sections = []string{
	SectionStats,
	SectionTrend,
	SectionStatusDistribution,
	SectionRegionalDistribution,
	SectionTopContributors,
	SectionRecentActivity,
	SectionOrders,
	SectionFeedback,
	SectionFarmers,
	SectionContributors,
}

// dataset 一轮刷新拉取到的数据，只读
type dataset struct {
	records map[record.Entity][]record.Record
	now     time.Time
	request *Request
	options *Options
}

func (d *dataset) get(entity record.Entity) []record.Record {
	return d.records[entity]
}

type section struct {
	entities []record.Entity
	compute  func(d *dataset, s *Snapshot)
}

var sections = map[string]section{
	SectionStats: {
		entities: []record.Entity{record.EntityContributions},
		compute:  computeStats,
	},
	SectionTrend: {
		entities: []record.Entity{record.EntityContributions},
		compute: func(d *dataset, s *Snapshot) {
			s.Trend = aggregation.MonthlyTrend(d.get(record.EntityContributions), "created_at", d.options.WindowMonths, d.now)
		},
	},
	SectionStatusDistribution: {
		entities: []record.Entity{record.EntityContributions},
		compute:  computeStatusDistribution,
	},
	SectionRegionalDistribution: {
		entities: []record.Entity{record.EntityContributions, record.EntityStates},
		compute:  computeRegionalDistribution,
	},
	SectionTopContributors: {
		entities: []record.Entity{record.EntityContributions, record.EntityUsers},
		compute:  computeTopContributors,
	},
	SectionRecentActivity: {
		entities: []record.Entity{record.EntityContributions, record.EntityUsers},
		compute:  computeRecentActivity,
	},
	SectionOrders: {
		entities: []record.Entity{record.EntityOrders, record.EntityOrderItems, record.EntityProducts, record.EntityFarmers, record.EntityUsers},
		compute: func(d *dataset, s *Snapshot) {
			s.Orders = aggregation.BuildOrderView(aggregation.OrderViewInput{
				Orders:     d.get(record.EntityOrders),
				OrderItems: d.get(record.EntityOrderItems),
				Products:   d.get(record.EntityProducts),
				Farmers:    d.get(record.EntityFarmers),
				Users:      d.get(record.EntityUsers),
			}, aggregation.OrderViewOptions{FarmerID: d.request.FarmerID})
		},
	},
	SectionFeedback: {
		entities: []record.Entity{record.EntityFeedback},
		compute: func(d *dataset, s *Snapshot) {
			s.Feedback = aggregation.SummarizeFeedback(d.get(record.EntityFeedback))
		},
	},
	SectionFarmers: {
		entities: []record.Entity{record.EntityFarmers, record.EntityUsers, record.EntityProducts, record.EntityOrderItems},
		compute: func(d *dataset, s *Snapshot) {
			s.Farmers = aggregation.SummarizeFarmers(aggregation.FarmerSummaryInput{
				Farmers:    d.get(record.EntityFarmers),
				Users:      d.get(record.EntityUsers),
				Products:   d.get(record.EntityProducts),
				OrderItems: d.get(record.EntityOrderItems),
			}, 0)
		},
	},
	SectionContributors: {
		entities: []record.Entity{record.EntityContributions, record.EntityUsers},
		compute: func(d *dataset, s *Snapshot) {
			s.Contributors = aggregation.BuildContributorProfiles(d.get(record.EntityContributions), d.get(record.EntityUsers))
		},
	},
}

// requiredEntities 请求的部分需要的实体，每个实体只出现一次，顺序固定
func requiredEntities(names []string) []record.Entity {
	need := map[record.Entity]bool{}
	for _, name := range names {
		for _, e := range sections[name].entities {
			need[e] = true
		}
	}
	var entities []record.Entity
	for _, e := range record.Entities {
		if need[e] {
			entities = append(entities, e)
		}
	}
	return entities
}

func computeStats(d *dataset, s *Snapshot) {
	contributions := d.get(record.EntityContributions)
	counts := aggregation.CountMap(contributions, aggregation.ByField("status"))

	approvedThisMonth := 0
	for _, r := range contributions {
		if r.String("status") == record.StatusApproved && aggregation.InMonth(r, "created_at", d.now) {
			approvedThisMonth++
		}
	}

	s.Stats = Stats{
		TotalSubmissions:   len(contributions),
		PendingReviews:     counts[record.StatusPending],
		ApprovedThisMonth:  approvedThisMonth,
		ActiveContributors: aggregation.DistinctCount(contributions, "created_by"),
		ApprovalRate:       aggregation.Round(aggregation.Ratio(float64(counts[record.StatusApproved])*100, float64(len(contributions))), 1),
	}
}

var statusOrder = []string{
	record.StatusPending,
	record.StatusApproved,
	record.StatusRejected,
	record.StatusChangesRequested,
}

// computeStatusDistribution 已知状态按固定顺序在前，其余按首次出现顺序，计数为 0 的不输出
func computeStatusDistribution(d *dataset, s *Snapshot) {
	buckets := aggregation.CountBy(d.get(record.EntityContributions), aggregation.ByField("status"))
	for _, status := range statusOrder {
		for _, b := range buckets {
			if b.Key == status {
				s.StatusDistribution = append(s.StatusDistribution, aggregation.NameValue{Name: b.Key, Value: b.Count})
			}
		}
	}
	for _, b := range buckets {
		if !slices.Contains(statusOrder, b.Key) {
			s.StatusDistribution = append(s.StatusDistribution, aggregation.NameValue{Name: b.Key, Value: b.Count})
		}
	}
}

// computeRegionalDistribution 按州名计数，数量倒序，相同时按名字正序
func computeRegionalDistribution(d *dataset, s *Snapshot) {
	resolved := aggregation.Resolve(
		d.get(record.EntityContributions), "state_id",
		aggregation.NewIndex(d.get(record.EntityStates), "id"),
		aggregation.Attr{From: "name", To: "region", Sentinel: aggregation.Unknown},
	)

	var regions []RegionCount
	for _, b := range aggregation.CountBy(resolved, aggregation.ByField("region")) {
		regions = append(regions, RegionCount{Region: b.Key, Count: b.Count})
	}
	s.RegionalDistribution = aggregation.TopK(regions, len(regions),
		aggregation.Desc(func(r RegionCount) int { return r.Count }),
		aggregation.Asc(func(r RegionCount) string { return r.Region }),
	)
}

// computeTopContributors 按投稿数倒序，相同时按通过数倒序、名字正序
// 评分优先使用用户记录里的 rating，没有时按通过率折算成 5 分制
func computeTopContributors(d *dataset, s *Snapshot) {
	users := aggregation.NewIndex(d.get(record.EntityUsers), "id")
	groups := aggregation.GroupBy(d.get(record.EntityContributions), aggregation.ByField("created_by"))

	candidates := make([]TopContributor, 0, groups.Len())
	for _, key := range groups.Keys() {
		if key == aggregation.UnknownKey {
			continue
		}
		rows := groups.Get(key)
		c := TopContributor{
			ID:          key,
			Name:        aggregation.ResolveName(users, key, "name", aggregation.Anonymous),
			Submissions: len(rows),
		}
		for _, r := range rows {
			if r.String("status") == record.StatusApproved {
				c.Approved++
			}
		}
		c.Rating = aggregation.Round(5*aggregation.Ratio(float64(c.Approved), float64(c.Submissions)), 1)
		if u, ok := users.Lookup(key); ok {
			if rating, ok := u.Float("rating"); ok {
				c.Rating = rating
			}
		}
		candidates = append(candidates, c)
	}

	top := aggregation.TopK(candidates, d.options.TopK,
		aggregation.Desc(func(c TopContributor) int { return c.Submissions }),
		aggregation.Desc(func(c TopContributor) int { return c.Approved }),
		aggregation.Asc(func(c TopContributor) string { return c.Name }),
		aggregation.Asc(func(c TopContributor) string { return c.ID }),
	)
	s.TopContributors = aggregation.Rank(top, func(c *TopContributor, rank int) { c.Rank = rank })
}

// computeRecentActivity 最近的投稿按创建时间倒序，截断到 RecentLimit，没有创建时间的排在最后
func computeRecentActivity(d *dataset, s *Snapshot) {
	users := aggregation.NewIndex(d.get(record.EntityUsers), "id")

	type timedRecord struct {
		record.Record
		at    time.Time
		valid bool
	}
	rows := d.get(record.EntityContributions)
	contributions := make([]timedRecord, 0, len(rows))
	for _, r := range rows {
		at, ok := record.ToTime(r["created_at"])
		contributions = append(contributions, timedRecord{Record: r, at: at, valid: ok})
	}
	slices.SortStableFunc(contributions, func(a, b timedRecord) int {
		switch {
		case a.valid && !b.valid:
			return -1
		case !a.valid && b.valid:
			return 1
		case a.valid && b.valid:
			return b.at.Compare(a.at)
		}
		return 0
	})

	limit := min(d.options.RecentLimit, len(contributions))
	for _, c := range contributions[:limit] {
		r := c.Record
		author := aggregation.ResolveName(users, r["created_by"], "name", aggregation.Anonymous)
		title := r.String("name")
		if title == "" {
			title = aggregation.Unknown
		}

		a := Activity{}
		switch r.String("status") {
		case record.StatusApproved:
			a.Type = "approved"
			a.Description = fmt.Sprintf("%q by %s was approved", title, author)
		case record.StatusRejected:
			a.Type = "rejected"
			a.Description = fmt.Sprintf("%q by %s was rejected", title, author)
		case record.StatusChangesRequested:
			a.Type = "review"
			a.Description = fmt.Sprintf("Changes requested on %q by %s", title, author)
		default:
			a.Type = "submitted"
			a.Description = fmt.Sprintf("%s submitted %q", author, title)
		}
		if c.valid {
			a.Timestamp = c.at.In(d.now.Location()).Format(time.RFC3339)
		}
		s.RecentActivity = append(s.RecentActivity, a)
	}
}
