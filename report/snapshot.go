package report

import (
	"time"

	"github.com/hatlonely/harvest/rdb/aggregation"
)

// Snapshot 一轮刷新的完整结果，发布之后不再修改
// 未请求或者数据缺失的部分保持空切片，通过 Sections 区分
type Snapshot struct {
	Generation  int64     `json:"generation"`
	GeneratedAt time.Time `json:"generatedAt"`
	Scope       string    `json:"scope"`

	Stats                Stats                            `json:"stats"`
	Trend                []aggregation.MonthBucket        `json:"trend"`
	StatusDistribution   []aggregation.NameValue          `json:"statusDistribution"`
	RegionalDistribution []RegionCount                    `json:"regionalDistribution"`
	TopContributors      []TopContributor                 `json:"topContributors"`
	RecentActivity       []Activity                       `json:"recentActivity"`
	Orders               []aggregation.OrderView          `json:"orders"`
	Feedback             aggregation.FeedbackSummary      `json:"feedback"`
	Farmers              []aggregation.FarmerSummary      `json:"farmers"`
	Contributors         []aggregation.ContributorProfile `json:"contributors"`

	Sections map[string]SectionStatus `json:"sections"`
}

type Stats struct {
	TotalSubmissions   int     `json:"totalSubmissions"`
	PendingReviews     int     `json:"pendingReviews"`
	ApprovedThisMonth  int     `json:"approvedThisMonth"`
	ActiveContributors int     `json:"activeContributors"`
	ApprovalRate       float64 `json:"approvalRate"`
}

type RegionCount struct {
	Region string `json:"region"`
	Count  int    `json:"count"`
}

type TopContributor struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Submissions int     `json:"submissions"`
	Approved    int     `json:"approved"`
	Rating      float64 `json:"rating"`
	Rank        int     `json:"rank"`
}

type Activity struct {
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
	Type        string `json:"type"`
}

// SectionStatus Missing 为拉取失败的实体，Error 为对应的错误信息
type SectionStatus struct {
	Available bool     `json:"available"`
	Missing   []string `json:"missing"`
	Error     string   `json:"error"`
}

// Available 部分是否可用，未请求的部分返回 false
func (s *Snapshot) Available(section string) bool {
	return s.Sections[section].Available
}

func newSnapshot(generation int64, scope string, now time.Time) *Snapshot {
	return &Snapshot{
		Generation:           generation,
		GeneratedAt:          now,
		Scope:                scope,
		Trend:                []aggregation.MonthBucket{},
		StatusDistribution:   []aggregation.NameValue{},
		RegionalDistribution: []RegionCount{},
		TopContributors:      []TopContributor{},
		RecentActivity:       []Activity{},
		Orders:               []aggregation.OrderView{},
		Feedback: aggregation.FeedbackSummary{
			Sentiment: []aggregation.NameValue{},
			Ratings:   []aggregation.RatingAverage{},
		},
		Farmers:      []aggregation.FarmerSummary{},
		Contributors: []aggregation.ContributorProfile{},
		Sections:     map[string]SectionStatus{},
	}
}
