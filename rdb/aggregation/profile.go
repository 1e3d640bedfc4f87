package aggregation

import (
	"github.com/hatlonely/harvest/rdb/record"
)

// ContributorProfile 单个作者的投稿统计
type ContributorProfile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Location     string   `json:"location"`
	Total        int      `json:"total"`
	Approved     int      `json:"approved"`
	Pending      int      `json:"pending"`
	ApprovalRate float64  `json:"approvalRate"`
	Specialties  []string `json:"specialties"`
}

// BuildContributorProfiles 按 created_by 分组统计每个作者，顺序为作者首次出现的顺序
// 没有作者的投稿不生成档案
func BuildContributorProfiles(contributions []record.Record, users []record.Record) []ContributorProfile {
	index := NewIndex(users, "id")
	groups := GroupBy(contributions, ByField("created_by"))

	profiles := make([]ContributorProfile, 0, groups.Len())
	for _, key := range groups.Keys() {
		if key == UnknownKey {
			continue
		}
		rows := groups.Get(key)
		p := ContributorProfile{
			ID:          key,
			Name:        ResolveName(index, key, "name", Anonymous),
			Location:    ResolveName(index, key, "location", NotSpecified),
			Total:       len(rows),
			Specialties: []string{},
		}
		if u, ok := index.Lookup(key); ok {
			p.Email = u.String("email")
		}
		for _, mealType := range Distinct(rows, "meal_type") {
			if mealType != "" {
				p.Specialties = append(p.Specialties, mealType)
			}
		}
		for _, r := range rows {
			switch r.String("status") {
			case record.StatusApproved:
				p.Approved++
			case record.StatusPending:
				p.Pending++
			}
		}
		p.ApprovalRate = Round(Ratio(float64(p.Approved)*100, float64(p.Total)), 1)
		profiles = append(profiles, p)
	}
	return profiles
}
