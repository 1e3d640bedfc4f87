package aggregation

import (
	"strings"

	"github.com/hatlonely/harvest/rdb/record"
)

type NameValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type RatingAverage struct {
	Name    string  `json:"name"`
	Average float64 `json:"average"`
}

type FeedbackSummary struct {
	Sentiment []NameValue     `json:"sentiment"`
	Ratings   []RatingAverage `json:"ratings"`
	Total     int             `json:"total"`
}

// RatingField 评分字段和展示名
type RatingField struct {
	Field string
	Name  string
}

var FeedbackRatingFields = []RatingField{
	{Field: "e_market_rating", Name: "E-Market"},
	{Field: "recipe_rating", Name: "Recipes"},
	{Field: "chatbot_rating", Name: "Chatbot"},
	{Field: "contribution_rating", Name: "Contribution"},
	{Field: "overall_rating", Name: "Overall"},
}

var sentiments = []struct {
	label string
	name  string
}{
	{record.SentimentPositive, "Positive"},
	{record.SentimentNeutral, "Neutral"},
	{record.SentimentNegative, "Negative"},
}

// SummarizeFeedback 情感分布固定三项并补 0，未知标签忽略；评分只对非空值求平均，保留两位小数
func SummarizeFeedback(feedback []record.Record) FeedbackSummary {
	counts := map[string]int{}
	for _, r := range feedback {
		counts[strings.ToLower(strings.TrimSpace(r.String("sentiment_label")))]++
	}

	summary := FeedbackSummary{
		Sentiment: make([]NameValue, 0, len(sentiments)),
		Ratings:   make([]RatingAverage, 0, len(FeedbackRatingFields)),
		Total:     len(feedback),
	}
	for _, s := range sentiments {
		summary.Sentiment = append(summary.Sentiment, NameValue{Name: s.name, Value: counts[s.label]})
	}
	for _, rf := range FeedbackRatingFields {
		var sum float64
		var n int
		for _, r := range feedback {
			if v, ok := r.Float(rf.Field); ok {
				sum += v
				n++
			}
		}
		summary.Ratings = append(summary.Ratings, RatingAverage{Name: rf.Name, Average: Round(Average(sum, n), 2)})
	}
	return summary
}
