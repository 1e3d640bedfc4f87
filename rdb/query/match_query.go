package query

import (
	"fmt"
	"regexp"
	"strings"
)

// MatchQuery 包含匹配，不区分大小写
type MatchQuery struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (q *MatchQuery) Type() QueryType {
	return QueryTypeMatch
}

func (q *MatchQuery) ToES() map[string]any {
	return map[string]any{
		"match": map[string]any{q.Field: q.Value},
	}
}

func (q *MatchQuery) ToSQL() (string, []any, error) {
	if err := CheckField(q.Field); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s LIKE ?", q.Field), []any{"%" + fmt.Sprint(q.Value) + "%"}, nil
}

func (q *MatchQuery) ToMongo() (map[string]any, error) {
	return map[string]any{
		q.Field: map[string]any{"$regex": regexp.QuoteMeta(fmt.Sprint(q.Value)), "$options": "i"},
	}, nil
}

func (q *MatchQuery) Match(fields map[string]any) bool {
	v, ok := lookup(fields, q.Field)
	if !ok || v == nil {
		return false
	}
	return strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(fmt.Sprint(q.Value)))
}
