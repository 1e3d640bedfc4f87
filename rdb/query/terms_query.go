package query

import (
	"fmt"
	"strings"
)

// TermsQuery 字段等于任意一个值，用于按主键批量拉取引用数据
type TermsQuery struct {
	Field  string `json:"field"`
	Values []any  `json:"values"`
}

func Terms(field string, values ...any) *TermsQuery {
	return &TermsQuery{Field: field, Values: values}
}

func (q *TermsQuery) Type() QueryType {
	return QueryTypeTerms
}

func (q *TermsQuery) ToES() map[string]any {
	return map[string]any{
		"terms": map[string]any{q.Field: q.Values},
	}
}

func (q *TermsQuery) ToSQL() (string, []any, error) {
	if err := CheckField(q.Field); err != nil {
		return "", nil, err
	}
	if len(q.Values) == 0 {
		return "1=0", nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(q.Values)), ", ")
	return fmt.Sprintf("%s IN (%s)", q.Field, placeholders), append([]any(nil), q.Values...), nil
}

func (q *TermsQuery) ToMongo() (map[string]any, error) {
	return map[string]any{
		q.Field: map[string]any{"$in": q.Values},
	}, nil
}

func (q *TermsQuery) Match(fields map[string]any) bool {
	v, _ := lookup(fields, q.Field)
	for _, want := range q.Values {
		if equal(v, want) {
			return true
		}
	}
	return false
}
