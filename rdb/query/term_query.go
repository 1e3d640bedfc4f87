package query

import "fmt"

// TermQuery 精确匹配
type TermQuery struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func Term(field string, value any) *TermQuery {
	return &TermQuery{Field: field, Value: value}
}

func (q *TermQuery) Type() QueryType {
	return QueryTypeTerm
}

func (q *TermQuery) ToES() map[string]any {
	return map[string]any{
		"term": map[string]any{q.Field: q.Value},
	}
}

func (q *TermQuery) ToSQL() (string, []any, error) {
	if err := CheckField(q.Field); err != nil {
		return "", nil, err
	}
	if q.Value == nil {
		return fmt.Sprintf("%s IS NULL", q.Field), nil, nil
	}
	return fmt.Sprintf("%s = ?", q.Field), []any{q.Value}, nil
}

func (q *TermQuery) ToMongo() (map[string]any, error) {
	return map[string]any{q.Field: q.Value}, nil
}

func (q *TermQuery) Match(fields map[string]any) bool {
	v, _ := lookup(fields, q.Field)
	if q.Value == nil {
		return v == nil
	}
	return equal(v, q.Value)
}
