package query

import "fmt"

// ExistsQuery 字段存在且不为空
type ExistsQuery struct {
	Field string `json:"field"`
}

func Exists(field string) *ExistsQuery {
	return &ExistsQuery{Field: field}
}

func (q *ExistsQuery) Type() QueryType {
	return QueryTypeExists
}

func (q *ExistsQuery) ToES() map[string]any {
	return map[string]any{
		"exists": map[string]any{"field": q.Field},
	}
}

func (q *ExistsQuery) ToSQL() (string, []any, error) {
	if err := CheckField(q.Field); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s IS NOT NULL", q.Field), nil, nil
}

func (q *ExistsQuery) ToMongo() (map[string]any, error) {
	return map[string]any{
		q.Field: map[string]any{"$exists": true, "$ne": nil},
	}, nil
}

func (q *ExistsQuery) Match(fields map[string]any) bool {
	v, ok := lookup(fields, q.Field)
	return ok && v != nil
}
