package query

import (
	"fmt"
	"regexp"
	"strings"
)

// PrefixQuery 前缀匹配
type PrefixQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *PrefixQuery) Type() QueryType {
	return QueryTypePrefix
}

func (q *PrefixQuery) ToES() map[string]any {
	return map[string]any{
		"prefix": map[string]any{q.Field: q.Value},
	}
}

func (q *PrefixQuery) ToSQL() (string, []any, error) {
	if err := CheckField(q.Field); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s LIKE ?", q.Field), []any{q.Value + "%"}, nil
}

func (q *PrefixQuery) ToMongo() (map[string]any, error) {
	return map[string]any{
		q.Field: map[string]any{"$regex": "^" + regexp.QuoteMeta(q.Value)},
	}, nil
}

func (q *PrefixQuery) Match(fields map[string]any) bool {
	v, ok := lookup(fields, q.Field)
	if !ok || v == nil {
		return false
	}
	return strings.HasPrefix(fmt.Sprint(v), q.Value)
}
