package query

import (
	"fmt"
	"strings"
)

// RangeQuery 范围查询，未设置的边界不参与比较
type RangeQuery struct {
	Field string `json:"field"`
	Gt    any    `json:"gt,omitempty"`
	Gte   any    `json:"gte,omitempty"`
	Lt    any    `json:"lt,omitempty"`
	Lte   any    `json:"lte,omitempty"`
}

func (q *RangeQuery) Type() QueryType {
	return QueryTypeRange
}

type bound struct {
	value any
	sql   string
	mongo string
	es    string
	ok    func(c int) bool
}

func (q *RangeQuery) bounds() []bound {
	var bs []bound
	if q.Gt != nil {
		bs = append(bs, bound{q.Gt, ">", "$gt", "gt", func(c int) bool { return c > 0 }})
	}
	if q.Gte != nil {
		bs = append(bs, bound{q.Gte, ">=", "$gte", "gte", func(c int) bool { return c >= 0 }})
	}
	if q.Lt != nil {
		bs = append(bs, bound{q.Lt, "<", "$lt", "lt", func(c int) bool { return c < 0 }})
	}
	if q.Lte != nil {
		bs = append(bs, bound{q.Lte, "<=", "$lte", "lte", func(c int) bool { return c <= 0 }})
	}
	return bs
}

func (q *RangeQuery) ToES() map[string]any {
	r := map[string]any{}
	for _, b := range q.bounds() {
		r[b.es] = b.value
	}
	return map[string]any{
		"range": map[string]any{q.Field: r},
	}
}

func (q *RangeQuery) ToSQL() (string, []any, error) {
	if err := CheckField(q.Field); err != nil {
		return "", nil, err
	}

	var conditions []string
	var args []any
	for _, b := range q.bounds() {
		conditions = append(conditions, fmt.Sprintf("%s %s ?", q.Field, b.sql))
		args = append(args, b.value)
	}
	if len(conditions) == 0 {
		return "1=1", nil, nil
	}
	return strings.Join(conditions, " AND "), args, nil
}

func (q *RangeQuery) ToMongo() (map[string]any, error) {
	condition := map[string]any{}
	for _, b := range q.bounds() {
		condition[b.mongo] = b.value
	}
	return map[string]any{q.Field: condition}, nil
}

func (q *RangeQuery) Match(fields map[string]any) bool {
	v, ok := lookup(fields, q.Field)
	if !ok || v == nil {
		return false
	}
	for _, b := range q.bounds() {
		c, ok := Compare(v, b.value)
		if !ok || !b.ok(c) {
			return false
		}
	}
	return true
}
