package query

import (
	"fmt"
	"regexp"
)

// RegexpQuery 正则匹配，SQL 使用 REGEXP 关键字，sqlite 需要注册 REGEXP 函数
type RegexpQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *RegexpQuery) Type() QueryType {
	return QueryTypeRegexp
}

func (q *RegexpQuery) ToES() map[string]any {
	return map[string]any{
		"regexp": map[string]any{q.Field: q.Value},
	}
}

func (q *RegexpQuery) ToSQL() (string, []any, error) {
	if err := CheckField(q.Field); err != nil {
		return "", nil, err
	}
	if _, err := regexp.Compile(q.Value); err != nil {
		return "", nil, fmt.Errorf("invalid regexp %q: %w", q.Value, err)
	}
	return fmt.Sprintf("%s REGEXP ?", q.Field), []any{q.Value}, nil
}

func (q *RegexpQuery) ToMongo() (map[string]any, error) {
	if _, err := regexp.Compile(q.Value); err != nil {
		return nil, fmt.Errorf("invalid regexp %q: %w", q.Value, err)
	}
	return map[string]any{
		q.Field: map[string]any{"$regex": q.Value},
	}, nil
}

// Match 与 ES 一致，正则需要匹配整个值
func (q *RegexpQuery) Match(fields map[string]any) bool {
	v, ok := lookup(fields, q.Field)
	if !ok || v == nil {
		return false
	}
	re, err := regexp.Compile("^(?:" + q.Value + ")$")
	if err != nil {
		return false
	}
	return re.MatchString(fmt.Sprint(v))
}
