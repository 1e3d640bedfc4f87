package query

import (
	"fmt"
	"regexp"
	"strings"
)

// WildcardQuery 通配符匹配，* 匹配任意个字符，? 匹配单个字符
type WildcardQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *WildcardQuery) Type() QueryType {
	return QueryTypeWildcard
}

func (q *WildcardQuery) ToES() map[string]any {
	return map[string]any{
		"wildcard": map[string]any{q.Field: q.Value},
	}
}

func (q *WildcardQuery) ToSQL() (string, []any, error) {
	if err := CheckField(q.Field); err != nil {
		return "", nil, err
	}
	pattern := strings.NewReplacer("*", "%", "?", "_").Replace(q.Value)
	return fmt.Sprintf("%s LIKE ?", q.Field), []any{pattern}, nil
}

func (q *WildcardQuery) pattern() string {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range q.Value {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return sb.String()
}

func (q *WildcardQuery) ToMongo() (map[string]any, error) {
	return map[string]any{
		q.Field: map[string]any{"$regex": q.pattern()},
	}, nil
}

func (q *WildcardQuery) Match(fields map[string]any) bool {
	v, ok := lookup(fields, q.Field)
	if !ok || v == nil {
		return false
	}
	return regexp.MustCompile(q.pattern()).MatchString(fmt.Sprint(v))
}
