package query

import (
	"fmt"
	"strings"
)

// BoolQuery 布尔组合查询
// Filter 和 Must 在过滤语义下等价；只有 Should 时至少满足 MinShouldMatch 个（默认 1）
type BoolQuery struct {
	Must           []Query `json:"must,omitempty"`
	Should         []Query `json:"should,omitempty"`
	MustNot        []Query `json:"must_not,omitempty"`
	Filter         []Query `json:"filter,omitempty"`
	MinShouldMatch *int    `json:"minimum_should_match,omitempty"`
}

// And 所有条件都满足
func And(queries ...Query) *BoolQuery {
	return &BoolQuery{Filter: queries}
}

// Or 任意一个条件满足
func Or(queries ...Query) *BoolQuery {
	return &BoolQuery{Should: queries}
}

func (q *BoolQuery) Type() QueryType {
	return QueryTypeBool
}

func (q *BoolQuery) minShouldMatch() int {
	if q.MinShouldMatch != nil {
		return *q.MinShouldMatch
	}
	return 1
}

func toESList(queries []Query) []any {
	out := make([]any, len(queries))
	for i, query := range queries {
		out[i] = query.ToES()
	}
	return out
}

func (q *BoolQuery) ToES() map[string]any {
	b := map[string]any{}
	if len(q.Must) > 0 {
		b["must"] = toESList(q.Must)
	}
	if len(q.Filter) > 0 {
		b["filter"] = toESList(q.Filter)
	}
	if len(q.Should) > 0 {
		b["should"] = toESList(q.Should)
		b["minimum_should_match"] = q.minShouldMatch()
	}
	if len(q.MustNot) > 0 {
		b["must_not"] = toESList(q.MustNot)
	}
	return map[string]any{"bool": b}
}

func toSQLList(queries []Query) ([]string, []any, error) {
	var conditions []string
	var args []any
	for _, query := range queries {
		sql, queryArgs, err := query.ToSQL()
		if err != nil {
			return nil, nil, err
		}
		conditions = append(conditions, "("+sql+")")
		args = append(args, queryArgs...)
	}
	return conditions, args, nil
}

func (q *BoolQuery) ToSQL() (string, []any, error) {
	var conditions []string
	var args []any

	and, andArgs, err := toSQLList(append(append([]Query(nil), q.Must...), q.Filter...))
	if err != nil {
		return "", nil, err
	}
	conditions = append(conditions, and...)
	args = append(args, andArgs...)

	if len(q.Should) > 0 {
		should, shouldArgs, err := toSQLList(q.Should)
		if err != nil {
			return "", nil, err
		}
		if n := q.minShouldMatch(); n != 1 {
			cases := make([]string, len(should))
			for i, c := range should {
				cases[i] = fmt.Sprintf("CASE WHEN %s THEN 1 ELSE 0 END", c)
			}
			conditions = append(conditions, fmt.Sprintf("(%s) >= %d", strings.Join(cases, " + "), n))
		} else {
			conditions = append(conditions, "("+strings.Join(should, " OR ")+")")
		}
		args = append(args, shouldArgs...)
	}

	if len(q.MustNot) > 0 {
		not, notArgs, err := toSQLList(q.MustNot)
		if err != nil {
			return "", nil, err
		}
		for _, c := range not {
			conditions = append(conditions, "NOT "+c)
		}
		args = append(args, notArgs...)
	}

	if len(conditions) == 0 {
		return "1=1", nil, nil
	}
	return strings.Join(conditions, " AND "), args, nil
}

func toMongoList(queries []Query) ([]any, error) {
	out := make([]any, 0, len(queries))
	for _, query := range queries {
		m, err := query.ToMongo()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (q *BoolQuery) ToMongo() (map[string]any, error) {
	and, err := toMongoList(append(append([]Query(nil), q.Must...), q.Filter...))
	if err != nil {
		return nil, err
	}

	if len(q.Should) > 0 {
		should, err := toMongoList(q.Should)
		if err != nil {
			return nil, err
		}
		switch n := q.minShouldMatch(); {
		case n == 1:
			and = append(and, map[string]any{"$or": should})
		case n > 1:
			// 多个 should 需要同时满足时展开成组合的 $or
			and = append(and, map[string]any{"$or": shouldCombinations(should, n)})
		}
	}

	if len(q.MustNot) > 0 {
		not, err := toMongoList(q.MustNot)
		if err != nil {
			return nil, err
		}
		and = append(and, map[string]any{"$nor": not})
	}

	switch len(and) {
	case 0:
		return map[string]any{}, nil
	case 1:
		return and[0].(map[string]any), nil
	}
	return map[string]any{"$and": and}, nil
}

// shouldCombinations 生成从 conditions 中选 n 个的所有组合
func shouldCombinations(conditions []any, n int) []any {
	var out []any
	var pick func(start int, chosen []any)
	pick = func(start int, chosen []any) {
		if len(chosen) == n {
			out = append(out, map[string]any{"$and": append([]any(nil), chosen...)})
			return
		}
		for i := start; i < len(conditions); i++ {
			pick(i+1, append(chosen, conditions[i]))
		}
	}
	if n <= len(conditions) {
		pick(0, nil)
	}
	if len(out) == 0 {
		// 无法满足时返回一个永远为假的条件
		out = append(out, map[string]any{"_id": map[string]any{"$exists": false}})
	}
	return out
}

func (q *BoolQuery) Match(fields map[string]any) bool {
	for _, query := range q.Must {
		if !query.Match(fields) {
			return false
		}
	}
	for _, query := range q.Filter {
		if !query.Match(fields) {
			return false
		}
	}
	for _, query := range q.MustNot {
		if query.Match(fields) {
			return false
		}
	}
	if len(q.Should) == 0 {
		return true
	}
	matched := 0
	for _, query := range q.Should {
		if query.Match(fields) {
			matched++
		}
	}
	return matched >= q.minShouldMatch()
}
