package query

import (
	"fmt"
	"regexp"
)

// QueryType 查询类型
type QueryType string

const (
	QueryTypeBool     QueryType = "bool"
	QueryTypeTerm     QueryType = "term"
	QueryTypeTerms    QueryType = "terms"
	QueryTypeMatch    QueryType = "match"
	QueryTypeRange    QueryType = "range"
	QueryTypeExists   QueryType = "exists"
	QueryTypeWildcard QueryType = "wildcard"
	QueryTypePrefix   QueryType = "prefix"
	QueryTypeRegexp   QueryType = "regexp"
)

// Query 查询节点接口
// 数据源只把查询当作过滤条件下推，关联和聚合都在进程内完成
type Query interface {
	Type() QueryType

	ToES() map[string]any
	ToSQL() (string, []any, error)
	ToMongo() (map[string]any, error)

	// Match 在内存中判断一行数据是否满足条件，供内存数据源和缓存使用
	Match(fields map[string]any) bool
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CheckField 字段名和表名会直接拼进 SQL，只允许标识符
func CheckField(field string) error {
	if !fieldPattern.MatchString(field) {
		return fmt.Errorf("invalid field name %q", field)
	}
	return nil
}
