package storage

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// OverlayEnv 用环境变量覆盖已有的配置项
// 配置路径 report.windowMonths 对应环境变量 {PREFIX}_REPORT_WINDOWMONTHS，
// 只覆盖已经存在的叶子节点，值按 yaml 标量解析
func OverlayEnv(ms *MapStorage, prefix string, lookup func(string) (string, bool)) *MapStorage {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var path []string
	if prefix != "" {
		path = []string{strings.ToUpper(prefix)}
	}
	return NewMapStorage(overlay(ms.data, path, lookup))
}

func overlay(data any, path []string, lookup func(string) (string, bool)) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = overlay(child, append(path[:len(path):len(path)], strings.ToUpper(k)), lookup)
		}
		return out
	case []any:
		return v
	}

	if len(path) == 0 {
		return data
	}
	raw, ok := lookup(strings.Join(path, "_"))
	if !ok {
		return data
	}
	var parsed any
	if err := yaml.Unmarshal([]byte(raw), &parsed); err != nil || parsed == nil {
		return raw
	}
	return parsed
}
