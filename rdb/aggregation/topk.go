package aggregation

import (
	"cmp"
	"slices"
)

// SortKey 比较两个元素，返回负数表示 a 排在 b 前面
type SortKey[T any] func(a, b T) int

// Desc 按 getter 的值从大到小
func Desc[T any, V cmp.Ordered](getter func(T) V) SortKey[T] {
	return func(a, b T) int {
		return cmp.Compare(getter(b), getter(a))
	}
}

// Asc 按 getter 的值从小到大
func Asc[T any, V cmp.Ordered](getter func(T) V) SortKey[T] {
	return func(a, b T) int {
		return cmp.Compare(getter(a), getter(b))
	}
}

// TopK 先按 primary 再依次按 tieBreaks 排序后取前 k 个，不修改输入
func TopK[T any](items []T, k int, primary SortKey[T], tieBreaks ...SortKey[T]) []T {
	if k <= 0 {
		return []T{}
	}
	sorted := append(make([]T, 0, len(items)), items...)
	slices.SortStableFunc(sorted, func(a, b T) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		for _, tb := range tieBreaks {
			if c := tb(a, b); c != 0 {
				return c
			}
		}
		return 0
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

// Rank 按顺序给每个元素设置从 1 开始的名次
func Rank[T any](items []T, set func(item *T, rank int)) []T {
	for i := range items {
		set(&items[i], i+1)
	}
	return items
}
