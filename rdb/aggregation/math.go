package aggregation

import (
	"math"
)

// Ratio 分母为 0 时返回 0
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func Average(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Round 四舍五入到 places 位小数
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
