package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record 数据源返回的一行数据，外键都是普通的标量，不包含任何关联
type Record map[string]any

// Entity 实体名称，数据源通过它定位表、集合或者索引
type Entity string

const (
	EntityUsers         Entity = "users"
	EntityContributions Entity = "rec_contributions"
	EntityStates        Entity = "states"
	EntityFarmers       Entity = "farmers"
	EntityProducts      Entity = "products"
	EntityOrders        Entity = "orders"
	EntityOrderItems    Entity = "order_items"
	EntityFeedback      Entity = "website_feedback"
)

// Entities 所有实体，顺序固定
var Entities = []Entity{
	EntityUsers,
	EntityContributions,
	EntityStates,
	EntityFarmers,
	EntityProducts,
	EntityOrders,
	EntityOrderItems,
	EntityFeedback,
}

// 投稿状态
const (
	StatusPending          = "pending"
	StatusApproved         = "approved"
	StatusRejected         = "rejected"
	StatusChangesRequested = "changes_requested"
)

// 用户角色
const (
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleFarmer = "farmer"
)

// 反馈情感标签
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// KeyOf 把主键或外键规整成字符串，整数和整数值的浮点数都输出十进制整数，
// 这样 1、int64(1)、1.0 和 "1" 能关联上；nil 表示没有键
func KeyOf(v any) (string, bool) {
	switch k := v.(type) {
	case nil:
		return "", false
	case string:
		return k, true
	case []byte:
		return string(k), true
	case int:
		return strconv.FormatInt(int64(k), 10), true
	case int8:
		return strconv.FormatInt(int64(k), 10), true
	case int16:
		return strconv.FormatInt(int64(k), 10), true
	case int32:
		return strconv.FormatInt(int64(k), 10), true
	case int64:
		return strconv.FormatInt(k, 10), true
	case uint:
		return strconv.FormatUint(uint64(k), 10), true
	case uint8:
		return strconv.FormatUint(uint64(k), 10), true
	case uint16:
		return strconv.FormatUint(uint64(k), 10), true
	case uint32:
		return strconv.FormatUint(uint64(k), 10), true
	case uint64:
		return strconv.FormatUint(k, 10), true
	case float32:
		return formatFloatKey(float64(k)), true
	case float64:
		return formatFloatKey(k), true
	case fmt.Stringer:
		return k.String(), true
	}
	return fmt.Sprint(v), true
}

func formatFloatKey(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Clone 浅拷贝
func (r Record) Clone() Record {
	out := make(Record, len(r)+4)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Key 取字段的键值，字段不存在或为 nil 时返回 false
func (r Record) Key(field string) (string, bool) {
	return KeyOf(r[field])
}

// String 取字符串字段，nil 返回空串
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Float 取数值字段，字符串形式的数字也可以
func (r Record) Float(field string) (float64, bool) {
	return ToFloat(r[field])
}

func (r Record) Int(field string) (int64, bool) {
	f, ok := ToFloat(r[field])
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func (r Record) Time(field string) (time.Time, bool) {
	return ToTime(r[field])
}

func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case []byte:
		return ToFloat(string(n))
	}
	return 0, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ToTime 解析时间字段，数字按 unix 毫秒处理
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	case []byte:
		return ToTime(string(t))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		ms, _ := ToFloat(t)
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	return time.Time{}, false
}
