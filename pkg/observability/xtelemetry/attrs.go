package xtelemetry

import (
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Attr 表示 span 属性。
//
// Value 仅支持标量类型；非标量值会退化为 fmt.Sprint 字符串。
type Attr struct {
	Key   string
	Value any
}

// String 构造字符串属性。
func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Int 构造整型属性。
func Int(key string, value int) Attr {
	return Attr{Key: key, Value: value}
}

// Int64 构造 int64 属性。
func Int64(key string, value int64) Attr {
	return Attr{Key: key, Value: value}
}

// Float64 构造浮点属性。
func Float64(key string, value float64) Attr {
	return Attr{Key: key, Value: value}
}

// Bool 构造布尔属性。
func Bool(key string, value bool) Attr {
	return Attr{Key: key, Value: value}
}

func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	converted := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Key == "" || attr.Value == nil {
			continue
		}
		converted = append(converted, toKeyValue(attr))
	}
	return converted
}

func toKeyValue(attr Attr) attribute.KeyValue {
	switch v := attr.Value.(type) {
	case string:
		return attribute.String(attr.Key, v)
	case bool:
		return attribute.Bool(attr.Key, v)
	case int:
		return attribute.Int(attr.Key, v)
	case int64:
		return attribute.Int64(attr.Key, v)
	case uint64:
		if v <= math.MaxInt64 {
			return attribute.Int64(attr.Key, int64(v))
		}
		return attribute.String(attr.Key, fmt.Sprint(v))
	case float64:
		return attribute.Float64(attr.Key, v)
	case float32:
		return attribute.Float64(attr.Key, float64(v))
	case time.Duration:
		return attribute.Int64(attr.Key, v.Nanoseconds())
	default:
		return attribute.String(attr.Key, fmt.Sprint(v))
	}
}
