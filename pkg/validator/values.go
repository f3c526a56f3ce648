package validator

import (
	"maps"
	"sort"
	"time"

	"katydid-common-crud/pkg/validator/filter"
)

// Values 已清洗分段的只读访问器
//
// 设计说明：
// - 基于 map[string]any，值的类型由校验结果决定：整数为 int64，日期为 time.Time，
//   逗号列表与数组为 []any，过滤字段为 filter.Predicate
// - 类型不匹配或键不存在时返回零值和 false
type Values map[string]any

// QueryValues query 分段的访问器
func (s *Sanitized) QueryValues() Values {
	return Values(s.Query)
}

// ParamsValues params 分段的访问器
func (s *Sanitized) ParamsValues() Values {
	return Values(s.Params)
}

// BodyValues body 分段的访问器，body 不是对象时返回空
func (s *Sanitized) BodyValues() Values {
	if m, ok := s.Body.(map[string]any); ok {
		return Values(m)
	}
	return Values{}
}

// Has 是否存在键
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// Get 原始值
func (v Values) Get(key string) (any, bool) {
	value, ok := v[key]
	return value, ok
}

// GetString 字符串值
func (v Values) GetString(key string) (string, bool) {
	s, ok := v[key].(string)
	return s, ok
}

// GetStringSlice 字符串列表（attributes、include 等）
func (v Values) GetStringSlice(key string) ([]string, bool) {
	switch val := v[key].(type) {
	case []string:
		return val, true
	case []any:
		out := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// GetInt64 整数值
func (v Values) GetInt64(key string) (int64, bool) {
	switch val := v[key].(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case float64:
		if val == float64(int64(val)) {
			return int64(val), true
		}
	}
	return 0, false
}

// GetFloat64 数字值
func (v Values) GetFloat64(key string) (float64, bool) {
	switch val := v[key].(type) {
	case float64:
		return val, true
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	}
	return 0, false
}

// GetBool 布尔值
func (v Values) GetBool(key string) (bool, bool) {
	b, ok := v[key].(bool)
	return b, ok
}

// GetTime 日期值
func (v Values) GetTime(key string) (time.Time, bool) {
	t, ok := v[key].(time.Time)
	return t, ok
}

// GetPredicate 过滤字段的谓词
func (v Values) GetPredicate(key string) (filter.Predicate, bool) {
	p, ok := v[key].(filter.Predicate)
	return p, ok
}

// Predicates 所有过滤字段，键为字段名
func (v Values) Predicates() map[string]filter.Predicate {
	out := make(map[string]filter.Predicate)
	for key, value := range v {
		if p, ok := value.(filter.Predicate); ok {
			out[key] = p
		}
	}
	return out
}

// Keys 所有键（已排序）
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone 浅拷贝
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	return maps.Clone(v)
}
