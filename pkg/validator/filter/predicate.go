// Package filter 把校验通过的过滤字段规范化为与存储无关的谓词描述。
//
// 过滤字段要么是普通值（→ Eq），要么是只含一个操作符键的过滤对象，
// 如 {like: "%foo%"}、{gt: 5}、{between: [1, 10]}。
// 谓词只描述"要比较什么"，翻译成具体查询语句是调用方的事。
package filter

import (
	"encoding/json"
)

// Predicate 谓词描述
//
// 封闭的联合类型：Eq、Like、StartsWith、EndsWith、Substring、Regexp、Compare、Between。
type Predicate interface {
	// Kind 谓词类别名，同时作为 JSON 中的 "op"
	Kind() string
	isPredicate()
}

// CompareOp 比较操作符
type CompareOp string

const (
	Gt  CompareOp = "gt"
	Gte CompareOp = "gte"
	Lt  CompareOp = "lt"
	Lte CompareOp = "lte"
)

// Eq 等值
type Eq struct {
	Value any
}

// Like SQL LIKE 风格的模式匹配
type Like struct {
	Pattern         string
	CaseInsensitive bool
	Negated         bool
}

// StartsWith 前缀匹配
type StartsWith struct {
	Value string
}

// EndsWith 后缀匹配
type EndsWith struct {
	Value string
}

// Substring 子串匹配
type Substring struct {
	Value string
}

// Regexp 正则匹配
type Regexp struct {
	Pattern         string
	CaseInsensitive bool
	Negated         bool
}

// Compare 单边比较
type Compare struct {
	Op    CompareOp
	Value any
}

// Between 闭区间，Low <= High
type Between struct {
	Low  any
	High any
}

func (Eq) isPredicate()         {}
func (Like) isPredicate()       {}
func (StartsWith) isPredicate() {}
func (EndsWith) isPredicate()   {}
func (Substring) isPredicate()  {}
func (Regexp) isPredicate()     {}
func (Compare) isPredicate()    {}
func (Between) isPredicate()    {}

func (Eq) Kind() string         { return "eq" }
func (Like) Kind() string       { return "like" }
func (StartsWith) Kind() string { return "startsWith" }
func (EndsWith) Kind() string   { return "endsWith" }
func (Substring) Kind() string  { return "substring" }
func (Regexp) Kind() string     { return "regexp" }
func (c Compare) Kind() string  { return string(c.Op) }
func (Between) Kind() string    { return "between" }

// ============================================================================
// JSON
// ============================================================================

// MarshalJSON {"op":"eq","value":...}
func (p Eq) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"op": p.Kind(), "value": p.Value})
}

// MarshalJSON {"op":"like","pattern":...,"caseInsensitive":...,"negated":...}
func (p Like) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"op":              p.Kind(),
		"pattern":         p.Pattern,
		"caseInsensitive": p.CaseInsensitive,
		"negated":         p.Negated,
	})
}

// MarshalJSON {"op":"startsWith","value":...}
func (p StartsWith) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"op": p.Kind(), "value": p.Value})
}

// MarshalJSON {"op":"endsWith","value":...}
func (p EndsWith) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"op": p.Kind(), "value": p.Value})
}

// MarshalJSON {"op":"substring","value":...}
func (p Substring) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"op": p.Kind(), "value": p.Value})
}

// MarshalJSON {"op":"regexp","pattern":...,"caseInsensitive":...,"negated":...}
func (p Regexp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"op":              p.Kind(),
		"pattern":         p.Pattern,
		"caseInsensitive": p.CaseInsensitive,
		"negated":         p.Negated,
	})
}

// MarshalJSON {"op":"gt","value":...}
func (p Compare) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"op": p.Kind(), "value": p.Value})
}

// MarshalJSON {"op":"between","low":...,"high":...}
func (p Between) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"op": p.Kind(), "low": p.Low, "high": p.High})
}
