package schema

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"sort"

	"katydid-common-crud/pkg/validator/core"
)

// 默认值常量
const (
	// DefaultCodePattern 结构化编码格式，如 ABC-01/123
	DefaultCodePattern = `^[A-Z]{2,5}-\d{2}/\d{1,6}$`
	// DefaultCode 编码缺省值
	DefaultCode = "unset"

	defaultUUIDArrayMax = 100
	defaultLimit        = 10
	defaultLimitMax     = 100
	codeMinLen          = 5
	codeMaxLen          = 20

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ============================================================================
// 基础构造函数
// ============================================================================

// NewLeaf 构建叶子节点并校验约束组合
func NewLeaf(kind ScalarKind, c LeafConstraints) *Leaf {
	if c.Min != nil && c.Max != nil {
		core.Assert(*c.Min <= *c.Max, "NewLeaf", "min (%v) cannot be greater than max (%v)", *c.Min, *c.Max)
	}
	if c.Split != nil {
		core.Assert(kind == KindString, "NewLeaf", "split requires a string leaf, got %s", kind)
		core.Assert(c.Split.Delimiter != "", "NewLeaf", "split delimiter cannot be empty")
	}
	if c.UUIDVersion != 0 {
		core.Assert(kind == KindString, "NewLeaf", "uuid version requires a string leaf, got %s", kind)
		core.Assert(c.UUIDVersion >= 1 && c.UUIDVersion <= 5, "NewLeaf", "unsupported uuid version %d", c.UUIDVersion)
	}
	if c.Integer {
		core.Assert(kind == KindNumber, "NewLeaf", "integer requires a number leaf, got %s", kind)
	}

	// 复制指针与切片，保证节点不可变
	if c.Min != nil {
		c.Min = floatPtr(*c.Min)
	}
	if c.Max != nil {
		c.Max = floatPtr(*c.Max)
	}
	c.Enum = slices.Clone(c.Enum)
	c.Whitelist = slices.Clone(c.Whitelist)
	if c.Split != nil {
		split := *c.Split
		c.Split = &split
	}
	return &Leaf{Kind: kind, Constraints: c}
}

// NewObject 构建对象节点
func NewObject(fields Fields, policy ObjectPolicy) *Object {
	core.Assert(policy.MaxKeys >= 0, "NewObject", "max keys cannot be negative")

	copied := make(map[string]Node, len(fields))
	keys := make([]string, 0, len(fields))
	for name, node := range fields {
		core.Assert(name != "", "NewObject", "field name cannot be empty")
		core.Assert(node != nil, "NewObject", "field '%s' has a nil schema", name)
		copied[name] = node
		keys = append(keys, name)
	}
	sort.Strings(keys)

	return &Object{Fields: copied, Policy: policy, keys: keys}
}

// NewArray 构建数组节点
func NewArray(item Node, c ArrayConstraints) *Array {
	core.Assert(item != nil, "NewArray", "item schema cannot be nil")
	core.Assert(c.MinLen >= 0 && c.MaxLen >= 0, "NewArray", "length bounds cannot be negative")
	if c.MaxLen > 0 {
		core.Assert(c.MinLen <= c.MaxLen, "NewArray", "min length (%d) cannot be greater than max length (%d)", c.MinLen, c.MaxLen)
	}
	if c.Single {
		_, nested := item.(*Array)
		core.Assert(!nested, "NewArray", "single cannot wrap into a nested array")
	}
	return &Array{Item: item, Constraints: c}
}

// NewAlternative 构建二选一节点
// 两个分支的顶层形状必须不相交，否则 Primary 永远胜出，属于构建错误
func NewAlternative(primary, fallback Node) *Alternative {
	core.Assert(primary != nil && fallback != nil, "NewAlternative", "branches cannot be nil")
	core.Assert(!primary.Shapes().Overlaps(fallback.Shapes()), "NewAlternative",
		"ambiguous branches: primary accepts %s, fallback accepts %s", primary.Shapes(), fallback.Shapes())
	return &Alternative{Primary: primary, Fallback: fallback}
}

// mustCompile 编译正则，失败时断言
func mustCompile(builder, pattern string) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	core.Assert(err == nil, builder, "invalid pattern %q: %v", pattern, err)
	return re
}

func floatPtr(v float64) *float64 { return &v }

func lengthBounds(builder string, minLen, maxLen int) (lo, hi *float64) {
	core.Assert(minLen >= 0 && maxLen >= 0, builder, "length bounds cannot be negative")
	if minLen > 0 {
		lo = floatPtr(float64(minLen))
	}
	if maxLen > 0 {
		core.Assert(minLen <= maxLen, builder, "min (%d) cannot be greater than max (%d)", minLen, maxLen)
		hi = floatPtr(float64(maxLen))
	}
	return lo, hi
}

// ============================================================================
// 标量构建函数
// ============================================================================

// UUID 构建 UUID 字符串（默认 v4）
func UUID(opts UUIDOptions) *Leaf {
	version := opts.Version
	if version == 0 {
		version = 4
	}
	return NewLeaf(KindString, LeafConstraints{
		Optional:    opts.Optional,
		Nullable:    opts.Nullable,
		Deny:        opts.Deny,
		UUIDVersion: version,
	})
}

// UUIDArray 构建 UUID 数组，默认不允许空数组，最多 100 个
func UUIDArray(item UUIDOptions, opts ArrayOptions) *Array {
	if opts.MaxLen == 0 {
		opts.MaxLen = defaultUUIDArrayMax
	}
	item.Optional = false
	return ArrayOf(UUID(item), opts)
}

// ArrayOf 构建任意元素的数组
func ArrayOf(item Node, opts ArrayOptions) *Array {
	return NewArray(item, ArrayConstraints{
		MinLen:       opts.MinLen,
		MaxLen:       opts.MaxLen,
		EmptyAllowed: opts.EmptyAllowed,
		Optional:     opts.Optional,
		Nullable:     opts.Nullable,
		Single:       opts.Single,
	})
}

// ObjectOf 构建嵌套对象
func ObjectOf(fields Fields, opts ObjectOptions) *Object {
	return NewObject(fields, objectPolicy(opts))
}

// EnumOf 构建枚举字符串
func EnumOf(values []string, opts EnumOptions) *Leaf {
	core.Assert(len(values) > 0, "EnumOf", "enum values cannot be empty")
	c := LeafConstraints{
		Optional: opts.Optional,
		Nullable: opts.Nullable,
		Enum:     values,
	}
	if opts.Default != nil {
		core.Assert(slices.Contains(values, *opts.Default), "EnumOf", "default %q is not an enum value", *opts.Default)
		c.Default, c.HasDefault = *opts.Default, true
	}
	if opts.Split {
		c.Split = &SplitSpec{Delimiter: ",", Trim: true}
	}
	return NewLeaf(KindString, c)
}

// Code 构建结构化编码：长度 5-20，去空白，缺省 "unset"
func Code(opts CodeOptions) *Leaf {
	pattern := opts.Pattern
	if pattern == "" {
		pattern = DefaultCodePattern
	}
	c := LeafConstraints{
		Optional: opts.Optional,
		Nullable: opts.Nullable,
		Trim:     true,
		Min:      floatPtr(codeMinLen),
		Max:      floatPtr(codeMaxLen),
		Pattern:  mustCompile("Code", pattern),
	}
	if !opts.NoDefault {
		c.Default, c.HasDefault = DefaultCode, true
		if opts.Default != nil {
			c.Default = *opts.Default
		}
	}
	return NewLeaf(KindString, c)
}

// Text 构建有长度与格式约束的文本
func Text(opts TextOptions) *Leaf {
	lo, hi := lengthBounds("Text", opts.Min, opts.Max)
	c := LeafConstraints{
		Optional:     opts.Optional,
		Nullable:     opts.Nullable,
		EmptyAllowed: opts.EmptyAllowed,
		Trim:         opts.Trim,
		Min:          lo,
		Max:          hi,
		Pattern:      mustCompile("Text", opts.Pattern),
	}
	if opts.Default != nil {
		c.Default, c.HasDefault = *opts.Default, true
	}
	return NewLeaf(KindString, c)
}

// Email 构建邮箱地址
func Email(opts TextOptions) *Leaf {
	leaf := Text(opts)
	c := leaf.Constraints
	c.Format = "email"
	return NewLeaf(KindString, c)
}

// Number 构建数字，默认接受数字字符串
func Number(opts NumberOptions) *Leaf {
	c := LeafConstraints{
		Optional: opts.Optional,
		Nullable: opts.Nullable,
		Integer:  opts.Integer,
		Min:      opts.Min,
		Max:      opts.Max,
		Coerce:   !opts.NoCoerce,
	}
	if opts.Default != nil {
		d := *opts.Default
		core.Assert(!math.IsNaN(d) && !math.IsInf(d, 0), "Number", "default must be finite")
		if opts.Integer {
			core.Assert(d == math.Trunc(d), "Number", "default %v is not an integer", d)
			c.Default = int64(d)
		} else {
			c.Default = d
		}
		c.HasDefault = true
	}
	return NewLeaf(KindNumber, c)
}

// Integer 构建整数
func Integer(opts NumberOptions) *Leaf {
	opts.Integer = true
	return Number(opts)
}

// Date 构建日期（接受 RFC3339 或 2006-01-02 字符串）
func Date(opts DateOptions) *Leaf {
	c := LeafConstraints{
		Optional: opts.Optional,
		Nullable: opts.Nullable,
		Coerce:   true,
	}
	if opts.Min != nil {
		c.Min = floatPtr(float64(opts.Min.UnixMilli()))
	}
	if opts.Max != nil {
		c.Max = floatPtr(float64(opts.Max.UnixMilli()))
	}
	return NewLeaf(KindDate, c)
}

// Boolean 构建布尔值，默认接受 "true"/"false"
func Boolean(opts BooleanOptions) *Leaf {
	c := LeafConstraints{
		Optional: opts.Optional,
		Nullable: opts.Nullable,
		Coerce:   !opts.NoCoerce,
	}
	if opts.Default != nil {
		c.Default, c.HasDefault = *opts.Default, true
	}
	return NewLeaf(KindBoolean, c)
}

// Forbidden 构建禁止出现的字段：无论值为何，只要出现就报 ForbiddenField
func Forbidden() *Leaf {
	return NewLeaf(KindString, LeafConstraints{Optional: true, Nullable: true, Deny: true})
}

// ============================================================================
// 分页与投影
// ============================================================================

// Offset 构建分页偏移：整数，>= 0，缺省 0
func Offset(opts PageOptions) *Leaf {
	return page("Offset", 0, nil, opts)
}

// Limit 构建分页大小：整数，0-100，缺省 10
func Limit(opts PageOptions) *Leaf {
	upper := int64(defaultLimitMax)
	return page("Limit", defaultLimit, &upper, opts)
}

func page(builder string, def int64, upper *int64, opts PageOptions) *Leaf {
	if opts.Default != nil {
		def = *opts.Default
	}
	if opts.Max != nil {
		upper = opts.Max
	}
	core.Assert(def >= 0, builder, "default (%d) cannot be negative", def)
	c := LeafConstraints{
		Optional:   !opts.Required,
		Integer:    true,
		Coerce:     true,
		Min:        floatPtr(0),
		Default:    def,
		HasDefault: true,
	}
	if upper != nil {
		core.Assert(def <= *upper, builder, "default (%d) cannot be greater than max (%d)", def, *upper)
		c.Max = floatPtr(float64(*upper))
	}
	return NewLeaf(KindNumber, c)
}

// Attributes 构建字段投影：接受 "a,b,c" 或 ["a","b","c"]，每一项必须在 columns 中
func Attributes(columns []string, opts ListOptions) *Alternative {
	return projection("Attributes", columns, opts)
}

// Include 构建关联加载列表，语义同 Attributes
func Include(associations []string, opts ListOptions) *Alternative {
	return projection("Include", associations, opts)
}

func projection(builder string, allowed []string, opts ListOptions) *Alternative {
	core.Assert(len(allowed) > 0, builder, "allowed list cannot be empty")
	primary := NewLeaf(KindString, LeafConstraints{
		Optional:  !opts.Required,
		Split:     &SplitSpec{Delimiter: ",", Trim: true},
		Whitelist: allowed,
	})
	fallback := NewArray(
		NewLeaf(KindString, LeafConstraints{Whitelist: allowed, Trim: true}),
		ArrayConstraints{Optional: !opts.Required},
	)
	return NewAlternative(primary, fallback)
}

// OrderBy 构建排序方向：asc/desc，缺省 asc
func OrderBy(opts OrderByOptions) *Leaf {
	def := opts.Default
	if def == "" {
		def = OrderAsc
	}
	return EnumOf([]string{OrderAsc, OrderDesc}, EnumOptions{
		Optional: !opts.Required,
		Default:  &def,
	})
}

// SortBy 构建排序字段：必须是 columns 之一
func SortBy(columns []string, opts ListOptions) *Leaf {
	core.Assert(len(columns) > 0, "SortBy", "columns cannot be empty")
	return NewLeaf(KindString, LeafConstraints{
		Optional:  !opts.Required,
		Whitelist: columns,
	})
}

// ============================================================================
// 请求分段
// ============================================================================

// Query 构建查询字符串 schema
func Query(fields Fields, opts ObjectOptions) *Object {
	return NewObject(fields, objectPolicy(opts))
}

// Body 构建请求体 schema
func Body(fields Fields, opts ObjectOptions) *Object {
	return NewObject(fields, objectPolicy(opts))
}

// Params 构建路径参数 schema
func Params(fields Fields, opts ObjectOptions) *Object {
	return NewObject(fields, objectPolicy(opts))
}

func objectPolicy(opts ObjectOptions) ObjectPolicy {
	policy := ObjectPolicy{
		UnknownKeys:  Reject,
		MaxKeys:      opts.Max,
		EmptyAllowed: opts.Empty,
		Optional:     opts.Optional,
		Nullable:     opts.Nullable,
	}
	if opts.AllowUnknown {
		policy.UnknownKeys = Allow
	}
	return policy
}

// Describe 返回节点的简短描述，用于错误消息与调试
func Describe(node Node) string {
	switch n := node.(type) {
	case *Leaf:
		return n.Kind.String()
	case *Object:
		return fmt.Sprintf("object(%d fields)", len(n.Fields))
	case *Array:
		return "array of " + Describe(n.Item)
	case *Alternative:
		return Describe(n.Primary) + " or " + Describe(n.Fallback)
	default:
		return "unknown"
	}
}
