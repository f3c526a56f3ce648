package schema

import "time"

// 各构建函数的选项结构体
// 每个构建函数只接受自己的选项结构体（显式字段，不接受任意参数包），
// 非法组合（如 min > max）在构建期断言失败。

// UUIDOptions UUID 选项
type UUIDOptions struct {
	Optional bool
	Nullable bool
	Deny     bool
	// Version UUID 版本，0 表示默认的 v4
	Version uint8
}

// ArrayOptions 数组选项
type ArrayOptions struct {
	Optional     bool
	Nullable     bool
	EmptyAllowed bool
	MinLen       int
	MaxLen       int
	Single       bool
}

// EnumOptions 枚举选项
type EnumOptions struct {
	Optional bool
	Nullable bool
	Default  *string
	// Split 为 true 时接受逗号列表，每一项都需在枚举内
	Split bool
}

// CodeOptions 结构化编码选项（如 ABC-01/123）
type CodeOptions struct {
	Optional bool
	Nullable bool
	// Default 缺省值，nil 时使用 "unset"
	Default *string
	// NoDefault 不填充缺省值（部分更新时使用）
	NoDefault bool
	// Pattern 覆盖默认的编码格式
	Pattern string
}

// TextOptions 文本选项
type TextOptions struct {
	Optional     bool
	Nullable     bool
	EmptyAllowed bool
	Trim         bool
	Min          int // 最小长度，0 表示不限制
	Max          int // 最大长度，0 表示不限制
	Pattern      string
	Default      *string
}

// NumberOptions 数字选项
type NumberOptions struct {
	Optional bool
	Nullable bool
	Integer  bool
	Min      *float64
	Max      *float64
	Default  *float64
	// NoCoerce 关闭字符串 → 数字的强制转换（默认开启）
	NoCoerce bool
}

// DateOptions 日期选项
type DateOptions struct {
	Optional bool
	Nullable bool
	Min      *time.Time
	Max      *time.Time
}

// BooleanOptions 布尔选项
type BooleanOptions struct {
	Optional bool
	Nullable bool
	Default  *bool
	NoCoerce bool
}

// PageOptions offset/limit 选项
type PageOptions struct {
	// Required 为 true 时不允许缺省
	Required bool
	// Default 覆盖默认值（offset 为 0，limit 为 10）
	Default *int64
	// Max 覆盖上限（limit 为 100）
	Max *int64
}

// ListOptions attributes/include 选项
type ListOptions struct {
	Required bool
}

// OrderByOptions 排序方向选项
type OrderByOptions struct {
	Required bool
	// Default 缺省方向，空时为 asc
	Default string
}

// ObjectOptions query/body/params 选项
type ObjectOptions struct {
	// Max 最大键数量，0 表示不限制
	Max int
	// Empty 是否允许空对象
	Empty bool
	// AllowUnknown 允许未声明的键（默认拒绝）
	AllowUnknown bool
	Optional     bool
	Nullable     bool
}

// Fields 对象字段声明
type Fields map[string]Node
