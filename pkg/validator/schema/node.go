package schema

import (
	"regexp"
)

// Node 校验规则树的节点
//
// 封闭的联合类型：只有 *Leaf、*Object、*Array、*Alternative 四种实现，
// 引擎可以对其做穷尽的 type switch。节点构建后不可变，可在并发校验间共享。
type Node interface {
	// Shapes 节点顶层可接受的输入形状，用于 Alternative 的形状匹配
	Shapes() Shape
	isNode()
}

// ScalarKind 叶子节点的标量类型
type ScalarKind int

const (
	KindString ScalarKind = iota
	KindNumber
	KindBoolean
	KindDate
)

// String 返回类型名
func (k ScalarKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// UnknownKeys 对象中未声明键的处理策略
type UnknownKeys int

const (
	Reject UnknownKeys = iota // 未声明的键报 UnknownKey
	Allow                     // 未声明的键原样保留
)

// FilterKind 过滤器类别，标记由 TextFilter/DateFilter/NumberFilter 构建的 Alternative
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterText
	FilterDate
	FilterNumber
)

// ============================================================================
// Shape - 顶层形状位图
// ============================================================================

// Shape 输入值的顶层形状，位图表示，支持组合
type Shape uint8

const (
	ShapeString Shape = 1 << iota
	ShapeNumber
	ShapeBoolean
	ShapeDate
	ShapeObject
	ShapeArray
)

// Overlaps 判断两个形状集合是否有交集
func (s Shape) Overlaps(other Shape) bool {
	return s&other != 0
}

// String 返回形状描述，如 "string|object"
func (s Shape) String() string {
	names := [...]string{"string", "number", "boolean", "date", "object", "array"}
	out := ""
	for i, name := range names {
		if s&(1<<i) == 0 {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += name
	}
	if out == "" {
		return "none"
	}
	return out
}

// ============================================================================
// Leaf
// ============================================================================

// SplitSpec 逗号列表解析规则
type SplitSpec struct {
	// Delimiter 分隔符，一般为 ","
	Delimiter string
	// Trim 是否去除每一项两端空白
	Trim bool
}

// LeafConstraints 叶子节点约束
type LeafConstraints struct {
	Optional     bool // 可缺省
	Nullable     bool // 允许 null
	EmptyAllowed bool // 允许空字符串
	Deny         bool // 字段一旦出现即报 ForbiddenField

	// Default 缺省值，仅在 HasDefault 为 true 时生效（nil 也可以是合法缺省值）
	Default    any
	HasDefault bool

	// Min/Max 字符串为长度，数字为数值边界，日期为 Unix 毫秒边界（均为闭区间）
	Min *float64
	Max *float64

	Pattern     *regexp.Regexp
	Enum        []string
	Whitelist   []string
	Coerce      bool       // 字符串 → 数字/布尔/日期
	Trim        bool       // 去除字符串两端空白
	Integer     bool       // 数字必须为整数，输出 int64
	Split       *SplitSpec // 逗号列表
	UUIDVersion uint8      // 0 表示不校验
	Format      string     // go-playground/validator 标签，如 email、url
}

// Leaf 标量叶子节点
type Leaf struct {
	Kind        ScalarKind
	Constraints LeafConstraints
}

func (*Leaf) isNode() {}

// Shapes 实现 Node 接口
func (l *Leaf) Shapes() Shape {
	switch l.Kind {
	case KindString:
		return ShapeString
	case KindNumber:
		if l.Constraints.Coerce {
			return ShapeNumber | ShapeString
		}
		return ShapeNumber
	case KindBoolean:
		if l.Constraints.Coerce {
			return ShapeBoolean | ShapeString
		}
		return ShapeBoolean
	case KindDate:
		// 日期总是从字符串解析
		return ShapeDate | ShapeString
	default:
		return 0
	}
}

// ============================================================================
// Object
// ============================================================================

// ObjectPolicy 对象级策略
type ObjectPolicy struct {
	UnknownKeys  UnknownKeys
	MaxKeys      int // 0 表示不限制
	EmptyAllowed bool
	Optional     bool
	Nullable     bool
}

// Object 对象节点
type Object struct {
	Fields map[string]Node
	Policy ObjectPolicy

	// keys 排好序的字段名，保证错误顺序稳定
	keys []string
}

func (*Object) isNode() {}

// Shapes 实现 Node 接口
func (*Object) Shapes() Shape {
	return ShapeObject
}

// Keys 排好序的字段名
func (o *Object) Keys() []string {
	return o.keys
}

// ============================================================================
// Array
// ============================================================================

// ArrayConstraints 数组约束
type ArrayConstraints struct {
	MinLen       int // 0 表示不限制
	MaxLen       int // 0 表示不限制
	EmptyAllowed bool
	Optional     bool
	Nullable     bool
	// Single 允许单个标量，自动包装为单元素数组
	// 查询参数中重复的键是列表，只出现一次时是字符串
	Single bool
}

// Array 数组节点
type Array struct {
	Item        Node
	Constraints ArrayConstraints
}

func (*Array) isNode() {}

// Shapes 实现 Node 接口
func (a *Array) Shapes() Shape {
	if a.Constraints.Single {
		return ShapeArray | a.Item.Shapes()
	}
	return ShapeArray
}

// ============================================================================
// Alternative
// ============================================================================

// Alternative 二选一节点：先尝试 Primary，形状不匹配时才尝试 Fallback
type Alternative struct {
	Primary  Node
	Fallback Node
	// Filter 非 FilterNone 时，校验结果会被规范化为谓词描述
	Filter FilterKind
}

func (*Alternative) isNode() {}

// Shapes 实现 Node 接口
func (a *Alternative) Shapes() Shape {
	return a.Primary.Shapes() | a.Fallback.Shapes()
}
