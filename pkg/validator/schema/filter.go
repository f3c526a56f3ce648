package schema

// 过滤对象的操作符键
const (
	OpLike       = "like"
	OpNotLike    = "notLike"
	OpILike      = "iLike"
	OpNotILike   = "notILike"
	OpStartsWith = "startsWith"
	OpEndsWith   = "endsWith"
	OpSubstring  = "substring"
	OpRegexp     = "regexp"
	OpNotRegexp  = "notRegexp"
	OpIRegexp    = "iRegexp"
	OpNotIRegexp = "notIRegexp"

	OpGt      = "gt"
	OpGte     = "gte"
	OpLt      = "lt"
	OpLte     = "lte"
	OpBetween = "between"
)

// TextOperators 文本过滤可用的操作符
var TextOperators = []string{
	OpLike, OpNotLike, OpILike, OpNotILike,
	OpStartsWith, OpEndsWith, OpSubstring,
	OpRegexp, OpNotRegexp, OpIRegexp, OpNotIRegexp,
}

// RangeOperators 日期/数字过滤可用的操作符
var RangeOperators = []string{OpGt, OpGte, OpLt, OpLte, OpBetween}

// filterObjectPolicy 过滤对象的策略：拒绝未知键，且只能有一个操作符
func filterObjectPolicy(optional, nullable bool) ObjectPolicy {
	return ObjectPolicy{
		UnknownKeys: Reject,
		MaxKeys:     1,
		Optional:    optional,
		Nullable:    nullable,
	}
}

// TextFilter 构建文本过滤：普通字符串，或 {like: "%x%"} 等过滤对象
func TextFilter(opts TextOptions) *Alternative {
	operand := opts
	operand.Optional = true
	operand.Nullable = false
	operand.Default = nil

	fields := make(Fields, len(TextOperators))
	for _, op := range TextOperators {
		fields[op] = Text(operand)
	}

	alt := NewAlternative(Text(opts), NewObject(fields, filterObjectPolicy(opts.Optional, opts.Nullable)))
	alt.Filter = FilterText
	return alt
}

// DateFilter 构建日期过滤：普通日期，或 {gt, gte, lt, lte, between: [a, b]}
func DateFilter(opts DateOptions) *Alternative {
	operand := opts
	operand.Optional = true
	operand.Nullable = false

	item := opts
	item.Optional = false
	item.Nullable = false

	fields := rangeFields(Date(operand), Date(item))
	alt := NewAlternative(Date(opts), NewObject(fields, filterObjectPolicy(opts.Optional, opts.Nullable)))
	alt.Filter = FilterDate
	return alt
}

// NumberFilter 构建数字过滤：普通数字，或 {gt, gte, lt, lte, between: [a, b]}
func NumberFilter(opts NumberOptions) *Alternative {
	operand := opts
	operand.Optional = true
	operand.Nullable = false
	operand.Default = nil

	item := operand
	item.Optional = false

	fields := rangeFields(Number(operand), Number(item))
	alt := NewAlternative(Number(opts), NewObject(fields, filterObjectPolicy(opts.Optional, opts.Nullable)))
	alt.Filter = FilterNumber
	return alt
}

func rangeFields(operand, item *Leaf) Fields {
	return Fields{
		OpGt:  operand,
		OpGte: operand,
		OpLt:  operand,
		OpLte: operand,
		OpBetween: NewArray(item, ArrayConstraints{
			Optional: true,
			MinLen:   2,
			MaxLen:   2,
		}),
	}
}
