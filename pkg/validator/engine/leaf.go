package engine

import (
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"katydid-common-crud/pkg/validator/core"
	"katydid-common-crud/pkg/validator/schema"
)

// validateLeaf 校验标量叶子节点
//
// 流程：
//  1. 缺失：非 optional 报 MissingField；optional 时补缺省值
//  2. null：nullable 放行，否则报 NullNotAllowed
//  3. 强制转换：失败报 TypeMismatch
//  4. 空值：不允许时报 EmptyNotAllowed
//  5. 约束：min/max/pattern/enum/whitelist/格式，每个违反的约束一条 OutOfRange
func (e *Engine) validateLeaf(leaf *schema.Leaf, input any, ctx *core.ValidationContext) (any, bool) {
	c := &leaf.Constraints

	if core.IsMissing(input) {
		return missingLeaf(c, ctx)
	}
	if c.Deny {
		ctx.Report(core.CodeForbiddenField, "deny", "", nil, "is not allowed")
		return nil, false
	}
	if input == nil {
		if c.Nullable {
			return nil, true
		}
		ctx.Report(core.CodeNullNotAllowed, "nullable", "", nil, "must not be null")
		return nil, false
	}

	// 缺省值本身总是合法的，保证已清洗的输出再次校验时不变
	if c.HasDefault && reflect.DeepEqual(input, c.Default) {
		return input, true
	}

	switch leaf.Kind {
	case schema.KindString:
		return e.validateString(c, input, ctx)
	case schema.KindNumber:
		return validateNumber(c, input, ctx)
	case schema.KindBoolean:
		return validateBoolean(c, input, ctx)
	case schema.KindDate:
		return validateDate(c, input, ctx)
	default:
		panic(&core.ConstructionError{Builder: "engine.validateLeaf", Reason: "unknown scalar kind " + leaf.Kind.String()})
	}
}

// missingLeaf 处理缺失的叶子
func missingLeaf(c *schema.LeafConstraints, ctx *core.ValidationContext) (any, bool) {
	if !c.Optional {
		ctx.Report(core.CodeMissingField, "required", "", nil, "is required")
		return nil, false
	}
	if c.HasDefault {
		return c.Default, true
	}
	return core.Missing, true
}

// emptyScalar 非字符串类型收到空字符串（常见于 ?limit= 这样的查询参数）
func emptyScalar(c *schema.LeafConstraints, ctx *core.ValidationContext) (any, bool) {
	if c.EmptyAllowed {
		return missingLeaf(c, ctx)
	}
	ctx.Report(core.CodeEmptyNotAllowed, "empty", "", "", "must not be empty")
	return nil, false
}

// ============================================================================
// String
// ============================================================================

func (e *Engine) validateString(c *schema.LeafConstraints, input any, ctx *core.ValidationContext) (any, bool) {
	s, ok := input.(string)
	if !ok && c.Split != nil {
		// 已拆分的列表
		s, ok = joinItems(input, c.Split.Delimiter)
	}
	if !ok {
		ctx.Report(core.CodeTypeMismatch, "type", "string", input, "must be a string")
		return nil, false
	}
	if c.Trim {
		s = strings.TrimSpace(s)
	}
	if c.Split != nil {
		return e.validateSplit(c, s, ctx)
	}
	if s == "" {
		if c.EmptyAllowed {
			return s, true
		}
		ctx.Report(core.CodeEmptyNotAllowed, "empty", "", s, "must not be empty")
		return nil, false
	}

	start := ctx.ErrorCount()
	length := float64(utf8.RuneCountInString(s))
	if c.Min != nil && length < *c.Min {
		ctx.Report(core.CodeOutOfRange, "min", formatBound(*c.Min), s,
			"length must be at least %s characters long", formatBound(*c.Min))
	}
	if c.Max != nil && length > *c.Max {
		ctx.Report(core.CodeOutOfRange, "max", formatBound(*c.Max), s,
			"length must be less than or equal to %s characters long", formatBound(*c.Max))
	}
	if c.Pattern != nil && !c.Pattern.MatchString(s) {
		ctx.Report(core.CodeOutOfRange, "pattern", c.Pattern.String(), s,
			"with value %q fails to match the required pattern: %s", s, c.Pattern.String())
	}
	e.checkMembership(c, s, ctx)
	if c.UUIDVersion != 0 {
		tag := uuidTag(c.UUIDVersion)
		if err := e.validate.Var(s, tag); err != nil {
			ctx.Report(core.CodeOutOfRange, tag, strconv.Itoa(int(c.UUIDVersion)), s,
				"must be a valid GUID (version %d)", c.UUIDVersion)
		}
	}
	if c.Format != "" {
		if err := e.validate.Var(s, c.Format); err != nil {
			ctx.Report(core.CodeOutOfRange, c.Format, "", s, "must be a valid %s", c.Format)
		}
	}

	if ctx.ErrorCount() != start {
		return nil, false
	}
	return s, true
}

// validateSplit 解析逗号列表，每一项都做 enum/whitelist 检查
func (e *Engine) validateSplit(c *schema.LeafConstraints, s string, ctx *core.ValidationContext) (any, bool) {
	parts := strings.Split(s, c.Split.Delimiter)
	items := make([]any, 0, len(parts))

	start := ctx.ErrorCount()
	for _, part := range parts {
		if c.Split.Trim {
			part = strings.TrimSpace(part)
		}
		if part == "" {
			continue
		}
		e.checkMembership(c, part, ctx)
		items = append(items, part)
	}

	if len(items) == 0 && !c.EmptyAllowed {
		ctx.Report(core.CodeEmptyNotAllowed, "empty", "", s, "must not be empty")
		return nil, false
	}
	if ctx.ErrorCount() != start {
		return nil, false
	}
	return items, true
}

// joinItems 字符串列表按分隔符拼接，含非字符串元素时失败
func joinItems(input any, delimiter string) (string, bool) {
	items, ok := asSlice(input)
	if !ok {
		return "", false
	}
	parts := make([]string, len(items))
	for i, item := range items {
		s, isString := item.(string)
		if !isString {
			return "", false
		}
		parts[i] = s
	}
	return strings.Join(parts, delimiter), true
}

// checkMembership enum 与 whitelist 检查
func (e *Engine) checkMembership(c *schema.LeafConstraints, s string, ctx *core.ValidationContext) {
	if len(c.Enum) > 0 && !slices.Contains(c.Enum, s) {
		ctx.Report(core.CodeOutOfRange, "enum", strings.Join(c.Enum, " "), s,
			"with value %q must be one of [%s]", s, strings.Join(c.Enum, ", "))
	}
	if len(c.Whitelist) > 0 && !slices.Contains(c.Whitelist, s) {
		ctx.Report(core.CodeOutOfRange, "whitelist", s, s,
			"contains %q which is not allowed, allowed values are [%s]", s, strings.Join(c.Whitelist, ", "))
	}
}

// uuidTag UUID 版本对应的 go-playground/validator 标签
func uuidTag(version uint8) string {
	switch version {
	case 3, 4, 5:
		return "uuid" + strconv.Itoa(int(version))
	default:
		return "uuid"
	}
}

// ============================================================================
// Number
// ============================================================================

func validateNumber(c *schema.LeafConstraints, input any, ctx *core.ValidationContext) (any, bool) {
	f, ok := toFloat(input)
	if !ok {
		s, isString := input.(string)
		switch {
		case isString && strings.TrimSpace(s) == "":
			return emptyScalar(c, ctx)
		case isString && c.Coerce:
			f, ok = parseNumber(s)
		}
	}
	if !ok {
		ctx.Report(core.CodeTypeMismatch, "type", "number", input, "must be a number")
		return nil, false
	}
	if c.Integer && f != math.Trunc(f) {
		ctx.Report(core.CodeTypeMismatch, "integer", "", input, "must be an integer")
		return nil, false
	}
	// float64(math.MaxInt64) 已经是 2^63，不能用 > 判断
	if c.Integer && (f < math.MinInt64 || f >= 1<<63) {
		ctx.Report(core.CodeOutOfRange, "integer", "", input, "must fit in a 64-bit integer")
		return nil, false
	}

	start := ctx.ErrorCount()
	if c.Min != nil && f < *c.Min {
		ctx.Report(core.CodeOutOfRange, "min", formatBound(*c.Min), input,
			"must be greater than or equal to %s", formatBound(*c.Min))
	}
	if c.Max != nil && f > *c.Max {
		ctx.Report(core.CodeOutOfRange, "max", formatBound(*c.Max), input,
			"must be less than or equal to %s", formatBound(*c.Max))
	}
	if ctx.ErrorCount() != start {
		return nil, false
	}

	if c.Integer {
		return int64(f), true
	}
	return f, true
}

// ============================================================================
// Boolean
// ============================================================================

func validateBoolean(c *schema.LeafConstraints, input any, ctx *core.ValidationContext) (any, bool) {
	switch v := input.(type) {
	case bool:
		return v, true
	case string:
		if strings.TrimSpace(v) == "" {
			return emptyScalar(c, ctx)
		}
		if c.Coerce {
			if b, ok := parseBool(v); ok {
				return b, true
			}
		}
	}
	ctx.Report(core.CodeTypeMismatch, "type", "boolean", input, "must be a boolean")
	return nil, false
}

// ============================================================================
// Date
// ============================================================================

func validateDate(c *schema.LeafConstraints, input any, ctx *core.ValidationContext) (any, bool) {
	t, ok := asTime(input)
	if !ok {
		if s, isString := input.(string); isString {
			if strings.TrimSpace(s) == "" {
				return emptyScalar(c, ctx)
			}
			t, ok = parseDate(s)
		}
	}
	if !ok {
		ctx.Report(core.CodeTypeMismatch, "type", "date", input, "must be a valid date")
		return nil, false
	}

	start := ctx.ErrorCount()
	ms := float64(t.UnixMilli())
	if c.Min != nil && ms < *c.Min {
		bound := formatDateBound(*c.Min)
		ctx.Report(core.CodeOutOfRange, "min", bound, input, "must be greater than or equal to %s", bound)
	}
	if c.Max != nil && ms > *c.Max {
		bound := formatDateBound(*c.Max)
		ctx.Report(core.CodeOutOfRange, "max", bound, input, "must be less than or equal to %s", bound)
	}
	if ctx.ErrorCount() != start {
		return nil, false
	}
	return t, true
}

// formatBound 数字边界格式化，整数不带小数点
func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatDateBound 日期边界格式化
func formatDateBound(ms float64) string {
	return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339)
}
