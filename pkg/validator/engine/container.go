package engine

import (
	"sort"
	"strconv"

	"katydid-common-crud/pkg/validator/core"
	"katydid-common-crud/pkg/validator/schema"
)

// ============================================================================
// Object
// ============================================================================

// validateObject 校验对象
//
// 未知键、键数量超限、禁止字段与各声明字段的错误互不短路，
// 一次调用收集该对象下所有可达字段的问题。
func (e *Engine) validateObject(obj *schema.Object, input any, ctx *core.ValidationContext) (any, bool) {
	policy := &obj.Policy

	if core.IsMissing(input) {
		if policy.Optional {
			return core.Missing, true
		}
		ctx.Report(core.CodeMissingField, "required", "", nil, "is required")
		return nil, false
	}
	if input == nil {
		if policy.Nullable {
			return nil, true
		}
		ctx.Report(core.CodeNullNotAllowed, "nullable", "", nil, "must not be null")
		return nil, false
	}

	fields, ok := asMap(input)
	if !ok {
		ctx.Report(core.CodeTypeMismatch, "type", "object", input, "must be an object")
		return nil, false
	}
	if len(fields) == 0 && !policy.EmptyAllowed {
		ctx.Report(core.CodeEmptyNotAllowed, "empty", "", nil, "must not be empty")
		return nil, false
	}

	start := ctx.ErrorCount()
	out := make(map[string]any, len(fields))

	// 未知键按字典序报告，保证错误顺序稳定
	if unknown := unknownKeys(obj, fields); len(unknown) > 0 {
		for _, key := range unknown {
			if policy.UnknownKeys == schema.Allow {
				out[key] = fields[key]
				continue
			}
			ctx.ReportAt(ctx.PathWith(key), core.CodeUnknownKey, "unknown", key, nil, "is not allowed")
		}
	}

	if policy.MaxKeys > 0 && len(fields) > policy.MaxKeys {
		ctx.Report(core.CodeTooManyKeys, "max_keys", strconv.Itoa(policy.MaxKeys), nil,
			"must have less than or equal to %d keys", policy.MaxKeys)
	}

	for _, name := range obj.Keys() {
		node := obj.Fields[name]
		value, present := fields[name]
		if !present {
			value = core.Missing
		}

		ctx.Push(name)
		if present && isDenied(node) {
			// 出现即违规，不再校验值本身
			ctx.Report(core.CodeForbiddenField, "deny", "", nil, "is not allowed")
			ctx.Pop()
			continue
		}
		sanitized, valid := e.Validate(node, value, ctx)
		ctx.Pop()

		if valid && !core.IsMissing(sanitized) {
			out[name] = sanitized
		}
	}

	if ctx.ErrorCount() != start {
		return nil, false
	}
	return out, true
}

// unknownKeys 输入中未声明的键（已排序）
func unknownKeys(obj *schema.Object, fields map[string]any) []string {
	var unknown []string
	for key := range fields {
		if _, declared := obj.Fields[key]; !declared {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// ============================================================================
// Array
// ============================================================================

// validateArray 校验数组
//
// 先检查集合本身（空、最小/最大长度），再逐个元素递归；
// 单个元素失败不影响兄弟元素的校验。超过 MaxLen 时不再逐个校验元素。
func (e *Engine) validateArray(arr *schema.Array, input any, ctx *core.ValidationContext) (any, bool) {
	c := &arr.Constraints

	if core.IsMissing(input) {
		if c.Optional {
			return core.Missing, true
		}
		ctx.Report(core.CodeMissingField, "required", "", nil, "is required")
		return nil, false
	}
	if input == nil {
		if c.Nullable {
			return nil, true
		}
		ctx.Report(core.CodeNullNotAllowed, "nullable", "", nil, "must not be null")
		return nil, false
	}

	items, ok := asSlice(input)
	if !ok {
		if !c.Single || !arr.Item.Shapes().Overlaps(shapeOf(input)) {
			ctx.Report(core.CodeTypeMismatch, "type", "array", input, "must be an array")
			return nil, false
		}
		items = []any{input}
	}

	if len(items) == 0 {
		if !c.EmptyAllowed {
			ctx.Report(core.CodeEmptyNotAllowed, "empty", "", nil, "must not be empty")
			return nil, false
		}
		if c.MinLen > 0 {
			ctx.Report(core.CodeOutOfRange, "min", strconv.Itoa(c.MinLen), nil,
				"must contain at least %d items", c.MinLen)
			return nil, false
		}
		return []any{}, true
	}

	start := ctx.ErrorCount()
	if c.MinLen > 0 && len(items) < c.MinLen {
		ctx.Report(core.CodeOutOfRange, "min", strconv.Itoa(c.MinLen), nil,
			"must contain at least %d items", c.MinLen)
	}
	if c.MaxLen > 0 && len(items) > c.MaxLen {
		ctx.Report(core.CodeOutOfRange, "max", strconv.Itoa(c.MaxLen), nil,
			"must contain less than or equal to %d items", c.MaxLen)
		return nil, false
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		ctx.PushIndex(i)
		sanitized, valid := e.Validate(arr.Item, item, ctx)
		ctx.Pop()
		if valid && !core.IsMissing(sanitized) {
			out = append(out, sanitized)
		}
	}

	if ctx.ErrorCount() != start {
		return nil, false
	}
	return out, true
}
