package filter

import (
	"errors"
	"time"

	"katydid-common-crud/pkg/validator/core"
	"katydid-common-crud/pkg/validator/schema"
)

// Apply 按 schema 遍历已清洗的值，把每个过滤字段替换为谓词
//
// value 必须是引擎的输出（map[string]any / []any / 标量）。
// 返回新的值树，不修改输入；between 区间非法时在 <字段>.between 上报告 InvalidRange。
// 已经规范化过的值再次 Apply 结果不变。
func Apply(node schema.Node, value any, ctx *core.ValidationContext) (any, bool) {
	start := ctx.ErrorCount()
	out := apply(node, value, ctx)
	return out, ctx.ErrorCount() == start
}

func apply(node schema.Node, value any, ctx *core.ValidationContext) any {
	if value == nil || core.IsMissing(value) {
		return value
	}

	switch n := node.(type) {
	case *schema.Alternative:
		if n.Filter != schema.FilterNone {
			return applyFilter(value, ctx)
		}
		if branch := branchFor(n, value); branch != nil {
			return apply(branch, value, ctx)
		}
		return value

	case *schema.Object:
		fields, ok := value.(map[string]any)
		if !ok {
			return value
		}
		out := make(map[string]any, len(fields))
		for key, v := range fields {
			child, declared := n.Fields[key]
			if !declared {
				out[key] = v
				continue
			}
			ctx.Push(key)
			out[key] = apply(child, v, ctx)
			ctx.Pop()
		}
		return out

	case *schema.Array:
		items, ok := value.([]any)
		if !ok {
			return value
		}
		out := make([]any, len(items))
		for i, item := range items {
			ctx.PushIndex(i)
			out[i] = apply(n.Item, item, ctx)
			ctx.Pop()
		}
		return out

	default:
		return value
	}
}

func applyFilter(value any, ctx *core.ValidationContext) any {
	predicate, err := Normalize(value)
	if err == nil {
		return predicate
	}

	if errors.Is(err, ErrInvalidRange) {
		ctx.ReportAt(ctx.PathWith(schema.OpBetween), core.CodeInvalidRange, schema.OpBetween, "", nil,
			"lower bound must be less than or equal to upper bound")
	} else {
		ctx.Report(core.CodeTypeMismatch, "filter", "", nil, "%s", err.Error())
	}
	return value
}

// branchFor 非过滤二选一：按值的形状选择分支
func branchFor(alt *schema.Alternative, value any) schema.Node {
	shape := shapeOf(value)
	switch {
	case alt.Primary.Shapes().Overlaps(shape):
		return alt.Primary
	case alt.Fallback.Shapes().Overlaps(shape):
		return alt.Fallback
	}
	return nil
}

// shapeOf 已清洗值的形状
func shapeOf(v any) schema.Shape {
	switch v.(type) {
	case map[string]any:
		return schema.ShapeObject
	case []any:
		return schema.ShapeArray
	case string:
		return schema.ShapeString
	case bool:
		return schema.ShapeBoolean
	case time.Time:
		return schema.ShapeDate
	}
	if _, ok := number(v); ok {
		return schema.ShapeNumber
	}
	return 0
}
