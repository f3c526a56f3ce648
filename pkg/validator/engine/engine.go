// Package engine 解释执行 schema 规则树：类型强制转换、结构约束检查、
// 二选一分支选择以及带路径的错误收集。
//
// 引擎没有 I/O、没有共享可变状态，同一个 Engine 可以被任意多个请求并发使用；
// 每次调用自带一个 core.ValidationContext。
package engine

import (
	"errors"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"

	"katydid-common-crud/pkg/validator/core"
	"katydid-common-crud/pkg/validator/filter"
	"katydid-common-crud/pkg/validator/schema"
)

// Engine 校验引擎
type Engine struct {
	// validate go-playground/validator 实例，用于 uuid/email 等格式标签
	// *validator.Validate 可以并发使用
	validate *validator.Validate
}

var (
	defaultEngine *Engine
	once          sync.Once
)

// Default 获取默认引擎（单例）
func Default() *Engine {
	once.Do(func() {
		defaultEngine = New()
	})
	return defaultEngine
}

// New 创建引擎
func New() *Engine {
	return &Engine{validate: validator.New()}
}

// Validate 按 node 校验 input
//
// 返回值：
//   - (sanitized, true)：该子树没有新增错误，sanitized 为强制转换/补缺省后的值；
//     可选且无缺省值的缺失字段返回 core.Missing
//   - (nil, false)：已在 ctx 当前路径上记录了一个或多个 FieldError
//
// 非法输入不会 panic，只会作为数据返回。
func (e *Engine) Validate(node schema.Node, input any, ctx *core.ValidationContext) (any, bool) {
	switch n := node.(type) {
	case *schema.Leaf:
		return e.validateLeaf(n, input, ctx)
	case *schema.Object:
		return e.validateObject(n, input, ctx)
	case *schema.Array:
		return e.validateArray(n, input, ctx)
	case *schema.Alternative:
		return e.validateAlternative(n, input, ctx)
	default:
		// 封闭类型，只有 schema 构建错误才会走到这里
		panic(&core.ConstructionError{Builder: "engine.Validate", Reason: "unsupported schema node " + reflect.TypeOf(node).String()})
	}
}

// ValidateValue 便捷方法：使用独立上下文校验单个值
func (e *Engine) ValidateValue(node schema.Node, input any) (any, []*core.FieldError) {
	ctx := core.AcquireContext()
	defer core.ReleaseContext(ctx)

	out, ok := e.Validate(node, input, ctx)
	if ok {
		return out, nil
	}
	return nil, ctx.TakeErrors()
}

// ============================================================================
// Alternative - 先匹配形状，再提交
// ============================================================================

// validateAlternative 二选一校验
//
// 只用顶层形状挑选分支；一旦形状匹配就提交到该分支做完整校验，
// 即使之后约束失败也不会回退到另一个分支，避免用误导性的回退结果掩盖真实错误。
func (e *Engine) validateAlternative(alt *schema.Alternative, input any, ctx *core.ValidationContext) (any, bool) {
	// 已规范化的谓词还原为原始形式后重新校验
	if p, ok := input.(filter.Predicate); ok && alt.Filter != schema.FilterNone {
		input = filter.Raw(p)
	}

	// 缺失：缺省语义由 Primary 决定
	if core.IsMissing(input) {
		return e.Validate(alt.Primary, input, ctx)
	}

	// null：优先交给声明了 nullable 的分支
	if input == nil {
		if acceptsNull(alt.Primary) || !acceptsNull(alt.Fallback) {
			return e.Validate(alt.Primary, input, ctx)
		}
		return e.Validate(alt.Fallback, input, ctx)
	}

	shape := shapeOf(input)
	switch {
	case alt.Primary.Shapes().Overlaps(shape):
		return e.Validate(alt.Primary, input, ctx)
	case alt.Fallback.Shapes().Overlaps(shape):
		out, ok := e.Validate(alt.Fallback, input, ctx)
		if ok && alt.Filter != schema.FilterNone {
			ok = checkFilter(out, ctx)
		}
		if !ok {
			return nil, false
		}
		return out, true
	}

	expected := alt.Primary.Shapes().String() + " or " + alt.Fallback.Shapes().String()
	ctx.Report(core.CodeTypeMismatch, "type", expected, input,
		"must be %s", expected)
	return nil, false
}

// checkFilter 遍历中对过滤对象试做规范化，区间颠倒时报 InvalidRange
// 值保持对象形式，转换为谓词由 filter.Apply 完成
func checkFilter(value any, ctx *core.ValidationContext) bool {
	_, err := filter.Normalize(value)
	switch {
	case err == nil:
		return true
	case errors.Is(err, filter.ErrInvalidRange):
		ctx.ReportAt(ctx.PathWith(schema.OpBetween), core.CodeInvalidRange, schema.OpBetween, "", nil,
			"lower bound must be less than or equal to upper bound")
	default:
		ctx.Report(core.CodeTypeMismatch, "filter", "", nil, "%s", err.Error())
	}
	return false
}

// acceptsNull 节点是否允许 null
func acceptsNull(node schema.Node) bool {
	switch n := node.(type) {
	case *schema.Leaf:
		return n.Constraints.Nullable
	case *schema.Object:
		return n.Policy.Nullable
	case *schema.Array:
		return n.Constraints.Nullable
	case *schema.Alternative:
		return acceptsNull(n.Primary) || acceptsNull(n.Fallback)
	default:
		return false
	}
}

// isDenied 节点是否被标记为禁止出现
func isDenied(node schema.Node) bool {
	leaf, ok := node.(*schema.Leaf)
	return ok && leaf.Constraints.Deny
}

// shapeOf 输入值的顶层形状
func shapeOf(v any) schema.Shape {
	switch v.(type) {
	case string:
		return schema.ShapeString
	case bool:
		return schema.ShapeBoolean
	case map[string]any, map[string]string:
		return schema.ShapeObject
	case []any, []string:
		return schema.ShapeArray
	}
	if isNumeric(v) {
		return schema.ShapeNumber
	}
	if _, ok := asTime(v); ok {
		return schema.ShapeDate
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return schema.ShapeArray
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return schema.ShapeObject
		}
	}
	return 0
}
