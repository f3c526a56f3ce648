// Package validator 请求校验入口：按 schema 分别校验 query、body、params 三个分段，
// 汇总所有错误，并把过滤字段规范化为谓词描述。
//
// 使用示例：
//
//	schemas := validator.RequestSchemas{
//	    Query: schema.Query(schema.Fields{
//	        "name":   schema.TextFilter(schema.TextOptions{Optional: true}),
//	        "limit":  schema.Limit(schema.PageOptions{}),
//	        "offset": schema.Offset(schema.PageOptions{}),
//	    }, schema.ObjectOptions{Max: 10, Empty: true}),
//	}
//
//	sanitized, errs := validator.Default().ValidateRequest(schemas, envelope)
package validator

import (
	"sync"

	"go.uber.org/zap"

	"katydid-common-crud/pkg/validator/core"
	"katydid-common-crud/pkg/validator/engine"
	"katydid-common-crud/pkg/validator/filter"
	"katydid-common-crud/pkg/validator/schema"
)

// 请求分段名，同时是错误路径的第一段
const (
	SectionQuery  = "query"
	SectionBody   = "body"
	SectionParams = "params"
)

// Envelope 原始请求的三个输入分段
//
// Query 的值为 string 或 []string（重复的键），Params 的值为 string，
// Body 是解码后的 JSON 值；Body 为 nil 视为空对象。
type Envelope struct {
	Query  map[string]any `json:"query"`
	Body   any            `json:"body"`
	Params map[string]any `json:"params"`
}

// Sanitized 校验通过后的请求：类型已转换，缺省值已填充，过滤字段已替换为 filter.Predicate
type Sanitized struct {
	Query  map[string]any `json:"query"`
	Body   any            `json:"body"`
	Params map[string]any `json:"params"`
}

// RequestSchemas 一个接口的三段 schema，nil 表示该分段不做校验、原样透传
type RequestSchemas struct {
	Query  schema.Node
	Body   schema.Node
	Params schema.Node
}

// Validator 请求校验器
// 设计原则：
//   - 单例模式：Default() 全局唯一
//   - 工厂模式：New() 创建独立实例
//   - 无共享可变状态：同一实例可以被任意多个请求并发使用
type Validator struct {
	engine *engine.Engine
	logger *zap.Logger
}

// Option 校验器选项
type Option func(*Validator)

// WithEngine 指定校验引擎
func WithEngine(e *engine.Engine) Option {
	return func(v *Validator) {
		if e != nil {
			v.engine = e
		}
	}
}

// WithLogger 指定日志，默认不输出
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

var (
	// defaultValidator 默认校验器实例，全局单例
	defaultValidator *Validator
	// once 确保默认校验器只初始化一次（线程安全）
	once sync.Once
)

// Default 获取默认校验器实例（单例模式）
func Default() *Validator {
	once.Do(func() {
		defaultValidator = New()
	})
	return defaultValidator
}

// New 创建新的校验器实例
func New(opts ...Option) *Validator {
	v := &Validator{
		engine: engine.Default(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateRequest 使用默认校验器校验请求
func ValidateRequest(schemas RequestSchemas, env Envelope) (*Sanitized, []*core.FieldError) {
	return Default().ValidateRequest(schemas, env)
}

// ValidateRequest 校验请求
//
// 流程：
//  1. query、body、params 各自独立校验，互不短路
//  2. 校验通过的分段再做过滤字段规范化（between 区间非法在此阶段报告）
//  3. 汇总三个分段的全部错误后统一返回
//
// 返回：
//   - (sanitized, nil)：全部通过
//   - (nil, errs)：errs 至少包含一个错误，按分段顺序排列
func (v *Validator) ValidateRequest(schemas RequestSchemas, env Envelope) (*Sanitized, []*core.FieldError) {
	ctx := core.AcquireContext()
	defer core.ReleaseContext(ctx)

	query := v.section(ctx, SectionQuery, schemas.Query, objectInput(env.Query))
	body := v.section(ctx, SectionBody, schemas.Body, bodyInput(env.Body))
	params := v.section(ctx, SectionParams, schemas.Params, objectInput(env.Params))

	if ctx.HasErrors() {
		errs := ctx.TakeErrors()
		v.logger.Debug("request validation failed",
			zap.Int("errors", len(errs)),
			zap.String("first", errs[0].Path),
		)
		return nil, errs
	}

	return &Sanitized{
		Query:  asObject(query),
		Body:   body,
		Params: asObject(params),
	}, nil
}

// Validate 同 ValidateRequest，错误以 *core.ValidationError 返回
func (v *Validator) Validate(schemas RequestSchemas, env Envelope) (*Sanitized, error) {
	sanitized, errs := v.ValidateRequest(schemas, env)
	if len(errs) > 0 {
		return nil, core.NewValidationError(errs)
	}
	return sanitized, nil
}

// section 校验单个分段并规范化过滤字段
func (v *Validator) section(ctx *core.ValidationContext, name string, node schema.Node, input any) any {
	if node == nil {
		return input
	}

	ctx.Push(name)
	defer ctx.Pop()

	sanitized, ok := v.engine.Validate(node, input, ctx)
	if !ok {
		return nil
	}
	normalized, _ := filter.Apply(node, sanitized, ctx)
	return normalized
}

// objectInput nil map 视为空对象
func objectInput(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// bodyInput 没有请求体时视为空对象
func bodyInput(body any) any {
	if body == nil {
		return map[string]any{}
	}
	return body
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
