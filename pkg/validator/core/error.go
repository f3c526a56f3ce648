package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrorCode 错误分类码，与具体异常无关，只描述"哪一类"校验失败
// 调用方（HTTP 层）据此决定展示方式，例如统一映射为 400
type ErrorCode string

const (
	CodeMissingField      ErrorCode = "missing_field"      // 必填字段缺失
	CodeNullNotAllowed    ErrorCode = "null_not_allowed"   // 不允许 null
	CodeEmptyNotAllowed   ErrorCode = "empty_not_allowed"  // 不允许空字符串/空数组/空对象
	CodeTypeMismatch      ErrorCode = "type_mismatch"      // 类型不匹配或强制转换失败
	CodeOutOfRange        ErrorCode = "out_of_range"       // min/max/pattern/enum/whitelist 等约束不满足
	CodeUnknownKey        ErrorCode = "unknown_key"        // 未声明的键
	CodeTooManyKeys       ErrorCode = "too_many_keys"      // 键数量超限
	CodeForbiddenField    ErrorCode = "forbidden_field"    // 禁止出现的字段
	CodeInvalidRange      ErrorCode = "invalid_range"      // between 的下界大于上界
	CodeConstructionError ErrorCode = "construction_error" // schema 构建错误（仅启动期）
)

// 错误相关的长度上限，防止超长输入放大错误响应
const (
	maxMessageLength = 2048
	maxValueSize     = 4096
)

var (
	// ErrValidation 校验失败哨兵错误，可通过 errors.Is 判断
	ErrValidation = errors.New("validation failed")

	// ErrConstruction schema 构建错误哨兵
	ErrConstruction = errors.New("schema construction failed")
)

// FieldError 单个字段的校验错误
//
// 国际化时可以通过 Code + Tag 和 Param 查找对应的翻译，
// 如 out_of_range + max + param=100
type FieldError struct {
	// Path 字段路径（如 query.name.like、body.items[2].id）
	Path string `json:"path"`
	// Code 错误分类码
	Code ErrorCode `json:"code"`
	// Tag 具体违反的约束（如 min、max、pattern、enum、whitelist）
	Tag string `json:"tag,omitempty"`
	// Param 约束参数（如 max=100 中的 "100"）
	Param string `json:"param,omitempty"`
	// Value 字段的实际值（可选，谨慎使用）
	Value any `json:"value,omitempty"`
	// Message 友好的错误消息
	Message string `json:"message"`
}

// NewFieldError 创建字段错误
func NewFieldError(path string, code ErrorCode) *FieldError {
	return &FieldError{
		Path: path,
		Code: code,
	}
}

// WithTag 设置约束标签
func (fe *FieldError) WithTag(tag string) *FieldError {
	fe.Tag = tag
	return fe
}

// WithParam 设置约束参数
func (fe *FieldError) WithParam(param string) *FieldError {
	fe.Param = param
	return fe
}

// WithValue 设置值，过大的值不保存
func (fe *FieldError) WithValue(value any) *FieldError {
	if estimateSize(value) <= maxValueSize {
		fe.Value = value
	}
	return fe
}

// WithMessage 设置消息
func (fe *FieldError) WithMessage(message string) *FieldError {
	if len(message) > maxMessageLength {
		cut := maxMessageLength
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut]
	}
	fe.Message = message
	return fe
}

// Error 实现 error 接口
func (fe *FieldError) Error() string {
	if fe.Message != "" {
		return fe.Message
	}
	if fe.Tag != "" {
		return fmt.Sprintf("field '%s' validation failed on tag '%s'", fe.Path, fe.Tag)
	}
	return fmt.Sprintf("field '%s' validation failed: %s", fe.Path, fe.Code)
}

// Unwrap 使 errors.Is(fe, ErrValidation) 成立
func (fe *FieldError) Unwrap() error {
	return ErrValidation
}

// estimateSize 粗略估算值的大小
func estimateSize(value any) int {
	switch v := value.(type) {
	case nil:
		return 0
	case string:
		return len(v)
	case []byte:
		return len(v)
	default:
		return len(fmt.Sprintf("%v", v))
	}
}

// ============================================================================
// ValidationError - 错误集合
// ============================================================================

// ValidationError 校验错误集合，把 []*FieldError 包装为 error
type ValidationError struct {
	errors []*FieldError
}

// NewValidationError 创建校验错误集合，errs 为空时返回 nil
func NewValidationError(errs []*FieldError) *ValidationError {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{errors: errs}
}

// Errors 获取所有错误
func (e *ValidationError) Errors() []*FieldError {
	return e.errors
}

// Count 错误数量
func (e *ValidationError) Count() int {
	return len(e.errors)
}

// ByCode 按错误码筛选
func (e *ValidationError) ByCode(code ErrorCode) []*FieldError {
	var out []*FieldError
	for _, fe := range e.errors {
		if fe.Code == code {
			out = append(out, fe)
		}
	}
	return out
}

// ByPath 按字段路径筛选
func (e *ValidationError) ByPath(path string) []*FieldError {
	var out []*FieldError
	for _, fe := range e.errors {
		if fe.Path == path {
			out = append(out, fe)
		}
	}
	return out
}

// Error 实现 error 接口，多个错误以 "; " 连接
func (e *ValidationError) Error() string {
	switch len(e.errors) {
	case 0:
		return ErrValidation.Error()
	case 1:
		return e.errors[0].Error()
	}

	var builder strings.Builder
	builder.Grow(len(e.errors) * 64)
	for i, fe := range e.errors {
		if i > 0 {
			builder.WriteString("; ")
		}
		builder.WriteString(fe.Error())
	}
	return builder.String()
}

// Unwrap 使 errors.Is(err, ErrValidation) 成立
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// MarshalJSON 序列化为 {"errors": [...]}
func (e *ValidationError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Errors []*FieldError `json:"errors"`
	}{Errors: e.errors})
}

// ============================================================================
// ConstructionError - schema 构建错误
// ============================================================================

// ConstructionError schema 构建错误
// 只在进程启动构建 schema 时出现（通过 panic 抛出），不会在请求处理期间出现
type ConstructionError struct {
	// Builder 出错的构建函数名（如 Text、NewAlternative）
	Builder string
	// Reason 出错原因
	Reason string
}

// Error 实现 error 接口
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConstruction.Error(), e.Builder, e.Reason)
}

// Unwrap 使 errors.Is(err, ErrConstruction) 成立
func (e *ConstructionError) Unwrap() error {
	return ErrConstruction
}

// Assert 断言构建参数合法，不合法时 panic(*ConstructionError)
func Assert(cond bool, builder, format string, args ...any) {
	if !cond {
		panic(&ConstructionError{Builder: builder, Reason: fmt.Sprintf(format, args...)})
	}
}

// RecoverConstruction 把构建期的 panic(*ConstructionError) 转为 error
// 其它 panic 原样重新抛出
//
// 用法：
//
//	func build() (err error) {
//	    defer core.RecoverConstruction(&err)
//	    ...
//	}
func RecoverConstruction(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if ce, ok := r.(*ConstructionError); ok {
		*err = ce
		return
	}
	panic(r)
}
