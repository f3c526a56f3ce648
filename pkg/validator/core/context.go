package core

import (
	"fmt"
	"strconv"
	"strings"
)

// missing 缺失值的哨兵类型
type missing struct{}

// String 便于调试输出
func (missing) String() string { return "<missing>" }

// Missing 表示"输入中不存在该字段"，区别于显式的 null
var Missing any = missing{}

// IsMissing 判断值是否为缺失
func IsMissing(v any) bool {
	_, ok := v.(missing)
	return ok
}

// segment 路径片段：字段名或数组下标
type segment struct {
	name  string
	index int
}

// ValidationContext 校验上下文
// 职责：记录当前字段路径（用于错误定位）并收集错误
// 生命周期：只属于一次校验调用，不跨请求共享，不加锁
type ValidationContext struct {
	path []segment
	// Errors 收集到的所有错误
	Errors []*FieldError
}

// NewValidationContext 创建校验上下文
func NewValidationContext() *ValidationContext {
	return &ValidationContext{
		path:   make([]segment, 0, 8),
		Errors: make([]*FieldError, 0, 8),
	}
}

// Push 进入字段
func (vc *ValidationContext) Push(name string) {
	vc.path = append(vc.path, segment{name: name, index: -1})
}

// PushIndex 进入数组元素
func (vc *ValidationContext) PushIndex(index int) {
	vc.path = append(vc.path, segment{index: index})
}

// Pop 退出当前字段
func (vc *ValidationContext) Pop() {
	if len(vc.path) > 0 {
		vc.path = vc.path[:len(vc.path)-1]
	}
}

// Depth 当前路径深度
func (vc *ValidationContext) Depth() int {
	return len(vc.path)
}

// Path 当前路径，形如 query.name.like 或 body.items[2].id
func (vc *ValidationContext) Path() string {
	return vc.render("")
}

// PathWith 当前路径再拼接一个子字段，不修改路径栈
func (vc *ValidationContext) PathWith(child string) string {
	return vc.render(child)
}

func (vc *ValidationContext) render(child string) string {
	var builder strings.Builder
	builder.Grow(len(vc.path)*8 + len(child))
	for _, seg := range vc.path {
		if seg.index >= 0 {
			builder.WriteByte('[')
			builder.WriteString(strconv.Itoa(seg.index))
			builder.WriteByte(']')
			continue
		}
		if builder.Len() > 0 {
			builder.WriteByte('.')
		}
		builder.WriteString(seg.name)
	}
	if child != "" {
		if builder.Len() > 0 {
			builder.WriteByte('.')
		}
		builder.WriteString(child)
	}
	return builder.String()
}

// HasErrors 是否有错误
func (vc *ValidationContext) HasErrors() bool {
	return len(vc.Errors) > 0
}

// ErrorCount 已收集的错误数量，用于判断某个子树是否新增了错误
func (vc *ValidationContext) ErrorCount() int {
	return len(vc.Errors)
}

// AddError 添加字段错误，Path 为空时使用当前路径
func (vc *ValidationContext) AddError(err *FieldError) {
	if err == nil {
		return
	}
	if err.Path == "" {
		err.Path = vc.Path()
	}
	vc.Errors = append(vc.Errors, err)
}

// AddErrors 批量添加字段错误
func (vc *ValidationContext) AddErrors(errs []*FieldError) {
	for _, err := range errs {
		vc.AddError(err)
	}
}

// Report 在当前路径上报告错误
func (vc *ValidationContext) Report(code ErrorCode, tag, param string, value any, format string, args ...any) {
	vc.ReportAt(vc.Path(), code, tag, param, value, format, args...)
}

// ReportAt 在指定路径上报告错误
func (vc *ValidationContext) ReportAt(path string, code ErrorCode, tag, param string, value any, format string, args ...any) {
	fe := NewFieldError(path, code).
		WithTag(tag).
		WithParam(param).
		WithValue(value).
		WithMessage(fmt.Sprintf("%q %s", path, fmt.Sprintf(format, args...)))
	vc.Errors = append(vc.Errors, fe)
}

// TakeErrors 复制出错误列表，之后上下文可以安全地被复用
func (vc *ValidationContext) TakeErrors() []*FieldError {
	if len(vc.Errors) == 0 {
		return nil
	}
	out := make([]*FieldError, len(vc.Errors))
	copy(out, vc.Errors)
	return out
}

// reset 重置上下文，保留底层数组
func (vc *ValidationContext) reset() {
	for i := range vc.Errors {
		vc.Errors[i] = nil
	}
	vc.Errors = vc.Errors[:0]
	vc.path = vc.path[:0]
}
