package validator

import (
	"katydid-common-crud/pkg/validator/core"
)

// ============================================================================
// 导出错误相关类型
// ============================================================================

// FieldError 字段错误
type FieldError = core.FieldError

// ValidationError 错误集合
type ValidationError = core.ValidationError

// ErrorCode 错误分类码
type ErrorCode = core.ErrorCode

// 重新导出错误分类码
const (
	CodeMissingField    = core.CodeMissingField
	CodeNullNotAllowed  = core.CodeNullNotAllowed
	CodeEmptyNotAllowed = core.CodeEmptyNotAllowed
	CodeTypeMismatch    = core.CodeTypeMismatch
	CodeOutOfRange      = core.CodeOutOfRange
	CodeUnknownKey      = core.CodeUnknownKey
	CodeTooManyKeys     = core.CodeTooManyKeys
	CodeForbiddenField  = core.CodeForbiddenField
	CodeInvalidRange    = core.CodeInvalidRange
)

// 重新导出哨兵错误
var (
	ErrValidation   = core.ErrValidation
	ErrConstruction = core.ErrConstruction
)
