// Package formatter 把 []*core.FieldError 转换为面向用户的文本或 RFC 9457 问题详情
package formatter

import (
	"fmt"
	"strings"

	"katydid-common-crud/pkg/validator/core"
)

// ErrorFormatter 错误格式化器
type ErrorFormatter interface {
	// Format 格式化单个错误
	Format(err *core.FieldError) string
	// FormatAll 格式化所有错误
	FormatAll(errs []*core.FieldError) string
}

// DefaultFormatter 默认错误格式化器
// 职责：格式化错误信息
// 设计原则：单一职责
type DefaultFormatter struct{}

// NewDefaultFormatter 创建默认格式化器
func NewDefaultFormatter() ErrorFormatter {
	return &DefaultFormatter{}
}

// Format 格式化单个错误
func (f *DefaultFormatter) Format(err *core.FieldError) string {
	if err == nil {
		return ""
	}

	// 优先使用引擎生成的消息
	if err.Message != "" {
		return err.Message
	}

	var builder strings.Builder
	builder.Grow(80)

	if err.Path != "" {
		builder.WriteString("字段 '")
		builder.WriteString(err.Path)
		builder.WriteString("' ")
	}

	builder.WriteString("验证失败")

	if err.Tag != "" {
		builder.WriteString("，规则: ")
		builder.WriteString(err.Tag)
	}

	if err.Param != "" {
		builder.WriteString("，参数: ")
		builder.WriteString(err.Param)
	}

	return builder.String()
}

// FormatAll 格式化所有错误，消息以 ". " 连接成一行
func (f *DefaultFormatter) FormatAll(errs []*core.FieldError) string {
	switch len(errs) {
	case 0:
		return ""
	case 1:
		return f.Format(errs[0])
	}

	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, f.Format(err))
	}
	return strings.Join(messages, ". ")
}

// I18nFormatter 国际化错误格式化器
// 职责：按 Code 与 Tag 查找本地化消息模板，忽略引擎生成的英文消息
type I18nFormatter struct {
	locale   string
	messages map[string]map[string]string // map[locale]map[key]message
}

// NewI18nFormatter 创建国际化格式化器，locale 支持 zh、en，未知语言回退到 en
func NewI18nFormatter(locale string) ErrorFormatter {
	f := &I18nFormatter{
		locale:   strings.ToLower(locale),
		messages: make(map[string]map[string]string),
	}

	f.loadDefaultMessages()

	return f
}

// loadDefaultMessages 加载默认消息
// 键为 "code" 或 "code.tag"，后者优先；%s 为 Param
func (f *I18nFormatter) loadDefaultMessages() {
	// 中文消息
	f.messages["zh"] = map[string]string{
		"missing_field":          "不能为空",
		"null_not_allowed":       "不能为 null",
		"empty_not_allowed":      "不能为空值",
		"type_mismatch":          "类型不正确，期望 %s",
		"type_mismatch.integer":  "必须是整数",
		"out_of_range":           "不在允许的范围内",
		"out_of_range.min":       "不能小于 %s",
		"out_of_range.max":       "不能大于 %s",
		"out_of_range.pattern":   "格式不正确",
		"out_of_range.enum":      "必须是 [%s] 之一",
		"out_of_range.whitelist": "包含不允许的值 %s",
		"out_of_range.email":     "不是有效的邮箱地址",
		"unknown_key":            "是未知字段",
		"too_many_keys":          "字段数量不能超过 %s",
		"forbidden_field":        "不允许出现",
		"invalid_range":          "下界不能大于上界",
	}

	// 英文消息
	f.messages["en"] = map[string]string{
		"missing_field":          "is required",
		"null_not_allowed":       "must not be null",
		"empty_not_allowed":      "must not be empty",
		"type_mismatch":          "must be %s",
		"type_mismatch.integer":  "must be an integer",
		"out_of_range":           "is out of range",
		"out_of_range.min":       "must be at least %s",
		"out_of_range.max":       "must be at most %s",
		"out_of_range.pattern":   "has an invalid format",
		"out_of_range.enum":      "must be one of [%s]",
		"out_of_range.whitelist": "contains %s which is not allowed",
		"out_of_range.email":     "must be a valid email",
		"unknown_key":            "is not allowed",
		"too_many_keys":          "must have at most %s keys",
		"forbidden_field":        "is not allowed",
		"invalid_range":          "lower bound must not be greater than upper bound",
	}
}

// Format 格式化单个错误
func (f *I18nFormatter) Format(err *core.FieldError) string {
	if err == nil {
		return ""
	}

	template := f.getMessageTemplate(string(err.Code), err.Tag)
	if template == "" {
		if err.Message != "" {
			return err.Message
		}
		return fmt.Sprintf("%s validation failed on tag '%s'", err.Path, err.Tag)
	}

	msg := template
	if strings.Contains(template, "%s") {
		msg = fmt.Sprintf(template, err.Param)
	}

	if err.Path != "" {
		return fmt.Sprintf("%q %s", err.Path, msg)
	}
	return msg
}

// FormatAll 格式化所有错误
func (f *I18nFormatter) FormatAll(errs []*core.FieldError) string {
	if len(errs) == 0 {
		return f.getValidationPassedMessage()
	}

	if len(errs) == 1 {
		return f.Format(errs[0])
	}

	var builder strings.Builder
	builder.Grow(len(errs) * 80)

	builder.WriteString(f.getValidationFailedMessage(len(errs)))
	builder.WriteString("\n")

	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, f.Format(err)))
	}

	return builder.String()
}

// getMessageTemplate 获取消息模板：先 code.tag，再 code；先当前语言，再英文
func (f *I18nFormatter) getMessageTemplate(code, tag string) string {
	keys := []string{code}
	if tag != "" {
		keys = []string{code + "." + tag, code}
	}

	for _, locale := range []string{f.locale, "en"} {
		localeMessages, ok := f.messages[locale]
		if !ok {
			continue
		}
		for _, key := range keys {
			if template, ok := localeMessages[key]; ok {
				return template
			}
		}
	}

	return ""
}

// getValidationPassedMessage 获取验证通过消息
func (f *I18nFormatter) getValidationPassedMessage() string {
	if f.locale == "zh" {
		return "验证通过"
	}
	return "validation passed"
}

// getValidationFailedMessage 获取验证失败消息
func (f *I18nFormatter) getValidationFailedMessage(count int) string {
	if f.locale == "zh" {
		return fmt.Sprintf("验证失败，共 %d 个错误:", count)
	}
	return fmt.Sprintf("validation failed with %d errors:", count)
}
