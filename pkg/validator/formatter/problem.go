package formatter

import (
	"encoding/json"
	"net/http"
	"strings"

	"katydid-common-crud/pkg/idgen"
	"katydid-common-crud/pkg/validator/core"
)

// ProblemContentType RFC 9457 响应类型
const ProblemContentType = "application/problem+json; charset=utf-8"

// problemSlug 校验失败的问题类型后缀
const problemSlug = "validation-error"

// ProblemDetail RFC 9457 问题详情
//
// Extensions 中的字段平铺输出，保留字段（type/title/status/detail/instance）不会被覆盖。
type ProblemDetail struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Instance   string         `json:"instance,omitempty"`
	Extensions map[string]any `json:"-"`
}

// MarshalJSON 把 Extensions 平铺到顶层
func (p ProblemDetail) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"type":   p.Type,
		"title":  p.Title,
		"status": p.Status,
	}
	if p.Detail != "" {
		m["detail"] = p.Detail
	}
	if p.Instance != "" {
		m["instance"] = p.Instance
	}
	for k, v := range p.Extensions {
		switch k {
		case "type", "title", "status", "detail", "instance":
			continue
		}
		m[k] = v
	}
	return json.Marshal(m)
}

// ProblemOptions 构建问题详情的选项
type ProblemOptions struct {
	// BaseURL 问题类型 URI 前缀，为空时 type 为 "about:blank"
	BaseURL string
	// Formatter detail 与 errors[].message 使用的格式化器，默认 DefaultFormatter
	Formatter ErrorFormatter
	// DisableErrorID 不生成 error_id
	DisableErrorID bool
}

// problemError errors 扩展中的单个错误
type problemError struct {
	Path    string         `json:"path"`
	Code    core.ErrorCode `json:"code"`
	Message string         `json:"message"`
}

// NewProblem 把校验错误转换为 400 问题详情
func NewProblem(errs []*core.FieldError, instance string, opts ProblemOptions) ProblemDetail {
	f := opts.Formatter
	if f == nil {
		f = NewDefaultFormatter()
	}

	problemType := "about:blank"
	if opts.BaseURL != "" {
		problemType = strings.TrimRight(opts.BaseURL, "/") + "/" + problemSlug
	}

	items := make([]problemError, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}
		items = append(items, problemError{Path: err.Path, Code: err.Code, Message: f.Format(err)})
	}

	p := ProblemDetail{
		Type:     problemType,
		Title:    http.StatusText(http.StatusBadRequest),
		Status:   http.StatusBadRequest,
		Detail:   f.FormatAll(errs),
		Instance: instance,
		Extensions: map[string]any{
			"errors": items,
		},
	}

	if !opts.DisableErrorID {
		if id, err := idgen.NextID(); err == nil {
			p.Extensions["error_id"] = id.String()
		}
	}
	return p
}
