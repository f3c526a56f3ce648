// Package envelope 把 HTTP 框架的请求映射为 validator.Envelope，并提供 gin 中间件
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"katydid-common-crud/pkg/validator"
)

// DefaultMaxBodyBytes 默认请求体大小上限（1 MiB）
const DefaultMaxBodyBytes int64 = 1 << 20

var (
	// ErrBodyTooLarge 请求体超过上限
	ErrBodyTooLarge = errors.New("request body too large")

	// ErrInvalidBody 请求体不是合法的 JSON
	ErrInvalidBody = errors.New("request body is not valid JSON")
)

// FromRequest 从 net/http 请求构建 Envelope
//
// query 中只出现一次的键映射为 string，重复的键映射为 []string；
// 请求体按 JSON 解码，空请求体为空对象。
func FromRequest(r *http.Request, params map[string]string, maxBodyBytes int64) (validator.Envelope, error) {
	body, err := decodeBody(r, maxBodyBytes)
	if err != nil {
		return validator.Envelope{}, err
	}
	return validator.Envelope{
		Query:  Query(r.URL.Query()),
		Body:   body,
		Params: Params(params),
	}, nil
}

// FromGin 从 gin 上下文构建 Envelope
func FromGin(c *gin.Context, maxBodyBytes int64) (validator.Envelope, error) {
	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}
	return FromRequest(c.Request, params, maxBodyBytes)
}

// Query url.Values → map[string]any
func Query(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, list := range values {
		switch len(list) {
		case 0:
			out[key] = ""
		case 1:
			out[key] = list[0]
		default:
			out[key] = append([]string(nil), list...)
		}
	}
	return out
}

// Params 路径参数 → map[string]any
func Params(params map[string]string) map[string]any {
	out := make(map[string]any, len(params))
	for key, value := range params {
		out[key] = value
	}
	return out
}

// decodeBody 解码 JSON 请求体
func decodeBody(r *http.Request, maxBodyBytes int64) (any, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return map[string]any{}, nil
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	// 多读一个字节用于判断是否超限
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if int64(len(raw)) > maxBodyBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxBodyBytes)
	}
	// 读取后放回，下游 handler 仍可读取原始请求体
	r.Body = io.NopCloser(bytes.NewReader(raw))

	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return body, nil
}
