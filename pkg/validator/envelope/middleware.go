package envelope

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"katydid-common-crud/pkg/validator"
	"katydid-common-crud/pkg/validator/core"
	"katydid-common-crud/pkg/validator/formatter"
)

// sanitizedKey gin 上下文中保存校验结果的键
const sanitizedKey = "katydid.validator.sanitized"

// middlewareConfig 中间件配置
type middlewareConfig struct {
	logger       *zap.Logger
	problem      formatter.ProblemOptions
	maxBodyBytes int64
}

// MiddlewareOption 中间件选项
type MiddlewareOption func(*middlewareConfig)

// WithLogger 指定日志
func WithLogger(logger *zap.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProblemOptions 指定错误响应的格式
func WithProblemOptions(opts formatter.ProblemOptions) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.problem = opts
	}
}

// WithMaxBodyBytes 指定请求体大小上限
func WithMaxBodyBytes(n int64) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.maxBodyBytes = n
	}
}

// Middleware 请求校验中间件
//
// 校验通过时把 *validator.Sanitized 存入上下文（通过 Sanitized(c) 获取）并继续；
// 失败时以 400 + RFC 9457 问题详情中止请求。
func Middleware(v *validator.Validator, schemas validator.RequestSchemas, opts ...MiddlewareOption) gin.HandlerFunc {
	cfg := &middlewareConfig{
		logger:       zap.NewNop(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if v == nil {
		v = validator.Default()
	}

	return func(c *gin.Context) {
		env, err := FromGin(c, cfg.maxBodyBytes)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, ErrBodyTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			fe := core.NewFieldError(validator.SectionBody, core.CodeTypeMismatch).
				WithTag("json").
				WithMessage(err.Error())
			cfg.logger.Debug("request body rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			abort(c, status, []*core.FieldError{fe}, cfg.problem)
			return
		}

		sanitized, errs := v.ValidateRequest(schemas, env)
		if len(errs) > 0 {
			cfg.logger.Debug("request validation failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("errors", len(errs)),
			)
			abort(c, http.StatusBadRequest, errs, cfg.problem)
			return
		}

		c.Set(sanitizedKey, sanitized)
		c.Next()
	}
}

// Sanitized 获取中间件保存的校验结果
func Sanitized(c *gin.Context) (*validator.Sanitized, bool) {
	value, ok := c.Get(sanitizedKey)
	if !ok {
		return nil, false
	}
	sanitized, ok := value.(*validator.Sanitized)
	return sanitized, ok
}

// abort 输出问题详情并中止
func abort(c *gin.Context, status int, errs []*core.FieldError, opts formatter.ProblemOptions) {
	problem := formatter.NewProblem(errs, c.Request.URL.Path, opts)
	problem.Status = status
	problem.Title = http.StatusText(status)

	data, err := json.Marshal(problem)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Abort()
	c.Data(status, formatter.ProblemContentType, data)
}
