// Package server 演示用 HTTP 服务：为每个声明的资源注册 CRUD 路由，
// 请求经校验中间件处理后原样返回规范化结果（不涉及持久化）。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"katydid-common-crud/pkg/config"
	"katydid-common-crud/pkg/resource"
	"katydid-common-crud/pkg/server/docs"
	"katydid-common-crud/pkg/validator"
	"katydid-common-crud/pkg/validator/envelope"
	"katydid-common-crud/pkg/validator/formatter"
	"katydid-common-crud/pkg/validator/jsonschema"
)

// shutdownTimeout 优雅退出的等待时间
const shutdownTimeout = 10 * time.Second

// Server HTTP 服务
type Server struct {
	cfg       *config.Config
	registry  *resource.Registry
	validator *validator.Validator
	logger    *zap.Logger
	engine    *gin.Engine
}

// New 创建服务并注册路由
func New(cfg *config.Config, registry *resource.Registry, v *validator.Validator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if v == nil {
		v = validator.New(validator.WithLogger(logger))
	}
	gin.SetMode(cfg.Server.Mode)

	s := &Server{
		cfg:       cfg,
		registry:  registry,
		validator: v,
		logger:    logger,
		engine:    gin.New(),
	}
	s.engine.Use(gin.Recovery(), RequestID(), AccessLog(logger))
	s.routes()
	return s
}

// Handler 返回 http.Handler，便于测试
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 启动服务，ctx 取消时优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// routes 注册路由
func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/schemas", s.listResources)
	s.engine.GET("/schemas/:resource/:scene", s.exportSchema)

	if s.cfg.Server.Swagger {
		docs.SwaggerInfo.BasePath = "/"
		s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	opts := []envelope.MiddlewareOption{
		envelope.WithLogger(s.logger),
		envelope.WithMaxBodyBytes(s.cfg.Validator.MaxBodyBytes),
		envelope.WithProblemOptions(formatter.ProblemOptions{
			BaseURL:   s.cfg.Validator.ProblemBaseURL,
			Formatter: formatter.NewI18nFormatter(s.cfg.Validator.Locale),
		}),
	}

	for _, name := range s.registry.Names() {
		res, _ := s.registry.Resource(name)
		base := "/" + strings.Trim(res.Path, "/")
		if base == "/" {
			base = "/" + res.Name
		}
		item := base + "/:" + res.IDParam

		s.handle(http.MethodGet, base, name, validator.SceneList, opts)
		s.handle(http.MethodPost, base, name, validator.SceneCreate, opts)
		s.handle(http.MethodGet, item, name, validator.SceneGet, opts)
		s.handle(http.MethodPatch, item, name, validator.SceneUpdate, opts)
		s.handle(http.MethodDelete, item, name, validator.SceneDelete, opts)
	}
}

// handle 注册单个路由：校验中间件 + 回显处理器
func (s *Server) handle(method, path, name string, scene validator.ValidateScene, opts []envelope.MiddlewareOption) {
	schemas, ok := s.registry.Schemas(name, scene)
	if !ok {
		return
	}
	s.engine.Handle(method, path,
		envelope.Middleware(s.validator, schemas, opts...),
		func(c *gin.Context) {
			sanitized, _ := envelope.Sanitized(c)
			resp := gin.H{
				"resource": name,
				"scene":    scene.String(),
				"request":  sanitized,
			}
			if scene == validator.SceneList {
				resp["page"] = page(sanitized.QueryValues())
			}
			c.JSON(http.StatusOK, resp)
		},
	)
}

// page 列表请求的分页与过滤摘要
func page(query validator.Values) gin.H {
	limit, _ := query.GetInt64("limit")
	offset, _ := query.GetInt64("offset")
	out := gin.H{"limit": limit, "offset": offset}
	if sortBy, ok := query.GetString("sortBy"); ok {
		order, _ := query.GetString("orderBy")
		out["sort"] = sortBy + " " + order
	}
	filters := query.Predicates()
	if len(filters) > 0 {
		names := make([]string, 0, len(filters))
		for name := range filters {
			names = append(names, name)
		}
		sort.Strings(names)
		out["filters"] = names
	}
	return out
}

// listResources 资源列表
func (s *Server) listResources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"resources": s.registry.Names()})
}

// exportSchema 导出 JSON Schema
func (s *Server) exportSchema(c *gin.Context) {
	name := c.Param("resource")
	scene, ok := validator.ParseScene(c.Param("scene"))
	if !ok || scene == validator.SceneAll {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown scene " + c.Param("scene")})
		return
	}
	schemas, ok := s.registry.Schemas(name, scene)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown resource " + name})
		return
	}
	c.JSON(http.StatusOK, jsonschema.ExportRequest(SchemaID(name, scene), schemas))
}

// SchemaID 资源场景的 JSON Schema 标识
func SchemaID(name string, scene validator.ValidateScene) string {
	return fmt.Sprintf("urn:katydid:%s:%s", name, scene)
}
