package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"katydid-common-crud/pkg/config"
	"katydid-common-crud/pkg/resource"
	"katydid-common-crud/pkg/server"
	"katydid-common-crud/pkg/validator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动校验服务",
	Long: `启动 HTTP 服务，为资源声明文件中的每个资源注册 CRUD 路由。

请求经校验后原样返回规范化结果；开启 redis.enabled 时，启动期从 Redis 集合
读取额外的列/关联白名单。

示例：
  katydid-crud serve -c config.yaml
  KATYDID_SERVER_ADDR=:9090 katydid-crud serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	whitelists, err := redisWhitelists(ctx, cfg, log)
	if err != nil {
		return err
	}

	registry, err := loadRegistry(cfg, whitelists)
	if err != nil {
		log.Error("load resources failed", zap.String("file", cfg.Resources.File), zap.Error(err))
		return err
	}
	log.Info("resources loaded", zap.Strings("resources", registry.Names()))

	v := validator.New(validator.WithLogger(log))
	return server.New(cfg, registry, v, log).Run(ctx)
}

// redisWhitelists 读取 Redis 中的动态白名单，未开启时返回 nil
func redisWhitelists(ctx context.Context, cfg *config.Config, log *zap.Logger) (map[string]resource.Whitelist, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}

	file, err := resource.LoadFile(cfg.Resources.File)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(file.Resources))
	for _, res := range file.Resources {
		names = append(names, res.Name)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = client.Close() }()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}

	whitelists, err := resource.NewRedisSource(client, cfg.Redis.KeyPrefix).Whitelists(ctx, names)
	if err != nil {
		return nil, err
	}
	log.Info("redis whitelists loaded", zap.String("addr", cfg.Redis.Addr), zap.Int("resources", len(whitelists)))
	return whitelists, nil
}
