// Package cmd katydid-crud 命令行：serve 启动校验服务，validate 离线校验请求，schema 导出 JSON Schema
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"katydid-common-crud/pkg/config"
	"katydid-common-crud/pkg/logger"
	"katydid-common-crud/pkg/resource"
	"katydid-common-crud/pkg/validator"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "katydid-crud",
	Short: "声明式请求校验服务",
	Long: `katydid-crud 根据资源声明为 CRUD 接口生成请求校验规则。

每个请求的 query、body、params 按场景（list/get/create/update/delete）校验，
错误以 RFC 9457 problem+json 返回，通过的请求被规范化后交给业务处理。`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径（默认只使用内置默认值与 KATYDID_* 环境变量）")
}

// loadConfig 加载配置并创建日志
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, log, nil
}

// loadRegistry 读取资源声明，合并模型元数据白名单后构建 schema
func loadRegistry(cfg *config.Config, whitelists map[string]resource.Whitelist) (*resource.Registry, error) {
	file, err := resource.LoadFile(cfg.Resources.File)
	if err != nil {
		return nil, err
	}

	merged, err := modelWhitelists(file)
	if err != nil {
		return nil, err
	}
	for name, w := range whitelists {
		merged[name] = merged[name].Merge(w)
	}

	return resource.Build(file, resource.BuildOptions{
		MaxQueryKeys: cfg.Validator.MaxQueryKeys,
		Whitelists:   merged,
	})
}

// sceneFlag 解析 --scene
func sceneFlag(name string) (validator.ValidateScene, error) {
	scene, ok := validator.ParseScene(name)
	if !ok || scene == validator.SceneAll || scene == validator.SceneNone {
		return validator.SceneNone, fmt.Errorf("unknown scene %q: want list, get, create, update or delete", name)
	}
	return scene, nil
}
