// Package config 基于 viper 的配置加载：默认值 → 配置文件 → KATYDID_* 环境变量
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"katydid-common-crud/pkg/logger"
)

// EnvPrefix 环境变量前缀，如 KATYDID_SERVER_ADDR
const EnvPrefix = "KATYDID"

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       logger.Config   `mapstructure:"log"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Resources ResourcesConfig `mapstructure:"resources"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Mode gin 运行模式：debug/release/test
	Mode    string `mapstructure:"mode"`
	Swagger bool   `mapstructure:"swagger"`
}

// ValidatorConfig 校验配置
type ValidatorConfig struct {
	// Locale 错误消息语言：zh/en
	Locale string `mapstructure:"locale"`
	// MaxQueryKeys list 场景 query 的键数量上限
	MaxQueryKeys int `mapstructure:"max_query_keys"`
	// MaxBodyBytes 请求体大小上限
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
	// ProblemBaseURL RFC 9457 问题类型 URI 前缀
	ProblemBaseURL string `mapstructure:"problem_base_url"`
}

// ResourcesConfig 资源声明配置
type ResourcesConfig struct {
	File string `mapstructure:"file"`
}

// RedisConfig 动态白名单来源
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// setDefaults 默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.swagger", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.compress", false)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)

	v.SetDefault("validator.locale", "en")
	v.SetDefault("validator.max_query_keys", 10)
	v.SetDefault("validator.max_body_bytes", 1<<20)
	v.SetDefault("validator.problem_base_url", "")

	v.SetDefault("resources.file", "resources.yaml")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "katydid:whitelist:")
}

// Load 加载配置，path 为空时只使用默认值与环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid server.mode %q: want debug, release or test", c.Server.Mode)
	}
	switch c.Validator.Locale {
	case "zh", "en":
	default:
		return fmt.Errorf("invalid validator.locale %q: want zh or en", c.Validator.Locale)
	}
	if c.Validator.MaxQueryKeys < 0 {
		return fmt.Errorf("validator.max_query_keys cannot be negative")
	}
	if c.Validator.MaxBodyBytes <= 0 {
		return fmt.Errorf("validator.max_body_bytes must be positive")
	}
	return nil
}
