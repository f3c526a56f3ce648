package resource

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// SetReader RedisSource 需要的最小客户端接口，*redis.Client 与 *redis.ClusterClient 均满足
type SetReader interface {
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

// RedisSource 从 Redis 集合读取动态白名单
//
// 键格式：<prefix><resource>:columns 与 <prefix><resource>:associations。
// 只在启动构建 schema 时读取一次，请求处理期间不访问 Redis。
type RedisSource struct {
	client SetReader
	prefix string
}

// NewRedisSource 创建 Redis 白名单来源
func NewRedisSource(client SetReader, prefix string) *RedisSource {
	return &RedisSource{client: client, prefix: prefix}
}

// Whitelist 读取单个资源的白名单，集合不存在时返回空白名单
func (s *RedisSource) Whitelist(ctx context.Context, resource string) (Whitelist, error) {
	columns, err := s.members(ctx, resource+":columns")
	if err != nil {
		return Whitelist{}, err
	}
	associations, err := s.members(ctx, resource+":associations")
	if err != nil {
		return Whitelist{}, err
	}
	return Whitelist{Columns: columns, Associations: associations}, nil
}

// Whitelists 读取多个资源的白名单
func (s *RedisSource) Whitelists(ctx context.Context, resources []string) (map[string]Whitelist, error) {
	out := make(map[string]Whitelist, len(resources))
	for _, name := range resources {
		w, err := s.Whitelist(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = w
	}
	return out, nil
}

func (s *RedisSource) members(ctx context.Context, suffix string) ([]string, error) {
	key := s.prefix + suffix
	values, err := s.client.SMembers(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis smembers %s: %w", key, err)
	}
	// 集合无序，排序保证 schema 稳定
	sort.Strings(values)
	return values, nil
}
