package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"bookclub/internal/services"
)

const recommendationKeyPrefix = "rec:books:"

// redisRecommendationCache 是 services.RecommendationCache 的 Redis 实现。
type redisRecommendationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRecommendationCache caches sampled title lists for ttl.
func NewRedisRecommendationCache(client *redis.Client, ttl time.Duration) services.RecommendationCache {
	return &redisRecommendationCache{client: client, ttl: ttl}
}

func (r *redisRecommendationCache) Get(ctx context.Context, n int) ([]string, bool, error) {
	raw, err := r.client.Get(ctx, recommendationKeyPrefix+strconv.Itoa(n)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取推荐缓存失败: %w", err)
	}

	var titles []string
	if err := json.Unmarshal(raw, &titles); err != nil {
		return nil, false, fmt.Errorf("解析推荐缓存失败: %w", err)
	}
	return titles, true, nil
}

func (r *redisRecommendationCache) Set(ctx context.Context, n int, titles []string) error {
	payload, err := json.Marshal(titles)
	if err != nil {
		return fmt.Errorf("序列化推荐缓存失败: %w", err)
	}
	if err := r.client.Set(ctx, recommendationKeyPrefix+strconv.Itoa(n), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("写入推荐缓存失败: %w", err)
	}
	return nil
}

// Invalidate drops every cached size, used when the catalog changes.
func (r *redisRecommendationCache) Invalidate(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, recommendationKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("扫描推荐缓存失败: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("清除推荐缓存失败: %w", err)
	}
	return nil
}
