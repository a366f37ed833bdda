package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paiban/crewdispatch/pkg/logger"
	"github.com/paiban/crewdispatch/pkg/model"
)

// CachedEstimator 使用 Redis 缓存距离结果
type CachedEstimator struct {
	client *redis.Client
	next   Estimator
	ttl    time.Duration
	prefix string
}

// NewCachedEstimator 创建带缓存的估算器
func NewCachedEstimator(client *redis.Client, next Estimator, ttl time.Duration) *CachedEstimator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedEstimator{
		client: client,
		next:   next,
		ttl:    ttl,
		prefix: "crewdispatch:distance:",
	}
}

// Estimate 先查缓存，未命中时调用下游估算器并写回
// Redis 不可用时直接透传到下游
func (c *CachedEstimator) Estimate(ctx context.Context, a, b model.Location) (float64, error) {
	key := c.prefix + PairKey(a, b)

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if miles, perr := strconv.ParseFloat(val, 64); perr == nil {
			return miles, nil
		}
	case !errors.Is(err, redis.Nil):
		logger.Warn().Err(err).Str("key", key).Msg("距离缓存读取失败")
	}

	miles, err := c.next.Estimate(ctx, a, b)
	if err != nil {
		return 0, err
	}

	if err := c.client.Set(ctx, key, strconv.FormatFloat(miles, 'f', 3, 64), c.ttl).Err(); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("距离缓存写入失败")
	}
	return miles, nil
}

// Name 实现 Estimator
func (c *CachedEstimator) Name() string {
	return "cached(" + c.next.Name() + ")"
}

// PairKey 无序位置对的缓存键
func PairKey(a, b model.Location) string {
	ka, kb := locationKey(a), locationKey(b)
	if kb < ka {
		ka, kb = kb, ka
	}
	return ka + "|" + kb
}

func locationKey(l model.Location) string {
	if l.HasCoordinates() {
		// 保留4位小数，约11米精度
		return fmt.Sprintf("%.4f,%.4f", round4(l.Latitude), round4(l.Longitude))
	}
	if zip := l.ZipCode(); zip != "" {
		return "zip:" + zip
	}
	return "unknown"
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
