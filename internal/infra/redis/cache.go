package redis

import (
	"context"
	"encoding/json"
	"time"

	"lotto-server/common/logger"

	"go.uber.org/zap"
)

// 尽力而为的缓存读写：Redis 未初始化或失败时记日志后继续，
// 绝不把缓存故障上抛给业务（开奖提交后尤其不能被缓存失败拖垮）

// SetJSON 序列化后写入缓存
func SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if rdb == nil {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// GetJSON 读取并反序列化；未命中或失败返回 false
func GetJSON(ctx context.Context, key string, out any) bool {
	if rdb == nil {
		return false
	}
	b, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		logger.Warn("cache unmarshal failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Del 删除一组 Key
func Del(ctx context.Context, keys ...string) {
	if rdb == nil || len(keys) == 0 {
		return
	}
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("cache del failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
