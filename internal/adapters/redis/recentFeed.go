package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RecentFeedRedis آخرین انتشارهای هر کاربر در یک ZSET با کلید feed:<userID>
type RecentFeedRedis struct {
	Client *redis.Client
	Size   int64
}

func NewRecentFeedRedis(client *redis.Client, size int) *RecentFeedRedis {
	return &RecentFeedRedis{Client: client, Size: int64(size)}
}

func feedKey(userID string) string {
	return "feed:" + userID
}

// Push اضافه کردن postID و نگه داشتن فقط Size مورد آخر
func (r *RecentFeedRedis) Push(ctx context.Context, userID, postID string, at time.Time) error {
	key := feedKey(userID)
	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, &redis.Z{Score: float64(at.UnixMilli()), Member: postID})
		if r.Size > 0 {
			pipe.ZRemRangeByRank(ctx, key, 0, -(r.Size + 1))
		}
		return nil
	})
	return err
}

// Recent جدیدترین‌ها اول
func (r *RecentFeedRedis) Recent(ctx context.Context, userID string, start, limit int64) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	return r.Client.ZRevRange(ctx, feedKey(userID), start, start+limit-1).Result()
}
