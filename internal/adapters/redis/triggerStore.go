package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"crosspost/internal/ports/trigger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	dueKey      = "triggers:due"      // score = زمان اجرا (ms)
	inflightKey = "triggers:inflight" // score = پایان lease (ms)
)

// acquireScript ابتدا leaseهای منقضی‌شده را به صف برمی‌گرداند، سپس triggerهای سررسیدشده را
// به صورت اتمیک از due به inflight منتقل می‌کند. خروجی: [id, fireAt, id, fireAt, ...]
var acquireScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', '(' .. ARGV[1])
for _, id in ipairs(expired) do
  redis.call('ZREM', KEYS[2], id)
  redis.call('ZADD', KEYS[1], 'NX', ARGV[1], id)
end
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'WITHSCORES', 'LIMIT', 0, tonumber(ARGV[2]))
local out = {}
for i = 1, #due, 2 do
  redis.call('ZREM', KEYS[1], due[i])
  redis.call('ZADD', KEYS[2], ARGV[3], due[i])
  table.insert(out, due[i])
  table.insert(out, due[i + 1])
end
return out
`)

// releaseScript فقط leaseی را حذف می‌کند که توکنش هنوز معتبر است
var releaseScript = redis.NewScript(`
local s = redis.call('ZSCORE', KEYS[1], ARGV[1])
if s and tonumber(s) == tonumber(ARGV[2]) then
  return redis.call('ZREM', KEYS[1], ARGV[1])
end
return 0
`)

// TriggerStoreRedis پیاده‌سازی trigger.Source با دو ZSET
type TriggerStoreRedis struct {
	Client *redis.Client
	Lease  time.Duration
	Logger *zap.Logger
}

func NewTriggerStoreRedis(client *redis.Client, lease time.Duration, logger *zap.Logger) *TriggerStoreRedis {
	return &TriggerStoreRedis{Client: client, Lease: lease, Logger: logger}
}

var _ trigger.Source = (*TriggerStoreRedis)(nil)

func millis(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// Create trigger را در due قرار می‌دهد و lease فعلی (اگر باشد) را باطل می‌کند
func (s *TriggerStoreRedis) Create(ctx context.Context, postID string, fireAt time.Time) error {
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, dueKey, &redis.Z{Score: millis(fireAt), Member: postID})
		pipe.ZRem(ctx, inflightKey, postID)
		return nil
	})
	return err
}

func (s *TriggerStoreRedis) Cancel(ctx context.Context, postID string) error {
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, dueKey, postID)
		pipe.ZRem(ctx, inflightKey, postID)
		return nil
	})
	return err
}

func (s *TriggerStoreRedis) Exists(ctx context.Context, postID string) (bool, error) {
	for _, key := range []string{dueKey, inflightKey} {
		_, err := s.Client.ZScore(ctx, key, postID).Result()
		if err == nil {
			return true, nil
		}
		if err != redis.Nil {
			return false, err
		}
	}
	return false, nil
}

func (s *TriggerStoreRedis) Acquire(ctx context.Context, now time.Time, limit int) ([]trigger.Lease, error) {
	nowMs := now.UnixMilli()
	until := now.Add(s.Lease).UnixMilli()
	res, err := acquireScript.Run(ctx, s.Client,
		[]string{dueKey, inflightKey},
		nowMs, limit, until,
	).Result()
	if err != nil {
		return nil, err
	}

	raw, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("acquire: unexpected reply %T", res)
	}
	token := strconv.FormatInt(until, 10)
	leases := make([]trigger.Lease, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		id, _ := raw[i].(string)
		score, _ := raw[i+1].(string)
		ms, err := strconv.ParseFloat(score, 64)
		if err != nil {
			s.Logger.Warn("bad trigger score", zap.String("postID", id), zap.String("score", score))
		}
		leases = append(leases, trigger.Lease{
			PostID: id,
			Token:  token,
			FireAt: time.UnixMilli(int64(ms)).UTC(),
		})
	}
	return leases, nil
}

func (s *TriggerStoreRedis) Release(ctx context.Context, lease trigger.Lease) error {
	return releaseScript.Run(ctx, s.Client, []string{inflightKey}, lease.PostID, lease.Token).Err()
}
