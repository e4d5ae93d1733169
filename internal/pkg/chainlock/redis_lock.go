package chainlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"
)

const (
	defaultLockTTL   = 10 * time.Second
	defaultRetryWait = 50 * time.Millisecond
	keyPrefix        = "recruitflow:chain-lock:"
)

// 只有持有锁的实例才能释放
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// 只有持有锁的实例才能续期
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// RedisLocker 先取进程内锁再取 Redis 锁，多实例部署时串行化同一模板的变更
// client 为 nil 时降级为单机模式，只使用进程内锁
type RedisLocker struct {
	client    redis.UniversalClient
	local     *LocalLocker
	ttl       time.Duration
	retryWait time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{
		client:    client,
		local:     NewLocalLocker(),
		ttl:       ttl,
		retryWait: defaultRetryWait,
	}
}

func lockKey(templateID uint) string {
	return fmt.Sprintf("%s%d", keyPrefix, templateID)
}

func (l *RedisLocker) Lock(ctx context.Context, templateID uint) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if l.client == nil {
		return unlockLocal, nil
	}

	key := lockKey(templateID)
	token := uuid.New().String()
	if err := l.acquire(ctx, key, token); err != nil {
		unlockLocal()
		return nil, err
	}

	renewCtx, cancel := context.WithCancel(context.Background())
	go l.autoRenew(renewCtx, key, token)

	return func() {
		cancel()
		result, err := releaseScript.Run(context.Background(), l.client, []string{key}, token).Int64()
		if err != nil {
			klog.Errorf("释放审批链锁失败: key=%s, error=%v", key, err)
		} else if result == 0 {
			klog.Warningf("审批链锁已不属于当前实例: key=%s", key)
		}
		unlockLocal()
	}, nil
}

// acquire 使用 SET NX PX 轮询获取锁，直到成功或 ctx 结束
func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire chain lock: %w", err)
		}
		if ok {
			klog.V(6).Infof("获取审批链锁: key=%s", key)
			return nil
		}
		timer := time.NewTimer(l.retryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("failed to acquire chain lock: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// autoRenew 每隔 ttl/3 续期一次
func (l *RedisLocker) autoRenew(ctx context.Context, key, token string) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			result, err := renewScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int64()
			if err != nil {
				if ctx.Err() == nil {
					klog.Warningf("审批链锁续期失败: key=%s, error=%v", key, err)
				}
				return
			}
			if result == 0 {
				klog.Warningf("审批链锁已丢失，停止续期: key=%s", key)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// NewRedisClient addr 为空时返回 nil，调用方据此降级
func NewRedisClient(addr, password string, db int) redis.UniversalClient {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
