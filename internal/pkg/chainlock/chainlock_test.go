package chainlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Locker = (*LocalLocker)(nil)
	_ Locker = (*RedisLocker)(nil)
)

func TestLockersThroughInterface(t *testing.T) {
	for name, locker := range map[string]Locker{
		"local": NewLocalLocker(),
		"redis": NewRedisLocker(nil, time.Second),
	} {
		unlock, err := locker.Lock(context.Background(), 7)
		require.NoError(t, err, name)
		require.NotNil(t, unlock, name)
		unlock()

		// 释放后可再次获取
		unlock, err = locker.Lock(context.Background(), 7)
		require.NoError(t, err, name)
		unlock()
	}
}

func TestLocalLockerMutualExclusion(t *testing.T) {
	locker := NewLocalLocker()
	var inside int32
	var maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), 1)
			if err != nil {
				t.Errorf("lock error: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, locker.size(), "空闲后应清理")
}

func TestLocalLockerDifferentTemplatesIndependent(t *testing.T) {
	locker := NewLocalLocker()
	unlockA, err := locker.Lock(context.Background(), 1)
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := locker.Lock(ctx, 2)
	require.NoError(t, err)
	unlockB()
}

func TestLocalLockerContextCancel(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Equal(t, 0, locker.size())
}

func TestRedisLockerWithoutClientDegradesToLocal(t *testing.T) {
	locker := NewRedisLocker(nil, 0)
	assert.Equal(t, defaultLockTTL, locker.ttl)

	unlock, err := locker.Lock(context.Background(), 3)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, 3)
	assert.Error(t, err, "同一模板应被进程内锁阻塞")

	unlock()
	unlock2, err := locker.Lock(context.Background(), 3)
	require.NoError(t, err)
	unlock2()
}

func TestNewRedisClientEmptyAddr(t *testing.T) {
	assert.Nil(t, NewRedisClient("", "", 0))
	assert.Equal(t, "recruitflow:chain-lock:42", lockKey(42))
}
