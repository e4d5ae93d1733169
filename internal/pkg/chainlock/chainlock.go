package chainlock

import (
	"context"
	"sync"
)

// Locker 按模板串行化审批链变更
type Locker interface {
	Lock(ctx context.Context, templateID uint) (func(), error)
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// LocalLocker 进程内按模板ID加锁，等待时响应 ctx 取消
type LocalLocker struct {
	mu      sync.Mutex
	entries map[uint]*localEntry
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{entries: make(map[uint]*localEntry)}
}

func (l *LocalLocker) Lock(ctx context.Context, templateID uint) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[templateID]
	if !ok {
		entry = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[templateID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(templateID, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.release(templateID, entry)
		})
	}, nil
}

func (l *LocalLocker) release(templateID uint, entry *localEntry) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, templateID)
	}
	l.mu.Unlock()
}

// size 当前持有或等待中的模板数
func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
