package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/weibaohui/recruitflow/internal/model"
	"github.com/weibaohui/recruitflow/internal/pkg/metrics"
	"github.com/weibaohui/recruitflow/internal/repository"
	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"
)

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// Cached 为审批组目录加一层 TTL 缓存，并合并并发的相同查询
// ttl <= 0 时不缓存，只做查询合并
type Cached struct {
	upstream repository.GroupDirectory
	ttl      time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	groups  map[uint]cacheEntry[model.CodeApprovalGroup]
	members map[uint]cacheEntry[[]string]
	// gens 每次 Invalidate 递增，查询期间发生失效则不回填缓存
	gens map[uint]uint64

	sf singleflight.Group
}

func NewCached(upstream repository.GroupDirectory, ttl time.Duration) *Cached {
	return &Cached{
		upstream: upstream,
		ttl:      ttl,
		now:      time.Now,
		groups:   make(map[uint]cacheEntry[model.CodeApprovalGroup]),
		members:  make(map[uint]cacheEntry[[]string]),
		gens:     make(map[uint]uint64),
	}
}

func groupKey(groupID uint) string   { return fmt.Sprintf("group:%d", groupID) }
func membersKey(groupID uint) string { return fmt.Sprintf("members:%d", groupID) }

func (c *Cached) generation(groupID uint) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[groupID]
}

func (c *Cached) LookupGroup(ctx context.Context, groupID uint) (*model.CodeApprovalGroup, error) {
	c.mu.RLock()
	entry, ok := c.groups[groupID]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		metrics.DirectoryLookupsTotal.WithLabelValues("group", "hit").Inc()
		group := entry.value
		return &group, nil
	}
	metrics.DirectoryLookupsTotal.WithLabelValues("group", "miss").Inc()

	// 合并后的查询不随首个调用方取消
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := c.sf.Do(groupKey(groupID), func() (any, error) {
		gen := c.generation(groupID)
		group, err := c.upstream.LookupGroup(flightCtx, groupID)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			if c.gens[groupID] == gen {
				c.groups[groupID] = cacheEntry[model.CodeApprovalGroup]{value: *group, expiresAt: c.now().Add(c.ttl)}
			}
			c.mu.Unlock()
		}
		return *group, nil
	})
	if err != nil {
		return nil, err
	}
	group := v.(model.CodeApprovalGroup)
	return &group, nil
}

func (c *Cached) ListMembers(ctx context.Context, groupID uint) ([]string, error) {
	c.mu.RLock()
	entry, ok := c.members[groupID]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		metrics.DirectoryLookupsTotal.WithLabelValues("members", "hit").Inc()
		return append([]string(nil), entry.value...), nil
	}
	metrics.DirectoryLookupsTotal.WithLabelValues("members", "miss").Inc()

	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := c.sf.Do(membersKey(groupID), func() (any, error) {
		gen := c.generation(groupID)
		codes, err := c.upstream.ListMembers(flightCtx, groupID)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			if c.gens[groupID] == gen {
				c.members[groupID] = cacheEntry[[]string]{value: append([]string(nil), codes...), expiresAt: c.now().Add(c.ttl)}
			}
			c.mu.Unlock()
		}
		return codes, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

// Invalidate 审批组或成员变更后清除对应缓存
func (c *Cached) Invalidate(groupID uint) {
	c.mu.Lock()
	c.gens[groupID]++
	delete(c.groups, groupID)
	delete(c.members, groupID)
	c.mu.Unlock()
	// 之后的调用不再合并到失效前发起的查询
	c.sf.Forget(groupKey(groupID))
	c.sf.Forget(membersKey(groupID))
	klog.V(6).Infof("审批组目录缓存已失效: groupID=%d", groupID)
}
