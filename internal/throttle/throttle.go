// Package throttle 按客户端标识限制请求频率
package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// UnknownClient 请求未携带客户端标识时共用的标识
const UnknownClient = "unknown"

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle 每个客户端两次被接受的请求之间至少间隔 interval
//
// 每个标识一个 burst 为 1 的令牌桶；被拒绝的请求不消耗令牌，也不刷新记录。
// 检查和更新在同一把锁内完成，并发的两个请求不会同时通过。
type Throttle struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	interval time.Duration
	now      func() time.Time
}

// Option 配置 Throttle
type Option func(*Throttle)

// WithClock 替换时间源，用于测试
func WithClock(now func() time.Time) Option {
	return func(t *Throttle) {
		t.now = now
	}
}

// New 创建节流器；interval 为 0 时不限制
func New(interval time.Duration, opts ...Option) *Throttle {
	t := &Throttle{
		buckets:  make(map[string]*bucket),
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Allow 判断该客户端的请求是否可以进入
func (t *Throttle) Allow(client string) bool {
	if t.interval <= 0 {
		return true
	}
	if client == "" {
		client = UnknownClient
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, ok := t.buckets[client]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(t.interval), 1)}
		t.buckets[client] = b
	}
	if !b.limiter.AllowN(now, 1) {
		return false
	}
	b.lastSeen = now
	return true
}

// Sweep 删除至少一个间隔内没有被接受请求的记录，返回删除数量
//
// 这类记录的令牌桶已经回满，删除后与新建的记录行为一致。
func (t *Throttle) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for client, b := range t.buckets {
		if now.Sub(b.lastSeen) >= t.interval {
			delete(t.buckets, client)
			removed++
		}
	}
	return removed
}

// Len 当前记录数
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}

// Run 按周期清理空闲记录，直到 ctx 结束
func (t *Throttle) Run(ctx context.Context, every time.Duration, onSweep func(removed int)) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := t.Sweep()
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}
