package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/paiban/crewdispatch/pkg/errors"
	"github.com/paiban/crewdispatch/pkg/logger"
)

// RateLimiter 滑动窗口频率限制器，按客户端地址计数
type RateLimiter struct {
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
	mu       sync.Mutex
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter 创建频率限制器，limit<=0 表示不限制
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if limit > 0 {
		go rl.cleanup()
	}
	return rl
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.prune(rl.requests[key], now)
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

// prune 丢弃窗口外的请求时间
func (rl *RateLimiter) prune(reqs []time.Time, now time.Time) []time.Time {
	windowStart := now.Add(-rl.window)
	i := 0
	for i < len(reqs) && !reqs[i].After(windowStart) {
		i++
	}
	return reqs[i:]
}

// Stop 停止清理协程
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, reqs := range rl.requests {
				if valid := rl.prune(reqs, now); len(valid) == 0 {
					delete(rl.requests, key)
				} else {
					rl.requests[key] = valid
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware 超限时返回429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !rl.Allow(key) {
			logger.WithContext(r.Context()).Warn().Str("client", key).Msg("请求频率超限")
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeError(w, apperrors.New(apperrors.CodeRateLimited, "rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
