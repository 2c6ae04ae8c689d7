package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// SourceLimit caps requests to one upstream data source across every
// screener process sharing the Redis instance
type SourceLimit struct {
	Source string // "fmp", "yahoo"
	Limit  int
	Window time.Duration
}

// pause is how long Wait sleeps between denied attempts
func (s SourceLimit) pause() time.Duration {
	if s.Limit <= 0 {
		return s.Window
	}
	p := s.Window / time.Duration(s.Limit)
	if p < 10*time.Millisecond {
		p = 10 * time.Millisecond
	}
	return p
}

// Upstream limits used by the ingest pipeline
var (
	// FMP 무료 플랜 분당 250회 → 분당 200회로 운영
	FMPLimit = SourceLimit{Source: "fmp", Limit: 200, Window: time.Minute}

	// Yahoo 통계 페이지 스크래핑: 초당 1회
	YahooLimit = SourceLimit{Source: "yahoo", Limit: 1, Window: time.Second}
)

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed   bool
	Remaining int
}

// slidingWindow trims the window, counts it and admits the caller when
// there is room. KEYS[1]=window ARGV=now_ms, limit, window_ms, member
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local window = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
if count >= limit then
	return {0, 0}
end
redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, limit - count - 1}
`)

// RateLimiter is a Redis sliding-window limiter keyed per source
// ⭐ SSOT: 외부 API 호출 제한은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
	seq    atomic.Uint64
}

// NewRateLimiter keys windows under "<prefix>:ratelimit:<source>"
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

// Allow records one request against limit if the window has room.
// Redis 비활성화 시 항상 허용
func (r *RateLimiter) Allow(ctx context.Context, limit SourceLimit) (Decision, error) {
	if limit.Limit <= 0 || limit.Window <= 0 {
		return Decision{}, fmt.Errorf("rate limit %q: limit and window must be positive", limit.Source)
	}
	if !r.client.Enabled() {
		return Decision{Allowed: true, Remaining: limit.Limit}, nil
	}

	now := time.Now().UnixMilli()
	// 같은 밀리초의 요청이 하나로 합쳐지지 않도록 member에 순번을 붙임
	member := strconv.FormatInt(now, 10) + "-" + strconv.FormatUint(r.seq.Add(1), 10)
	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, limit.Source)

	res, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		now, limit.Limit, limit.Window.Milliseconds(), member,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", limit.Source, err)
	}
	if len(res) != 2 {
		return Decision{}, errors.New("rate limit: unexpected script reply")
	}
	return Decision{Allowed: res[0] == 1, Remaining: int(res[1])}, nil
}

// Wait blocks until limit admits a request or ctx ends
func (r *RateLimiter) Wait(ctx context.Context, limit SourceLimit) error {
	for {
		d, err := r.Allow(ctx, limit)
		if err != nil {
			return err
		}
		if d.Allowed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(limit.pause()):
		}
	}
}
