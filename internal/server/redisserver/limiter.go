package redisserver

import (
	"golang.org/x/time/rate"

	"github.com/yndnr/respd-go/pkg/cmap"
)

type ipLimiter struct {
	limiter *rate.Limiter
	refs    int
}

// limiterSet hands out one token bucket per client IP, shared by all
// connections from that IP. An entry lives while a connection uses it.
type limiterSet struct {
	limit rate.Limit
	burst int
	m     *cmap.Map[string, *ipLimiter]
}

func newLimiterSet(perSecond, burst int) *limiterSet {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = perSecond
	}
	return &limiterSet{
		limit: rate.Limit(perSecond),
		burst: burst,
		m:     cmap.New[string, *ipLimiter](),
	}
}

// acquire returns the limiter for ip, creating it on first use. Each call
// must be paired with release.
func (s *limiterSet) acquire(ip string) *rate.Limiter {
	if s == nil {
		return nil
	}
	entry, _ := s.m.Compute(ip, func(cur *ipLimiter, exists bool) (*ipLimiter, bool) {
		if !exists {
			cur = &ipLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		}
		cur.refs++
		return cur, true
	})
	return entry.limiter
}

func (s *limiterSet) release(ip string) {
	if s == nil {
		return
	}
	s.m.Compute(ip, func(cur *ipLimiter, exists bool) (*ipLimiter, bool) {
		if !exists {
			return nil, false
		}
		cur.refs--
		return cur, cur.refs > 0
	})
}

func (s *limiterSet) len() int {
	if s == nil {
		return 0
	}
	return s.m.Count()
}
