package redisserver

import (
	"context"
	"time"

	"github.com/yndnr/respd-go/internal/dispatch"
)

// alwaysExempt are never delayed, whatever the configured exemption list.
var alwaysExempt = []string{"ping", "command"}

// throttle delays commands by a fixed amount. Exempt commands, matched by
// their normalized name, run without delay.
type throttle struct {
	delay  time.Duration
	exempt map[string]struct{}
}

func newThrottle(delay time.Duration, exempt []string) *throttle {
	t := &throttle{delay: delay, exempt: make(map[string]struct{}, len(exempt)+len(alwaysExempt))}
	for _, name := range alwaysExempt {
		t.exempt[name] = struct{}{}
	}
	for _, name := range exempt {
		t.exempt[string(dispatch.NormalizeName([]byte(name)))] = struct{}{}
	}
	return t
}

// applies reports whether a command named name is delayed.
func (t *throttle) applies(name []byte) bool {
	if t == nil || t.delay <= 0 || len(name) == 0 {
		return false
	}
	_, ok := t.exempt[string(dispatch.NormalizeName(name))]
	return !ok
}

// wait sleeps for the delay. It returns early when ctx ends or stop is
// closed.
func (t *throttle) wait(ctx context.Context, stop <-chan struct{}) {
	timer := time.NewTimer(t.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-stop:
	}
}
