package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const throttleIdle = 15 * time.Minute

// loginThrottle limits failed login attempts per username and remote host.
// Successful logins are never counted.
type loginThrottle struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	entries map[string]*throttleEntry
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newLoginThrottle allows burst failures, refilled at one per every.
func newLoginThrottle(every time.Duration, burst int) *loginThrottle {
	return &loginThrottle{
		limit:   rate.Every(every),
		burst:   burst,
		entries: make(map[string]*throttleEntry),
	}
}

func throttleKey(r *http.Request, username string) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return username + "@" + host
}

func (t *loginThrottle) limiter(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for k, e := range t.entries {
		if now.Sub(e.lastSeen) > throttleIdle {
			delete(t.entries, k)
		}
	}

	e, ok := t.entries[key]
	if !ok {
		e = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// blocked reports whether key has used up its failed attempts.
func (t *loginThrottle) blocked(key string) bool {
	return t.limiter(key).Tokens() < 1
}

func (t *loginThrottle) failed(key string) {
	t.limiter(key).Allow()
}
