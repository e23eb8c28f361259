// pkg/stream/ratelimit.go
package stream

import (
	"net"
	"sync"
	"time"
)

// connectLimiter is a token bucket per remote host. Each host may open
// perWindow connections at once and regains them evenly over window.
type connectLimiter struct {
	perWindow float64
	window    time.Duration
	now       func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	cleanupTick *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// newConnectLimiter returns nil when perWindow is not positive, which
// allows every connection.
func newConnectLimiter(perWindow int, window time.Duration) *connectLimiter {
	if perWindow <= 0 || window <= 0 {
		return nil
	}
	l := &connectLimiter{
		perWindow:   float64(perWindow),
		window:      window,
		now:         time.Now,
		buckets:     make(map[string]*bucket),
		cleanupTick: time.NewTicker(window),
		done:        make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow takes a token for the host part of remoteAddr
func (l *connectLimiter) Allow(remoteAddr string) bool {
	if l == nil {
		return true
	}
	host := remoteHost(remoteAddr)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[host]
	if !ok {
		b = &bucket{tokens: l.perWindow, lastSeen: now}
		l.buckets[host] = b
	}

	if elapsed := now.Sub(b.lastSeen); elapsed > 0 {
		b.tokens += l.perWindow * float64(elapsed) / float64(l.window)
		if b.tokens > l.perWindow {
			b.tokens = l.perWindow
		}
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Hosts returns the number of tracked hosts
func (l *connectLimiter) Hosts() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *connectLimiter) cleanup() {
	for {
		select {
		case <-l.cleanupTick.C:
			l.forgetIdle()
		case <-l.done:
			return
		}
	}
}

// forgetIdle drops hosts not seen for two windows. Their buckets would
// be full again anyway.
func (l *connectLimiter) forgetIdle() {
	cutoff := l.now().Add(-2 * l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for host, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, host)
		}
	}
}

// Close stops the cleanup goroutine
func (l *connectLimiter) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		close(l.done)
		l.cleanupTick.Stop()
	})
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
