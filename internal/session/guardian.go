package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Guardian tracks liveness for the single process-wide session and owns the
// mutual-exclusion gate that serializes replies, manual resets and watchdog
// wipes. The pipeline never runs outside this gate, so an inactivity wipe
// can never interleave with an in-flight reply's writes.
type Guardian struct {
	mu              sync.Mutex
	inactivityLimit time.Duration
	lastActivity    time.Time
	expired         bool
	onWipe          func(reason string)
}

func NewGuardian(inactivityLimit time.Duration) *Guardian {
	if inactivityLimit <= 0 {
		inactivityLimit = 5 * time.Minute
	}
	return &Guardian{
		inactivityLimit: inactivityLimit,
		lastActivity:    time.Now().UTC(),
	}
}

// SetWipeHook registers the wipe operation (turn documents, summary record,
// audio workspace). The hook runs while the gate is held.
func (g *Guardian) SetWipeHook(hook func(reason string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onWipe = hook
}

// RunReply acquires the gate and invokes fn unless the session has expired.
// An expired session gets its wipe confirmed and returns to active without
// running fn; the caller reports "session expired, no reply produced".
func (g *Guardian) RunReply(fn func()) (expired bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.expired {
		g.wipeLocked("expired")
		g.expired = false
		g.lastActivity = time.Now().UTC()
		return true
	}

	g.lastActivity = time.Now().UTC()
	fn()
	g.lastActivity = time.Now().UTC()
	return false
}

// Reset wipes unconditionally and returns the session to active.
func (g *Guardian) Reset(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if strings.TrimSpace(reason) == "" {
		reason = "manual"
	}
	g.wipeLocked(reason)
	g.expired = false
	g.lastActivity = time.Now().UTC()
}

func (g *Guardian) Expired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.expired
}

func (g *Guardian) LastActivity() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActivity
}

// StartWatchdog runs the periodic inactivity check until ctx is cancelled.
func (g *Guardian) StartWatchdog(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.expireIfInactive()
			}
		}
	}()
}

func (g *Guardian) expireIfInactive() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.expired {
		return
	}
	if time.Since(g.lastActivity) < g.inactivityLimit {
		return
	}
	// The timestamp is deliberately not refreshed here: the session stays
	// expired until the next accepted request touches it.
	g.expired = true
	g.wipeLocked("inactivity")
}

func (g *Guardian) wipeLocked(reason string) {
	if g.onWipe != nil {
		g.onWipe(reason)
	}
}
