// Package ratelimit implements per-provider fixed-window call budgets for
// outbound registry requests.
package ratelimit

import (
	"sync"
	"time"

	"github.com/ehr/refdata/internal/platform/clock"
)

// DefaultWindow is the window length used when none is configured.
const DefaultWindow = time.Minute

// WindowState is a snapshot of one provider's window.
type WindowState struct {
	CallsMade     int       `json:"calls_made"`
	MaxCalls      int       `json:"max_calls"`
	WindowResetAt time.Time `json:"window_reset_at"`
}

// Limiter tracks a fixed window per provider. When the clock passes a
// provider's reset time the whole window resets at once, so bursts across a
// boundary are possible.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	clock   clock.Clock
	windows map[string]*WindowState
}

// New creates a Limiter with the given per-provider maxima. Providers absent
// from limits are not limited.
func New(window time.Duration, limits map[string]int, clk clock.Clock) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if clk == nil {
		clk = clock.System{}
	}
	now := clk.Now()
	windows := make(map[string]*WindowState, len(limits))
	for provider, max := range limits {
		windows[provider] = &WindowState{MaxCalls: max, WindowResetAt: now.Add(window)}
	}
	return &Limiter{window: window, clock: clk, windows: windows}
}

// roll resets w if its window has elapsed. Must be called with mu held.
func (l *Limiter) roll(w *WindowState) {
	now := l.clock.Now()
	if now.After(w.WindowResetAt) {
		w.CallsMade = 0
		w.WindowResetAt = now.Add(l.window)
	}
}

// CanCall reports whether provider has budget left in its current window.
func (l *Limiter) CanCall(provider string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[provider]
	if !ok {
		return true
	}
	l.roll(w)
	return w.CallsMade < w.MaxCalls
}

// RecordCall counts one attempted call against provider. Only live call
// attempts are recorded; cache hits and fallback results are not.
func (l *Limiter) RecordCall(provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[provider]
	if !ok {
		return
	}
	l.roll(w)
	if w.CallsMade < w.MaxCalls {
		w.CallsMade++
	}
}

// Acquire checks and records in one step. It returns false without recording
// when the window is exhausted, so concurrent callers can never push
// CallsMade past MaxCalls.
func (l *Limiter) Acquire(provider string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[provider]
	if !ok {
		return true
	}
	l.roll(w)
	if w.CallsMade >= w.MaxCalls {
		return false
	}
	w.CallsMade++
	return true
}

// Status returns the current window for provider after applying any pending
// reset.
func (l *Limiter) Status(provider string) (WindowState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[provider]
	if !ok {
		return WindowState{}, false
	}
	l.roll(w)
	return *w, true
}

// Snapshot returns Status for every configured provider.
func (l *Limiter) Snapshot() map[string]WindowState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]WindowState, len(l.windows))
	for provider, w := range l.windows {
		l.roll(w)
		out[provider] = *w
	}
	return out
}
