package tui

import (
	"sync"
	"time"
)

// flash holds one transient notification.
type flash struct {
	mu      sync.RWMutex
	message string
	expires time.Time
	now     func() time.Time
}

func (f *flash) clock() time.Time {
	if f.now == nil {
		return time.Now()
	}
	return f.now()
}

// Set stores msg until d has passed.
func (f *flash) Set(msg string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.message = msg
	f.expires = f.clock().Add(d)
}

// Get returns the current message, or "" once it expired.
func (f *flash) Get() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.clock().Before(f.expires) {
		return ""
	}
	return f.message
}
