package queue

import (
	"fmt"
	"sync"
	"time"
)

// FormatElapsed renders a duration for the kitchen display, which refreshes
// every second: second granularity below one minute, minutes and seconds up
// to ten minutes, then whole minutes so long-running items stop flickering.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 10*60:
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	case secs < 60*60:
		return fmt.Sprintf("%dm", secs/60)
	default:
		return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
	}
}

// ParseCache memoizes RFC3339 timestamp parsing keyed by the raw wire
// string. Board renders re-parse the same few dozen timestamps once a
// second; the cache is flushed wholesale when it outgrows its bound so it
// cannot grow with the lifetime of the process.
type ParseCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	max     int
}

func NewParseCache(max int) *ParseCache {
	if max <= 0 {
		max = 256
	}
	return &ParseCache{entries: make(map[string]time.Time), max: max}
}

func (c *ParseCache) Parse(raw string) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.entries[raw]; ok {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	if len(c.entries) >= c.max {
		c.entries = make(map[string]time.Time)
	}
	c.entries[raw] = t
	return t, nil
}

func (c *ParseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
