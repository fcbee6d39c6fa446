// Package watchdog tracks command inactivity.
package watchdog

import "time"

type Watchdog struct {
	timeout time.Duration
	last    time.Time
}

// New starts a watchdog whose idle period begins at now.
func New(timeout time.Duration, now time.Time) *Watchdog {
	return &Watchdog{timeout: timeout, last: now}
}

// Touch records activity at now.
func (w *Watchdog) Touch(now time.Time) {
	w.last = now
}

// Expired reports whether more than the timeout has passed since the last
// activity. A non-positive timeout never expires.
func (w *Watchdog) Expired(now time.Time) bool {
	if w.timeout <= 0 {
		return false
	}
	return now.Sub(w.last) > w.timeout
}

func (w *Watchdog) Idle(now time.Time) time.Duration {
	return now.Sub(w.last)
}

func (w *Watchdog) Timeout() time.Duration {
	return w.timeout
}
