package scheduler

import "time"

// Clock supplies time for wall-clock budget checks. Injected so solver runs
// are testable without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real-time clock.
func SystemClock() Clock { return systemClock{} }
