package service

import "time"

// Clock abstracts wall-clock time so lock validation, countdowns and
// timer scheduling are testable.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return realClock{} }
