package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UnlockScheduler arms one-shot timers that auto-open closed capsules
// at their open date. At most one live timer exists per capsule.
type UnlockScheduler interface {
	// Schedule arms a timer for the capsule, replacing any existing one.
	Schedule(capsuleID uuid.UUID, fireAt time.Time)
	// Cancel drops any pending timer for the capsule. No-op if none.
	Cancel(capsuleID uuid.UUID)
}

// OpenFunc performs the auto-open transition for a capsule. It must
// re-check persisted state itself; the scheduler only decides when to
// call it, not whether the transition is still valid.
type OpenFunc func(ctx context.Context, capsuleID uuid.UUID)

// TimerScheduler implements UnlockScheduler with a timer per capsule.
// Each map entry carries a generation number so a callback whose timer
// was cancelled or replaced after it already expired recognizes itself
// as stale and does nothing.
type TimerScheduler struct {
	clock Clock

	mu     sync.Mutex
	gen    uint64
	timers map[uuid.UUID]timerEntry
	open   OpenFunc
}

type timerEntry struct {
	timer *time.Timer
	gen   uint64
}

func NewTimerScheduler(clock Clock) *TimerScheduler {
	return &TimerScheduler{
		clock:  clock,
		timers: make(map[uuid.UUID]timerEntry),
	}
}

// SetOpenFunc sets the auto-open callback. Must be called before any
// timer fires; split from the constructor because the lifecycle service
// and the scheduler reference each other.
func (s *TimerScheduler) SetOpenFunc(fn OpenFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = fn
}

// Schedule arms the capsule's timer. A fireAt already in the past
// fires immediately: Lock always supplies a future date, but startup
// restoration passes open dates that expired while the process was
// down.
func (s *TimerScheduler) Schedule(capsuleID uuid.UUID, fireAt time.Time) {
	delay := fireAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[capsuleID]; ok {
		prev.timer.Stop()
	}

	s.gen++
	gen := s.gen
	s.timers[capsuleID] = timerEntry{
		gen: gen,
		timer: time.AfterFunc(delay, func() {
			s.fire(capsuleID, gen)
		}),
	}
}

func (s *TimerScheduler) Cancel(capsuleID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.timers[capsuleID]; ok {
		entry.timer.Stop()
		delete(s.timers, capsuleID)
	}
}

// Pending reports whether a timer is currently armed for the capsule.
func (s *TimerScheduler) Pending(capsuleID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[capsuleID]
	return ok
}

func (s *TimerScheduler) fire(capsuleID uuid.UUID, gen uint64) {
	s.mu.Lock()
	entry, ok := s.timers[capsuleID]
	if !ok || entry.gen != gen {
		// Stop() lost to the expiry: the timer this callback belongs to
		// was cancelled or replaced after the fire was already queued.
		s.mu.Unlock()
		return
	}
	delete(s.timers, capsuleID)
	open := s.open
	s.mu.Unlock()

	if open == nil {
		log.Printf("scheduler: no open func set, dropping fire for %s", capsuleID)
		return
	}
	open(context.Background(), capsuleID)
}
