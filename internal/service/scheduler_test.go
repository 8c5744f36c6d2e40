package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/kapsula/internal/service"
)

// fireCollector counts OpenFunc invocations per capsule.
type fireCollector struct {
	mu    sync.Mutex
	fires map[uuid.UUID]int
	done  chan uuid.UUID
}

func newFireCollector() *fireCollector {
	return &fireCollector{
		fires: make(map[uuid.UUID]int),
		done:  make(chan uuid.UUID, 16),
	}
}

func (c *fireCollector) open(_ context.Context, capsuleID uuid.UUID) {
	c.mu.Lock()
	c.fires[capsuleID]++
	c.mu.Unlock()
	c.done <- capsuleID
}

func (c *fireCollector) count(capsuleID uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fires[capsuleID]
}

func (c *fireCollector) waitForFire(t *testing.T) uuid.UUID {
	t.Helper()
	select {
	case id := <-c.done:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
		return uuid.Nil
	}
}

func TestTimerSchedulerFiresOnce(t *testing.T) {
	collector := newFireCollector()
	sched := service.NewTimerScheduler(service.SystemClock())
	sched.SetOpenFunc(collector.open)

	id := uuid.New()
	sched.Schedule(id, time.Now().Add(20*time.Millisecond))

	fired := collector.waitForFire(t)
	assert.Equal(t, id, fired)
	assert.Equal(t, 1, collector.count(id))
	assert.False(t, sched.Pending(id), "fired timer must be removed")
}

func TestTimerSchedulerReplacesExistingTimer(t *testing.T) {
	collector := newFireCollector()
	sched := service.NewTimerScheduler(service.SystemClock())
	sched.SetOpenFunc(collector.open)

	id := uuid.New()
	// First timer far out; the replacement fires much sooner.
	sched.Schedule(id, time.Now().Add(time.Hour))
	sched.Schedule(id, time.Now().Add(20*time.Millisecond))

	collector.waitForFire(t)

	// Give the (replaced) first timer a moment to prove it's dead.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, collector.count(id))
}

func TestTimerSchedulerCancel(t *testing.T) {
	collector := newFireCollector()
	sched := service.NewTimerScheduler(service.SystemClock())
	sched.SetOpenFunc(collector.open)

	id := uuid.New()
	sched.Schedule(id, time.Now().Add(30*time.Millisecond))
	require.True(t, sched.Pending(id))
	sched.Cancel(id)
	assert.False(t, sched.Pending(id))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, collector.count(id))

	// Cancelling again is a no-op.
	sched.Cancel(id)
}

func TestTimerSchedulerPastFireTimeFiresImmediately(t *testing.T) {
	collector := newFireCollector()
	sched := service.NewTimerScheduler(service.SystemClock())
	sched.SetOpenFunc(collector.open)

	id := uuid.New()
	sched.Schedule(id, time.Now().Add(-time.Minute))

	collector.waitForFire(t)
	assert.Equal(t, 1, collector.count(id))
}

func TestTimerSchedulerIndependentCapsules(t *testing.T) {
	collector := newFireCollector()
	sched := service.NewTimerScheduler(service.SystemClock())
	sched.SetOpenFunc(collector.open)

	a := uuid.New()
	b := uuid.New()
	sched.Schedule(a, time.Now().Add(20*time.Millisecond))
	sched.Schedule(b, time.Now().Add(30*time.Millisecond))
	sched.Cancel(a)

	collector.waitForFire(t)
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 0, collector.count(a))
	assert.Equal(t, 1, collector.count(b))
}
