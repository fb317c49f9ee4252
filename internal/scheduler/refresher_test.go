package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeLifecycle struct {
	mu    sync.Mutex
	calls int
	woken int
	err   error
}

func (f *fakeLifecycle) RefreshLifecycle(now int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.woken, f.err
}

func (f *fakeLifecycle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRefresherPolls(t *testing.T) {
	fake := &fakeLifecycle{woken: 1}
	r := New(fake, 10*time.Millisecond)

	r.Start()
	time.Sleep(60 * time.Millisecond)
	r.Stop()

	if fake.callCount() == 0 {
		t.Error("refresher never polled the store")
	}
}

func TestRefresherKeepsRunningAfterError(t *testing.T) {
	fake := &fakeLifecycle{err: errors.New("db closed")}
	r := New(fake, 10*time.Millisecond)

	r.Start()
	time.Sleep(60 * time.Millisecond)
	r.Stop()

	if fake.callCount() < 2 {
		t.Errorf("refresher stopped after an error: %d calls", fake.callCount())
	}
}

func TestRefresherStopIsIdempotentlySafe(t *testing.T) {
	r := New(&fakeLifecycle{}, time.Hour)
	r.Start()

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestZeroIntervalUsesDefault(t *testing.T) {
	r := New(&fakeLifecycle{}, 0)
	if r.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", r.interval, DefaultInterval)
	}
}
