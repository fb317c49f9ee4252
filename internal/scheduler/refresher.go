// Package scheduler runs periodic lifecycle maintenance for the daemon.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Lifecycle is the store surface the refresher drives.
type Lifecycle interface {
	RefreshLifecycle(now int64) (int, error)
}

// Refresher periodically wakes routine tasks whose next occurrence has
// entered its lead-time window. Reads already refresh on demand; the
// loop exists so long-running daemons stay current between requests.
type Refresher struct {
	store    Lifecycle
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// DefaultInterval is how often the refresher polls.
const DefaultInterval = time.Minute

// New creates a refresher. A zero interval uses DefaultInterval.
func New(store Lifecycle, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		store:    store,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the refresh loop.
func (r *Refresher) Start() {
	r.wg.Add(1)
	go r.loop()
	log.Println("Lifecycle refresher started")
}

// Stop gracefully stops the refresh loop.
func (r *Refresher) Stop() {
	r.cancel()
	r.wg.Wait()
	log.Println("Lifecycle refresher stopped")
}

func (r *Refresher) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			woken, err := r.store.RefreshLifecycle(0)
			if err != nil {
				log.Printf("Lifecycle refresh error: %v", err)
				continue
			}
			if woken > 0 {
				log.Printf("Woke %d routine tasks", woken)
			}
		}
	}
}
