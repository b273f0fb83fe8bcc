package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/archive-bot-go/internal/server"
	"github.com/user/archive-bot-go/internal/store"
)

// Scheduler periodically refreshes the store-derived metrics gauges
type Scheduler struct {
	store    store.Store
	interval time.Duration
	running  atomic.Bool
	mu       sync.Mutex // prevents overlapping refreshes
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler instance
func NewScheduler(store store.Store, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic refresh loop
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	// Refresh once right away so the gauges aren't empty until the
	// first tick.
	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("Stats scheduler started")

	for {
		select {
		case <-ticker.C:
			s.refresh(ctx)
		case <-s.stopCh:
			log.Info().Msg("Stats scheduler stopped")
			return
		case <-ctx.Done():
			log.Info().Msg("Stats scheduler context cancelled")
			return
		}
	}
}

// refresh reads the current counts from the store and pushes them into
// the prometheus gauges
func (s *Scheduler) refresh(ctx context.Context) {
	if !s.mu.TryLock() {
		log.Warn().Msg("Stats refresh already running, skipping this trigger")
		return
	}
	defer s.mu.Unlock()

	s.running.Store(true)
	defer s.running.Store(false)

	subscribers, err := s.store.CountSubscribers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count subscribers")
		return
	}
	server.SetSubscriberCount(subscribers)

	total, succeeded, err := s.store.CountFileRecords(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count file records")
		return
	}
	server.SetFileRecordCounts(total, succeeded)
}

// Stop signals the scheduler to stop and waits for the loop to exit
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// IsRunning reports whether a refresh is currently in progress
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}
