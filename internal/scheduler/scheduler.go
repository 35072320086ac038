package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher re-fetches external student data and notifies affected chats.
type Refresher interface {
	RefreshProgress(ctx context.Context) error
}

// Scheduler manages the periodic progress refresh for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
}

// New creates a new scheduler instance
func New(refresher Refresher, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
	}
}

// Start begins running the refresh job. SingletonMode guarantees that a
// tick fired while a refresh is still in flight is skipped instead of
// running two refreshes concurrently.
func (s *Scheduler) Start(ctx context.Context) {
	s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		if err := s.refresher.RefreshProgress(ctx); err != nil {
			log.Printf("Error refreshing student progress: %v", err)
		}
	})
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
