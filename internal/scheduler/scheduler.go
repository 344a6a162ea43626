package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"thesis-eval/internal/config"
)

// TokenCleaner removes password reset tokens that expired before cutoff
type TokenCleaner interface {
	DeleteExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler handles periodic maintenance tasks
type Scheduler struct {
	tokens   TokenCleaner
	config   config.SchedulerConfig
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(tokens TokenCleaner, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		tokens:   tokens,
		config:   cfg,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start starts all scheduled tasks
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler",
		"enabled", s.config.Enabled,
		"token_cleanup_interval", s.config.TokenCleanupInterval)

	if !s.config.Enabled {
		return
	}

	s.wg.Add(1)
	go s.scheduleIntervalTask(s.config.TokenCleanupInterval, "token_cleanup", s.cleanupTokens)

	slog.Info("Scheduler started")
}

// Stop stops all scheduled tasks and waits for running ones to return
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		slog.Info("Stopping scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) scheduleIntervalTask(interval time.Duration, taskName string, task func()) {
	defer s.wg.Done()

	slog.Info("Scheduled interval task", "task", taskName, "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run once at startup
	task()

	for {
		select {
		case <-ticker.C:
			task()
		case <-s.stopChan:
			slog.Info("Stopped interval task", "task", taskName)
			return
		}
	}
}

func (s *Scheduler) cleanupTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := s.now().Add(-s.config.TokenRetention)
	deleted, err := s.tokens.DeleteExpiredTokens(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to delete expired password reset tokens", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Deleted expired password reset tokens", "count", deleted, "cutoff", cutoff)
	}
}
