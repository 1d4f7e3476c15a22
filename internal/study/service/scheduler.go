package service

import (
	"context"
	"sync"
	"time"

	"dailystudy/internal/study/model"
	pkgerrors "dailystudy/pkg/errors"
	"dailystudy/pkg/utils/logger"

	"go.uber.org/zap"
)

// CrawlRunner runs one crawl.
type CrawlRunner interface {
	Run(ctx context.Context) ([]model.CrawlResult, error)
}

// Scheduler triggers a crawl run on a fixed interval.
type Scheduler struct {
	runner   CrawlRunner
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler. A non-positive interval disables Start.
func NewScheduler(runner CrawlRunner, interval time.Duration) *Scheduler {
	return &Scheduler{runner: runner, interval: interval}
}

// Start launches the ticker loop. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		logger.Info(ctx, "crawl scheduler disabled")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	logger.Info(ctx, "crawl scheduler started", zap.Duration("interval", s.interval))
	go s.loop(loopCtx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.RunNow(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunNow runs one crawl and logs the outcome. Errors are returned, never fatal.
func (s *Scheduler) RunNow(ctx context.Context) error {
	results, err := s.runner.Run(ctx)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CrawlInProgress) {
			logger.Info(ctx, "scheduled crawl skipped, another run in progress")
			return err
		}
		logger.Error(ctx, "scheduled crawl failed", zap.Error(err))
		return err
	}
	logger.Info(ctx, "scheduled crawl finished", zap.Int("results", len(results)))
	return nil
}
