package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"viral-kid-platform/internal/logger"
	"viral-kid-platform/internal/queue"
)

// Scheduler seeds recurring jobs into the queue on cron patterns.
// Tags are unique, so calling Setup on every process start installs
// each schedule exactly once instead of stacking duplicates.
type Scheduler struct {
	scheduler     *gocron.Scheduler
	queue         queue.Enqueuer
	retentionDays int
}

func New(q queue.Enqueuer, retentionDays int) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &Scheduler{
		scheduler:     s,
		queue:         q,
		retentionDays: retentionDays,
	}
}

// Setup installs the recurring schedules: hourly Twitter trends,
// YouTube trends every two hours, and a daily cleanup at 3 AM.
func (s *Scheduler) Setup() error {
	if _, err := s.scheduler.Cron("0 * * * *").Tag("twitter-trends-hourly").Do(func() {
		s.enqueueTwitterTrends()
	}); err != nil {
		return err
	}

	if _, err := s.scheduler.Cron("0 */2 * * *").Tag("youtube-trends-every-2h").Do(func() {
		s.enqueueYouTubeTrends()
	}); err != nil {
		return err
	}

	if _, err := s.scheduler.Cron("0 3 * * *").Tag("cleanup-daily").Do(func() {
		s.enqueueCleanup()
	}); err != nil {
		return err
	}

	return nil
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
	logger.Info("Recurring job scheduler started")
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) enqueueTwitterTrends() {
	task, err := queue.NewFetchTwitterTrendsTask(queue.FetchTrendsPayload{Region: "US"})
	if err != nil {
		logger.Error("Failed to build twitter trends task", "error", err)
		return
	}
	if _, err := s.queue.Enqueue(context.Background(), task); err != nil {
		logger.Error("Failed to enqueue twitter trends job", "error", err)
	}
}

func (s *Scheduler) enqueueYouTubeTrends() {
	task, err := queue.NewFetchYouTubeTrendsTask(queue.FetchTrendsPayload{Region: "US"})
	if err != nil {
		logger.Error("Failed to build youtube trends task", "error", err)
		return
	}
	if _, err := s.queue.Enqueue(context.Background(), task); err != nil {
		logger.Error("Failed to enqueue youtube trends job", "error", err)
	}
}

func (s *Scheduler) enqueueCleanup() {
	task, err := queue.NewCleanupTask(queue.CleanupPayload{OlderThanDays: s.retentionDays})
	if err != nil {
		logger.Error("Failed to build cleanup task", "error", err)
		return
	}
	if _, err := s.queue.Enqueue(context.Background(), task); err != nil {
		logger.Error("Failed to enqueue cleanup job", "error", err)
	}
}
