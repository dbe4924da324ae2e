package queue

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
)

func maxRetryOf(t *testing.T, opts []asynq.Option) int {
	t.Helper()
	for _, opt := range opts {
		if opt.Type() == asynq.MaxRetryOpt {
			return opt.Value().(int)
		}
	}
	t.Fatal("no MaxRetry option set")
	return 0
}

func TestDefaultOptionsAllowThreeTotalAttempts(t *testing.T) {
	opts := defaultOptions()

	// MaxRetry counts retries after the first run, so n retries means
	// n+1 total attempts.
	retries := maxRetryOf(t, opts)
	if total := retries + 1; total != 3 {
		t.Fatalf("total attempts = %d, want 3 (MaxRetry=%d)", total, retries)
	}
}

func TestDefaultOptionsRetainCompletedJobs(t *testing.T) {
	for _, opt := range defaultOptions() {
		if opt.Type() == asynq.RetentionOpt {
			if d := opt.Value().(time.Duration); d != 24*time.Hour {
				t.Fatalf("retention = %v, want 24h", d)
			}
			return
		}
	}
	t.Fatal("no Retention option set")
}
