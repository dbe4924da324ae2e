package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Job kinds. Adding a kind means adding a payload struct, a task
// creator, a processor method, and a mux registration in the worker —
// an unregistered kind fails loudly at dispatch instead of being
// dropped.
const (
	TaskProcessComment     = "instagram:process-comment"
	TaskSendDM             = "instagram:send-dm"
	TaskFetchTwitterTrends = "trends:twitter"
	TaskFetchYouTubeTrends = "trends:youtube"
	TaskCleanupOldData     = "maintenance:cleanup"
)

type ProcessCommentPayload struct {
	AccountID         string `json:"account_id"`
	AutomationID      string `json:"automation_id"`
	CommentID         string `json:"comment_id"`
	CommentText       string `json:"comment_text"`
	CommenterID       string `json:"commenter_id"`
	CommenterUsername string `json:"commenter_username"`
	MediaID           string `json:"media_id"`
	MatchedKeyword    string `json:"matched_keyword"`
}

type SendDMPayload struct {
	AccountID     string `json:"account_id"`
	InteractionID string `json:"interaction_id"`
	RecipientID   string `json:"recipient_id"`
	Message       string `json:"message"`
}

type FetchTrendsPayload struct {
	Region string `json:"region,omitempty"`
}

type CleanupPayload struct {
	OlderThanDays int `json:"older_than_days"`
}

// defaultOptions is the queue-wide policy: three total attempts under
// exponential backoff (MaxRetry counts retries after the first run),
// completed records retained for a day so job history stays
// inspectable.
func defaultOptions() []asynq.Option {
	return []asynq.Option{
		asynq.MaxRetry(2),
		asynq.Retention(24 * time.Hour),
	}
}

// Task creators

func NewProcessCommentTask(payload ProcessCommentPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts := append(defaultOptions(),
		asynq.Timeout(2*time.Minute),
		asynq.Queue("default"),
	)
	return asynq.NewTask(TaskProcessComment, data, opts...), nil
}

func NewSendDMTask(payload SendDMPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts := append(defaultOptions(),
		asynq.Timeout(2*time.Minute),
		asynq.Queue("default"),
	)
	return asynq.NewTask(TaskSendDM, data, opts...), nil
}

func NewFetchTwitterTrendsTask(payload FetchTrendsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts := append(defaultOptions(),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("low"),
	)
	return asynq.NewTask(TaskFetchTwitterTrends, data, opts...), nil
}

func NewFetchYouTubeTrendsTask(payload FetchTrendsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts := append(defaultOptions(),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("low"),
	)
	return asynq.NewTask(TaskFetchYouTubeTrends, data, opts...), nil
}

func NewCleanupTask(payload CleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts := append(defaultOptions(),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("low"),
	)
	return asynq.NewTask(TaskCleanupOldData, data, opts...), nil
}
