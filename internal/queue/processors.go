package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"viral-kid-platform/internal/instagram"
	"viral-kid-platform/internal/logger"
	"viral-kid-platform/internal/store"
	"viral-kid-platform/internal/telemetry"
	"viral-kid-platform/models"
)

// GraphAPI is the slice of the Instagram client the processors use.
type GraphAPI interface {
	ReplyToComment(ctx context.Context, accessToken, commentID, message string) (*instagram.ReplyResult, error)
	SendDirectMessage(ctx context.Context, accessToken, instagramAccountID, recipientID, message string) (*instagram.SendDMResult, error)
}

// TaskProcessor holds the per-kind job handlers and their
// collaborators.
type TaskProcessor struct {
	store      store.Store
	graph      GraphAPI
	queue      Enqueuer
	metrics    *telemetry.Metrics
	baseURL    string
	cronSecret string
	httpClient *http.Client
}

func NewTaskProcessor(st store.Store, graph GraphAPI, q Enqueuer, metrics *telemetry.Metrics, baseURL, cronSecret string) *TaskProcessor {
	return &TaskProcessor{
		store:      st,
		graph:      graph,
		queue:      q,
		metrics:    metrics,
		baseURL:    baseURL,
		cronSecret: cronSecret,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// configErr marks a failure that retrying cannot fix (missing
// credentials, missing templates). asynq.SkipRetry stops the backoff
// machinery for these.
func configErr(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, asynq.SkipRetry)...)
}

// HandleProcessComment runs the comment half of the pipeline:
// gate on automation and credentials, rotate and interpolate a reply
// template, post the reply, record the interaction, and schedule the
// delayed DM when DM templates are configured.
func (p *TaskProcessor) HandleProcessComment(ctx context.Context, t *asynq.Task) error {
	var payload ProcessCommentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	tracer := otel.Tracer("queue-processor")
	ctx, span := tracer.Start(ctx, "queue.process_comment")
	defer span.End()
	span.SetAttributes(
		attribute.String("comment.id", payload.CommentID),
		attribute.String("automation.id", payload.AutomationID),
		attribute.String("automation.keyword", payload.MatchedKeyword),
	)

	automation, err := p.store.AutomationByID(ctx, payload.AutomationID)
	if err != nil {
		return err
	}
	if automation == nil || !automation.Enabled {
		// Disabled between enqueue and execution; nothing to do.
		logger.Info("Automation missing or disabled, skipping comment",
			"automation_id", payload.AutomationID, "comment_id", payload.CommentID)
		return nil
	}

	creds, err := p.store.CredentialsByAccountID(ctx, payload.AccountID)
	if err != nil {
		return err
	}
	if creds == nil || creds.AccessToken == "" || creds.InstagramAccountID == "" {
		return configErr("instagram credentials not configured for account %s", payload.AccountID)
	}

	// The interaction count doubles as the rotation index. Two
	// concurrent jobs on the same automation can read the same count
	// and pick the same template; the unique comment constraint still
	// prevents duplicate rows, so the repeat is acceptable.
	interactionCount, err := p.store.CountInteractions(ctx, payload.AutomationID)
	if err != nil {
		return err
	}

	commentTemplates := instagram.ParseTemplates(automation.CommentTemplates)
	if len(commentTemplates) == 0 {
		return configErr("no comment templates configured for automation %s", payload.AutomationID)
	}

	vars := instagram.TemplateVariables{
		Username: payload.CommenterUsername,
		Keyword:  payload.MatchedKeyword,
		Comment:  payload.CommentText,
	}
	replyText := instagram.InterpolateTemplate(
		instagram.SelectTemplate(commentTemplates, int(interactionCount)), vars)

	replyResult, err := p.graph.ReplyToComment(ctx, creds.AccessToken, payload.CommentID, replyText)
	if err != nil {
		return fmt.Errorf("failed to reply: %w", err)
	}

	accountOID, err := primitive.ObjectIDFromHex(payload.AccountID)
	if err != nil {
		return fmt.Errorf("bad account id: %w", asynq.SkipRetry)
	}
	automationOID, err := primitive.ObjectIDFromHex(payload.AutomationID)
	if err != nil {
		return fmt.Errorf("bad automation id: %w", asynq.SkipRetry)
	}

	now := time.Now()
	interaction := &models.InstagramInteraction{
		AccountID:         accountOID,
		AutomationID:      automationOID,
		CommentID:         payload.CommentID,
		CommentText:       payload.CommentText,
		CommenterID:       payload.CommenterID,
		CommenterUsername: payload.CommenterUsername,
		KeywordMatched:    payload.MatchedKeyword,
		OurReply:          replyText,
		OurReplyID:        replyResult.CommentID,
		RepliedAt:         &now,
	}
	if err := p.store.CreateInteraction(ctx, interaction); err != nil {
		return err
	}
	p.metrics.RecordCommentProcessed(payload.MatchedKeyword)

	if err := p.store.CreateAccountLog(ctx, payload.AccountID, models.LogLevelSuccess,
		fmt.Sprintf("Replied to comment from @%s", payload.CommenterUsername)); err != nil {
		logger.Warn("Failed to write account log", "error", err)
	}

	dmTemplates := instagram.ParseTemplates(automation.DMTemplates)
	if len(dmTemplates) > 0 {
		dmMessage := instagram.InterpolateTemplate(
			instagram.SelectTemplate(dmTemplates, int(interactionCount)), vars)

		task, err := NewSendDMTask(SendDMPayload{
			AccountID:     payload.AccountID,
			InteractionID: interaction.ID.Hex(),
			RecipientID:   payload.CommenterID,
			Message:       dmMessage,
		})
		if err != nil {
			return err
		}

		delay := time.Duration(automation.DMDelay) * time.Second
		if _, err := p.queue.Enqueue(ctx, task, asynq.ProcessIn(delay)); err != nil {
			return err
		}
	}

	logger.Info("Processed comment",
		"comment_id", payload.CommentID,
		"commenter", payload.CommenterUsername,
		"keyword", payload.MatchedKeyword)
	return nil
}

// HandleSendDM runs the delayed DM half. A provider-level rejection
// (messaging window, blocked recipient) is an expected outcome: it is
// written to the interaction and the job completes without retrying.
func (p *TaskProcessor) HandleSendDM(ctx context.Context, t *asynq.Task) error {
	var payload SendDMPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	tracer := otel.Tracer("queue-processor")
	ctx, span := tracer.Start(ctx, "queue.send_dm")
	defer span.End()
	span.SetAttributes(attribute.String("interaction.id", payload.InteractionID))

	creds, err := p.store.CredentialsByAccountID(ctx, payload.AccountID)
	if err != nil {
		return err
	}
	if creds == nil || creds.AccessToken == "" || creds.InstagramAccountID == "" {
		if err := p.store.SetInteractionDMError(ctx, payload.InteractionID, "Instagram credentials not configured"); err != nil {
			logger.Error("Failed to record DM error", "interaction_id", payload.InteractionID, "error", err)
		}
		return configErr("instagram credentials not configured for account %s", payload.AccountID)
	}

	result, err := p.graph.SendDirectMessage(ctx, creds.AccessToken, creds.InstagramAccountID, payload.RecipientID, payload.Message)
	if err != nil {
		// Transport failure; eligible for queue retry.
		return fmt.Errorf("failed to send DM: %w", err)
	}

	p.metrics.RecordDMAttempt(result.Success)

	if result.Success {
		if err := p.store.MarkInteractionDMSent(ctx, payload.InteractionID, payload.Message, time.Now()); err != nil {
			return err
		}
		logger.Info("DM sent", "interaction_id", payload.InteractionID)
		return nil
	}

	dmError := result.Error
	if dmError == "" {
		dmError = "Failed to send DM"
	}
	span.SetAttributes(attribute.String("dm.error", dmError))
	if err := p.store.SetInteractionDMError(ctx, payload.InteractionID, dmError); err != nil {
		return err
	}
	logger.Warn("DM rejected by provider", "interaction_id", payload.InteractionID, "reason", dmError)
	return nil
}

// HandleCleanup prunes old interactions and account logs.
func (p *TaskProcessor) HandleCleanup(ctx context.Context, t *asynq.Task) error {
	var payload CleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	days := payload.OlderThanDays
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	interactions, err := p.store.DeleteInteractionsBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	logs, err := p.store.DeleteAccountLogsBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	logger.Info("Cleanup completed", "interactions_deleted", interactions, "logs_deleted", logs)
	return nil
}

// HandleFetchTwitterTrends delegates to the Twitter automation
// endpoint. The Twitter pipeline lives behind its own HTTP surface;
// this job only triggers it on schedule.
func (p *TaskProcessor) HandleFetchTwitterTrends(ctx context.Context, t *asynq.Task) error {
	return p.callCronEndpoint(ctx, "/api/cron/twitter-trends")
}

// HandleFetchYouTubeTrends delegates to the YouTube comments
// automation endpoint.
func (p *TaskProcessor) HandleFetchYouTubeTrends(ctx context.Context, t *asynq.Task) error {
	return p.callCronEndpoint(ctx, "/api/cron/youtube-comments")
}

func (p *TaskProcessor) callCronEndpoint(ctx context.Context, path string) error {
	if p.cronSecret == "" {
		return fmt.Errorf("CRON_SECRET not configured: %w", asynq.SkipRetry)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.cronSecret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cron endpoint %s returned HTTP %d", path, resp.StatusCode)
	}

	logger.Info("Cron endpoint completed", "path", path)
	return nil
}
