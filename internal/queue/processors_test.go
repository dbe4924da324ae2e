package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"viral-kid-platform/internal/instagram"
	"viral-kid-platform/internal/store"
	"viral-kid-platform/internal/telemetry"
	"viral-kid-platform/models"
)

type fakeGraph struct {
	replyErr    error
	replyCalls  []string // reply texts in call order
	dmResult    *instagram.SendDMResult
	dmErr       error
	dmCalls     []string // DM texts in call order
	dmRecipient string
}

func (f *fakeGraph) ReplyToComment(_ context.Context, _, _, message string) (*instagram.ReplyResult, error) {
	if f.replyErr != nil {
		return nil, f.replyErr
	}
	f.replyCalls = append(f.replyCalls, message)
	return &instagram.ReplyResult{CommentID: fmt.Sprintf("reply-%d", len(f.replyCalls)), Success: true}, nil
}

func (f *fakeGraph) SendDirectMessage(_ context.Context, _, _, recipientID, message string) (*instagram.SendDMResult, error) {
	if f.dmErr != nil {
		return nil, f.dmErr
	}
	f.dmCalls = append(f.dmCalls, message)
	f.dmRecipient = recipientID
	if f.dmResult != nil {
		return f.dmResult, nil
	}
	return &instagram.SendDMResult{MessageID: "mid-1", Success: true}, nil
}

type enqueuedTask struct {
	task *asynq.Task
	opts []asynq.Option
}

type recordingEnqueuer struct {
	enqueued []enqueuedTask
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, task *asynq.Task, opts ...asynq.Option) (string, error) {
	r.enqueued = append(r.enqueued, enqueuedTask{task: task, opts: opts})
	return fmt.Sprintf("task-%d", len(r.enqueued)), nil
}

// processInDelay extracts the ProcessIn delay from recorded options.
func processInDelay(t *testing.T, opts []asynq.Option) time.Duration {
	t.Helper()
	for _, opt := range opts {
		if opt.Type() == asynq.ProcessInOpt {
			return opt.Value().(time.Duration)
		}
	}
	t.Fatal("no ProcessIn option recorded")
	return 0
}

type processorFixture struct {
	store        *store.MemStore
	graph        *fakeGraph
	enqueuer     *recordingEnqueuer
	processor    *TaskProcessor
	accountID    string
	automationID string
}

func newProcessorFixture(t *testing.T, automation *models.InstagramAutomation) *processorFixture {
	t.Helper()

	st := store.NewMemStore()
	accountID := st.SeedAccount(&models.Account{
		UserID:   primitive.NewObjectID(),
		Name:     "creator",
		Platform: "instagram",
	})
	accountOID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		t.Fatalf("bad account id: %v", err)
	}
	st.SeedCredentials(&models.InstagramCredentials{
		AccountID:          accountOID,
		AccessToken:        "token",
		InstagramAccountID: "ig-1",
	})

	automation.AccountID = accountOID
	if err := st.CreateAutomation(context.Background(), automation); err != nil {
		t.Fatalf("seed automation: %v", err)
	}

	graph := &fakeGraph{}
	enqueuer := &recordingEnqueuer{}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		t.Fatalf("init metrics: %v", err)
	}
	return &processorFixture{
		store:        st,
		graph:        graph,
		enqueuer:     enqueuer,
		processor:    NewTaskProcessor(st, graph, enqueuer, metrics, "http://localhost", "cron-secret"),
		accountID:    accountID,
		automationID: automation.ID.Hex(),
	}
}

func (f *processorFixture) commentTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewProcessCommentTask(ProcessCommentPayload{
		AccountID:         f.accountID,
		AutomationID:      f.automationID,
		CommentID:         "c-1",
		CommentText:       "this is so boom worthy",
		CommenterID:       "u-alice",
		CommenterUsername: "alice",
		MediaID:           "post-1",
		MatchedKeyword:    "boom",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestHandleProcessCommentRepliesAndSchedulesDM(t *testing.T) {
	f := newProcessorFixture(t, &models.InstagramAutomation{
		PostID:           "post-1",
		Enabled:          true,
		Keywords:         "boom",
		CommentTemplates: `["Thanks {{username}}!"]`,
		DMTemplates:      `["Check your inbox, {{username}}"]`,
		DMDelay:          120,
	})

	if err := f.processor.HandleProcessComment(context.Background(), f.commentTask(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.graph.replyCalls) != 1 || f.graph.replyCalls[0] != "Thanks alice!" {
		t.Fatalf("unexpected replies: %v", f.graph.replyCalls)
	}

	interactions := f.store.Interactions()
	if len(interactions) != 1 {
		t.Fatalf("expected 1 interaction, got %d", len(interactions))
	}
	in := interactions[0]
	if in.CommentID != "c-1" || in.KeywordMatched != "boom" || in.OurReply != "Thanks alice!" {
		t.Fatalf("unexpected interaction: %+v", in)
	}
	if in.RepliedAt == nil {
		t.Fatal("RepliedAt not set")
	}

	if len(f.enqueuer.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued DM task, got %d", len(f.enqueuer.enqueued))
	}
	dm := f.enqueuer.enqueued[0]
	if dm.task.Type() != TaskSendDM {
		t.Fatalf("enqueued kind %q", dm.task.Type())
	}
	if delay := processInDelay(t, dm.opts); delay != 120*time.Second {
		t.Fatalf("DM delay %v, want 120s", delay)
	}
}

func TestHandleProcessCommentNoDMTemplates(t *testing.T) {
	f := newProcessorFixture(t, &models.InstagramAutomation{
		PostID:           "post-1",
		Enabled:          true,
		Keywords:         "boom",
		CommentTemplates: `["Nice one"]`,
	})

	if err := f.processor.HandleProcessComment(context.Background(), f.commentTask(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.enqueuer.enqueued) != 0 {
		t.Fatalf("expected no DM task without DM templates, got %d", len(f.enqueuer.enqueued))
	}
}

func TestHandleProcessCommentDisabledAutomationSkips(t *testing.T) {
	f := newProcessorFixture(t, &models.InstagramAutomation{
		PostID:           "post-1",
		Enabled:          false,
		CommentTemplates: `["Nice one"]`,
	})

	if err := f.processor.HandleProcessComment(context.Background(), f.commentTask(t)); err != nil {
		t.Fatalf("disabled automation must complete without error, got: %v", err)
	}
	if len(f.graph.replyCalls) != 0 {
		t.Fatal("disabled automation must not reply")
	}
	if len(f.store.Interactions()) != 0 {
		t.Fatal("disabled automation must not record interactions")
	}
}

func TestHandleProcessCommentMissingCredentialsSkipsRetry(t *testing.T) {
	st := store.NewMemStore()
	accountID := st.SeedAccount(&models.Account{UserID: primitive.NewObjectID(), Name: "creator"})
	accountOID, _ := primitive.ObjectIDFromHex(accountID)
	automation := &models.InstagramAutomation{
		AccountID:        accountOID,
		PostID:           "post-1",
		Enabled:          true,
		CommentTemplates: `["Nice one"]`,
	}
	if err := st.CreateAutomation(context.Background(), automation); err != nil {
		t.Fatalf("seed automation: %v", err)
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		t.Fatalf("init metrics: %v", err)
	}
	p := NewTaskProcessor(st, &fakeGraph{}, &recordingEnqueuer{}, metrics, "", "")
	task, _ := NewProcessCommentTask(ProcessCommentPayload{
		AccountID:    accountID,
		AutomationID: automation.ID.Hex(),
		CommentID:    "c-1",
	})

	err = p.HandleProcessComment(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("missing credentials must skip retry, got: %v", err)
	}
}

func TestHandleProcessCommentEmptyTemplatesSkipsRetry(t *testing.T) {
	f := newProcessorFixture(t, &models.InstagramAutomation{
		PostID:           "post-1",
		Enabled:          true,
		CommentTemplates: `[]`,
	})

	err := f.processor.HandleProcessComment(context.Background(), f.commentTask(t))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("empty templates must skip retry, got: %v", err)
	}
}

func TestHandleProcessCommentReplyFailureIsRetryable(t *testing.T) {
	f := newProcessorFixture(t, &models.InstagramAutomation{
		PostID:           "post-1",
		Enabled:          true,
		CommentTemplates: `["Nice one"]`,
	})
	f.graph.replyErr = errors.New("HTTP 500")

	err := f.processor.HandleProcessComment(context.Background(), f.commentTask(t))
	if err == nil {
		t.Fatal("expected error on reply failure")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatal("reply failure must stay retryable")
	}
	if len(f.store.Interactions()) != 0 {
		t.Fatal("failed reply must not record an interaction")
	}
}

func TestHandleProcessCommentRotatesTemplates(t *testing.T) {
	f := newProcessorFixture(t, &models.InstagramAutomation{
		PostID:           "post-1",
		Enabled:          true,
		CommentTemplates: `["A {{username}}","B {{username}}"]`,
	})

	for i, comment := range []string{"c-1", "c-2", "c-3"} {
		task, err := NewProcessCommentTask(ProcessCommentPayload{
			AccountID:         f.accountID,
			AutomationID:      f.automationID,
			CommentID:         comment,
			CommentText:       "boom",
			CommenterID:       fmt.Sprintf("u-%d", i),
			CommenterUsername: fmt.Sprintf("user%d", i),
			MatchedKeyword:    "boom",
		})
		if err != nil {
			t.Fatalf("create task: %v", err)
		}
		if err := f.processor.HandleProcessComment(context.Background(), task); err != nil {
			t.Fatalf("comment %s: %v", comment, err)
		}
	}

	want := []string{"A user0", "B user1", "A user2"}
	for i, reply := range f.graph.replyCalls {
		if reply != want[i] {
			t.Fatalf("reply %d = %q, want %q", i, reply, want[i])
		}
	}
}

func seedInteraction(t *testing.T, st *store.MemStore, accountID string) *models.InstagramInteraction {
	t.Helper()
	accountOID, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		t.Fatalf("bad account id: %v", err)
	}
	interaction := &models.InstagramInteraction{
		AccountID:         accountOID,
		AutomationID:      primitive.NewObjectID(),
		CommentID:         "c-dm",
		CommenterID:       "u-alice",
		CommenterUsername: "alice",
	}
	if err := st.CreateInteraction(context.Background(), interaction); err != nil {
		t.Fatalf("seed interaction: %v", err)
	}
	return interaction
}

func TestHandleSendDMSuccess(t *testing.T) {
	f := newProcessorFixture(t, &models.InstagramAutomation{PostID: "post-1", Enabled: true, CommentTemplates: `["x"]`})
	interaction := seedInteraction(t, f.store, f.accountID)

	task, err := NewSendDMTask(SendDMPayload{
		AccountID:     f.accountID,
		InteractionID: interaction.ID.Hex(),
		RecipientID:   "u-alice",
		Message:       "Check your inbox, alice",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := f.processor.HandleSendDM(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := f.store.InteractionByID(context.Background(), interaction.ID.Hex())
	if !got.DMSent || got.DMContent != "Check your inbox, alice" || got.DMSentAt == nil {
		t.Fatalf("DM state not recorded: %+v", got)
	}
	if f.graph.dmRecipient != "u-alice" {
		t.Fatalf("DM sent to %q", f.graph.dmRecipient)
	}
}

func TestHandleSendDMProviderRejection(t *testing.T) {
	f := newProcessorFixture(t, &models.InstagramAutomation{PostID: "post-1", Enabled: true, CommentTemplates: `["x"]`})
	interaction := seedInteraction(t, f.store, f.accountID)
	f.graph.dmResult = &instagram.SendDMResult{
		Success: false,
		Error:   "User has not interacted within the 7-day messaging window",
	}

	task, _ := NewSendDMTask(SendDMPayload{
		AccountID:     f.accountID,
		InteractionID: interaction.ID.Hex(),
		RecipientID:   "u-alice",
		Message:       "hi",
	})

	// A provider rejection is a recorded outcome, not a job failure.
	if err := f.processor.HandleSendDM(context.Background(), task); err != nil {
		t.Fatalf("provider rejection must not fail the job, got: %v", err)
	}

	got, _ := f.store.InteractionByID(context.Background(), interaction.ID.Hex())
	if got.DMSent {
		t.Fatal("DMSent must stay false on rejection")
	}
	if got.DMError != "User has not interacted within the 7-day messaging window" {
		t.Fatalf("DMError = %q", got.DMError)
	}
}

func TestHandleSendDMTransportFailureIsRetryable(t *testing.T) {
	f := newProcessorFixture(t, &models.InstagramAutomation{PostID: "post-1", Enabled: true, CommentTemplates: `["x"]`})
	interaction := seedInteraction(t, f.store, f.accountID)
	f.graph.dmErr = errors.New("connection refused")

	task, _ := NewSendDMTask(SendDMPayload{
		AccountID:     f.accountID,
		InteractionID: interaction.ID.Hex(),
		RecipientID:   "u-alice",
		Message:       "hi",
	})

	err := f.processor.HandleSendDM(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("transport failure must stay retryable, got: %v", err)
	}
}

func TestHandleCleanupPrunesOldRecords(t *testing.T) {
	f := newProcessorFixture(t, &models.InstagramAutomation{PostID: "post-1", Enabled: true, CommentTemplates: `["x"]`})
	if err := f.processor.HandleProcessComment(context.Background(), f.commentTask(t)); err != nil {
		t.Fatalf("seed via processor: %v", err)
	}

	// Everything was just created, so a 30-day cutoff deletes nothing.
	task, err := NewCleanupTask(CleanupPayload{OlderThanDays: 30})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := f.processor.HandleCleanup(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.store.Interactions()) != 1 {
		t.Fatal("fresh interaction must survive cleanup")
	}
}

func TestRetryDelayGrowsExponentially(t *testing.T) {
	delays := []time.Duration{
		RetryDelay(0, nil, nil),
		RetryDelay(1, nil, nil),
		RetryDelay(2, nil, nil),
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay(%d) = %v, want %v", i, delays[i], want[i])
		}
	}
}
