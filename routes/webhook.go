package routes

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"viral-kid-platform/internal/instagram"
	"viral-kid-platform/internal/logger"
	"viral-kid-platform/internal/queue"
	"viral-kid-platform/internal/store"
)

// SetupWebhookRoutes registers the Meta webhook endpoints. The POST
// handler acknowledges every delivery with 200 {received:true} no
// matter what happens internally — signalling failure to Meta only
// triggers redelivery storms.
func SetupWebhookRoutes(router *gin.Engine, st store.Store, q queue.Enqueuer) {
	// Webhook verification handshake. Meta sends a challenge that
	// must be echoed back when the verify token matches.
	router.GET("/api/instagram/webhook", func(c *gin.Context) {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")

		if mode != "subscribe" || token == "" || challenge == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		// Each account has its own verify token for its Meta app
		creds, err := st.CredentialsByVerifyToken(c.Request.Context(), token)
		if err != nil {
			logger.Error("Webhook verification lookup failed", "error", err)
			c.JSON(http.StatusForbidden, gin.H{"error": "Verification failed"})
			return
		}
		if creds == nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Verification failed"})
			return
		}

		c.String(http.StatusOK, challenge)
	})

	router.POST("/api/instagram/webhook", func(c *gin.Context) {
		rawBody, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		// A body that is not JSON at all is a client error; anything
		// decodable gets acknowledged below no matter its shape.
		if !json.Valid(rawBody) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}

		signature := c.GetHeader("x-hub-signature-256")

		payload, ok := instagram.ParseWebhookPayload(rawBody)
		if !ok {
			// Valid JSON but not an Instagram comment webhook.
			// Acknowledge anyway so Meta does not retry.
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		ctx := c.Request.Context()
		for _, event := range instagram.ExtractCommentEvents(payload) {
			value := event.Change.Value

			creds, err := st.CredentialsByInstagramAccountID(ctx, event.AccountID)
			if err != nil {
				logger.Error("Credentials lookup failed", "instagram_account_id", event.AccountID, "error", err)
				continue
			}
			if creds == nil {
				// No connected account for this Instagram ID
				continue
			}

			if creds.AppSecret != "" {
				if !instagram.VerifyWebhookSignature(rawBody, signature, creds.AppSecret) {
					logger.Error("Invalid webhook signature", "account_id", creds.AccountID.Hex())
					continue
				}
			}

			accountID := creds.AccountID.Hex()

			automation, err := st.EnabledAutomationForPost(ctx, accountID, value.Media.ID)
			if err != nil {
				logger.Error("Automation lookup failed", "account_id", accountID, "error", err)
				continue
			}
			if automation == nil {
				continue
			}

			matchedKeyword := instagram.MatchKeyword(value.Text, automation.Keywords)
			if matchedKeyword == "" {
				continue
			}

			// Dedup gate: Meta may redeliver the same comment. An
			// existing interaction means it was already processed.
			existing, err := st.InteractionByComment(ctx, accountID, value.ID)
			if err != nil {
				logger.Error("Interaction lookup failed", "comment_id", value.ID, "error", err)
				continue
			}
			if existing != nil {
				continue
			}

			task, err := queue.NewProcessCommentTask(queue.ProcessCommentPayload{
				AccountID:         accountID,
				AutomationID:      automation.ID.Hex(),
				CommentID:         value.ID,
				CommentText:       value.Text,
				CommenterID:       value.From.ID,
				CommenterUsername: value.From.Username,
				MediaID:           value.Media.ID,
				MatchedKeyword:    matchedKeyword,
			})
			if err != nil {
				logger.Error("Failed to build process-comment task", "error", err)
				continue
			}

			if _, err := q.Enqueue(ctx, task); err != nil {
				logger.Error("Failed to enqueue process-comment job", "comment_id", value.ID, "error", err)
				continue
			}

			logger.Info("Queued comment for processing",
				"comment_id", value.ID,
				"account_id", accountID,
				"keyword", matchedKeyword)
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	})
}
