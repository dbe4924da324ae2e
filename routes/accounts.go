package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"viral-kid-platform/internal/instagram"
	"viral-kid-platform/internal/logger"
	"viral-kid-platform/internal/store"
	"viral-kid-platform/middleware"
	"viral-kid-platform/models"
	"viral-kid-platform/utils"
)

// SetupAccountRoutes registers account listing plus the Graph API
// helper endpoints used during automation setup (recent posts,
// webhook subscription).
func SetupAccountRoutes(router *gin.Engine, st store.Store, graph *instagram.Client, authMiddleware *middleware.AuthMiddleware) {
	accounts := router.Group("/api/accounts")
	accounts.Use(authMiddleware.RequireAuth())

	accounts.GET("", func(c *gin.Context) {
		list, err := st.ListAccounts(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list accounts", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"accounts": list})
	})

	// ownedCredentials resolves credentials for an account the
	// session user owns, refreshing the access token when it is
	// close to expiry and writing the new token back.
	ownedCredentials := func(c *gin.Context, accountID string) *models.InstagramCredentials {
		account, err := st.AccountByID(c.Request.Context(), accountID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load account", nil)
			return nil
		}
		if account == nil {
			utils.RespondWithNotFound(c, "Account not found")
			return nil
		}
		if account.UserID.Hex() != middleware.GetUserID(c) {
			utils.RespondWithForbidden(c, "Account does not belong to you")
			return nil
		}

		creds, err := st.CredentialsByAccountID(c.Request.Context(), accountID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load credentials", nil)
			return nil
		}
		if creds == nil || creds.AccessToken == "" {
			utils.RespondWithBadRequest(c, "Instagram credentials not configured", nil)
			return nil
		}

		token, err := graph.RefreshTokenIfNeeded(c.Request.Context(), instagram.Credentials{
			AppID:          creds.AppID,
			AppSecret:      creds.AppSecret,
			AccessToken:    creds.AccessToken,
			TokenExpiresAt: creds.TokenExpiresAt,
		})
		if err != nil {
			logger.Error("Token refresh failed", "account_id", accountID, "error", err)
			utils.RespondWithInternalError(c, "Failed to refresh access token", nil)
			return nil
		}
		if token != nil && token.AccessToken != creds.AccessToken {
			if err := st.UpdateCredentialsToken(c.Request.Context(), accountID, token.AccessToken, token.ExpiresAt); err != nil {
				logger.Error("Failed to persist refreshed token", "account_id", accountID, "error", err)
			}
			creds.AccessToken = token.AccessToken
			creds.TokenExpiresAt = &token.ExpiresAt
		}

		return creds
	}

	accounts.GET("/:id/posts", func(c *gin.Context) {
		creds := ownedCredentials(c, c.Param("id"))
		if creds == nil {
			return
		}

		posts, err := graph.GetRecentPosts(c.Request.Context(), creds.AccessToken, creds.InstagramAccountID, 25)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to fetch posts", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"posts": posts})
	})

	accounts.POST("/:id/subscribe", func(c *gin.Context) {
		accountID := c.Param("id")
		creds := ownedCredentials(c, accountID)
		if creds == nil {
			return
		}

		subscribed, err := graph.SubscribeToWebhook(c.Request.Context(), creds.AccessToken, creds.InstagramAccountID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to subscribe to webhook", gin.H{"error": err.Error()})
			return
		}

		if err := st.CreateAccountLog(c.Request.Context(), accountID, models.LogLevelInfo,
			"Subscribed account to comment webhooks"); err != nil {
			logger.Warn("Failed to write account log", "error", err)
		}

		c.JSON(http.StatusOK, gin.H{"subscribed": subscribed})
	})
}
