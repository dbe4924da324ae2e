package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"viral-kid-platform/internal/instagram"
	"viral-kid-platform/internal/store"
	"viral-kid-platform/middleware"
	"viral-kid-platform/models"
	"viral-kid-platform/utils"
)

// SetupAutomationRoutes registers the automation management CRUD
// endpoints. All of them require a session and verify account
// ownership before touching anything.
func SetupAutomationRoutes(router *gin.Engine, st store.Store, authMiddleware *middleware.AuthMiddleware) {
	automations := router.Group("/api/instagram/automations")
	automations.Use(authMiddleware.RequireAuth())

	// ownedAccount loads an account and checks it belongs to the
	// session user.
	ownedAccount := func(c *gin.Context, accountID string) *models.Account {
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
		return account
	}

	automations.GET("", func(c *gin.Context) {
		accountID := c.Query("account_id")
		if accountID == "" {
			utils.RespondWithBadRequest(c, "account_id query parameter is required", nil)
			return
		}
		if ownedAccount(c, accountID) == nil {
			return
		}

		list, err := st.ListAutomations(c.Request.Context(), accountID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list automations", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"automations": list})
	})

	automations.POST("", func(c *gin.Context) {
		var req models.CreateAutomationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if ownedAccount(c, req.AccountID) == nil {
			return
		}

		if !instagram.ValidateTemplateList(req.CommentTemplates) || len(req.CommentTemplates) == 0 {
			utils.RespondWithBadRequest(c, "Invalid comment templates format", nil)
			return
		}
		if req.DMTemplates != nil && !instagram.ValidateTemplateList(req.DMTemplates) {
			utils.RespondWithBadRequest(c, "Invalid DM templates format", nil)
			return
		}

		accountOID, err := primitive.ObjectIDFromHex(req.AccountID)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid account ID format", nil)
			return
		}

		dmDelay := req.DMDelay
		if dmDelay < 0 {
			dmDelay = 0
		}
		enabled := true
		if req.Enabled != nil {
			enabled = *req.Enabled
		}

		automation := &models.InstagramAutomation{
			AccountID:        accountOID,
			PostID:           req.PostID,
			PostURL:          req.PostURL,
			PostCaption:      req.PostCaption,
			Enabled:          enabled,
			Keywords:         req.Keywords,
			CommentTemplates: instagram.SerializeTemplates(req.CommentTemplates),
			DMTemplates:      instagram.SerializeTemplates(req.DMTemplates),
			DMDelay:          dmDelay,
		}
		if err := st.CreateAutomation(c.Request.Context(), automation); err != nil {
			utils.RespondWithInternalError(c, "Failed to create automation", nil)
			return
		}

		c.JSON(http.StatusCreated, automation)
	})

	automations.GET("/:id", func(c *gin.Context) {
		automation, err := st.AutomationByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load automation", nil)
			return
		}
		if automation == nil {
			utils.RespondWithNotFound(c, "Automation not found")
			return
		}
		if ownedAccount(c, automation.AccountID.Hex()) == nil {
			return
		}

		count, err := st.CountInteractions(c.Request.Context(), automation.ID.Hex())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to count interactions", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"automation": automation, "interaction_count": count})
	})

	automations.PUT("/:id", func(c *gin.Context) {
		automation, err := st.AutomationByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load automation", nil)
			return
		}
		if automation == nil {
			utils.RespondWithNotFound(c, "Automation not found")
			return
		}
		if ownedAccount(c, automation.AccountID.Hex()) == nil {
			return
		}

		var req models.UpdateAutomationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if req.Keywords != nil {
			automation.Keywords = *req.Keywords
		}
		if req.CommentTemplates != nil {
			if !instagram.ValidateTemplateList(req.CommentTemplates) {
				utils.RespondWithBadRequest(c, "Invalid comment templates format", nil)
				return
			}
			automation.CommentTemplates = instagram.SerializeTemplates(req.CommentTemplates)
		}
		if req.DMTemplates != nil {
			if !instagram.ValidateTemplateList(req.DMTemplates) {
				utils.RespondWithBadRequest(c, "Invalid DM templates format", nil)
				return
			}
			automation.DMTemplates = instagram.SerializeTemplates(req.DMTemplates)
		}
		if req.DMDelay != nil {
			delay := *req.DMDelay
			if delay < 0 {
				delay = 0
			}
			automation.DMDelay = delay
		}
		if req.Enabled != nil {
			automation.Enabled = *req.Enabled
		}
		if req.PostURL != nil {
			automation.PostURL = *req.PostURL
		}
		if req.PostCaption != nil {
			automation.PostCaption = *req.PostCaption
		}

		if err := st.UpdateAutomation(c.Request.Context(), automation); err != nil {
			utils.RespondWithInternalError(c, "Failed to update automation", nil)
			return
		}

		c.JSON(http.StatusOK, automation)
	})

	automations.DELETE("/:id", func(c *gin.Context) {
		automation, err := st.AutomationByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load automation", nil)
			return
		}
		if automation == nil {
			utils.RespondWithNotFound(c, "Automation not found")
			return
		}
		if ownedAccount(c, automation.AccountID.Hex()) == nil {
			return
		}

		// Interactions cascade with the automation
		if err := st.DeleteAutomation(c.Request.Context(), automation.ID.Hex()); err != nil {
			utils.RespondWithInternalError(c, "Failed to delete automation", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	})
}
