package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"viral-kid-platform/internal/config"
	"viral-kid-platform/internal/store"
	"viral-kid-platform/models"
	"viral-kid-platform/utils"
)

// SetupAuthRoutes registers the dashboard login endpoint.
func SetupAuthRoutes(router *gin.Engine, cfg *config.Config, st store.Store) {
	router.POST("/api/auth/login", func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		user, err := st.UserByUsername(c.Request.Context(), req.Username)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load user", nil)
			return
		}
		if user == nil || !utils.CheckPassword(req.Password, user.PasswordHash) {
			utils.RespondWithUnauthorized(c, "Invalid username or password")
			return
		}

		expiresIn, err := time.ParseDuration(cfg.JWTExpiresIn)
		if err != nil {
			expiresIn = 24 * time.Hour
		}

		token, err := utils.GenerateJWT(user.ID.Hex(), user.Username, cfg.JWTSecret, expiresIn)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to issue token", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token": token,
			"expires_in":   int(expiresIn.Seconds()),
			"user": gin.H{
				"id":       user.ID.Hex(),
				"username": user.Username,
				"name":     user.Name,
			},
		})
	})
}
