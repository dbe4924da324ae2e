package store

import (
	"context"
	"time"

	"viral-kid-platform/models"
)

// Store is the persistence boundary for the automation pipeline. All
// methods that look up a single document return (nil, nil) when no
// document matches, so callers can gate on absence without error
// plumbing. Implementations must keep single-document updates atomic;
// no cross-document transactions are required.
type Store interface {
	// Credentials
	CredentialsByVerifyToken(ctx context.Context, token string) (*models.InstagramCredentials, error)
	CredentialsByInstagramAccountID(ctx context.Context, instagramAccountID string) (*models.InstagramCredentials, error)
	CredentialsByAccountID(ctx context.Context, accountID string) (*models.InstagramCredentials, error)
	UpdateCredentialsToken(ctx context.Context, accountID, accessToken string, expiresAt time.Time) error

	// Automations
	AutomationByID(ctx context.Context, id string) (*models.InstagramAutomation, error)
	EnabledAutomationForPost(ctx context.Context, accountID, postID string) (*models.InstagramAutomation, error)
	ListAutomations(ctx context.Context, accountID string) ([]models.InstagramAutomation, error)
	CreateAutomation(ctx context.Context, automation *models.InstagramAutomation) error
	UpdateAutomation(ctx context.Context, automation *models.InstagramAutomation) error
	DeleteAutomation(ctx context.Context, id string) error

	// Interactions
	InteractionByComment(ctx context.Context, accountID, commentID string) (*models.InstagramInteraction, error)
	InteractionByID(ctx context.Context, id string) (*models.InstagramInteraction, error)
	CountInteractions(ctx context.Context, automationID string) (int64, error)
	CreateInteraction(ctx context.Context, interaction *models.InstagramInteraction) error
	MarkInteractionDMSent(ctx context.Context, id, content string, sentAt time.Time) error
	SetInteractionDMError(ctx context.Context, id, dmError string) error
	DeleteInteractionsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Accounts
	AccountByID(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)

	// Activity logs
	CreateAccountLog(ctx context.Context, accountID, level, message string) error
	DeleteAccountLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Users
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error
}
