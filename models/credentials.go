package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InstagramCredentials holds the Meta app and token material for one
// connected account. One document per account.
type InstagramCredentials struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AccountID          primitive.ObjectID `bson:"account_id" json:"account_id"`
	AccessToken        string             `bson:"access_token" json:"-"`
	TokenExpiresAt     *time.Time         `bson:"token_expires_at,omitempty" json:"token_expires_at,omitempty"`
	InstagramAccountID string             `bson:"instagram_account_id" json:"instagram_account_id"`
	FacebookPageID     string             `bson:"facebook_page_id,omitempty" json:"facebook_page_id,omitempty"`
	AppID              string             `bson:"app_id" json:"app_id"`
	AppSecret          string             `bson:"app_secret" json:"-"`
	WebhookVerifyToken string             `bson:"webhook_verify_token" json:"-"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}
