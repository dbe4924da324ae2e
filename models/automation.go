package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InstagramAutomation maps one post to keyword-triggered reply/DM
// behavior. Keywords are stored as a comma-separated list, templates
// as JSON-encoded string arrays.
type InstagramAutomation struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AccountID        primitive.ObjectID `bson:"account_id" json:"account_id"`
	PostID           string             `bson:"post_id" json:"post_id"`
	PostURL          string             `bson:"post_url,omitempty" json:"post_url,omitempty"`
	PostCaption      string             `bson:"post_caption,omitempty" json:"post_caption,omitempty"`
	Enabled          bool               `bson:"enabled" json:"enabled"`
	Keywords         string             `bson:"keywords" json:"keywords"`
	CommentTemplates string             `bson:"comment_templates" json:"comment_templates"`
	DMTemplates      string             `bson:"dm_templates" json:"dm_templates"`
	DMDelay          int                `bson:"dm_delay" json:"dm_delay"` // seconds
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

type CreateAutomationRequest struct {
	AccountID        string   `json:"account_id" binding:"required"`
	PostID           string   `json:"post_id" binding:"required"`
	PostURL          string   `json:"post_url,omitempty"`
	PostCaption      string   `json:"post_caption,omitempty"`
	Keywords         string   `json:"keywords" binding:"required"`
	CommentTemplates []string `json:"comment_templates" binding:"required"`
	DMTemplates      []string `json:"dm_templates,omitempty"`
	DMDelay          int      `json:"dm_delay,omitempty"`
	Enabled          *bool    `json:"enabled,omitempty"`
}

type UpdateAutomationRequest struct {
	Keywords         *string  `json:"keywords,omitempty"`
	CommentTemplates []string `json:"comment_templates,omitempty"`
	DMTemplates      []string `json:"dm_templates,omitempty"`
	DMDelay          *int     `json:"dm_delay,omitempty"`
	Enabled          *bool    `json:"enabled,omitempty"`
	PostURL          *string  `json:"post_url,omitempty"`
	PostCaption      *string  `json:"post_caption,omitempty"`
}
