package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InstagramInteraction records one processed comment. The unique
// (account_id, comment_id) index makes it the idempotency key: a
// redelivered webhook for the same comment is a no-op once this row
// exists. Created once by the comment processor, mutated exactly once
// by the DM processor (success or failure branch).
type InstagramInteraction struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AccountID         primitive.ObjectID `bson:"account_id" json:"account_id"`
	AutomationID      primitive.ObjectID `bson:"automation_id" json:"automation_id"`
	CommentID         string             `bson:"comment_id" json:"comment_id"`
	CommentText       string             `bson:"comment_text" json:"comment_text"`
	CommenterID       string             `bson:"commenter_id" json:"commenter_id"`
	CommenterUsername string             `bson:"commenter_username" json:"commenter_username"`
	KeywordMatched    string             `bson:"keyword_matched" json:"keyword_matched"`
	OurReply          string             `bson:"our_reply" json:"our_reply"`
	OurReplyID        string             `bson:"our_reply_id" json:"our_reply_id"`
	RepliedAt         *time.Time         `bson:"replied_at,omitempty" json:"replied_at,omitempty"`
	DMSent            bool               `bson:"dm_sent" json:"dm_sent"`
	DMContent         string             `bson:"dm_content,omitempty" json:"dm_content,omitempty"`
	DMSentAt          *time.Time         `bson:"dm_sent_at,omitempty" json:"dm_sent_at,omitempty"`
	DMError           string             `bson:"dm_error,omitempty" json:"dm_error,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
}
