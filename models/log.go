package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Log levels for per-account activity entries.
const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
	LogLevelSuccess = "success"
)

// AccountLog is an activity entry shown on the account dashboard.
type AccountLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AccountID primitive.ObjectID `bson:"account_id" json:"account_id"`
	Level     string             `bson:"level" json:"level"`
	Message   string             `bson:"message" json:"message"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
