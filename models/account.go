package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is a connected social account owned by a dashboard user.
type Account struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Platform  string             `bson:"platform" json:"platform" binding:"required"` // "instagram"
	Name      string             `bson:"name" json:"name" binding:"required,min=1,max=100"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
