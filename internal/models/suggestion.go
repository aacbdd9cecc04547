package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Suggestion is an idea posted to the suggestion box (MongoDB)
type Suggestion struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AuthorID   uint               `json:"author_id" bson:"author_id"`
	Anonymous  bool               `json:"anonymous" bson:"anonymous"`
	Content    string             `json:"content" bson:"content"`
	LikedBy    []uint             `json:"-" bson:"liked_by"`
	LikesCount int                `json:"likes_count" bson:"likes_count"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}

// CreateSuggestionRequest defines the request body for creating a suggestion
type CreateSuggestionRequest struct {
	Content   string `json:"content" validate:"required,min=1,max=1000"`
	Anonymous bool   `json:"anonymous"`
}
