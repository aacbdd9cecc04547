package repositories

import (
	"context"
	"time"

	"github.com/anonto42/hrops/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SuggestionRepository defines the interface for suggestion box operations
type SuggestionRepository interface {
	CreateSuggestion(ctx context.Context, suggestion *models.Suggestion) error
	GetSuggestionByID(ctx context.Context, id string) (*models.Suggestion, error)
	GetSuggestions(ctx context.Context, skip, limit int64) ([]models.Suggestion, error)
	Like(ctx context.Context, id string, userID uint) (*models.Suggestion, error)
}

// MongoSuggestionRepository implements SuggestionRepository for MongoDB
type MongoSuggestionRepository struct {
	collection *mongo.Collection
}

// NewMongoSuggestionRepository creates a new MongoSuggestionRepository
func NewMongoSuggestionRepository(db *mongo.Database) *MongoSuggestionRepository {
	return &MongoSuggestionRepository{collection: db.Collection("suggestions")}
}

func (r *MongoSuggestionRepository) CreateSuggestion(ctx context.Context, suggestion *models.Suggestion) error {
	suggestion.ID = primitive.NewObjectID()
	suggestion.CreatedAt = time.Now().UTC()
	if suggestion.LikedBy == nil {
		suggestion.LikedBy = []uint{}
	}
	_, err := r.collection.InsertOne(ctx, suggestion)
	return err
}

func (r *MongoSuggestionRepository) GetSuggestionByID(ctx context.Context, id string) (*models.Suggestion, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrSuggestionNotFound
	}

	var suggestion models.Suggestion
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&suggestion)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrSuggestionNotFound
		}
		return nil, err
	}
	return &suggestion, nil
}

func (r *MongoSuggestionRepository) GetSuggestions(ctx context.Context, skip, limit int64) ([]models.Suggestion, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	suggestions := []models.Suggestion{}
	if err = cursor.All(ctx, &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// Like records userID's like at most once and returns the updated suggestion.
func (r *MongoSuggestionRepository) Like(ctx context.Context, id string, userID uint) (*models.Suggestion, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrSuggestionNotFound
	}

	var updated models.Suggestion
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": objID, "liked_by": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"liked_by": userID}, "$inc": bson.M{"likes_count": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	if _, getErr := r.GetSuggestionByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrAlreadyLiked
}
