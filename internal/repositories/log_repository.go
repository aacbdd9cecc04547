package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/hrops/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LogRepository stores the audit trail of processed actions
type LogRepository interface {
	CreateLog(ctx context.Context, entry *models.LogEntry) error
	GetByActorID(ctx context.Context, actorID uint, page, limit int) ([]models.LogEntry, int64, error)
}

// MongoLogRepository implements LogRepository for MongoDB
type MongoLogRepository struct {
	collection *mongo.Collection
}

// NewMongoLogRepository creates a new MongoLogRepository
func NewMongoLogRepository(db *mongo.Database) *MongoLogRepository {
	return &MongoLogRepository{collection: db.Collection("action_logs")}
}

func (r *MongoLogRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "action_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_action").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"action_id": bson.M{"$gt": ""}}),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_actor"),
		},
	})
	if err != nil {
		return fmt.Errorf("create log indexes: %w", err)
	}
	return nil
}

// CreateLog inserts the entry, returning ErrDuplicate (with the stored row
// decoded into entry) when the action was already logged.
func (r *MongoLogRepository) CreateLog(ctx context.Context, entry *models.LogEntry) error {
	entry.ID = primitive.NewObjectID()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if findErr := r.collection.FindOne(ctx, bson.M{"action_id": entry.ActionID}).Decode(entry); findErr != nil {
		return fmt.Errorf("load duplicate log entry: %w", findErr)
	}
	return ErrDuplicate
}

// GetByActorID lists the actions an actor performed, newest first. Entries
// whose actor was hidden are not attributable and never match.
func (r *MongoLogRepository) GetByActorID(ctx context.Context, actorID uint, page, limit int) ([]models.LogEntry, int64, error) {
	filter := bson.M{"actor_id": actorID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	entries := []models.LogEntry{}
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
