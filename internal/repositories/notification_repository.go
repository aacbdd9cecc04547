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

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByRecipientID(ctx context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error)
	GetUnreadCount(ctx context.Context, recipientID uint) (int64, error)
	MarkAsRead(ctx context.Context, notificationID string, recipientID uint) error
	MarkAllAsRead(ctx context.Context, recipientID uint) (int64, error)
	GetGrouped(ctx context.Context, recipientID uint, now time.Time) (*GroupedNotifications, error)
}

// groupedLimit caps how many recent notifications the grouped view loads.
const groupedLimit = 100

// GroupedNotifications buckets notifications by age relative to a moment.
type GroupedNotifications struct {
	Today     []models.Notification `json:"today"`
	Yesterday []models.Notification `json:"yesterday"`
	ThisWeek  []models.Notification `json:"thisWeek"`
	Older     []models.Notification `json:"older"`
}

// GroupByAge splits notifications into calendar buckets in now's location.
// "This week" means the five days before yesterday.
func GroupByAge(notifications []models.Notification, now time.Time) *GroupedNotifications {
	g := &GroupedNotifications{
		Today:     []models.Notification{},
		Yesterday: []models.Notification{},
		ThisWeek:  []models.Notification{},
		Older:     []models.Notification{},
	}
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfYesterday := startOfToday.AddDate(0, 0, -1)
	startOfWeek := startOfToday.AddDate(0, 0, -6)

	for _, n := range notifications {
		created := n.CreatedAt.In(now.Location())
		switch {
		case !created.Before(startOfToday):
			g.Today = append(g.Today, n)
		case !created.Before(startOfYesterday):
			g.Yesterday = append(g.Yesterday, n)
		case !created.Before(startOfWeek):
			g.ThisWeek = append(g.ThisWeek, n)
		default:
			g.Older = append(g.Older, n)
		}
	}
	return g
}

// MongoNotificationRepository implements NotificationRepository for MongoDB
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

// EnsureIndexes creates the dedup index on (action_id, recipient_id) and the
// inbox listing index.
func (r *MongoNotificationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "action_id", Value: 1}, {Key: "recipient_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_action_recipient").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"action_id": bson.M{"$gt": ""}}),
		},
		{
			Keys:    bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("inbox"),
		},
	})
	if err != nil {
		return fmt.Errorf("create notification indexes: %w", err)
	}
	return nil
}

// CreateNotification inserts a notification. When the same action already
// produced a notification for this recipient, the stored row is decoded
// into notification and ErrDuplicate is returned.
func (r *MongoNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, notification)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}

	filter := bson.M{"action_id": notification.ActionID, "recipient_id": notification.RecipientID}
	if findErr := r.collection.FindOne(ctx, filter).Decode(notification); findErr != nil {
		return fmt.Errorf("load duplicate notification: %w", findErr)
	}
	return ErrDuplicate
}

// GetByRecipientID lists a recipient's notifications, unread first, newest first.
func (r *MongoNotificationRepository) GetByRecipientID(ctx context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	filter := bson.M{"recipient_id": recipientID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "read", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *MongoNotificationRepository) GetUnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "read": false})
}

// MarkAsRead flips read in a single filtered update so concurrent calls
// never read-modify-write. Only the owning recipient matches the filter.
func (r *MongoNotificationRepository) MarkAsRead(ctx context.Context, notificationID string, recipientID uint) error {
	objID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return ErrNotificationNotFound
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objID, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": objID}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrNotificationForbidden
	}
	return ErrNotificationNotFound
}

// MarkAllAsRead returns the number of notifications that were flipped.
func (r *MongoNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID uint) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// GetGrouped loads the most recent notifications and buckets them by age.
func (r *MongoNotificationRepository) GetGrouped(ctx context.Context, recipientID uint, now time.Time) (*GroupedNotifications, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(groupedLimit)
	cursor, err := r.collection.Find(ctx, bson.M{"recipient_id": recipientID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return GroupByAge(notifications, now), nil
}
