package mongo

import (
	"context"
	"time"

	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/subscription"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewUserRepository(db *mongo.Database, logger observability.Logger) *UserRepository {
	return &UserRepository{coll: db.Collection(usersColl), logger: logger}
}

func (r *UserRepository) InsertUser(ctx context.Context, u *domain.User) error {
	_, err := r.coll.InsertOne(ctx, u)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		r.logger.WithError(err).Error("failed to insert user")
	}
	return mapErr(err)
}

func (r *UserRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepository) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []domain.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepository) SetBlacklisted(ctx context.Context, id string, blacklisted bool) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"isBlacklisted": blacklisted, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type SubscriptionRepository struct {
	coll *mongo.Collection
}

func NewSubscriptionRepository(db *mongo.Database) *SubscriptionRepository {
	return &SubscriptionRepository{coll: db.Collection(subscriptionsColl)}
}

func (r *SubscriptionRepository) InsertSubscription(ctx context.Context, s *domain.CustomerSubscription) error {
	_, err := r.coll.InsertOne(ctx, s)
	return mapErr(err)
}

func (r *SubscriptionRepository) UpdateSubscription(ctx context.Context, s *domain.CustomerSubscription) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": s.ID}, s)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) GetSubscription(ctx context.Context, id string) (*domain.CustomerSubscription, error) {
	var s domain.CustomerSubscription
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *SubscriptionRepository) ListSubscriptions(ctx context.Context, f subscription.Filter) ([]domain.CustomerSubscription, error) {
	filter := bson.M{}
	if f.CustomerID != "" {
		filter["customerId"] = f.CustomerID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *SubscriptionRepository) ListDue(ctx context.Context, now time.Time) ([]domain.CustomerSubscription, error) {
	return r.find(ctx, bson.M{
		"status":  domain.SubscriptionActive,
		"endDate": bson.M{"$lte": now},
	})
}

func (r *SubscriptionRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]domain.CustomerSubscription, error) {
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []domain.CustomerSubscription{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type NotificationRepository struct {
	coll *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{coll: db.Collection(notificationsColl)}
}

func (r *NotificationRepository) Notify(ctx context.Context, n domain.Notification) error {
	_, err := r.coll.InsertOne(ctx, n)
	return mapErr(err)
}

// addressedTo matches notifications for one recipient plus broadcasts to its
// recipient type.
func addressedTo(to domain.RecipientType, recipientID string) bson.M {
	return bson.M{
		"recipientType": to,
		"$or": bson.A{
			bson.M{"recipientId": recipientID},
			bson.M{"recipientId": bson.M{"$exists": false}},
		},
	}
}

func (r *NotificationRepository) ListNotifications(ctx context.Context, to domain.RecipientType, recipientID string) ([]domain.Notification, error) {
	cur, err := r.coll.Find(ctx, addressedTo(to, recipientID),
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(100))
	if err != nil {
		return nil, err
	}
	out := []domain.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string, to domain.RecipientType, recipientID string) error {
	filter := addressedTo(to, recipientID)
	filter["_id"] = id
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
