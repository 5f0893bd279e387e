package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	bookingsColl      = "bookings"
	equipmentColl     = "equipment"
	plansColl         = "subscription_plans"
	subscriptionsColl = "customer_subscriptions"
	usersColl         = "users"
	notificationsColl = "notifications"
	auditColl         = "audit_logs"
)

func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "ping mongo")
	}
	return client, nil
}

// EnsureIndexes creates the indexes every repository relies on. It is safe to
// call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		bookingsColl: {
			{Keys: bson.D{{Key: "bookingId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "startDate", Value: 1}, {Key: "endDate", Value: 1}}},
			{Keys: bson.D{{Key: "equipmentList.equipmentId", Value: 1}}},
		},
		equipmentColl: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		usersColl: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		subscriptionsColl: {
			{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "endDate", Value: 1}}},
		},
		notificationsColl: {
			{Keys: bson.D{{Key: "recipientType", Value: 1}, {Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "create indexes on %s", coll)
		}
	}
	return nil
}

// mapErr translates driver errors into the domain categories.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Mark(err, domain.ErrConflict)
	}
	return err
}
