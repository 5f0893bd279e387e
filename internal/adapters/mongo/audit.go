package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection(auditColl),
		logger: logger,
	}
}

func (a *AuditLogger) LogEvent(ctx context.Context, action, actorID string, data map[string]interface{}) error {
	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	if _, err := a.coll.InsertOne(ctx, entry); err != nil {
		a.logger.WithError(err).WithField("action", action).Error("failed to insert audit log")
		return err
	}
	return nil
}

// Recent returns the latest audit entries, newest first.
func (a *AuditLogger) Recent(ctx context.Context, limit int64) ([]domain.AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cur, err := a.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	out := []domain.AuditEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
