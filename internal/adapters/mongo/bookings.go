package mongo

import (
	"context"
	"time"

	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BookingRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewBookingRepository(db *mongo.Database, logger observability.Logger) *BookingRepository {
	return &BookingRepository{
		coll:   db.Collection(bookingsColl),
		logger: logger,
	}
}

func (r *BookingRepository) InsertBooking(ctx context.Context, b *domain.Booking) error {
	_, err := r.coll.InsertOne(ctx, b)
	if err != nil {
		r.logger.WithError(err).WithField("booking", b.BookingID).Error("failed to insert booking")
	}
	return mapErr(err)
}

func (r *BookingRepository) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	filter := bson.M{"$or": bson.A{bson.M{"_id": id}, bson.M{"bookingId": id}}}
	if err := r.coll.FindOne(ctx, filter).Decode(&b); err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

func (r *BookingRepository) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": b.ID}, b)
	if err != nil {
		r.logger.WithError(err).WithField("booking", b.BookingID).Error("failed to update booking")
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BookingRepository) ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, int64, error) {
	filter := bson.M{}
	if f.CustomerID != "" {
		filter["customerId"] = f.CustomerID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * f.Limit)).SetLimit(int64(f.Limit))
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	out := []domain.Booking{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *BookingRepository) CountBookings(ctx context.Context, status domain.BookingStatus) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"status": status})
}

// FindOverlapping uses the closed-interval test: startDate <= end and endDate >= start.
func (r *BookingRepository) FindOverlapping(ctx context.Context, start, end time.Time, statuses []domain.BookingStatus, equipmentIDs []string) ([]domain.Booking, error) {
	filter := bson.M{
		"status":    bson.M{"$in": statuses},
		"startDate": bson.M{"$lte": end},
		"endDate":   bson.M{"$gte": start},
	}
	if len(equipmentIDs) > 0 {
		filter["equipmentList.equipmentId"] = bson.M{"$in": equipmentIDs}
	}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var out []domain.Booking
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
