package mongo

import (
	"context"

	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CatalogRepository stores the equipment catalog and the subscription plans.
type CatalogRepository struct {
	equipment *mongo.Collection
	plans     *mongo.Collection
	logger    observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		equipment: db.Collection(equipmentColl),
		plans:     db.Collection(plansColl),
		logger:    logger,
	}
}

func (c *CatalogRepository) GetEquipment(ctx context.Context, id string) (*domain.Equipment, error) {
	var e domain.Equipment
	filter := bson.M{"$or": bson.A{bson.M{"_id": id}, bson.M{"slug": id}}}
	if err := c.equipment.FindOne(ctx, filter).Decode(&e); err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

func (c *CatalogRepository) ListEquipment(ctx context.Context) ([]domain.Equipment, error) {
	cur, err := c.equipment.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []domain.Equipment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogRepository) InsertEquipment(ctx context.Context, e *domain.Equipment) error {
	_, err := c.equipment.InsertOne(ctx, e)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		c.logger.WithError(err).Error("failed to create equipment")
	}
	return mapErr(err)
}

func (c *CatalogRepository) UpdateEquipment(ctx context.Context, e *domain.Equipment) error {
	res, err := c.equipment.ReplaceOne(ctx, bson.M{"_id": e.ID}, e)
	if err != nil {
		c.logger.WithError(err).Error("failed to update equipment")
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (c *CatalogRepository) DeleteEquipment(ctx context.Context, id string) error {
	res, err := c.equipment.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (c *CatalogRepository) GetPlan(ctx context.Context, id string) (*domain.SubscriptionPlan, error) {
	var p domain.SubscriptionPlan
	if err := c.plans.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (c *CatalogRepository) ListPlans(ctx context.Context, activeOnly bool) ([]domain.SubscriptionPlan, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	cur, err := c.plans.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "price", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []domain.SubscriptionPlan{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogRepository) InsertPlan(ctx context.Context, p *domain.SubscriptionPlan) error {
	_, err := c.plans.InsertOne(ctx, p)
	if err != nil {
		c.logger.WithError(err).Error("failed to create plan")
	}
	return mapErr(err)
}

func (c *CatalogRepository) UpdatePlan(ctx context.Context, p *domain.SubscriptionPlan) error {
	res, err := c.plans.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
