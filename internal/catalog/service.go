package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/robertarktes/studio-bookings/internal/domain"
)

type Store interface {
	InsertEquipment(ctx context.Context, e *domain.Equipment) error
	UpdateEquipment(ctx context.Context, e *domain.Equipment) error
	DeleteEquipment(ctx context.Context, id string) error
	// GetEquipment resolves either the id or the slug.
	GetEquipment(ctx context.Context, id string) (*domain.Equipment, error)
	ListEquipment(ctx context.Context) ([]domain.Equipment, error)
}

type EquipmentInput struct {
	Name        string
	Category    string
	Description string
	Price       float64
	Rating      float64
	Image       string
	Quantity    int
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func validate(in EquipmentInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.InvalidInputf("equipment name is required")
	}
	if in.Price < 0 {
		return domain.InvalidInputf("equipment price must not be negative")
	}
	if in.Rating < 0 || in.Rating > 5 {
		return domain.InvalidInputf("rating must be between 0 and 5")
	}
	if in.Quantity < 0 {
		return domain.InvalidInputf("quantity must not be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in EquipmentInput) (*domain.Equipment, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	now := s.now()
	e := &domain.Equipment{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(in.Name),
		Category:          in.Category,
		Description:       in.Description,
		Price:             in.Price,
		Rating:            in.Rating,
		Image:             in.Image,
		Quantity:          qty,
		AvailableQuantity: qty,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	e.Slug = slug.Make(e.Name)

	err := s.store.InsertEquipment(ctx, e)
	if errors.Is(err, domain.ErrConflict) {
		// Same name already taken; disambiguate with the id prefix.
		e.Slug = slug.Make(e.Name + " " + e.ID[:8])
		err = s.store.InsertEquipment(ctx, e)
	}
	if err != nil {
		return nil, errors.Wrap(err, "insert equipment")
	}
	return e, nil
}

func (s *Service) Update(ctx context.Context, id string, in EquipmentInput) (*domain.Equipment, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != e.Name {
		e.Name = name
		e.Slug = slug.Make(name)
	}
	e.Category = in.Category
	e.Description = in.Description
	e.Price = in.Price
	e.Rating = in.Rating
	e.Image = in.Image
	if in.Quantity > 0 {
		e.AvailableQuantity += in.Quantity - e.Quantity
		if e.AvailableQuantity < 0 {
			e.AvailableQuantity = 0
		}
		e.Quantity = in.Quantity
	}
	e.UpdatedAt = s.now()
	if err := s.store.UpdateEquipment(ctx, e); err != nil {
		return nil, errors.Wrapf(err, "update equipment %s", id)
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return errors.Wrapf(s.store.DeleteEquipment(ctx, e.ID), "delete equipment %s", id)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Equipment, error) {
	e, err := s.store.GetEquipment(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFoundf("equipment %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load equipment %s", id)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, category string) ([]domain.Equipment, error) {
	all, err := s.store.ListEquipment(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list equipment")
	}
	if category == "" {
		return all, nil
	}
	out := make([]domain.Equipment, 0, len(all))
	for _, e := range all {
		if strings.EqualFold(e.Category, category) {
			out = append(out, e)
		}
	}
	return out, nil
}
