package catalog_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/studio-bookings/internal/adapters/memory"
	"github.com/robertarktes/studio-bookings/internal/catalog"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_SlugAndDefaults(t *testing.T) {
	svc := catalog.NewService(memory.NewStore())
	ctx := context.Background()

	e, err := svc.Create(ctx, catalog.EquipmentInput{Name: "Sony A7 IV Body", Category: "Camera", Price: 20000})
	require.NoError(t, err)
	assert.Equal(t, "sony-a7-iv-body", e.Slug)
	assert.Equal(t, 1, e.Quantity)
	assert.Equal(t, 1, e.AvailableQuantity)

	dup, err := svc.Create(ctx, catalog.EquipmentInput{Name: "Sony A7 IV Body", Price: 21000})
	require.NoError(t, err)
	assert.NotEqual(t, e.Slug, dup.Slug)
	assert.Contains(t, dup.Slug, "sony-a7-iv-body-")

	bySlug, err := svc.Get(ctx, "sony-a7-iv-body")
	require.NoError(t, err)
	assert.Equal(t, e.ID, bySlug.ID)
}

func TestCreate_Validation(t *testing.T) {
	svc := catalog.NewService(memory.NewStore())
	ctx := context.Background()

	for _, in := range []catalog.EquipmentInput{
		{Name: "  "},
		{Name: "Lens", Price: -1},
		{Name: "Lens", Rating: 6},
		{Name: "Lens", Quantity: -2},
	} {
		_, err := svc.Create(ctx, in)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), "%+v", in)
	}
}

func TestUpdateDeleteList(t *testing.T) {
	svc := catalog.NewService(memory.NewStore())
	ctx := context.Background()

	cam, err := svc.Create(ctx, catalog.EquipmentInput{Name: "Camera", Category: "Camera", Price: 1000, Quantity: 3})
	require.NoError(t, err)
	_, err = svc.Create(ctx, catalog.EquipmentInput{Name: "Softbox", Category: "Lighting", Price: 400})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, cam.ID, catalog.EquipmentInput{Name: "Cinema Camera", Category: "Camera", Price: 1500, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, "cinema-camera", updated.Slug)
	assert.Equal(t, 5, updated.Quantity)
	assert.Equal(t, 5, updated.AvailableQuantity)

	lighting, err := svc.List(ctx, "lighting")
	require.NoError(t, err)
	require.Len(t, lighting, 1)
	assert.Equal(t, "Softbox", lighting[0].Name)

	require.NoError(t, svc.Delete(ctx, cam.ID))
	_, err = svc.Get(ctx, cam.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(svc.Delete(ctx, cam.ID), domain.ErrNotFound))
}
