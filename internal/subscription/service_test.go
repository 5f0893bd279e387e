package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/studio-bookings/internal/adapters/memory"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	customer = domain.Actor{ID: "cust-1", Role: domain.RoleCustomer}
	admin    = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

func newService(t *testing.T) (*subscription.Service, *memory.Store, *domain.SubscriptionPlan) {
	t.Helper()
	store := memory.NewStore()
	svc := subscription.NewService(store, store, store, store, observability.NewLogger())
	plan, err := svc.CreatePlan(context.Background(), subscription.PlanInput{
		Name:         " Gold ",
		Price:        25000,
		DurationDays: 30,
		Manpower:     domain.Manpower{Photographers: 2},
	})
	require.NoError(t, err)
	return svc, store, plan
}

func TestCreatePlan(t *testing.T) {
	svc, _, plan := newService(t)
	assert.Equal(t, "Gold", plan.Name)
	assert.True(t, plan.IsActive)
	assert.NotNil(t, plan.IncludedEquipment)

	_, err := svc.CreatePlan(context.Background(), subscription.PlanInput{Name: "Zero", DurationDays: 0})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestUpdatePlan_Deactivate(t *testing.T) {
	svc, _, plan := newService(t)
	ctx := context.Background()

	inactive := false
	updated, err := svc.UpdatePlan(ctx, plan.ID, subscription.PlanInput{Name: "Gold", Price: 27000, DurationDays: 30, IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 27000.0, updated.Price)

	active, err := svc.ListPlans(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.Request(ctx, customer, plan.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	_, err = svc.UpdatePlan(ctx, "missing", subscription.PlanInput{Name: "x", DurationDays: 1})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRequestApproveLifecycle(t *testing.T) {
	svc, store, plan := newService(t)
	ctx := context.Background()

	sub, err := svc.Request(ctx, customer, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionPending, sub.Status)
	assert.Equal(t, "Gold", sub.PlanName)

	_, err = svc.Request(ctx, customer, plan.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidState), "one open subscription per plan")

	approved, err := svc.Approve(ctx, admin, sub.ID, "welcome")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, approved.Status)
	require.NotNil(t, approved.StartDate)
	require.NotNil(t, approved.EndDate)
	assert.Equal(t, 30*24*time.Hour, approved.EndDate.Sub(*approved.StartDate))
	assert.Equal(t, "admin-1", approved.Approval.ApprovedBy)

	_, err = svc.Reject(ctx, admin, sub.ID, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	suspended, err := svc.Suspend(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionSuspended, suspended.Status)

	// A suspended subscription no longer blocks a new request.
	_, err = svc.Request(ctx, customer, plan.ID)
	assert.NoError(t, err)

	mine, err := svc.ListMine(ctx, customer)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	var customerNotes int
	for _, n := range store.Notifications() {
		if n.RecipientID == customer.ID {
			customerNotes++
		}
	}
	assert.Equal(t, 2, customerNotes)
	assert.NotEmpty(t, store.Events())
}

func TestCancel_OwnershipAndState(t *testing.T) {
	svc, _, plan := newService(t)
	ctx := context.Background()

	sub, err := svc.Request(ctx, customer, plan.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, domain.Actor{ID: "cust-2", Role: domain.RoleCustomer}, sub.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	cancelled, err := svc.Cancel(ctx, customer, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, customer, sub.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	_, err = svc.Approve(ctx, admin, "missing", "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestExpireDue(t *testing.T) {
	svc, store, plan := newService(t)
	ctx := context.Background()

	due, err := svc.Request(ctx, customer, plan.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, admin, due.ID, "")
	require.NoError(t, err)

	fresh, err := svc.Request(ctx, domain.Actor{ID: "cust-2"}, plan.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, admin, fresh.ID, "")
	require.NoError(t, err)

	// Push the first subscription's end date into the past.
	stored, err := store.GetSubscription(ctx, due.ID)
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Hour)
	stored.EndDate = &past
	require.NoError(t, store.UpdateSubscription(ctx, stored))

	n, err := svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	expired, err := svc.List(ctx, subscription.Filter{Status: domain.SubscriptionExpired})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, due.ID, expired[0].ID)

	n, err = svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
