package services

import (
	"context"
	"testing"
	"time"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/models"
	"food-marketplace-api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbox_FilledByTransitionsAndAssignment(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	u := f.user(t, "inbox@example.com", models.RoleCustomer)
	other := f.user(t, "nosy@example.com", models.RoleCustomer)
	o := f.place(t, u.ID, nil)
	_, d := f.driver(t, "inbox-driver@example.com")

	_, err := f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: models.StatusOutForDelivery, Caller: admin()})
	require.NoError(t, err)
	_, err = f.svc.Driver().Assign(ctx, o.ID, d.ID)
	require.NoError(t, err)

	page, err := f.svc.Notification().List(ctx, u.ID, store.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.EqualValues(t, 2, page.Unread)
	newest, oldest := page.Notifications[0], page.Notifications[1]
	assert.Equal(t, models.NotifyDriverAssigned, newest.Type)
	assert.Contains(t, newest.Message, "Dana")
	assert.Equal(t, models.NotifyOrderStatus, oldest.Type)
	assert.Contains(t, oldest.Title, "out for delivery")
	require.NotNil(t, oldest.OrderID)
	assert.Equal(t, o.ID, *oldest.OrderID)

	empty, err := f.svc.Notification().List(ctx, other.ID, store.NotificationFilter{})
	require.NoError(t, err)
	assert.NotNil(t, empty.Notifications)
	assert.Empty(t, empty.Notifications)

	_, err = f.svc.Notification().MarkRead(ctx, other.ID, oldest.ID)
	assert.True(t, apperrors.IsAuthorization(err))
	read, err := f.svc.Notification().MarkRead(ctx, u.ID, oldest.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	n, err := f.svc.Notification().MarkAllRead(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.True(t, apperrors.IsAuthorization(f.svc.Notification().Delete(ctx, other.ID, newest.ID)))
	require.NoError(t, f.svc.Notification().Delete(ctx, u.ID, newest.ID))
	page, err = f.svc.Notification().List(ctx, u.ID, store.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 1)
	assert.Zero(t, page.Unread)
}

func TestRestaurantAnalytics_OwnerScoped(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	owner, r := f.restaurant(t, "stats-owner@example.com")
	u := f.user(t, "stats-eater@example.com", models.RoleCustomer)

	delivered := f.place(t, u.ID, &r.ID)
	cancelled := f.place(t, u.ID, &r.ID)
	f.place(t, u.ID, nil)
	_, err := f.svc.Order().Transition(ctx, TransitionInput{OrderID: delivered.ID, Status: models.StatusDelivered, Caller: admin()})
	require.NoError(t, err)
	_, err = f.svc.Order().Transition(ctx, TransitionInput{OrderID: cancelled.ID, Status: models.StatusCancelled, Caller: admin()})
	require.NoError(t, err)

	a, err := f.svc.Order().RestaurantAnalytics(ctx, owner.ID, store.Window{})
	require.NoError(t, err)
	assert.Equal(t, r.ID, a.RestaurantID)
	assert.EqualValues(t, 2, a.TotalOrders)
	assert.EqualValues(t, 1, a.CompletedOrders)
	assert.EqualValues(t, 1, a.CancelledOrders)
	assert.InDelta(t, delivered.Total, a.TotalRevenue, 0.001)
	assert.InDelta(t, delivered.Total, a.AvgOrderValue, 0.001)

	future := time.Now().Add(24 * time.Hour)
	a, err = f.svc.Order().RestaurantAnalytics(ctx, owner.ID, store.Window{From: future})
	require.NoError(t, err)
	assert.Zero(t, a.TotalOrders)

	_, err = f.svc.Order().RestaurantAnalytics(ctx, owner.ID, store.Window{From: future, To: time.Now()})
	assert.True(t, apperrors.IsValidation(err))
	_, err = f.svc.Order().RestaurantAnalytics(ctx, u.ID, store.Window{})
	assert.True(t, apperrors.IsNotFound(err))
}
