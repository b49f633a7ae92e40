package services

import (
	"context"
	"testing"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/events"
	"food-marketplace-api/models"
	"food-marketplace-api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) delivered(t *testing.T, userID uint, restaurantID *uint) *models.Order {
	t.Helper()
	o := f.place(t, userID, restaurantID)
	o, err := f.svc.Order().Transition(context.Background(), TransitionInput{OrderID: o.ID, Status: models.StatusDelivered, Caller: admin()})
	require.NoError(t, err)
	return o
}

func TestReview_RestaurantMeanAndDuplicateConflict(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	_, r := f.restaurant(t, "rated@example.com")
	u := f.user(t, "critic@example.com", models.RoleCustomer)
	first := f.delivered(t, u.ID, &r.ID)
	second := f.delivered(t, u.ID, &r.ID)

	rev, err := f.svc.Review().Create(ctx, CreateReviewInput{UserID: u.ID, OrderID: &first.ID, Rating: 5, Comment: "great"})
	require.NoError(t, err)
	require.NotNil(t, rev.RestaurantID)
	assert.Equal(t, r.ID, *rev.RestaurantID)

	_, err = f.svc.Review().Create(ctx, CreateReviewInput{UserID: u.ID, OrderID: &first.ID, Rating: 1})
	assert.True(t, apperrors.IsConflict(err))

	_, err = f.svc.Review().Create(ctx, CreateReviewInput{UserID: u.ID, OrderID: &second.ID, Rating: 2})
	require.NoError(t, err)

	got, err := f.stg.Restaurant().Get(ctx, r.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalRatings)
	assert.InDelta(t, 3.5, got.Rating, 1e-9)

	order, err := f.stg.Order().Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, order.Reviewed)
	require.NotNil(t, order.RestaurantRating)
	assert.InDelta(t, 5.0, *order.RestaurantRating, 1e-9)

	list, total, err := f.svc.Review().ListByRestaurant(ctx, r.ID, store.ReviewFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	recorded := f.sink.All()
	assert.Equal(t, events.ReviewCreated, recorded[len(recorded)-1].Type)
}

func TestReview_DriverUsesDeliveryRating(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	u := f.user(t, "drv-critic@example.com", models.RoleCustomer)
	o := f.place(t, u.ID, nil)
	_, d := f.driver(t, "rated-driver@example.com")
	_, err := f.svc.Driver().Assign(ctx, o.ID, d.ID)
	require.NoError(t, err)
	_, err = f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: models.StatusDelivered, Caller: admin()})
	require.NoError(t, err)

	_, err = f.svc.Review().Create(ctx, CreateReviewInput{UserID: u.ID, OrderID: &o.ID, Rating: 2, DeliveryRating: floatPtr(4)})
	require.NoError(t, err)

	got, err := f.stg.Driver().Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalRatings)
	assert.InDelta(t, 4.0, got.Rating, 1e-9)
}

func TestReview_Validation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	_, r := f.restaurant(t, "strict-rev@example.com")
	u := f.user(t, "rev-val@example.com", models.RoleCustomer)
	other := f.user(t, "rev-other@example.com", models.RoleCustomer)
	open := f.place(t, u.ID, &r.ID)
	done := f.delivered(t, u.ID, &r.ID)

	_, err := f.svc.Review().Create(ctx, CreateReviewInput{UserID: u.ID, RestaurantID: &r.ID, Rating: 6})
	assert.True(t, apperrors.IsValidation(err))
	_, err = f.svc.Review().Create(ctx, CreateReviewInput{UserID: u.ID, RestaurantID: &r.ID, Rating: 4, FoodRating: floatPtr(0)})
	assert.True(t, apperrors.IsValidation(err))
	_, err = f.svc.Review().Create(ctx, CreateReviewInput{UserID: u.ID, OrderID: &open.ID, Rating: 4})
	assert.True(t, apperrors.IsValidation(err), "order not delivered")
	_, err = f.svc.Review().Create(ctx, CreateReviewInput{UserID: other.ID, OrderID: &done.ID, Rating: 4})
	assert.True(t, apperrors.IsValidation(err), "not the caller's order")
	_, err = f.svc.Review().Create(ctx, CreateReviewInput{UserID: u.ID, Rating: 4})
	assert.True(t, apperrors.IsValidation(err), "no target")
	_, err = f.svc.Review().Create(ctx, CreateReviewInput{UserID: u.ID, RestaurantID: uintPtr(r.ID + 10), Rating: 4})
	assert.True(t, apperrors.IsNotFound(err))

	_, _, err = f.svc.Review().ListByRestaurant(ctx, r.ID+10, store.ReviewFilter{})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestReview_RespondAndReconcile(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	owner, r := f.restaurant(t, "reply@example.com")
	stranger, _ := f.restaurant(t, "stranger@example.com")
	u := f.user(t, "reply-critic@example.com", models.RoleCustomer)

	rev, err := f.svc.Review().Create(ctx, CreateReviewInput{UserID: u.ID, RestaurantID: &r.ID, Rating: 3})
	require.NoError(t, err)

	_, err = f.svc.Review().Respond(ctx, rev.ID, Caller{UserID: stranger.ID, Role: models.RoleRestaurant}, "thanks")
	assert.True(t, apperrors.IsAuthorization(err))
	_, err = f.svc.Review().Respond(ctx, rev.ID, Caller{UserID: owner.ID, Role: models.RoleRestaurant}, " ")
	assert.True(t, apperrors.IsValidation(err))

	replied, err := f.svc.Review().Respond(ctx, rev.ID, Caller{UserID: owner.ID, Role: models.RoleRestaurant}, "thanks for visiting")
	require.NoError(t, err)
	assert.Equal(t, "thanks for visiting", replied.Response)
	assert.NotNil(t, replied.RespondedAt)

	res, err := f.svc.Review().Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Restaurants)

	got, err := f.stg.Restaurant().Get(ctx, r.ID, false)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got.Rating, 1e-9)

	mine, err := f.svc.Review().ListMine(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
