package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/events"
	"food-marketplace-api/logger"
	"food-marketplace-api/models"
	"food-marketplace-api/realtime"
	"food-marketplace-api/statemachine"
	"food-marketplace-api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlace_ComputesTotalAndWritesFirstStep(t *testing.T) {
	f := newFixture(t, Options{})
	u := f.user(t, "eve@example.com", models.RoleCustomer)

	o := f.place(t, u.ID, nil)

	assert.InDelta(t, 20.00, o.Subtotal, 1e-9)
	assert.InDelta(t, 25.59, o.Total, 1e-9)
	assert.True(t, o.TotalConsistent())
	assert.Equal(t, models.StatusPlaced, o.Status)
	assert.Equal(t, models.PaymentCash, o.PaymentMethod)
	assert.Equal(t, models.PaymentPending, o.PaymentStatus)
	require.NotNil(t, o.EstimatedDeliveryTime)
	assert.WithinDuration(t, o.CreatedAt.Add(45*time.Minute), *o.EstimatedDeliveryTime, time.Second)

	got, err := f.svc.Order().Get(context.Background(), o.ID, Caller{UserID: u.ID, Role: models.RoleCustomer})
	require.NoError(t, err)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, got.Status, got.LastStep().Step)

	recorded := f.sink.All()
	require.Len(t, recorded, 1)
	assert.Equal(t, events.OrderPlaced, recorded[0].Type)
	assert.Equal(t, o.ID, recorded[0].OrderID)
}

func TestPlace_Validation(t *testing.T) {
	f := newFixture(t, Options{})
	u := f.user(t, "val@example.com", models.RoleCustomer)
	ctx := context.Background()

	_, err := f.svc.Order().Place(ctx, PlaceOrderInput{UserID: u.ID})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.Order().Place(ctx, PlaceOrderInput{
		UserID: u.ID,
		Items:  []ItemInput{{Name: "Soup", Quantity: 0, Price: 4}},
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.Order().Place(ctx, PlaceOrderInput{
		UserID:  u.ID,
		Items:   []ItemInput{{Name: "Soup", Quantity: 1, Price: 4}},
		Charges: Charges{DeliveryFee: -1},
	})
	assert.True(t, apperrors.IsValidation(err))

	wrong := 30.0
	_, err = f.svc.Order().Place(ctx, PlaceOrderInput{
		UserID:  u.ID,
		Items:   []ItemInput{{Name: "Soup", Quantity: 2, Price: 10}},
		Charges: Charges{DeliveryFee: 3.99, Tax: 1.60},
		Total:   &wrong,
	})
	assert.True(t, apperrors.IsValidation(err))

	right := 25.59
	_, err = f.svc.Order().Place(ctx, PlaceOrderInput{
		UserID:  u.ID,
		Items:   []ItemInput{{Name: "Soup", Quantity: 2, Price: 10}},
		Charges: Charges{DeliveryFee: 3.99, Tax: 1.60},
		Total:   &right,
	})
	assert.NoError(t, err)

	_, err = f.svc.Order().Place(ctx, PlaceOrderInput{
		UserID:        u.ID,
		Items:         []ItemInput{{Name: "Soup", Quantity: 1, Price: 4}},
		PaymentMethod: "cheque",
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestPlace_FullModePricesFromMenu(t *testing.T) {
	f := newFixture(t, Options{RequireRestaurant: true})
	ctx := context.Background()
	owner, r := f.restaurant(t, "owner@example.com")
	item, err := f.svc.Restaurant().AddMenuItem(ctx, owner.ID, MenuItemInput{Name: "Lasagne", Price: 12.5})
	require.NoError(t, err)
	u := f.user(t, "full@example.com", models.RoleCustomer)

	_, err = f.svc.Order().Place(ctx, PlaceOrderInput{UserID: u.ID, Items: []ItemInput{{FoodItemID: item.ID, Quantity: 1}}})
	assert.True(t, apperrors.IsValidation(err), "restaurant id is required")

	o, err := f.svc.Order().Place(ctx, PlaceOrderInput{
		UserID:       u.ID,
		RestaurantID: &r.ID,
		Items:        []ItemInput{{FoodItemID: item.ID, Name: "cheap", Quantity: 2, Price: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Lasagne", o.Items[0].Name)
	assert.InDelta(t, 12.5, o.Items[0].Price, 1e-9)
	assert.InDelta(t, 25.0, o.Total, 1e-9)

	_, err = f.svc.Order().Place(ctx, PlaceOrderInput{
		UserID:       u.ID,
		RestaurantID: &r.ID,
		Items:        []ItemInput{{FoodItemID: item.ID + 100, Quantity: 1}},
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.Restaurant().UpdateMine(ctx, owner.ID, map[string]interface{}{"is_open": false})
	require.NoError(t, err)
	_, err = f.svc.Order().Place(ctx, PlaceOrderInput{
		UserID:       u.ID,
		RestaurantID: &r.ID,
		Items:        []ItemInput{{FoodItemID: item.ID, Quantity: 1}},
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestPlace_RedeemsCoupon(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	_, err := f.svc.Coupon().Create(ctx, CreateCouponInput{Code: "flat5", DiscountType: models.DiscountFixed, DiscountValue: 5, MinOrderValue: 20, MaxUses: 1})
	require.NoError(t, err)
	u := f.user(t, "coupon@example.com", models.RoleCustomer)

	o, err := f.svc.Order().Place(ctx, PlaceOrderInput{
		UserID:     u.ID,
		Items:      []ItemInput{{Name: "Pizza", Quantity: 2, Price: 10}},
		Charges:    Charges{DeliveryFee: 3.99, Tax: 1.60},
		CouponCode: "FLAT5",
	})
	require.NoError(t, err)
	assert.Equal(t, "FLAT5", o.CouponCode)
	assert.InDelta(t, 5.0, o.Discount, 1e-9)
	assert.InDelta(t, 20.59, o.Total, 1e-9)
	assert.True(t, o.TotalConsistent())

	c, err := f.stg.Coupon().GetByCode(ctx, "FLAT5")
	require.NoError(t, err)
	assert.Equal(t, 1, c.UsedCount)

	_, err = f.svc.Order().Place(ctx, PlaceOrderInput{
		UserID:     u.ID,
		Items:      []ItemInput{{Name: "Pizza", Quantity: 2, Price: 10}},
		CouponCode: "FLAT5",
	})
	assert.True(t, apperrors.IsValidation(err), "usage limit reached")
}

func TestTransition_ScenarioHistoryAndTerminalConflict(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	u := f.user(t, "track@example.com", models.RoleCustomer)
	o := f.place(t, u.ID, nil)

	sub := f.hub.Subscribe(realtime.OrderChannel(o.ID))
	defer sub.Close()

	path := []models.OrderStatus{models.StatusPreparing, models.StatusOutForDelivery, models.StatusDelivered}
	for _, to := range path {
		_, err := f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: to, Caller: admin()})
		require.NoError(t, err)
	}

	got, err := f.stg.Order().Get(ctx, o.ID)
	require.NoError(t, err)
	var steps []models.OrderStatus
	for _, s := range got.Steps {
		steps = append(steps, s.Step)
	}
	assert.Equal(t, []models.OrderStatus{models.StatusPlaced, models.StatusPreparing, models.StatusOutForDelivery, models.StatusDelivered}, steps)
	assert.Equal(t, 4, got.Version)

	for _, want := range path {
		ev := nextEvent(t, sub)
		assert.Equal(t, realtime.KindOrderUpdate, ev.Kind)
		var snap models.Order
		require.NoError(t, json.Unmarshal(ev.Data, &snap))
		assert.Equal(t, want, snap.Status)
		assert.Equal(t, want, snap.LastStep().Step)
	}

	_, err = f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: models.StatusPreparing, Caller: admin()})
	assert.True(t, apperrors.IsConflict(err))

	after, err := f.stg.Order().Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, after.Steps, 4)
	assert.Equal(t, models.StatusDelivered, after.Status)
}

func TestTransition_Errors(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	u := f.user(t, "err@example.com", models.RoleCustomer)
	o := f.place(t, u.ID, nil)

	_, err := f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID + 99, Status: models.StatusAccepted, Caller: admin()})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: "teleported", Caller: admin()})
	assert.True(t, apperrors.IsValidation(err))

	stranger := Caller{UserID: u.ID + 50, Role: models.RoleCustomer}
	_, err = f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: models.StatusCancelled, Caller: stranger})
	assert.True(t, apperrors.IsAuthorization(err))

	owner := Caller{UserID: u.ID, Role: models.RoleCustomer}
	_, err = f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: models.StatusPreparing, Caller: owner})
	assert.True(t, apperrors.IsAuthorization(err), "customers may only cancel")

	cancelled, err := f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: models.StatusCancelled, Caller: owner, Reason: "changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, "changed my mind", cancelled.CancellationReason)
	assert.Equal(t, "customer", cancelled.CancelledBy)
	require.NotNil(t, cancelled.CancelledAt)

	recorded := f.sink.All()
	last := recorded[len(recorded)-1]
	assert.Equal(t, events.OrderStatusChanged, last.Type)
	assert.Equal(t, models.StatusPlaced, last.PreviousStatus)
	assert.Equal(t, models.StatusCancelled, last.Status)
}

func TestTransition_RestaurantMustOwnOrder(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	owner, r := f.restaurant(t, "mine@example.com")
	other, _ := f.restaurant(t, "theirs@example.com")
	u := f.user(t, "hungry@example.com", models.RoleCustomer)
	o := f.place(t, u.ID, &r.ID)

	_, err := f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: models.StatusAccepted, Caller: Caller{UserID: other.ID, Role: models.RoleRestaurant}})
	assert.True(t, apperrors.IsAuthorization(err))

	got, err := f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: models.StatusAccepted, Caller: Caller{UserID: owner.ID, Role: models.RoleRestaurant}})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)

	_, err = f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: models.StatusDelivered, Caller: Caller{UserID: owner.ID, Role: models.RoleRestaurant}})
	assert.True(t, apperrors.IsAuthorization(err), "restaurants cannot mark delivered")
}

func TestTransition_StrictPolicy(t *testing.T) {
	f := newFixture(t, Options{Machine: statemachine.New(statemachine.Strict)})
	ctx := context.Background()
	u := f.user(t, "strict@example.com", models.RoleCustomer)
	o := f.place(t, u.ID, nil)

	_, err := f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: models.StatusDelivered, Caller: admin()})
	assert.True(t, apperrors.IsConflict(err))

	_, err = f.svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: models.StatusAccepted, Caller: admin()})
	assert.NoError(t, err)
}

type failingSink struct{}

func (failingSink) Emit(context.Context, events.Lifecycle) error { return errors.New("broker down") }
func (failingSink) Close() error                                 { return nil }

func TestTransition_SinkFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t, Options{})
	svc := New(f.stg, f.hub, failingSink{}, Options{}, logger.NewNop())
	u := f.user(t, "sink@example.com", models.RoleCustomer)
	o, err := svc.Order().Place(context.Background(), PlaceOrderInput{
		UserID: u.ID,
		Items:  []ItemInput{{Name: "Tea", Quantity: 1, Price: 2}},
	})
	require.NoError(t, err)

	got, err := svc.Order().Transition(context.Background(), TransitionInput{OrderID: o.ID, Status: models.StatusAccepted, Caller: admin()})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)
}

// downBus accepts subscriptions but fails every publish.
type downBus struct {
	*realtime.Hub
}

func (downBus) Publish(context.Context, string, realtime.Event) error {
	return apperrors.Dependency(errors.New("connection refused"), "publish to redis")
}

func TestTransition_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	svc := New(f.stg, downBus{Hub: f.hub}, f.sink, Options{}, logger.NewNop())
	u := f.user(t, "down@example.com", models.RoleCustomer)
	o := f.place(t, u.ID, nil)
	_, d := f.driver(t, "down-driver@example.com")

	got, err := svc.Order().Transition(ctx, TransitionInput{OrderID: o.ID, Status: models.StatusAccepted, Caller: admin()})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)

	assigned, err := svc.Driver().Assign(ctx, o.ID, d.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.DriverID)
	assert.Equal(t, d.ID, *assigned.DriverID)

	stored, err := f.stg.Order().Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Steps, 2)
	assert.Equal(t, models.StatusAccepted, stored.LastStep().Step)

	inbox, err := f.stg.Notification().List(ctx, u.ID, store.NotificationFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, inbox.Unread)
}

func TestPlace_RejectsClientDiscount(t *testing.T) {
	f := newFixture(t, Options{})
	u := f.user(t, "cheap@example.com", models.RoleCustomer)

	_, err := f.svc.Order().Place(context.Background(), PlaceOrderInput{
		UserID:   u.ID,
		Items:    []ItemInput{{Name: "Margherita", Quantity: 2, Price: 10}},
		Charges:  Charges{DeliveryFee: 3.99, Tax: 1.60},
		Discount: floatPtr(25.59),
	})
	assert.True(t, apperrors.IsValidation(err))

	o, err := f.svc.Order().Place(context.Background(), PlaceOrderInput{
		UserID:   u.ID,
		Items:    []ItemInput{{Name: "Margherita", Quantity: 2, Price: 10}},
		Charges:  Charges{DeliveryFee: 3.99, Tax: 1.60},
		Discount: floatPtr(0),
	})
	require.NoError(t, err)
	assert.InDelta(t, 25.59, o.Total, 1e-9)
	assert.Zero(t, o.Discount)
}

func TestGet_ViewingRights(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	owner, r := f.restaurant(t, "view@example.com")
	u := f.user(t, "viewer@example.com", models.RoleCustomer)
	o := f.place(t, u.ID, &r.ID)

	_, err := f.svc.Order().Get(ctx, o.ID, Caller{UserID: u.ID, Role: models.RoleCustomer})
	assert.NoError(t, err)
	_, err = f.svc.Order().Get(ctx, o.ID, Caller{UserID: owner.ID, Role: models.RoleRestaurant})
	assert.NoError(t, err)
	_, err = f.svc.Order().Get(ctx, o.ID, admin())
	assert.NoError(t, err)

	_, err = f.svc.Order().Get(ctx, o.ID, Caller{UserID: u.ID + 40, Role: models.RoleCustomer})
	assert.True(t, apperrors.IsAuthorization(err))
	_, err = f.svc.Order().Get(ctx, o.ID+100, admin())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListAll_RejectsUnknownSort(t *testing.T) {
	f := newFixture(t, Options{})
	_, _, err := f.svc.Order().ListAll(context.Background(), store.OrderFilter{Sort: "random"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdatePayment(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	u := f.user(t, "pay@example.com", models.RoleCustomer)
	o := f.place(t, u.ID, nil)

	got, err := f.svc.Order().UpdatePayment(ctx, o.ID, PaymentUpdate{Status: models.PaymentCompleted, TransactionID: "txn_1"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, "txn_1", got.TransactionID)
	assert.Equal(t, models.StatusPlaced, got.Status)

	_, err = f.svc.Order().UpdatePayment(ctx, o.ID, PaymentUpdate{Status: "lost"})
	assert.True(t, apperrors.IsValidation(err))

	recorded := f.sink.All()
	assert.Equal(t, events.OrderPaymentUpdated, recorded[len(recorded)-1].Type)
}
