package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"food-marketplace-api/config"
	"food-marketplace-api/events"
	"food-marketplace-api/logger"
	"food-marketplace-api/models"
	"food-marketplace-api/realtime"
	"food-marketplace-api/store"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc  IServiceManager
	stg  store.IStorage
	hub  *realtime.Hub
	sink *events.Recorder
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.OpenDB(config.Config{
		DBDriver: config.DriverSQLite,
		DBDSN:    fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name),
	}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	stg := store.New(db)
	hub := realtime.NewHub(16)
	sink := &events.Recorder{}
	return &fixture{
		svc:  New(stg, hub, sink, opts, logger.NewNop()),
		stg:  stg,
		hub:  hub,
		sink: sink,
	}
}

func (f *fixture) user(t *testing.T, email string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, f.stg.User().Create(context.Background(), u))
	return u
}

func (f *fixture) restaurant(t *testing.T, ownerEmail string) (*models.User, *models.Restaurant) {
	t.Helper()
	owner := f.user(t, ownerEmail, models.RoleRestaurant)
	r, err := f.svc.Restaurant().Create(context.Background(), owner.ID, RestaurantInput{Name: "Luigi's", Address: "1 Main St", Cuisine: "italian"})
	require.NoError(t, err)
	return owner, r
}

func (f *fixture) driver(t *testing.T, email string) (*models.User, *models.Driver) {
	t.Helper()
	u := f.user(t, email, models.RoleDriver)
	d, err := f.svc.Driver().Create(context.Background(), CreateDriverInput{
		UserID:       &u.ID,
		Name:         "Dana",
		Email:        email,
		Phone:        "555-0100",
		Vehicle:      "scooter",
		LicensePlate: "FD-123",
	})
	require.NoError(t, err)
	return u, d
}

// place creates the reference order: 2 x 10.00, delivery 3.99, tax 1.60.
func (f *fixture) place(t *testing.T, userID uint, restaurantID *uint) *models.Order {
	t.Helper()
	o, err := f.svc.Order().Place(context.Background(), PlaceOrderInput{
		UserID:       userID,
		RestaurantID: restaurantID,
		Items:        []ItemInput{{FoodItemID: 1, Name: "Margherita", Quantity: 2, Price: 10}},
		Charges:      Charges{DeliveryFee: 3.99, Tax: 1.60},
	})
	require.NoError(t, err)
	return o
}

func admin() Caller {
	return Caller{UserID: 999, Role: models.RoleAdmin}
}

func nextEvent(t *testing.T, sub *realtime.Subscription) realtime.Event {
	t.Helper()
	select {
	case ev := <-sub.C():
		return ev
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
	return realtime.Event{}
}

func uintPtr(v uint) *uint { return &v }

func floatPtr(v float64) *float64 { return &v }
