package services

import (
	"context"
	"testing"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/models"
	"food-marketplace-api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	u, err := f.svc.User().Register(ctx, RegisterInput{Name: "Ann", Email: "Ann@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, u.Role)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	_, err = f.svc.User().Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	assert.True(t, apperrors.IsConflict(err))

	got, err := f.svc.User().Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.svc.User().Login(ctx, "ann@example.com", "wrong")
	assert.True(t, apperrors.IsAuthorization(err))
	_, err = f.svc.User().Login(ctx, "nobody@example.com", "secret1")
	assert.True(t, apperrors.IsAuthorization(err))
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.User().Register(ctx, RegisterInput{Name: "A", Email: "not-an-email", Password: "secret1"})
	assert.True(t, apperrors.IsValidation(err))
	_, err = f.svc.User().Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "123"})
	assert.True(t, apperrors.IsValidation(err))
	_, err = f.svc.User().Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1", Role: "chef"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestRegister_NeverGrantsAdmin(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.User().Register(ctx, RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "secret1", Role: models.RoleAdmin})
	assert.True(t, apperrors.IsAuthorization(err))
	_, err = f.svc.User().Login(ctx, "eve@example.com", "secret1")
	assert.True(t, apperrors.IsAuthorization(err), "no account should exist")

	ops, err := f.svc.User().Create(ctx, RegisterInput{Name: "Ops", Email: "ops@example.com", Password: "secret1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, ops.Role)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	first, err := f.svc.User().EnsureAdmin(ctx, "root@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.Role)

	again, err := f.svc.User().EnsureAdmin(ctx, "Root@Example.com", "other-pass")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	_, err = f.svc.User().Login(ctx, "root@example.com", "secret1")
	require.NoError(t, err)

	_, err = f.svc.User().Register(ctx, RegisterInput{Name: "Cus", Email: "cus@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = f.svc.User().EnsureAdmin(ctx, "cus@example.com", "secret1")
	assert.True(t, apperrors.IsConflict(err))
}

func TestRestaurantMenuOwnership(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	owner, r := f.restaurant(t, "menu-owner@example.com")
	other, _ := f.restaurant(t, "menu-other@example.com")

	_, err := f.svc.Restaurant().Create(ctx, owner.ID, RestaurantInput{Name: "Second", Address: "2 Main St"})
	assert.True(t, apperrors.IsConflict(err))

	item, err := f.svc.Restaurant().AddMenuItem(ctx, owner.ID, MenuItemInput{Name: "Tiramisu", Price: 6, Category: "dessert", IsVeg: true})
	require.NoError(t, err)
	_, err = f.svc.Restaurant().AddMenuItem(ctx, owner.ID, MenuItemInput{Name: "Free", Price: 0})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.Restaurant().UpdateMenuItem(ctx, other.ID, item.ID, map[string]interface{}{"price": 7})
	assert.True(t, apperrors.IsAuthorization(err))
	_, err = f.svc.Restaurant().UpdateMenuItem(ctx, owner.ID, item.ID, map[string]interface{}{"price": -1})
	assert.True(t, apperrors.IsValidation(err))

	updated, err := f.svc.Restaurant().UpdateMenuItem(ctx, owner.ID, item.ID, map[string]interface{}{"price": 7.5, "restaurant_id": 99})
	require.NoError(t, err)
	assert.InDelta(t, 7.5, updated.Price, 1e-9)
	assert.Equal(t, r.ID, updated.RestaurantID)

	_, items, err := f.svc.Restaurant().Menu(ctx, r.ID, store.MenuFilter{VegOnly: true})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	assert.True(t, apperrors.IsAuthorization(f.svc.Restaurant().DeleteMenuItem(ctx, other.ID, item.ID)))
	require.NoError(t, f.svc.Restaurant().DeleteMenuItem(ctx, owner.ID, item.ID))
	_, err = f.svc.Restaurant().UpdateMenuItem(ctx, owner.ID, item.ID, map[string]interface{}{"name": "gone"})
	assert.True(t, apperrors.IsNotFound(err))
}
