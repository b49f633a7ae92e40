package services

import (
	"context"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/models"
	"food-marketplace-api/store"
)

// access answers which callers may act on or look at an order.
type access struct {
	stg store.IStorage
}

// actsFor reports whether the caller holds the order in the capacity of its role:
// the placing customer, the owning restaurant, the assigned driver, or an admin.
func (a access) actsFor(ctx context.Context, o *models.Order, c Caller) (bool, error) {
	switch c.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleCustomer:
		return o.UserID == c.UserID, nil
	case models.RoleRestaurant:
		if o.RestaurantID == nil {
			return false, nil
		}
		r, err := a.stg.Restaurant().GetByOwner(ctx, c.UserID)
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return r.ID == *o.RestaurantID, nil
	case models.RoleDriver:
		if o.DriverID == nil {
			return false, nil
		}
		d, err := a.stg.Driver().GetByUser(ctx, c.UserID)
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return d.ID == *o.DriverID, nil
	}
	return false, nil
}

// canView lets the placing user see an order whatever role their account has.
func (a access) canView(ctx context.Context, o *models.Order, c Caller) error {
	if o.UserID == c.UserID {
		return nil
	}
	ok, err := a.actsFor(ctx, o, c)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Authorization("you are not allowed to view order %d", o.ID)
	}
	return nil
}
