package store

import (
	"context"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/models"

	"gorm.io/gorm"
)

type RestaurantFilter struct {
	Cuisine  string
	Search   string
	OpenOnly bool
}

type MenuFilter struct {
	Category      string
	VegOnly       bool
	AvailableOnly bool
}

type restaurantRepo struct {
	db *gorm.DB
}

func (r *restaurantRepo) Create(ctx context.Context, rest *models.Restaurant) error {
	return wrap(r.db.WithContext(ctx).Create(rest).Error, "restaurant")
}

func (r *restaurantRepo) Get(ctx context.Context, id uint, withMenu bool) (*models.Restaurant, error) {
	q := r.db.WithContext(ctx)
	if withMenu {
		q = q.Preload("MenuItems")
	}
	var rest models.Restaurant
	if err := q.First(&rest, id).Error; err != nil {
		return nil, wrap(err, "restaurant")
	}
	return &rest, nil
}

func (r *restaurantRepo) GetByOwner(ctx context.Context, ownerID uint) (*models.Restaurant, error) {
	var rest models.Restaurant
	err := r.db.WithContext(ctx).Preload("MenuItems").Where("owner_id = ?", ownerID).First(&rest).Error
	if err != nil {
		return nil, wrap(err, "restaurant")
	}
	return &rest, nil
}

func (r *restaurantRepo) List(ctx context.Context, f RestaurantFilter) ([]models.Restaurant, error) {
	q := r.db.WithContext(ctx).Preload("Owner")
	if f.Cuisine != "" {
		q = q.Where("cuisine LIKE ?", "%"+f.Cuisine+"%")
	}
	if f.Search != "" {
		q = q.Where("name LIKE ?", "%"+f.Search+"%")
	}
	if f.OpenOnly {
		q = q.Where("is_open = ?", true)
	}
	var list []models.Restaurant
	err := q.Order("id asc").Find(&list).Error
	return list, wrap(err, "restaurant")
}

func (r *restaurantRepo) Update(ctx context.Context, id uint, patch map[string]interface{}) (*models.Restaurant, error) {
	res := r.db.WithContext(ctx).Model(&models.Restaurant{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return nil, wrap(res.Error, "restaurant")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("restaurant not found")
	}
	return r.Get(ctx, id, false)
}

// ── Menu items ──────────────────────────────────────────────────────────────

func (r *restaurantRepo) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	return wrap(r.db.WithContext(ctx).Create(item).Error, "menu item")
}

func (r *restaurantRepo) GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, wrap(err, "menu item")
	}
	return &item, nil
}

func (r *restaurantRepo) GetMenuItems(ctx context.Context, ids []uint) (map[uint]models.MenuItem, error) {
	out := make(map[uint]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []models.MenuItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, wrap(err, "menu item")
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (r *restaurantRepo) ListMenu(ctx context.Context, restaurantID uint, f MenuFilter) ([]models.MenuItem, error) {
	q := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.VegOnly {
		q = q.Where("is_veg = ?", true)
	}
	if f.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}
	var items []models.MenuItem
	err := q.Order("id asc").Find(&items).Error
	return items, wrap(err, "menu item")
}

func (r *restaurantRepo) UpdateMenuItem(ctx context.Context, id uint, patch map[string]interface{}) (*models.MenuItem, error) {
	res := r.db.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return nil, wrap(res.Error, "menu item")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("menu item not found")
	}
	return r.GetMenuItem(ctx, id)
}

func (r *restaurantRepo) DeleteMenuItem(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.MenuItem{}, id)
	if res.Error != nil {
		return wrap(res.Error, "menu item")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("menu item not found")
	}
	return nil
}
