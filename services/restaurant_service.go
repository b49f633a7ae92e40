package services

import (
	"context"
	"strings"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/logger"
	"food-marketplace-api/models"
	"food-marketplace-api/store"

	"github.com/spf13/cast"
)

type RestaurantService interface {
	Create(ctx context.Context, ownerID uint, in RestaurantInput) (*models.Restaurant, error)
	Mine(ctx context.Context, ownerID uint) (*models.Restaurant, error)
	UpdateMine(ctx context.Context, ownerID uint, patch map[string]interface{}) (*models.Restaurant, error)
	Get(ctx context.Context, id uint) (*models.Restaurant, error)
	List(ctx context.Context, f store.RestaurantFilter) ([]models.Restaurant, error)
	Menu(ctx context.Context, id uint, f store.MenuFilter) (*models.Restaurant, []models.MenuItem, error)

	AddMenuItem(ctx context.Context, ownerID uint, in MenuItemInput) (*models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, ownerID, itemID uint, patch map[string]interface{}) (*models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, ownerID, itemID uint) error
}

type RestaurantInput struct {
	Name        string `json:"name"`
	Cuisine     string `json:"cuisine"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

type MenuItemInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	IsVeg       bool    `json:"is_veg"`
}

var (
	restaurantFields = map[string]string{
		"name": "string", "cuisine": "string", "address": "string", "description": "string", "is_open": "bool",
	}
	menuItemFields = map[string]string{
		"name": "string", "description": "string", "price": "float", "category": "string",
		"is_available": "bool", "is_veg": "bool",
	}
)

type restaurantService struct {
	stg store.IRestaurantStorage
	log logger.ILogger
}

func NewRestaurantService(stg store.IStorage, log logger.ILogger) RestaurantService {
	return &restaurantService{
		stg: stg.Restaurant(),
		log: log,
	}
}

// cleanPatch keeps the allowed keys of a JSON patch and coerces their values.
func cleanPatch(raw map[string]interface{}, allowed map[string]string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for k, v := range raw {
		kind, ok := allowed[k]
		if !ok {
			continue
		}
		var err error
		switch kind {
		case "string":
			out[k], err = cast.ToStringE(v)
		case "bool":
			out[k], err = cast.ToBoolE(v)
		case "float":
			out[k], err = cast.ToFloat64E(v)
		}
		if err != nil {
			return nil, apperrors.Validation("invalid value for %s", k)
		}
	}
	if len(out) == 0 {
		return nil, apperrors.Validation("nothing to update")
	}
	return out, nil
}

func (s *restaurantService) Create(ctx context.Context, ownerID uint, in RestaurantInput) (*models.Restaurant, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Address) == "" {
		return nil, apperrors.Validation("name and address are required")
	}
	if _, err := s.stg.GetByOwner(ctx, ownerID); err == nil {
		return nil, apperrors.Conflict("you already own a restaurant")
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	r := &models.Restaurant{
		OwnerID:     ownerID,
		Name:        in.Name,
		Cuisine:     in.Cuisine,
		Address:     in.Address,
		Description: in.Description,
		IsOpen:      true,
	}
	if err := s.stg.Create(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("restaurant created", logger.Uint("restaurant_id", r.ID), logger.Uint("owner_id", ownerID))
	return r, nil
}

func (s *restaurantService) Mine(ctx context.Context, ownerID uint) (*models.Restaurant, error) {
	r, err := s.stg.GetByOwner(ctx, ownerID)
	if apperrors.IsNotFound(err) {
		return nil, apperrors.NotFound("no restaurant found for your account")
	}
	return r, err
}

func (s *restaurantService) UpdateMine(ctx context.Context, ownerID uint, patch map[string]interface{}) (*models.Restaurant, error) {
	r, err := s.Mine(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	clean, err := cleanPatch(patch, restaurantFields)
	if err != nil {
		return nil, err
	}
	return s.stg.Update(ctx, r.ID, clean)
}

func (s *restaurantService) Get(ctx context.Context, id uint) (*models.Restaurant, error) {
	return s.stg.Get(ctx, id, true)
}

func (s *restaurantService) List(ctx context.Context, f store.RestaurantFilter) ([]models.Restaurant, error) {
	return s.stg.List(ctx, f)
}

func (s *restaurantService) Menu(ctx context.Context, id uint, f store.MenuFilter) (*models.Restaurant, []models.MenuItem, error) {
	r, err := s.stg.Get(ctx, id, false)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.stg.ListMenu(ctx, id, f)
	if err != nil {
		return nil, nil, err
	}
	return r, items, nil
}

func (s *restaurantService) AddMenuItem(ctx context.Context, ownerID uint, in MenuItemInput) (*models.MenuItem, error) {
	r, err := s.stg.GetByOwner(ctx, ownerID)
	if apperrors.IsNotFound(err) {
		return nil, apperrors.NotFound("create a restaurant first before adding menu items")
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.Validation("name is required")
	}
	if in.Price <= 0 {
		return nil, apperrors.Validation("price must be positive")
	}

	item := &models.MenuItem{
		RestaurantID: r.ID,
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		Category:     in.Category,
		IsVeg:        in.IsVeg,
		IsAvailable:  true,
	}
	if err := s.stg.CreateMenuItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ownedItem loads a menu item and checks it belongs to the owner's restaurant.
func (s *restaurantService) ownedItem(ctx context.Context, ownerID, itemID uint) (*models.MenuItem, error) {
	item, err := s.stg.GetMenuItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	r, err := s.stg.Get(ctx, item.RestaurantID, false)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != ownerID {
		return nil, apperrors.Authorization("you don't own this menu item")
	}
	return item, nil
}

func (s *restaurantService) UpdateMenuItem(ctx context.Context, ownerID, itemID uint, patch map[string]interface{}) (*models.MenuItem, error) {
	item, err := s.ownedItem(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}
	clean, err := cleanPatch(patch, menuItemFields)
	if err != nil {
		return nil, err
	}
	if p, ok := clean["price"].(float64); ok && p <= 0 {
		return nil, apperrors.Validation("price must be positive")
	}
	return s.stg.UpdateMenuItem(ctx, item.ID, clean)
}

func (s *restaurantService) DeleteMenuItem(ctx context.Context, ownerID, itemID uint) error {
	item, err := s.ownedItem(ctx, ownerID, itemID)
	if err != nil {
		return err
	}
	return s.stg.DeleteMenuItem(ctx, item.ID)
}
