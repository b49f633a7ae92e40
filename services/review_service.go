package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/events"
	"food-marketplace-api/logger"
	"food-marketplace-api/models"
	"food-marketplace-api/store"
)

type ReviewService interface {
	Create(ctx context.Context, in CreateReviewInput) (*models.Review, error)
	ListByRestaurant(ctx context.Context, restaurantID uint, f store.ReviewFilter) ([]models.Review, int64, error)
	ListMine(ctx context.Context, userID uint) ([]models.Review, error)
	Respond(ctx context.Context, id uint, caller Caller, response string) (*models.Review, error)
	Reconcile(ctx context.Context) (*store.ReconcileResult, error)
}

// CreateReviewInput rates a restaurant, a driver, or both. With OrderID the
// targets default to the order's restaurant and driver.
type CreateReviewInput struct {
	UserID         uint     `json:"-"`
	OrderID        *uint    `json:"order_id"`
	RestaurantID   *uint    `json:"restaurant_id"`
	DriverID       *uint    `json:"driver_id"`
	Rating         float64  `json:"rating"`
	FoodRating     *float64 `json:"food_rating"`
	ServiceRating  *float64 `json:"service_rating"`
	DeliveryRating *float64 `json:"delivery_rating"`
	Title          string   `json:"title"`
	Comment        string   `json:"comment"`
}

type reviewService struct {
	stg    store.IStorage
	notify notifier
	log    logger.ILogger
	now    func() time.Time
}

func NewReviewService(stg store.IStorage, n notifier, log logger.ILogger) ReviewService {
	return &reviewService{
		stg:    stg,
		notify: n,
		log:    log,
		now:    time.Now,
	}
}

func validRating(v float64) bool {
	return v >= models.MinRating && v <= models.MaxRating
}

func (in CreateReviewInput) validate() error {
	if !validRating(in.Rating) {
		return apperrors.Validation("rating must be between 1 and 5")
	}
	for name, v := range map[string]*float64{
		"food_rating":     in.FoodRating,
		"service_rating":  in.ServiceRating,
		"delivery_rating": in.DeliveryRating,
	} {
		if v != nil && !validRating(*v) {
			return apperrors.Validation("%s must be between 1 and 5", name)
		}
	}
	return nil
}

func (s *reviewService) Create(ctx context.Context, in CreateReviewInput) (*models.Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	rev := &models.Review{
		UserID:         in.UserID,
		OrderID:        in.OrderID,
		RestaurantID:   in.RestaurantID,
		DriverID:       in.DriverID,
		Rating:         in.Rating,
		FoodRating:     in.FoodRating,
		ServiceRating:  in.ServiceRating,
		DeliveryRating: in.DeliveryRating,
		Title:          in.Title,
		Comment:        in.Comment,
	}
	if in.OrderID != nil {
		o, err := s.stg.Order().Get(ctx, *in.OrderID)
		if err != nil {
			return nil, err
		}
		if o.UserID != in.UserID {
			return nil, apperrors.Validation("you can only review your own orders")
		}
		if o.Status != models.StatusDelivered {
			return nil, apperrors.Validation("only delivered orders can be reviewed")
		}
		if rev.RestaurantID == nil {
			rev.RestaurantID = o.RestaurantID
		}
		if rev.DriverID == nil {
			rev.DriverID = o.DriverID
		}
	}
	if rev.RestaurantID == nil && rev.DriverID == nil {
		return nil, apperrors.Validation("a review needs a restaurant, a driver or an order")
	}
	if rev.RestaurantID != nil {
		if _, err := s.stg.Restaurant().Get(ctx, *rev.RestaurantID, false); err != nil {
			return nil, err
		}
	}
	if rev.DriverID != nil {
		if _, err := s.stg.Driver().Get(ctx, *rev.DriverID); err != nil {
			return nil, err
		}
	}

	if err := s.stg.Review().Create(ctx, rev); err != nil {
		return nil, err
	}
	s.log.Info("review created", logger.Uint("review_id", rev.ID), logger.Uint("user_id", rev.UserID), logger.Float64("rating", rev.Rating))

	ev := events.Lifecycle{
		Type:         events.ReviewCreated,
		UserID:       rev.UserID,
		RestaurantID: rev.RestaurantID,
		DriverID:     rev.DriverID,
		Actor:        string(models.RoleCustomer),
		Message:      fmt.Sprintf("rated %.1f", rev.Rating),
		At:           s.now().UTC(),
	}
	if rev.OrderID != nil {
		ev.OrderID = *rev.OrderID
	}
	s.notify.emit(ctx, ev)
	return rev, nil
}

func (s *reviewService) ListByRestaurant(ctx context.Context, restaurantID uint, f store.ReviewFilter) ([]models.Review, int64, error) {
	if f.Rating != 0 && !validRating(f.Rating) {
		return nil, 0, apperrors.Validation("rating filter must be between 1 and 5")
	}
	if _, err := s.stg.Restaurant().Get(ctx, restaurantID, false); err != nil {
		return nil, 0, err
	}
	return s.stg.Review().ListByRestaurant(ctx, restaurantID, f)
}

func (s *reviewService) ListMine(ctx context.Context, userID uint) ([]models.Review, error) {
	return s.stg.Review().ListByUser(ctx, userID)
}

// Respond records the restaurant's reply. Only the owner of the reviewed restaurant or an admin may reply.
func (s *reviewService) Respond(ctx context.Context, id uint, caller Caller, response string) (*models.Review, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, apperrors.Validation("response is required")
	}
	rev, err := s.stg.Review().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleAdmin {
		if caller.Role != models.RoleRestaurant || rev.RestaurantID == nil {
			return nil, apperrors.Authorization("only the restaurant owner can respond to this review")
		}
		r, err := s.stg.Restaurant().Get(ctx, *rev.RestaurantID, false)
		if err != nil {
			return nil, err
		}
		if r.OwnerID != caller.UserID {
			return nil, apperrors.Authorization("only the restaurant owner can respond to this review")
		}
	}
	return s.stg.Review().Respond(ctx, id, response, s.now().UTC())
}

func (s *reviewService) Reconcile(ctx context.Context) (*store.ReconcileResult, error) {
	res, err := s.stg.Review().Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("ratings reconciled", logger.Int("restaurants", res.Restaurants), logger.Int("drivers", res.Drivers))
	return res, nil
}
