package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type IStorage interface {
	User() IUserStorage
	Restaurant() IRestaurantStorage
	Order() IOrderStorage
	Driver() IDriverStorage
	Review() IReviewStorage
	Coupon() ICouponStorage
	Notification() INotificationStorage
	Ping(ctx context.Context) error
}

type IUserStorage interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, role models.UserRole) ([]models.User, error)
}

type IRestaurantStorage interface {
	Create(ctx context.Context, r *models.Restaurant) error
	Get(ctx context.Context, id uint, withMenu bool) (*models.Restaurant, error)
	GetByOwner(ctx context.Context, ownerID uint) (*models.Restaurant, error)
	List(ctx context.Context, f RestaurantFilter) ([]models.Restaurant, error)
	Update(ctx context.Context, id uint, patch map[string]interface{}) (*models.Restaurant, error)

	CreateMenuItem(ctx context.Context, item *models.MenuItem) error
	GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error)
	GetMenuItems(ctx context.Context, ids []uint) (map[uint]models.MenuItem, error)
	ListMenu(ctx context.Context, restaurantID uint, f MenuFilter) ([]models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id uint, patch map[string]interface{}) (*models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uint) error
}

type IOrderStorage interface {
	// Create assigns the order number, writes the initial step and redeems the coupon when given.
	Create(ctx context.Context, order *models.Order, redemption *models.CouponRedemption) error
	Get(ctx context.Context, id uint) (*models.Order, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Order, error)
	ListByRestaurant(ctx context.Context, restaurantID uint, status models.OrderStatus) ([]models.Order, error)
	ListByDriver(ctx context.Context, driverID uint) ([]models.Order, error)
	ListAll(ctx context.Context, f OrderFilter) ([]models.Order, int64, error)
	// Update is a partial, last-writer-wins field update. Status changes go through ApplyTransition.
	Update(ctx context.Context, id uint, patch map[string]interface{}) (*models.Order, error)
	// ApplyTransition appends one step guarded by the expected version.
	ApplyTransition(ctx context.Context, p TransitionPatch) (*models.Order, error)
	SetDriver(ctx context.Context, orderID, driverID uint, exclusive bool) (*models.Order, error)
	Stats(ctx context.Context) (*Stats, error)
	// RestaurantAnalytics aggregates one restaurant's orders created inside the window.
	RestaurantAnalytics(ctx context.Context, restaurantID uint, w Window) (*RestaurantAnalytics, error)
}

type IDriverStorage interface {
	Create(ctx context.Context, d *models.Driver) error
	Get(ctx context.Context, id uint) (*models.Driver, error)
	GetByUser(ctx context.Context, userID uint) (*models.Driver, error)
	List(ctx context.Context, availableOnly bool) ([]models.Driver, error)
	Update(ctx context.Context, id uint, patch map[string]interface{}) (*models.Driver, error)
	SaveLocation(ctx context.Context, id uint, lat, lng float64, at time.Time) error
}

type IReviewStorage interface {
	// Create inserts the review and folds it into the target aggregates in one transaction.
	Create(ctx context.Context, r *models.Review) error
	Get(ctx context.Context, id uint) (*models.Review, error)
	Respond(ctx context.Context, id uint, response string, at time.Time) (*models.Review, error)
	ListByRestaurant(ctx context.Context, restaurantID uint, f ReviewFilter) ([]models.Review, int64, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Review, error)
	Reconcile(ctx context.Context) (*ReconcileResult, error)
}

type ICouponStorage interface {
	Create(ctx context.Context, c *models.Coupon) error
	Get(ctx context.Context, id uint) (*models.Coupon, error)
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Update(ctx context.Context, id uint, patch map[string]interface{}) (*models.Coupon, error)
	Delete(ctx context.Context, id uint) error
	CountUserRedemptions(ctx context.Context, couponID, userID uint) (int64, error)
}

// INotificationStorage scopes every read and write to the owning user. Touching
// another user's entry is an Authorization error.
type INotificationStorage interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID uint, f NotificationFilter) (*NotificationPage, error)
	MarkRead(ctx context.Context, id, userID uint, at time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error)
	Delete(ctx context.Context, id, userID uint) error
}

type gormStore struct {
	db *gorm.DB

	user       *userRepo
	restaurant *restaurantRepo
	order      *orderRepo
	driver     *driverRepo
	review     *reviewRepo
	coupon     *couponRepo
	notify     *notificationRepo
}

// New wraps a migrated gorm connection.
func New(db *gorm.DB) IStorage {
	return &gormStore{
		db:         db,
		user:       &userRepo{db: db},
		restaurant: &restaurantRepo{db: db},
		order:      &orderRepo{db: db},
		driver:     &driverRepo{db: db},
		review:     &reviewRepo{db: db},
		coupon:     &couponRepo{db: db},
		notify:     &notificationRepo{db: db},
	}
}

func (s *gormStore) User() IUserStorage                 { return s.user }
func (s *gormStore) Restaurant() IRestaurantStorage     { return s.restaurant }
func (s *gormStore) Order() IOrderStorage               { return s.order }
func (s *gormStore) Driver() IDriverStorage             { return s.driver }
func (s *gormStore) Review() IReviewStorage             { return s.review }
func (s *gormStore) Coupon() ICouponStorage             { return s.coupon }
func (s *gormStore) Notification() INotificationStorage { return s.notify }

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.Dependency(err, "database unavailable")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperrors.Dependency(err, "database unavailable")
	}
	return nil
}

// wrap translates gorm failures into the apperrors taxonomy.
func wrap(err error, entity string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("%s not found", entity)
	}
	if isDuplicate(err) {
		return apperrors.Conflict("%s already exists", entity)
	}
	return apperrors.Dependency(err, "%s storage failure", entity)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}

func paginate(page, limit int) (offset, size int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	return (page - 1) * limit, limit
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
