package services

import (
	"food-marketplace-api/events"
	"food-marketplace-api/logger"
	"food-marketplace-api/models"
	"food-marketplace-api/realtime"
	"food-marketplace-api/statemachine"
	"food-marketplace-api/store"
)

type IServiceManager interface {
	User() UserService
	Restaurant() RestaurantService
	Order() OrderService
	Driver() DriverService
	Review() ReviewService
	Coupon() CouponService
	Notification() NotificationService
}

// Options are the behavior switches read from config.
type Options struct {
	Machine *statemachine.Machine
	// DriverExclusive refuses to assign a driver who already carries another active order.
	DriverExclusive bool
	// RequireRestaurant turns on full mode: orders name a restaurant and items are priced from its menu.
	RequireRestaurant bool
}

// Caller is the authenticated identity a request acts as.
type Caller struct {
	UserID uint
	Role   models.UserRole
}

type service struct {
	userService       UserService
	restaurantService RestaurantService
	orderService      OrderService
	driverService     DriverService
	reviewService     ReviewService
	couponService     CouponService
	notifyService     NotificationService
}

func New(stg store.IStorage, bus realtime.Bus, sink events.Sink, opts Options, log logger.ILogger) IServiceManager {
	if opts.Machine == nil {
		opts.Machine = statemachine.New(statemachine.Permissive)
	}
	if sink == nil {
		sink = events.Nop{}
	}
	n := notifier{bus: bus, sink: sink, inbox: stg.Notification(), log: log}
	coupons := NewCouponService(stg, log)

	return &service{
		userService:       NewUserService(stg, log),
		restaurantService: NewRestaurantService(stg, log),
		orderService:      NewOrderService(stg, coupons, n, opts, log),
		driverService:     NewDriverService(stg, n, opts, log),
		reviewService:     NewReviewService(stg, n, log),
		couponService:     coupons,
		notifyService:     NewNotificationService(stg, log),
	}
}

func (s *service) User() UserService {
	return s.userService
}

func (s *service) Restaurant() RestaurantService {
	return s.restaurantService
}

func (s *service) Order() OrderService {
	return s.orderService
}

func (s *service) Driver() DriverService {
	return s.driverService
}

func (s *service) Review() ReviewService {
	return s.reviewService
}

func (s *service) Coupon() CouponService {
	return s.couponService
}

func (s *service) Notification() NotificationService {
	return s.notifyService
}
