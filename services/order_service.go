package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/events"
	"food-marketplace-api/logger"
	"food-marketplace-api/metrics"
	"food-marketplace-api/models"
	"food-marketplace-api/realtime"
	"food-marketplace-api/statemachine"
	"food-marketplace-api/store"

	"github.com/shopspring/decimal"
)

const (
	transitionAttempts = 3
	deliveryEstimate   = 45 * time.Minute
)

type OrderService interface {
	Place(ctx context.Context, in PlaceOrderInput) (*models.Order, error)
	Get(ctx context.Context, id uint, caller Caller) (*models.Order, error)
	ListMine(ctx context.Context, userID uint) ([]models.Order, error)
	ListForRestaurant(ctx context.Context, ownerID uint, status models.OrderStatus) (*models.Restaurant, []models.Order, error)
	ListForDriver(ctx context.Context, userID uint) ([]models.Order, error)
	ListAll(ctx context.Context, f store.OrderFilter) ([]models.Order, int64, error)
	Transition(ctx context.Context, in TransitionInput) (*models.Order, error)
	UpdatePayment(ctx context.Context, id uint, in PaymentUpdate) (*models.Order, error)
	Stats(ctx context.Context) (*store.Stats, error)
	RestaurantAnalytics(ctx context.Context, ownerID uint, w store.Window) (*store.RestaurantAnalytics, error)
	Machine() *statemachine.Machine
}

type ItemInput struct {
	FoodItemID          uint    `json:"food_item_id"`
	Name                string  `json:"name"`
	Quantity            int     `json:"quantity"`
	Price               float64 `json:"price"`
	SpecialInstructions string  `json:"special_instructions"`
}

// PlaceOrderInput is a checkout request. Total, when sent, must match the
// computed total within models.TotalTolerance. Discount is accepted only as
// zero; any discount comes from CouponCode.
type PlaceOrderInput struct {
	UserID       uint        `json:"-"`
	RestaurantID *uint       `json:"restaurant_id"`
	Items        []ItemInput `json:"items"`
	Charges
	Discount             *float64             `json:"discount"`
	Total                *float64             `json:"total"`
	CouponCode           string               `json:"coupon_code"`
	PaymentMethod        models.PaymentMethod `json:"payment_method"`
	DeliveryAddress      string               `json:"delivery_address"`
	DeliveryInstructions string               `json:"delivery_instructions"`
}

type TransitionInput struct {
	OrderID uint
	Status  models.OrderStatus
	Caller  Caller
	Reason  string
}

type PaymentUpdate struct {
	Status        models.PaymentStatus `json:"payment_status"`
	TransactionID string               `json:"transaction_id"`
}

type orderService struct {
	stg     store.IStorage
	coupons CouponService
	access  access
	notify  notifier
	machine *statemachine.Machine
	opts    Options
	log     logger.ILogger
	now     func() time.Time
}

func NewOrderService(stg store.IStorage, coupons CouponService, n notifier, opts Options, log logger.ILogger) OrderService {
	return &orderService{
		stg:     stg,
		coupons: coupons,
		access:  access{stg: stg},
		notify:  n,
		machine: opts.Machine,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

func (s *orderService) Machine() *statemachine.Machine {
	return s.machine
}

func (s *orderService) Place(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, apperrors.Validation("invalid items")
	}
	if err := in.Charges.validate(); err != nil {
		return nil, err
	}
	if in.Discount != nil && *in.Discount != 0 {
		return nil, apperrors.Validation("discount cannot be set directly, use coupon_code")
	}
	method := in.PaymentMethod
	if method == "" {
		method = models.PaymentCash
	}
	if !method.Valid() {
		return nil, apperrors.Validation("payment_method must be card, cash or wallet")
	}

	items, err := s.buildItems(ctx, in)
	if err != nil {
		return nil, err
	}
	t := priceOrder(items, in.Charges)

	discount := decimal.Zero
	var redemption *models.CouponRedemption
	var code string
	if in.CouponCode != "" {
		coupon, quote, err := s.coupons.quote(ctx, CouponQuote{
			Code:        in.CouponCode,
			OrderTotal:  t.subtotal.InexactFloat64(),
			DeliveryFee: in.DeliveryFee,
			UserID:      in.UserID,
		})
		if err != nil {
			return nil, err
		}
		discount = decimal.NewFromFloat(quote.DiscountAmount)
		redemption = &models.CouponRedemption{CouponID: coupon.ID, UserID: in.UserID}
		code = coupon.Code
	}
	if discount.GreaterThan(t.gross()) {
		return nil, apperrors.Validation("discount exceeds the order amount")
	}

	now := s.now().UTC()
	eta := now.Add(deliveryEstimate)
	order := &models.Order{
		UserID:                in.UserID,
		RestaurantID:          in.RestaurantID,
		Items:                 items,
		CouponCode:            code,
		PaymentMethod:         method,
		PaymentStatus:         models.PaymentPending,
		DeliveryAddress:       in.DeliveryAddress,
		DeliveryInstructions:  in.DeliveryInstructions,
		EstimatedDeliveryTime: &eta,
		CreatedAt:             now,
	}
	t.apply(order, in.Charges, discount)
	if in.Total != nil && math.Abs(*in.Total-order.Total) > models.TotalTolerance+1e-9 {
		return nil, apperrors.Validation("total %.2f does not match the computed total %.2f", *in.Total, order.Total)
	}

	if err := s.stg.Order().Create(ctx, order, redemption); err != nil {
		return nil, err
	}
	metrics.OrdersPlaced.Inc()
	s.log.Info("order placed",
		logger.Uint("order_id", order.ID),
		logger.String("order_number", order.OrderNumber),
		logger.Uint("user_id", order.UserID),
		logger.Float64("total", order.Total),
	)
	s.notify.emit(ctx, events.FromOrder(events.OrderPlaced, order, string(models.RoleCustomer)))
	return order, nil
}

func (s *orderService) buildItems(ctx context.Context, in PlaceOrderInput) ([]models.OrderItem, error) {
	if s.opts.RequireRestaurant && in.RestaurantID == nil {
		return nil, apperrors.Validation("restaurant_id is required")
	}
	var restaurant *models.Restaurant
	if in.RestaurantID != nil {
		r, err := s.stg.Restaurant().Get(ctx, *in.RestaurantID, false)
		if err != nil {
			return nil, err
		}
		restaurant = r
	}
	for i, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, apperrors.Validation("item %d: quantity must be positive", i+1)
		}
		if it.Price < 0 {
			return nil, apperrors.Validation("item %d: price must not be negative", i+1)
		}
	}
	if s.opts.RequireRestaurant {
		return s.menuItems(ctx, restaurant, in.Items)
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, models.OrderItem{
			FoodItemID:          it.FoodItemID,
			Name:                it.Name,
			Quantity:            it.Quantity,
			Price:               it.Price,
			SpecialInstructions: it.SpecialInstructions,
		})
	}
	return items, nil
}

// menuItems prices lines from the restaurant's menu, ignoring client prices.
func (s *orderService) menuItems(ctx context.Context, r *models.Restaurant, in []ItemInput) ([]models.OrderItem, error) {
	if !r.IsOpen {
		return nil, apperrors.Validation("restaurant is currently closed")
	}
	ids := make([]uint, 0, len(in))
	for _, it := range in {
		ids = append(ids, it.FoodItemID)
	}
	menu, err := s.stg.Restaurant().GetMenuItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(in))
	for _, it := range in {
		mi, ok := menu[it.FoodItemID]
		if !ok {
			return nil, apperrors.Validation("menu item %d not found", it.FoodItemID)
		}
		if mi.RestaurantID != r.ID {
			return nil, apperrors.Validation("menu item %d does not belong to this restaurant", mi.ID)
		}
		if !mi.IsAvailable {
			return nil, apperrors.Validation("menu item %q is not available", mi.Name)
		}
		items = append(items, models.OrderItem{
			FoodItemID:          mi.ID,
			Name:                mi.Name,
			Quantity:            it.Quantity,
			Price:               mi.Price,
			SpecialInstructions: it.SpecialInstructions,
		})
	}
	return items, nil
}

func (s *orderService) Get(ctx context.Context, id uint, caller Caller) (*models.Order, error) {
	o, err := s.stg.Order().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.canView(ctx, o, caller); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *orderService) ListMine(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.stg.Order().ListByUser(ctx, userID)
}

func (s *orderService) ListForRestaurant(ctx context.Context, ownerID uint, status models.OrderStatus) (*models.Restaurant, []models.Order, error) {
	if status != "" && !status.Valid() {
		return nil, nil, apperrors.Validation("invalid status %q", status)
	}
	r, err := s.stg.Restaurant().GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	orders, err := s.stg.Order().ListByRestaurant(ctx, r.ID, status)
	if err != nil {
		return nil, nil, err
	}
	return r, orders, nil
}

func (s *orderService) ListForDriver(ctx context.Context, userID uint) ([]models.Order, error) {
	d, err := s.stg.Driver().GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.stg.Order().ListByDriver(ctx, d.ID)
}

func (s *orderService) ListAll(ctx context.Context, f store.OrderFilter) ([]models.Order, int64, error) {
	if !f.Sort.Valid() {
		return nil, 0, apperrors.Validation("sort must be newest, oldest, total_desc or total_asc")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperrors.Validation("invalid status %q", f.Status)
	}
	return s.stg.Order().ListAll(ctx, f)
}

// Transition re-reads and re-validates after a lost version race, so
// concurrent callers serialize and every applied change leaves exactly one step.
func (s *orderService) Transition(ctx context.Context, in TransitionInput) (*models.Order, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.stg.Order().Get(ctx, in.OrderID)
		if err != nil {
			return nil, err
		}
		ok, err := s.access.actsFor(ctx, current, in.Caller)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.Authorization("order %d is not yours to update", current.ID)
		}
		if err := s.machine.CanTransition(current.Status, in.Status, in.Caller.Role); err != nil {
			return nil, err
		}

		message := in.Reason
		if message == "" {
			message = stepMessage(in.Status, in.Caller.Role)
		}
		updated, err := s.stg.Order().ApplyTransition(ctx, store.TransitionPatch{
			OrderID:         current.ID,
			ExpectedVersion: current.Version,
			To:              in.Status,
			Actor:           string(in.Caller.Role),
			Message:         message,
			At:              s.now().UTC(),
		})
		if errors.Is(err, store.ErrVersionMismatch) {
			metrics.TransitionRetries.Inc()
			if attempt < transitionAttempts {
				continue
			}
			return nil, apperrors.Conflict("order %d was modified concurrently, try again", in.OrderID)
		}
		if err != nil {
			return nil, err
		}

		metrics.OrderTransitions.WithLabelValues(string(in.Status)).Inc()
		s.log.Info("order status changed",
			logger.Uint("order_id", updated.ID),
			logger.String("from", string(current.Status)),
			logger.String("to", string(updated.Status)),
			logger.String("actor", string(in.Caller.Role)),
			logger.Int("version", updated.Version),
		)
		s.notify.publish(ctx, updated.ID, realtime.KindOrderUpdate, updated)
		ev := events.FromOrder(events.OrderStatusChanged, updated, string(in.Caller.Role))
		ev.PreviousStatus = current.Status
		ev.Message = message
		s.notify.emit(ctx, ev)
		s.notify.remember(ctx, updated, models.NotifyOrderStatus,
			fmt.Sprintf("Order %s is %s", updated.OrderNumber, statusLabel(updated.Status)), message)
		return updated, nil
	}
}

func stepMessage(to models.OrderStatus, actor models.UserRole) string {
	switch to {
	case models.StatusAccepted:
		return "Order accepted by the restaurant"
	case models.StatusPreparing:
		return "Order is being prepared"
	case models.StatusOutForDelivery:
		return "Order is out for delivery"
	case models.StatusDelivered:
		return "Order delivered"
	case models.StatusCancelled:
		return "Order cancelled by " + string(actor)
	}
	return "Order " + string(to)
}

func statusLabel(s models.OrderStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func (s *orderService) UpdatePayment(ctx context.Context, id uint, in PaymentUpdate) (*models.Order, error) {
	if !in.Status.Valid() {
		return nil, apperrors.Validation("payment_status must be pending, completed, failed or refunded")
	}
	patch := map[string]interface{}{"payment_status": in.Status}
	if in.TransactionID != "" {
		patch["transaction_id"] = in.TransactionID
	}
	o, err := s.stg.Order().Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info("payment status updated", logger.Uint("order_id", o.ID), logger.String("payment_status", string(o.PaymentStatus)))
	s.notify.publish(ctx, o.ID, realtime.KindOrderUpdate, o)
	s.notify.emit(ctx, events.FromOrder(events.OrderPaymentUpdated, o, string(models.RoleAdmin)))
	return o, nil
}

func (s *orderService) Stats(ctx context.Context) (*store.Stats, error) {
	return s.stg.Order().Stats(ctx)
}

// RestaurantAnalytics reports on the restaurant the owner runs.
func (s *orderService) RestaurantAnalytics(ctx context.Context, ownerID uint, w store.Window) (*store.RestaurantAnalytics, error) {
	if !w.From.IsZero() && !w.To.IsZero() && w.To.Before(w.From) {
		return nil, apperrors.Validation("to must not be before from")
	}
	r, err := s.stg.Restaurant().GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.stg.Order().RestaurantAnalytics(ctx, r.ID, w)
}
