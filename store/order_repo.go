package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionMismatch reports that another writer advanced the order first.
var ErrVersionMismatch = errors.New("order version changed concurrently")

const orderNumberAttempts = 3

type OrderSort string

const (
	SortNewest    OrderSort = "newest"
	SortOldest    OrderSort = "oldest"
	SortTotalDesc OrderSort = "total_desc"
	SortTotalAsc  OrderSort = "total_asc"
)

func (s OrderSort) Valid() bool {
	switch s {
	case "", SortNewest, SortOldest, SortTotalDesc, SortTotalAsc:
		return true
	}
	return false
}

var sortClauses = map[OrderSort]string{
	SortNewest:    "created_at desc, id desc",
	SortOldest:    "created_at asc, id asc",
	SortTotalDesc: "total desc, id desc",
	SortTotalAsc:  "total asc, id asc",
}

type OrderFilter struct {
	Status       models.OrderStatus
	UserID       uint
	RestaurantID uint
	DriverID     uint
	Sort         OrderSort
	Page         int
	Limit        int
}

// TransitionPatch describes one versioned status change.
type TransitionPatch struct {
	OrderID         uint
	ExpectedVersion int
	To              models.OrderStatus
	Actor           string
	Message         string
	At              time.Time
}

type Stats struct {
	TotalOrders    int64                        `json:"totalOrders"`
	TotalRevenue   float64                      `json:"totalRevenue"`
	TotalUsers     int64                        `json:"totalUsers"`
	TotalMenuItems int64                        `json:"totalMenuItems"`
	TotalDrivers   int64                        `json:"totalDrivers"`
	OrdersByStatus map[models.OrderStatus]int64 `json:"ordersByStatus"`
}

type orderRepo struct {
	db *gorm.DB
}

func withHistory(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("seq asc") })
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order, redemption *models.CouponRedemption) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.Status = models.StatusPlaced
	order.Version = 1
	initial := models.OrderStep{Seq: 1, Step: models.StatusPlaced, Message: "Order placed", Timestamp: order.CreatedAt}

	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.ID = 0
		order.Steps = []models.OrderStep{initial}
		for i := range order.Items {
			order.Items[i].ID = 0
			order.Items[i].OrderID = 0
		}

		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if redemption != nil {
				if err := redeem(tx, redemption); err != nil {
					return err
				}
			}
			number, err := nextOrderNumber(tx, order.CreatedAt)
			if err != nil {
				return err
			}
			order.OrderNumber = number
			if err := tx.Create(order).Error; err != nil {
				return err
			}
			if redemption != nil {
				redemption.ID = 0
				redemption.OrderID = order.ID
				if err := tx.Create(redemption).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil || !isDuplicate(err) {
			break
		}
	}
	return wrap(err, "order")
}

// nextOrderNumber bumps the per-day counter inside the caller's transaction.
func nextOrderNumber(tx *gorm.DB, at time.Time) (string, error) {
	day := at.UTC().Format("20060102")
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last": gorm.Expr("order_sequences.last + 1")}),
	}).Create(&models.OrderSequence{Day: day, Last: 1}).Error
	if err != nil {
		return "", err
	}
	var seq models.OrderSequence
	if err := tx.First(&seq, "day = ?", day).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%04d", day, seq.Last), nil
}

// redeem consumes one use of the coupon, failing when a limit is already reached.
func redeem(tx *gorm.DB, red *models.CouponRedemption) error {
	var coupon models.Coupon
	if err := tx.First(&coupon, red.CouponID).Error; err != nil {
		return wrap(err, "coupon")
	}
	if coupon.MaxUsesPerUser > 0 {
		var used int64
		err := tx.Model(&models.CouponRedemption{}).
			Where("coupon_id = ? AND user_id = ?", red.CouponID, red.UserID).
			Count(&used).Error
		if err != nil {
			return err
		}
		if used >= int64(coupon.MaxUsesPerUser) {
			return apperrors.Validation("coupon %s already used the maximum number of times", coupon.Code)
		}
	}
	res := tx.Model(&models.Coupon{}).
		Where("id = ? AND (max_uses = 0 OR used_count < max_uses)", red.CouponID).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.Validation("coupon %s usage limit reached", coupon.Code)
	}
	return nil
}

func (r *orderRepo) Get(ctx context.Context, id uint) (*models.Order, error) {
	return getOrder(withHistory(r.db.WithContext(ctx)), id)
}

func getOrder(db *gorm.DB, id uint) (*models.Order, error) {
	var o models.Order
	if err := db.First(&o, id).Error; err != nil {
		return nil, wrap(err, fmt.Sprintf("order %d", id))
	}
	return &o, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := withHistory(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order(sortClauses[SortNewest]).
		Find(&orders).Error
	return orders, wrap(err, "order")
}

func (r *orderRepo) ListByRestaurant(ctx context.Context, restaurantID uint, status models.OrderStatus) ([]models.Order, error) {
	q := withHistory(r.db.WithContext(ctx)).Where("restaurant_id = ?", restaurantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	err := q.Order(sortClauses[SortNewest]).Find(&orders).Error
	return orders, wrap(err, "order")
}

func (r *orderRepo) ListByDriver(ctx context.Context, driverID uint) ([]models.Order, error) {
	var orders []models.Order
	err := withHistory(r.db.WithContext(ctx)).
		Where("driver_id = ?", driverID).
		Order("updated_at desc, id desc").
		Find(&orders).Error
	return orders, wrap(err, "order")
}

func (r *orderRepo) ListAll(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.RestaurantID != 0 {
		q = q.Where("restaurant_id = ?", f.RestaurantID)
	}
	if f.DriverID != 0 {
		q = q.Where("driver_id = ?", f.DriverID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrap(err, "order")
	}

	order, ok := sortClauses[f.Sort]
	if !ok {
		order = sortClauses[SortNewest]
	}
	offset, limit := paginate(f.Page, f.Limit)

	var orders []models.Order
	err := withHistory(q).Order(order).Offset(offset).Limit(limit).Find(&orders).Error
	return orders, total, wrap(err, "order")
}

// immutableOrderFields may only change through ApplyTransition or SetDriver.
var immutableOrderFields = map[string]bool{
	"id": true, "order_number": true, "status": true, "version": true, "driver_id": true, "user_id": true,
}

func (r *orderRepo) Update(ctx context.Context, id uint, patch map[string]interface{}) (*models.Order, error) {
	for k := range patch {
		if immutableOrderFields[k] {
			return nil, apperrors.Validation("field %q cannot be patched", k)
		}
	}
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Order{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return nil, wrap(res.Error, "order")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("order %d not found", id)
	}
	return r.Get(ctx, id)
}

func (r *orderRepo) ApplyTransition(ctx context.Context, p TransitionPatch) (*models.Order, error) {
	if p.At.IsZero() {
		p.At = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     p.To,
			"version":    p.ExpectedVersion + 1,
			"updated_at": p.At,
		}
		switch p.To {
		case models.StatusCancelled:
			updates["cancelled_at"] = p.At
			updates["cancelled_by"] = p.Actor
			updates["cancellation_reason"] = p.Message
		case models.StatusDelivered:
			updates["delivered_at"] = p.At
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND version = ?", p.OrderID, p.ExpectedVersion).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionMismatch
		}

		step := models.OrderStep{
			OrderID:   p.OrderID,
			Seq:       p.ExpectedVersion + 1,
			Step:      p.To,
			Message:   p.Message,
			Timestamp: p.At,
		}
		if err := tx.Create(&step).Error; err != nil {
			if isDuplicate(err) {
				return ErrVersionMismatch
			}
			return err
		}

		if p.To.Terminal() {
			return settleDriver(tx, p.OrderID, p.To)
		}
		return nil
	})
	if errors.Is(err, ErrVersionMismatch) {
		return nil, err
	}
	if err != nil {
		return nil, wrap(err, "order")
	}
	return r.Get(ctx, p.OrderID)
}

// settleDriver updates the assigned driver's counters when an order finishes.
func settleDriver(tx *gorm.DB, orderID uint, to models.OrderStatus) error {
	var o models.Order
	if err := tx.Select("id", "driver_id", "delivery_fee", "tip").First(&o, orderID).Error; err != nil {
		return err
	}
	if o.DriverID == nil {
		return nil
	}

	counters := map[string]interface{}{
		"total_orders": gorm.Expr("total_orders + 1"),
	}
	if to == models.StatusDelivered {
		counters["completed_orders"] = gorm.Expr("completed_orders + 1")
		counters["earnings"] = gorm.Expr("earnings + ?", o.DeliveryFee+o.Tip)
	} else {
		counters["cancelled_orders"] = gorm.Expr("cancelled_orders + 1")
	}
	if err := tx.Model(&models.Driver{}).Where("id = ?", *o.DriverID).Updates(counters).Error; err != nil {
		return err
	}
	return tx.Model(&models.Driver{}).
		Where("id = ? AND current_order_id = ?", *o.DriverID, orderID).
		Update("current_order_id", nil).Error
}

func (r *orderRepo) SetDriver(ctx context.Context, orderID, driverID uint, exclusive bool) (*models.Order, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.Select("id", "status", "driver_id").First(&o, orderID).Error; err != nil {
			return wrap(err, fmt.Sprintf("order %d", orderID))
		}
		if o.Status.Terminal() {
			return apperrors.Conflict("order %d is already %s", orderID, o.Status)
		}

		q := tx.Model(&models.Driver{}).Where("id = ?", driverID)
		if exclusive {
			q = q.Where("current_order_id IS NULL OR current_order_id = ?", orderID)
		}
		res := q.Update("current_order_id", orderID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.Driver{}).Where("id = ?", driverID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return apperrors.NotFound("driver %d not found", driverID)
			}
			return apperrors.Conflict("driver %d is already assigned to another active order", driverID)
		}

		if o.DriverID != nil && *o.DriverID != driverID {
			err := tx.Model(&models.Driver{}).
				Where("id = ? AND current_order_id = ?", *o.DriverID, orderID).
				Update("current_order_id", nil).Error
			if err != nil {
				return err
			}
		}

		return tx.Model(&models.Order{}).Where("id = ?", orderID).Update("driver_id", driverID).Error
	})
	if err != nil {
		return nil, wrap(err, "order")
	}
	return r.Get(ctx, orderID)
}

func (r *orderRepo) Stats(ctx context.Context) (*Stats, error) {
	db := r.db.WithContext(ctx)
	s := &Stats{OrdersByStatus: map[models.OrderStatus]int64{}}

	if err := db.Model(&models.Order{}).Count(&s.TotalOrders).Error; err != nil {
		return nil, wrap(err, "stats")
	}
	var revenue struct{ Total float64 }
	err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total), 0) AS total").
		Where("status <> ?", models.StatusCancelled).
		Scan(&revenue).Error
	if err != nil {
		return nil, wrap(err, "stats")
	}
	s.TotalRevenue = roundCents(revenue.Total)

	if err := db.Model(&models.User{}).Count(&s.TotalUsers).Error; err != nil {
		return nil, wrap(err, "stats")
	}
	if err := db.Model(&models.MenuItem{}).Count(&s.TotalMenuItems).Error; err != nil {
		return nil, wrap(err, "stats")
	}
	if err := db.Model(&models.Driver{}).Count(&s.TotalDrivers).Error; err != nil {
		return nil, wrap(err, "stats")
	}

	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	err = db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap(err, "stats")
	}
	for _, row := range rows {
		s.OrdersByStatus[row.Status] = row.Count
	}
	return s, nil
}

// Window bounds created_at. A zero bound is open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) apply(db *gorm.DB) *gorm.DB {
	if !w.From.IsZero() {
		db = db.Where("created_at >= ?", w.From)
	}
	if !w.To.IsZero() {
		db = db.Where("created_at <= ?", w.To)
	}
	return db
}

type TopItem struct {
	FoodItemID uint    `json:"food_item_id"`
	Name       string  `json:"name"`
	Quantity   int64   `json:"quantity"`
	Revenue    float64 `json:"revenue"`
}

// RestaurantAnalytics counts revenue from delivered orders only.
type RestaurantAnalytics struct {
	RestaurantID    uint       `json:"restaurantId"`
	From            *time.Time `json:"from,omitempty"`
	To              *time.Time `json:"to,omitempty"`
	TotalOrders     int64      `json:"totalOrders"`
	CompletedOrders int64      `json:"completedOrders"`
	CancelledOrders int64      `json:"cancelledOrders"`
	TotalRevenue    float64    `json:"totalRevenue"`
	AvgOrderValue   float64    `json:"avgOrderValue"`
	TopItems        []TopItem  `json:"topItems"`
}

const topItemsLimit = 10

func (r *orderRepo) RestaurantAnalytics(ctx context.Context, restaurantID uint, w Window) (*RestaurantAnalytics, error) {
	scoped := func() *gorm.DB {
		return w.apply(r.db.WithContext(ctx).Model(&models.Order{}).Where("restaurant_id = ?", restaurantID))
	}
	a := &RestaurantAnalytics{RestaurantID: restaurantID, TopItems: []TopItem{}}
	if !w.From.IsZero() {
		a.From = &w.From
	}
	if !w.To.IsZero() {
		a.To = &w.To
	}

	var rows []struct {
		Status  models.OrderStatus
		Count   int64
		Revenue float64
	}
	err := scoped().
		Select("status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS revenue").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap(err, "analytics")
	}
	for _, row := range rows {
		a.TotalOrders += row.Count
		switch row.Status {
		case models.StatusDelivered:
			a.CompletedOrders = row.Count
			a.TotalRevenue = roundCents(row.Revenue)
		case models.StatusCancelled:
			a.CancelledOrders = row.Count
		}
	}
	if a.CompletedOrders > 0 {
		a.AvgOrderValue = roundCents(a.TotalRevenue / float64(a.CompletedOrders))
	}

	delivered := scoped().Select("id").Where("status = ?", models.StatusDelivered)
	err = r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Select("food_item_id, MAX(name) AS name, SUM(quantity) AS quantity, SUM(quantity * price) AS revenue").
		Where("order_id IN (?)", delivered).
		Group("food_item_id").
		Order("SUM(quantity) desc, food_item_id asc").
		Limit(topItemsLimit).
		Scan(&a.TopItems).Error
	if err != nil {
		return nil, wrap(err, "analytics")
	}
	for i := range a.TopItems {
		a.TopItems[i].Revenue = roundCents(a.TopItems[i].Revenue)
	}
	return a, nil
}
