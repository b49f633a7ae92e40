package store

import (
	"context"
	"time"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/models"

	"gorm.io/gorm"
)

type ReviewFilter struct {
	Rating float64
	Page   int
	Limit  int
}

type ReconcileResult struct {
	Restaurants int `json:"restaurants"`
	Drivers     int `json:"drivers"`
}

type reviewRepo struct {
	db *gorm.DB
}

func (r *reviewRepo) Create(ctx context.Context, rev *models.Review) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rev).Error; err != nil {
			if isDuplicate(err) {
				return apperrors.Conflict("order already reviewed")
			}
			return err
		}
		if rev.RestaurantID != nil {
			if err := foldRating(tx, &models.Restaurant{}, *rev.RestaurantID, rev.Rating); err != nil {
				return err
			}
		}
		if rev.DriverID != nil {
			if err := foldRating(tx, &models.Driver{}, *rev.DriverID, rev.DriverScore()); err != nil {
				return err
			}
		}
		if rev.OrderID != nil {
			driverScore := rev.DriverScore()
			err := tx.Model(&models.Order{}).Where("id = ?", *rev.OrderID).Updates(map[string]interface{}{
				"reviewed":          true,
				"restaurant_rating": rev.Rating,
				"driver_rating":     driverScore,
			}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return wrap(err, "review")
}

// foldRating adds one score to a target's running {count, sum} and refreshes the mean.
func foldRating(tx *gorm.DB, target interface{}, id uint, score float64) error {
	res := tx.Model(target).Where("id = ?", id).Updates(map[string]interface{}{
		"rating_sum":    gorm.Expr("rating_sum + ?", score),
		"total_ratings": gorm.Expr("total_ratings + 1"),
		"rating":        gorm.Expr("(rating_sum + ?) / (total_ratings + 1)", score),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("rating target %d not found", id)
	}
	return nil
}

func (r *reviewRepo) Get(ctx context.Context, id uint) (*models.Review, error) {
	var rev models.Review
	if err := r.db.WithContext(ctx).First(&rev, id).Error; err != nil {
		return nil, wrap(err, "review")
	}
	return &rev, nil
}

func (r *reviewRepo) Respond(ctx context.Context, id uint, response string, at time.Time) (*models.Review, error) {
	res := r.db.WithContext(ctx).Model(&models.Review{}).Where("id = ?", id).Updates(map[string]interface{}{
		"response":     response,
		"responded_at": at,
	})
	if res.Error != nil {
		return nil, wrap(res.Error, "review")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("review not found")
	}
	return r.Get(ctx, id)
}

func (r *reviewRepo) ListByRestaurant(ctx context.Context, restaurantID uint, f ReviewFilter) ([]models.Review, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Review{}).Where("restaurant_id = ?", restaurantID)
	if f.Rating > 0 {
		q = q.Where("rating = ?", f.Rating)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrap(err, "review")
	}
	offset, limit := paginate(f.Page, f.Limit)
	var list []models.Review
	err := q.Order("created_at desc, id desc").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, wrap(err, "review")
}

func (r *reviewRepo) ListByUser(ctx context.Context, userID uint) ([]models.Review, error) {
	var list []models.Review
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc, id desc").Find(&list).Error
	return list, wrap(err, "review")
}

type ratingAggregate struct {
	TargetID uint
	Count    int
	Sum      float64
}

// Reconcile recomputes every restaurant and driver aggregate from the review table.
func (r *reviewRepo) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	result := &ReconcileResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var restAggs []ratingAggregate
		err := tx.Model(&models.Review{}).
			Select("restaurant_id AS target_id, COUNT(*) AS count, SUM(rating) AS sum").
			Where("restaurant_id IS NOT NULL").
			Group("restaurant_id").
			Scan(&restAggs).Error
		if err != nil {
			return err
		}
		if err := resetAggregates(tx, &models.Restaurant{}); err != nil {
			return err
		}
		for _, a := range restAggs {
			if err := applyAggregate(tx, &models.Restaurant{}, a); err != nil {
				return err
			}
		}
		result.Restaurants = len(restAggs)

		var driverAggs []ratingAggregate
		err = tx.Model(&models.Review{}).
			Select("driver_id AS target_id, COUNT(*) AS count, SUM(COALESCE(delivery_rating, rating)) AS sum").
			Where("driver_id IS NOT NULL").
			Group("driver_id").
			Scan(&driverAggs).Error
		if err != nil {
			return err
		}
		if err := resetAggregates(tx, &models.Driver{}); err != nil {
			return err
		}
		for _, a := range driverAggs {
			if err := applyAggregate(tx, &models.Driver{}, a); err != nil {
				return err
			}
		}
		result.Drivers = len(driverAggs)
		return nil
	})
	if err != nil {
		return nil, wrap(err, "rating")
	}
	return result, nil
}

func resetAggregates(tx *gorm.DB, target interface{}) error {
	return tx.Model(target).Where("1 = 1").Updates(map[string]interface{}{
		"rating":        0,
		"rating_sum":    0,
		"total_ratings": 0,
	}).Error
}

func applyAggregate(tx *gorm.DB, target interface{}, a ratingAggregate) error {
	return tx.Model(target).Where("id = ?", a.TargetID).Updates(map[string]interface{}{
		"rating":        a.Sum / float64(a.Count),
		"rating_sum":    a.Sum,
		"total_ratings": a.Count,
	}).Error
}
