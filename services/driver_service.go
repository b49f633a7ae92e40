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
	"food-marketplace-api/realtime"
	"food-marketplace-api/store"
)

type DriverService interface {
	Create(ctx context.Context, in CreateDriverInput) (*models.Driver, error)
	Get(ctx context.Context, id uint) (*models.Driver, error)
	List(ctx context.Context, availableOnly bool) ([]models.Driver, error)
	Update(ctx context.Context, id uint, in UpdateDriverInput) (*models.Driver, error)
	// Assign sets the order's driver and announces it with a single driver:assigned event.
	Assign(ctx context.Context, orderID, driverID uint) (*models.Order, error)
	ReportLocation(ctx context.Context, in LocationInput) error
}

type CreateDriverInput struct {
	UserID       *uint  `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Vehicle      string `json:"vehicle"`
	LicensePlate string `json:"license_plate"`
}

type UpdateDriverInput struct {
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	Vehicle      *string `json:"vehicle"`
	LicensePlate *string `json:"license_plate"`
	Available    *bool   `json:"available"`
}

// LocationInput is a ping from the driver account UserID while delivering OrderID.
type LocationInput struct {
	UserID    uint    `json:"-"`
	OrderID   uint    `json:"order_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type driverService struct {
	stg       store.IStorage
	notify    notifier
	exclusive bool
	log       logger.ILogger
	now       func() time.Time
}

func NewDriverService(stg store.IStorage, n notifier, opts Options, log logger.ILogger) DriverService {
	return &driverService{
		stg:       stg,
		notify:    n,
		exclusive: opts.DriverExclusive,
		log:       log,
		now:       time.Now,
	}
}

func (s *driverService) Create(ctx context.Context, in CreateDriverInput) (*models.Driver, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Phone) == "" {
		return nil, apperrors.Validation("name, email and phone are required")
	}
	if in.UserID != nil {
		u, err := s.stg.User().Get(ctx, *in.UserID)
		if err != nil {
			return nil, err
		}
		if u.Role != models.RoleDriver {
			return nil, apperrors.Validation("user %d does not have the driver role", u.ID)
		}
	}

	d := &models.Driver{
		UserID:       in.UserID,
		Name:         in.Name,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        in.Phone,
		Vehicle:      in.Vehicle,
		LicensePlate: in.LicensePlate,
		Available:    true,
	}
	if err := s.stg.Driver().Create(ctx, d); err != nil {
		return nil, err
	}
	s.log.Info("driver created", logger.Uint("driver_id", d.ID), logger.String("name", d.Name))
	return d, nil
}

func (s *driverService) Get(ctx context.Context, id uint) (*models.Driver, error) {
	return s.stg.Driver().Get(ctx, id)
}

func (s *driverService) List(ctx context.Context, availableOnly bool) ([]models.Driver, error) {
	return s.stg.Driver().List(ctx, availableOnly)
}

func (s *driverService) Update(ctx context.Context, id uint, in UpdateDriverInput) (*models.Driver, error) {
	patch := map[string]interface{}{}
	if in.Name != nil {
		patch["name"] = *in.Name
	}
	if in.Phone != nil {
		patch["phone"] = *in.Phone
	}
	if in.Vehicle != nil {
		patch["vehicle"] = *in.Vehicle
	}
	if in.LicensePlate != nil {
		patch["license_plate"] = *in.LicensePlate
	}
	if in.Available != nil {
		patch["available"] = *in.Available
	}
	if len(patch) == 0 {
		return nil, apperrors.Validation("nothing to update")
	}
	return s.stg.Driver().Update(ctx, id, patch)
}

func (s *driverService) Assign(ctx context.Context, orderID, driverID uint) (*models.Order, error) {
	if _, err := s.stg.Order().Get(ctx, orderID); err != nil {
		return nil, err
	}
	d, err := s.stg.Driver().Get(ctx, driverID)
	if err != nil {
		return nil, err
	}
	o, err := s.stg.Order().SetDriver(ctx, orderID, driverID, s.exclusive)
	if err != nil {
		return nil, err
	}

	s.log.Info("driver assigned", logger.Uint("order_id", o.ID), logger.Uint("driver_id", d.ID))
	s.notify.publish(ctx, o.ID, realtime.KindDriverAssigned, realtime.DriverAssigned{
		DriverID:     d.ID,
		DriverName:   d.Name,
		DriverPhone:  d.Phone,
		Vehicle:      d.Vehicle,
		LicensePlate: d.LicensePlate,
	})
	ev := events.FromOrder(events.OrderDriverAssigned, o, string(models.RoleAdmin))
	ev.Message = d.Name
	s.notify.emit(ctx, ev)
	s.notify.remember(ctx, o, models.NotifyDriverAssigned, "Driver assigned",
		fmt.Sprintf("%s is delivering order %s", d.Name, o.OrderNumber))
	return o, nil
}

func (s *driverService) ReportLocation(ctx context.Context, in LocationInput) error {
	if in.Latitude < -90 || in.Latitude > 90 {
		return apperrors.Validation("latitude must be between -90 and 90")
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		return apperrors.Validation("longitude must be between -180 and 180")
	}
	d, err := s.stg.Driver().GetByUser(ctx, in.UserID)
	if err != nil {
		return err
	}
	o, err := s.stg.Order().Get(ctx, in.OrderID)
	if err != nil {
		return err
	}
	if o.DriverID == nil || *o.DriverID != d.ID {
		return apperrors.Authorization("you are not the assigned driver for order %d", o.ID)
	}

	at := s.now().UTC()
	if err := s.stg.Driver().SaveLocation(ctx, d.ID, in.Latitude, in.Longitude, at); err != nil {
		return err
	}
	s.notify.publish(ctx, o.ID, realtime.KindDriverLocation, realtime.DriverLocation{
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Timestamp: at,
	})
	return nil
}
