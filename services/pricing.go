package services

import (
	"food-marketplace-api/apperrors"
	"food-marketplace-api/models"

	"github.com/shopspring/decimal"
)

// Charges are the order-level amounts on top of the item lines.
type Charges struct {
	DeliveryFee float64 `json:"delivery_fee"`
	ServiceFee  float64 `json:"service_fee"`
	Tax         float64 `json:"tax"`
	Tip         float64 `json:"tip"`
}

func (c Charges) validate() error {
	if c.DeliveryFee < 0 || c.ServiceFee < 0 || c.Tax < 0 || c.Tip < 0 {
		return apperrors.Validation("fees, tax and tip must not be negative")
	}
	return nil
}

type totals struct {
	subtotal decimal.Decimal
	charges  decimal.Decimal
}

func cents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func priceOrder(items []models.OrderItem, c Charges) totals {
	sub := decimal.Zero
	for _, it := range items {
		sub = sub.Add(cents(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return totals{
		subtotal: sub.Round(2),
		charges:  cents(c.DeliveryFee).Add(cents(c.ServiceFee)).Add(cents(c.Tax)).Add(cents(c.Tip)),
	}
}

// gross is the amount before any discount.
func (t totals) gross() decimal.Decimal {
	return t.subtotal.Add(t.charges)
}

// apply fills the money fields of o, keeping total == subtotal + fees + tax + tip - discount.
func (t totals) apply(o *models.Order, c Charges, discount decimal.Decimal) {
	o.Subtotal = t.subtotal.InexactFloat64()
	o.DeliveryFee = cents(c.DeliveryFee).InexactFloat64()
	o.ServiceFee = cents(c.ServiceFee).InexactFloat64()
	o.Tax = cents(c.Tax).InexactFloat64()
	o.Tip = cents(c.Tip).InexactFloat64()
	o.Discount = discount.Round(2).InexactFloat64()
	o.Total = t.gross().Sub(discount).Round(2).InexactFloat64()
}
