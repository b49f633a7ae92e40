package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// ValidateCoupon quotes a coupon against an order total. Per-user limits
// apply only when the request carries a token.
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req services.CouponQuote
	if !h.bind(c, &req) {
		return
	}
	req.UserID = middleware.GetUserID(c)
	quote, err := h.svc.Coupon().Validate(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) AdminCreateCoupon(c *gin.Context) {
	var req services.CreateCouponInput
	if !h.bind(c, &req) {
		return
	}
	coupon, err := h.svc.Coupon().Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, coupon)
}

func (h *Handler) AdminListCoupons(c *gin.Context) {
	coupons, err := h.svc.Coupon().List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if coupons == nil {
		coupons = []models.Coupon{}
	}
	c.JSON(http.StatusOK, coupons)
}

func (h *Handler) AdminUpdateCoupon(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateCouponInput
	if !h.bind(c, &req) {
		return
	}
	coupon, err := h.svc.Coupon().Update(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}

func (h *Handler) AdminDeleteCoupon(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Coupon().Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Coupon deleted"})
}
