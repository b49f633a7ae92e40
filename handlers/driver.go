package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// GetMyDeliveries returns all orders assigned to the logged-in driver
func (h *Handler) GetMyDeliveries(c *gin.Context) {
	orders, err := h.svc.Order().ListForDriver(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// DriverUpdateOrderStatus moves an assigned order through pickup and delivery
func (h *Handler) DriverUpdateOrderStatus(c *gin.Context) {
	h.transition(c, models.RoleDriver)
}

// ReportLocation forwards the driver's position to the order's watchers
func (h *Handler) ReportLocation(c *gin.Context) {
	var req services.LocationInput
	if !h.bind(c, &req) {
		return
	}
	req.UserID = middleware.GetUserID(c)
	if err := h.svc.Driver().ReportLocation(c.Request.Context(), req); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Location updated"})
}
