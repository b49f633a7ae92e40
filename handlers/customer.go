package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// PlaceOrder creates a new order for any authenticated user
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req services.PlaceOrderInput
	if !h.bind(c, &req) {
		return
	}
	req.UserID = middleware.GetUserID(c)

	order, err := h.svc.Order().Place(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetMyOrders returns the caller's orders, newest first
func (h *Handler) GetMyOrders(c *gin.Context) {
	orders, err := h.svc.Order().ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrderDetail returns a single order with its full step history
func (h *Handler) GetOrderDetail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Order().Get(c.Request.Context(), id, services.Caller{
		UserID: middleware.GetUserID(c),
		Role:   models.RoleCustomer,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CancelOrder cancels the caller's order while it is still placed or accepted
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if !h.bindOptional(c, &req) {
		return
	}
	order, err := h.svc.Order().Transition(c.Request.Context(), services.TransitionInput{
		OrderID: id,
		Status:  models.StatusCancelled,
		Caller:  services.Caller{UserID: middleware.GetUserID(c), Role: models.RoleCustomer},
		Reason:  req.Reason,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
