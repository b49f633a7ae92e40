package handlers

import (
	"net/http"
	"time"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
)

// GetRestaurantOrders returns all orders for the restaurant owner
func (h *Handler) GetRestaurantOrders(c *gin.Context) {
	status := models.OrderStatus(c.Query("status"))
	restaurant, orders, err := h.svc.Order().ListForRestaurant(c.Request.Context(), middleware.GetUserID(c), status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	// dashboard summary
	summary := map[models.OrderStatus]int{}
	for _, o := range orders {
		summary[o.Status]++
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurant":    restaurant.Name,
		"order_summary": summary,
		"count":         len(orders),
		"orders":        orders,
	})
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
}

// UpdateOrderStatus handles the restaurant's state transitions
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	h.transition(c, models.RoleRestaurant)
}

// transition applies a status change on behalf of the given role.
func (h *Handler) transition(c *gin.Context, role models.UserRole) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !h.bind(c, &req) {
		return
	}
	order, err := h.svc.Order().Transition(c.Request.Context(), services.TransitionInput{
		OrderID: id,
		Status:  req.Status,
		Caller:  services.Caller{UserID: middleware.GetUserID(c), Role: role},
		Reason:  req.Note,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetRestaurantAnalytics reports order outcomes for the owner's restaurant.
// ?from= and ?to= take RFC 3339 timestamps or dates; a date in to covers the whole day.
func (h *Handler) GetRestaurantAnalytics(c *gin.Context) {
	var w store.Window
	var ok bool
	if w.From, ok = queryTime(c, "from", false); !ok {
		return
	}
	if w.To, ok = queryTime(c, "to", true); !ok {
		return
	}
	a, err := h.svc.Order().RestaurantAnalytics(c.Request.Context(), middleware.GetUserID(c), w)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func queryTime(c *gin.Context, name string, endOfDay bool) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ", use YYYY-MM-DD or RFC 3339"})
		return time.Time{}, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true
}
