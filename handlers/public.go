package handlers

import (
	"context"
	"net/http"
	"time"

	"food-marketplace-api/models"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
)

// ListRestaurants returns all restaurants, optionally filtered (public)
func (h *Handler) ListRestaurants(c *gin.Context) {
	restaurants, err := h.svc.Restaurant().List(c.Request.Context(), store.RestaurantFilter{
		Cuisine:  c.Query("cuisine"),
		Search:   c.Query("search"),
		OpenOnly: c.Query("open") == "true",
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(restaurants),
		"restaurants": restaurants,
	})
}

// GetRestaurant returns a single restaurant with its menu
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	restaurant, err := h.svc.Restaurant().Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// GetMenu returns the menu for a specific restaurant (public)
func (h *Handler) GetMenu(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	restaurant, items, err := h.svc.Restaurant().Menu(c.Request.Context(), id, store.MenuFilter{
		Category:      c.Query("category"),
		VegOnly:       c.Query("is_veg") == "true",
		AvailableOnly: c.Query("available") == "true",
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"restaurant": restaurant.Name,
		"count":      len(items),
		"menu":       items,
	})
}

// GetStateMachineInfo describes the active transition policy
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	m := h.svc.Order().Machine()
	var terminal []models.OrderStatus
	for _, s := range models.AllStatuses {
		if s.Terminal() {
			terminal = append(terminal, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"policy":          m.Policy(),
		"statuses":        models.AllStatuses,
		"state_machine":   m.GetAllTransitions(),
		"terminal_states": terminal,
		"description":     "Food Marketplace Order Lifecycle State Machine",
	})
}

// Health reports whether the store answers.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.stg.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Food Marketplace Order Lifecycle API",
	})
}
