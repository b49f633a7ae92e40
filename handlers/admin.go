package handlers

import (
	"net/http"
	"strconv"

	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
)

// AdminGetAllOrders returns orders with filters, sorting and pagination (admin only).
// Paging metadata travels in X-Total-Count, X-Page and X-Limit.
func (h *Handler) AdminGetAllOrders(c *gin.Context) {
	page, limit := pageParams(c)
	orders, total, err := h.svc.Order().ListAll(c.Request.Context(), store.OrderFilter{
		Status:       models.OrderStatus(c.Query("status")),
		UserID:       queryUint(c, "user_id"),
		RestaurantID: queryUint(c, "restaurant_id"),
		DriverID:     queryUint(c, "driver_id"),
		Sort:         store.OrderSort(c.Query("sort")),
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.Header("X-Page", strconv.Itoa(page))
	c.Header("X-Limit", strconv.Itoa(limit))
	c.JSON(http.StatusOK, orders)
}

// AdminGetOrder returns any order with its step history
func (h *Handler) AdminGetOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Order().Get(c.Request.Context(), id, caller(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type ForceStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Reason string             `json:"reason"`
}

// AdminForceOrderStatus moves an order on the admin's authority. The active
// policy still applies.
func (h *Handler) AdminForceOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ForceStatusRequest
	if !h.bind(c, &req) {
		return
	}
	reason := req.Reason
	if reason != "" {
		reason = "[ADMIN OVERRIDE] " + reason
	}
	order, err := h.svc.Order().Transition(c.Request.Context(), services.TransitionInput{
		OrderID: id,
		Status:  req.Status,
		Caller:  services.Caller{UserID: caller(c).UserID, Role: models.RoleAdmin},
		Reason:  reason,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type AssignDriverRequest struct {
	DriverID uint `json:"driver_id" binding:"required"`
}

// AdminAssignDriver attaches a driver to an order
func (h *Handler) AdminAssignDriver(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req AssignDriverRequest
	if !h.bind(c, &req) {
		return
	}
	order, err := h.svc.Driver().Assign(c.Request.Context(), id, req.DriverID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// AdminUpdatePayment records a payment outcome against an order
func (h *Handler) AdminUpdatePayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.PaymentUpdate
	if !h.bind(c, &req) {
		return
	}
	order, err := h.svc.Order().UpdatePayment(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// AdminStats returns the marketplace dashboard counters
func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.svc.Order().Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AdminGetAllUsers returns all users (admin only)
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	users, err := h.svc.User().List(c.Request.Context(), models.UserRole(c.Query("role")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

// AdminCreateUser provisions an account of any role, admin included (admin only)
func (h *Handler) AdminCreateUser(c *gin.Context) {
	var req RegisterRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.svc.User().Create(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Phone:    req.Phone,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// AdminGetAllRestaurants returns all restaurants (admin only)
func (h *Handler) AdminGetAllRestaurants(c *gin.Context) {
	restaurants, err := h.svc.Restaurant().List(c.Request.Context(), store.RestaurantFilter{})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

// AdminReconcileRatings recomputes every stored average from the reviews
func (h *Handler) AdminReconcileRatings(c *gin.Context) {
	res, err := h.svc.Review().Reconcile(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ── Drivers ─────────────────────────────────────────────────────────────────

func (h *Handler) AdminCreateDriver(c *gin.Context) {
	var req services.CreateDriverInput
	if !h.bind(c, &req) {
		return
	}
	driver, err := h.svc.Driver().Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, driver)
}

func (h *Handler) AdminListDrivers(c *gin.Context) {
	drivers, err := h.svc.Driver().List(c.Request.Context(), c.Query("available") == "true")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if drivers == nil {
		drivers = []models.Driver{}
	}
	c.JSON(http.StatusOK, drivers)
}

func (h *Handler) AdminGetDriver(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	driver, err := h.svc.Driver().Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, driver)
}

func (h *Handler) AdminUpdateDriver(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateDriverInput
	if !h.bind(c, &req) {
		return
	}
	driver, err := h.svc.Driver().Update(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, driver)
}
