package routes

import (
	"food-marketplace-api/handlers"
	"food-marketplace-api/metrics"
	"food-marketplace-api/middleware"
	"food-marketplace-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler, auth *middleware.Auth) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Token comes in the query string
	r.GET("/ws/orders/:id", h.WatchOrder)

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		// Restaurants & menus (no auth needed)
		public.GET("/restaurants", h.ListRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
		public.GET("/restaurants/:id/menu", h.GetMenu)
		public.GET("/reviews/restaurant/:id", h.GetRestaurantReviews)

		// State machine info
		public.GET("/state-machine", h.GetStateMachineInfo)

		public.POST("/coupons/validate", auth.OptionalAuth(), h.ValidateCoupon)
	}

	// ── Authenticated routes ───────────────────────────────────────
	authed := r.Group("/api")
	authed.Use(auth.AuthRequired())
	{
		authed.GET("/profile", h.GetProfile)

		// Any account may order; ownership is checked per order
		authed.POST("/orders", h.PlaceOrder)
		authed.GET("/orders", h.GetMyOrders)
		authed.GET("/orders/:id", h.GetOrderDetail)
		authed.PUT("/orders/:id/cancel", h.CancelOrder)

		authed.POST("/reviews", h.CreateReview)
		authed.GET("/reviews/my", h.GetMyReviews)
		authed.POST("/reviews/:id/respond",
			middleware.RoleRequired(models.RoleRestaurant, models.RoleAdmin), h.RespondToReview)

		authed.GET("/notifications", h.GetMyNotifications)
		authed.PATCH("/notifications/read-all", h.MarkAllNotificationsRead)
		authed.PATCH("/notifications/:id/read", h.MarkNotificationRead)
		authed.DELETE("/notifications/:id", h.DeleteNotification)
	}

	// ── Restaurant owner routes ────────────────────────────────────
	restaurant := r.Group("/api/restaurant")
	restaurant.Use(auth.AuthRequired(), middleware.RoleRequired(models.RoleRestaurant))
	{
		// Restaurant management
		restaurant.POST("", h.CreateRestaurant)
		restaurant.GET("", h.GetMyRestaurant)
		restaurant.PUT("", h.UpdateRestaurant)

		// Menu management
		restaurant.POST("/menu", h.AddMenuItem)
		restaurant.PUT("/menu/:itemId", h.UpdateMenuItem)
		restaurant.DELETE("/menu/:itemId", h.DeleteMenuItem)

		// Order management
		restaurant.GET("/orders", h.GetRestaurantOrders)
		restaurant.PUT("/orders/:id/status", h.UpdateOrderStatus)
		restaurant.GET("/analytics", h.GetRestaurantAnalytics)
	}

	// ── Driver routes ──────────────────────────────────────────────
	driver := r.Group("/api/driver")
	driver.Use(auth.AuthRequired(), middleware.RoleRequired(models.RoleDriver))
	{
		driver.GET("/orders", h.GetMyDeliveries)
		driver.PUT("/orders/:id/status", h.DriverUpdateOrderStatus)
		driver.POST("/location", h.ReportLocation)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(auth.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/orders", h.AdminGetAllOrders)
		admin.GET("/orders/:id", h.AdminGetOrder)
		admin.PUT("/orders/:id/status", h.AdminForceOrderStatus)
		admin.PUT("/orders/:id/driver", h.AdminAssignDriver)
		admin.PUT("/orders/:id/payment", h.AdminUpdatePayment)
		admin.GET("/stats", h.AdminStats)

		admin.GET("/users", h.AdminGetAllUsers)
		admin.POST("/users", h.AdminCreateUser)
		admin.GET("/restaurants", h.AdminGetAllRestaurants)
		admin.POST("/ratings/reconcile", h.AdminReconcileRatings)

		admin.GET("/drivers", h.AdminListDrivers)
		admin.POST("/drivers", h.AdminCreateDriver)
		admin.GET("/drivers/:id", h.AdminGetDriver)
		admin.PUT("/drivers/:id", h.AdminUpdateDriver)

		admin.POST("/coupons", h.AdminCreateCoupon)
		admin.GET("/coupons", h.AdminListCoupons)
		admin.PUT("/coupons/:id", h.AdminUpdateCoupon)
		admin.DELETE("/coupons/:id", h.AdminDeleteCoupon)
	}
}
