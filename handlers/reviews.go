package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
)

// CreateReview rates a restaurant, a driver, or a delivered order
func (h *Handler) CreateReview(c *gin.Context) {
	var req services.CreateReviewInput
	if !h.bind(c, &req) {
		return
	}
	req.UserID = middleware.GetUserID(c)
	review, err := h.svc.Review().Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// GetMyReviews returns the reviews the caller wrote
func (h *Handler) GetMyReviews(c *gin.Context) {
	reviews, err := h.svc.Review().ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	c.JSON(http.StatusOK, reviews)
}

// GetRestaurantReviews pages through a restaurant's reviews (public)
func (h *Handler) GetRestaurantReviews(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	page, limit := pageParams(c)
	reviews, total, err := h.svc.Review().ListByRestaurant(c.Request.Context(), id, store.ReviewFilter{
		Rating: float64(queryInt(c, "rating")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

type RespondReviewRequest struct {
	Response string `json:"response" binding:"required"`
}

// RespondToReview attaches the restaurant's reply to a review
func (h *Handler) RespondToReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req RespondReviewRequest
	if !h.bind(c, &req) {
		return
	}
	review, err := h.svc.Review().Respond(c.Request.Context(), id, caller(c), req.Response)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}
