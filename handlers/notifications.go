package handlers

import (
	"net/http"
	"strconv"

	"food-marketplace-api/middleware"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
)

// GetMyNotifications lists the caller's inbox, newest first. ?is_read=true|false filters.
func (h *Handler) GetMyNotifications(c *gin.Context) {
	page, limit := pageParams(c)
	f := store.NotificationFilter{Page: page, Limit: limit}
	if raw := c.Query("is_read"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_read must be true or false"})
			return
		}
		f.IsRead = &v
	}

	p, err := h.svc.Notification().List(c.Request.Context(), middleware.GetUserID(c), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": p.Notifications,
		"unreadCount":   p.Unread,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      p.Total,
			"totalPages": (p.Total + int64(limit) - 1) / int64(limit),
		},
	})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.Notification().MarkRead(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.svc.Notification().MarkAllRead(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": n})
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Notification().Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
