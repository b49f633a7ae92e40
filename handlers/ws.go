package handlers

import (
	"net/http"

	"food-marketplace-api/realtime"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// WatchOrder upgrades to a WebSocket streaming the order's events. The token
// travels in the query string since browsers cannot set headers on upgrade.
// Access is checked before the upgrade so refusals are plain HTTP errors.
func (h *Handler) WatchOrder(c *gin.Context) {
	claims, err := h.auth.ParseToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	who := services.Caller{UserID: claims.UserID, Role: claims.Role}
	if _, err := h.svc.Order().Get(c.Request.Context(), id, who); err != nil {
		h.respondError(c, err)
		return
	}

	// The snapshot is read after subscribing, so no update falls between the two.
	snapshot := func() (*realtime.Event, error) {
		order, err := h.svc.Order().Get(c.Request.Context(), id, who)
		if err != nil {
			return nil, err
		}
		ev, err := realtime.NewEvent(realtime.KindOrderUpdate, order)
		if err != nil {
			return nil, err
		}
		return &ev, nil
	}
	h.ws.Serve(c.Writer, c.Request, realtime.OrderChannel(id), snapshot)
}
