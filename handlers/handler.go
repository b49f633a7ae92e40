package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/logger"
	"food-marketplace-api/middleware"
	"food-marketplace-api/realtime"
	"food-marketplace-api/services"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc  services.IServiceManager
	auth *middleware.Auth
	ws   *realtime.WSServer
	stg  store.IStorage
	log  logger.ILogger
}

func New(svc services.IServiceManager, auth *middleware.Auth, ws *realtime.WSServer, stg store.IStorage, log logger.ILogger) *Handler {
	return &Handler{
		svc:  svc,
		auth: auth,
		ws:   ws,
		stg:  stg,
		log:  log,
	}
}

// respondError maps an apperrors kind to its status. Dependency failures are
// logged with their cause and reported generically.
func (h *Handler) respondError(c *gin.Context, err error) {
	var status int
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindAuthorization:
		status = http.StatusForbidden
	case apperrors.KindConflict:
		status = http.StatusConflict
	default:
		_ = c.Error(err)
		h.log.Error("request failed",
			logger.String("method", c.Request.Method),
			logger.String("route", c.FullPath()),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(status, gin.H{"error": apperrors.MessageOf(err)})
}

// bind decodes the JSON body, answering 400 on failure.
func (h *Handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// bindOptional accepts an absent or empty body. Chunked bodies carry no
// Content-Length, so emptiness is only known after reading.
func (h *Handler) bindOptional(c *gin.Context, dst interface{}) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

func queryUint(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

// pageParams reads page and limit, normalized the way the store pages.
func pageParams(c *gin.Context) (page, limit int) {
	page, limit = queryInt(c, "page"), queryInt(c, "limit")
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// caller acts with the role of the authenticated account.
func caller(c *gin.Context) services.Caller {
	return services.Caller{UserID: middleware.GetUserID(c), Role: middleware.GetRole(c)}
}
