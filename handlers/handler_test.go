package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondError_MapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{log: logger.NewNop()}

	cases := []struct {
		err  error
		code int
		body string
	}{
		{apperrors.Validation("invalid items"), http.StatusBadRequest, `{"error":"invalid items"}`},
		{apperrors.NotFound("order not found"), http.StatusNotFound, `{"error":"order not found"}`},
		{apperrors.Authorization("not yours"), http.StatusForbidden, `{"error":"not yours"}`},
		{apperrors.Conflict("already delivered"), http.StatusConflict, `{"error":"already delivered"}`},
		{apperrors.Dependency(errors.New("disk on fire"), "save order"), http.StatusInternalServerError, `{"error":"server error"}`},
		{errors.New("plain"), http.StatusInternalServerError, `{"error":"server error"}`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		h.respondError(c, tc.err)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
		assert.JSONEq(t, tc.body, w.Body.String())
	}
}

func TestParamID_RejectsGarbage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, raw := range []string{"abc", "0", "-3"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: raw}}
		_, ok := paramID(c, "id")
		assert.False(t, ok, raw)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}
