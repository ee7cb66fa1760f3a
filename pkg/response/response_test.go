package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { OK(c, gin.H{"n": 1}) })
	r.GET("/fail", func(c *gin.Context) { ServiceUnavailable(c, "try again") })
	r.GET("/auth", func(c *gin.Context) { Unauthorized(c, "no") })

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/ok", http.StatusOK, `{"success":true,"data":{"n":1}}`},
		{"/fail", http.StatusServiceUnavailable, `{"success":false,"error":"try again"}`},
		{"/auth", http.StatusUnauthorized, `{"success":false,"error":"no"}`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.status, w.Code, tc.path)
		assert.JSONEq(t, tc.body, w.Body.String(), tc.path)
	}
}
