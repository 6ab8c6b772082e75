package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerRouter(cfg SwaggerConfig, auth gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/swagger/*any", SwaggerProtection(cfg, auth), func(c *gin.Context) {
		c.String(http.StatusOK, "swagger")
	})
	return r
}

func getSwagger(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	allow := func(c *gin.Context) {}

	t.Run("disabled", func(t *testing.T) {
		w := getSwagger(swaggerRouter(SwaggerConfig{}, nil), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
	})

	t.Run("enabled without restrictions", func(t *testing.T) {
		w := getSwagger(swaggerRouter(SwaggerConfig{Enabled: true}, nil), "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ip whitelist", func(t *testing.T) {
		r := swaggerRouter(SwaggerConfig{Enabled: true, AllowedIPs: []string{"127.0.0.1", "10.0.0.0/8"}}, nil)

		assert.Equal(t, http.StatusOK, getSwagger(r, "127.0.0.1:12345").Code)
		assert.Equal(t, http.StatusOK, getSwagger(r, "10.50.100.200:12345").Code)

		w := getSwagger(r, "192.168.1.1:12345")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
	})

	t.Run("auth required", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized,
			getSwagger(swaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, deny), "").Code)
		assert.Equal(t, http.StatusOK,
			getSwagger(swaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, allow), "").Code)
	})

	t.Run("whitelist is checked before auth", func(t *testing.T) {
		r := swaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true, AllowedIPs: []string{"127.0.0.1"}}, deny)
		assert.Equal(t, http.StatusForbidden, getSwagger(r, "192.168.1.1:12345").Code)
		assert.Equal(t, http.StatusUnauthorized, getSwagger(r, "127.0.0.1:12345").Code)
	})
}

func TestIPAllowed(t *testing.T) {
	prefixes := parsePrefixes([]string{"192.168.1.1", "10.0.0.0/8", "::1", "not-an-ip", "300.0.0.0/8"})
	assert.Len(t, prefixes, 3)

	tests := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.1", true},
		{"192.168.1.2", false},
		{"10.20.30.40", true},
		{"11.0.0.5", false},
		{"::1", true},
		{"::ffff:10.0.0.1", true},
		{"garbage", false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, ipAllowed(tt.ip, prefixes))
		})
	}
}
