package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/itam/backend/internal/infrastructure/auth"
	"github.com/itam/backend/internal/infrastructure/config"
	"github.com/itam/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                testSecret,
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "itam-test",
	})
}

type failingBlacklist struct{}

func (failingBlacklist) AddToBlacklist(context.Context, string, time.Duration) error { return nil }
func (failingBlacklist) IsBlacklisted(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func jwtRouter(cfg JWTMiddlewareConfig) *gin.Engine {
	r := gin.New()
	r.Use(JWTAuth(cfg))
	r.GET("/api/v1/assets/transitions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  GetJWTUserID(c),
			"username": GetJWTUsername(c),
			"ctx_user": logger.UserID(c.Request.Context()),
		})
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/swagger/*any", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func callWithAuth(r *gin.Engine, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	userID := uuid.New()
	token, err := svc.GenerateToken(userID, "jkowalski")
	require.NoError(t, err)

	w := callWithAuth(jwtRouter(DefaultJWTConfig(svc)), "/api/v1/assets/transitions", "Bearer "+token.AccessToken)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"`+userID.String()+`"`)
	assert.Contains(t, w.Body.String(), `"username":"jkowalski"`)
	assert.Contains(t, w.Body.String(), `"ctx_user":"`+userID.String()+`"`)
}

func TestJWTAuth_Rejections(t *testing.T) {
	svc := newTestJWTService()
	r := jwtRouter(DefaultJWTConfig(svc))

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
		UserID:    uuid.NewString(),
		TokenType: auth.TokenTypeAccess,
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "ERR_UNAUTHORIZED"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "ERR_UNAUTHORIZED"},
		{"empty token", "Bearer ", "ERR_UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-jwt", "ERR_TOKEN_INVALID"},
		{"expired token", "Bearer " + expiredToken, "ERR_TOKEN_EXPIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := callWithAuth(r, "/api/v1/assets/transitions", tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestJWTAuth_SkipPaths(t *testing.T) {
	r := jwtRouter(DefaultJWTConfig(newTestJWTService()))

	assert.Equal(t, http.StatusOK, callWithAuth(r, "/health", "").Code)
	assert.Equal(t, http.StatusOK, callWithAuth(r, "/swagger/index.html", "").Code)
}

func TestJWTAuth_Blacklist(t *testing.T) {
	svc := newTestJWTService()
	token, err := svc.GenerateToken(uuid.New(), "jkowalski")
	require.NoError(t, err)
	claims, err := svc.ValidateAccessToken(token.AccessToken)
	require.NoError(t, err)

	t.Run("revoked token", func(t *testing.T) {
		blacklist := auth.NewInMemoryTokenBlacklist()
		require.NoError(t, blacklist.AddToBlacklist(context.Background(), claims.ID, time.Hour))
		cfg := DefaultJWTConfig(svc)
		cfg.TokenBlacklist = blacklist

		w := callWithAuth(jwtRouter(cfg), "/api/v1/assets/transitions", "Bearer "+token.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_TOKEN_REVOKED")
	})

	t.Run("blacklist failure lets the request through", func(t *testing.T) {
		cfg := DefaultJWTConfig(svc)
		cfg.TokenBlacklist = failingBlacklist{}

		w := callWithAuth(jwtRouter(cfg), "/api/v1/assets/transitions", "Bearer "+token.AccessToken)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGetJWTClaims_NotFound(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTUserID(c))
	assert.Empty(t, GetJWTUsername(c))
}
