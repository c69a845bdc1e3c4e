package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ec-storefront/internal/auth"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key", 15*time.Minute, 7*24*time.Hour)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// ============================================
// Auth Middleware Tests
// ============================================

func TestAuthMiddleware_ValidToken(t *testing.T) {
	jwtService := newTestJWTService()
	middleware := AuthMiddleware(jwtService)

	token, _, err := jwtService.GenerateAccessToken(123, "test@example.com", "USER")
	require.NoError(t, err)

	var capturedClaims *auth.Claims
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedClaims, _ = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, capturedClaims)
	assert.Equal(t, int64(123), capturedClaims.UserID)
	assert.Equal(t, "test@example.com", capturedClaims.Email)
	assert.Equal(t, "USER", capturedClaims.Role)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	jwtService := newTestJWTService()
	foreign := auth.NewJWTService("another-secret", 15*time.Minute, time.Hour)
	foreignToken, _, err := foreign.GenerateAccessToken(1, "a@example.com", "USER")
	require.NoError(t, err)
	refreshToken, _, err := jwtService.GenerateRefreshToken(1)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"no header", "", "Full authentication is required"},
		{"not bearer", "Basic dXNlcjpwYXNz", "Full authentication is required"},
		{"garbage", "Bearer invalid-token", "Invalid or expired token"},
		{"wrong signature", "Bearer " + foreignToken, "Invalid or expired token"},
		{"refresh token", "Bearer " + refreshToken, "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(jwtService)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.message)
		})
	}
}

// ============================================
// Require Role Middleware Tests
// ============================================

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		claims *auth.Claims
		want   int
	}{
		{"admin", &auth.Claims{UserID: 1, Role: "ADMIN"}, http.StatusOK},
		{"customer", &auth.Claims{UserID: 2, Role: "USER"}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.claims != nil {
				ctx = context.WithValue(ctx, UserContextKey, tt.claims)
			}
			req := httptest.NewRequest(http.MethodGet, "/admin", nil).WithContext(ctx)
			rec := httptest.NewRecorder()

			RequireRole("ADMIN")(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestContextHelpers(t *testing.T) {
	assert.Zero(t, GetUserID(context.Background()))
	assert.False(t, IsAdmin(context.Background()))

	ctx := context.WithValue(context.Background(), UserContextKey, &auth.Claims{UserID: 9, Role: "ADMIN"})
	assert.Equal(t, int64(9), GetUserID(ctx))
	assert.True(t, IsAdmin(ctx))
}

// ============================================
// Request Logger Tests
// ============================================

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	handler := RequestLogger(logrus.NewEntry(logger))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("X-Request-ID", "req-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"path":"/api/cart"`)
}
