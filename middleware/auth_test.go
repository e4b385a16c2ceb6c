package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/homefix/homefix-api/config"
	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = &config.Config{
	JWTSecret:   "test-secret-that-is-long-enough-32b",
	JWTIssuer:   "homefix-api",
	JWTAudience: "homefix-web",
}

type testClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func signToken(t *testing.T, secret, audience, role string, expiresAt time.Time) string {
	t.Helper()
	now := time.Now()
	claims := testClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    testConfig.JWTIssuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour * 2)),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Hour * 2)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth, err := EnsureValidToken(testConfig)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/protected", auth, func(c *gin.Context) {
		actor, err := GetActor(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role})
	})
	return router
}

func TestEnsureValidToken(t *testing.T) {
	valid := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{
			name:       "valid token",
			header:     "Bearer " + signToken(t, testConfig.JWTSecret, testConfig.JWTAudience, "technician", valid),
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing token",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed token",
			header:     "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, "another-secret-entirely-32-bytes!", testConfig.JWTAudience, "client", valid),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong audience",
			header:     "Bearer " + signToken(t, testConfig.JWTSecret, "someone-else", "client", valid),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			header:     "Bearer " + signToken(t, testConfig.JWTSecret, testConfig.JWTAudience, "client", time.Now().Add(-time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown role",
			header:     "Bearer " + signToken(t, testConfig.JWTSecret, testConfig.JWTAudience, "superuser", valid),
			wantStatus: http.StatusUnauthorized,
		},
	}

	router := newAuthRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"id":"user-123","role":"technician"}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}

func TestCustomClaims_Validate(t *testing.T) {
	assert.NoError(t, CustomClaims{Role: "client"}.Validate(context.Background()))
	assert.NoError(t, CustomClaims{Role: "admin"}.Validate(context.Background()))
	assert.Error(t, CustomClaims{Role: "user"}.Validate(context.Background()), "the alias is only accepted at registration")
	assert.Error(t, CustomClaims{}.Validate(context.Background()))
}

func TestGetUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		setupFunc func(*gin.Context)
		wantID    string
		wantErr   bool
	}{
		{
			name: "successfully extracts user ID",
			setupFunc: func(c *gin.Context) {
				c.Set("user_id", "3c9d1f0e")
			},
			wantID:  "3c9d1f0e",
			wantErr: false,
		},
		{
			name: "user ID not found in context",
			setupFunc: func(c *gin.Context) {
				// Don't set user_id
			},
			wantID:  "",
			wantErr: true,
		},
		{
			name: "user ID is not a string",
			setupFunc: func(c *gin.Context) {
				c.Set("user_id", 12345)
			},
			wantID:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.setupFunc(c)

			gotID, err := GetUserID(c)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, gotID)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantID, gotID)
			}
		})
	}
}

func TestGetClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	_, err := GetClaims(c)
	assert.Error(t, err)

	c.Set("validated_claims", "invalid")
	_, err = GetClaims(c)
	assert.Error(t, err)

	c.Set("validated_claims", &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: "user-1"},
		CustomClaims:     &CustomClaims{Role: "client"},
	})
	claims, err := GetClaims(c)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.RegisteredClaims.Subject)
}

func TestGetActor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	_, err := GetActor(c)
	assert.Error(t, err)

	c.Set("user_id", "user-1")
	_, err = GetActor(c)
	assert.Error(t, err, "role is required")

	SetActor(c, policy.Actor{ID: "user-1", Role: models.RoleAdmin})
	actor, err := GetActor(c)
	require.NoError(t, err)
	assert.Equal(t, policy.Actor{ID: "user-1", Role: models.RoleAdmin}, actor)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		setupFunc      func(*gin.Context)
		wantStatusCode int
		wantAborted    bool
	}{
		{
			name: "has required role",
			setupFunc: func(c *gin.Context) {
				SetActor(c, policy.Actor{ID: "a1", Role: models.RoleAdmin})
			},
			wantAborted: false,
		},
		{
			name: "wrong role",
			setupFunc: func(c *gin.Context) {
				SetActor(c, policy.Actor{ID: "c1", Role: models.RoleClient})
			},
			wantStatusCode: http.StatusForbidden,
			wantAborted:    true,
		},
		{
			name: "no identity in context",
			setupFunc: func(c *gin.Context) {
				// Don't set the actor
			},
			wantStatusCode: http.StatusUnauthorized,
			wantAborted:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/admin", nil)

			tt.setupFunc(c)
			RequireRole(models.RoleAdmin, models.RoleTechnician)(c)

			assert.Equal(t, tt.wantAborted, c.IsAborted())
			if tt.wantAborted {
				assert.Equal(t, tt.wantStatusCode, w.Code)
			}
		})
	}
}

func TestAuthError(t *testing.T) {
	err := &AuthError{
		Code:    "TEST_ERROR",
		Message: "This is a test error",
	}

	assert.Equal(t, "This is a test error", err.Error())
}
