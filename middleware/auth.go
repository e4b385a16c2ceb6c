package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/homefix/homefix-api/config"
	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/policy"
	"github.com/homefix/homefix-api/utils"
	"go.uber.org/zap"
)

const (
	userIDKey = "user_id"
	roleKey   = "user_role"
	claimsKey = "validated_claims"
)

// CustomClaims contains the application claims carried by our tokens.
type CustomClaims struct {
	Role string `json:"role"`
}

// Validate rejects tokens whose role is not one we issue.
func (c CustomClaims) Validate(ctx context.Context) error {
	if !models.Role(c.Role).IsValid() {
		return fmt.Errorf("unknown role claim %q", c.Role)
	}
	return nil
}

// EnsureValidToken is a middleware that checks the HS256 JWT issued at login.
func EnsureValidToken(cfg *config.Config) (gin.HandlerFunc, error) {
	if cfg.JWTSecret == "" || cfg.JWTIssuer == "" || cfg.JWTAudience == "" {
		return nil, errors.New("jwt secret, issuer and audience are required")
	}
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		utils.GetLogger().Debug("rejected token", zap.String("path", r.URL.Path), zap.Error(err))

		message := "Invalid or expired token"
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			message = "Authentication token is required"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		body := fmt.Sprintf(`{"success":false,"error":{"code":"UNAUTHORIZED","message":%q}}`, message)
		if _, writeErr := w.Write([]byte(body)); writeErr != nil {
			utils.GetLogger().Warn("failed to write error response", zap.Error(writeErr))
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			custom := token.CustomClaims.(*CustomClaims)

			c.Set(userIDKey, token.RegisteredClaims.Subject)
			c.Set(roleKey, models.Role(custom.Role))
			c.Set(claimsKey, token)
			c.Request = r
			passed = true
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}, nil
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok || userIDStr == "" {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(claimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// GetActor builds the policy actor for the authenticated caller
func GetActor(c *gin.Context) (policy.Actor, error) {
	userID, err := GetUserID(c)
	if err != nil {
		return policy.Actor{}, err
	}

	role, ok := c.Get(roleKey)
	if !ok {
		return policy.Actor{}, &AuthError{Code: "MISSING_ROLE", Message: "Role not found in context"}
	}
	r, ok := role.(models.Role)
	if !ok || !r.IsValid() {
		return policy.Actor{}, &AuthError{Code: "INVALID_ROLE", Message: "Role is not recognized"}
	}

	return policy.Actor{ID: userID, Role: r}, nil
}

// SetActor stores an identity in the context the way EnsureValidToken does
func SetActor(c *gin.Context, actor policy.Actor) {
	c.Set(userIDKey, actor.ID)
	c.Set(roleKey, actor.Role)
}

// RequireRole is a middleware that only lets the given roles through
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := GetActor(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Could not extract user information",
				},
			})
			c.Abort()
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}

		names := make([]string, len(roles))
		for i, role := range roles {
			names[i] = string(role)
		}
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Only " + strings.Join(names, ", ") + " accounts can access this resource",
				"details": gin.H{"reason": policy.ReasonInsufficientRole},
			},
		})
		c.Abort()
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
