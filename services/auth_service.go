package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password registration accepts
const MinPasswordLength = 6

// passwordHashCost is lowered by tests to keep bcrypt fast
var passwordHashCost = bcrypt.DefaultCost

// TokenConfig controls the JWTs issued at login
type TokenConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	Expiry   time.Duration
}

// tokenClaims is the payload of an issued access token. The subject is the user id.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RegisterInput is the sign-up form
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        string
	Phone       string
	Location    string
	ServiceType string
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Role      models.Role  `json:"role"`
	User      *models.User `json:"user"`
}

// AuthService registers accounts, checks passwords and issues access tokens
type AuthService struct {
	store  store.Store
	tokens TokenConfig
	logger *zap.Logger
}

// NewAuthService creates an auth service
func NewAuthService(s store.Store, tokens TokenConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{store: s, tokens: tokens, logger: logger}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword checks if a password matches a hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register creates a client or technician account and logs it in. Technicians
// get a marketplace profile with default rating and availability.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = store.NormalizeEmail(input.Email)

	role, ok := models.ParseRole(strings.ToLower(strings.TrimSpace(input.Role)))
	if input.Role == "" {
		role, ok = models.RoleClient, true
	}
	if !ok || role == models.RoleAdmin {
		return nil, validationError("role must be client or technician", map[string]interface{}{"role": input.Role})
	}
	if input.Name == "" {
		return nil, validationError("name is required", map[string]interface{}{"fields": []string{"name"}})
	}
	if addr, err := mail.ParseAddress(input.Email); err != nil || addr.Address != input.Email {
		return nil, validationError("a valid email is required", map[string]interface{}{"fields": []string{"email"}})
	}
	if len(input.Password) < MinPasswordLength {
		return nil, validationError(fmt.Sprintf("password must be at least %d characters", MinPasswordLength), map[string]interface{}{"fields": []string{"password"}})
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, persistenceError("failed to secure password", err)
	}

	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
		Phone:        strings.TrimSpace(input.Phone),
		Location:     strings.TrimSpace(input.Location),
	}
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}

	if role == models.RoleTechnician {
		profile := models.NewTechnicianProfile(user, strings.TrimSpace(input.ServiceType))
		if err := s.store.CreateTechnician(ctx, &profile); err != nil {
			if delErr := s.store.DeleteUser(ctx, user.ID); delErr != nil {
				s.logger.Error("failed to roll back user after profile error", zap.String("user_id", user.ID), zap.Error(delErr))
			}
			return nil, persistenceError("failed to create technician profile", err)
		}
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return s.result(user)
}

func (s *AuthService) createUser(ctx context.Context, user *models.User) error {
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return &Error{Kind: KindConflict, Message: "email is already registered", Err: err}
		}
		return persistenceError("failed to create user", err)
	}
	return nil
}

// Login checks the credentials and issues a token
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := &Error{Kind: KindUnauthenticated, Message: "invalid email or password"}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, persistenceError("failed to load user", err)
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, invalid
	}
	return s.result(user)
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
// Admins cannot self-register.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	if len(password) < MinPasswordLength {
		return nil, validationError(fmt.Sprintf("admin password must be at least %d characters", MinPasswordLength), map[string]interface{}{"fields": []string{"password"}})
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			return nil, &Error{Kind: KindConflict, Message: "admin email belongs to a non-admin account"}
		}
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, persistenceError("failed to load admin", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, persistenceError("failed to secure password", err)
	}
	admin := &models.User{Name: "Administrator", Email: email, PasswordHash: hash, Role: models.RoleAdmin}
	if err := s.createUser(ctx, admin); err != nil {
		return nil, err
	}
	s.logger.Info("bootstrap admin created", zap.String("user_id", admin.ID))
	return admin, nil
}

// IssueToken signs an HS256 access token for user
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokens.Expiry)
	claims := tokenClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.tokens.Issuer,
			Audience:  jwt.ClaimStrings{s.tokens.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokens.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *AuthService) result(user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.IssueToken(user)
	if err != nil {
		return nil, persistenceError("failed to issue token", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, Role: user.Role, User: user}, nil
}
