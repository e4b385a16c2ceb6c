package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/homefix/homefix-api/models"
	"gorm.io/gorm"
)

// GormStore implements Store on a relational database (PostgreSQL in
// production, SQLite in development and tests)
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the tables for every model
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.TechnicianProfile{},
		&models.ServiceRequest{},
		&models.RequestMessage{},
	)
}

// DB returns the underlying connection
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// Name returns the gorm dialect name
func (s *GormStore) Name() string {
	return s.db.Dialector.Name()
}

// Ping verifies the database connection
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// isUniqueViolation checks for duplicate key errors (works with both PostgreSQL and SQLite)
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "unique")
}

func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// CreateUser inserts a new user, failing with ErrDuplicate on a taken email
func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	prepareUser(user)
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser finds a user by id
func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "failed to fetch user %s", id)
	}
	return &user, nil
}

// GetUserByEmail finds a user by email
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "failed to fetch user by email")
	}
	return &user, nil
}

// UpdateUser applies a patch to a user and returns the updated record
func (s *GormStore) UpdateUser(ctx context.Context, id string, patch UserPatch) (*models.User, error) {
	updates := make(map[string]interface{})
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Location != nil {
		updates["location"] = *patch.Location
	}
	if len(updates) == 0 {
		return s.GetUser(ctx, id)
	}
	updates["updated_at"] = now()

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, id)
}

// ListUsers returns users ordered by creation time
func (s *GormStore) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	query := s.db.WithContext(ctx).Order("created_at ASC")
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user
func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTechnician inserts a technician profile
func (s *GormStore) CreateTechnician(ctx context.Context, profile *models.TechnicianProfile) error {
	prepareTechnician(profile)
	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create technician profile: %w", err)
	}
	return nil
}

// GetTechnician finds the profile of a technician user
func (s *GormStore) GetTechnician(ctx context.Context, userID string) (*models.TechnicianProfile, error) {
	var profile models.TechnicianProfile
	if err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "failed to fetch technician %s", userID)
	}
	return &profile, nil
}

// UpdateTechnician applies a patch to a profile and returns the updated record
func (s *GormStore) UpdateTechnician(ctx context.Context, userID string, patch TechnicianPatch) (*models.TechnicianProfile, error) {
	updates := make(map[string]interface{})
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.ServiceType != nil {
		updates["service_type"] = *patch.ServiceType
	}
	if patch.Location != nil {
		updates["location"] = *patch.Location
	}
	if patch.HourlyRate != nil {
		updates["hourly_rate"] = *patch.HourlyRate
	}
	if patch.Available != nil {
		updates["available"] = *patch.Available
	}
	if patch.Bio != nil {
		updates["bio"] = *patch.Bio
	}
	if len(updates) == 0 {
		return s.GetTechnician(ctx, userID)
	}
	updates["updated_at"] = now()

	res := s.db.WithContext(ctx).Model(&models.TechnicianProfile{}).Where("user_id = ?", userID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update technician %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetTechnician(ctx, userID)
}

// ListTechnicians returns every technician profile ordered by creation time
func (s *GormStore) ListTechnicians(ctx context.Context) ([]models.TechnicianProfile, error) {
	var profiles []models.TechnicianProfile
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list technicians: %w", err)
	}
	return profiles, nil
}

// DeleteTechnician removes a technician profile
func (s *GormStore) DeleteTechnician(ctx context.Context, userID string) error {
	res := s.db.WithContext(ctx).Delete(&models.TechnicianProfile{}, "user_id = ?", userID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete technician %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateRequest inserts a new service request
func (s *GormStore) CreateRequest(ctx context.Context, req *models.ServiceRequest) error {
	prepareRequest(req)
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create service request: %w", err)
	}
	return nil
}

// GetRequest finds a service request by id
func (s *GormStore) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "failed to fetch service request %s", id)
	}
	return &req, nil
}

// QueryRequests returns the matching requests, newest first
func (s *GormStore) QueryRequests(ctx context.Context, filter RequestFilter) ([]models.ServiceRequest, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.TechnicianID != "" {
		query = query.Where("technician_id = ?", filter.TechnicianID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var requests []models.ServiceRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to query service requests: %w", err)
	}
	return requests, nil
}

// UpdateRequestStatus performs a compare-and-set on the request status
func (s *GormStore) UpdateRequestStatus(ctx context.Context, id string, from, to models.Status) (*models.ServiceRequest, error) {
	res := s.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": now()})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update status of service request %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.missOrConflict(ctx, id)
	}
	return s.GetRequest(ctx, id)
}

// AssignTechnician sets the technician while the request is still in the expected status
func (s *GormStore) AssignTechnician(ctx context.Context, id, technicianID string, expected models.Status) (*models.ServiceRequest, error) {
	res := s.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]interface{}{"technician_id": technicianID, "updated_at": now()})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to assign technician to service request %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.missOrConflict(ctx, id)
	}
	return s.GetRequest(ctx, id)
}

// missOrConflict tells a missing row apart from a lost conditional update
func (s *GormStore) missOrConflict(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ServiceRequest{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check service request %s: %w", id, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStatusConflict
}

// DeleteRequest removes a request and its messages in one transaction
func (s *GormStore) DeleteRequest(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.RequestMessage{}, "request_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete messages of service request %s: %w", id, err)
		}
		res := tx.Delete(&models.ServiceRequest{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete service request %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CreateMessage inserts a message
func (s *GormStore) CreateMessage(ctx context.Context, msg *models.RequestMessage) error {
	prepareMessage(msg)
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListMessages returns a request's messages, oldest first
func (s *GormStore) ListMessages(ctx context.Context, requestID string) ([]models.RequestMessage, error) {
	var messages []models.RequestMessage
	if err := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
