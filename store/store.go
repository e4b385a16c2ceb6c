// Package store persists users, technician profiles, service requests and
// request messages. Every backend implements Store.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homefix/homefix-api/models"
)

var (
	// ErrNotFound is returned when no record has the requested id
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a conditional status update finds a
	// different status than the caller read
	ErrStatusConflict = errors.New("status changed concurrently")
	// ErrDuplicate is returned when a unique field (user email) is taken
	ErrDuplicate = errors.New("duplicate record")
)

// UserPatch lists the user fields that may change after registration.
// Nil fields are left untouched.
type UserPatch struct {
	Name     *string
	Phone    *string
	Location *string
}

// IsEmpty reports whether the patch changes nothing
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Location == nil
}

// TechnicianPatch lists the profile fields a technician may edit
type TechnicianPatch struct {
	Name        *string
	ServiceType *string
	Location    *string
	HourlyRate  *float64
	Available   *bool
	Bio         *string
}

// IsEmpty reports whether the patch changes nothing
func (p TechnicianPatch) IsEmpty() bool {
	return p.Name == nil && p.ServiceType == nil && p.Location == nil &&
		p.HourlyRate == nil && p.Available == nil && p.Bio == nil
}

// UserFilter narrows ListUsers. Empty fields match everything.
type UserFilter struct {
	Role models.Role
}

// RequestFilter narrows QueryRequests. Empty fields match everything.
type RequestFilter struct {
	ClientID     string
	TechnicianID string
	Status       models.Status
}

// UserStore persists accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) (*models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// TechnicianStore persists technician profiles
type TechnicianStore interface {
	CreateTechnician(ctx context.Context, profile *models.TechnicianProfile) error
	GetTechnician(ctx context.Context, userID string) (*models.TechnicianProfile, error)
	UpdateTechnician(ctx context.Context, userID string, patch TechnicianPatch) (*models.TechnicianProfile, error)
	ListTechnicians(ctx context.Context) ([]models.TechnicianProfile, error)
	DeleteTechnician(ctx context.Context, userID string) error
}

// RequestStore persists service requests
type RequestStore interface {
	CreateRequest(ctx context.Context, req *models.ServiceRequest) error
	GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error)
	// QueryRequests returns matching requests, newest first
	QueryRequests(ctx context.Context, filter RequestFilter) ([]models.ServiceRequest, error)
	// UpdateRequestStatus sets the status to `to` only if it is still `from`.
	// It returns ErrStatusConflict when the stored status differs.
	UpdateRequestStatus(ctx context.Context, id string, from, to models.Status) (*models.ServiceRequest, error)
	// AssignTechnician sets the technician only while the status is `expected`
	AssignTechnician(ctx context.Context, id, technicianID string, expected models.Status) (*models.ServiceRequest, error)
	// DeleteRequest removes the request and its messages
	DeleteRequest(ctx context.Context, id string) error
}

// MessageStore persists request conversations
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.RequestMessage) error
	// ListMessages returns a request's messages, oldest first
	ListMessages(ctx context.Context, requestID string) ([]models.RequestMessage, error)
}

// Store is the full entity store
type Store interface {
	UserStore
	TechnicianStore
	RequestStore
	MessageStore
	// Name identifies the backend (postgres, sqlite, mongo, memory)
	Name() string
	Ping(ctx context.Context) error
}

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*MongoStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// NormalizeEmail is the form emails are stored and looked up in
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}

func prepareUser(user *models.User) {
	if user.ID == "" {
		user.ID = newID()
	}
	user.Email = NormalizeEmail(user.Email)
	t := now()
	user.CreatedAt = t
	user.UpdatedAt = t
}

func prepareTechnician(profile *models.TechnicianProfile) {
	t := now()
	profile.CreatedAt = t
	profile.UpdatedAt = t
}

func prepareRequest(req *models.ServiceRequest) {
	if req.ID == "" {
		req.ID = newID()
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	t := now()
	req.CreatedAt = t
	req.UpdatedAt = t
}

func prepareMessage(msg *models.RequestMessage) {
	if msg.ID == "" {
		msg.ID = newID()
	}
	msg.CreatedAt = now()
}
