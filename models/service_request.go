package models

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a service request
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every status in lifecycle order
var Statuses = []Status{StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// ParseStatus normalizes client input such as "Accepted" or "In Progress".
// The result may still be invalid; callers check IsValid.
func ParseStatus(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	return Status(strings.NewReplacer(" ", "-", "_", "-").Replace(s))
}

// IsTerminal reports whether no further transitions are permitted from s
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ServiceRequest is a job posted by a client, optionally addressed to a technician
type ServiceRequest struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	ClientID      string     `gorm:"type:varchar(36);not null;index" bson:"client_id" json:"clientId"`
	TechnicianID  *string    `gorm:"type:varchar(36);index" bson:"technician_id,omitempty" json:"technicianId"` // nullable, unassigned until set
	ServiceType   string     `gorm:"not null" bson:"service_type" json:"serviceType"`
	Description   string     `gorm:"type:text;not null" bson:"description" json:"description"`
	Status        Status     `gorm:"type:varchar(20);not null;default:'pending';index" bson:"status" json:"status"`
	ScheduledDate *time.Time `bson:"scheduled_date,omitempty" json:"scheduledDate,omitempty"`
	Location      string     `gorm:"not null" bson:"location" json:"location"`
	ImageKey      *string    `bson:"image_key,omitempty" json:"imageKey,omitempty"`
	ImageURL      *string    `gorm:"-" bson:"-" json:"imageUrl,omitempty"` // computed field, not persisted
	CreatedAt     time.Time  `gorm:"index" bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updatedAt"`
}

// TableName specifies the table name for the ServiceRequest model
func (ServiceRequest) TableName() string {
	return "service_requests"
}

// HasTechnician reports whether a technician is assigned
func (r *ServiceRequest) HasTechnician() bool {
	return r.TechnicianID != nil && *r.TechnicianID != ""
}

// IsAssignedTo reports whether the request is assigned to the given user
func (r *ServiceRequest) IsAssignedTo(userID string) bool {
	return r.HasTechnician() && *r.TechnicianID == userID
}
