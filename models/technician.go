package models

import (
	"time"
)

const (
	// DefaultRating is given to technicians that have not been reviewed yet
	DefaultRating = 4.0
	// MaxRating is the top of the rating scale
	MaxRating = 5.0
)

// TechnicianProfile holds the marketplace listing of a technician user.
// The profile id is the owning user's id.
type TechnicianProfile struct {
	UserID         string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	Name           string    `gorm:"not null" bson:"name" json:"name"`
	ServiceType    string    `gorm:"index" bson:"service_type" json:"serviceType"`
	Location       string    `bson:"location" json:"location"`
	HourlyRate     float64   `gorm:"not null;default:0;check:hourly_rate >= 0" bson:"hourly_rate" json:"hourlyRate"`
	Rating         float64   `gorm:"not null" bson:"rating" json:"rating"`
	ReviewCount    int       `gorm:"not null;default:0" bson:"review_count" json:"reviewCount"`
	Available      bool      `gorm:"not null" bson:"available" json:"available"`
	CompletionRate *float64  `bson:"completion_rate,omitempty" json:"completionRate,omitempty"` // percentage, nil when unknown
	Bio            string    `gorm:"type:text" bson:"bio,omitempty" json:"bio,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updatedAt"`
}

// TableName specifies the table name for the TechnicianProfile model
func (TechnicianProfile) TableName() string {
	return "technician_profiles"
}

// NewTechnicianProfile returns the profile created when a technician registers
func NewTechnicianProfile(user *User, serviceType string) TechnicianProfile {
	return TechnicianProfile{
		UserID:      user.ID,
		Name:        user.Name,
		ServiceType: serviceType,
		Location:    user.Location,
		Rating:      DefaultRating,
		ReviewCount: 0,
		Available:   true,
	}
}
