package models

import (
	"time"
)

// Role identifies what an account is allowed to do in the marketplace
type Role string

const (
	RoleClient     Role = "client"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RoleTechnician, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole normalizes a role name coming from a client. The web app registers
// customers as "user", which is accepted as an alias for client.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "user", "customer", string(RoleClient):
		return RoleClient, true
	case string(RoleTechnician):
		return RoleTechnician, true
	case string(RoleAdmin):
		return RoleAdmin, true
	}
	return "", false
}

// User represents an account in the system (client, technician or admin)
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	Name         string    `gorm:"not null" bson:"name" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" bson:"email" json:"email"`
	PasswordHash string    `gorm:"not null" bson:"password_hash" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'client';index" bson:"role" json:"role"`
	Phone        string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Location     string    `bson:"location,omitempty" json:"location,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
