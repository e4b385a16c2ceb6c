package services

import (
	"context"
	"errors"
	"strings"

	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/policy"
	"github.com/homefix/homefix-api/store"
	"go.uber.org/zap"
)

// Profile is the signed-in user plus, for technicians, their marketplace listing
type Profile struct {
	User       *models.User              `json:"user"`
	Technician *models.TechnicianProfile `json:"technician,omitempty"`
}

// ProfileUpdate lists editable profile fields. Nil fields are left untouched;
// the technician fields are only accepted from technicians.
type ProfileUpdate struct {
	Name        *string  `json:"name"`
	Phone       *string  `json:"phone"`
	Location    *string  `json:"location"`
	ServiceType *string  `json:"serviceType"`
	HourlyRate  *float64 `json:"hourlyRate"`
	Available   *bool    `json:"available"`
	Bio         *string  `json:"bio"`
}

func (u ProfileUpdate) hasTechnicianFields() bool {
	return u.ServiceType != nil || u.HourlyRate != nil || u.Available != nil || u.Bio != nil
}

// UserService manages the signed-in user's profile and the admin user list
type UserService struct {
	store  store.Store
	logger *zap.Logger
}

// NewUserService creates a user service
func NewUserService(s store.Store, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{store: s, logger: logger}
}

// GetProfile returns actor's account and technician profile
func (s *UserService) GetProfile(ctx context.Context, actor policy.Actor) (*Profile, error) {
	if err := requireActor(actor, policy.ActionRead); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, actor.ID)
	if err != nil {
		return nil, fromStore(err, "user", "failed to load user")
	}

	profile := &Profile{User: user}
	if user.Role == models.RoleTechnician {
		tech, err := s.store.GetTechnician(ctx, user.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, persistenceError("failed to load technician profile", err)
		}
		profile.Technician = tech
	}
	return profile, nil
}

// UpdateProfile edits actor's own account. Name and location changes are
// copied onto the technician listing.
func (s *UserService) UpdateProfile(ctx context.Context, actor policy.Actor, update ProfileUpdate) (*Profile, error) {
	if err := requireActor(actor, policy.ActionRead); err != nil {
		return nil, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, validationError("name cannot be empty", map[string]interface{}{"fields": []string{"name"}})
		}
		update.Name = &name
	}
	if update.hasTechnicianFields() && actor.Role != models.RoleTechnician {
		return nil, validationError("only technicians have service details", nil)
	}
	if update.HourlyRate != nil && *update.HourlyRate < 0 {
		return nil, validationError("hourlyRate cannot be negative", map[string]interface{}{"fields": []string{"hourlyRate"}})
	}

	userPatch := store.UserPatch{Name: update.Name, Phone: update.Phone, Location: update.Location}
	user, err := s.store.UpdateUser(ctx, actor.ID, userPatch)
	if err != nil {
		return nil, fromStore(err, "user", "failed to update user")
	}

	profile := &Profile{User: user}
	if actor.Role == models.RoleTechnician {
		techPatch := store.TechnicianPatch{
			Name:        update.Name,
			ServiceType: update.ServiceType,
			Location:    update.Location,
			HourlyRate:  update.HourlyRate,
			Available:   update.Available,
			Bio:         update.Bio,
		}
		tech, err := s.store.UpdateTechnician(ctx, actor.ID, techPatch)
		if err != nil {
			return nil, fromStore(err, "technician", "failed to update technician profile")
		}
		profile.Technician = tech
	}
	return profile, nil
}

// ListUsers returns every account, optionally narrowed to one role (admin only)
func (s *UserService) ListUsers(ctx context.Context, actor policy.Actor, role models.Role) ([]models.User, error) {
	if err := policy.AuthorizeAdmin(actor, policy.ActionRead); err != nil {
		return nil, fromDenial(err)
	}
	if role != "" && !role.IsValid() {
		return nil, validationError("unknown role filter", map[string]interface{}{"role": role})
	}
	users, err := s.store.ListUsers(ctx, store.UserFilter{Role: role})
	if err != nil {
		return nil, persistenceError("failed to list users", err)
	}
	return users, nil
}

// DeleteUser removes an account and its technician profile (admin only).
// Admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, actor policy.Actor, id string) error {
	if err := policy.AuthorizeAdmin(actor, policy.ActionDelete); err != nil {
		return fromDenial(err)
	}
	if id == actor.ID {
		return validationError("admins cannot delete their own account", nil)
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return fromStore(err, "user", "failed to load user")
	}
	if user.Role == models.RoleTechnician {
		if err := s.store.DeleteTechnician(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return persistenceError("failed to delete technician profile", err)
		}
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return fromStore(err, "user", "failed to delete user")
	}

	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("actor_id", actor.ID))
	return nil
}
