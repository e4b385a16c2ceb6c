package services

import (
	"context"
	"testing"

	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/policy"
	"github.com/homefix/homefix-api/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGetProfile(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewUserService(s, nil)
	client := seedUser(t, s, "alice", models.RoleClient)
	tech := seedUser(t, s, "tom", models.RoleTechnician)

	profile, err := svc.GetProfile(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.User.Email)
	assert.Nil(t, profile.Technician)

	profile, err = svc.GetProfile(context.Background(), tech)
	require.NoError(t, err)
	require.NotNil(t, profile.Technician)
	assert.Equal(t, "Plumbing", profile.Technician.ServiceType)

	_, err = svc.GetProfile(context.Background(), policy.Actor{})
	requireKind(t, err, KindUnauthenticated)

	_, err = svc.GetProfile(context.Background(), policy.Actor{ID: "ghost", Role: models.RoleClient})
	requireKind(t, err, KindNotFound)
}

func TestUpdateProfile_Client(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewUserService(s, nil)
	client := seedUser(t, s, "alice", models.RoleClient)

	profile, err := svc.UpdateProfile(context.Background(), client, ProfileUpdate{
		Name:  strPtr("  Alice Smith "),
		Phone: strPtr("555-0100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", profile.User.Name)
	assert.Equal(t, "555-0100", profile.User.Phone)
	assert.Equal(t, "Springfield", profile.User.Location)

	_, err = svc.UpdateProfile(context.Background(), client, ProfileUpdate{ServiceType: strPtr("Plumbing")})
	requireKind(t, err, KindValidation)

	_, err = svc.UpdateProfile(context.Background(), client, ProfileUpdate{Name: strPtr(" ")})
	requireKind(t, err, KindValidation)
}

func TestUpdateProfile_TechnicianSyncsListing(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewUserService(s, nil)
	tech := seedUser(t, s, "tom", models.RoleTechnician)

	rate := 65.0
	unavailable := false
	profile, err := svc.UpdateProfile(context.Background(), tech, ProfileUpdate{
		Name:       strPtr("Tom the Plumber"),
		Location:   strPtr("Shelbyville"),
		HourlyRate: &rate,
		Available:  &unavailable,
		Bio:        strPtr("20 years of pipes"),
	})
	require.NoError(t, err)
	require.NotNil(t, profile.Technician)

	assert.Equal(t, "Tom the Plumber", profile.User.Name)
	assert.Equal(t, "Tom the Plumber", profile.Technician.Name)
	assert.Equal(t, "Shelbyville", profile.Technician.Location)
	assert.Equal(t, 65.0, profile.Technician.HourlyRate)
	assert.False(t, profile.Technician.Available)
	assert.Equal(t, "20 years of pipes", profile.Technician.Bio)

	negative := -1.0
	_, err = svc.UpdateProfile(context.Background(), tech, ProfileUpdate{HourlyRate: &negative})
	requireKind(t, err, KindValidation)
}

func TestListAndDeleteUsers(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewUserService(s, nil)
	admin := seedUser(t, s, "root", models.RoleAdmin)
	client := seedUser(t, s, "alice", models.RoleClient)
	tech := seedUser(t, s, "tom", models.RoleTechnician)

	_, err := svc.ListUsers(context.Background(), client, "")
	svcErr := requireKind(t, err, KindForbidden)
	assert.Equal(t, policy.ReasonInsufficientRole, svcErr.Reason)

	users, err := svc.ListUsers(context.Background(), admin, "")
	require.NoError(t, err)
	assert.Len(t, users, 3)

	techs, err := svc.ListUsers(context.Background(), admin, models.RoleTechnician)
	require.NoError(t, err)
	require.Len(t, techs, 1)
	assert.Equal(t, tech.ID, techs[0].ID)

	_, err = svc.ListUsers(context.Background(), admin, "owner")
	requireKind(t, err, KindValidation)

	requireKind(t, svc.DeleteUser(context.Background(), admin, admin.ID), KindValidation)
	requireKind(t, svc.DeleteUser(context.Background(), client, tech.ID), KindForbidden)

	require.NoError(t, svc.DeleteUser(context.Background(), admin, tech.ID))
	_, err = s.GetTechnician(context.Background(), tech.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "technician profile removed with the account")

	requireKind(t, svc.DeleteUser(context.Background(), admin, tech.ID), KindNotFound)
}
