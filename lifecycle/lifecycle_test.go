package lifecycle

import (
	"errors"
	"testing"

	"github.com/homefix/homefix-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roles = []models.Role{models.RoleClient, models.RoleTechnician, models.RoleAdmin}

type edge struct {
	from models.Status
	role models.Role
	to   models.Status
}

// permitted is the full list of allowed (from, role, to) triples
var permitted = map[edge]bool{
	{models.StatusPending, models.RoleTechnician, models.StatusAccepted}:     true,
	{models.StatusPending, models.RoleClient, models.StatusCancelled}:        true,
	{models.StatusAccepted, models.RoleTechnician, models.StatusInProgress}:  true,
	{models.StatusAccepted, models.RoleTechnician, models.StatusCompleted}:   true,
	{models.StatusInProgress, models.RoleTechnician, models.StatusCompleted}: true,
	{models.StatusPending, models.RoleAdmin, models.StatusCancelled}:         true,
	{models.StatusAccepted, models.RoleAdmin, models.StatusCancelled}:        true,
	{models.StatusInProgress, models.RoleAdmin, models.StatusCancelled}:      true,
}

func TestTransition_FullMatrix(t *testing.T) {
	for _, from := range models.Statuses {
		for _, role := range roles {
			for _, to := range models.Statuses {
				e := edge{from, role, to}
				name := string(from) + "/" + string(role) + "/" + string(to)
				t.Run(name, func(t *testing.T) {
					got, err := Transition(from, role, to)
					if permitted[e] {
						require.NoError(t, err)
						assert.Equal(t, to, got)
						return
					}

					require.Error(t, err)
					assert.Equal(t, from, got, "rejected transition keeps the current status")

					var terr *TransitionError
					require.True(t, errors.As(err, &terr))
					if from.IsTerminal() {
						assert.ErrorIs(t, err, ErrTerminalState)
						assert.True(t, terr.Terminal())
					} else {
						assert.ErrorIs(t, err, ErrInvalidTransition)
						assert.False(t, terr.Terminal())
					}
				})
			}
		}
	}
}

func TestTransition_TerminalAlwaysRejects(t *testing.T) {
	for _, from := range []models.Status{models.StatusCompleted, models.StatusCancelled} {
		for _, role := range roles {
			for _, to := range models.Statuses {
				_, err := Transition(from, role, to)
				assert.ErrorIs(t, err, ErrTerminalState)
			}
		}
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	_, err := Transition(models.StatusPending, models.RoleTechnician, models.Status("shipped"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Transition(models.Status("draft"), models.RoleAdmin, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Transition(models.StatusPending, models.Role(""), models.StatusAccepted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionError_Message(t *testing.T) {
	_, err := Transition(models.StatusAccepted, models.RoleClient, models.StatusCompleted)
	require.Error(t, err)
	assert.Equal(t, "invalid status transition: accepted -> completed by client", err.Error())
}

func TestAllowedTargets(t *testing.T) {
	tests := []struct {
		name    string
		current models.Status
		role    models.Role
		want    []models.Status
	}{
		{"technician from pending", models.StatusPending, models.RoleTechnician, []models.Status{models.StatusAccepted}},
		{"client from pending", models.StatusPending, models.RoleClient, []models.Status{models.StatusCancelled}},
		{"technician from accepted", models.StatusAccepted, models.RoleTechnician, []models.Status{models.StatusInProgress, models.StatusCompleted}},
		{"client from accepted", models.StatusAccepted, models.RoleClient, []models.Status{}},
		{"admin from in-progress", models.StatusInProgress, models.RoleAdmin, []models.Status{models.StatusCancelled}},
		{"technician from completed", models.StatusCompleted, models.RoleTechnician, []models.Status{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AllowedTargets(tt.current, tt.role))
		})
	}
}
