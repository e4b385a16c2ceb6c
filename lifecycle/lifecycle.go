// Package lifecycle defines which status changes a service request may go
// through and which role may trigger each of them.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/homefix/homefix-api/models"
)

var (
	// ErrInvalidTransition is returned for any edge that is not in the table
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTerminalState is returned when the current status is completed or cancelled
	ErrTerminalState = errors.New("request is in a terminal state")
)

// edges maps from -> to -> roles permitted to take that edge.
// Admin cancellation of any non-terminal status is handled separately.
var edges = map[models.Status]map[models.Status][]models.Role{
	models.StatusPending: {
		models.StatusAccepted:  {models.RoleTechnician},
		models.StatusCancelled: {models.RoleClient},
	},
	models.StatusAccepted: {
		models.StatusInProgress: {models.RoleTechnician},
		models.StatusCompleted:  {models.RoleTechnician},
	},
	models.StatusInProgress: {
		models.StatusCompleted: {models.RoleTechnician},
	},
}

// TransitionError describes a rejected transition
type TransitionError struct {
	From models.Status
	To   models.Status
	Role models.Role
	err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s by %s", e.err.Error(), e.From, e.To, e.Role)
}

func (e *TransitionError) Unwrap() error {
	return e.err
}

// Terminal reports whether the rejection was caused by a terminal current status
func (e *TransitionError) Terminal() bool {
	return errors.Is(e.err, ErrTerminalState)
}

// Transition returns the new status when role may move a request from current
// to target, or a *TransitionError otherwise.
func Transition(current models.Status, role models.Role, target models.Status) (models.Status, error) {
	if current.IsTerminal() {
		return current, &TransitionError{From: current, To: target, Role: role, err: ErrTerminalState}
	}
	if !current.IsValid() || !target.IsValid() {
		return current, &TransitionError{From: current, To: target, Role: role, err: ErrInvalidTransition}
	}
	if allowed(current, role, target) {
		return target, nil
	}
	return current, &TransitionError{From: current, To: target, Role: role, err: ErrInvalidTransition}
}

// AllowedTargets lists the statuses role may move a request to from current,
// in lifecycle order.
func AllowedTargets(current models.Status, role models.Role) []models.Status {
	targets := []models.Status{}
	if current.IsTerminal() || !current.IsValid() {
		return targets
	}
	for _, target := range models.Statuses {
		if allowed(current, role, target) {
			targets = append(targets, target)
		}
	}
	return targets
}

// IsTerminal reports whether no transition can leave status
func IsTerminal(status models.Status) bool {
	return status.IsTerminal()
}

func allowed(current models.Status, role models.Role, target models.Status) bool {
	if role == models.RoleAdmin && target == models.StatusCancelled {
		return true
	}
	for _, r := range edges[current][target] {
		if r == role {
			return true
		}
	}
	return false
}
