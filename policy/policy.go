// Package policy decides which actor may do what to a service request.
package policy

import (
	"errors"
	"fmt"

	"github.com/homefix/homefix-api/models"
)

// Action is something an actor attempts on a service request
type Action string

const (
	ActionCreate     Action = "create"
	ActionRead       Action = "read"
	ActionCancel     Action = "cancel"
	ActionTransition Action = "transition"
	ActionAssign     Action = "assign"
	ActionDelete     Action = "delete"
	ActionMessage    Action = "message"
)

var actions = []Action{ActionRead, ActionCancel, ActionTransition, ActionAssign, ActionDelete, ActionMessage}

// Reason explains why an action was denied
type Reason string

const (
	ReasonNotOwner              Reason = "NotOwner"
	ReasonNotAssignedTechnician Reason = "NotAssignedTechnician"
	ReasonInsufficientRole      Reason = "InsufficientRole"
	ReasonUnauthenticated       Reason = "Unauthenticated"
)

// ErrDenied matches every *Denial via errors.Is
var ErrDenied = errors.New("access denied")

// Actor is the authenticated identity performing an operation
type Actor struct {
	ID   string
	Role models.Role
}

// Authenticated reports whether the actor carries a usable identity
func (a Actor) Authenticated() bool {
	return a.ID != "" && a.Role.IsValid()
}

// Denial is returned when an actor may not perform an action
type Denial struct {
	Reason Reason
	Action Action
}

func (d *Denial) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrDenied.Error(), d.Action, d.Reason)
}

func (d *Denial) Is(target error) bool {
	return target == ErrDenied
}

func deny(reason Reason, action Action) error {
	return &Denial{Reason: reason, Action: action}
}

// Authorize returns nil when actor may perform action on resource, or a
// *Denial carrying the reason. resource may be nil for ActionCreate.
func Authorize(actor Actor, resource *models.ServiceRequest, action Action) error {
	if !actor.Authenticated() {
		return deny(ReasonUnauthenticated, action)
	}

	switch actor.Role {
	case models.RoleAdmin:
		return nil

	case models.RoleClient:
		switch action {
		case ActionCreate:
			return nil
		case ActionRead, ActionCancel, ActionMessage:
			if resource == nil || resource.ClientID != actor.ID {
				return deny(ReasonNotOwner, action)
			}
			return nil
		default:
			return deny(ReasonInsufficientRole, action)
		}

	case models.RoleTechnician:
		switch action {
		case ActionRead, ActionTransition, ActionMessage:
			if resource == nil || !resource.IsAssignedTo(actor.ID) {
				return deny(ReasonNotAssignedTechnician, action)
			}
			return nil
		default:
			return deny(ReasonInsufficientRole, action)
		}
	}

	return deny(ReasonInsufficientRole, action)
}

// AuthorizeAdmin guards resources that only admins manage (user and
// technician listings, deletion, stats).
func AuthorizeAdmin(actor Actor, action Action) error {
	if !actor.Authenticated() {
		return deny(ReasonUnauthenticated, action)
	}
	if actor.Role != models.RoleAdmin {
		return deny(ReasonInsufficientRole, action)
	}
	return nil
}

// ActionForTarget maps a requested status change to the action the policy
// evaluates. Clients cancel; everyone else transitions.
func ActionForTarget(actor Actor, target models.Status) Action {
	if actor.Role == models.RoleClient && target == models.StatusCancelled {
		return ActionCancel
	}
	return ActionTransition
}

// AllowedActions lists the actions actor may perform on resource
func AllowedActions(actor Actor, resource *models.ServiceRequest) []Action {
	allowed := []Action{}
	for _, action := range actions {
		if Authorize(actor, resource, action) == nil {
			allowed = append(allowed, action)
		}
	}
	return allowed
}

// Scope is the visibility filter for listing requests on behalf of an actor.
// Empty fields match everything.
type Scope struct {
	ClientID     string
	TechnicianID string
}

// ScopeFor returns the set of requests actor may list
func ScopeFor(actor Actor) (Scope, error) {
	if !actor.Authenticated() {
		return Scope{}, deny(ReasonUnauthenticated, ActionRead)
	}
	switch actor.Role {
	case models.RoleClient:
		return Scope{ClientID: actor.ID}, nil
	case models.RoleTechnician:
		return Scope{TechnicianID: actor.ID}, nil
	case models.RoleAdmin:
		return Scope{}, nil
	}
	return Scope{}, deny(ReasonInsufficientRole, ActionRead)
}

// Visible reports whether resource falls inside scope
func (s Scope) Visible(resource *models.ServiceRequest) bool {
	if s.ClientID != "" && resource.ClientID != s.ClientID {
		return false
	}
	if s.TechnicianID != "" && !resource.IsAssignedTo(s.TechnicianID) {
		return false
	}
	return true
}
