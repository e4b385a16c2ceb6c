package services

import (
	"errors"
	"fmt"

	"github.com/homefix/homefix-api/lifecycle"
	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/policy"
	"github.com/homefix/homefix-api/store"
)

// Kind classifies a service failure. The transport maps each kind to one
// status code and message.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindUnauthenticated   Kind = "unauthenticated"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInvalidTransition Kind = "invalid_transition"
	KindTerminalState     Kind = "terminal_state"
	KindPersistence       Kind = "persistence"
)

// Error is returned by every service operation that fails
type Error struct {
	Kind Kind
	// Reason is the policy reason code for KindForbidden
	Reason policy.Reason
	// Resource names what was missing for KindNotFound (request, user, technician)
	Resource string
	Message  string
	Details  map[string]interface{}
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: KindNotFound}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether repeating the whole operation may succeed
func (e *Error) Retryable() bool {
	return e.Kind == KindPersistence
}

// KindOf returns the kind of a service error, or "" for anything else
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}

func validationError(message string, details map[string]interface{}) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func notFoundError(resource string) *Error {
	return &Error{Kind: KindNotFound, Resource: resource, Message: resource + " not found", Err: store.ErrNotFound}
}

func persistenceError(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: op, Err: err}
}

// fromDenial turns a policy denial into Forbidden or Unauthenticated
func fromDenial(err error) *Error {
	var denial *policy.Denial
	if !errors.As(err, &denial) {
		return persistenceError("authorization failed", err)
	}
	if denial.Reason == policy.ReasonUnauthenticated {
		return &Error{Kind: KindUnauthenticated, Reason: denial.Reason, Message: "authentication required", Err: err}
	}
	return &Error{
		Kind:    KindForbidden,
		Reason:  denial.Reason,
		Message: fmt.Sprintf("not allowed to %s this request", denial.Action),
		Details: map[string]interface{}{"reason": denial.Reason},
		Err:     err,
	}
}

// fromTransition turns a status machine rejection into InvalidTransition or TerminalState
func fromTransition(err error, role models.Role) *Error {
	var te *lifecycle.TransitionError
	if !errors.As(err, &te) {
		return persistenceError("status transition failed", err)
	}
	details := transitionDetails(te.From, te.To, role)
	if te.Terminal() {
		return &Error{
			Kind:    KindTerminalState,
			Message: fmt.Sprintf("request is already %s", te.From),
			Details: details,
			Err:     err,
		}
	}
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot change status from %s to %s", te.From, te.To),
		Details: details,
		Err:     err,
	}
}

func transitionDetails(current, requested models.Status, role models.Role) map[string]interface{} {
	return map[string]interface{}{
		"current_status":   current,
		"requested_status": requested,
		"allowed_statuses": lifecycle.AllowedTargets(current, role),
	}
}

// fromStore maps store sentinels; anything unknown is a persistence failure
func fromStore(err error, resource, op string) *Error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFoundError(resource)
	default:
		return persistenceError(op, err)
	}
}

// requireActor rejects anonymous callers before any store access
func requireActor(actor policy.Actor, action policy.Action) error {
	if actor.Authenticated() {
		return nil
	}
	return fromDenial(policy.Authorize(actor, nil, action))
}
