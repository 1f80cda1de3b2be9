package rental

import (
	"strings"
	"time"

	"rentals/internal/domain/shared/failure"
)

var (
	ErrInvalidTransition = failure.New(failure.InvalidStateTransition, "rental: transition not allowed")
	ErrRequestExpired    = failure.New(failure.InvalidStateTransition, "rental: request expired before it was confirmed")
	ErrNotParticipant    = failure.New(failure.Unauthorized, "rental: actor is neither owner nor renter")
	ErrRoleNotAllowed    = failure.New(failure.Unauthorized, "rental: actor is not allowed to perform this transition")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusActive, StatusCompleted, StatusCancelled}

func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range AllStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

// Blocking statuses hold their period on the item calendar.
func (s Status) Blocking() bool {
	return s != StatusCancelled && s != StatusCompleted
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type Role string

const (
	RoleOwner  Role = "owner"
	RoleRenter Role = "renter"
)

type transition struct {
	roles []Role
	guard func(r *Rental, now time.Time) error
}

var transitions = map[Status]map[Status]transition{
	StatusPending: {
		StatusConfirmed: {roles: []Role{RoleOwner}, guard: notExpired},
		StatusCancelled: {roles: []Role{RoleOwner, RoleRenter}},
	},
	StatusConfirmed: {
		StatusActive:    {roles: []Role{RoleOwner}},
		StatusCancelled: {roles: []Role{RoleOwner, RoleRenter}},
	},
	StatusActive: {
		StatusCompleted: {roles: []Role{RoleRenter, RoleOwner}},
	},
}

func notExpired(r *Rental, now time.Time) error {
	if !now.Before(r.Period.Start) {
		return ErrRequestExpired
	}
	return nil
}

// RoleOf resolves the actor's role on the rental. An owner renting from
// themselves is impossible, so the owner check wins.
func (r *Rental) RoleOf(actorID string) (Role, bool) {
	switch {
	case actorID == "":
		return "", false
	case actorID == r.OwnerID:
		return RoleOwner, true
	case actorID == r.RenterID:
		return RoleRenter, true
	default:
		return "", false
	}
}

// Allowed reports whether from -> to is present in the transition table.
func Allowed(from, to Status) bool {
	_, ok := transitions[from][to]
	return ok
}

// CheckTransition validates a transition without applying it.
func CheckTransition(r *Rental, target Status, actorID string, now time.Time) error {
	role, ok := r.RoleOf(actorID)
	if !ok {
		return ErrNotParticipant
	}
	t, ok := transitions[r.Status][target]
	if !ok {
		return failure.Wrap(failure.InvalidStateTransition, "rental: cannot move from "+string(r.Status)+" to "+string(target), ErrInvalidTransition)
	}
	if !hasRole(t.roles, role) {
		return ErrRoleNotAllowed
	}
	if t.guard != nil {
		return t.guard(r, now)
	}
	return nil
}

func hasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
