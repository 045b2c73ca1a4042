package service

import (
	"errors"
	"fmt"

	"github.com/winefeed/winefeed-api/internal/domain"
)

// Common service errors
var (
	// ErrUnauthorized is returned when no actor context is available
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPermissionDenied is returned when the actor lacks the role an
	// operation requires
	ErrPermissionDenied = errors.New("permission denied")

	// ErrOfferLocked is returned on any mutation attempt against a locked offer
	ErrOfferLocked = errors.New("offer is locked")

	// ErrOfferAlreadyAccepted is returned when accepting an accepted offer again
	ErrOfferAlreadyAccepted = errors.New("offer already accepted")

	// ErrRequestAlreadyAccepted is returned when the offer's parent purchase
	// request already has a different accepted offer
	ErrRequestAlreadyAccepted = errors.New("purchase request already has an accepted offer")

	// ErrImporterOfRecordRequired is returned when order creation for an
	// EU-sourced supplier finds no default importer configured
	ErrImporterOfRecordRequired = errors.New("importer of record required for EU-sourced goods")

	// ErrIORMismatch is returned when linking an import case whose importer
	// does not equal the order's importer of record
	ErrIORMismatch = errors.New("import case importer does not match order importer of record")
)

// NotFoundError is raised by mutation paths against a missing entity. Read
// paths return an explicit absent result instead.
type NotFoundError struct {
	Entity string
	Err    error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s not found: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("%s not found", e.Entity)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// StateConflictError is returned when an operation arrives at the wrong time:
// the entity exists but its current state forbids the mutation. It names the
// current state so callers need not re-fetch.
type StateConflictError struct {
	Entity  string
	Current string
	Detail  string
}

func (e *StateConflictError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s in state %s: %s", e.Entity, e.Current, e.Detail)
	}
	return fmt.Sprintf("%s in state %s does not allow this operation", e.Entity, e.Current)
}

// InvalidTransitionError is returned for any (from, to) pair absent from the
// order transition table
type InvalidTransitionError struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// AuthorizationError is returned when the caller is the wrong party for an
// operation. "Not yours" is deliberately distinct from the state-conflict
// category ("wrong time").
type AuthorizationError struct {
	Detail string
}

func (e *AuthorizationError) Error() string {
	if e.Detail != "" {
		return "not authorized: " + e.Detail
	}
	return "not authorized"
}

// ForbiddenFieldError is returned when an offer line's enrichment payload
// carries commercial data. The check runs before any write.
type ForbiddenFieldError struct {
	Field   string
	Pattern string
}

func (e *ForbiddenFieldError) Error() string {
	return fmt.Sprintf("enrichment field %q matches forbidden pattern %q", e.Field, e.Pattern)
}
