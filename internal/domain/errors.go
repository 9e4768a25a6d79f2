package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrTenantNotFound = errors.New("tenant not found")
)

// ValidationError is returned when a provisioning request is malformed.
// No state has been touched when this is raised.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError is returned when a tenant already claims the requested
// slug or domain. Field names the violated uniqueness constraint.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q is already in use", e.Field, e.Value)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// ProvisionError is returned when the remote stack creation fails after the
// tenant record has been persisted. It carries the terminal error-state
// tenant so callers can distinguish "nothing was created" from "tenant
// exists but provisioning failed".
type ProvisionError struct {
	Tenant Tenant
	Err    error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning tenant %q: %v", e.Tenant.Slug, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}
