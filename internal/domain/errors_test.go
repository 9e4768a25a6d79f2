package domain_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mautichost/provisiond/internal/domain"
)

func TestValidationError_Message(t *testing.T) {
	err := &domain.ValidationError{Field: "domain", Reason: "use only letters, numbers, hyphens, and dots"}
	if !strings.Contains(err.Error(), "domain") {
		t.Errorf("error %q should name the field", err.Error())
	}
}

func TestConflictError_Message(t *testing.T) {
	err := &domain.ConflictError{Field: "slug", Value: "acme"}
	want := `slug "acme" is already in use`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestTransitionError_Message(t *testing.T) {
	err := &domain.TransitionError{Event: domain.EventStackCreated, Current: domain.StatusError}
	if !strings.Contains(err.Error(), string(domain.EventStackCreated)) {
		t.Errorf("error %q should name the event", err.Error())
	}
	if !strings.Contains(err.Error(), string(domain.StatusError)) {
		t.Errorf("error %q should name the current state", err.Error())
	}
}

func TestProvisionError_Unwrap(t *testing.T) {
	cause := errors.New("portainer API error (500): disk full")
	err := &domain.ProvisionError{
		Tenant: domain.Tenant{Slug: "acme"},
		Err:    cause,
	}

	if !errors.Is(err, cause) {
		t.Error("ProvisionError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "acme") {
		t.Errorf("error %q should name the tenant", err.Error())
	}

	wrapped := fmt.Errorf("handling request: %w", err)
	var provisionErr *domain.ProvisionError
	if !errors.As(wrapped, &provisionErr) {
		t.Error("ProvisionError should be extractable from a wrapped chain")
	}
	if provisionErr.Tenant.Slug != "acme" {
		t.Errorf("extracted tenant slug = %q, want acme", provisionErr.Tenant.Slug)
	}
}
