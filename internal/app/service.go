// Package app holds the provisioning orchestrator: the state machine that
// takes a tenant request from validation through stack submission to its
// terminal active or error state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mautichost/provisiond/internal/compose"
	"github.com/mautichost/provisiond/internal/domain"
	"github.com/mautichost/provisiond/internal/naming"
	"github.com/mautichost/provisiond/internal/secrets"
)

// Config carries the stack parameters resolved once at process start.
type Config struct {
	TraefikNetwork       string
	CertResolver         string
	DefaultMauticVersion string
}

// ProvisioningService orchestrates tenant provisioning. Each call runs one
// sequential pipeline: validate, check uniqueness, persist pending, render
// the descriptor, submit it, then apply the terminal transition. Pipelines
// for different tenants are independent; the only shared resource is the
// slug/domain namespace, guarded by the store's unique constraints.
type ProvisioningService struct {
	tenants   domain.TenantRepository
	events    domain.EventRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	stacks    domain.StackSubmitter
	cfg       Config
}

// NewProvisioningService creates a service with the given adapters.
func NewProvisioningService(
	tenants domain.TenantRepository,
	events domain.EventRepository,
	publisher domain.EventPublisher,
	validator domain.TransitionValidator,
	stacks domain.StackSubmitter,
	cfg Config,
) *ProvisioningService {
	return &ProvisioningService{
		tenants:   tenants,
		events:    events,
		publisher: publisher,
		validator: validator,
		stacks:    stacks,
		cfg:       cfg,
	}
}

// ProvisionRequest is the caller's input for a new tenant.
type ProvisionRequest struct {
	Name          string
	Domain        string
	MauticVersion string
}

// Provision runs the full pipeline for one tenant.
//
// Failures before the pending record is persisted (validation, conflicts)
// leave no trace and return a zero tenant. Failures after persistence
// transition the tenant to its error state and return it inside a
// *domain.ProvisionError, so callers can show the record alongside the
// failure. The tenant is never left pending once the pipeline has finished.
func (s *ProvisioningService) Provision(ctx context.Context, req ProvisionRequest) (domain.Tenant, error) {
	if req.Name == "" {
		return domain.Tenant{}, &domain.ValidationError{Field: "name", Reason: "name is required"}
	}
	if req.Domain == "" {
		return domain.Tenant{}, &domain.ValidationError{Field: "domain", Reason: "domain is required"}
	}
	if !naming.ValidateDomain(req.Domain) {
		return domain.Tenant{}, &domain.ValidationError{
			Field:  "domain",
			Reason: "use only letters, numbers, hyphens, and dots",
		}
	}

	slug := naming.Slugify(req.Name)
	if slug == "" {
		return domain.Tenant{}, &domain.ValidationError{Field: "name", Reason: "name must contain letters or digits"}
	}

	// Friendly fast path; the unique constraints on the store close the
	// race between concurrent requests for the same name or domain.
	if _, err := s.tenants.GetBySlug(ctx, slug); err == nil {
		return domain.Tenant{}, &domain.ConflictError{Field: "slug", Value: slug}
	}
	if _, err := s.tenants.GetByDomain(ctx, req.Domain); err == nil {
		return domain.Tenant{}, &domain.ConflictError{Field: "domain", Value: req.Domain}
	}

	dbPassword, err := secrets.Generate(32)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("generating database password: %w", err)
	}
	dbRootPassword, err := secrets.Generate(32)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("generating database root password: %w", err)
	}

	id, err := generateID()
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("generating tenant id: %w", err)
	}

	version := req.MauticVersion
	if version == "" {
		version = s.cfg.DefaultMauticVersion
	}

	tenant := domain.NewTenant(
		id,
		req.Name,
		slug,
		req.Domain,
		naming.StackName(slug),
		naming.DBName(slug),
		naming.DBUser(slug),
		dbPassword,
		version,
	)

	if err := s.tenants.Create(ctx, tenant); err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			return domain.Tenant{}, conflict
		}
		return domain.Tenant{}, fmt.Errorf("creating tenant: %w", err)
	}

	s.record(ctx, tenant, domain.EventTypeProvisionRequested,
		fmt.Sprintf("Tenant provisioning requested for %s", tenant.Name))

	descriptor, err := compose.Render(compose.StackConfig{
		StackName:      tenant.StackName,
		Domain:         tenant.Domain,
		DBName:         tenant.DBName,
		DBUser:         tenant.DBUser,
		DBPassword:     dbPassword,
		DBRootPassword: dbRootPassword,
		MauticVersion:  version,
		TraefikNetwork: s.cfg.TraefikNetwork,
		CertResolver:   s.cfg.CertResolver,
	})
	if err != nil {
		return s.fail(ctx, tenant, err)
	}

	if _, err := s.stacks.CreateStack(ctx, tenant.StackName, descriptor); err != nil {
		return s.fail(ctx, tenant, err)
	}

	return s.activate(ctx, tenant)
}

// activate applies the terminal success transition and records the event.
func (s *ProvisioningService) activate(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error) {
	status, err := s.validator.Apply(ctx, tenant.Status, domain.EventStackCreated)
	if err != nil {
		return s.fail(ctx, tenant, err)
	}
	tenant.Status = status

	if err := s.tenants.Update(ctx, tenant); err != nil {
		return tenant, fmt.Errorf("activating tenant: %w", err)
	}

	s.record(ctx, tenant, domain.EventTypeStackCreated,
		fmt.Sprintf("Stack %s successfully created in Portainer", tenant.StackName))

	return tenant, nil
}

// fail applies the terminal error transition, records the cause and returns
// the persisted tenant wrapped in a ProvisionError.
func (s *ProvisioningService) fail(ctx context.Context, tenant domain.Tenant, cause error) (domain.Tenant, error) {
	message := "unknown error creating stack"
	if cause != nil && cause.Error() != "" {
		message = cause.Error()
	}

	status, err := s.validator.Apply(ctx, tenant.Status, domain.EventProvisionFailed)
	if err != nil {
		// The transition table only rejects this if the tenant already
		// reached a terminal state; keep the original cause either way.
		slog.ErrorContext(ctx, "error transition rejected", "tenant_id", tenant.ID, "error", err)
		status = domain.StatusError
	}
	tenant.Status = status
	tenant.ErrorMessage = message

	if err := s.tenants.Update(ctx, tenant); err != nil {
		slog.ErrorContext(ctx, "persisting error state", "tenant_id", tenant.ID, "error", err)
	}

	s.record(ctx, tenant, domain.EventTypeError,
		fmt.Sprintf("Failed to create stack: %s", message))

	return tenant, &domain.ProvisionError{Tenant: tenant, Err: cause}
}

// record appends the audit event and fans it out to async consumers. The
// appended row is the durable record; a failed fan-out is logged only.
func (s *ProvisioningService) record(ctx context.Context, tenant domain.Tenant, eventType domain.EventType, message string) {
	event := domain.NewTenantEvent(tenant.ID, eventType, message)
	if err := s.events.Append(ctx, event); err != nil {
		slog.ErrorContext(ctx, "appending tenant event",
			"tenant_id", tenant.ID, "event_type", string(eventType), "error", err)
	}
	if err := s.publisher.Publish(ctx, eventType, tenant, message); err != nil {
		slog.WarnContext(ctx, "publishing tenant event",
			"tenant_id", tenant.ID, "event_type", string(eventType), "error", err)
	}
}

// GetByID returns a tenant with its audit trail, newest event first.
func (s *ProvisioningService) GetByID(ctx context.Context, id string) (domain.Tenant, []domain.TenantEvent, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, nil, err
	}

	events, err := s.events.ListByTenant(ctx, id)
	if err != nil {
		return domain.Tenant{}, nil, fmt.Errorf("loading tenant events: %w", err)
	}

	return tenant, events, nil
}

// List returns tenants matching the given filter, newest first.
func (s *ProvisioningService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	return s.tenants.List(ctx, filter)
}

// Versions returns the deployable Mautic versions, newest first.
func (s *ProvisioningService) Versions() []string {
	return compose.AvailableMauticVersions()
}
