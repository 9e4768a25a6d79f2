package domain

import "context"

// TenantRepository defines the persistence contract for tenants.
// Create must enforce slug and domain uniqueness and return a
// ConflictError when either is already taken.
type TenantRepository interface {
	Create(ctx context.Context, tenant Tenant) error
	GetByID(ctx context.Context, id string) (Tenant, error)
	GetBySlug(ctx context.Context, slug string) (Tenant, error)
	GetByDomain(ctx context.Context, domain string) (Tenant, error)
	List(ctx context.Context, filter ListFilter) ([]Tenant, error)
	Update(ctx context.Context, tenant Tenant) error
}

// ListFilter holds optional criteria for listing tenants.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// EventRepository defines the persistence contract for the append-only
// audit trail. The provisioning service is the sole writer.
type EventRepository interface {
	Append(ctx context.Context, event TenantEvent) error
	ListByTenant(ctx context.Context, tenantID string) ([]TenantEvent, error)
}

// EventPublisher defines the contract for fanning provisioning events out
// to asynchronous consumers. Publishing is best-effort; the audit trail in
// the EventRepository is the durable record.
type EventPublisher interface {
	Publish(ctx context.Context, eventType EventType, tenant Tenant, message string) error
}

// StackSubmitter defines the contract with the orchestration control plane.
// GetStack reports absence as a nil stack, not an error. Implementations do
// not retry; retry policy belongs to the caller.
type StackSubmitter interface {
	CreateStack(ctx context.Context, name, descriptor string) (Stack, error)
	GetStack(ctx context.Context, name string) (*Stack, error)
	DeleteStack(ctx context.Context, id int64) error
}

// TransitionValidator checks lifecycle transitions against the domain
// transition table and returns the destination status.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}
