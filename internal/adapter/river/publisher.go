package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/mautichost/provisiond/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// ProvisioningEventArgs carries a provisioning event to async consumers.
// River serializes this as JSON into its job queue table. It includes a
// snapshot of the tenant at publish time, so the worker never needs to
// query the database. Credentials are deliberately excluded.
type ProvisioningEventArgs struct {
	EventType     string `json:"event_type"`
	Message       string `json:"message"`
	TenantID      string `json:"tenant_id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Domain        string `json:"domain"`
	StackName     string `json:"stack_name"`
	MauticVersion string `json:"mautic_version"`
	Status        string `json:"status"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (ProvisioningEventArgs) Kind() string { return "tenant.provisioning_event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a provisioning event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, eventType domain.EventType, tenant domain.Tenant, message string) error {
	_, err := p.client.Insert(ctx, ProvisioningEventArgs{
		EventType:     string(eventType),
		Message:       message,
		TenantID:      tenant.ID,
		Name:          tenant.Name,
		Slug:          tenant.Slug,
		Domain:        tenant.Domain,
		StackName:     tenant.StackName,
		MauticVersion: tenant.MauticVersion,
		Status:        string(tenant.Status),
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing provisioning event job: %w", err)
	}
	return nil
}
