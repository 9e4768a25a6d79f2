package domain

import "time"

// Status represents the lifecycle state of a tenant.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusError   Status = "error"
)

// Event represents an action that triggers a state transition.
type Event string

const (
	EventStackCreated    Event = "stack_created"
	EventProvisionFailed Event = "provision_failed"
)

// Transition defines a valid state change: an event moves a tenant from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in a provisioning attempt.
// Pending is the only initial state; active and error are both terminal,
// so a finished attempt can never move backwards.
var Transitions = []Transition{
	{Event: EventStackCreated, Src: StatusPending, Dst: StatusActive},
	{Event: EventProvisionFailed, Src: StatusPending, Dst: StatusError},
}

// Tenant is the core domain entity: one provisioned Mautic instance with its
// own database and ingress hostname.
type Tenant struct {
	ID            string
	Name          string
	Slug          string
	Domain        string
	StackName     string
	DBName        string
	DBUser        string
	DBPassword    string
	MauticVersion string
	Status        Status
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewTenant creates a tenant in the initial "pending" state. The identifier
// fields (slug, stack name, database name/user) are derived from the display
// name before this call and never mutated afterwards.
func NewTenant(id, name, slug, dom, stackName, dbName, dbUser, dbPassword, mauticVersion string) Tenant {
	now := time.Now().UTC()
	return Tenant{
		ID:            id,
		Name:          name,
		Slug:          slug,
		Domain:        dom,
		StackName:     stackName,
		DBName:        dbName,
		DBUser:        dbUser,
		DBPassword:    dbPassword,
		MauticVersion: mauticVersion,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// EventType classifies an audit trail entry.
type EventType string

const (
	EventTypeProvisionRequested EventType = "PROVISION_REQUESTED"
	EventTypeStackCreated       EventType = "STACK_CREATED"
	EventTypeError              EventType = "ERROR"
)

// TenantEvent is an append-only audit record. Events are immutable once
// written and ordered by creation time.
type TenantEvent struct {
	ID        int64
	TenantID  string
	Type      EventType
	Message   string
	CreatedAt time.Time
}

// NewTenantEvent creates an audit record for the given tenant.
func NewTenantEvent(tenantID string, eventType EventType, message string) TenantEvent {
	return TenantEvent{
		TenantID:  tenantID,
		Type:      eventType,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// Stack is a handle to a deployment stack known to the orchestration
// control plane. The control plane assigns the numeric identifier.
type Stack struct {
	ID           int64
	Name         string
	Status       int
	CreationDate int64
	UpdateDate   int64
}
