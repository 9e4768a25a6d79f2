package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mautichost/provisiond/internal/domain"
)

// EventRepository implements domain.EventRepository using SQLite. The
// tenant_events table is append-only: rows are inserted, never updated.
type EventRepository struct {
	db *sql.DB
}

// Compile-time check: EventRepository implements domain.EventRepository.
var _ domain.EventRepository = (*EventRepository)(nil)

// NewEventRepository wraps a database connection that has already been
// migrated (see New / NewFromDB on TenantRepository).
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, e domain.TenantEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenant_events (tenant_id, type, message, created_at)
		 VALUES (?, ?, ?, ?)`,
		e.TenantID, string(e.Type), e.Message, e.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting tenant event: %w", err)
	}
	return nil
}

// ListByTenant returns the audit trail for a tenant, newest first.
func (r *EventRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.TenantEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, type, message, created_at
		 FROM tenant_events WHERE tenant_id = ?
		 ORDER BY created_at DESC, id DESC`, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tenant events: %w", err)
	}
	defer rows.Close()

	var events []domain.TenantEvent
	for rows.Next() {
		var e domain.TenantEvent
		var eventType, createdAt string
		if err := rows.Scan(&e.ID, &e.TenantID, &eventType, &e.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning tenant event: %w", err)
		}
		e.Type = domain.EventType(eventType)
		e.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		events = append(events, e)
	}

	return events, rows.Err()
}
